// Package api provides the HTTP REST API for the Huarong Pass server.
//
// Endpoints:
//
// Session Management:
//   - POST /api/sessions - Create a session ({"config_id": "classic"})
//   - GET /api/sessions - List sessions (?sort=created|accessed&order=asc|desc&limit=N)
//   - GET /api/sessions/unified - Several sessions at once (?sessionIds=a,b or ?configName=x)
//   - GET /api/sessions/{id} - Get one session
//   - DELETE /api/sessions/{id} - Delete a session
//
// Gestures:
//   - POST /api/sessions/{id}/drag - One drag update ({"piece": "bing1", "dx": 0, "dy": 35})
//   - POST /api/sessions/{id}/drag/end - Release the piece and count the move
//   - POST /api/sessions/{id}/drag/cancel - Drop the gesture without counting it
//
// Game Operations:
//   - GET /api/sessions/{id}/state - Current board and counters
//   - POST /api/sessions/{id}/move - One complete move
//   - POST /api/sessions/{id}/bulk-move - Up to 50 moves, stopping at the first failure
//   - POST /api/sessions/{id}/reset - Back to the opening layout
//   - GET /api/sessions/{id}/history - Paginated move history (?page&limit&order)
//   - GET /api/sessions/{id}/possible-moves - Every one-cell move that displaces a piece
//
// Layouts:
//   - GET /api/configs - List layouts
//   - POST /api/configs - Save a layout
//   - GET /api/configs/{name} - Get one layout
//
// Other:
//   - GET /health
//   - GET /ws?session={id} - WebSocket upgrade
//
// Moves are given either as an axis and a pixel delta or as a direction and
// a number of cells:
//
//	{"piece": "cao", "axis": "vertical", "delta": 200}
//	{"piece": "cao", "direction": "down", "cells": 1, "reset": false}
//
// A blocked move is not an error: the response has success=false and the
// piece stays where the resolver left it.
//
// Error Handling:
//
// Errors are returned as JSON with the HTTP status code repeated in the body:
//
//	{
//	  "error": "session abcd: session not found",
//	  "code": 404
//	}
//
// Unknown sessions, layouts and pieces map to 404. Diagonal or malformed
// drags, unknown axes and invalid layouts map to 400.
package api
