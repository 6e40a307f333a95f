// Package mcp exposes the Huarong Pass REST API as Model Context Protocol
// tools so AI agents can play.
//
// The Client is a thin proxy: every tool call becomes one or more REST
// requests against a running API server, and the JSON answer is rendered as
// text with a character grid of the board.
//
// MCP Tools:
//   - create_session, get_session, list_sessions: session management
//   - board_state: board grid, piece legend and move counters
//   - possible_moves: every one-cell move that would displace a piece
//   - move: slide one piece by direction and cells, or by axis and pixels
//   - bulk_move: several moves, as objects or strings like "bing1 down 2"
//   - drag, end_drag, cancel_drag: raw gesture control
//   - reset_game, move_history, list_configs, game_instructions
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
