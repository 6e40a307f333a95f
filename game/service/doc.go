// Package service provides the business logic layer for the Huarong Pass server.
//
// The service package implements:
//   - Multi-session puzzle management
//   - Drag gestures (update, end, cancel) and complete single-axis moves
//   - Bulk moves with a per-step trace
//   - Paginated move history
//   - Layout listing, loading and saving
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level operations.
// SessionManager handles session creation, retrieval, and lifecycle.
// ConfigManager manages layout loading and validation.
//
// Architecture:
//
// The service layer sits between the transports (HTTP, WebSocket, MCP) and
// the engine. Each session owns one engine; every mutation runs under the
// service lock, so a drag arriving over WebSocket and a move arriving over
// REST for the same session are applied one after the other. States handed
// back to callers are snapshots and stay valid after the lock is released.
//
// Usage:
//
//	sessionMgr := session.NewManager()
//	configMgr, _ := config.NewManager("configs")
//	gameService := service.NewGameService(sessionMgr, configMgr)
//
//	info, err := gameService.CreateSession(ctx, "classic")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	_, err = gameService.Drag(ctx, info.ID, service.DragRequest{Piece: "bing1", DY: 120})
//	result, err := gameService.EndDrag(ctx, info.ID)
package service
