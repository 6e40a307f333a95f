// Package engine provides the core movement logic for the Huarong Pass
// sliding-block puzzle.
//
// The engine package implements:
//   - Immutable piece and board values measured in grid-unit pixels
//   - Directional adjacency predicates (above, below, left of, right of)
//   - Single-axis drag resolution with blocker and boundary clamping
//   - The exit gate that lets the key piece leave through the bottom edge
//   - Drag gesture bookkeeping, move counting and move history
//   - Opening layout definitions and validation
//
// Core Types:
//
// Piece and Board are value types; moving a piece produces a new Piece and a
// new Board instead of mutating either. ResolveMove is the pure resolver that
// every other operation is built on. GameEngine wraps one board together with
// the move counter and history and is the single mutation point for a game.
//
// Usage:
//
//	gameEngine, err := engine.NewEngine(engine.DefaultLayoutConfig())
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Drag the key piece 50px down, then release it
//	piece, err := gameEngine.Drag("cao", 0, 50)
//	entry, err := gameEngine.EndDrag()
//
// Movement Rules:
//
// A drag moves one piece along one axis. The piece slides until it touches
// the nearest piece in its way or the board edge, whichever comes first. The
// key piece may slide past the bottom edge when it is flush with that edge
// and aligned with the gate column.
package engine
