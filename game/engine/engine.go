package engine

import (
	"errors"
	"fmt"
	"time"
)

// Engine provides the main interface for game operations
type Engine interface {
	// Game state management
	GetState() *GameState
	SetState(state *GameState) error
	Reset() *GameState
	GetBoard() Board
	GetMoveCount() int

	// Gesture operations
	Drag(name string, dx, dy float64) (Piece, error)
	DragAxis(name string, axis Axis, delta int) (Piece, error)
	EndDrag() (*MoveHistoryEntry, error)
	CancelDrag() bool

	// Movement operations
	Move(name string, axis Axis, delta int) (*MoveHistoryEntry, error)
	GetPossibleMoves() []PossibleMove

	// Configuration
	GetConfig() *LayoutConfig
	SetConfig(config *LayoutConfig) error

	// History
	GetMoveHistory() []MoveHistoryEntry
	GetLastMove() *MoveHistoryEntry
}

// GameEngine implements the Engine interface. It is not safe for concurrent
// use; callers serialize access to one engine.
type GameEngine struct {
	state  *GameState
	config *LayoutConfig
}

// NewEngine creates a new game engine with the provided layout
func NewEngine(config *LayoutConfig) (*GameEngine, error) {
	if err := ValidateLayoutConfig(config); err != nil {
		return nil, err
	}

	engine := &GameEngine{
		config: config,
		state:  InitGameStateFromConfig(config),
	}

	return engine, nil
}

// NewEngineWithDefaults creates a new game engine with the classic layout
func NewEngineWithDefaults() *GameEngine {
	config := DefaultLayoutConfig()
	return &GameEngine{
		config: config,
		state:  InitGameStateFromConfig(config),
	}
}

// GetState returns the current game state
func (e *GameEngine) GetState() *GameState {
	return e.state
}

// SetState sets the game state (used for persistence loading)
func (e *GameEngine) SetState(state *GameState) error {
	if state == nil {
		return fmt.Errorf("state cannot be nil")
	}
	if e.config != nil {
		if err := matchesLayout(state.Board, BuildBoard(e.config)); err != nil {
			return fmt.Errorf("%w: layout %q: %v", ErrInvalidLayout, e.config.Name, err)
		}
	}
	if a, b, ok := state.Board.Overlapping(); ok {
		return fmt.Errorf("%w: pieces %q and %q overlap", ErrInvalidLayout, a.Name, b.Name)
	}
	for _, p := range state.Board.Pieces {
		if !state.Board.Contains(p) && !state.Board.hasExited(p) {
			return fmt.Errorf("%w: piece %q at (%d,%d) is outside the board", ErrInvalidLayout, p.Name, p.Left(), p.Top())
		}
	}
	if drag := state.ActiveDrag; drag != nil {
		if _, err := state.Board.Lookup(drag.Piece); err != nil {
			return fmt.Errorf("%w: open gesture on unknown piece %q", ErrInvalidLayout, drag.Piece)
		}
	}
	if state.MoveHistory == nil {
		state.MoveHistory = []MoveHistoryEntry{}
	}
	if state.CurrentMoves == nil {
		state.CurrentMoves = []MoveHistoryEntry{}
	}
	e.state = state
	return nil
}

// Reset restores the opening layout
func (e *GameEngine) Reset() *GameState {
	// Preserve cumulative history and totals across resets
	prevHistory := e.state.MoveHistory
	prevTotal := e.state.TotalMoves

	e.state = InitGameStateFromConfig(e.config)

	e.state.MoveHistory = prevHistory
	e.state.TotalMoves = prevTotal

	return e.state
}

// matchesLayout checks that a restored board keeps the geometry and piece
// sizes of the board built from its layout. Only positions may differ.
func matchesLayout(got, want Board) error {
	if got.Width != want.Width || got.Height != want.Height || got.GridUnit != want.GridUnit {
		return fmt.Errorf("board is %dx%d unit %d, want %dx%d unit %d",
			got.Width, got.Height, got.GridUnit, want.Width, want.Height, want.GridUnit)
	}
	if got.KeyPiece != want.KeyPiece || got.GateColumn != want.GateColumn {
		return fmt.Errorf("key piece %q gate %d, want %q gate %d", got.KeyPiece, got.GateColumn, want.KeyPiece, want.GateColumn)
	}
	if len(got.Pieces) != len(want.Pieces) {
		return fmt.Errorf("state has %d pieces, want %d", len(got.Pieces), len(want.Pieces))
	}
	for _, w := range want.Pieces {
		p, err := got.Lookup(w.Name)
		if err != nil {
			return fmt.Errorf("state is missing piece %q", w.Name)
		}
		if p.Width != w.Width || p.Height != w.Height {
			return fmt.Errorf("piece %q is %dx%d, want %dx%d", w.Name, p.Width, p.Height, w.Width, w.Height)
		}
	}
	return nil
}

// GetBoard returns the current board
func (e *GameEngine) GetBoard() Board {
	return e.state.Board
}

// GetMoveCount returns the number of completed gestures since the last reset
func (e *GameEngine) GetMoveCount() int {
	return e.state.MoveCount
}

// Drag applies one incremental gesture update. The delta must lie on a single axis.
func (e *GameEngine) Drag(name string, dx, dy float64) (Piece, error) {
	axis, delta, err := AxisDelta(dx, dy)
	if err != nil {
		return Piece{}, err
	}
	return e.DragAxis(name, axis, delta)
}

// DragAxis applies one single-axis update to the gesture for name, opening a
// gesture if none is in progress. An open gesture on a different piece is
// dropped first, the same as an abandoned drag.
func (e *GameEngine) DragAxis(name string, axis Axis, delta int) (Piece, error) {
	current, err := e.state.Board.Lookup(name)
	if err != nil {
		return Piece{}, err
	}

	board, moved, err := Move(e.state.Board, name, axis, delta)
	if err != nil {
		return Piece{}, err
	}

	if e.state.ActiveDrag == nil || e.state.ActiveDrag.Piece != name {
		e.state.ActiveDrag = &DragGesture{
			Piece:     name,
			Start:     current.Offset,
			StartedAt: time.Now().Unix(),
		}
	}
	e.state.ActiveDrag.Updates++
	e.state.Board = board

	return moved, nil
}

// EndDrag completes the open gesture, records it and bumps the move counter
func (e *GameEngine) EndDrag() (*MoveHistoryEntry, error) {
	drag := e.state.ActiveDrag
	if drag == nil {
		return nil, ErrNoActiveDrag
	}
	e.state.ActiveDrag = nil

	p, err := e.state.Board.Lookup(drag.Piece)
	if err != nil {
		return nil, err
	}

	entry := e.addMoveToHistory(drag, p.Offset)
	e.state.MoveCount++
	e.state.Message = e.moveMessage(entry)

	return entry, nil
}

// CancelDrag forgets the open gesture without counting it. The piece keeps
// whatever position the gesture already reached.
func (e *GameEngine) CancelDrag() bool {
	if e.state.ActiveDrag == nil {
		return false
	}
	e.state.ActiveDrag = nil
	return true
}

// Move performs one complete gesture made of a single update
func (e *GameEngine) Move(name string, axis Axis, delta int) (*MoveHistoryEntry, error) {
	if _, err := e.DragAxis(name, axis, delta); err != nil {
		return nil, err
	}
	return e.EndDrag()
}

// BulkMove executes moves in sequence and stops at the first request that fails
func (e *GameEngine) BulkMove(moves []MoveRequest) ([]*MoveHistoryEntry, error) {
	results := make([]*MoveHistoryEntry, 0, len(moves))

	for i, m := range moves {
		entry, err := e.Move(m.Piece, m.Axis, m.Delta)
		if err != nil {
			return results, fmt.Errorf("move %d (%s): %w", i+1, m.Piece, err)
		}
		results = append(results, entry)
	}

	return results, nil
}

// GetPossibleMoves returns every one-cell move that would displace a piece
func (e *GameEngine) GetPossibleMoves() []PossibleMove {
	return PossibleMoves(e.state.Board)
}

// GetConfig returns the current layout configuration
func (e *GameEngine) GetConfig() *LayoutConfig {
	return e.config
}

// SetConfig sets a new layout and resets the game
func (e *GameEngine) SetConfig(config *LayoutConfig) error {
	if err := ValidateLayoutConfig(config); err != nil {
		return err
	}

	e.config = config
	e.state = InitGameStateFromConfig(config)
	return nil
}

// GetMoveHistory returns the complete move history
func (e *GameEngine) GetMoveHistory() []MoveHistoryEntry {
	return e.state.MoveHistory
}

// GetLastMove returns the last move made, or nil if no moves
func (e *GameEngine) GetLastMove() *MoveHistoryEntry {
	if len(e.state.MoveHistory) == 0 {
		return nil
	}
	return &e.state.MoveHistory[len(e.state.MoveHistory)-1]
}

// addMoveToHistory appends a completed gesture to both history views
func (e *GameEngine) addMoveToHistory(drag *DragGesture, to Offset) *MoveHistoryEntry {
	entry := MoveHistoryEntry{
		Piece:      drag.Piece,
		From:       drag.Start,
		To:         to,
		Updates:    drag.Updates,
		Moved:      drag.Start != to,
		Timestamp:  time.Now().Unix(),
		MoveNumber: e.state.TotalMoves + 1,
	}
	// Append to cumulative history (never cleared by reset) and increment total
	e.state.MoveHistory = append(e.state.MoveHistory, entry)
	e.state.TotalMoves++

	e.state.CurrentMoves = append(e.state.CurrentMoves, entry)

	return &entry
}

func (e *GameEngine) moveMessage(entry *MoveHistoryEntry) string {
	var moved, blocked string
	if e.config != nil {
		moved, blocked = e.config.Messages.Moved, e.config.Messages.Blocked
	}
	if !entry.Moved {
		if blocked == "" {
			blocked = "%s cannot move that way"
		}
		return fmt.Sprintf(blocked, entry.Piece)
	}
	if moved == "" {
		moved = "%s moved to (%d,%d)"
	}
	return fmt.Sprintf(moved, entry.Piece, entry.To.X, entry.To.Y)
}

// IsInputError reports whether err was caused by a bad move request rather
// than by the engine itself.
func IsInputError(err error) bool {
	return errors.Is(err, ErrInvalidAxis) || errors.Is(err, ErrInvalidDelta) || errors.Is(err, ErrNoActiveDrag)
}
