package service

import (
	"fmt"
	"time"

	"github.com/wricardo/huarongpass/game/engine"
)

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string               `json:"id"`
	ConfigName     string               `json:"config_name"`
	CreatedAt      time.Time            `json:"created_at"`
	LastAccessedAt time.Time            `json:"last_accessed_at"`
	GameState      *engine.GameState    `json:"game_state"`
	GameConfig     *engine.LayoutConfig `json:"game_config"`
}

// DragRequest is one raw gesture update. Exactly one of DX and DY may be non-zero.
type DragRequest struct {
	Piece string  `json:"piece"`
	DX    float64 `json:"dx"`
	DY    float64 `json:"dy"`
}

// DragResult is the outcome of one gesture update
type DragResult struct {
	Piece     engine.Piece        `json:"piece"`
	Axis      engine.Axis         `json:"axis"`
	Requested int                 `json:"requested"`
	Applied   int                 `json:"applied"`
	Gesture   *engine.DragGesture `json:"gesture"`
	GameState *engine.GameState   `json:"game_state"`
}

// MoveResult contains the result of a completed gesture
type MoveResult struct {
	Success   bool                     `json:"success"`
	GameState *engine.GameState        `json:"game_state"`
	Message   string                   `json:"message"`
	Events    []GameEvent              `json:"events,omitempty"`
	Move      *engine.MoveHistoryEntry `json:"move,omitempty"`
}

// BulkMoveResult contains the result of multiple moves
type BulkMoveResult struct {
	MovesExecuted  int               `json:"moves_executed"`
	RequestedMoves int               `json:"requested_moves"`
	Success        bool              `json:"success"`
	GameState      *engine.GameState `json:"game_state"`
	Events         []GameEvent       `json:"events"`
	StoppedReason  string            `json:"stopped_reason,omitempty"`
	StopReasonCode string            `json:"stop_reason_code,omitempty"` // not_found|invalid_axis|invalid_delta|error
	StoppedOnMove  int               `json:"stopped_on_move,omitempty"`  // 1-based index of the failing move
	Truncated      bool              `json:"truncated,omitempty"`
	Limit          int               `json:"limit,omitempty"`

	// Per-step trace (only for this call)
	Steps []StepInfo `json:"steps,omitempty"`

	Message       string                `json:"message,omitempty"`
	PossibleMoves []engine.PossibleMove `json:"possible_moves,omitempty"`
}

// StepInfo is a compact record for each executed move in a bulk call
type StepInfo struct {
	Idx   int           `json:"idx"`
	Piece string        `json:"piece"`
	Axis  engine.Axis   `json:"axis"`
	Delta int           `json:"delta"`
	From  engine.Offset `json:"from"`
	To    engine.Offset `json:"to"`
	Moved bool          `json:"moved"`
}

// GameEvent represents an event that occurred during play
type GameEvent struct {
	Type      string         `json:"type"` // "move", "blocked", "reset", "cancel"
	Message   string         `json:"message"`
	Timestamp time.Time      `json:"timestamp"`
	Piece     string         `json:"piece,omitempty"`
	Offset    *engine.Offset `json:"offset,omitempty"`
}

// HistoryOptions configures move history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated move history
type HistoryResponse struct {
	Moves       []engine.MoveHistoryEntry `json:"moves"`
	TotalMoves  int                       `json:"total_moves"`
	Page        int                       `json:"page"`
	PageSize    int                       `json:"page_size"`
	TotalPages  int                       `json:"total_pages"`
	HasNext     bool                      `json:"has_next"`
	HasPrevious bool                      `json:"has_previous"`
}

// ConfigInfo provides information about a layout
type ConfigInfo struct {
	Filename    string `json:"filename"`
	ConfigID    string `json:"config_id"` // The identifier to use for session creation
	Name        string `json:"name"`      // Display name
	Description string `json:"description"`
	Columns     int    `json:"columns"`
	Rows        int    `json:"rows"`
	Pieces      int    `json:"pieces"`
	KeyPiece    string `json:"key_piece"`
}

// MoveInput is a move as transports receive it: either an axis and a pixel
// delta, or a direction and a number of cells.
type MoveInput struct {
	Piece     string `json:"piece"`
	Axis      string `json:"axis,omitempty"`
	Delta     int    `json:"delta,omitempty"`
	Direction string `json:"direction,omitempty"`
	Cells     int    `json:"cells,omitempty"`
}

// UsesCells reports whether the input needs the board's grid unit
func (in MoveInput) UsesCells() bool {
	return in.Direction != ""
}

// Request converts the input to an engine move. Cells defaults to 1.
func (in MoveInput) Request(gridUnit int) (engine.MoveRequest, error) {
	if in.UsesCells() {
		axis, sign, ok := engine.DirectionVector(in.Direction)
		if !ok {
			return engine.MoveRequest{}, fmt.Errorf("%w: unknown direction %q", engine.ErrInvalidAxis, in.Direction)
		}
		cells := in.Cells
		if cells == 0 {
			cells = 1
		}
		if cells < 0 {
			return engine.MoveRequest{}, fmt.Errorf("%w: cells must be positive, got %d", engine.ErrInvalidDelta, cells)
		}
		if gridUnit <= 0 {
			return engine.MoveRequest{}, fmt.Errorf("%w: grid unit must be positive, got %d", engine.ErrInvalidDelta, gridUnit)
		}
		if cells > engine.MaxDragDelta/gridUnit {
			return engine.MoveRequest{}, fmt.Errorf("%w: %d cells exceeds %d", engine.ErrInvalidDelta, cells, engine.MaxDragDelta/gridUnit)
		}
		return engine.MoveRequest{Piece: in.Piece, Axis: axis, Delta: sign * cells * gridUnit}, nil
	}

	axis, err := engine.ParseAxis(in.Axis)
	if err != nil {
		return engine.MoveRequest{}, err
	}
	return engine.MoveRequest{Piece: in.Piece, Axis: axis, Delta: in.Delta}, nil
}
