package engine

import (
	"fmt"
	"strings"
)

// Axis names one of the two board axes
type Axis string

const (
	Horizontal Axis = "horizontal"
	Vertical   Axis = "vertical"

	// Validation constants
	DefaultGridUnit     = 200
	MinBoardCells       = 2
	MaxBoardCells       = 20
	MaxPieces           = 64
	MaxBulkMoves        = 50
	MaxDragDelta        = 1 << 20
	WebSocketBufferSize = 256
)

// Valid reports whether a is one of the two known axes
func (a Axis) Valid() bool {
	return a == Horizontal || a == Vertical
}

// ParseAxis accepts the axis names and their short forms (x/h, y/v)
func ParseAxis(s string) (Axis, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "horizontal", "x", "h":
		return Horizontal, nil
	case "vertical", "y", "v":
		return Vertical, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidAxis, s)
	}
}

// Offset is a pixel position on the board
type Offset struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Add returns o shifted by d along axis
func (o Offset) Add(axis Axis, d int) Offset {
	if axis == Vertical {
		o.Y += d
	} else {
		o.X += d
	}
	return o
}

// Piece is one rectangular block. Width and Height are pixels and multiples
// of the board's grid unit; Offset is the top-left corner.
type Piece struct {
	Name   string `json:"name"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Offset Offset `json:"offset"`
}

// Left returns the x of the piece's left edge
func (p Piece) Left() int { return p.Offset.X }

// Top returns the y of the piece's top edge
func (p Piece) Top() int { return p.Offset.Y }

// Right returns the x just past the piece's right edge
func (p Piece) Right() int { return p.Offset.X + p.Width }

// Bottom returns the y just past the piece's bottom edge
func (p Piece) Bottom() int { return p.Offset.Y + p.Height }

// Span returns the half-open projection [lo, hi) of the piece onto axis
func (p Piece) Span(axis Axis) (int, int) {
	if axis == Vertical {
		return p.Top(), p.Bottom()
	}
	return p.Left(), p.Right()
}

// MoveBy returns a copy of p displaced by d along axis
func (p Piece) MoveBy(axis Axis, d int) Piece {
	p.Offset = p.Offset.Add(axis, d)
	return p
}

// Board is the full puzzle state: the pieces plus the fixed board geometry.
// Piece order carries no meaning; pieces are looked up by name.
type Board struct {
	Pieces   []Piece `json:"pieces"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	GridUnit int     `json:"grid_unit"`

	// KeyPiece is the only piece allowed through the gate.
	KeyPiece string `json:"key_piece"`
	// GateColumn is the pixel x the key piece's left edge must match to exit.
	GateColumn int `json:"gate_column"`
}

// Extent returns the board size along axis
func (b Board) Extent(axis Axis) int {
	if axis == Vertical {
		return b.Height
	}
	return b.Width
}

// Lookup returns the piece with the given name
func (b Board) Lookup(name string) (Piece, error) {
	for _, p := range b.Pieces {
		if p.Name == name {
			return p, nil
		}
	}
	return Piece{}, fmt.Errorf("%w: %q", ErrNotFound, name)
}

// Replace returns a new board in which the piece named p.Name is p.
// The receiver's piece slice is never written to.
func (b Board) Replace(p Piece) (Board, error) {
	idx := -1
	for i := range b.Pieces {
		if b.Pieces[i].Name == p.Name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return b, fmt.Errorf("%w: %q", ErrNotFound, p.Name)
	}
	next := b.Clone()
	next.Pieces[idx] = p
	return next, nil
}

// Clone returns a board that shares no memory with b
func (b Board) Clone() Board {
	pieces := make([]Piece, len(b.Pieces))
	copy(pieces, b.Pieces)
	b.Pieces = pieces
	return b
}

// Names returns the piece names in board order
func (b Board) Names() []string {
	names := make([]string, 0, len(b.Pieces))
	for _, p := range b.Pieces {
		names = append(names, p.Name)
	}
	return names
}

// GameState represents the complete state of one puzzle instance
type GameState struct {
	Board      Board  `json:"board"`
	Message    string `json:"message"`
	ConfigName string `json:"config_name"`

	// MoveCount is the number of completed drag gestures since the last reset.
	MoveCount int `json:"move_count"`

	// ActiveDrag is the gesture currently in progress, if any.
	ActiveDrag *DragGesture `json:"active_drag,omitempty"`

	MoveHistory []MoveHistoryEntry `json:"move_history"`
	TotalMoves  int                `json:"total_moves"`

	// CurrentMoves tracks only the moves since the last reset. It mirrors MoveHistory entries
	// but gets cleared on reset while MoveHistory remains cumulative.
	CurrentMoves []MoveHistoryEntry `json:"current_moves"`

	// Computed helper views (not required for core game logic)
	GridView []string `json:"grid_view,omitempty"`
}

// Clone returns a copy of s that shares no slices with it
func (s *GameState) Clone() *GameState {
	if s == nil {
		return nil
	}
	c := *s
	c.Board = s.Board.Clone()
	if s.ActiveDrag != nil {
		drag := *s.ActiveDrag
		c.ActiveDrag = &drag
	}
	c.MoveHistory = append([]MoveHistoryEntry{}, s.MoveHistory...)
	c.CurrentMoves = append([]MoveHistoryEntry{}, s.CurrentMoves...)
	c.GridView = append([]string(nil), s.GridView...)
	return &c
}

// DragGesture is an open drag: the piece being dragged and where it started
type DragGesture struct {
	Piece     string `json:"piece"`
	Start     Offset `json:"start"`
	Updates   int    `json:"updates"`
	StartedAt int64  `json:"started_at"`
}

// MoveHistoryEntry represents one completed drag gesture
type MoveHistoryEntry struct {
	Piece      string `json:"piece"`
	From       Offset `json:"from"`
	To         Offset `json:"to"`
	Updates    int    `json:"updates"`
	Moved      bool   `json:"moved"`
	Timestamp  int64  `json:"timestamp"`
	MoveNumber int    `json:"move_number"`
}

// MoveRequest is a complete single-axis move: one drag update then release
type MoveRequest struct {
	Piece string `json:"piece"`
	Axis  Axis   `json:"axis"`
	Delta int    `json:"delta"`
}
