package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Placement is one piece template placed at a grid cell in the opening layout
type Placement struct {
	Name string `json:"name"`
	Cols int    `json:"cols"`
	Rows int    `json:"rows"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
}

// LayoutConfig represents an opening layout loaded from JSON
type LayoutConfig struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	GridUnit    int         `json:"grid_unit"`
	Columns     int         `json:"columns"`
	Rows        int         `json:"rows"`
	KeyPiece    string      `json:"key_piece"`
	GateColumn  int         `json:"gate_column"`
	Pieces      []Placement `json:"pieces"`
	Messages    struct {
		Welcome string `json:"welcome"`
		Moved   string `json:"moved"`
		Blocked string `json:"blocked"`
	} `json:"messages"`
}

// ClassicOpening returns the "Heng Dao Li Ma" opening: the key piece at the
// top centre, four generals on the sides, one general across the middle and
// four soldiers.
func ClassicOpening() []Placement {
	return []Placement{
		{Name: "zhang", Cols: 1, Rows: 2, X: 0, Y: 0},
		{Name: "cao", Cols: 2, Rows: 2, X: 1, Y: 0},
		{Name: "zhao", Cols: 1, Rows: 2, X: 3, Y: 0},
		{Name: "huang", Cols: 1, Rows: 2, X: 0, Y: 2},
		{Name: "ma", Cols: 1, Rows: 2, X: 3, Y: 2},
		{Name: "guan", Cols: 2, Rows: 1, X: 1, Y: 2},
		{Name: "bing0", Cols: 1, Rows: 1, X: 0, Y: 4},
		{Name: "bing1", Cols: 1, Rows: 1, X: 1, Y: 3},
		{Name: "bing2", Cols: 1, Rows: 1, X: 2, Y: 3},
		{Name: "bing3", Cols: 1, Rows: 1, X: 3, Y: 4},
	}
}

// DefaultLayoutConfig returns the built-in classic layout on a 4x5 board
func DefaultLayoutConfig() *LayoutConfig {
	config := &LayoutConfig{
		Name:        "classic",
		Description: "Heng Dao Li Ma: the traditional Huarong Pass opening",
		GridUnit:    DefaultGridUnit,
		Columns:     4,
		Rows:        5,
		KeyPiece:    "cao",
		GateColumn:  1,
		Pieces:      ClassicOpening(),
	}
	config.Messages.Welcome = "Slide Cao Cao out through the gate at the bottom."
	config.Messages.Moved = "%s moved to (%d,%d)"
	config.Messages.Blocked = "%s cannot move that way"
	return config
}

// ValidateLayoutConfig checks a layout for correctness before any board is built from it
func ValidateLayoutConfig(config *LayoutConfig) error {
	if config == nil {
		return fmt.Errorf("%w: config is nil", ErrInvalidLayout)
	}
	if config.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidLayout)
	}
	if config.Description == "" {
		return fmt.Errorf("%w: description is required", ErrInvalidLayout)
	}
	if config.GridUnit <= 0 {
		return fmt.Errorf("%w: grid_unit must be positive, got %d", ErrInvalidLayout, config.GridUnit)
	}
	if config.Columns < MinBoardCells || config.Columns > MaxBoardCells {
		return fmt.Errorf("%w: columns must be between %d and %d, got %d", ErrInvalidLayout, MinBoardCells, MaxBoardCells, config.Columns)
	}
	if config.Rows < MinBoardCells || config.Rows > MaxBoardCells {
		return fmt.Errorf("%w: rows must be between %d and %d, got %d", ErrInvalidLayout, MinBoardCells, MaxBoardCells, config.Rows)
	}
	if maxUnit := MaxDragDelta / max(config.Columns, config.Rows); config.GridUnit > maxUnit {
		return fmt.Errorf("%w: grid_unit must be at most %d for a %dx%d board, got %d",
			ErrInvalidLayout, maxUnit, config.Columns, config.Rows, config.GridUnit)
	}
	if len(config.Pieces) == 0 || len(config.Pieces) > MaxPieces {
		return fmt.Errorf("%w: layout must have between 1 and %d pieces, got %d", ErrInvalidLayout, MaxPieces, len(config.Pieces))
	}

	seen := make(map[string]bool, len(config.Pieces))
	var key *Placement
	for i := range config.Pieces {
		pl := &config.Pieces[i]
		if pl.Name == "" {
			return fmt.Errorf("%w: piece %d has no name", ErrInvalidLayout, i+1)
		}
		if seen[pl.Name] {
			return fmt.Errorf("%w: duplicate piece name %q", ErrInvalidLayout, pl.Name)
		}
		seen[pl.Name] = true

		if pl.Cols < 1 || pl.Rows < 1 {
			return fmt.Errorf("%w: piece %q must be at least 1x1, got %dx%d", ErrInvalidLayout, pl.Name, pl.Cols, pl.Rows)
		}
		if pl.X < 0 || pl.Y < 0 || pl.X+pl.Cols > config.Columns || pl.Y+pl.Rows > config.Rows {
			return fmt.Errorf("%w: piece %q at (%d,%d) size %dx%d is outside the %dx%d board",
				ErrInvalidLayout, pl.Name, pl.X, pl.Y, pl.Cols, pl.Rows, config.Columns, config.Rows)
		}
		if pl.Name == config.KeyPiece {
			key = pl
		}
	}

	if key == nil {
		return fmt.Errorf("%w: key_piece %q is not on the board", ErrInvalidLayout, config.KeyPiece)
	}
	if config.GateColumn < 0 || config.GateColumn+key.Cols > config.Columns {
		return fmt.Errorf("%w: gate_column %d does not fit the %d-wide key piece on a %d-column board",
			ErrInvalidLayout, config.GateColumn, key.Cols, config.Columns)
	}

	if a, b, ok := BuildBoard(config).Overlapping(); ok {
		return fmt.Errorf("%w: pieces %q and %q overlap", ErrInvalidLayout, a.Name, b.Name)
	}

	// Validate format strings
	if m := config.Messages.Moved; m != "" && strings.Contains(fmt.Sprintf(m, "cao", 0, 0), "%!") {
		return fmt.Errorf("%w: messages.moved must take the piece name then x and y (%%s, %%d, %%d)", ErrInvalidLayout)
	}
	if m := config.Messages.Blocked; m != "" && strings.Contains(fmt.Sprintf(m, "cao"), "%!") {
		return fmt.Errorf("%w: messages.blocked must take the piece name (%%s)", ErrInvalidLayout)
	}

	return nil
}

// BuildBoard places every piece of the layout at its grid position
func BuildBoard(config *LayoutConfig) Board {
	unit := config.GridUnit
	pieces := make([]Piece, 0, len(config.Pieces))
	for _, pl := range config.Pieces {
		pieces = append(pieces, Piece{
			Name:   pl.Name,
			Width:  pl.Cols * unit,
			Height: pl.Rows * unit,
			Offset: Offset{X: pl.X * unit, Y: pl.Y * unit},
		})
	}
	return Board{
		Pieces:     pieces,
		Width:      config.Columns * unit,
		Height:     config.Rows * unit,
		GridUnit:   unit,
		KeyPiece:   config.KeyPiece,
		GateColumn: config.GateColumn * unit,
	}
}

// LoadLayoutConfig loads a layout from a JSON file
func LoadLayoutConfig(filename string) (*LayoutConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	var config LayoutConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse layout file '%s': %w", filepath.Base(filename), err)
	}

	if err := ValidateLayoutConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// InitGameStateFromConfig creates a new game state using the provided layout
func InitGameStateFromConfig(config *LayoutConfig) *GameState {
	if config == nil {
		config = DefaultLayoutConfig()
	}

	return &GameState{
		Board:        BuildBoard(config),
		Message:      config.Messages.Welcome,
		ConfigName:   config.Name,
		MoveCount:    0,
		MoveHistory:  []MoveHistoryEntry{},
		TotalMoves:   0,
		CurrentMoves: []MoveHistoryEntry{},
	}
}
