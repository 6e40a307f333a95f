package engine

import (
	"strings"
)

// PossibleMove is a one-cell drag that would actually displace a piece
type PossibleMove struct {
	Piece     string `json:"piece"`
	Direction string `json:"direction"`
	Axis      Axis   `json:"axis"`
	Delta     int    `json:"delta"`
	// Distance is the displacement the resolver grants for Delta.
	Distance int `json:"distance"`
}

// PossibleMoves tries a one-grid-unit drag in every direction for every piece
func PossibleMoves(b Board) []PossibleMove {
	unit := b.GridUnit
	if unit <= 0 {
		unit = DefaultGridUnit
	}

	var moves []PossibleMove
	for _, p := range b.Pieces {
		for _, dir := range []string{"up", "down", "left", "right"} {
			axis, sign, _ := DirectionVector(dir)
			delta := sign * unit
			offset, err := ResolveMove(b, p.Name, axis, delta)
			if err != nil {
				continue
			}
			distance := offset.X - p.Offset.X
			if axis == Vertical {
				distance = offset.Y - p.Offset.Y
			}
			if distance == 0 {
				continue
			}
			moves = append(moves, PossibleMove{
				Piece:     p.Name,
				Direction: dir,
				Axis:      axis,
				Delta:     delta,
				Distance:  distance,
			})
		}
	}
	return moves
}

// FreeArea returns the board area, in square pixels, not covered by any piece
func FreeArea(b Board) int {
	area := b.Width * b.Height
	for _, p := range b.Pieces {
		w := min(p.Right(), b.Width) - max(p.Left(), 0)
		h := min(p.Bottom(), b.Height) - max(p.Top(), 0)
		if w > 0 && h > 0 {
			area -= w * h
		}
	}
	return area
}

// PieceLabels assigns a single display character to each piece: the key
// piece is 'K', the others get 'a', 'b', ... in board order.
func PieceLabels(b Board) map[string]byte {
	labels := make(map[string]byte, len(b.Pieces))
	next := byte('a')
	for _, p := range b.Pieces {
		if p.Name == b.KeyPiece {
			labels[p.Name] = 'K'
			continue
		}
		labels[p.Name] = next
		if next < 'z' {
			next++
		}
	}
	return labels
}

// RenderGrid draws the board one character per grid cell. A cell shows the
// piece covering its centre, or '.' when it is empty.
func RenderGrid(b Board) []string {
	if b.GridUnit <= 0 {
		return nil
	}
	cols, rows := b.Width/b.GridUnit, b.Height/b.GridUnit
	labels := PieceLabels(b)

	lines := make([]string, 0, rows)
	for r := 0; r < rows; r++ {
		var row strings.Builder
		for c := 0; c < cols; c++ {
			cx := c*b.GridUnit + b.GridUnit/2
			cy := r*b.GridUnit + b.GridUnit/2
			ch := byte('.')
			for _, p := range b.Pieces {
				if cx >= p.Left() && cx < p.Right() && cy >= p.Top() && cy < p.Bottom() {
					ch = labels[p.Name]
					break
				}
			}
			row.WriteByte(ch)
		}
		lines = append(lines, row.String())
	}
	return lines
}
