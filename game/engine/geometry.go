package engine

// OverlapsOnAxis reports whether the projections of a and b onto axis share
// a non-empty open interval. Pieces that only touch edge to edge do not overlap.
func OverlapsOnAxis(a, b Piece, axis Axis) bool {
	alo, ahi := a.Span(axis)
	blo, bhi := b.Span(axis)
	return max(alo, blo) < min(ahi, bhi)
}

// IsAbove reports whether a sits entirely above b within b's columns
func IsAbove(a, b Piece) bool {
	return a.Bottom() <= b.Top() && OverlapsOnAxis(a, b, Horizontal)
}

// IsBelow reports whether a sits entirely below b within b's columns
func IsBelow(a, b Piece) bool {
	return a.Top() >= b.Bottom() && OverlapsOnAxis(a, b, Horizontal)
}

// IsLeftOf reports whether a sits entirely left of b within b's rows
func IsLeftOf(a, b Piece) bool {
	return a.Right() <= b.Left() && OverlapsOnAxis(a, b, Vertical)
}

// IsRightOf reports whether a sits entirely right of b within b's rows
func IsRightOf(a, b Piece) bool {
	return a.Left() >= b.Right() && OverlapsOnAxis(a, b, Vertical)
}

// precedes reports whether a lies before b in the positive direction of axis
func precedes(a, b Piece, axis Axis) bool {
	if axis == Vertical {
		return IsAbove(a, b)
	}
	return IsLeftOf(a, b)
}

// follows reports whether a lies after b in the positive direction of axis
func follows(a, b Piece, axis Axis) bool {
	if axis == Vertical {
		return IsBelow(a, b)
	}
	return IsRightOf(a, b)
}

// Intersects reports whether a and b share positive area
func Intersects(a, b Piece) bool {
	return OverlapsOnAxis(a, b, Horizontal) && OverlapsOnAxis(a, b, Vertical)
}

// Overlapping returns the first pair of distinct pieces that intersect
func (b Board) Overlapping() (Piece, Piece, bool) {
	for i := 0; i < len(b.Pieces); i++ {
		for j := i + 1; j < len(b.Pieces); j++ {
			if Intersects(b.Pieces[i], b.Pieces[j]) {
				return b.Pieces[i], b.Pieces[j], true
			}
		}
	}
	return Piece{}, Piece{}, false
}

// Contains reports whether p lies fully inside the board
func (b Board) Contains(p Piece) bool {
	return p.Left() >= 0 && p.Top() >= 0 && p.Right() <= b.Width && p.Bottom() <= b.Height
}

// hasExited reports whether p is the key piece gone through the gate: lined
// up with the gate column and past the bottom edge.
func (b Board) hasExited(p Piece) bool {
	return p.Name == b.KeyPiece && p.Left() == b.GateColumn && p.Top() >= 0 && p.Bottom() > b.Height
}
