package engine

import "fmt"

// ResolveMove computes the offset the named piece reaches when dragged by
// delta along axis. It never moves a piece into another piece: the piece
// stops flush against the nearest blocker, or at the board edge, unless the
// key piece is leaving through the gate.
func ResolveMove(b Board, name string, axis Axis, delta int) (Offset, error) {
	p, err := b.Lookup(name)
	if err != nil {
		return Offset{}, err
	}
	if !axis.Valid() {
		return Offset{}, fmt.Errorf("%w: %q", ErrInvalidAxis, axis)
	}
	if delta > MaxDragDelta || delta < -MaxDragDelta {
		return Offset{}, fmt.Errorf("%w: %d exceeds %d", ErrInvalidDelta, delta, MaxDragDelta)
	}
	if delta == 0 {
		return p.Offset, nil
	}

	if b.canExit(p, axis, delta) {
		return p.Offset.Add(axis, delta), nil
	}

	if step, blocked := blockerDisplacement(b, p, axis, delta); blocked {
		return p.Offset.Add(axis, step), nil
	}
	return p.Offset.Add(axis, boundaryDisplacement(b, p, axis, delta)), nil
}

// Move resolves the drag and returns the new board along with the moved piece
func Move(b Board, name string, axis Axis, delta int) (Board, Piece, error) {
	offset, err := ResolveMove(b, name, axis, delta)
	if err != nil {
		return b, Piece{}, err
	}
	p, _ := b.Lookup(name)
	p.Offset = offset
	next, err := b.Replace(p)
	if err != nil {
		return b, Piece{}, err
	}
	return next, p, nil
}

// canExit reports whether p is the key piece sitting in the gate, flush with
// the bottom edge, and being dragged further down.
func (b Board) canExit(p Piece, axis Axis, delta int) bool {
	return b.KeyPiece != "" &&
		p.Name == b.KeyPiece &&
		axis == Vertical &&
		delta > 0 &&
		b.Height-p.Bottom() <= 0 &&
		p.Left() == b.GateColumn
}

// blockerDisplacement returns the displacement that brings p flush against
// the nearest piece in its way. The smallest gap across all blockers wins, so
// the result does not depend on piece order.
func blockerDisplacement(b Board, p Piece, axis Axis, delta int) (int, bool) {
	best, found := 0, false
	for _, other := range b.Pieces {
		if other.Name == p.Name {
			continue
		}
		gap, ok := gapTo(p, other, axis, delta)
		if !ok {
			continue
		}
		if !found || abs(gap) < abs(best) {
			best, found = gap, true
		}
	}
	return best, found
}

// gapTo returns the distance from p to other when other lies in the move
// direction and the requested delta would reach or pass it.
func gapTo(p, other Piece, axis Axis, delta int) (int, bool) {
	lo, hi := p.Span(axis)
	otherLo, otherHi := other.Span(axis)

	if delta > 0 {
		if !precedes(p, other, axis) || hi+delta < otherLo {
			return 0, false
		}
		return otherLo - hi, true
	}

	if !follows(p, other, axis) || lo+delta > otherHi {
		return 0, false
	}
	return otherHi - lo, true
}

// boundaryDisplacement clamps delta so p stays inside the board. A piece that
// already sits past an edge is never pulled back by a drag away from it.
func boundaryDisplacement(b Board, p Piece, axis Axis, delta int) int {
	lo, hi := p.Span(axis)
	if delta > 0 {
		return max(0, min(delta, b.Extent(axis)-hi))
	}
	return min(0, max(delta, 0-lo))
}

// abs returns the absolute value of x
func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
