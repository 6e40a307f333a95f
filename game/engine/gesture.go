package engine

import (
	"fmt"
	"math"
	"strings"
)

// AxisDelta converts a raw gesture delta into a single-axis integer drag.
// Exactly one component may be non-zero; both zero is a no-op on the
// horizontal axis. Fractional gesture units are rounded half away from zero.
func AxisDelta(dx, dy float64) (Axis, int, error) {
	for _, v := range []float64{dx, dy} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return "", 0, fmt.Errorf("%w: non-finite component (dx=%v, dy=%v)", ErrInvalidDelta, dx, dy)
		}
	}
	if dx != 0 && dy != 0 {
		return "", 0, fmt.Errorf("%w: drag moves both axes (dx=%g, dy=%g)", ErrInvalidAxis, dx, dy)
	}

	axis, v := Horizontal, dx
	if dy != 0 {
		axis, v = Vertical, dy
	}
	if math.Abs(v) > MaxDragDelta {
		return "", 0, fmt.Errorf("%w: %g exceeds %d", ErrInvalidDelta, v, MaxDragDelta)
	}
	return axis, int(math.Round(v)), nil
}

// DirectionVector maps up/down/left/right to an axis and a sign
func DirectionVector(direction string) (Axis, int, bool) {
	switch strings.ToLower(strings.TrimSpace(direction)) {
	case "up":
		return Vertical, -1, true
	case "down":
		return Vertical, 1, true
	case "left":
		return Horizontal, -1, true
	case "right":
		return Horizontal, 1, true
	default:
		return "", 0, false
	}
}

// DirectionName is the inverse of DirectionVector
func DirectionName(axis Axis, delta int) string {
	switch {
	case axis == Vertical && delta < 0:
		return "up"
	case axis == Vertical && delta > 0:
		return "down"
	case axis == Horizontal && delta < 0:
		return "left"
	case axis == Horizontal && delta > 0:
		return "right"
	default:
		return "none"
	}
}
