package engine

import "errors"

var (
	// ErrNotFound is returned when a piece name does not exist on the board.
	ErrNotFound = errors.New("piece not found")

	// ErrInvalidAxis is returned for an unknown axis or a drag that carries
	// displacement on both axes at once.
	ErrInvalidAxis = errors.New("invalid axis")

	// ErrInvalidDelta is returned for non-finite or out-of-range deltas.
	ErrInvalidDelta = errors.New("invalid delta")

	// ErrNoActiveDrag is returned when a gesture is ended without being started.
	ErrNoActiveDrag = errors.New("no active drag")

	// ErrInvalidLayout is returned when a layout configuration fails validation.
	ErrInvalidLayout = errors.New("invalid layout")
)
