package model

import "github.com/rotisserie/eris"

// Sentinel errors shared across packages. Wrap them with eris.Wrapf and test
// with eris.Is.
var (
	// ErrInvalidInput marks input that is rejected outright: non-positive
	// populations, malformed matrices, non-polygonal boundaries, CRS mismatch.
	ErrInvalidInput = eris.New("invalid input")
	// ErrUnclassifiable marks a population no hierarchy interval contains.
	ErrUnclassifiable = eris.New("unclassifiable population")
	// ErrNotFound marks a missing stored record.
	ErrNotFound = eris.New("not found")
)
