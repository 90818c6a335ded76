package hull

import (
	"errors"

	pkgerrors "github.com/pkg/errors"
)

var (
	// ErrInsufficientPoints is returned for inputs of fewer than four points.
	ErrInsufficientPoints = errors.New("hull: at least 4 points are required")

	// ErrDegenerateTriangle is returned when a triangle would have a
	// repeated or missing vertex or zero area. Inputs whose points are all
	// coincident, collinear or coplanar fail with it during seeding.
	ErrDegenerateTriangle = errors.New("hull: degenerate triangle")

	// ErrInconsistentTopology is returned when the hull's adjacency breaks
	// an invariant: a rim that does not close, a triangle detached twice,
	// or points left outside the finished hull.
	ErrInconsistentTopology = errors.New("hull: inconsistent topology")

	// ErrInvalidState is returned when an operation receives a null
	// triangle or point handle.
	ErrInvalidState = errors.New("hull: invalid state")
)

// Threading errors through every adjacency update would bury the algorithm.
// Topology assertions panic with a topologyError instead and Compute
// recovers them into an ordinary error.
type topologyError struct {
	error
}

func (e topologyError) Unwrap() error { return e.error }

// fatalf panics with err wrapped by a formatted message and a stack trace.
func fatalf(err error, format string, args ...interface{}) {
	panic(topologyError{pkgerrors.Wrapf(err, format, args...)})
}

// recoverTopology converts a recovered topologyError into an error. Any
// other panic value is re-raised.
func recoverTopology(r interface{}) error {
	if r == nil {
		return nil
	}
	if te, ok := r.(topologyError); ok {
		return te.error
	}
	panic(r)
}
