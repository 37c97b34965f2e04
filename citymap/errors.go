package citymap

import "errors"

// MapEdit errors, propagated as values per the module's no-panic error
// handling design.
var (
	ErrSameIntersection  = errors.New("citymap: connect called with identical src and dst")
	ErrNoOverlap         = errors.New("citymap: no overlap between pattern and available width")
	ErrSelfLoopDisallowed = errors.New("citymap: self-loop roads are disallowed")
	ErrNotFound          = errors.New("citymap: entity not found")
	ErrZeroLength        = errors.New("citymap: zero-length road rejected")
	ErrInvariantViolation = errors.New("citymap: invariant violation refused")
)
