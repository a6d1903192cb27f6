package solver

import "errors"

var (
	// ErrArithmeticDegeneracy indicates a non-finite unknown. Only returned
	// when strict finite checking is enabled.
	ErrArithmeticDegeneracy = errors.New("solver: arithmetic degeneracy (non-finite unknown)")

	// ErrLayoutInvariant indicates the scheduler reached an impossible layout.
	ErrLayoutInvariant = errors.New("solver: block layout invariant violated")

	// ErrScheduleOrder indicates Step was called before Bootstrap or after
	// the last round.
	ErrScheduleOrder = errors.New("solver: scheduler step out of order")

	// ErrNoSession indicates a solver constructed without a compute session.
	ErrNoSession = errors.New("solver: nil compute session")
)
