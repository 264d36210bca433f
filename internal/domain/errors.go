package domain

import "errors"

var (
	// ErrUnknownSpecies marks a record whose species key is missing from the
	// static species table.
	ErrUnknownSpecies = errors.New("unknown species key")

	// ErrInsufficientData marks a statistic that cannot be computed because
	// an input set is below the minimum observation count. It is never
	// substituted with a zero value.
	ErrInsufficientData = errors.New("insufficient data")
)
