package hasher

import (
	"github.com/pkg/errors"
)

var (
	// ErrInvalidParameter is returned for non-positive number of projections
	ErrInvalidParameter = errors.New("invalid hasher parameter")
	// ErrInvalidInput is returned for malformed or empty descriptor matrices
	ErrInvalidInput = errors.New("invalid descriptors matrix")
	// ErrNotInitialized is returned when hashing without a projection basis
	ErrNotInitialized = errors.New("hasher is not initialized")
	// ErrDimensionMismatch is returned when descriptors width differs from the basis one
	ErrDimensionMismatch = errors.New("descriptor size doesn't match the projection basis")
	// ErrLengthMismatch is returned when matching hashes of different length
	ErrLengthMismatch = errors.New("hashes have different length")
	// ErrGenerationMismatch is returned when matching hashes built with different bases
	ErrGenerationMismatch = errors.New("hashes come from different projection bases")
)

// DefaultParams returns params with a single projection
func DefaultParams() Params {
	return Params{
		NumProj: DefaultNumProj,
	}
}

// Validate checks that params could be used to build a basis
func (p Params) Validate() error {
	if p.NumProj < 1 {
		return errors.Wrapf(ErrInvalidParameter, "num_proj must be a positive integer, got %d", p.NumProj)
	}
	return nil
}
