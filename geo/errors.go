package geo

import "errors"

var (
	// ErrInvalidArgument is returned for malformed input to a pure math call.
	// Always synchronous, always caller-fixable.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrSingularMatrix is returned when a matrix cannot be inverted because
	// the magnitude of its determinant is below the near-zero threshold.
	ErrSingularMatrix = errors.New("singular matrix")

	// ErrNotSymmetric is returned when an eigensystem is requested for a
	// matrix whose off-diagonal pairs are not equal.
	ErrNotSymmetric = errors.New("matrix is not symmetric")
)
