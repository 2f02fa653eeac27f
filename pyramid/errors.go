package pyramid

import "errors"

// ErrInvalidConfiguration is returned when a pyramid is built from
// inconsistent parameters. Fatal at construction, never at lookup time.
var ErrInvalidConfiguration = errors.New("invalid pyramid configuration")
