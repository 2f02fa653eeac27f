package tess

import "errors"

var (
	// ErrContentUnavailable means a tile's content does not exist at the
	// provider and will not appear by retrying.
	ErrContentUnavailable = errors.New("tile content unavailable")
	// ErrTransientError means a fetch failed but may succeed on a later
	// frame.
	ErrTransientError = errors.New("transient tile content error")
)
