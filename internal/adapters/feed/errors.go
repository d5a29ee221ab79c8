package feed

import "errors"

// Sentinel kinds for feed errors.
var (
	ErrMissingInput = errors.New("missing required input")
	ErrBadCell      = errors.New("bad cell")
	ErrBadHeader    = errors.New("bad header")
)
