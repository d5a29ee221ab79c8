package aggregate

import "errors"

var (
	ErrMissingInput = errors.New("missing required input")
	ErrDuplicateRow = errors.New("duplicate round row")
)
