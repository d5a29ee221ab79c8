package validation

import "errors"

var (
	ErrMissingInput        = errors.New("missing required input")
	ErrInvalidInput        = errors.New("invalid validation input")
	ErrDuplicateCompetitor = errors.New("duplicate competitor")
)
