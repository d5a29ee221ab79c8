package optimizer

import "errors"

var (
	ErrMissingInput     = errors.New("missing required input")
	ErrInvalidSettings  = errors.New("invalid optimizer settings")
	ErrUndefinedFitness = errors.New("baseline fitness is undefined")
	ErrSeedMismatch     = errors.New("checkpoint belongs to another problem")
)
