package weights

import "errors"

var (
	ErrMissingID        = errors.New("weight config has no id")
	ErrNoGroups         = errors.New("weight config has no groups")
	ErrInvalidConfig    = errors.New("invalid weight config")
	ErrWeightOutOfRange = errors.New("weight out of range [0, 1]")
	ErrEmptyGroup       = errors.New("group has no positive metric weights")
	ErrGroupWeightSum   = errors.New("group metric weights do not sum to 1")
	ErrDuplicateMetric  = errors.New("metric listed twice in group")
	ErrUnknownMetric    = errors.New("unknown metric in weight config")
)
