package metric

import "errors"

var (
	ErrUnknownMetric = errors.New("unknown metric")
	ErrUnknownBucket = errors.New("unknown approach bucket")
)
