package aggregate

import "github.com/okian/fairway/pkg/logger"

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithLogger sets the logger used for aggregation diagnostics.
func WithLogger(l logger.Logger) Option {
	return func(a *Aggregator) {
		if l != nil {
			a.logger = l
		}
	}
}
