package feed

import "github.com/okian/fairway/pkg/logger"

// Option configures a reader.
type Option func(*settings)

type settings struct {
	comma   rune
	eventID string
	log     logger.Logger
}

func newSettings(opts []Option) settings {
	s := settings{comma: ',', log: logger.Default().Named("feed")}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// WithComma sets the field delimiter, e.g. '\t' for TSV exports.
func WithComma(r rune) Option {
	return func(s *settings) {
		if r != 0 {
			s.comma = r
		}
	}
}

// WithEventID sets the event id for round rows when the feed has no event
// column.
func WithEventID(id string) Option {
	return func(s *settings) {
		s.eventID = id
	}
}

// WithLogger sets the logger used for header diagnostics.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.log = l
		}
	}
}
