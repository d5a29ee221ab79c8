package api

import "github.com/okian/fairway/pkg/logger"

const (
	defaultLimit        = 50
	defaultMaxBodyBytes = 32 << 20
)

type settings struct {
	defaultLimit int
	maxBodyBytes int64
	log          logger.Logger
}

// Option configures NewServer.
type Option func(*settings)

// WithDefaultLimit sets how many ranking entries GET /rankings/{run_id}
// returns when no limit is given.
func WithDefaultLimit(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.defaultLimit = n
		}
	}
}

// WithMaxBodyBytes caps request body size.
func WithMaxBodyBytes(n int64) Option {
	return func(s *settings) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// WithLogger sets the logger for server-side failures.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.log = l
		}
	}
}
