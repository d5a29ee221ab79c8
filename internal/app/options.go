package service

import (
	"time"

	"github.com/okian/fairway/internal/adapters/repository"
	"github.com/okian/fairway/internal/domain/optimizer"
	"github.com/okian/fairway/internal/domain/scoring"
	"github.com/okian/fairway/internal/domain/templates"
	"github.com/okian/fairway/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the run store. Start opens an in-memory store when none is
// given.
func WithStore(s repository.Store) Option {
	return func(svc *Service) {
		svc.store = s
	}
}

// WithTemplates sets the template store. Start loads the built-ins when none
// is given.
func WithTemplates(t *templates.Store) Option {
	return func(svc *Service) {
		svc.templates = t
	}
}

// WithScoringSettings sets the settings every scoring engine uses.
func WithScoringSettings(s scoring.Settings) Option {
	return func(svc *Service) {
		svc.scoring = s
	}
}

// WithValidationTopN overrides the hit-rate cut-offs.
func WithValidationTopN(ns ...int) Option {
	return func(svc *Service) {
		if len(ns) > 0 {
			svc.topN = append([]int(nil), ns...)
		}
	}
}

// WithOptimizerOptions are passed to every optimizer the service builds.
func WithOptimizerOptions(opts ...optimizer.Option) Option {
	return func(svc *Service) {
		svc.optimizerOpts = append(svc.optimizerOpts, opts...)
	}
}

// WithSeeds sets how many seeds an optimization runs when the request
// names none.
func WithSeeds(n int) Option {
	return func(svc *Service) {
		if n > 0 {
			svc.seeds = n
		}
	}
}

// WithWorkerCount sets the number of optimizer worker goroutines.
func WithWorkerCount(count int) Option {
	return func(svc *Service) {
		if count > 0 {
			svc.workerCount = count
		}
	}
}

// WithQueueSize caps the number of seeds one optimization may queue.
func WithQueueSize(size int) Option {
	return func(svc *Service) {
		if size > 0 {
			svc.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the request id cache.
func WithDedupeSize(size int) Option {
	return func(svc *Service) {
		if size > 0 {
			svc.dedupeSize = size
		}
	}
}

// WithMaxLimit caps TopN.
func WithMaxLimit(n int) Option {
	return func(svc *Service) {
		if n > 0 {
			svc.maxLimit = n
		}
	}
}

// WithClock sets the clock used for run timestamps.
func WithClock(now func() time.Time) Option {
	return func(svc *Service) {
		if now != nil {
			svc.now = now
		}
	}
}

// WithIDGenerator sets how run ids are made.
func WithIDGenerator(gen func() string) Option {
	return func(svc *Service) {
		if gen != nil {
			svc.newID = gen
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(svc *Service) {
		if l != nil {
			svc.logger = l
		}
	}
}
