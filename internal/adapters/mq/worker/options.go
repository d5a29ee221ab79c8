package worker

import (
	"github.com/okian/fairway/internal/domain/optimizer"
	"github.com/okian/fairway/pkg/logger"
)

// Option applies a configuration option to the InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithCheckpoints makes the worker resume seeds found in cps instead of
// starting them over. The map is read-only once workers run.
func WithCheckpoints(cps map[int64]optimizer.Checkpoint) Option {
	return func(w *InMemoryWorker) {
		w.checkpoints = cps
	}
}
