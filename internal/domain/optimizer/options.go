package optimizer

import (
	"fmt"
	"math"
	"time"

	"github.com/okian/fairway/internal/domain/scoring"
	"github.com/okian/fairway/internal/domain/validation"
	"github.com/okian/fairway/pkg/logger"
)

// Anchor selects what each candidate is perturbed from.
type Anchor string

const (
	AnchorBaseline Anchor = "baseline"
	AnchorBest     Anchor = "best"
)

const (
	DefaultIterations   = 200
	DefaultGroupJitter  = 0.25
	DefaultMetricJitter = 0.25
	DefaultMinWeight    = 0.01
	DefaultMargin       = 0.01
)

// Option configures an Optimizer.
type Option func(*Optimizer)

// WithIterations sets the iteration budget of a run.
func WithIterations(n int) Option {
	return func(o *Optimizer) {
		o.iterations = n
	}
}

// WithTimeBudget stops a run once d has elapsed; the run can be resumed
// from its checkpoint. Zero disables the budget.
func WithTimeBudget(d time.Duration) Option {
	return func(o *Optimizer) {
		o.timeBudget = d
	}
}

// WithClock replaces time.Now for the time budget.
func WithClock(now func() time.Time) Option {
	return func(o *Optimizer) {
		o.now = now
	}
}

// WithJitter sets the relative perturbation bounds for group and metric weights.
func WithJitter(group, metric float64) Option {
	return func(o *Optimizer) {
		o.groupJitter = group
		o.metricJitter = metric
	}
}

// WithMinWeight sets the floor perturbed weights are clamped to.
func WithMinWeight(w float64) Option {
	return func(o *Optimizer) {
		o.minWeight = w
	}
}

// WithMargin sets the materiality margin a candidate must beat the baseline by.
func WithMargin(m float64) Option {
	return func(o *Optimizer) {
		o.margin = m
	}
}

func WithAnchor(a Anchor) Option {
	return func(o *Optimizer) {
		o.anchor = a
	}
}

func WithBlend(b Blend) Option {
	return func(o *Optimizer) {
		o.blend = b
	}
}

// WithScoringOptions are passed to every scoring engine the optimizer builds.
func WithScoringOptions(opts ...scoring.Option) Option {
	return func(o *Optimizer) {
		o.scoringOpts = append(o.scoringOpts, opts...)
	}
}

// WithValidationOptions are passed to every validation.
func WithValidationOptions(opts ...validation.Option) Option {
	return func(o *Optimizer) {
		o.validationOpts = append(o.validationOpts, opts...)
	}
}

func WithLogger(l logger.Logger) Option {
	return func(o *Optimizer) {
		o.log = l
	}
}

func (o *Optimizer) validate() error {
	switch {
	case o.iterations < 0:
		return fmt.Errorf("%w: iterations %d", ErrInvalidSettings, o.iterations)
	case o.timeBudget < 0:
		return fmt.Errorf("%w: time budget %s", ErrInvalidSettings, o.timeBudget)
	case !(o.groupJitter >= 0 && o.groupJitter < 1), !(o.metricJitter >= 0 && o.metricJitter < 1):
		return fmt.Errorf("%w: jitter must be in [0, 1)", ErrInvalidSettings)
	case !(o.minWeight > 0 && o.minWeight <= 1):
		return fmt.Errorf("%w: min weight %v", ErrInvalidSettings, o.minWeight)
	case math.IsNaN(o.margin) || o.margin < 0:
		return fmt.Errorf("%w: margin %v", ErrInvalidSettings, o.margin)
	case o.anchor != AnchorBaseline && o.anchor != AnchorBest:
		return fmt.Errorf("%w: anchor %q", ErrInvalidSettings, o.anchor)
	case o.now == nil:
		return fmt.Errorf("%w: nil clock", ErrInvalidSettings)
	}
	return o.blend.validate()
}
