package scoring

import (
	"fmt"
	"math"

	"github.com/okian/fairway/pkg/logger"
)

// Normalization selects how raw metric values are standardized against the
// field before weighting.
type Normalization string

const (
	// ZScore uses the field mean and sample standard deviation.
	ZScore Normalization = "zscore"
	// Robust uses asinh((x-median)/(1.4826*MAD)).
	Robust Normalization = "robust"
)

// PastPerformanceMode selects how past-performance multipliers apply to a
// deviation from neutral.
type PastPerformanceMode string

const (
	// SignAware multiplies positive deviations and divides negative ones, so
	// a multiplier above 1 always improves the score.
	SignAware PastPerformanceMode = "sign_aware"
	// RawMultiply multiplies the deviation regardless of its sign.
	RawMultiply PastPerformanceMode = "raw"
)

// Adjustment step names accepted in Settings.Adjustments.
const (
	StepConfidence      = "confidence"
	StepPastPerformance = "past_performance"
)

// Default scoring configuration constants.
const (
	DefaultCoverageThreshold = 0.70
	DefaultConfidenceFactor  = 1.0
	DefaultLowSampleShots    = 20
	maxMultiplier            = 5.0
	zClip                    = 3.0
)

// Settings holds the tunable scoring parameters.
type Settings struct {
	CoverageThreshold   float64
	ConfidenceFactor    float64
	Neutral             float64
	Renormalize         bool
	LowSampleShots      int
	Normalization       Normalization
	PastPerformanceMode PastPerformanceMode
	Adjustments         []string
}

// DefaultSettings returns the defaults: 70% coverage threshold, factor 1,
// neutral 0, re-normalization on, 20-shot low-sample threshold.
func DefaultSettings() Settings {
	return Settings{
		CoverageThreshold:   DefaultCoverageThreshold,
		ConfidenceFactor:    DefaultConfidenceFactor,
		Renormalize:         true,
		LowSampleShots:      DefaultLowSampleShots,
		Normalization:       ZScore,
		PastPerformanceMode: SignAware,
		Adjustments:         []string{StepConfidence, StepPastPerformance},
	}
}

// Validate checks that every setting is usable.
func (s Settings) Validate() error {
	switch {
	case !(s.CoverageThreshold > 0 && s.CoverageThreshold <= 1):
		return fmt.Errorf("%w: coverage threshold %v not in (0, 1]", ErrInvalidSettings, s.CoverageThreshold)
	case !(s.ConfidenceFactor > 0) || math.IsInf(s.ConfidenceFactor, 0):
		return fmt.Errorf("%w: confidence factor %v", ErrInvalidSettings, s.ConfidenceFactor)
	case math.IsNaN(s.Neutral) || math.IsInf(s.Neutral, 0):
		return fmt.Errorf("%w: neutral %v", ErrInvalidSettings, s.Neutral)
	case s.LowSampleShots < 0:
		return fmt.Errorf("%w: low sample shots %d", ErrInvalidSettings, s.LowSampleShots)
	}
	switch s.Normalization {
	case ZScore, Robust:
	default:
		return fmt.Errorf("%w: normalization %q", ErrInvalidSettings, s.Normalization)
	}
	switch s.PastPerformanceMode {
	case SignAware, RawMultiply:
	default:
		return fmt.Errorf("%w: past performance mode %q", ErrInvalidSettings, s.PastPerformanceMode)
	}
	return nil
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithSettings replaces all settings at once.
func WithSettings(s Settings) Option {
	return func(e *Engine) {
		s.Adjustments = append([]string(nil), s.Adjustments...)
		e.settings = s
	}
}

// WithCoverageThreshold sets the coverage below which scores are blended
// toward neutral.
func WithCoverageThreshold(t float64) Option {
	return func(e *Engine) { e.settings.CoverageThreshold = t }
}

// WithConfidenceFactor sets the multiplier applied at or above the
// coverage threshold.
func WithConfidenceFactor(f float64) Option {
	return func(e *Engine) { e.settings.ConfidenceFactor = f }
}

// WithNeutral sets the score that represents the field average.
func WithNeutral(v float64) Option {
	return func(e *Engine) { e.settings.Neutral = v }
}

// WithRenormalize toggles re-normalizing group weights over the metrics
// that are present. When off, missing metrics contribute zero.
func WithRenormalize(on bool) Option {
	return func(e *Engine) { e.settings.Renormalize = on }
}

// WithLowSampleShots sets the approach shot count below which a bucket's
// metrics are treated as no data. Zero disables suppression.
func WithLowSampleShots(n int) Option {
	return func(e *Engine) { e.settings.LowSampleShots = n }
}

// WithNormalization selects the field normalization method.
func WithNormalization(n Normalization) Option {
	return func(e *Engine) { e.settings.Normalization = n }
}

// WithAdjustments sets the order of the adjustment pipeline by step name.
func WithAdjustments(steps ...string) Option {
	return func(e *Engine) { e.settings.Adjustments = append([]string(nil), steps...) }
}

// WithPastPerformance supplies per-competitor multipliers. Competitors
// without an entry get 1.
func WithPastPerformance(multipliers map[int64]float64, mode PastPerformanceMode) Option {
	return func(e *Engine) {
		e.multipliers = make(map[int64]float64, len(multipliers))
		for id, m := range multipliers {
			e.multipliers[id] = m
		}
		if mode != "" {
			e.settings.PastPerformanceMode = mode
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}
