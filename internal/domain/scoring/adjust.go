package scoring

import (
	"fmt"
	"math"
)

// AdjustmentInput is what an adjustment step may look at besides the
// deviation itself.
type AdjustmentInput struct {
	CompetitorID int64
	Coverage     float64
}

// Adjustment is one step of the post-scoring pipeline. Steps act on the
// deviation from the neutral score, so a deviation of 0 stays neutral.
type Adjustment interface {
	Name() string
	Apply(deviation float64, in AdjustmentInput) float64
}

// confidence blends toward neutral below the coverage threshold and applies
// the confidence factor. The blend reaches the full factor exactly at the
// threshold, so the step is continuous in coverage.
type confidence struct {
	threshold float64
	factor    float64
}

func (confidence) Name() string { return StepConfidence }

func (c confidence) Apply(dev float64, in AdjustmentInput) float64 {
	if in.Coverage < c.threshold {
		return dev * c.factor * (in.Coverage / c.threshold)
	}
	return dev * c.factor
}

type pastPerformance struct {
	multipliers map[int64]float64
	mode        PastPerformanceMode
}

func (pastPerformance) Name() string { return StepPastPerformance }

func (p pastPerformance) Apply(dev float64, in AdjustmentInput) float64 {
	m, ok := p.multipliers[in.CompetitorID]
	if !ok || m == 1 {
		return dev
	}
	if p.mode == SignAware && dev < 0 {
		return dev / m
	}
	return dev * m
}

func buildPipeline(s Settings, multipliers map[int64]float64) ([]Adjustment, error) {
	for id, m := range multipliers {
		if !(m > 0 && m <= maxMultiplier) || math.IsInf(m, 0) {
			return nil, fmt.Errorf("%w: competitor %d multiplier %v not in (0, %v]", ErrInvalidMultiplier, id, m, maxMultiplier)
		}
	}

	seen := make(map[string]bool, len(s.Adjustments))
	steps := make([]Adjustment, 0, len(s.Adjustments))
	for _, name := range s.Adjustments {
		if seen[name] {
			return nil, fmt.Errorf("%w: %q listed twice", ErrUnknownAdjustment, name)
		}
		seen[name] = true
		switch name {
		case StepConfidence:
			steps = append(steps, confidence{threshold: s.CoverageThreshold, factor: s.ConfidenceFactor})
		case StepPastPerformance:
			steps = append(steps, pastPerformance{multipliers: multipliers, mode: s.PastPerformanceMode})
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownAdjustment, name)
		}
	}
	return steps, nil
}
