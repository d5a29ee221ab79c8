package optimizer

import (
	"fmt"
	"math"

	"github.com/okian/fairway/internal/domain/validation"
	"github.com/okian/fairway/internal/domain/weights"
)

// Blend weighs the three validation signals that make up fitness.
type Blend struct {
	Correlation float64 `json:"correlation" koanf:"correlation"`
	Error       float64 `json:"error" koanf:"error"`
	HitRate     float64 `json:"hit_rate" koanf:"hit_rate"`
}

// DefaultBlend is the blend used when none is configured.
var DefaultBlend = Blend{Correlation: 0.5, Error: 0.2, HitRate: 0.3}

func (b Blend) validate() error {
	for _, w := range []float64{b.Correlation, b.Error, b.HitRate} {
		if math.IsNaN(w) || w < 0 {
			return fmt.Errorf("%w: blend weight %v", ErrInvalidSettings, w)
		}
	}
	if b.Correlation+b.Error+b.HitRate == 0 {
		return fmt.Errorf("%w: blend weights are all zero", ErrInvalidSettings)
	}
	return nil
}

// Evaluation is a weight configuration together with how it validated.
type Evaluation struct {
	Config  weights.Config    `json:"config"`
	Report  validation.Report `json:"report"`
	Fitness float64           `json:"fitness"`
	Defined bool              `json:"defined"`
}

// Fitness blends Spearman correlation, RMSE scaled by the number of matched
// finishers and the mean of the defined top-N hit rates. It is undefined
// when the correlation is.
func Fitness(r validation.Report, b Blend) (float64, bool) {
	if !r.Spearman.Defined {
		return 0, false
	}
	errTerm := 0.0
	if r.RMSE.Defined && r.Matched > 0 {
		errTerm = clamp(1-r.RMSE.Value/float64(r.Matched), 0, 1)
	}
	hits, n := 0.0, 0
	for _, h := range r.HitRates {
		if h.Rate.Defined {
			hits += h.Rate.Value
			n++
		}
	}
	if n > 0 {
		hits /= float64(n)
	}
	return b.Correlation*r.Spearman.Value + b.Error*errTerm + b.HitRate*hits, true
}

// Comparison is the outcome of weighing a candidate against a baseline.
type Comparison struct {
	Winner      Evaluation `json:"winner"`
	Baseline    bool       `json:"baseline"` // the baseline was kept
	Improvement float64    `json:"improvement"`
}

// Compare prefers candidate over baseline only when it is better by more
// than margin. Ties and undefined candidates keep the baseline.
func Compare(baseline, candidate Evaluation, margin float64) Comparison {
	switch {
	case !candidate.Defined:
		return Comparison{Winner: baseline, Baseline: true}
	case !baseline.Defined:
		return Comparison{Winner: candidate}
	}
	diff := candidate.Fitness - baseline.Fitness
	if diff > margin {
		return Comparison{Winner: candidate, Improvement: diff}
	}
	return Comparison{Winner: baseline, Baseline: true, Improvement: diff}
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}
