package validation

import (
	"fmt"
	"strings"
)

// Strength is the qualitative verdict on a ranking's predictive power.
type Strength string

const (
	Strong           Strength = "strong"
	Moderate         Strength = "moderate"
	Fair             Strength = "fair"
	Weak             Strength = "weak"
	Inverse          Strength = "inverse"
	InsufficientData Strength = "insufficient_data"
)

// verdicts is checked top to bottom against the Spearman correlation.
var verdicts = []struct {
	min      float64
	strength Strength
	phrase   string
}{
	{0.7, Strong, "Strong predictive signal"},
	{0.5, Moderate, "Moderate predictive signal"},
	{0.3, Fair, "Fair predictive signal"},
	{0, Weak, "Weak predictive signal"},
}

func verdict(spearman Stat) (Strength, string) {
	if !spearman.Defined {
		return InsufficientData, "Insufficient data"
	}
	for _, v := range verdicts {
		if spearman.Value >= v.min {
			return v.strength, v.phrase
		}
	}
	return Inverse, "Inverse signal"
}

func summarize(r Report) string {
	_, phrase := verdict(r.Spearman)
	if !r.Spearman.Defined {
		return fmt.Sprintf("%s: %d matched finisher(s), at least 2 with distinct positions are needed", phrase, r.Matched)
	}

	parts := []string{fmt.Sprintf("%s: Spearman %.2f over %d finishers", phrase, r.Spearman.Value, r.Matched)}
	if r.MAE.Defined {
		parts = append(parts, fmt.Sprintf("mean absolute error %.1f positions", r.MAE.Value))
	}
	for _, h := range r.HitRates {
		if h.N == 10 && h.Rate.Defined {
			parts = append(parts, fmt.Sprintf("top-10 hit rate %.0f%%", h.Rate.Value*100))
		}
	}
	return strings.Join(parts, "; ")
}
