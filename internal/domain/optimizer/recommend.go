package optimizer

import (
	"sort"

	"github.com/okian/fairway/internal/domain/weights"
)

// Recommendation is the final pick across several seeded runs.
type Recommendation struct {
	Config          weights.Config `json:"config"`
	UseBaseline     bool           `json:"use_baseline"`
	Seed            *int64         `json:"seed,omitempty"` // run the config came from
	Fitness         float64        `json:"fitness"`
	BaselineFitness float64        `json:"baseline_fitness"`
	Improvement     float64        `json:"improvement"`
	Margin          float64        `json:"margin"`
	Runs            []RunResult    `json:"runs"` // best first
}

// Recommend ranks runs by fitness, highest first with ties broken by seed,
// and picks the best run with a defined report only if it beats the
// baseline by more than margin. Otherwise the baseline is recommended.
// Runs without a defined report stay listed but are never picked.
func Recommend(baseline Evaluation, runs []RunResult, margin float64) Recommendation {
	ranked := append([]RunResult(nil), runs...)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Fitness != ranked[j].Fitness {
			return ranked[i].Fitness > ranked[j].Fitness
		}
		return ranked[i].Seed < ranked[j].Seed
	})

	rec := Recommendation{
		Config:          baseline.Config,
		UseBaseline:     true,
		Fitness:         baseline.Fitness,
		BaselineFitness: baseline.Fitness,
		Margin:          margin,
		Runs:            ranked,
	}
	top, ok := bestDefined(ranked)
	if !ok {
		return rec
	}
	cmp := Compare(baseline, Evaluation{Config: top.Config, Report: top.Report, Fitness: top.Fitness, Defined: top.Report.Spearman.Defined}, margin)
	rec.Improvement = cmp.Improvement
	if cmp.Baseline {
		return rec
	}
	seed := top.Seed
	rec.Config = top.Config
	rec.UseBaseline = false
	rec.Seed = &seed
	rec.Fitness = top.Fitness
	return rec
}

func bestDefined(ranked []RunResult) (RunResult, bool) {
	for _, r := range ranked {
		if r.Report.Spearman.Defined {
			return r, true
		}
	}
	return RunResult{}, false
}
