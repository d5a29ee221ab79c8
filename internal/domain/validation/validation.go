// Package validation measures how well a ranking predicted realized
// tournament finishes.
package validation

import (
	"fmt"
	"sort"

	"github.com/okian/fairway/internal/domain/model"
)

// DefaultTopN are the cut-offs hit rates are reported for.
var DefaultTopN = []int{5, 10, 20, 50}

// HitRate is the share of a ranking's top-N that finished in the top N.
type HitRate struct {
	N          int  `json:"n"`
	Hits       int  `json:"hits"`
	Considered int  `json:"considered"` // matched competitors ranked in the top N
	Rate       Stat `json:"rate"`
}

// Report is the outcome of validating one ranking against one event.
type Report struct {
	EventID   string    `json:"event_id"`
	Predicted int       `json:"predicted"`
	Results   int       `json:"results"`
	Matched   int       `json:"matched"`
	Excluded  int       `json:"excluded"`  // results without a numeric finish
	Unmatched int       `json:"unmatched"` // ranked competitors without a finish
	Pearson   Stat      `json:"pearson"`
	Spearman  Stat      `json:"spearman"`
	RMSE      Stat      `json:"rmse"`
	MAE       Stat      `json:"mae"`
	HitRates  []HitRate `json:"hit_rates"`
	Strength  Strength  `json:"strength"`
	Summary   string    `json:"summary"`
}

// HitRate returns the hit rate for n, if it was computed.
func (r Report) HitRate(n int) (HitRate, bool) {
	for _, h := range r.HitRates {
		if h.N == n {
			return h, true
		}
	}
	return HitRate{}, false
}

// Option configures Validate.
type Option func(*settings)

type settings struct {
	topN []int
}

// WithTopN overrides the hit-rate cut-offs.
func WithTopN(ns ...int) Option {
	return func(s *settings) {
		s.topN = append([]int(nil), ns...)
	}
}

type pair struct {
	predicted int
	actual    int
}

// Validate compares ranking with results. Only results with a numeric
// finish are used; CUT/WD/DQ and similar are excluded, as are ranked
// competitors missing from results. Statistics that cannot be computed are
// reported as undefined, never as 0.
func Validate(eventID string, ranking []model.RankingEntry, results []model.Result, opts ...Option) (Report, error) {
	s := settings{topN: DefaultTopN}
	for _, opt := range opts {
		opt(&s)
	}
	for _, n := range s.topN {
		if n <= 0 {
			return Report{}, fmt.Errorf("%w: top-N cut-off %d", ErrInvalidInput, n)
		}
	}
	if len(ranking) == 0 {
		return Report{}, fmt.Errorf("%w: ranking", ErrMissingInput)
	}
	if results == nil {
		return Report{}, fmt.Errorf("%w: results", ErrMissingInput)
	}

	finish := make(map[int64]int, len(results))
	rep := Report{EventID: eventID, Predicted: len(ranking), Results: len(results)}
	seen := make(map[int64]bool, len(results))
	for _, r := range results {
		if seen[r.CompetitorID] {
			return Report{}, fmt.Errorf("%w: result for competitor %d", ErrDuplicateCompetitor, r.CompetitorID)
		}
		seen[r.CompetitorID] = true
		if !r.Finish.Finished() {
			rep.Excluded++
			continue
		}
		finish[r.CompetitorID] = r.Finish.Position
	}

	ranks, err := predictedRanks(ranking)
	if err != nil {
		return Report{}, err
	}
	ranked := make(map[int64]bool, len(ranking))
	pairs := make([]pair, 0, len(ranking))
	for i, e := range ranking {
		if ranked[e.CompetitorID] {
			return Report{}, fmt.Errorf("%w: ranking entry for competitor %d", ErrDuplicateCompetitor, e.CompetitorID)
		}
		ranked[e.CompetitorID] = true
		pos, ok := finish[e.CompetitorID]
		if !ok {
			rep.Unmatched++
			continue
		}
		pairs = append(pairs, pair{predicted: ranks[i], actual: pos})
	}
	rep.Matched = len(pairs)

	// order by predicted rank so the statistics do not depend on input order
	sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].predicted < pairs[j].predicted })
	pred := make([]float64, len(pairs))
	act := make([]float64, len(pairs))
	for i, p := range pairs {
		pred[i] = float64(p.predicted)
		act[i] = float64(p.actual)
	}

	rep.Pearson = pearson(pred, act)
	rep.Spearman = spearman(pred, act)
	rep.RMSE, rep.MAE = rmseMAE(pred, act)
	rep.HitRates = hitRates(pairs, s.topN)
	rep.Strength, _ = verdict(rep.Spearman)
	rep.Summary = summarize(rep)
	return rep, nil
}

// predictedRanks returns the rank of every entry. When no entry carries a
// rank, ranks are derived from scores, highest first, ties in input order.
// Otherwise every rank must be positive and unique.
func predictedRanks(ranking []model.RankingEntry) ([]int, error) {
	ranks := make([]int, len(ranking))
	unranked := true
	for _, e := range ranking {
		if e.Rank != 0 {
			unranked = false
			break
		}
	}
	if unranked {
		order := make([]int, len(ranking))
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(a, b int) bool {
			return ranking[order[a]].Score > ranking[order[b]].Score
		})
		for r, i := range order {
			ranks[i] = r + 1
		}
		return ranks, nil
	}

	seen := make(map[int]int64, len(ranking))
	for i, e := range ranking {
		if e.Rank < 1 {
			return nil, fmt.Errorf("%w: competitor %d has rank %d", ErrInvalidInput, e.CompetitorID, e.Rank)
		}
		if other, ok := seen[e.Rank]; ok {
			return nil, fmt.Errorf("%w: competitors %d and %d share rank %d", ErrInvalidInput, other, e.CompetitorID, e.Rank)
		}
		seen[e.Rank] = e.CompetitorID
		ranks[i] = e.Rank
	}
	return ranks, nil
}

func hitRates(pairs []pair, topN []int) []HitRate {
	out := make([]HitRate, 0, len(topN))
	for _, n := range topN {
		h := HitRate{N: n}
		for _, p := range pairs {
			if p.predicted > n {
				continue
			}
			h.Considered++
			if p.actual <= n {
				h.Hits++
			}
		}
		if h.Considered > 0 {
			h.Rate = defined(float64(h.Hits) / float64(h.Considered))
		}
		out = append(out, h)
	}
	return out
}
