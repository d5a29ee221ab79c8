// Package aggregate consolidates the per-round and approach feeds into one
// metric bundle per competitor.
package aggregate

import (
	"context"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/okian/fairway/internal/domain/dedupe"
	"github.com/okian/fairway/internal/domain/metric"
	"github.com/okian/fairway/internal/domain/model"
	"github.com/okian/fairway/pkg/logger"
)

// Diagnostics describes what the aggregator dropped or could not use.
type Diagnostics struct {
	RoundRows    int `json:"round_rows"`
	ApproachRows int `json:"approach_rows"`
	NonFinite    int `json:"non_finite"`    // NaN/Inf cells dropped
	InvalidKeys  int `json:"invalid_keys"`  // metric IDs outside the registry
	EmptyBundles int `json:"empty_bundles"` // competitors with no metric data at all
}

// Result is the output of Aggregate. Bundles are ordered by competitor id.
type Result struct {
	Bundles     []model.Bundle
	Diagnostics Diagnostics
}

type accumulator struct {
	names    []string
	values   map[metric.ID][]float64
	rounds   int
	shots    map[metric.Bucket]int
	approach bool
}

func newAccumulator() *accumulator {
	return &accumulator{
		values: make(map[metric.ID][]float64),
		shots:  make(map[metric.Bucket]int),
	}
}

// Aggregator builds bundles. It is stateless between calls and safe for
// concurrent use.
type Aggregator struct {
	logger logger.Logger
}

// New creates an aggregator.
func New(opts ...Option) *Aggregator {
	a := &Aggregator{logger: logger.Default()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Aggregate is a convenience for New().Aggregate.
func Aggregate(ctx context.Context, rounds []model.RoundRow, approach []model.ApproachRow) (Result, error) {
	return New().Aggregate(ctx, rounds, approach)
}

// Aggregate consolidates both feeds. A feed with zero rows is valid; passing
// nil for both means no input was supplied at all and fails.
//
// The output does not depend on row order: per-metric means are computed
// over sorted values and bundles are ordered by competitor id.
func (a *Aggregator) Aggregate(ctx context.Context, rounds []model.RoundRow, approach []model.ApproachRow) (Result, error) {
	if rounds == nil && approach == nil {
		return Result{}, fmt.Errorf("%w: round and approach feeds", ErrMissingInput)
	}

	var diag Diagnostics
	acc := make(map[int64]*accumulator)
	get := func(id int64) *accumulator {
		c, ok := acc[id]
		if !ok {
			c = newAccumulator()
			acc[id] = c
		}
		return c
	}

	seen := dedupe.NewInMemoryDeduper[dedupe.RowKey](dedupe.WithMaxSize(0))
	for _, r := range rounds {
		key := dedupe.RowKey{CompetitorID: r.CompetitorID, EventID: r.EventID, Round: r.Round}
		if seen.SeenAndRecord(key) {
			return Result{}, fmt.Errorf("%w: %s", ErrDuplicateRow, key)
		}
		diag.RoundRows++

		c := get(r.CompetitorID)
		c.rounds++
		if r.Name != "" {
			c.names = append(c.names, r.Name)
		}
		for id, v := range r.Stats {
			if !a.accept(id, v, &diag) {
				continue
			}
			c.values[id] = append(c.values[id], v)
		}
	}

	for _, r := range approach {
		diag.ApproachRows++
		c := get(r.CompetitorID)
		c.approach = true
		if r.Name != "" {
			c.names = append(c.names, r.Name)
		}
		for id, v := range r.Stats {
			if !a.accept(id, v, &diag) {
				continue
			}
			c.values[id] = append(c.values[id], v)
		}
		for b, n := range r.Shots {
			if b == metric.Rounds || !b.Valid() || n < 0 {
				diag.InvalidKeys++
				continue
			}
			c.shots[b] += n
		}
	}

	ids := make([]int64, 0, len(acc))
	for id := range acc {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	bundles := make([]model.Bundle, 0, len(ids))
	for _, id := range ids {
		b := acc[id].bundle(id)
		if !b.HasData() {
			diag.EmptyBundles++
		}
		bundles = append(bundles, b)
	}

	a.logger.Debug(ctx, "aggregated feeds",
		logger.Int("competitors", len(bundles)),
		logger.Int("round_rows", diag.RoundRows),
		logger.Int("approach_rows", diag.ApproachRows),
		logger.Int("non_finite", diag.NonFinite),
		logger.Int("empty_bundles", diag.EmptyBundles),
	)
	return Result{Bundles: bundles, Diagnostics: diag}, nil
}

func (a *Aggregator) accept(id metric.ID, v float64, diag *Diagnostics) bool {
	if !id.Valid() {
		diag.InvalidKeys++
		return false
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		diag.NonFinite++
		return false
	}
	return true
}

func (c *accumulator) bundle(id int64) model.Bundle {
	values := make(map[metric.ID]float64, len(c.values))
	obs := make(map[metric.ID]int, len(c.values))
	for m, vs := range c.values {
		sort.Float64s(vs)
		values[m] = floats.Sum(vs) / float64(len(vs))
		obs[m] = len(vs)
	}

	samples := make(map[metric.Bucket]int, len(c.shots)+1)
	if c.rounds > 0 {
		samples[metric.Rounds] = c.rounds
	}
	for b, n := range c.shots {
		samples[b] = n
	}
	return model.NewBundle(id, displayName(c.names), values, obs, samples)
}

// displayName picks the smallest non-empty name so the choice does not
// depend on row order.
func displayName(names []string) string {
	best := ""
	for _, n := range names {
		if best == "" || n < best {
			best = n
		}
	}
	return best
}
