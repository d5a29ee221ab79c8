// Package scoring turns competitor metric bundles into composite predictive
// scores using a two-level weight configuration.
//
// The pipeline per competitor is: standardize each expected metric against
// the field, combine members of a group by their within-group weights,
// combine groups by their group weights, compute coverage, then run the
// adjustment pipeline on the deviation from the neutral score.
package scoring

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/okian/fairway/internal/domain/metric"
	"github.com/okian/fairway/internal/domain/model"
	"github.com/okian/fairway/internal/domain/weights"
	"github.com/okian/fairway/pkg/logger"
)

// GroupScore is the contribution of one group.
type GroupScore struct {
	Name     string  `json:"name"`
	Score    float64 `json:"score"`
	Present  int     `json:"present"`
	Expected int     `json:"expected"`
}

// Result contains the computed score for a competitor.
type Result struct {
	CompetitorID int64        `json:"competitor_id"`
	Name         string       `json:"name,omitempty"`
	Score        float64      `json:"score"`
	Deviation    float64      `json:"deviation"` // weighted sum before adjustments
	Coverage     float64      `json:"coverage"`
	Present      int          `json:"present"`
	Expected     int          `json:"expected"`
	Groups       []GroupScore `json:"groups"`
}

// Scorer computes a score from a bundle.
type Scorer interface {
	// Score computes a score, honoring ctx for cancellation.
	Score(ctx context.Context, b model.Bundle) (Result, error)
}

// Engine implements Scorer for one weight configuration and one field.
// It holds no mutable state after construction and is safe for concurrent
// use.
type Engine struct {
	cfg         weights.Config
	settings    Settings
	expected    []metric.ID
	norm        *normalizer
	pipeline    []Adjustment
	multipliers map[int64]float64
	logger      logger.Logger
}

// NewEngine validates cfg and computes the field statistics used for
// normalization. field is the set of bundles the scores are relative to;
// usually the same bundles that will be ranked.
func NewEngine(cfg weights.Config, field []model.Bundle, opts ...Option) (*Engine, error) {
	e := &Engine{
		settings: DefaultSettings(),
		logger:   logger.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.settings.Validate(); err != nil {
		return nil, err
	}

	norm, err := weights.Normalize(cfg)
	if err != nil {
		return nil, err
	}
	e.cfg = norm
	e.expected = norm.ExpectedMetrics()

	e.pipeline, err = buildPipeline(e.settings, e.multipliers)
	if err != nil {
		return nil, err
	}
	e.norm = newNormalizer(e.settings.Normalization, e.expected, field, e.value)
	return e, nil
}

// Config returns the normalized configuration the engine scores with.
func (e *Engine) Config() weights.Config { return e.cfg }

// value returns a bundle value the engine trusts: present, and for approach
// metrics backed by enough shots.
func (e *Engine) value(b model.Bundle, id metric.ID) (float64, bool) {
	v, ok := b.Value(id)
	if !ok {
		return 0, false
	}
	if id.IsApproach() && b.Samples(id.Bucket()) < e.settings.LowSampleShots {
		return 0, false
	}
	return v, true
}

// Score computes the composite score of b.
func (e *Engine) Score(ctx context.Context, b model.Bundle) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("context cancelled: %w", err)
	}

	res := Result{
		CompetitorID: b.CompetitorID,
		Name:         b.Name,
		Expected:     len(e.expected),
		Groups:       make([]GroupScore, 0, len(e.cfg.Groups)),
	}

	for _, id := range e.expected {
		if _, ok := e.value(b, id); ok {
			res.Present++
		}
	}
	if res.Expected > 0 {
		res.Coverage = float64(res.Present) / float64(res.Expected)
	}

	for _, g := range e.cfg.Groups {
		gs := GroupScore{Name: g.Name}
		if g.Weight <= 0 {
			res.Groups = append(res.Groups, gs)
			continue
		}
		var num, den float64
		for _, m := range g.Metrics {
			gs.Expected++
			v, ok := e.value(b, m.Metric)
			if !ok {
				continue
			}
			gs.Present++
			num += m.Weight * e.norm.z(m.Metric, v)
			den += m.Weight
		}
		if gs.Present > 0 {
			if e.settings.Renormalize {
				gs.Score = num / den
			} else {
				gs.Score = num
			}
		}
		res.Deviation += g.Weight * gs.Score
		res.Groups = append(res.Groups, gs)
	}

	if res.Present == 0 {
		res.Score = e.settings.Neutral
		return res, nil
	}

	dev := res.Deviation
	in := AdjustmentInput{CompetitorID: b.CompetitorID, Coverage: res.Coverage}
	for _, step := range e.pipeline {
		dev = step.Apply(dev, in)
	}
	res.Score = e.settings.Neutral + dev
	if math.IsNaN(res.Score) || math.IsInf(res.Score, 0) {
		return Result{}, fmt.Errorf("%w: competitor %d", ErrNonFiniteScore, b.CompetitorID)
	}
	return res, nil
}

// Rank scores every bundle and orders them by score, highest first. Ties
// keep the input order. Ranks start at 1.
func (e *Engine) Rank(ctx context.Context, field []model.Bundle) ([]model.RankingEntry, []Result, error) {
	results := make([]Result, 0, len(field))
	for _, b := range field {
		r, err := e.Score(ctx, b)
		if err != nil {
			return nil, nil, err
		}
		results = append(results, r)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	entries := make([]model.RankingEntry, len(results))
	lowCoverage := 0
	for i, r := range results {
		entries[i] = model.RankingEntry{
			CompetitorID: r.CompetitorID,
			Name:         r.Name,
			Score:        r.Score,
			Rank:         i + 1,
			Coverage:     r.Coverage,
		}
		if r.Coverage < e.settings.CoverageThreshold {
			lowCoverage++
		}
	}

	e.logger.Debug(ctx, "ranked field",
		logger.String("config", e.cfg.Key()),
		logger.Int("competitors", len(entries)),
		logger.Int("low_coverage", lowCoverage),
	)
	return entries, results, nil
}

// Rank is a convenience that builds an engine over field and ranks it.
func Rank(ctx context.Context, cfg weights.Config, field []model.Bundle, opts ...Option) ([]model.RankingEntry, error) {
	e, err := NewEngine(cfg, field, opts...)
	if err != nil {
		return nil, err
	}
	entries, _, err := e.Rank(ctx, field)
	return entries, err
}
