// Package optimizer searches the weight space around a baseline template for
// a configuration that validates better against one event's results.
//
// A run is a small state machine: seed, then repeatedly perturb, evaluate
// and accept or reject, until the iteration or time budget runs out. Every
// iteration draws from its own generator derived from the run seed and the
// iteration number, so a run interrupted and resumed from its checkpoint
// ends exactly where an uninterrupted run would.
package optimizer

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/okian/fairway/internal/domain/model"
	"github.com/okian/fairway/internal/domain/scoring"
	"github.com/okian/fairway/internal/domain/validation"
	"github.com/okian/fairway/internal/domain/weights"
	"github.com/okian/fairway/pkg/logger"
)

// Problem is what the optimizer searches over.
type Problem struct {
	EventID  string
	Baseline weights.Config
	Field    []model.Bundle
	Results  []model.Result
}

// Checkpoint is the state needed to continue an interrupted run.
type Checkpoint struct {
	Seed        int64          `json:"seed"`
	Iteration   int            `json:"iteration"` // next iteration to run
	Best        weights.Config `json:"best"`
	BestFitness float64        `json:"best_fitness"`
	Accepted    int            `json:"accepted"`
}

// RunResult is the outcome of one seeded run.
type RunResult struct {
	Seed            int64             `json:"seed"`
	Config          weights.Config    `json:"config"`
	Report          validation.Report `json:"report"`
	Fitness         float64           `json:"fitness"`
	BaselineFitness float64           `json:"baseline_fitness"`
	Improvement     float64           `json:"improvement"`
	Recommended     bool              `json:"recommended"` // improvement beats the margin
	Iterations      int               `json:"iterations"`
	Accepted        int               `json:"accepted"`
	Interrupted     bool              `json:"interrupted"`
	Checkpoint      *Checkpoint       `json:"checkpoint,omitempty"`
}

// Optimizer runs seeded searches for one Problem. Runs share no mutable
// state, so an Optimizer may serve concurrent runs.
type Optimizer struct {
	problem  Problem
	baseline Evaluation

	iterations     int
	timeBudget     time.Duration
	now            func() time.Time
	groupJitter    float64
	metricJitter   float64
	minWeight      float64
	margin         float64
	anchor         Anchor
	blend          Blend
	scoringOpts    []scoring.Option
	validationOpts []validation.Option
	log            logger.Logger
}

// New validates the problem and evaluates the unmodified baseline.
func New(ctx context.Context, p Problem, opts ...Option) (*Optimizer, error) {
	o := &Optimizer{
		iterations:   DefaultIterations,
		now:          time.Now,
		groupJitter:  DefaultGroupJitter,
		metricJitter: DefaultMetricJitter,
		minWeight:    DefaultMinWeight,
		margin:       DefaultMargin,
		anchor:       AnchorBaseline,
		blend:        DefaultBlend,
		log:          logger.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if err := o.validate(); err != nil {
		return nil, err
	}
	if len(p.Field) == 0 {
		return nil, fmt.Errorf("%w: field", ErrMissingInput)
	}
	if p.Results == nil {
		return nil, fmt.Errorf("%w: results", ErrMissingInput)
	}
	base, err := weights.Normalize(p.Baseline)
	if err != nil {
		return nil, err
	}
	p.Baseline = base
	o.problem = p

	o.baseline, err = o.Evaluate(ctx, base)
	if err != nil {
		return nil, err
	}
	if !o.baseline.Defined {
		return nil, fmt.Errorf("%w: %s over %d matched finishers", ErrUndefinedFitness, base.Key(), o.baseline.Report.Matched)
	}
	return o, nil
}

// Baseline is the evaluation of the unmodified baseline.
func (o *Optimizer) Baseline() Evaluation { return o.baseline }

// Margin is the materiality margin in effect.
func (o *Optimizer) Margin() float64 { return o.margin }

// Evaluate scores the whole field with c and validates the ranking.
func (o *Optimizer) Evaluate(ctx context.Context, c weights.Config) (Evaluation, error) {
	engine, err := scoring.NewEngine(c, o.problem.Field, o.scoringOpts...)
	if err != nil {
		return Evaluation{}, err
	}
	ranking, _, err := engine.Rank(ctx, o.problem.Field)
	if err != nil {
		return Evaluation{}, err
	}
	rep, err := validation.Validate(o.problem.EventID, ranking, o.problem.Results, o.validationOpts...)
	if err != nil {
		return Evaluation{}, err
	}
	fit, ok := Fitness(rep, o.blend)
	return Evaluation{Config: c, Report: rep, Fitness: fit, Defined: ok}, nil
}

// Run starts a fresh search from seed.
func (o *Optimizer) Run(ctx context.Context, seed int64) (RunResult, error) {
	return o.Resume(ctx, Checkpoint{
		Seed:        seed,
		Best:        o.baseline.Config,
		BestFitness: o.baseline.Fitness,
	})
}

// Resume continues a run from cp. Cancellation of ctx and an exhausted time
// budget are not errors: the result is marked Interrupted and carries a
// checkpoint to resume from.
func (o *Optimizer) Resume(ctx context.Context, cp Checkpoint) (RunResult, error) {
	if cp.Best.ID != o.baseline.Config.ID || cp.Iteration < 0 {
		return RunResult{}, fmt.Errorf("%w: seed %d best %s", ErrSeedMismatch, cp.Seed, cp.Best.Key())
	}

	best := o.baseline
	if cp.Iteration > 0 {
		ev, err := o.Evaluate(ctx, cp.Best)
		if err != nil {
			return RunResult{}, err
		}
		best = ev
	}

	start := o.now()
	accepted := cp.Accepted
	it := cp.Iteration
	interrupted := false
	for ; it < o.iterations; it++ {
		if ctx.Err() != nil || (o.timeBudget > 0 && o.now().Sub(start) >= o.timeBudget) {
			interrupted = true
			break
		}

		anchor := o.baseline.Config
		if o.anchor == AnchorBest {
			anchor = best.Config
		}
		rng := rand.New(rand.NewSource(splitmix64(cp.Seed, it)))
		candidate := perturb(anchor, rng, o.groupJitter, o.metricJitter, o.minWeight)

		ev, err := o.Evaluate(ctx, candidate)
		if err != nil {
			return RunResult{}, fmt.Errorf("seed %d iteration %d: %w", cp.Seed, it, err)
		}
		if ev.Defined && ev.Fitness > best.Fitness {
			best = ev
			accepted++
			o.log.Debug(ctx, "optimizer accepted candidate",
				logger.Int64("seed", cp.Seed),
				logger.Int("iteration", it),
				logger.Float64("fitness", ev.Fitness),
			)
		}
	}

	res := RunResult{
		Seed:            cp.Seed,
		Config:          best.Config,
		Report:          best.Report,
		Fitness:         best.Fitness,
		BaselineFitness: o.baseline.Fitness,
		Iterations:      it,
		Accepted:        accepted,
		Interrupted:     interrupted,
	}
	cmp := Compare(o.baseline, best, o.margin)
	res.Improvement = best.Fitness - o.baseline.Fitness
	res.Recommended = !cmp.Baseline
	if interrupted {
		res.Checkpoint = &Checkpoint{
			Seed:        cp.Seed,
			Iteration:   it,
			Best:        best.Config.Clone(),
			BestFitness: best.Fitness,
			Accepted:    accepted,
		}
	}

	o.log.Info(ctx, "optimizer run finished",
		logger.Int64("seed", cp.Seed),
		logger.Int("iterations", it),
		logger.Int("accepted", accepted),
		logger.Float64("fitness", best.Fitness),
		logger.Float64("baseline_fitness", o.baseline.Fitness),
		logger.Bool("interrupted", interrupted),
	)
	return res, nil
}
