package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/okian/fairway/internal/adapters/mq/queue"
	"github.com/okian/fairway/internal/adapters/mq/worker"
	"github.com/okian/fairway/internal/adapters/repository"
	"github.com/okian/fairway/internal/domain/aggregate"
	"github.com/okian/fairway/internal/domain/model"
	"github.com/okian/fairway/internal/domain/optimizer"
	"github.com/okian/fairway/internal/domain/templates"
	"github.com/okian/fairway/internal/domain/validation"
	"github.com/okian/fairway/internal/domain/weights"
	"github.com/okian/fairway/pkg/logger"
	"github.com/okian/fairway/pkg/metrics"
)

// OptimizeRequest asks for a weight search against one event's results.
// Seeds default to 1..N with N from WithSeeds. Checkpoints resume runs that
// an earlier request left interrupted; their seeds are added when missing.
type OptimizeRequest struct {
	RequestID       string                 `json:"request_id,omitempty"`
	EventID         string                 `json:"event_id"`
	Template        templates.Query        `json:"template"`
	Weights         *weights.Config        `json:"weights,omitempty"`
	Rounds          []model.RoundRow       `json:"rounds"`
	Approach        []model.ApproachRow    `json:"approach"`
	Results         []model.Result         `json:"results"`
	PastPerformance map[int64]float64      `json:"past_performance,omitempty"`
	Seeds           []int64                `json:"seeds,omitempty"`
	Checkpoints     []optimizer.Checkpoint `json:"checkpoints,omitempty"`
}

// SeedFailure is a seed whose run returned an error.
type SeedFailure struct {
	Seed  int64  `json:"seed"`
	Error string `json:"error"`
}

// OptimizeResponse is a stored recommendation. Checkpoints lists the runs
// that were interrupted, ready to be sent back in a later request.
type OptimizeResponse struct {
	RunID          string                   `json:"run_id"`
	EventID        string                   `json:"event_id"`
	Template       TemplateRef              `json:"template"`
	Recommendation optimizer.Recommendation `json:"recommendation"`
	Checkpoints    []optimizer.Checkpoint   `json:"checkpoints,omitempty"`
	Failed         []SeedFailure            `json:"failed,omitempty"`
	CreatedAt      time.Time                `json:"created_at"`
}

func (s *Service) seedList(req OptimizeRequest) ([]int64, map[int64]optimizer.Checkpoint, error) {
	seeds := append([]int64(nil), req.Seeds...)
	if len(seeds) == 0 && len(req.Checkpoints) == 0 {
		for i := 1; i <= s.seeds; i++ {
			seeds = append(seeds, int64(i))
		}
	}
	seen := make(map[int64]bool, len(seeds))
	for _, seed := range seeds {
		if seen[seed] {
			return nil, nil, fmt.Errorf("%w: seed %d listed twice", ErrInvalidRequest, seed)
		}
		seen[seed] = true
	}

	cps := make(map[int64]optimizer.Checkpoint, len(req.Checkpoints))
	for _, cp := range req.Checkpoints {
		if _, dup := cps[cp.Seed]; dup {
			return nil, nil, fmt.Errorf("%w: two checkpoints for seed %d", ErrInvalidRequest, cp.Seed)
		}
		cps[cp.Seed] = cp
		if !seen[cp.Seed] {
			seen[cp.Seed] = true
			seeds = append(seeds, cp.Seed)
		}
	}
	if len(seeds) > s.queueSize {
		return nil, nil, fmt.Errorf("%w: %d seeds exceed the queue size %d", ErrInvalidRequest, len(seeds), s.queueSize)
	}
	return seeds, cps, nil
}

// Optimize runs one seeded search per seed on the worker pool and stores the
// recommendation. Cancelling ctx interrupts the runs; the response then
// carries checkpoints instead of an error.
func (s *Service) Optimize(ctx context.Context, req OptimizeRequest) (OptimizeResponse, error) {
	if err := s.ready(); err != nil {
		return OptimizeResponse{}, err
	}
	seeds, cps, err := s.seedList(req)
	if err != nil {
		return OptimizeResponse{}, err
	}

	agg, err := aggregate.New(aggregate.WithLogger(s.logger)).Aggregate(ctx, req.Rounds, req.Approach)
	if err != nil {
		return OptimizeResponse{}, err
	}
	cfg, strategy, err := s.resolve(ctx, req.Template, req.Weights)
	if err != nil {
		return OptimizeResponse{}, err
	}

	opts := append([]optimizer.Option(nil), s.optimizerOpts...)
	opts = append(opts,
		optimizer.WithScoringOptions(s.scoringOptions(req.PastPerformance)...),
		optimizer.WithValidationOptions(validation.WithTopN(s.topN...)),
		optimizer.WithLogger(s.logger.Named("optimizer")),
	)
	// the baseline is evaluated even for a cancelled request; the runs honor ctx
	opt, err := optimizer.New(context.WithoutCancel(ctx), optimizer.Problem{
		EventID:  req.EventID,
		Baseline: cfg,
		Field:    agg.Bundles,
		Results:  req.Results,
	}, opts...)
	if err != nil {
		return OptimizeResponse{}, err
	}

	runID := s.newID()
	outcomes, err := s.runSeeds(ctx, runID, opt, seeds, cps)
	if err != nil {
		return OptimizeResponse{}, err
	}

	resp := OptimizeResponse{
		RunID:     runID,
		EventID:   req.EventID,
		Template:  TemplateRef{ID: cfg.ID, Version: cfg.Version, Strategy: strategy},
		CreatedAt: s.now().UTC(),
	}
	runs := make([]optimizer.RunResult, 0, len(outcomes))
	var firstErr error
	for _, o := range outcomes {
		if o.Err != nil {
			if firstErr == nil {
				firstErr = o.Err
			}
			resp.Failed = append(resp.Failed, SeedFailure{Seed: o.Job.Seed, Error: o.Err.Error()})
			continue
		}
		runs = append(runs, o.Result)
		if o.Result.Checkpoint != nil {
			resp.Checkpoints = append(resp.Checkpoints, *o.Result.Checkpoint)
		}
	}
	if len(runs) == 0 && firstErr != nil {
		return OptimizeResponse{}, firstErr
	}
	resp.Recommendation = optimizer.Recommend(opt.Baseline(), runs, opt.Margin())

	err = s.store.SaveOptimization(ctx, repository.OptimizationRecord{
		Run: repository.Run{
			ID:              runID,
			EventID:         req.EventID,
			TemplateID:      cfg.ID,
			TemplateVersion: cfg.Version,
			Strategy:        string(strategy),
			CreatedAt:       resp.CreatedAt,
		},
		Recommendation: resp.Recommendation,
	})
	if err != nil {
		// a cancelled request still returns its checkpoints
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			return OptimizeResponse{}, err
		}
		s.logger.Warn(ctx, "optimization not stored", logger.String("run_id", runID), logger.Error(err))
	}

	s.logger.Info(ctx, "optimization finished",
		logger.String("run_id", runID),
		logger.String("template", cfg.Key()),
		logger.Int("seeds", len(seeds)),
		logger.Int("interrupted", len(resp.Checkpoints)),
		logger.Int("failed", len(resp.Failed)),
		logger.Bool("use_baseline", resp.Recommendation.UseBaseline),
		logger.Float64("improvement", resp.Recommendation.Improvement),
	)
	return resp, nil
}

// runSeeds queues every seed, drains the queue with a worker pool and
// returns one outcome per seed in seed order. Seeds no worker reached
// before ctx ended come back as interrupted runs at their checkpoint.
func (s *Service) runSeeds(ctx context.Context, runID string, opt *optimizer.Optimizer, seeds []int64, cps map[int64]optimizer.Checkpoint) ([]worker.Outcome, error) {
	q := queue.NewInMemoryQueue(queue.WithCapacity(len(seeds)))
	for i, seed := range seeds {
		if err := q.Enqueue(ctx, queue.Job{RunID: runID, Seed: seed, Index: i}); err != nil {
			_ = q.Close()
			if ctx.Err() != nil {
				break
			}
			return nil, err
		}
	}
	_ = q.Close()

	workers := s.workerCount
	if workers > len(seeds) {
		workers = len(seeds)
	}
	sink := &worker.Collector{}
	pool := worker.NewPool(workers, q, opt, sink, worker.WithCheckpoints(cps), worker.WithLogger(s.logger.Named("worker")))
	pool.Start(ctx)
	pool.Wait()
	metrics.UpdateQueueSize(q.Len())

	outcomes := sink.Outcomes()
	done := make(map[int]bool, len(outcomes))
	for _, o := range outcomes {
		done[o.Job.Index] = true
	}
	base := opt.Baseline()
	for i, seed := range seeds {
		if done[i] {
			continue
		}
		cp, ok := cps[seed]
		if !ok {
			cp = optimizer.Checkpoint{Seed: seed, Best: base.Config.Clone(), BestFitness: base.Fitness}
		}
		outcomes = append(outcomes, worker.Outcome{
			Job: queue.Job{RunID: runID, Seed: seed, Index: i},
			Result: optimizer.RunResult{
				Seed:            seed,
				Config:          cp.Best,
				Fitness:         cp.BestFitness,
				BaselineFitness: base.Fitness,
				Improvement:     cp.BestFitness - base.Fitness,
				Iterations:      cp.Iteration,
				Accepted:        cp.Accepted,
				Interrupted:     true,
				Checkpoint:      &cp,
			},
		})
	}
	sort.SliceStable(outcomes, func(i, j int) bool { return outcomes[i].Job.Index < outcomes[j].Job.Index })
	return outcomes, nil
}
