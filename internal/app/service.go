// Package service provides the core business service behind the HTTP API
// and the CLI: ranking, validation, optimization and template lookup.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/okian/fairway/internal/adapters/repository"
	"github.com/okian/fairway/internal/domain/dedupe"
	"github.com/okian/fairway/internal/domain/model"
	"github.com/okian/fairway/internal/domain/optimizer"
	"github.com/okian/fairway/internal/domain/scoring"
	"github.com/okian/fairway/internal/domain/templates"
	"github.com/okian/fairway/internal/domain/validation"
	"github.com/okian/fairway/internal/domain/weights"
	"github.com/okian/fairway/pkg/logger"
)

// Service defaults.
const (
	defaultSeeds      = 8
	defaultQueueSize  = 1024
	defaultDedupeSize = 50_000
	defaultMaxLimit   = 500
	listRunsLimit     = 100
)

// StrategyInline marks a ranking scored with weights sent in the request.
const StrategyInline templates.Strategy = "inline"

// TemplateRef identifies the weights a run used.
type TemplateRef struct {
	ID       string             `json:"id"`
	Version  int                `json:"version"`
	Strategy templates.Strategy `json:"strategy"`
}

// Service wires the domain engines to storage and the worker pool.
type Service struct {
	mu sync.RWMutex

	store     repository.Store
	templates *templates.Store
	deduper   dedupe.Deduper[string]
	ownsStore bool

	scoring       scoring.Settings
	topN          []int
	optimizerOpts []optimizer.Option
	seeds         int
	workerCount   int
	queueSize     int
	dedupeSize    int
	maxLimit      int

	now   func() time.Time
	newID func() string

	started bool
	logger  logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		scoring:     scoring.DefaultSettings(),
		topN:        validation.DefaultTopN,
		seeds:       defaultSeeds,
		workerCount: runtime.NumCPU(),
		queueSize:   defaultQueueSize,
		dedupeSize:  defaultDedupeSize,
		maxLimit:    defaultMaxLimit,
		now:         time.Now,
		newID:       func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	s.deduper = dedupe.NewInMemoryDeduper[string](dedupe.WithMaxSize(s.dedupeSize))
	return s
}

// Start prepares the stores. It is safe to call more than once.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Default().Named("service")
	}
	if err := s.scoring.Validate(); err != nil {
		return err
	}

	if s.templates == nil {
		ts, err := templates.Load(ctx, templates.WithLogger(s.logger))
		if err != nil {
			return err
		}
		s.templates = ts
	}
	if s.store == nil {
		st, err := repository.Open(ctx, ":memory:", repository.WithLogger(s.logger))
		if err != nil {
			return err
		}
		s.store, s.ownsStore = st, true
	}
	s.started = true
	s.logger.Info(ctx, "fairway service started",
		logger.Int("templates", len(s.templates.List())),
		logger.Int("workers", s.workerCount),
		logger.Int("seeds", s.seeds),
		logger.Int("queueSize", s.queueSize),
	)
	return nil
}

// Stop releases the store if the service opened it.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	if s.ownsStore {
		if err := s.store.Close(); err != nil {
			s.logger.Warn(context.Background(), "closing store", logger.Error(err))
		}
	}
	s.started = false
	s.logger.Info(context.Background(), "fairway service stopped")
}

func (s *Service) ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

// SeenAndRecord reports whether a request id was seen before and records it
// if not.
func (s *Service) SeenAndRecord(_ context.Context, id string) bool {
	return s.deduper.SeenAndRecord(id)
}

// Unrecord forgets a request id so a failed request can be retried.
func (s *Service) Unrecord(_ context.Context, id string) {
	s.deduper.Unrecord(id)
}

// resolve picks inline weights or a stored template.
func (s *Service) resolve(ctx context.Context, q templates.Query, inline *weights.Config) (weights.Config, templates.Strategy, error) {
	if inline != nil {
		c := inline.Clone()
		if c.ID == "" {
			c.ID = "inline"
		}
		if c.Kind == "" {
			c.Kind = weights.KindCustom
		}
		n, err := weights.Normalize(c)
		if err != nil {
			return weights.Config{}, "", fmt.Errorf("%w: inline weights: %w", ErrInvalidRequest, err)
		}
		return n, StrategyInline, nil
	}
	res, err := s.templates.Resolve(ctx, q)
	if err != nil {
		return weights.Config{}, "", err
	}
	return res.Config, res.Strategy, nil
}

func (s *Service) scoringOptions(past map[int64]float64) []scoring.Option {
	opts := []scoring.Option{scoring.WithSettings(s.scoring), scoring.WithLogger(s.logger)}
	if len(past) > 0 {
		opts = append(opts, scoring.WithPastPerformance(past, ""))
	}
	return opts
}

// Templates lists the latest version of every template, sorted by id.
func (s *Service) Templates(_ context.Context) ([]weights.Config, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.templates.List(), nil
}

// Template returns one template. Version 0 means the latest.
func (s *Service) Template(_ context.Context, id string, version int) (weights.Config, error) {
	if err := s.ready(); err != nil {
		return weights.Config{}, err
	}
	if version > 0 {
		return s.templates.GetVersion(id, version)
	}
	return s.templates.Get(id)
}

// TopN returns the first n entries of a stored ranking.
func (s *Service) TopN(ctx context.Context, runID string, n int) ([]model.RankingEntry, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if n > s.maxLimit {
		return nil, fmt.Errorf("%w: %d exceeds %d", repository.ErrInvalidLimit, n, s.maxLimit)
	}
	return s.store.TopN(ctx, runID, n)
}

// RankOf returns one competitor's entry in a stored ranking.
func (s *Service) RankOf(ctx context.Context, runID string, competitorID int64) (model.RankingEntry, error) {
	if err := s.ready(); err != nil {
		return model.RankingEntry{}, err
	}
	return s.store.Rank(ctx, runID, competitorID)
}

// Runs lists the latest stored runs, newest first.
func (s *Service) Runs(ctx context.Context) ([]repository.Run, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.store.ListRuns(ctx, listRunsLimit)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"seeds":       s.seeds,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
	}
	if s.started {
		stats["templates"] = len(s.templates.List())
		stats["seenRequests"] = s.deduper.Size()
		if n, err := s.store.Count(ctx); err == nil {
			stats["runs"] = n
		}
	}
	return stats
}
