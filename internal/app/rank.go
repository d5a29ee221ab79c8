package service

import (
	"context"
	"time"

	"github.com/okian/fairway/internal/adapters/repository"
	"github.com/okian/fairway/internal/domain/aggregate"
	"github.com/okian/fairway/internal/domain/model"
	"github.com/okian/fairway/internal/domain/scoring"
	"github.com/okian/fairway/internal/domain/templates"
	"github.com/okian/fairway/internal/domain/weights"
	"github.com/okian/fairway/pkg/logger"
	"github.com/okian/fairway/pkg/metrics"
)

// RankRequest asks for one event's field to be ranked. Weights, when set,
// replace template resolution.
type RankRequest struct {
	RequestID       string              `json:"request_id,omitempty"`
	EventID         string              `json:"event_id"`
	Template        templates.Query     `json:"template"`
	Weights         *weights.Config     `json:"weights,omitempty"`
	Rounds          []model.RoundRow    `json:"rounds"`
	Approach        []model.ApproachRow `json:"approach"`
	PastPerformance map[int64]float64   `json:"past_performance,omitempty"`
	// Details keeps per-group scores in the response.
	Details bool `json:"details,omitempty"`
}

// RankResponse is a stored ranking.
type RankResponse struct {
	RunID       string                `json:"run_id"`
	EventID     string                `json:"event_id"`
	Template    TemplateRef           `json:"template"`
	Entries     []model.RankingEntry  `json:"entries"`
	Scores      []scoring.Result      `json:"scores,omitempty"`
	Diagnostics aggregate.Diagnostics `json:"diagnostics"`
	CreatedAt   time.Time             `json:"created_at"`
}

// Rank aggregates the feeds, scores every competitor and stores the ranking.
func (s *Service) Rank(ctx context.Context, req RankRequest) (RankResponse, error) {
	if err := s.ready(); err != nil {
		return RankResponse{}, err
	}
	start := time.Now()

	agg, err := aggregate.New(aggregate.WithLogger(s.logger)).Aggregate(ctx, req.Rounds, req.Approach)
	if err != nil {
		return RankResponse{}, err
	}
	cfg, strategy, err := s.resolve(ctx, req.Template, req.Weights)
	if err != nil {
		return RankResponse{}, err
	}
	engine, err := scoring.NewEngine(cfg, agg.Bundles, s.scoringOptions(req.PastPerformance)...)
	if err != nil {
		return RankResponse{}, err
	}
	entries, scores, err := engine.Rank(ctx, agg.Bundles)
	if err != nil {
		return RankResponse{}, err
	}

	resp := RankResponse{
		RunID:       s.newID(),
		EventID:     req.EventID,
		Template:    TemplateRef{ID: cfg.ID, Version: cfg.Version, Strategy: strategy},
		Entries:     entries,
		Diagnostics: agg.Diagnostics,
		CreatedAt:   s.now().UTC(),
	}
	if req.Details {
		resp.Scores = scores
	}

	err = s.store.SaveRanking(ctx, repository.Ranking{
		Run: repository.Run{
			ID:              resp.RunID,
			EventID:         resp.EventID,
			TemplateID:      cfg.ID,
			TemplateVersion: cfg.Version,
			Strategy:        string(strategy),
			CreatedAt:       resp.CreatedAt,
		},
		Entries: entries,
	})
	if err != nil {
		return RankResponse{}, err
	}

	for _, e := range entries {
		metrics.RecordCoverage(e.Coverage)
	}
	metrics.RecordRanking(string(strategy), len(agg.Bundles), float64(time.Since(start).Microseconds())/1000)
	s.logger.Info(ctx, "field ranked",
		logger.String("run_id", resp.RunID),
		logger.String("event_id", resp.EventID),
		logger.String("template", cfg.Key()),
		logger.String("strategy", string(strategy)),
		logger.Int("competitors", len(entries)),
	)
	return resp, nil
}
