// Package repository persists rankings, validation reports and optimizer
// recommendations.
package repository

import (
	"context"
	"time"

	"github.com/okian/fairway/internal/domain/model"
	"github.com/okian/fairway/internal/domain/optimizer"
	"github.com/okian/fairway/internal/domain/validation"
)

// Run kinds.
const (
	KindRanking      = "ranking"
	KindValidation   = "validation"
	KindOptimization = "optimization"
)

// Run is the summary row every saved record has.
type Run struct {
	ID              string    `json:"id"`
	Kind            string    `json:"kind"`
	EventID         string    `json:"event_id"`
	TemplateID      string    `json:"template_id,omitempty"`
	TemplateVersion int       `json:"template_version,omitempty"`
	Strategy        string    `json:"strategy,omitempty"` // template resolution strategy
	Entries         int       `json:"entries"`
	CreatedAt       time.Time `json:"created_at"`
}

// Ranking is a stored ranking run.
type Ranking struct {
	Run
	Entries []model.RankingEntry `json:"entries"`
}

// ValidationRecord is a stored validation report. RankingRunID is empty when
// the ranking was supplied inline.
type ValidationRecord struct {
	Run
	RankingRunID string            `json:"ranking_run_id,omitempty"`
	Report       validation.Report `json:"report"`
}

// OptimizationRecord is a stored optimizer recommendation.
type OptimizationRecord struct {
	Run
	Recommendation optimizer.Recommendation `json:"recommendation"`
}

// Store provides read/write access to saved runs.
type Store interface {
	// SaveRanking stores a ranking. The run id must be new.
	SaveRanking(ctx context.Context, r Ranking) error

	// Ranking returns a whole stored ranking, ErrNotFound if unknown.
	Ranking(ctx context.Context, runID string) (Ranking, error)

	// TopN returns the first n entries of a ranking by rank.
	TopN(ctx context.Context, runID string, n int) ([]model.RankingEntry, error)

	// Rank returns one competitor's entry. Returns ErrNotFound if the run
	// or the competitor is unknown.
	Rank(ctx context.Context, runID string, competitorID int64) (model.RankingEntry, error)

	SaveValidation(ctx context.Context, v ValidationRecord) error
	Validation(ctx context.Context, id string) (ValidationRecord, error)

	SaveOptimization(ctx context.Context, o OptimizationRecord) error
	Optimization(ctx context.Context, id string) (OptimizationRecord, error)

	// ListRuns returns the latest runs, newest first.
	ListRuns(ctx context.Context, limit int) ([]Run, error)

	// Count returns the number of stored runs.
	Count(ctx context.Context) (int, error)

	Close() error
}
