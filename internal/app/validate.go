package service

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/fairway/internal/adapters/repository"
	"github.com/okian/fairway/internal/domain/model"
	"github.com/okian/fairway/internal/domain/validation"
	"github.com/okian/fairway/pkg/logger"
	"github.com/okian/fairway/pkg/metrics"
)

// ValidateRequest compares a ranking with realized finishes. The ranking is
// either a stored run (RankingRunID) or supplied inline.
type ValidateRequest struct {
	RequestID    string               `json:"request_id,omitempty"`
	EventID      string               `json:"event_id,omitempty"`
	RankingRunID string               `json:"ranking_run_id,omitempty"`
	Ranking      []model.RankingEntry `json:"ranking,omitempty"`
	Results      []model.Result       `json:"results"`
}

// ValidateResponse is a stored validation report.
type ValidateResponse struct {
	RunID        string            `json:"run_id"`
	RankingRunID string            `json:"ranking_run_id,omitempty"`
	Report       validation.Report `json:"report"`
	CreatedAt    time.Time         `json:"created_at"`
}

// Validate scores a ranking against results and stores the report.
func (s *Service) Validate(ctx context.Context, req ValidateRequest) (ValidateResponse, error) {
	if err := s.ready(); err != nil {
		return ValidateResponse{}, err
	}

	ranking, eventID := req.Ranking, req.EventID
	switch {
	case req.RankingRunID != "" && len(req.Ranking) > 0:
		return ValidateResponse{}, fmt.Errorf("%w: give ranking_run_id or ranking, not both", ErrInvalidRequest)
	case req.RankingRunID != "":
		stored, err := s.store.Ranking(ctx, req.RankingRunID)
		if err != nil {
			return ValidateResponse{}, err
		}
		ranking = stored.Entries
		if eventID == "" {
			eventID = stored.EventID
		}
	}

	rep, err := validation.Validate(eventID, ranking, req.Results, validation.WithTopN(s.topN...))
	if err != nil {
		return ValidateResponse{}, err
	}

	resp := ValidateResponse{
		RunID:        s.newID(),
		RankingRunID: req.RankingRunID,
		Report:       rep,
		CreatedAt:    s.now().UTC(),
	}
	err = s.store.SaveValidation(ctx, repository.ValidationRecord{
		Run:          repository.Run{ID: resp.RunID, EventID: eventID, CreatedAt: resp.CreatedAt},
		RankingRunID: req.RankingRunID,
		Report:       rep,
	})
	if err != nil {
		return ValidateResponse{}, err
	}

	metrics.RecordValidation(string(rep.Strength), rep.Spearman.Value, rep.Spearman.Defined)
	s.logger.Info(ctx, "ranking validated",
		logger.String("run_id", resp.RunID),
		logger.String("event_id", eventID),
		logger.Int("matched", rep.Matched),
		logger.String("strength", string(rep.Strength)),
	)
	return resp, nil
}
