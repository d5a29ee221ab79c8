package api

import (
	"context"
	"net/http"

	"github.com/okian/fairway/internal/adapters/repository"
)

// StatsProvider defines the interface for getting service statistics.
type StatsProvider interface {
	GetStats(ctx context.Context) map[string]interface{}
	Runs(ctx context.Context) ([]repository.Run, error)
}

// StatsHandler handles stats requests.
type StatsHandler struct {
	statsProvider StatsProvider
	responder
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(statsProvider StatsProvider, r responder) *StatsHandler {
	return &StatsHandler{statsProvider: statsProvider, responder: r}
}

// HandleStats handles GET /stats requests. The latest stored runs are
// listed under "recentRuns".
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats := h.statsProvider.GetStats(r.Context())
	if started, _ := stats["started"].(bool); started {
		runs, err := h.statsProvider.Runs(r.Context())
		if err != nil {
			h.fail(w, r, Wrap("api.stats", err))
			return
		}
		stats["recentRuns"] = runs
	}
	writeJSON(w, http.StatusOK, stats)
}
