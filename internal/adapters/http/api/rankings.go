package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	service "github.com/okian/fairway/internal/app"
	"github.com/okian/fairway/internal/domain/model"
)

// RankingDependencies defines the ranking operations the handlers need.
type RankingDependencies interface {
	Rank(ctx context.Context, req service.RankRequest) (service.RankResponse, error)
	TopN(ctx context.Context, runID string, n int) ([]model.RankingEntry, error)
	RankOf(ctx context.Context, runID string, competitorID int64) (model.RankingEntry, error)
}

// RankingsHandler handles ranking requests.
type RankingsHandler struct {
	deps         RankingDependencies
	dedupe       Deduper
	defaultLimit int
	responder
}

// NewRankingsHandler creates a new rankings handler.
func NewRankingsHandler(deps RankingDependencies, d Deduper, defaultLimit int, r responder) *RankingsHandler {
	return &RankingsHandler{deps: deps, dedupe: d, defaultLimit: defaultLimit, responder: r}
}

// rankingPage is the read shape of a stored ranking.
type rankingPage struct {
	RunID   string               `json:"run_id"`
	Entries []model.RankingEntry `json:"entries"`
}

// HandlePostRanking handles POST /rankings requests.
func (h *RankingsHandler) HandlePostRanking(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_ranking"
	var req service.RankRequest
	if err := h.decode(w, r, op, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	var resp service.RankResponse
	err := once(r.Context(), h.dedupe, req.RequestID, func() error {
		var err error
		resp, err = h.deps.Rank(r.Context(), req)
		return err
	})
	if err != nil {
		h.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// HandleGetRanking handles GET /rankings/{run_id}?limit=N requests.
func (h *RankingsHandler) HandleGetRanking(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_ranking"
	runID := r.PathValue("run_id")
	n, err := queryInt(r, op, "limit", h.defaultLimit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	entries, err := h.deps.TopN(r.Context(), runID, n)
	if err != nil {
		h.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, rankingPage{RunID: runID, Entries: entries})
}

// HandleGetCompetitor handles GET /rankings/{run_id}/competitors/{id}
// requests.
func (h *RankingsHandler) HandleGetCompetitor(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_competitor"
	raw := strings.TrimSpace(r.PathValue("id"))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		h.fail(w, r, WrapKind(op, ErrBadRequest, fmt.Errorf("competitor id %q", raw)))
		return
	}
	entry, err := h.deps.RankOf(r.Context(), r.PathValue("run_id"), id)
	if err != nil {
		h.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
