package api

import (
	"context"
	"net/http"

	service "github.com/okian/fairway/internal/app"
)

// OptimizationDependencies defines the optimization operation.
type OptimizationDependencies interface {
	Optimize(ctx context.Context, req service.OptimizeRequest) (service.OptimizeResponse, error)
}

// OptimizationsHandler handles optimizer requests. Runs are synchronous;
// a client that disconnects interrupts them, and seeds that did not finish
// come back as checkpoints.
type OptimizationsHandler struct {
	deps   OptimizationDependencies
	dedupe Deduper
	responder
}

// NewOptimizationsHandler creates a new optimizations handler.
func NewOptimizationsHandler(deps OptimizationDependencies, d Deduper, r responder) *OptimizationsHandler {
	return &OptimizationsHandler{deps: deps, dedupe: d, responder: r}
}

// HandlePostOptimization handles POST /optimizations requests.
func (h *OptimizationsHandler) HandlePostOptimization(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_optimization"
	var req service.OptimizeRequest
	if err := h.decode(w, r, op, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	var resp service.OptimizeResponse
	err := once(r.Context(), h.dedupe, req.RequestID, func() error {
		var err error
		resp, err = h.deps.Optimize(r.Context(), req)
		return err
	})
	if err != nil {
		h.fail(w, r, Wrap(op, err))
		return
	}
	status := http.StatusCreated
	if len(resp.Checkpoints) > 0 {
		status = http.StatusAccepted
	}
	writeJSON(w, status, resp)
}
