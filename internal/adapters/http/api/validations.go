package api

import (
	"context"
	"net/http"

	service "github.com/okian/fairway/internal/app"
)

// ValidationDependencies defines the validation operation.
type ValidationDependencies interface {
	Validate(ctx context.Context, req service.ValidateRequest) (service.ValidateResponse, error)
}

// ValidationsHandler handles validation requests.
type ValidationsHandler struct {
	deps   ValidationDependencies
	dedupe Deduper
	responder
}

// NewValidationsHandler creates a new validations handler.
func NewValidationsHandler(deps ValidationDependencies, d Deduper, r responder) *ValidationsHandler {
	return &ValidationsHandler{deps: deps, dedupe: d, responder: r}
}

// HandlePostValidation handles POST /validations requests.
func (h *ValidationsHandler) HandlePostValidation(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_validation"
	var req service.ValidateRequest
	if err := h.decode(w, r, op, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	var resp service.ValidateResponse
	err := once(r.Context(), h.dedupe, req.RequestID, func() error {
		var err error
		resp, err = h.deps.Validate(r.Context(), req)
		return err
	})
	if err != nil {
		h.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}
