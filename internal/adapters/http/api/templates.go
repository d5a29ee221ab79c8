package api

import (
	"context"
	"net/http"

	"github.com/okian/fairway/internal/domain/weights"
)

// TemplateDependencies defines template lookups.
type TemplateDependencies interface {
	Templates(ctx context.Context) ([]weights.Config, error)
	Template(ctx context.Context, id string, version int) (weights.Config, error)
}

// TemplatesHandler handles template requests.
type TemplatesHandler struct {
	deps TemplateDependencies
	responder
}

// NewTemplatesHandler creates a new templates handler.
func NewTemplatesHandler(deps TemplateDependencies, r responder) *TemplatesHandler {
	return &TemplatesHandler{deps: deps, responder: r}
}

// HandleListTemplates handles GET /templates requests.
func (h *TemplatesHandler) HandleListTemplates(w http.ResponseWriter, r *http.Request) {
	list, err := h.deps.Templates(r.Context())
	if err != nil {
		h.fail(w, r, Wrap("api.list_templates", err))
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// HandleGetTemplate handles GET /templates/{id}?version=N requests.
// Without a version the latest one is returned.
func (h *TemplatesHandler) HandleGetTemplate(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_template"
	version, err := queryInt(r, op, "version", 0)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	cfg, err := h.deps.Template(r.Context(), r.PathValue("id"), version)
	if err != nil {
		h.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}
