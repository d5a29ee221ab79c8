// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/okian/fairway/internal/adapters/mq/queue"
	"github.com/okian/fairway/internal/adapters/repository"
	service "github.com/okian/fairway/internal/app"
	"github.com/okian/fairway/internal/domain/aggregate"
	"github.com/okian/fairway/internal/domain/course"
	"github.com/okian/fairway/internal/domain/metric"
	"github.com/okian/fairway/internal/domain/optimizer"
	"github.com/okian/fairway/internal/domain/scoring"
	"github.com/okian/fairway/internal/domain/templates"
	"github.com/okian/fairway/internal/domain/validation"
	"github.com/okian/fairway/internal/domain/weights"
	"github.com/okian/fairway/pkg/logger"
	"github.com/okian/fairway/pkg/metrics"
)

// Deduper tracks request ids so a retried POST is not executed twice.
type Deduper interface {
	SeenAndRecord(ctx context.Context, id string) bool
	Unrecord(ctx context.Context, id string)
}

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	Deduper
	RankingDependencies
	ValidationDependencies
	OptimizationDependencies
	TemplateDependencies
	StatsProvider
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler       *HealthHandler
	statsHandler        *StatsHandler
	rankingsHandler     *RankingsHandler
	validationsHandler  *ValidationsHandler
	optimizationHandler *OptimizationsHandler
	templatesHandler    *TemplatesHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := settings{
		defaultLimit: defaultLimit,
		maxBodyBytes: defaultMaxBodyBytes,
		log:          logger.Default(),
	}
	for _, opt := range opts {
		opt(&s)
	}
	r := responder{log: s.log.Named("api"), maxBodyBytes: s.maxBodyBytes}
	return &Server{
		healthHandler:       NewHealthHandler(),
		statsHandler:        NewStatsHandler(deps, r),
		rankingsHandler:     NewRankingsHandler(deps, deps, s.defaultLimit, r),
		validationsHandler:  NewValidationsHandler(deps, deps, r),
		optimizationHandler: NewOptimizationsHandler(deps, deps, r),
		templatesHandler:    NewTemplatesHandler(deps, r),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("POST /rankings", MetricsMiddleware(s.rankingsHandler.HandlePostRanking, "rankings"))
	mux.HandleFunc("GET /rankings/{run_id}", MetricsMiddleware(s.rankingsHandler.HandleGetRanking, "ranking"))
	mux.HandleFunc("GET /rankings/{run_id}/competitors/{id}", MetricsMiddleware(s.rankingsHandler.HandleGetCompetitor, "competitor"))
	mux.HandleFunc("POST /validations", MetricsMiddleware(s.validationsHandler.HandlePostValidation, "validations"))
	mux.HandleFunc("POST /optimizations", MetricsMiddleware(s.optimizationHandler.HandlePostOptimization, "optimizations"))
	mux.HandleFunc("GET /templates", MetricsMiddleware(s.templatesHandler.HandleListTemplates, "templates"))
	mux.HandleFunc("GET /templates/{id}", MetricsMiddleware(s.templatesHandler.HandleGetTemplate, "template"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// responder holds what every handler needs to decode requests and write
// failures.
type responder struct {
	log          logger.Logger
	maxBodyBytes int64
}

func (rs responder) decode(w http.ResponseWriter, r *http.Request, op string, v any) error {
	body := http.MaxBytesReader(w, r.Body, rs.maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		return WrapKind(op, ErrBadRequest, err)
	}
	return nil
}

// fail writes err with the status its kind maps to. Server-side failures
// are logged.
func (rs responder) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		rs.log.Error(r.Context(), "request failed",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Error(err),
		)
	}
	writeError(w, status, code, err)
}

// once runs fn guarded by the request id. An empty id is not tracked; a
// failed fn forgets the id so the request can be retried.
func once(ctx context.Context, d Deduper, id string, fn func() error) error {
	if id == "" {
		return fn()
	}
	if d.SeenAndRecord(ctx, id) {
		metrics.RecordDuplicateRequest()
		return fmt.Errorf("%w: request_id %q", ErrDuplicate, id)
	}
	if err := fn(); err != nil {
		d.Unrecord(ctx, id)
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

var badRequestKinds = []error{
	ErrBadRequest,
	service.ErrInvalidRequest,
	repository.ErrInvalidLimit,
	aggregate.ErrMissingInput,
	aggregate.ErrDuplicateRow,
	course.ErrUnknownArchetype,
	templates.ErrInvalidTemplate,
	metric.ErrUnknownMetric,
	metric.ErrUnknownBucket,
	scoring.ErrInvalidMultiplier,
	weights.ErrMissingID,
	weights.ErrNoGroups,
	weights.ErrInvalidConfig,
	weights.ErrWeightOutOfRange,
	weights.ErrEmptyGroup,
	weights.ErrGroupWeightSum,
	weights.ErrDuplicateMetric,
	weights.ErrUnknownMetric,
	validation.ErrMissingInput,
	validation.ErrInvalidInput,
	validation.ErrDuplicateCompetitor,
	optimizer.ErrMissingInput,
	optimizer.ErrInvalidSettings,
	optimizer.ErrSeedMismatch,
}

// classify maps an error chain onto an HTTP status and a stable code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict, "duplicate"
	case errors.Is(err, ErrNotFound),
		errors.Is(err, repository.ErrNotFound),
		errors.Is(err, templates.ErrTemplateNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, optimizer.ErrUndefinedFitness):
		return http.StatusUnprocessableEntity, "undefined_fitness"
	case errors.Is(err, queue.ErrFull):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, repository.ErrInvalidLimit):
		return http.StatusBadRequest, "limit_exceeded"
	}
	for _, kind := range badRequestKinds {
		if errors.Is(err, kind) {
			return http.StatusBadRequest, "bad_request"
		}
	}
	return http.StatusInternalServerError, "internal_error"
}

// queryInt reads a positive integer query parameter, or def when absent.
func queryInt(r *http.Request, op, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, WrapKind(op, ErrBadRequest, fmt.Errorf("%s must be a positive integer, got %q", name, raw))
	}
	return n, nil
}
