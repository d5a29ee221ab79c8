package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/okian/fairway/internal/adapters/http/api"
	"github.com/okian/fairway/internal/adapters/repository"
	service "github.com/okian/fairway/internal/app"
	"github.com/okian/fairway/internal/domain/model"
	"github.com/okian/fairway/internal/domain/templates"
	"github.com/okian/fairway/internal/domain/weights"
	"github.com/okian/fairway/internal/testfield"
	logging "github.com/okian/fairway/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

// Mock implementations for testing
type mockDeduper struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (m *mockDeduper) SeenAndRecord(_ context.Context, id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen == nil {
		m.seen = make(map[string]bool)
	}
	if m.seen[id] {
		return true
	}
	m.seen[id] = true
	return false
}

func (m *mockDeduper) Unrecord(_ context.Context, id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.seen, id)
}

type mockDependencies struct {
	mockDeduper

	rankCalls int
	rankErr   error
	entries   []model.RankingEntry
	topNErr   error
	lastLimit int
	stats     map[string]interface{}
	runs      []repository.Run
}

func (m *mockDependencies) Rank(_ context.Context, req service.RankRequest) (service.RankResponse, error) {
	m.rankCalls++
	if m.rankErr != nil {
		return service.RankResponse{}, m.rankErr
	}
	return service.RankResponse{RunID: fmt.Sprintf("run-%d", m.rankCalls), EventID: req.EventID, Entries: m.entries}, nil
}

func (m *mockDependencies) TopN(_ context.Context, runID string, n int) ([]model.RankingEntry, error) {
	m.lastLimit = n
	if m.topNErr != nil {
		return nil, m.topNErr
	}
	if n > len(m.entries) {
		return m.entries, nil
	}
	return m.entries[:n], nil
}

func (m *mockDependencies) RankOf(_ context.Context, _ string, id int64) (model.RankingEntry, error) {
	for _, e := range m.entries {
		if e.CompetitorID == id {
			return e, nil
		}
	}
	return model.RankingEntry{}, repository.ErrNotFound
}

func (m *mockDependencies) Validate(context.Context, service.ValidateRequest) (service.ValidateResponse, error) {
	return service.ValidateResponse{}, fmt.Errorf("%w: no ranking", service.ErrInvalidRequest)
}

func (m *mockDependencies) Optimize(context.Context, service.OptimizeRequest) (service.OptimizeResponse, error) {
	return service.OptimizeResponse{}, service.ErrNotStarted
}

func (m *mockDependencies) Templates(context.Context) ([]weights.Config, error) {
	return []weights.Config{{ID: "balanced", Version: 3}}, nil
}

func (m *mockDependencies) Template(_ context.Context, id string, version int) (weights.Config, error) {
	if id != "balanced" {
		return weights.Config{}, fmt.Errorf("%w: %s", templates.ErrTemplateNotFound, id)
	}
	if version == 0 {
		version = 3
	}
	return weights.Config{ID: id, Version: version}, nil
}

func (m *mockDependencies) GetStats(context.Context) map[string]interface{} {
	out := map[string]interface{}{}
	for k, v := range m.stats {
		out[k] = v
	}
	return out
}

func (m *mockDependencies) Runs(context.Context) ([]repository.Run, error) {
	return m.runs, nil
}

func newMux(deps api.Dependencies, opts ...api.Option) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, opts...).Register(context.Background(), mux)
	return mux
}

func do(mux http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func errorCode(w *httptest.ResponseRecorder) string {
	var body struct {
		Code string `json:"code"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return body.Code
}

func sampleEntries() []model.RankingEntry {
	return []model.RankingEntry{
		{Rank: 1, CompetitorID: 7, Name: "A", Score: 0.9, Coverage: 1},
		{Rank: 2, CompetitorID: 3, Name: "B", Score: 0.7, Coverage: 0.8},
		{Rank: 3, CompetitorID: 5, Name: "C", Score: 0.4, Coverage: 0.5},
	}
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := &mockDependencies{entries: sampleEntries(), stats: map[string]interface{}{"started": true}}
		mux := newMux(deps)

		Convey("Then health serves Prometheus metrics", func() {
			w := do(mux, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then stats include the recent runs of a started service", func() {
			deps.runs = []repository.Run{{ID: "r1", Kind: repository.KindRanking}}
			w := do(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"recentRuns":[{"id":"r1"`)
		})

		Convey("Then unknown paths are 404 and wrong methods 405", func() {
			So(do(mux, http.MethodGet, "/unknown", "").Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, http.MethodGet, "/rankings", "").Code, ShouldEqual, http.StatusMethodNotAllowed)
		})

		Convey("Then a nil mux panics", func() {
			So(func() { api.NewServer(deps).Register(context.Background(), nil) }, ShouldPanic)
		})
	})
}

func TestRankingsHandler(t *testing.T) {
	Convey("Given the rankings routes", t, func() {
		deps := &mockDependencies{entries: sampleEntries()}
		mux := newMux(deps, api.WithDefaultLimit(2))

		Convey("When posting a ranking request", func() {
			w := do(mux, http.MethodPost, "/rankings", `{"event_id":"e1"}`)

			Convey("Then the run is created", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
				var resp service.RankResponse
				So(json.Unmarshal(w.Body.Bytes(), &resp), ShouldBeNil)
				So(resp.RunID, ShouldEqual, "run-1")
				So(resp.EventID, ShouldEqual, "e1")
				So(resp.Entries, ShouldHaveLength, 3)
			})
		})

		Convey("When the same request id is posted twice", func() {
			body := `{"request_id":"req-1","event_id":"e1"}`
			first := do(mux, http.MethodPost, "/rankings", body)
			second := do(mux, http.MethodPost, "/rankings", body)

			Convey("Then the second one is rejected without ranking again", func() {
				So(first.Code, ShouldEqual, http.StatusCreated)
				So(second.Code, ShouldEqual, http.StatusConflict)
				So(errorCode(second), ShouldEqual, "duplicate")
				So(deps.rankCalls, ShouldEqual, 1)
			})
		})

		Convey("When a request id fails", func() {
			deps.rankErr = fmt.Errorf("%w: no feed", service.ErrInvalidRequest)
			body := `{"request_id":"req-2"}`
			failed := do(mux, http.MethodPost, "/rankings", body)
			deps.rankErr = nil
			retried := do(mux, http.MethodPost, "/rankings", body)

			Convey("Then it can be retried", func() {
				So(failed.Code, ShouldEqual, http.StatusBadRequest)
				So(errorCode(failed), ShouldEqual, "bad_request")
				So(retried.Code, ShouldEqual, http.StatusCreated)
			})
		})

		Convey("When the body is not JSON", func() {
			w := do(mux, http.MethodPost, "/rankings", `{`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(deps.rankCalls, ShouldEqual, 0)
		})

		Convey("When reading a stored ranking", func() {
			w := do(mux, http.MethodGet, "/rankings/run-1", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.lastLimit, ShouldEqual, 2)
			So(w.Body.String(), ShouldContainSubstring, `"run_id":"run-1"`)

			w = do(mux, http.MethodGet, "/rankings/run-1?limit=3", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.lastLimit, ShouldEqual, 3)
		})

		Convey("When the limit is bad or too large", func() {
			So(do(mux, http.MethodGet, "/rankings/run-1?limit=0", "").Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodGet, "/rankings/run-1?limit=abc", "").Code, ShouldEqual, http.StatusBadRequest)

			deps.topNErr = fmt.Errorf("%w: 900 exceeds 500", repository.ErrInvalidLimit)
			w := do(mux, http.MethodGet, "/rankings/run-1?limit=900", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(errorCode(w), ShouldEqual, "limit_exceeded")
		})

		Convey("When the run does not exist", func() {
			deps.topNErr = fmt.Errorf("%w: run nope", repository.ErrNotFound)
			w := do(mux, http.MethodGet, "/rankings/nope", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When reading one competitor", func() {
			w := do(mux, http.MethodGet, "/rankings/run-1/competitors/3", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var e model.RankingEntry
			So(json.Unmarshal(w.Body.Bytes(), &e), ShouldBeNil)
			So(e.Rank, ShouldEqual, 2)

			So(do(mux, http.MethodGet, "/rankings/run-1/competitors/99", "").Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, http.MethodGet, "/rankings/run-1/competitors/x", "").Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestOtherHandlers(t *testing.T) {
	Convey("Given the remaining routes", t, func() {
		mux := newMux(&mockDependencies{})

		Convey("Then templates are listed and looked up by version", func() {
			w := do(mux, http.MethodGet, "/templates", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"id":"balanced"`)

			w = do(mux, http.MethodGet, "/templates/balanced?version=2", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"version":2`)

			So(do(mux, http.MethodGet, "/templates/missing", "").Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, http.MethodGet, "/templates/balanced?version=-1", "").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Then service errors map to status codes", func() {
			So(do(mux, http.MethodPost, "/validations", `{}`).Code, ShouldEqual, http.StatusBadRequest)
			w := do(mux, http.MethodPost, "/optimizations", `{}`)
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			So(errorCode(w), ShouldEqual, "unavailable")
		})
	})
}

func TestAPIWithService(t *testing.T) {
	_ = logging.Init()
	ctx := context.Background()
	svc := service.New(service.WithLogger(logging.Nop()))
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer svc.Stop()
	f := testfield.Generate(testfield.WithSeed(5), testfield.WithCompetitors(25))

	Convey("Given the API backed by a started service", t, func() {
		mux := newMux(svc)

		body, err := json.Marshal(service.RankRequest{
			EventID:  f.EventID,
			Template: templates.Query{Archetype: "distance_dominant"},
			Rounds:   f.Rounds,
			Approach: f.Approach,
		})
		So(err, ShouldBeNil)
		w := do(mux, http.MethodPost, "/rankings", string(body))
		So(w.Code, ShouldEqual, http.StatusCreated)

		var ranked service.RankResponse
		So(json.NewDecoder(bytes.NewReader(w.Body.Bytes())).Decode(&ranked), ShouldBeNil)
		So(ranked.Entries, ShouldHaveLength, 25)
		So(ranked.Template.ID, ShouldEqual, "distance_dominant")

		Convey("Then the stored ranking can be paged and looked up", func() {
			w := do(mux, http.MethodGet, "/rankings/"+ranked.RunID+"?limit=3", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var page struct {
				Entries []model.RankingEntry `json:"entries"`
			}
			So(json.Unmarshal(w.Body.Bytes(), &page), ShouldBeNil)
			So(page.Entries, ShouldResemble, ranked.Entries[:3])

			top := ranked.Entries[0]
			w = do(mux, http.MethodGet, fmt.Sprintf("/rankings/%s/competitors/%d", ranked.RunID, top.CompetitorID), "")
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then the ranking validates by run id", func() {
			body, err := json.Marshal(service.ValidateRequest{RankingRunID: ranked.RunID, Results: f.Results})
			So(err, ShouldBeNil)
			w := do(mux, http.MethodPost, "/validations", string(body))
			So(w.Code, ShouldEqual, http.StatusCreated)

			var resp service.ValidateResponse
			So(json.Unmarshal(w.Body.Bytes(), &resp), ShouldBeNil)
			So(resp.Report.Predicted, ShouldEqual, 25)
			So(resp.Report.EventID, ShouldEqual, f.EventID)
		})

		Convey("Then built-in templates are served", func() {
			w := do(mux, http.MethodGet, "/templates/augusta_national", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"venue":"augusta_national"`)
		})
	})
}

func TestAPIWithStoppedService(t *testing.T) {
	Convey("Given the API backed by a service that was never started", t, func() {
		mux := newMux(service.New(service.WithLogger(logging.Nop())))
		body := `{"request_id":"r-1","event_id":"e1","rounds":[]}`

		Convey("Then a request with a request id is unavailable, not a crash", func() {
			w := do(mux, http.MethodPost, "/rankings", body)
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			So(errorCode(w), ShouldEqual, "unavailable")

			Convey("And the failed id is released for a retry", func() {
				w := do(mux, http.MethodPost, "/rankings", body)
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			})
		})
	})
}
