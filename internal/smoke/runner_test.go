package smoke_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okian/fairway/internal/adapters/http/api"
	service "github.com/okian/fairway/internal/app"
	"github.com/okian/fairway/internal/domain/templates"
	"github.com/okian/fairway/internal/smoke"
	logging "github.com/okian/fairway/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func startServer(t *testing.T) *httptest.Server {
	t.Helper()
	svc := service.New(service.WithLogger(logging.Nop()))
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	mux := http.NewServeMux()
	api.NewServer(svc, api.WithLogger(logging.Nop())).Register(context.Background(), mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		srv.Close()
		svc.Stop()
	})
	return srv
}

func TestRun(t *testing.T) {
	Convey("Given a running server", t, func() {
		srv := startServer(t)

		Convey("When smoke testing four fields", func() {
			stats, err := smoke.Run(context.Background(), smoke.Config{
				BaseURL:     srv.URL,
				Fields:      4,
				Competitors: 20,
				Seed:        100,
				TopN:        5,
				Workers:     2,
				Timeout:     10 * time.Second,
				Template:    templates.Query{Archetype: "precision_dominant"},
			})

			Convey("Then every field is ranked, replayed and validated", func() {
				So(err, ShouldBeNil)
				So(stats.FieldsGenerated, ShouldEqual, 4)
				So(stats.RankingsCreated, ShouldEqual, 4)
				So(stats.Duplicates, ShouldEqual, 4)
				So(stats.Validations, ShouldEqual, 4)
				So(stats.Failed, ShouldEqual, 0)
				So(stats.MeanSpearman, ShouldBeBetweenOrEqual, -1, 1)
			})
		})
	})

	Convey("Given no server", t, func() {
		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close()

		_, err := smoke.Run(context.Background(), smoke.Config{BaseURL: srv.URL, Fields: 1, Timeout: time.Second})
		So(err, ShouldNotBeNil)
	})
}
