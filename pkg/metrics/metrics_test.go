package metrics

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

// counterValue sums every series of the named counter family.
func counterValue(reg *prometheus.Registry, name string) float64 {
	families, err := reg.Gather()
	if err != nil {
		return -1
	}
	total := 0.0
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}

func familyNames(reg *prometheus.Registry) map[string]bool {
	families, _ := reg.Gather()
	out := make(map[string]bool, len(families))
	for _, mf := range families {
		out[mf.GetName()] = true
	}
	return out
}

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given a manager on its own registry", t, func() {
		reg := prometheus.NewRegistry()
		m := NewManager(
			WithPrometheusRegistry(reg),
			WithNamespace("test"),
			WithSubsystem("unit"),
			WithHistogramBuckets([]float64{1, 10, 100}),
			WithConstLabels(map[string]string{"env": "test"}),
		)
		So(m, ShouldNotBeNil)

		Convey("Then collectors use the configured names", func() {
			m.bundlesScored.Add(3)
			m.queueSize.Set(2)
			names := familyNames(reg)
			So(names["test_unit_bundles_scored_total"], ShouldBeTrue)
			So(names["test_unit_queue_size"], ShouldBeTrue)
			So(counterValue(reg, "test_unit_bundles_scored_total"), ShouldEqual, 3)
		})

		Convey("Then constant labels are attached", func() {
			m.workerErrors.Inc()
			families, err := reg.Gather()
			So(err, ShouldBeNil)
			for _, mf := range families {
				if mf.GetName() == "test_unit_worker_errors_total" {
					So(mf.GetMetric()[0].GetLabel()[0].GetName(), ShouldEqual, "env")
				}
			}
		})

		Convey("Then a second manager on the same registry panics", func() {
			So(func() { NewManager(WithPrometheusRegistry(reg), WithNamespace("test"), WithSubsystem("unit")) }, ShouldPanic)
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		reg := GetRegistry()

		Convey("When recording a ranking", func() {
			before := counterValue(reg, "fairway_engine_bundles_scored_total")
			RecordRanking("venue", 40, 12.5)
			RecordCoverage(0.8)

			Convey("Then the bundle counter advances", func() {
				So(counterValue(reg, "fairway_engine_bundles_scored_total"), ShouldEqual, before+40)
			})
		})

		Convey("When recording validations and optimizer runs", func() {
			before := counterValue(reg, "fairway_engine_optimizer_iterations_total")
			RecordValidation("strong", 0.82, true)
			RecordValidation("insufficient_data", 0, false)
			RecordOptimizerRun("completed", 25, 3, 40)
			UpdateOptimizerBestFitness(0.61)

			Convey("Then iterations are summed", func() {
				So(counterValue(reg, "fairway_engine_optimizer_iterations_total"), ShouldEqual, before+25)
			})
		})

		Convey("When recording queue, worker and HTTP metrics", func() {
			So(func() {
				UpdateQueueCapacity(16)
				UpdateQueueSize(3)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError()
				UpdateWorkerCount(4)
				AddWorkerActive(1)
				AddWorkerActive(-1)
				RecordWorkerProcessingLatency(5)
				RecordWorkerError()
				RecordRepositoryLatency("save_ranking", 1.5)
				RecordFeedRows("rounds", 12)
				RecordHTTPRequest("/rankings", "POST", "201")
				RecordHTTPRequestDuration("/rankings", "POST", "201", 3)
				RecordDuplicateRequest()
				RecordErrorByComponent("scoring", "non_finite")
				UpdateSystemMemoryUsage(1 << 20)
				UpdateSystemGoroutineCount(12)
				RecordSystemGCPauseTime(0.3)
				UpdateStoredRuns(7)
				UpdateTemplates(7)
			}, ShouldNotPanic)
		})
	})
}

func TestMetricsConcurrency(t *testing.T) {
	Convey("Given concurrent recorders", t, func() {
		reg := GetRegistry()
		before := counterValue(reg, "fairway_engine_queue_enqueued_total")

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					RecordQueueEnqueue()
				}
			}()
		}
		wg.Wait()

		So(counterValue(reg, "fairway_engine_queue_enqueued_total"), ShouldEqual, before+800)
	})
}
