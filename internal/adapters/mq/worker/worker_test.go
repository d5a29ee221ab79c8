package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	queue "github.com/okian/fairway/internal/adapters/mq/queue"
	worker "github.com/okian/fairway/internal/adapters/mq/worker"
	"github.com/okian/fairway/internal/domain/optimizer"
	logging "github.com/okian/fairway/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

// mockRunner records every call and fails seeds listed in errors.
type mockRunner struct {
	mu      sync.Mutex
	runs    []int64
	resumes []int64
	errors  map[int64]error
	panics  map[int64]bool
}

func newMockRunner() *mockRunner {
	return &mockRunner{errors: make(map[int64]error), panics: make(map[int64]bool)}
}

func (m *mockRunner) Run(_ context.Context, seed int64) (optimizer.RunResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, seed)
	if m.panics[seed] {
		panic("search diverged")
	}
	if err, ok := m.errors[seed]; ok {
		return optimizer.RunResult{}, err
	}
	return optimizer.RunResult{Seed: seed, Iterations: 10, Fitness: float64(seed) / 100}, nil
}

func (m *mockRunner) Resume(_ context.Context, cp optimizer.Checkpoint) (optimizer.RunResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resumes = append(m.resumes, cp.Seed)
	return optimizer.RunResult{Seed: cp.Seed, Iterations: 10, Accepted: cp.Accepted}, nil
}

func (m *mockRunner) calls() (runs, resumes int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.runs), len(m.resumes)
}

func fill(t *testing.T, q *queue.InMemoryQueue, seeds ...int64) {
	t.Helper()
	for i, seed := range seeds {
		if err := q.Enqueue(context.Background(), queue.Job{RunID: "run-1", Seed: seed, Index: i}); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}
	_ = q.Close()
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a worker over a closed queue of three seeds", t, func() {
		_ = logging.Init()

		q := queue.NewInMemoryQueue(queue.WithCapacity(8))
		fill(t, q, 7, 8, 9)
		runner := newMockRunner()
		sink := &worker.Collector{}

		convey.Convey("When it runs to completion", func() {
			w := worker.NewInMemoryWorker(q, runner, sink, worker.WithName("test-worker"))
			w.Run(context.Background())

			convey.Convey("Then every seed is delivered in index order", func() {
				out := sink.Outcomes()
				convey.So(out, convey.ShouldHaveLength, 3)
				for i, o := range out {
					convey.So(o.Job.Index, convey.ShouldEqual, i)
					convey.So(o.Err, convey.ShouldBeNil)
					convey.So(o.Result.Seed, convey.ShouldEqual, o.Job.Seed)
				}
			})
		})

		convey.Convey("When one seed has a checkpoint", func() {
			cps := map[int64]optimizer.Checkpoint{8: {Seed: 8, Iteration: 4, Accepted: 2}}
			w := worker.NewInMemoryWorker(q, runner, sink, worker.WithCheckpoints(cps))
			w.Run(context.Background())

			convey.Convey("Then that seed is resumed and the others start fresh", func() {
				runs, resumes := runner.calls()
				convey.So(runs, convey.ShouldEqual, 2)
				convey.So(resumes, convey.ShouldEqual, 1)
				convey.So(sink.Outcomes()[1].Result.Accepted, convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When a run panics", func() {
			runner.panics[8] = true
			w := worker.NewInMemoryWorker(q, runner, sink)
			w.Run(context.Background())

			convey.Convey("Then the panic is delivered as an error and the queue is drained", func() {
				out := sink.Outcomes()
				convey.So(out, convey.ShouldHaveLength, 3)
				convey.So(errors.Is(out[1].Err, worker.ErrRunnerPanic), convey.ShouldBeTrue)
				convey.So(out[1].Err.Error(), convey.ShouldContainSubstring, "search diverged")
				convey.So(out[0].Err, convey.ShouldBeNil)
				convey.So(out[2].Err, convey.ShouldBeNil)
			})
		})

		convey.Convey("When a run fails", func() {
			boom := errors.New("boom")
			runner.errors[9] = boom
			w := worker.NewInMemoryWorker(q, runner, sink)
			w.Run(context.Background())

			convey.Convey("Then the error is delivered with the job and the others succeed", func() {
				out := sink.Outcomes()
				convey.So(out, convey.ShouldHaveLength, 3)
				convey.So(errors.Is(out[2].Err, boom), convey.ShouldBeTrue)
				convey.So(out[0].Err, convey.ShouldBeNil)
			})
		})
	})
}

func TestInMemoryWorkerShutdown(t *testing.T) {
	convey.Convey("Given a worker on an open, empty queue", t, func() {
		q := queue.NewInMemoryQueue()
		w := worker.NewInMemoryWorker(q, newMockRunner(), &worker.Collector{})
		go w.Run(context.Background())

		convey.Convey("Then Shutdown stops it and is safe to repeat", func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			convey.So(w.Shutdown(ctx), convey.ShouldBeNil)
			convey.So(w.Shutdown(ctx), convey.ShouldBeNil)
		})
	})
}

func TestPool(t *testing.T) {
	convey.Convey("Given a pool of four workers and twenty seeds", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(32))
		seeds := make([]int64, 20)
		for i := range seeds {
			seeds[i] = int64(100 + i)
		}
		fill(t, q, seeds...)

		runner := newMockRunner()
		sink := &worker.Collector{}
		pool := worker.NewPool(4, q, runner, sink)
		convey.So(pool.Size(), convey.ShouldEqual, 4)

		pool.Start(context.Background())
		pool.Wait()

		convey.Convey("Then every seed runs exactly once", func() {
			out := sink.Outcomes()
			convey.So(out, convey.ShouldHaveLength, 20)
			for i, o := range out {
				convey.So(o.Job.Index, convey.ShouldEqual, i)
				convey.So(o.Job.Seed, convey.ShouldEqual, seeds[i])
			}
			runs, _ := runner.calls()
			convey.So(runs, convey.ShouldEqual, 20)
		})

		convey.Convey("Then Shutdown after draining returns promptly", func() {
			convey.So(pool.Shutdown(context.Background()), convey.ShouldBeNil)
		})
	})

	convey.Convey("Given a pool size below one", t, func() {
		pool := worker.NewPool(0, queue.NewInMemoryQueue(), newMockRunner(), &worker.Collector{})
		convey.So(pool.Size(), convey.ShouldBeGreaterThan, 0)
	})
}
