// Package worker runs queued optimizer seeds on a pool of goroutines.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/okian/fairway/internal/adapters/mq/queue"
	"github.com/okian/fairway/internal/domain/optimizer"
	"github.com/okian/fairway/pkg/logger"
	"github.com/okian/fairway/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// ErrRunnerPanic is delivered for a job whose runner panicked.
var ErrRunnerPanic = errors.New("optimizer run panicked")

// Job is a seed waiting to be searched.
type Job = queue.Job

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Job
}

// Runner executes one seeded search. *optimizer.Optimizer satisfies it.
type Runner interface {
	Run(ctx context.Context, seed int64) (optimizer.RunResult, error)
	Resume(ctx context.Context, cp optimizer.Checkpoint) (optimizer.RunResult, error)
}

// Outcome is what a worker reports for one job.
type Outcome struct {
	Job     Job
	Result  optimizer.RunResult
	Err     error
	Elapsed time.Duration
}

// Sink receives outcomes. Deliver is called concurrently from every worker.
type Sink interface {
	Deliver(ctx context.Context, o Outcome)
}

// Collector is a Sink that keeps every outcome in memory.
type Collector struct {
	mu       sync.Mutex
	outcomes []Outcome
}

// Deliver implements Sink.
func (c *Collector) Deliver(_ context.Context, o Outcome) {
	c.mu.Lock()
	c.outcomes = append(c.outcomes, o)
	c.mu.Unlock()
}

// Outcomes returns the collected outcomes ordered by job index.
func (c *Collector) Outcomes() []Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := append([]Outcome(nil), c.outcomes...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Job.Index < out[j].Job.Index })
	return out
}

// Worker processes jobs until its queue is drained.
type Worker interface {
	// Run starts the worker loop until the queue closes or ctx is canceled.
	Run(ctx context.Context)

	// Shutdown stops the worker after the job in flight.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker pulls jobs from a Queue and hands them to a Runner.
type InMemoryWorker struct {
	queue       Queue
	runner      Runner
	sink        Sink
	checkpoints map[int64]optimizer.Checkpoint
	name        string

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, r Runner, s Sink, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		runner:   r,
		sink:     s,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Default().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			w.process(ctx, j)
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) process(ctx context.Context, j Job) {
	metrics.AddWorkerActive(1)
	defer metrics.AddWorkerActive(-1)

	start := time.Now()
	res, err := w.run(ctx, j)
	elapsed := time.Since(start)
	latency := float64(elapsed.Milliseconds())
	metrics.RecordWorkerProcessingLatency(latency)

	switch {
	case err != nil:
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "optimizer_error")
		metrics.RecordOptimizerRun("error", 0, 0, latency)
		w.logger.Error(ctx, "optimizer run failed",
			logger.String("run_id", j.RunID),
			logger.Int64("seed", j.Seed),
			logger.Error(err),
		)
		err = fmt.Errorf("run %s seed %d: %w", j.RunID, j.Seed, err)
	case res.Interrupted:
		metrics.RecordOptimizerRun("interrupted", res.Iterations, res.Accepted, latency)
	default:
		metrics.RecordOptimizerRun("completed", res.Iterations, res.Accepted, latency)
		metrics.UpdateOptimizerBestFitness(res.Fitness)
	}

	w.sink.Deliver(ctx, Outcome{Job: j, Result: res, Err: err, Elapsed: elapsed})
}

// run executes the job, turning a runner panic into ErrRunnerPanic so the
// worker keeps draining the queue.
func (w *InMemoryWorker) run(ctx context.Context, j Job) (res optimizer.RunResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordErrorByComponent("worker", "panic")
			res, err = optimizer.RunResult{}, fmt.Errorf("%w: %v", ErrRunnerPanic, r)
		}
	}()
	if cp, ok := w.checkpoints[j.Seed]; ok {
		return w.runner.Resume(ctx, cp)
	}
	return w.runner.Run(ctx, j.Seed)
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates workerCount workers. A count below 1 uses runtime.NumCPU().
// opts apply to every worker; names are assigned per worker.
func NewPool(workerCount int, q Queue, r Runner, s Sink, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Default().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		wopts := append(append([]Option(nil), opts...), WithName("worker-"+strconv.Itoa(i)))
		pool.workers[i] = NewInMemoryWorker(q, r, s, wopts...)
	}
	metrics.UpdateWorkerCount(workerCount)
	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Wait blocks until every worker has returned, which happens once the queue
// is closed and drained or the context given to Start is done.
func (p *Pool) Wait() {
	for _, w := range p.workers {
		<-w.done
	}
}

// Shutdown closes the queue and stops every worker.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var firstErr error
	for i, w := range p.workers {
		if err := w.Shutdown(shutdownCtx); err != nil {
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
