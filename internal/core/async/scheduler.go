package async

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/partlister/internal/common"
)

// Task is one unit of scheduled work.
type Task func(ctx context.Context) (any, error)

type job struct {
	id   string
	run  Task
	done func(any, error)
}

// Scheduler is a bounded-concurrency FIFO task queue. At most maxConcurrency tasks run at
// once; the rest wait in submission order and start as slots free up. Submit never blocks.
type Scheduler struct {
	logger      *slog.Logger
	max         int
	taskTimeout time.Duration

	mu       sync.Mutex
	pending  []*job
	inFlight int
	closed   bool
	drained  chan struct{} // closed once the scheduler is closed and idle
}

type Option func(*Scheduler)

// WithTaskTimeout bounds every task with a context deadline. Zero (the default) means
// tasks run until they return on their own.
func WithTaskTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.taskTimeout = d
		}
	}
}

// NewScheduler returns a Scheduler admitting maxConcurrency tasks at a time.
// maxConcurrency < 1 is a configuration error.
func NewScheduler(maxConcurrency int, logger *slog.Logger, opts ...Option) (*Scheduler, error) {
	if maxConcurrency < 1 {
		return nil, common.ConfigErrorf("scheduler concurrency must be >= 1, got %d", maxConcurrency)
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		logger:  logger,
		max:     maxConcurrency,
		drained: make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Submit queues task and returns a handle to its result. The task starts immediately if a
// slot is free, otherwise it waits behind every task submitted before it.
func Submit[T any](s *Scheduler, task func(ctx context.Context) (T, error)) *Future[T] {
	f := newFuture[T]()
	s.enqueue(
		func(ctx context.Context) (any, error) { return task(ctx) },
		func(v any, err error) {
			var out T
			if v != nil {
				out = v.(T)
			}
			f.resolve(out, err)
		},
	)
	return f
}

func (s *Scheduler) enqueue(run Task, done func(any, error)) {
	j := &job{id: uuid.New().String(), run: run, done: done}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.logger.Warn("scheduler.submit.rejected", "job_id", j.id, "reason", "shutting down")
		done(nil, common.ErrSchedulerClosed)
		return
	}
	if s.inFlight < s.max {
		s.inFlight++
		s.mu.Unlock()
		s.logger.Debug("scheduler.job.start", "job_id", j.id, "queued", false)
		go s.execute(j)
		return
	}
	s.pending = append(s.pending, j)
	depth := len(s.pending)
	s.mu.Unlock()
	s.logger.Debug("scheduler.job.queued", "job_id", j.id, "queue_depth", depth)
}

// execute runs j and then keeps draining the queue head on the same goroutine, so a freed
// slot is handed straight to the next waiting job.
func (s *Scheduler) execute(j *job) {
	for j != nil {
		s.runOne(j)

		s.mu.Lock()
		if len(s.pending) > 0 {
			j = s.pending[0]
			s.pending[0] = nil
			s.pending = s.pending[1:]
			s.mu.Unlock()
			s.logger.Debug("scheduler.job.start", "job_id", j.id, "queued", true)
			continue
		}
		s.inFlight--
		if s.inFlight == 0 && s.closed {
			close(s.drained)
		}
		s.mu.Unlock()
		j = nil
	}
}

func (s *Scheduler) runOne(j *job) {
	start := time.Now()
	ctx := context.Background()
	if s.taskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.taskTimeout)
		defer cancel()
	}

	v, err := s.safeRun(ctx, j)
	if err != nil {
		s.logger.Warn("scheduler.job.failed", "job_id", j.id, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
	} else {
		s.logger.Debug("scheduler.job.done", "job_id", j.id, "elapsed_ms", time.Since(start).Milliseconds())
	}
	j.done(v, err)
}

// safeRun converts a panicking task into an error so its slot is always released.
func (s *Scheduler) safeRun(ctx context.Context, j *job) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return j.run(ctx)
}

// Stats returns the number of queued and running tasks.
func (s *Scheduler) Stats() (pending, inFlight int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending), s.inFlight
}

// Shutdown stops admitting work and waits until queued and running tasks finish or ctx ends.
func (s *Scheduler) Shutdown(ctx context.Context) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	// pending is only non-empty while every slot is busy, so inFlight alone tells idleness.
	if s.inFlight == 0 {
		close(s.drained)
	}
	s.mu.Unlock()

	select {
	case <-ctx.Done():
		s.logger.Warn("scheduler.shutdown.interrupted", "error", ctx.Err())
	case <-s.drained:
		s.logger.Info("scheduler.shutdown.drained")
	}
}
