// Package deferred runs work which must not delay the acknowledgment of
// inbound webhooks, such as user profile enrichment, session persistence,
// and view delivery. Slack treats responses slower than 3 seconds as failed
// deliveries, regardless of whether the underlying work eventually succeeds.
package deferred

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

const (
	DefaultConcurrency = 64
	DefaultTimeout     = 30 * time.Second
)

// Task is a unit of deferred work. Its errors are reported, never retried.
type Task func(ctx context.Context) error

// TaskError is reported for each failed [Task].
type TaskError struct {
	Name string
	Err  error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("deferred task %q: %v", e.Name, e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

// Scheduler runs submitted tasks in the background, with bounded concurrency.
// Tasks are detached from the cancellation of the request which submitted
// them: if the client disconnects after being acknowledged, they still run
// to completion (or until their own timeout).
type Scheduler struct {
	sem     *semaphore.Weighted
	timeout time.Duration
	onError func(*TaskError)
	wg      sync.WaitGroup
}

type Option func(*Scheduler)

func WithConcurrency(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.sem = semaphore.NewWeighted(int64(n))
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithErrorHandler adds a consumer of task errors, in addition to logging them.
// It's called synchronously, in the goroutine of the failed task.
func WithErrorHandler(f func(*TaskError)) Option {
	return func(s *Scheduler) {
		s.onError = f
	}
}

func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		sem:     semaphore.NewWeighted(DefaultConcurrency),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit schedules a task. It must be called only after the response to the
// inbound request has been finalized. The task's context carries the values
// (e.g. the logger) of the given context, but not its deadline or cancellation.
func (s *Scheduler) Submit(ctx context.Context, name string, task Task) {
	ctx = context.WithoutCancel(ctx)
	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		l := zerolog.Ctx(ctx).With().Str("task", name).Logger()
		if err := s.sem.Acquire(ctx, 1); err != nil {
			s.report(l, &TaskError{Name: name, Err: err})
			return
		}
		defer s.sem.Release(1)

		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		start := time.Now()
		if err := task(l.WithContext(ctx)); err != nil {
			s.report(l, &TaskError{Name: name, Err: err})
			return
		}
		l.Debug().Dur("duration", time.Since(start)).Msg("deferred task completed")
	}()
}

func (s *Scheduler) report(l zerolog.Logger, err *TaskError) {
	l.Error().Err(err.Err).Msg("deferred task failed")
	if s.onError != nil {
		s.onError(err)
	}
}

// Wait blocks until all the submitted tasks are done.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}
