package deferred

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSchedulerRunsTasks(t *testing.T) {
	s := New()
	var n atomic.Int32

	for range 10 {
		s.Submit(t.Context(), "count", func(context.Context) error {
			n.Add(1)
			return nil
		})
	}
	s.Wait()

	if got := n.Load(); got != 10 {
		t.Errorf("tasks run = %d, want %d", got, 10)
	}
}

func TestSchedulerReportsErrors(t *testing.T) {
	var mu sync.Mutex
	var got []*TaskError
	s := New(WithErrorHandler(func(err *TaskError) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, err)
	}))

	wantErr := errors.New("profile fetch failed")
	s.Submit(t.Context(), "enrich", func(context.Context) error { return wantErr })
	s.Submit(t.Context(), "ok", func(context.Context) error { return nil })
	s.Wait()

	if len(got) != 1 {
		t.Fatalf("reported errors = %d, want 1", len(got))
	}
	if got[0].Name != "enrich" {
		t.Errorf("TaskError.Name = %q, want %q", got[0].Name, "enrich")
	}
	if !errors.Is(got[0], wantErr) {
		t.Errorf("TaskError = %v, want wrapped %v", got[0], wantErr)
	}
}

func TestSchedulerDetachesCancellation(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(t.Context())

	done := make(chan error, 1)
	s.Submit(ctx, "persist", func(ctx context.Context) error {
		time.Sleep(10 * time.Millisecond)
		done <- ctx.Err()
		return nil
	})
	cancel()
	s.Wait()

	if err := <-done; err != nil {
		t.Errorf("task context error = %v, want nil", err)
	}
}

func TestSchedulerTimeout(t *testing.T) {
	var reported atomic.Bool
	s := New(WithTimeout(10*time.Millisecond), WithErrorHandler(func(err *TaskError) {
		reported.Store(errors.Is(err, context.DeadlineExceeded))
	}))

	s.Submit(t.Context(), "slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	s.Wait()

	if !reported.Load() {
		t.Error("timeout not reported")
	}
}

func TestSchedulerConcurrencyLimit(t *testing.T) {
	s := New(WithConcurrency(2))
	var running, peak atomic.Int32

	for range 8 {
		s.Submit(t.Context(), "work", func(context.Context) error {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			running.Add(-1)
			return nil
		})
	}
	s.Wait()

	if p := peak.Load(); p > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", p)
	}
}
