package utils

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestSeenSetNoDuplicates(t *testing.T) {
	s := NewSeenSet()

	added := s.Add("https://example.com/listing/1")
	if !added {
		t.Error("first Add should return true")
	}

	added = s.Add("https://example.com/listing/1")
	if added {
		t.Error("second Add of same key should return false")
	}

	if s.Size() != 1 {
		t.Errorf("size: got %d, want 1", s.Size())
	}
}

func TestSeenSetConcurrency(t *testing.T) {
	s := NewSeenSet()
	var added int64

	pool := NewWorkerPool(10, 0)
	for i := 0; i < 100; i++ {
		key := "https://example.com/listing/same"
		pool.Submit(context.Background(), func(context.Context) {
			if s.Add(key) {
				atomic.AddInt64(&added, 1)
			}
		})
	}
	pool.Wait()

	if added != 1 {
		t.Errorf("expected exactly 1 successful add, got %d", added)
	}
}

func TestWorkerPoolRateLimit(t *testing.T) {
	rateLimitMs := 100
	pool := NewWorkerPool(1, rateLimitMs)

	var timestamps []time.Time
	mu := make(chan struct{}, 1)
	mu <- struct{}{}

	for i := 0; i < 3; i++ {
		pool.Submit(context.Background(), func(context.Context) {
			<-mu
			timestamps = append(timestamps, time.Now())
			mu <- struct{}{}
		})
	}
	pool.Wait()

	for i := 1; i < len(timestamps); i++ {
		gap := timestamps[i].Sub(timestamps[i-1])
		min := time.Duration(rateLimitMs) * time.Millisecond
		if gap < min {
			t.Errorf("gap between job %d and %d: %v < minimum %v", i-1, i, gap, min)
		}
	}
}

func TestWorkerPoolSkipsJobsAfterCancel(t *testing.T) {
	pool := NewWorkerPool(1, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ran int64
	for i := 0; i < 5; i++ {
		pool.Submit(ctx, func(context.Context) {
			atomic.AddInt64(&ran, 1)
		})
	}
	pool.Wait()

	if ran != 0 {
		t.Errorf("expected 0 jobs to run after cancellation, got %d", ran)
	}
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	logger := NewLogger()
	r := &RetryConfig{MaxAttempts: 5, BaseDelay: time.Hour, Logger: logger}

	sentinel := errors.New("layout drifted")
	var attempts int64

	err := r.Do(context.Background(), "deterministic-failure", func() error {
		atomic.AddInt64(&attempts, 1)
		return Permanent(sentinel)
	})

	if !errors.Is(err, sentinel) {
		t.Errorf("expected the underlying sentinel back, got %v", err)
	}
	if got := atomic.LoadInt64(&attempts); got != 1 {
		t.Errorf("expected exactly 1 attempt for a permanent error, got %d", got)
	}
}

func TestRetryStopsOnContextCancel(t *testing.T) {
	logger := NewLogger()
	r := &RetryConfig{MaxAttempts: 5, BaseDelay: time.Hour, Logger: logger}

	ctx, cancel := context.WithCancel(context.Background())
	var attempts int64

	done := make(chan error, 1)
	go func() {
		done <- r.Do(ctx, "never-succeeds", func() error {
			atomic.AddInt64(&attempts, 1)
			return context.DeadlineExceeded
		})
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Error("expected an error after cancellation")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("retry did not stop after context cancellation")
	}

	if got := atomic.LoadInt64(&attempts); got != 1 {
		t.Errorf("expected 1 attempt before the backoff wait, got %d", got)
	}
}
