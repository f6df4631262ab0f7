package core

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSchedulerRunsEverySubmittedItem(t *testing.T) {
	t.Parallel()

	s, err := NewScheduler(context.Background(), SchedulerConfig{Workers: 4, QueueCapacity: 1})
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	defer s.Shutdown()

	var mu sync.Mutex
	seen := make(map[string]int)
	cb := func(item *WorkItem) error {
		mu.Lock()
		seen[item.Row.ID]++
		mu.Unlock()
		return nil
	}

	const n = 200
	for i := 0; i < n; i++ {
		row := Row{ID: itoa(i)}
		if err := s.Submit(context.Background(), row.ID, row, cb); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}
	s.Wait()

	if len(seen) != n {
		t.Fatalf("expected %d distinct items, got %d", n, len(seen))
	}
	for id, c := range seen {
		if c != 1 {
			t.Fatalf("item %s ran %d times", id, c)
		}
	}
}

func TestSchedulerSameKeySameWorker(t *testing.T) {
	t.Parallel()

	s, err := NewScheduler(context.Background(), SchedulerConfig{Workers: 8})
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	defer s.Shutdown()

	for _, key := range []string{"1", "42", "company-7"} {
		if s.shardFor(key) != s.shardFor(key) {
			t.Fatalf("key %q sharded to different workers", key)
		}
	}
}

func TestSchedulerIdleWorkersTakeCollidingKeys(t *testing.T) {
	t.Parallel()

	const workers = 8
	s, err := NewScheduler(context.Background(), SchedulerConfig{Workers: workers})
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	defer s.Shutdown()
	release := make(chan struct{})
	defer close(release)

	// Keys that all hash to the same worker.
	home := s.shardFor("0")
	var keys []string
	for i := 0; len(keys) < workers; i++ {
		if k := itoa(i); s.shardFor(k) == home {
			keys = append(keys, k)
		}
	}

	var started sync.WaitGroup
	started.Add(workers)
	cb := func(item *WorkItem) error {
		started.Done()
		<-release
		return nil
	}
	for _, k := range keys {
		if err := s.Submit(context.Background(), k, Row{ID: k}, cb); err != nil {
			t.Fatalf("submit %s: %v", k, err)
		}
	}

	allStarted := make(chan struct{})
	go func() {
		started.Wait()
		close(allStarted)
	}()
	select {
	case <-allStarted:
	case <-time.After(5 * time.Second):
		t.Fatalf("items sharing a home worker did not run on idle workers")
	}
}

func TestSchedulerTrySubmitReportsFullQueue(t *testing.T) {
	t.Parallel()

	s, err := NewScheduler(context.Background(), SchedulerConfig{Workers: 1, QueueCapacity: 1})
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	defer s.Shutdown()

	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once
	block := func(item *WorkItem) error {
		once.Do(func() { close(started) })
		<-release
		return nil
	}

	if err := s.Submit(context.Background(), "a", Row{ID: "a"}, block); err != nil {
		t.Fatalf("submit a: %v", err)
	}
	<-started // worker holds "a"; the shared queue is empty again
	if err := s.TrySubmit(context.Background(), "b", Row{ID: "b"}, block); err != nil {
		t.Fatalf("try submit b: %v", err)
	}
	err = s.TrySubmit(context.Background(), "c", Row{ID: "c"}, block)
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	if !IsRetryable(err) {
		t.Fatalf("expected wrapped ErrQueueFull to be retryable")
	}

	close(release)
	s.Wait()
}

func TestSchedulerSubmitBlocksUntilContextDone(t *testing.T) {
	t.Parallel()

	s, err := NewScheduler(context.Background(), SchedulerConfig{Workers: 1, QueueCapacity: 1})
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	defer s.Shutdown()

	release := make(chan struct{})
	block := func(item *WorkItem) error {
		<-release
		return nil
	}
	// One item running, one in the shared queue.
	for _, id := range []string{"a", "b"} {
		if err := s.Submit(context.Background(), id, Row{ID: id}, block); err != nil {
			t.Fatalf("submit %s: %v", id, err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err = s.Submit(ctx, "c", Row{ID: "c"}, block)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}

	close(release)
	s.Wait()
}

func TestSchedulerRecoversPanics(t *testing.T) {
	t.Parallel()

	s, err := NewScheduler(context.Background(), SchedulerConfig{Workers: 2})
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	defer s.Shutdown()

	var ran atomic.Int64
	cb := func(item *WorkItem) error {
		ran.Add(1)
		if item.Row.ID == "boom" {
			panic("boom")
		}
		return nil
	}
	for _, id := range []string{"boom", "ok-1", "ok-2"} {
		if err := s.Submit(context.Background(), id, Row{ID: id}, cb); err != nil {
			t.Fatalf("submit %s: %v", id, err)
		}
	}
	s.Wait()

	if ran.Load() != 3 {
		t.Fatalf("expected 3 callbacks, got %d", ran.Load())
	}
	if s.Panics() != 1 {
		t.Fatalf("expected 1 recovered panic, got %d", s.Panics())
	}
}

func TestSchedulerShutdownDrainsQueuedItemsWithoutRunningThem(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s, err := NewScheduler(ctx, SchedulerConfig{Workers: 1, QueueCapacity: 4})
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}

	started := make(chan struct{})
	var ran atomic.Int64
	cb := func(item *WorkItem) error {
		if ran.Add(1) == 1 {
			close(started)
			<-item.Ctx.Done()
		}
		return nil
	}
	for _, id := range []string{"a", "b", "c"} {
		if err := s.Submit(ctx, id, Row{ID: id}, cb); err != nil {
			t.Fatalf("submit %s: %v", id, err)
		}
	}
	<-started
	cancel()

	done := make(chan struct{})
	go func() {
		s.Wait()
		s.Shutdown()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("scheduler did not drain after cancellation")
	}

	if ran.Load() != 1 {
		t.Fatalf("expected only the in-flight item to run, got %d", ran.Load())
	}
	if s.Skipped() != 2 {
		t.Fatalf("expected 2 skipped items, got %d", s.Skipped())
	}
	if err := s.Submit(context.Background(), "d", Row{ID: "d"}, cb); !errors.Is(err, ErrWorkerShutdown) {
		t.Fatalf("expected ErrWorkerShutdown after shutdown, got %v", err)
	}
	s.Shutdown() // idempotent
}

func TestNewSchedulerWorkerCount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		workers int
		want    int
		wantErr bool
	}{
		{name: "default", workers: 0, want: DefaultProbeWorkers},
		{name: "explicit", workers: 3, want: 3},
		{name: "clamped", workers: MaxWorkers + 10, want: MaxWorkers},
		{name: "negative", workers: -1, wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s, err := NewScheduler(context.Background(), SchedulerConfig{Workers: tt.workers})
			if tt.wantErr {
				if err == nil {
					s.Shutdown()
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			defer s.Shutdown()
			if s.NumWorkers() != tt.want {
				t.Fatalf("workers = %d, want %d", s.NumWorkers(), tt.want)
			}
		})
	}
}
