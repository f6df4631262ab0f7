package core

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/x-stp/saleprobe/internal/probe"
)

// mapChecker returns a fixed status per address and counts calls.
type mapChecker struct {
	mu       sync.Mutex
	statuses map[string]probe.Status
	calls    map[string]int
	inFlight atomic.Int64
	maxSeen  atomic.Int64
	delay    time.Duration
}

func newMapChecker(statuses map[string]probe.Status) *mapChecker {
	return &mapChecker{statuses: statuses, calls: make(map[string]int)}
}

func (c *mapChecker) Check(ctx context.Context, address string) probe.Status {
	n := c.inFlight.Add(1)
	defer c.inFlight.Add(-1)
	for {
		old := c.maxSeen.Load()
		if n <= old || c.maxSeen.CompareAndSwap(old, n) {
			break
		}
	}
	if c.delay > 0 {
		time.Sleep(c.delay)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[address]++
	if s, ok := c.statuses[address]; ok {
		return s
	}
	return probe.StatusOpeningNormally
}

func makeRows(n int) []Row {
	rows := make([]Row, n)
	for i := range rows {
		rows[i] = Row{ID: itoa(i), Address: "site-" + itoa(i) + ".example"}
	}
	return rows
}

func TestRunnerOneResultPerRow(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		concurrency int
	}{
		{name: "default pool", concurrency: 0},
		{name: "small pool", concurrency: 3},
		{name: "pool larger than input", concurrency: 1000},
		{name: "unbounded", concurrency: -1},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rows := makeRows(150)
			checker := newMapChecker(map[string]probe.Status{
				"site-3.example": probe.StatusForSale,
				"site-9.example": probe.StatusTimedOut,
			})
			r := NewRunner(checker, &RunnerConfig{Concurrency: tt.concurrency})

			results, err := r.Run(context.Background(), rows)
			if err != nil {
				t.Fatalf("run: %v", err)
			}
			if results.Len() != len(rows) {
				t.Fatalf("results = %d, want %d", results.Len(), len(rows))
			}
			for _, row := range rows {
				if checker.calls[row.Address] != 1 {
					t.Fatalf("row %s probed %d times", row.ID, checker.calls[row.Address])
				}
			}
			if got, _ := results.Get("3"); got != probe.StatusForSale {
				t.Fatalf("row 3 = %q", got)
			}
			if got, _ := results.Get("9"); got != probe.StatusTimedOut {
				t.Fatalf("row 9 = %q", got)
			}

			stats := r.GetStats()
			if stats.CompletedRows.Load() != int64(len(rows)) {
				t.Fatalf("completed = %d", stats.CompletedRows.Load())
			}
			if stats.ForSale.Load() != 1 || stats.Timeouts.Load() != 1 {
				t.Fatalf("for sale = %d, timeouts = %d", stats.ForSale.Load(), stats.Timeouts.Load())
			}
		})
	}
}

func TestRunnerBoundsConcurrency(t *testing.T) {
	t.Parallel()

	checker := newMapChecker(nil)
	checker.delay = 5 * time.Millisecond
	r := NewRunner(checker, &RunnerConfig{Concurrency: 4})

	if _, err := r.Run(context.Background(), makeRows(40)); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := checker.maxSeen.Load(); got > 4 {
		t.Fatalf("saw %d concurrent probes with concurrency 4", got)
	}
}

func TestRunnerAllRowsInFlightTogether(t *testing.T) {
	t.Parallel()

	const n = 16
	checker := newMapChecker(nil)
	checker.delay = 200 * time.Millisecond
	r := NewRunner(checker, &RunnerConfig{Concurrency: n})

	start := time.Now()
	results, err := r.Run(context.Background(), makeRows(n))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	elapsed := time.Since(start)
	if results.Len() != n {
		t.Fatalf("results = %d, want %d", results.Len(), n)
	}
	if got := checker.maxSeen.Load(); got != n {
		t.Fatalf("max in flight = %d, want %d", got, n)
	}
	if elapsed > 3*checker.delay {
		t.Fatalf("run took %v, want about one check (%v)", elapsed, checker.delay)
	}
}

func TestRunnerRejectsDuplicateIDs(t *testing.T) {
	t.Parallel()

	checker := newMapChecker(nil)
	r := NewRunner(checker, nil)
	rows := []Row{{ID: "1", Address: "a"}, {ID: "1", Address: "b"}}

	_, err := r.Run(context.Background(), rows)
	if !errors.Is(err, ErrDuplicateRow) {
		t.Fatalf("expected ErrDuplicateRow, got %v", err)
	}
	if len(checker.calls) != 0 {
		t.Fatalf("expected no probes before fan-out, got %d", len(checker.calls))
	}
}

func TestRunnerEmptyInput(t *testing.T) {
	t.Parallel()

	results, err := NewRunner(newMapChecker(nil), nil).Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if results.Len() != 0 {
		t.Fatalf("expected empty result set, got %d", results.Len())
	}
}

type panicChecker struct{}

func (panicChecker) Check(ctx context.Context, address string) probe.Status {
	if address == "bad" {
		panic("exploded")
	}
	return probe.StatusOpeningNormally
}

func TestRunnerPanicStillYieldsResult(t *testing.T) {
	t.Parallel()

	for _, concurrency := range []int{2, -1} {
		r := NewRunner(panicChecker{}, &RunnerConfig{Concurrency: concurrency})
		rows := []Row{{ID: "1", Address: "good"}, {ID: "2", Address: "bad"}}

		results, err := r.Run(context.Background(), rows)
		if err != nil {
			t.Fatalf("concurrency %d: run: %v", concurrency, err)
		}
		got, ok := results.Get("2")
		if !ok || got != probe.Status("An error occurred: panic: exploded") {
			t.Fatalf("concurrency %d: row 2 = %q, %v", concurrency, got, ok)
		}
		if r.GetStats().Panics.Load() != 1 {
			t.Fatalf("concurrency %d: panics = %d", concurrency, r.GetStats().Panics.Load())
		}
	}
}

// blockingChecker blocks every probe until its context is done.
type blockingChecker struct {
	started chan struct{}
	once    sync.Once
}

func (c *blockingChecker) Check(ctx context.Context, address string) probe.Status {
	c.once.Do(func() { close(c.started) })
	<-ctx.Done()
	return probe.StatusTimedOut
}

func TestRunnerCancellationDiscardsResults(t *testing.T) {
	t.Parallel()

	for _, concurrency := range []int{2, -1} {
		checker := &blockingChecker{started: make(chan struct{})}
		r := NewRunner(checker, &RunnerConfig{Concurrency: concurrency})
		ctx, cancel := context.WithCancel(context.Background())

		go func() {
			<-checker.started
			cancel()
		}()

		results, err := r.Run(ctx, makeRows(20))
		cancel()
		if !errors.Is(err, ErrRunCancelled) {
			t.Fatalf("concurrency %d: expected ErrRunCancelled, got %v", concurrency, err)
		}
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("concurrency %d: expected wrapped context.Canceled, got %v", concurrency, err)
		}
		if results != nil {
			t.Fatalf("concurrency %d: expected no results", concurrency)
		}
	}
}

func TestRunStatsBreakdown(t *testing.T) {
	t.Parallel()

	s := &RunStats{StartTime: time.Now()}
	for _, st := range []probe.Status{
		probe.StatusForSale,
		probe.StatusForSale,
		probe.StatusCodeStatus(404),
		probe.StatusInvalidURL,
		probe.ErrorStatus("boom"),
		probe.StatusConnectionError,
	} {
		s.record(st)
	}

	want := map[string]int64{
		string(probe.StatusForSale):         2,
		"Other status codes":                1,
		string(probe.StatusInvalidURL):      1,
		"Other errors":                      1,
		string(probe.StatusConnectionError): 1,
	}
	for _, line := range s.Breakdown() {
		if line.Count != want[line.Label] {
			t.Fatalf("%s = %d, want %d", line.Label, line.Count, want[line.Label])
		}
	}
	if s.CompletedRows.Load() != 6 {
		t.Fatalf("completed = %d, want 6", s.CompletedRows.Load())
	}
}
