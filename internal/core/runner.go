package core

/*
saleprobe — finds company websites whose domains are parked for sale
Copyright (C) 2025  Pepijn van der Stap <rxtls@vanderstap.info>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/x-stp/saleprobe/internal/metrics"
	"github.com/x-stp/saleprobe/internal/probe"

	"golang.org/x/time/rate"
)

// Checker maps one address to a status label. Implementations must not panic
// and must return for every input; *probe.Prober is the production Checker.
type Checker interface {
	Check(ctx context.Context, address string) probe.Status
}

// RunnerConfig holds configuration for the runner.
type RunnerConfig struct {
	// Concurrency is the number of probes in flight. Zero means DefaultProbeWorkers;
	// a negative value starts one goroutine per row with no cap.
	Concurrency int
	// PinWorkers binds scheduler workers to CPU cores on Linux.
	PinWorkers bool
	// Debug logs every probe result.
	Debug bool
}

// Runner probes every row exactly once and collects the statuses.
type Runner struct {
	checker  Checker
	config   RunnerConfig
	stats    *RunStats
	progress rate.Sometimes
}

// NewRunner creates a runner. A nil config uses the defaults.
func NewRunner(checker Checker, config *RunnerConfig) *Runner {
	r := &Runner{
		checker:  checker,
		stats:    &RunStats{StartTime: time.Now()},
		progress: rate.Sometimes{Interval: MinimumProgressLoggingInterval},
	}
	if config != nil {
		r.config = *config
	}
	return r
}

// GetStats returns the live statistics of the runner.
func (r *Runner) GetStats() *RunStats { return r.stats }

// Unbounded reports whether the runner starts one goroutine per row.
func (r *Runner) Unbounded() bool { return r.config.Concurrency < 0 }

// Run probes all rows and returns once every probe has finished. The result set
// holds exactly one entry per row. Row IDs must be unique. If ctx is cancelled
// before the run completes, partial results are discarded and the error wraps
// ErrRunCancelled.
func (r *Runner) Run(ctx context.Context, rows []Row) (*ResultSet, error) {
	if err := CheckDuplicates(rows); err != nil {
		return nil, err
	}
	r.stats.TotalRows.Add(int64(len(rows)))
	results := NewResultSet(len(rows))
	if len(rows) == 0 {
		return results, nil
	}

	var err error
	if r.Unbounded() {
		log.Printf("Probing %d rows, one goroutine per row", len(rows))
		err = r.runUnbounded(ctx, rows, results)
	} else {
		err = r.runBounded(ctx, rows, results)
	}
	if ctx.Err() != nil {
		return nil, fmt.Errorf("%w: %w", ErrRunCancelled, ctx.Err())
	}
	if err != nil {
		return nil, err
	}
	if results.Len() != len(rows) {
		return nil, fmt.Errorf("incomplete results: %d of %d rows", results.Len(), len(rows))
	}
	return results, nil
}

func (r *Runner) runBounded(ctx context.Context, rows []Row, results *ResultSet) error {
	workers := r.config.Concurrency
	if workers == 0 {
		workers = DefaultProbeWorkers
	}
	if workers > len(rows) {
		workers = len(rows)
	}

	scheduler, err := NewScheduler(ctx, SchedulerConfig{Workers: workers, PinWorkers: r.config.PinWorkers})
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}
	defer scheduler.Shutdown()
	log.Printf("Probing %d rows with %d workers", len(rows), scheduler.NumWorkers())

	m := metrics.GetMetrics()
	callback := func(item *WorkItem) error {
		r.probeRow(item.Ctx, item.Row, results)
		m.RecordCompleted("bounded")
		return nil
	}

	for _, row := range rows {
		err := scheduler.TrySubmit(ctx, row.ID, row, callback)
		if IsRetryable(err) {
			r.stats.Backpressure.Add(1)
			err = scheduler.Submit(ctx, row.ID, row, callback)
		}
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			return fmt.Errorf("submit row %q: %w", row.ID, err)
		}
		m.RecordSubmitted("bounded")
	}

	scheduler.Close()
	if n := scheduler.Panics(); n > 0 {
		log.Printf("Recovered %d panics in scheduler workers", n)
	}
	return nil
}

func (r *Runner) runUnbounded(ctx context.Context, rows []Row, results *ResultSet) error {
	m := metrics.GetMetrics()
	var wg sync.WaitGroup
	for _, row := range rows {
		wg.Add(1)
		m.RecordSubmitted("unbounded")
		go func(row Row) {
			defer wg.Done()
			r.probeRow(ctx, row, results)
			m.RecordCompleted("unbounded")
		}(row)
	}
	wg.Wait()
	return nil
}

// probeRow records exactly one status for row.
func (r *Runner) probeRow(ctx context.Context, row Row, results *ResultSet) {
	status := r.check(ctx, row)
	if err := results.Set(row.ID, status); err != nil {
		log.Printf("Error recording result: %v", err)
		return
	}
	r.stats.record(status)

	if r.config.Debug {
		log.Printf("Row %s (%s): %s", row.ID, row.Address, status)
	}
	r.progress.Do(func() {
		log.Printf("Progress: %d/%d rows probed, %d for sale",
			r.stats.CompletedRows.Load(), r.stats.TotalRows.Load(), r.stats.ForSale.Load())
	})
}

// check calls the checker, turning a panic into an error status.
func (r *Runner) check(ctx context.Context, row Row) (status probe.Status) {
	defer func() {
		if rec := recover(); rec != nil {
			r.stats.Panics.Add(1)
			log.Printf("Panic recovered probing row %s: %v", row.ID, rec)
			status = probe.ErrorStatus(fmt.Sprintf("panic: %v", rec))
		}
	}()
	return r.checker.Check(ctx, row.Address)
}
