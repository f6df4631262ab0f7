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
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/x-stp/saleprobe/internal/metrics"

	"github.com/zeebo/xxh3"
)

// SchedulerConfig controls the size and placement of the worker pool.
type SchedulerConfig struct {
	// Workers is the number of worker goroutines. Zero means DefaultProbeWorkers;
	// values above MaxWorkers are clamped.
	Workers int
	// QueueCapacity is the buffer size of the shared queue that holds items no
	// idle worker could take. Zero means WorkerQueueCapacity.
	QueueCapacity int
	// PinWorkers binds each worker to a CPU core on Linux.
	PinWorkers bool
}

// Scheduler manages a pool of worker goroutines. An item is handed to an idle
// worker directly, starting at the worker owning the hash of its key; when every
// worker is busy it waits in a shared queue that all workers drain. An item never
// waits behind a busy worker while another one is idle.
//
// Every accepted item is either executed or, once the scheduler's context is
// cancelled, skipped; it is never lost, so Wait always returns.
type Scheduler struct {
	numWorkers   int
	workers      []*worker          // Slice of worker goroutine managers.
	queue        chan *WorkItem     // Shared overflow queue, drained by every worker.
	ctx          context.Context    // Master context for shutdown signalling.
	cancel       context.CancelFunc // Function to trigger shutdown.
	shutdown     atomic.Bool        // Flag to prevent submitting work during/after shutdown.
	submitMu     sync.RWMutex       // Held shared by Submit, exclusively while queues are closed.
	workItemPool sync.Pool          // Pool for reusing WorkItem structs.
	activeWork   sync.WaitGroup     // Tracks submitted items until they finish or are skipped.
	workersDone  sync.WaitGroup     // Tracks worker goroutines.
	skipped      atomic.Int64       // Items dropped from queues after cancellation.
	panics       atomic.Int64       // Panics recovered from callbacks.
}

// worker encapsulates a single worker goroutine and its state.
type worker struct {
	id          int            // Identifier for logging/metrics.
	cpuAffinity int            // Target CPU core ID, or -1 when pinning is off.
	handoff     chan *WorkItem // Unbuffered: a send succeeds only while the worker is idle.
	scheduler   *Scheduler     // Pointer back to the scheduler for accessing shared resources (e.g., pool).
}

// NewScheduler creates, configures, and starts the scheduler and its worker pool.
func NewScheduler(parentCtx context.Context, config SchedulerConfig) (*Scheduler, error) {
	if config.Workers < 0 {
		return nil, fmt.Errorf("invalid worker count %d", config.Workers)
	}
	numWorkers := config.Workers
	if numWorkers == 0 {
		numWorkers = DefaultProbeWorkers
	}
	if numWorkers > MaxWorkers {
		numWorkers = MaxWorkers
	}
	queueCap := config.QueueCapacity
	if queueCap <= 0 {
		queueCap = WorkerQueueCapacity
	}

	sctx, cancel := context.WithCancel(parentCtx)

	s := &Scheduler{
		numWorkers: numWorkers,
		workers:    make([]*worker, numWorkers),
		queue:      make(chan *WorkItem, queueCap),
		ctx:        sctx,
		cancel:     cancel,
		workItemPool: sync.Pool{
			New: func() interface{} {
				return &WorkItem{}
			},
		},
	}

	m := metrics.GetMetrics()
	m.UpdateQueueMetrics(0, queueCap)
	for i := 0; i < numWorkers; i++ {
		w := &worker{
			id:          i,
			cpuAffinity: -1,
			handoff:     make(chan *WorkItem),
			scheduler:   s,
		}
		if config.PinWorkers {
			w.cpuAffinity = i % runtime.NumCPU() // Simple round-robin core assignment.
		}
		s.workers[i] = w
		s.workersDone.Add(1)
		go w.run()
	}

	if config.PinWorkers {
		log.Printf("Scheduler initialized with %d workers (CPU affinity enabled).\n", numWorkers)
	} else {
		log.Printf("Scheduler initialized with %d workers.\n", numWorkers)
	}
	return s, nil
}

// NumWorkers returns the size of the worker pool.
func (s *Scheduler) NumWorkers() int { return s.numWorkers }

// run is the processing loop for a single worker goroutine. It takes items from
// its own handoff channel and from the shared queue, and exits once Shutdown
// has closed both.
func (w *worker) run() {
	defer w.scheduler.workersDone.Done()
	if w.cpuAffinity >= 0 {
		setAffinity(w.id, w.cpuAffinity)
	}

	handoff, shared := w.handoff, w.scheduler.queue
	for handoff != nil || shared != nil {
		var item *WorkItem
		var ok bool
		select {
		case item, ok = <-handoff:
			if !ok {
				handoff = nil
				continue
			}
		case item, ok = <-shared:
			if !ok {
				shared = nil
				continue
			}
			metrics.GetMetrics().UpdateQueueMetrics(len(w.scheduler.queue), cap(w.scheduler.queue))
		}
		if item != nil {
			w.process(item)
		}
	}
}

func (w *worker) process(item *WorkItem) {
	if w.scheduler.ctx.Err() != nil {
		// Cancelled: drain without executing so Wait can return.
		w.scheduler.skipped.Add(1)
		w.finish(item)
		return
	}

	m := metrics.GetMetrics()
	m.SetWorkerBusy(w.id, true)
	panicked := w.execute(item)
	m.SetWorkerBusy(w.id, false)
	m.RecordWorkerDone(w.id, panicked)
	w.finish(item)
}

// execute runs the item callback, recovering from panics.
func (w *worker) execute(item *WorkItem) (panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			panicked = true
			w.scheduler.panics.Add(1)
			log.Printf("Panic recovered in worker %d processing item %s: %v", w.id, item.Key, r)
		}
	}()

	if err := item.Callback(item); err != nil {
		log.Printf("Error processing item %s: %v\n", item.Key, err)
	}
	return false
}

// finish releases an item back to the pool and marks it done.
func (w *worker) finish(item *WorkItem) {
	item.reset()
	w.scheduler.workItemPool.Put(item)
	w.scheduler.activeWork.Done()
}

// shardFor returns the index of the worker owning key.
func (s *Scheduler) shardFor(key string) int {
	return int(xxh3.HashString(key) % uint64(s.numWorkers))
}

func (s *Scheduler) newItem(ctx context.Context, key string, row Row, callback WorkCallback) *WorkItem {
	item := s.workItemPool.Get().(*WorkItem)
	item.Key = key
	item.Row = row
	item.Callback = callback
	item.Ctx = ctx
	return item
}

func (s *Scheduler) releaseUnsent(item *WorkItem) {
	item.reset()
	s.workItemPool.Put(item)
	s.activeWork.Done()
}

// place hands item to the first idle worker, starting at the owner of its key,
// then tries the shared queue. It never blocks.
func (s *Scheduler) place(item *WorkItem) bool {
	start := s.shardFor(item.Key)
	for i := 0; i < s.numWorkers; i++ {
		w := s.workers[(start+i)%s.numWorkers]
		select {
		case w.handoff <- item:
			return true
		default:
		}
	}
	select {
	case s.queue <- item:
		metrics.GetMetrics().UpdateQueueMetrics(len(s.queue), cap(s.queue))
		return true
	default:
		return false
	}
}

// TrySubmit hands a work item to an idle worker or the shared queue without
// blocking. It returns ErrQueueFull when every worker is busy and the shared
// queue has no room.
func (s *Scheduler) TrySubmit(ctx context.Context, key string, row Row, callback WorkCallback) error {
	s.submitMu.RLock()
	defer s.submitMu.RUnlock()
	if s.shutdown.Load() {
		return ErrWorkerShutdown
	}

	item := s.newItem(ctx, key, row, callback)
	s.activeWork.Add(1)
	if s.place(item) {
		return nil
	}
	s.releaseUnsent(item)
	return fmt.Errorf("row %s: %w", key, ErrQueueFull)
}

// Submit is TrySubmit that waits for room in the shared queue instead of
// failing. It fails only when ctx is done or the scheduler is shutting down.
func (s *Scheduler) Submit(ctx context.Context, key string, row Row, callback WorkCallback) error {
	s.submitMu.RLock()
	defer s.submitMu.RUnlock()
	if s.shutdown.Load() {
		return ErrWorkerShutdown
	}

	item := s.newItem(ctx, key, row, callback)
	s.activeWork.Add(1)
	if s.place(item) {
		return nil
	}

	select {
	case s.queue <- item:
		return nil
	case <-ctx.Done():
		s.releaseUnsent(item)
		return ctx.Err()
	case <-s.ctx.Done():
		s.releaseUnsent(item)
		return ErrWorkerShutdown
	}
}

// Wait waits until all submitted work items have been processed or skipped.
func (s *Scheduler) Wait() {
	s.activeWork.Wait()
}

// Skipped returns how many queued items were dropped after cancellation.
func (s *Scheduler) Skipped() int64 { return s.skipped.Load() }

// Panics returns how many callback panics the workers recovered.
func (s *Scheduler) Panics() int64 { return s.panics.Load() }

// Shutdown stops accepting work, cancels in-flight items' scheduler context,
// and waits for every worker goroutine to exit. Safe to call more than once.
func (s *Scheduler) Shutdown() {
	if !s.shutdown.CompareAndSwap(false, true) {
		s.workersDone.Wait()
		return
	}
	// Cancel first so a Submit blocked on a full queue lets go of submitMu.
	s.cancel()
	s.submitMu.Lock()
	for _, w := range s.workers {
		close(w.handoff)
	}
	close(s.queue)
	s.submitMu.Unlock()
	s.workersDone.Wait()
}

// Close waits for the queued work to finish, then shuts the pool down.
func (s *Scheduler) Close() {
	s.Wait()
	s.Shutdown()
}
