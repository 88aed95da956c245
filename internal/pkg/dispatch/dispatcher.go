package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Task is a unit of detached work. Failures are logged by the dispatcher;
// nobody waits for the result.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

type dropObserver interface {
	RecordTaskDropped()
}

// Dispatcher runs tasks on a fixed set of workers fed by a bounded queue.
type Dispatcher struct {
	workers int
	timeout time.Duration
	obs     dropObserver

	mu      sync.RWMutex
	queue   chan Task
	closed  bool
	group   *errgroup.Group
	started bool
}

// New creates a dispatcher with the given worker count and queue capacity.
// Each task runs with its own timeout. obs may be nil.
func New(workers, queueSize int, timeout time.Duration, obs dropObserver) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	return &Dispatcher{
		workers: workers,
		timeout: timeout,
		obs:     obs,
		queue:   make(chan Task, queueSize),
	}
}

// Start launches the workers. Tasks inherit ctx values but not its
// cancellation, so queued work still drains during Stop.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return
	}
	d.started = true
	d.group = &errgroup.Group{}
	base := context.WithoutCancel(ctx)
	for i := 0; i < d.workers; i++ {
		d.group.Go(func() error {
			for t := range d.queue {
				d.run(base, t)
			}
			return nil
		})
	}
}

// Submit enqueues t without blocking. It reports false when the queue is full
// or the dispatcher has been stopped.
func (d *Dispatcher) Submit(t Task) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return false
	}
	select {
	case d.queue <- t:
		return true
	default:
		slog.Warn("dispatch queue full, dropping task", "task", t.Name)
		if d.obs != nil {
			d.obs.RecordTaskDropped()
		}
		return false
	}
}

// Stop refuses new tasks and waits until the queued ones have run.
func (d *Dispatcher) Stop() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	g := d.group
	d.mu.Unlock()
	if g == nil {
		return nil
	}
	return g.Wait()
}

func (d *Dispatcher) run(base context.Context, t Task) {
	ctx := base
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(base, d.timeout)
		defer cancel()
	}
	start := time.Now()
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return t.Run(ctx)
	}()
	if err != nil {
		slog.Error("background task failed", "task", t.Name, "err", err, "duration", time.Since(start))
		return
	}
	slog.Debug("background task done", "task", t.Name, "duration", time.Since(start))
}
