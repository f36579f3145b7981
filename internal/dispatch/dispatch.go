package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Task is a best-effort side effect. It receives its own context, detached
// from the request that queued it.
type Task func(ctx context.Context) error

type job struct {
	name string
	fn   Task
}

// Dispatcher runs tasks on a fixed pool of workers fed by a bounded queue.
type Dispatcher struct {
	queue   chan job
	timeout time.Duration
	log     *slog.Logger
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func New(workers, queueSize int, timeout time.Duration, log *slog.Logger) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	if log == nil {
		log = slog.Default()
	}
	d := &Dispatcher{queue: make(chan job, queueSize), timeout: timeout, log: log}
	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.worker()
	}
	return d
}

// Submit queues fn without blocking. It returns false, and logs, when the
// queue is full or the dispatcher is closed.
func (d *Dispatcher) Submit(name string, fn Task) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.log.Warn("dispatch closed, dropping task", "task", name)
		return false
	}
	select {
	case d.queue <- job{name: name, fn: fn}:
		return true
	default:
		d.log.Error("dispatch queue full, dropping task", "task", name)
		return false
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for j := range d.queue {
		d.run(j)
	}
}

func (d *Dispatcher) run(j job) {
	ctx := context.Background()
	var cancel context.CancelFunc = func() {}
	if d.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
	}
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("dispatch task panicked", "task", j.name, "error", fmt.Errorf("panic: %v", r))
		}
	}()
	if err := j.fn(ctx); err != nil {
		d.log.Error("dispatch task failed", "task", j.name, "error", err)
	}
}

// Close stops accepting tasks and waits for queued ones to finish or for ctx
// to end.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Join(errors.New("dispatch: queue not drained"), ctx.Err())
	}
}
