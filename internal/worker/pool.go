// Package worker provides a bounded worker pool with non-blocking submission.
package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Sentinel errors for worker pool operations.
var (
	ErrPoolNotStarted     = errors.New("worker pool not started")
	ErrPoolStopped        = errors.New("worker pool stopped")
	ErrPoolAlreadyStarted = errors.New("worker pool already started")
	ErrQueueFull          = errors.New("worker pool queue full")
	ErrStopTimeout        = errors.New("timeout waiting for workers to stop")
)

// Pool runs a processor over submitted items on a fixed number of goroutines.
type Pool[T any] struct {
	workers   int
	processor func(context.Context, T) error

	work chan T
	wg   sync.WaitGroup

	mu      sync.Mutex
	started bool
	stopped bool

	queueDepth prometheus.Gauge
	dropped    prometheus.Counter
}

// Option configures a Pool.
type Option[T any] func(*Pool[T])

// WithQueueGauge reports the queue depth on g after every submit and take.
func WithQueueGauge[T any](g prometheus.Gauge) Option[T] {
	return func(p *Pool[T]) { p.queueDepth = g }
}

// WithDroppedCounter counts submissions rejected with ErrQueueFull.
func WithDroppedCounter[T any](c prometheus.Counter) Option[T] {
	return func(p *Pool[T]) { p.dropped = c }
}

// NewPool creates a pool. Non-positive sizes fall back to 4 workers and 256 queued items.
func NewPool[T any](workers, queueSize int, processor func(context.Context, T) error, opts ...Option[T]) *Pool[T] {
	if workers <= 0 {
		workers = 4
	}
	if queueSize <= 0 {
		queueSize = 256
	}
	p := &Pool[T]{
		workers:   workers,
		processor: processor,
		work:      make(chan T, queueSize),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start launches the workers. They exit when ctx is cancelled or Stop is called.
func (p *Pool[T]) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return ErrPoolAlreadyStarted
	}
	for range p.workers {
		p.wg.Add(1)
		go p.run(ctx)
	}
	p.started = true
	return nil
}

// Submit enqueues an item without blocking.
func (p *Pool[T]) Submit(item T) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case p.stopped:
		return ErrPoolStopped
	case !p.started:
		return ErrPoolNotStarted
	}

	select {
	case p.work <- item:
		p.observeDepth()
		return nil
	default:
		if p.dropped != nil {
			p.dropped.Inc()
		}
		return ErrQueueFull
	}
}

// Stop drains the queue and waits up to timeout for the workers to finish.
func (p *Pool[T]) Stop(timeout time.Duration) error {
	p.mu.Lock()
	if !p.started || p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.stopped = true
	close(p.work)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return nil
	case <-timer.C:
		return ErrStopTimeout
	}
}

// Len returns the number of queued items.
func (p *Pool[T]) Len() int { return len(p.work) }

// Cap returns the queue capacity.
func (p *Pool[T]) Cap() int { return cap(p.work) }

func (p *Pool[T]) run(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case item, ok := <-p.work:
			if !ok {
				return
			}
			p.observeDepth()
			_ = p.processor(ctx, item)
		}
	}
}

func (p *Pool[T]) observeDepth() {
	if p.queueDepth != nil {
		p.queueDepth.Set(float64(len(p.work)))
	}
}
