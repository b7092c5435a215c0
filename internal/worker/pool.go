// Package worker runs generation jobs on a bounded pool of goroutines.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrQueueFull  = errors.New("worker queue is full")
	ErrPoolClosed = errors.New("worker pool is closed")
)

// Job asks for the reply placeholder MessageID to be generated from Content.
type Job struct {
	ID        uuid.UUID
	RequestID uuid.UUID
	TenantID  uuid.UUID
	UserID    uuid.UUID
	SessionID uuid.UUID
	MessageID uuid.UUID
	Content   string
}

type Handler func(ctx context.Context, job Job)

type Middleware func(next Handler) Handler

// Chain wraps h so that the first middleware runs outermost.
func Chain(h Handler, mws ...Middleware) Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

type Pool struct {
	handler Handler
	workers int
	queue   chan Job

	mu      sync.RWMutex
	closed  bool
	started bool
	wg      sync.WaitGroup
}

func NewPool(workers, queueSize int, handler Handler, mws ...Middleware) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	return &Pool{
		handler: Chain(handler, mws...),
		workers: workers,
		queue:   make(chan Job, queueSize),
	}
}

// Start launches the workers. Jobs run with a context detached from ctx's
// cancellation so that Stop can drain the queue after shutdown begins.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true

	jobCtx := context.WithoutCancel(ctx)
	for i := range p.workers {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.queue {
				p.handler(jobCtx, job)
			}
			slog.Debug("worker stopped", "worker", i)
		}()
	}
	slog.Info("worker pool started", "workers", p.workers, "queue_size", cap(p.queue))
}

// Submit enqueues a job without blocking.
func (p *Pool) Submit(job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	select {
	case p.queue <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop rejects new jobs and waits for queued ones to finish.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	started := p.started
	p.mu.Unlock()

	if !started {
		dropped := 0
		for range p.queue {
			dropped++
		}
		if dropped > 0 {
			slog.Warn("worker pool stopped before start, jobs dropped", "count", dropped)
		}
		return
	}
	p.wg.Wait()
	slog.Info("worker pool stopped")
}
