// Package worker provides a bounded pool for background jobs.
package worker

import (
	"context"
	"errors"
	"sync"

	"github.com/yieldland/production-core/internal/logger"
)

// ErrQueueFull is returned by Submit when the job queue is at capacity.
var ErrQueueFull = errors.New("worker queue is full")

// Job is a unit of background work.
type Job interface {
	Name() string
	Execute(ctx context.Context) error
}

// Pool runs submitted jobs on a fixed set of workers.
type Pool struct {
	jobs    chan Job
	workers int

	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewPool creates a pool with the given worker count and queue capacity.
func NewPool(workers, queueSize int) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &Pool{
		jobs:    make(chan Job, queueSize),
		workers: workers,
	}
}

// Start launches the workers. They exit when the context is cancelled or the
// pool is stopped.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run(ctx, i)
	}
}

func (p *Pool) run(ctx context.Context, id int) {
	defer p.wg.Done()
	log := logger.FromContext(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			if err := job.Execute(ctx); err != nil {
				log.Error("Job failed", "job", job.Name(), "worker", id, "error", err)
			}
		}
	}
}

// Submit enqueues a job without blocking. Returns ErrQueueFull when the
// queue is at capacity; the caller decides whether dropping is acceptable.
func (p *Pool) Submit(job Job) error {
	select {
	case p.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop closes the queue and waits for in-flight jobs to finish.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		close(p.jobs)
	})
	p.wg.Wait()
}
