// Package scheduler submits recurring jobs to the worker pool on a fixed
// interval.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/yieldland/production-core/internal/logger"
	"github.com/yieldland/production-core/internal/worker"
)

type entry struct {
	interval time.Duration
	job      worker.Job
}

// Scheduler drives periodic jobs. Register everything with Every before
// calling Start.
type Scheduler struct {
	pool    *worker.Pool
	entries []entry

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a new Scheduler backed by the given pool.
func NewScheduler(pool *worker.Pool) *Scheduler {
	return &Scheduler{pool: pool}
}

// Every registers a job to run on the given interval.
func (s *Scheduler) Every(interval time.Duration, job worker.Job) {
	s.entries = append(s.entries, entry{interval: interval, job: job})
}

// Start launches one ticker goroutine per registered job.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	for _, e := range s.entries {
		s.wg.Add(1)
		go s.loop(ctx, e)
	}
}

func (s *Scheduler) loop(ctx context.Context, e entry) {
	defer s.wg.Done()
	log := logger.FromContext(ctx)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.pool.Submit(e.job); err != nil {
				if errors.Is(err, worker.ErrQueueFull) {
					// Skipped ticks are made up by the next run.
					log.Warn("Tick dropped, queue full", "job", e.job.Name())
					continue
				}
				log.Error("Failed to submit job", "job", e.job.Name(), "error", err)
			}
		}
	}
}

// Stop halts the tickers. In-flight jobs drain through the pool's own Stop.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}
