package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	name string
	runs atomic.Int64
	err  error
}

func (j *countingJob) Name() string { return j.name }

func (j *countingJob) Execute(ctx context.Context) error {
	j.runs.Add(1)
	return j.err
}

func TestPoolExecutesSubmittedJobs(t *testing.T) {
	pool := NewPool(2, 10)
	pool.Start(context.Background())

	job := &countingJob{name: "count"}
	for i := 0; i < 5; i++ {
		require.NoError(t, pool.Submit(job))
	}
	pool.Stop()

	assert.Equal(t, int64(5), job.runs.Load())
}

func TestPoolSurvivesFailingJobs(t *testing.T) {
	pool := NewPool(1, 10)
	pool.Start(context.Background())

	failing := &countingJob{name: "failing", err: errors.New("boom")}
	ok := &countingJob{name: "ok"}
	require.NoError(t, pool.Submit(failing))
	require.NoError(t, pool.Submit(ok))
	pool.Stop()

	assert.Equal(t, int64(1), failing.runs.Load())
	assert.Equal(t, int64(1), ok.runs.Load())
}

func TestSubmitQueueFull(t *testing.T) {
	// Never started, so the queue only drains by capacity.
	pool := NewPool(1, 2)

	job := &countingJob{name: "queued"}
	require.NoError(t, pool.Submit(job))
	require.NoError(t, pool.Submit(job))
	assert.ErrorIs(t, pool.Submit(job), ErrQueueFull)
}

type slowJob struct {
	started chan struct{}
	release chan struct{}
}

func (j *slowJob) Name() string { return "slow" }

func (j *slowJob) Execute(ctx context.Context) error {
	close(j.started)
	<-j.release
	return nil
}

func TestStopWaitsForInFlightJobs(t *testing.T) {
	pool := NewPool(1, 1)
	pool.Start(context.Background())

	job := &slowJob{started: make(chan struct{}), release: make(chan struct{})}
	require.NoError(t, pool.Submit(job))
	<-job.started

	done := make(chan struct{})
	go func() {
		pool.Stop()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Stop returned while a job was still running")
	case <-time.After(20 * time.Millisecond):
	}

	close(job.release)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return after the job finished")
	}
}
