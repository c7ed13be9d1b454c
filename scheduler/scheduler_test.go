package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mxmarchal/neuraldocs/core"
	storagebadger "github.com/mxmarchal/neuraldocs/storage/badger"
)

// fakeIngestor counts calls and returns programmable results per URL.
type fakeIngestor struct {
	calls     atomic.Int64
	failWith  error
	failTimes int64
}

func (f *fakeIngestor) Ingest(ctx context.Context, url string) (core.ID, error) {
	n := f.calls.Add(1)
	if f.failWith != nil && (f.failTimes == 0 || n <= f.failTimes) {
		return 0, f.failWith
	}
	return core.IDFromURL(url), nil
}

func newTestScheduler(t *testing.T, ingestor Ingestor, opts ...Option) *Scheduler {
	t.Helper()

	docRepo, vectorRepo, jobRepo, backend, err := storagebadger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		jobRepo.Close()
		vectorRepo.Close()
		docRepo.Close()
		backend.Close()
	})

	opts = append([]Option{WithBaseDelay(time.Millisecond)}, opts...)
	s, err := NewScheduler(jobRepo, ingestor, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return s
}

func waitTerminal(t *testing.T, s *Scheduler, jobID string) *core.Job {
	t.Helper()

	var job *core.Job
	require.Eventually(t, func() bool {
		var err error
		job, err = s.Status(context.Background(), jobID)
		return err == nil && job.State.Terminal()
	}, 5*time.Second, 5*time.Millisecond, "job %s never reached a terminal state", jobID)
	return job
}

func TestSchedulerSuccess(t *testing.T) {
	ingestor := &fakeIngestor{}
	s := newTestScheduler(t, ingestor)

	url := "https://example.com/a"
	jobID, err := s.EnqueueIngest(context.Background(), url)
	require.NoError(t, err)
	require.NotEmpty(t, jobID)

	job := waitTerminal(t, s, jobID)
	assert.Equal(t, core.JobStateSucceeded, job.State)
	assert.Equal(t, core.IDFromURL(url), job.DocumentId)
	assert.Equal(t, 1, job.Attempts)
	assert.False(t, job.FinishedAt.IsZero())
}

func TestSchedulerUnknownJob(t *testing.T) {
	s := newTestScheduler(t, &fakeIngestor{})

	_, err := s.Status(context.Background(), "never-enqueued")
	assert.ErrorIs(t, err, core.ErrUnknownJob)
}

func TestSchedulerEmptyURL(t *testing.T) {
	s := newTestScheduler(t, &fakeIngestor{})

	_, err := s.EnqueueIngest(context.Background(), "")
	assert.ErrorIs(t, err, core.ErrEmptyURL)
}

func TestSchedulerRetriesTransient(t *testing.T) {
	ingestor := &fakeIngestor{
		failWith:  core.Transient("fetch", errors.New("connection reset")),
		failTimes: 2,
	}
	s := newTestScheduler(t, ingestor, WithMaxAttempts(3))

	jobID, err := s.EnqueueIngest(context.Background(), "https://example.com/flaky")
	require.NoError(t, err)

	job := waitTerminal(t, s, jobID)
	assert.Equal(t, core.JobStateSucceeded, job.State)
	assert.Equal(t, 3, job.Attempts)
}

func TestSchedulerTransientExhaustsAttempts(t *testing.T) {
	ingestor := &fakeIngestor{failWith: core.Transient("fetch", errors.New("connection reset"))}
	s := newTestScheduler(t, ingestor, WithMaxAttempts(2))

	jobID, err := s.EnqueueIngest(context.Background(), "https://example.com/down")
	require.NoError(t, err)

	job := waitTerminal(t, s, jobID)
	assert.Equal(t, core.JobStateFailed, job.State)
	assert.Equal(t, string(core.ErrorKindTransient), job.ErrorKind)
	assert.Equal(t, 2, job.Attempts)
	assert.EqualValues(t, 2, ingestor.calls.Load())
}

func TestSchedulerContentErrorFailsImmediately(t *testing.T) {
	ingestor := &fakeIngestor{failWith: core.Content("extract", errors.New("no article text"))}
	s := newTestScheduler(t, ingestor, WithMaxAttempts(5))

	jobID, err := s.EnqueueIngest(context.Background(), "https://example.com/empty")
	require.NoError(t, err)

	job := waitTerminal(t, s, jobID)
	assert.Equal(t, core.JobStateFailed, job.State)
	assert.Equal(t, string(core.ErrorKindContent), job.ErrorKind)
	assert.NotEmpty(t, job.ErrorMessage)
	assert.EqualValues(t, 1, ingestor.calls.Load(), "content failures must not be retried")
}

func TestSchedulerRecover(t *testing.T) {
	docRepo, vectorRepo, jobRepo, backend, err := storagebadger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		jobRepo.Close()
		vectorRepo.Close()
		docRepo.Close()
		backend.Close()
	})

	ctx := context.Background()

	// Simulate jobs left behind by a previous process
	leftovers := []*core.Job{
		{Id: "j-queued", Kind: core.JobKindIngest, URL: "https://example.com/1", State: core.JobStateQueued},
		{Id: "j-running", Kind: core.JobKindIngest, URL: "https://example.com/2", State: core.JobStateRunning},
		{Id: "j-done", Kind: core.JobKindIngest, URL: "https://example.com/3", State: core.JobStateSucceeded},
	}
	for _, job := range leftovers {
		require.NoError(t, jobRepo.Put(ctx, job))
	}

	ingestor := &fakeIngestor{}
	s, err := NewScheduler(jobRepo, ingestor, WithBaseDelay(time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	recovered, err := s.Recover(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, recovered, "only non-terminal jobs are recovered")

	for _, id := range []string{"j-queued", "j-running"} {
		job := waitTerminal(t, s, id)
		assert.Equal(t, core.JobStateSucceeded, job.State)
	}
	assert.EqualValues(t, 2, ingestor.calls.Load())
}

func TestSchedulerClosedRejectsEnqueue(t *testing.T) {
	docRepo, vectorRepo, jobRepo, backend, err := storagebadger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		jobRepo.Close()
		vectorRepo.Close()
		docRepo.Close()
		backend.Close()
	})

	s, err := NewScheduler(jobRepo, &fakeIngestor{})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = s.EnqueueIngest(context.Background(), "https://example.com/a")
	assert.ErrorIs(t, err, ErrSchedulerClosed)
}

func TestRetryWithBackoffInvalidAttempts(t *testing.T) {
	err := RetryWithBackoff(context.Background(), func() error { return nil }, 0, time.Millisecond, nil)
	assert.ErrorIs(t, err, ErrInvalidMaxAttempts)
}
