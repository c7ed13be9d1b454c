package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/mxmarchal/neuraldocs/core"
	"github.com/mxmarchal/neuraldocs/storage"
)

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = 2 * time.Second
)

// Ingestor runs the ingestion chain for one URL.
type Ingestor interface {
	Ingest(ctx context.Context, url string) (core.ID, error)
}

// Scheduler accepts URLs, persists a job record for each, and runs the
// ingestion on a worker pool. Delivery is at-least-once: job state is
// persisted through every transition, and jobs that were queued or running
// when the process stopped are re-run by Recover at the next startup.
type Scheduler struct {
	jobs        storage.JobRepository
	ingestor    Ingestor
	pool        *ants.Pool
	maxAttempts int
	baseDelay   time.Duration
	logger      *slog.Logger

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// Option configures a Scheduler.
type Option func(*Scheduler) error

// WithPoolSize sets the worker pool size for concurrent ingestion.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(s *Scheduler) error {
		if size < 1 {
			size = 1
		}
		if s.pool != nil {
			s.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		s.pool = pool
		return nil
	}
}

// WithMaxAttempts sets how many times a transient failure is attempted.
// Default is 3.
func WithMaxAttempts(attempts int) Option {
	return func(s *Scheduler) error {
		if attempts <= 0 {
			return ErrInvalidMaxAttempts
		}
		s.maxAttempts = attempts
		return nil
	}
}

// WithBaseDelay sets the base retry delay, doubled on each attempt.
// Default is 2 seconds.
func WithBaseDelay(delay time.Duration) Option {
	return func(s *Scheduler) error {
		if delay > 0 {
			s.baseDelay = delay
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewScheduler creates a scheduler running ingestions on a worker pool.
func NewScheduler(jobs storage.JobRepository, ingestor Ingestor, opts ...Option) (*Scheduler, error) {
	if jobs == nil {
		return nil, ErrJobRepositoryRequired
	}
	if ingestor == nil {
		return nil, ErrIngestorRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	baseCtx, cancel := context.WithCancel(context.Background())

	s := &Scheduler{
		jobs:        jobs,
		ingestor:    ingestor,
		pool:        pool,
		maxAttempts: defaultMaxAttempts,
		baseDelay:   defaultBaseDelay,
		logger:      slog.Default(),
		baseCtx:     baseCtx,
		cancel:      cancel,
	}

	for _, opt := range opts {
		if optErr := opt(s); optErr != nil {
			s.pool.Release()
			cancel()
			return nil, optErr
		}
	}

	return s, nil
}

// EnqueueIngest accepts a URL for ingestion and returns the job ID.
// The job record is persisted as queued before this returns, so a crash
// between accept and execution still leaves the job recoverable.
func (s *Scheduler) EnqueueIngest(ctx context.Context, url string) (string, error) {
	if url == "" {
		return "", core.ErrEmptyURL
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", ErrSchedulerClosed
	}
	s.mu.Unlock()

	job := &core.Job{
		Id:        uuid.NewString(),
		Kind:      core.JobKindIngest,
		URL:       url,
		State:     core.JobStateQueued,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.jobs.Put(ctx, job); err != nil {
		return "", err
	}

	if err := s.submit(job); err != nil {
		return "", err
	}

	return job.Id, nil
}

// Status reports the state of a job. An ID the scheduler has never seen
// returns core.ErrUnknownJob, distinct from a known job that is still queued.
func (s *Scheduler) Status(ctx context.Context, id string) (*core.Job, error) {
	job, err := s.jobs.Get(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, core.ErrUnknownJob
		}
		return nil, err
	}
	return job, nil
}

// Recover re-enqueues jobs that were queued or running when the process
// last stopped. Call once at startup, before serving new enqueues.
func (s *Scheduler) Recover(ctx context.Context) (int, error) {
	unfinished, err := s.jobs.ListUnfinished(ctx)
	if err != nil {
		return 0, err
	}

	recovered := 0
	for _, job := range unfinished {
		job.State = core.JobStateQueued
		if err := s.jobs.Put(ctx, job); err != nil {
			return recovered, err
		}
		if err := s.submit(job); err != nil {
			return recovered, err
		}
		recovered++
	}

	if recovered > 0 {
		s.logger.Info("recovered unfinished ingestion jobs", "count", recovered)
	}
	return recovered, nil
}

// Close stops accepting new jobs, signals in-flight jobs to stop, and waits
// for the pool to drain. Jobs interrupted mid-run stay non-terminal and are
// picked up by Recover at the next startup.
func (s *Scheduler) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	s.pool.Release()
	return nil
}

func (s *Scheduler) submit(job *core.Job) error {
	s.wg.Add(1)
	err := s.pool.Submit(func() {
		defer s.wg.Done()
		s.run(job)
	})
	if err != nil {
		s.wg.Done()
		return err
	}
	return nil
}

// run executes one job through its lifecycle, persisting every transition.
// Final persists use a background context so a shutdown signal cannot lose
// the state that was just decided.
func (s *Scheduler) run(job *core.Job) {
	job.State = core.JobStateRunning
	job.StartedAt = time.Now().UTC()
	if err := s.jobs.Put(context.Background(), job); err != nil {
		s.logger.Error("error persisting job start", "job_id", job.Id, "err", err)
	}

	var docID core.ID
	err := RetryWithBackoff(s.baseCtx, func() error {
		job.Attempts++
		var ingestErr error
		docID, ingestErr = s.ingestor.Ingest(s.baseCtx, job.URL)
		return ingestErr
	}, s.maxAttempts, s.baseDelay, core.IsTransient)

	if err != nil && s.baseCtx.Err() != nil {
		// Shutdown interrupted the job; leave it non-terminal so the next
		// startup re-runs it.
		if putErr := s.jobs.Put(context.Background(), job); putErr != nil {
			s.logger.Error("error persisting interrupted job", "job_id", job.Id, "err", putErr)
		}
		return
	}

	job.FinishedAt = time.Now().UTC()
	if err != nil {
		job.State = core.JobStateFailed
		job.ErrorKind = string(core.KindOf(err))
		job.ErrorMessage = err.Error()
		s.logger.Error("ingestion job failed",
			"job_id", job.Id,
			"url", job.URL,
			"kind", job.ErrorKind,
			"attempts", job.Attempts,
			"err", err)
	} else {
		job.State = core.JobStateSucceeded
		job.DocumentId = docID
		s.logger.Info("ingestion job succeeded",
			"job_id", job.Id,
			"url", job.URL,
			"document_id", docID.String(),
			"attempts", job.Attempts)
	}

	if err := s.jobs.Put(context.Background(), job); err != nil {
		s.logger.Error("error persisting job result", "job_id", job.Id, "err", err)
	}
}
