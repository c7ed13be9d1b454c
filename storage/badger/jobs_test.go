package badger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mxmarchal/neuraldocs/core"
	"github.com/mxmarchal/neuraldocs/storage"
)

func TestJobPutAndGet(t *testing.T) {
	docRepo, vectorRepo, jobRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() {
		jobRepo.Close()
		vectorRepo.Close()
		docRepo.Close()
		backend.Close()
	}()

	ctx := context.Background()

	job := &core.Job{
		Id:        "job-1",
		Kind:      core.JobKindIngest,
		URL:       "https://example.com/a",
		State:     core.JobStateQueued,
		CreatedAt: time.Now().UTC(),
	}

	if err := jobRepo.Put(ctx, job); err != nil {
		t.Fatalf("Failed to put job: %v", err)
	}

	got, err := jobRepo.Get(ctx, "job-1")
	if err != nil {
		t.Fatalf("Failed to get job: %v", err)
	}
	if got.URL != job.URL || got.State != core.JobStateQueued {
		t.Errorf("Job round trip mismatch: %+v", got)
	}

	// Replacing with a later state must win
	job.State = core.JobStateSucceeded
	job.DocumentId = core.IDFromURL(job.URL)
	if err := jobRepo.Put(ctx, job); err != nil {
		t.Fatalf("Failed to update job: %v", err)
	}

	got, err = jobRepo.Get(ctx, "job-1")
	if err != nil {
		t.Fatalf("Failed to get updated job: %v", err)
	}
	if got.State != core.JobStateSucceeded {
		t.Errorf("Expected succeeded state, got %s", got.State)
	}
	if got.DocumentId != core.IDFromURL(job.URL) {
		t.Errorf("Expected document ID on success, got %s", got.DocumentId)
	}
}

func TestJobGetUnknown(t *testing.T) {
	docRepo, vectorRepo, jobRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() {
		jobRepo.Close()
		vectorRepo.Close()
		docRepo.Close()
		backend.Close()
	}()

	_, err = jobRepo.Get(context.Background(), "no-such-job")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestJobListUnfinished(t *testing.T) {
	docRepo, vectorRepo, jobRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() {
		jobRepo.Close()
		vectorRepo.Close()
		docRepo.Close()
		backend.Close()
	}()

	ctx := context.Background()

	jobs := []*core.Job{
		{Id: "j-queued", Kind: core.JobKindIngest, URL: "https://example.com/1", State: core.JobStateQueued},
		{Id: "j-running", Kind: core.JobKindIngest, URL: "https://example.com/2", State: core.JobStateRunning},
		{Id: "j-done", Kind: core.JobKindIngest, URL: "https://example.com/3", State: core.JobStateSucceeded},
		{Id: "j-failed", Kind: core.JobKindIngest, URL: "https://example.com/4", State: core.JobStateFailed},
	}
	for _, job := range jobs {
		if err := jobRepo.Put(ctx, job); err != nil {
			t.Fatalf("Failed to put job %s: %v", job.Id, err)
		}
	}

	unfinished, err := jobRepo.ListUnfinished(ctx)
	if err != nil {
		t.Fatalf("Failed to list unfinished jobs: %v", err)
	}
	if len(unfinished) != 2 {
		t.Fatalf("Expected 2 unfinished jobs, got %d", len(unfinished))
	}
	for _, job := range unfinished {
		if job.State.Terminal() {
			t.Errorf("Terminal job %s in unfinished list", job.Id)
		}
	}
}

func TestJobPutInvalid(t *testing.T) {
	docRepo, vectorRepo, jobRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() {
		jobRepo.Close()
		vectorRepo.Close()
		docRepo.Close()
		backend.Close()
	}()

	err = jobRepo.Put(context.Background(), &core.Job{Id: "", URL: "https://example.com", State: core.JobStateQueued})
	if !errors.Is(err, core.ErrInvalidJob) {
		t.Errorf("Expected ErrInvalidJob, got %v", err)
	}
}
