package badger

import (
	"context"

	"github.com/dgraph-io/badger/v4"

	"github.com/mxmarchal/neuraldocs/core"
	"github.com/mxmarchal/neuraldocs/storage"
)

// JobRepository implements storage.JobRepository for BadgerDB.
type JobRepository struct {
	backend *Backend
}

var _ storage.JobRepository = (*JobRepository)(nil)

// NewJobRepository creates a new JobRepository.
func NewJobRepository(backend *Backend) (*JobRepository, error) {
	return &JobRepository{backend: backend}, nil
}

// Close releases repository resources.
func (r *JobRepository) Close() error {
	return nil
}

// Put inserts or replaces a job by its ID.
func (r *JobRepository) Put(ctx context.Context, job *core.Job) error {
	if err := core.ValidateJob(job); err != nil {
		return err
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		value, err := storage.MarshalJob(job)
		if err != nil {
			return err
		}
		if err := tx.Set(makeJobKey(job.Id), value); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Get retrieves a job by ID.
func (r *JobRepository) Get(ctx context.Context, id string) (*core.Job, error) {
	var result *core.Job
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeJobKey(id))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var unmarshalErr error
			result, unmarshalErr = storage.UnmarshalJob(val)
			return unmarshalErr
		})
	}, false)
	return result, err
}

// ListUnfinished returns all jobs that have not reached a terminal state.
// Used at startup to recover work that was queued or running when the
// process last stopped.
func (r *JobRepository) ListUnfinished(ctx context.Context) ([]*core.Job, error) {
	var results []*core.Job
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := []byte(jobRecordPrefix + ":")
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var job *core.Job
			err := iter.Item().Value(func(val []byte) error {
				var err error
				job, err = storage.UnmarshalJob(val)
				return err
			})
			if err != nil {
				return err
			}
			if job != nil && !job.State.Terminal() {
				results = append(results, job)
			}
		}
		return nil
	}, false)
	return results, err
}
