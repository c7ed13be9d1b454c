package storage

import (
	"context"

	"github.com/mxmarchal/neuraldocs/core"
)

// DocumentRepository provides operations for managing structured documents.
// Implementations must be thread-safe and support concurrent access.
type DocumentRepository interface {
	// Upsert inserts or replaces a document keyed by its URL-derived ID.
	// On insert, sets CreatedAt and UpdatedAt. On replace, preserves the
	// existing CreatedAt and refreshes UpdatedAt.
	// Returns the document with timestamps populated.
	Upsert(ctx context.Context, doc *core.Document) (*core.Document, error)

	// Get retrieves a single document by ID.
	// Returns ErrNotFound if the document doesn't exist.
	Get(ctx context.Context, id core.ID) (*core.Document, error)

	// GetByURL retrieves a document by its source URL.
	// Returns ErrNotFound if no document with that URL exists.
	GetByURL(ctx context.Context, url string) (*core.Document, error)

	// List retrieves documents ordered by creation time ascending,
	// skipping offset documents and returning up to limit.
	List(ctx context.Context, offset, limit int) ([]*core.Document, error)

	// Count returns the total number of documents.
	Count(ctx context.Context) (int, error)

	// Delete removes a document and its indices by ID.
	// Returns ErrNotFound if the document doesn't exist.
	Delete(ctx context.Context, id core.ID) error

	// Close releases repository resources.
	Close() error
}

// VectorRepository provides operations for managing chunk embeddings.
// Implementations must be thread-safe and support concurrent access.
type VectorRepository interface {
	// Upsert stores one or more vector records, assigning each a
	// monotonically increasing insertion sequence number.
	// The first vector ever stored fixes the index dimensionality;
	// any later vector of a different length fails with ErrDimensionMismatch.
	Upsert(ctx context.Context, records ...*core.VectorRecord) ([]*core.VectorRecord, error)

	// DeleteByDocument removes all vector records belonging to a document.
	// Returns the number of records removed; deleting for a document with
	// no vectors is not an error.
	DeleteByDocument(ctx context.Context, docID core.ID) (int, error)

	// Search finds the vector records closest to the given query vector
	// by cosine distance, up to limit results. Results are ordered by
	// distance ascending; equal distances are ordered by insertion sequence.
	Search(ctx context.Context, vector []float32, limit int) ([]*core.VectorMatch, error)

	// Dimension returns the dimensionality fixed by the first stored
	// vector, or 0 if no vector has been stored yet.
	Dimension(ctx context.Context) (int, error)

	// ResetDimension clears the fixed dimensionality so the next stored
	// vector fixes it again. Only meaningful while rebuilding the whole
	// index, e.g. after an embedding model change.
	ResetDimension(ctx context.Context) error

	// Count returns the total number of vector records.
	Count(ctx context.Context) (int, error)

	// Close releases repository resources.
	Close() error
}

// JobRepository provides operations for persisting ingestion job state.
// Implementations must be thread-safe and support concurrent access.
type JobRepository interface {
	// Put inserts or replaces a job by its ID.
	Put(ctx context.Context, job *core.Job) error

	// Get retrieves a job by ID.
	// Returns ErrNotFound if the job doesn't exist.
	Get(ctx context.Context, id string) (*core.Job, error)

	// ListUnfinished returns all jobs that have not reached a terminal state.
	ListUnfinished(ctx context.Context) ([]*core.Job, error)

	// Close releases repository resources.
	Close() error
}
