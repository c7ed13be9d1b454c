package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/mxmarchal/neuraldocs/core"
	"github.com/mxmarchal/neuraldocs/storage"
)

// DocumentRepository implements storage.DocumentRepository for BadgerDB.
type DocumentRepository struct {
	backend *Backend
}

var _ storage.DocumentRepository = (*DocumentRepository)(nil)

// NewDocumentRepository creates a new DocumentRepository.
func NewDocumentRepository(backend *Backend) (*DocumentRepository, error) {
	return &DocumentRepository{backend: backend}, nil
}

// Close releases repository resources.
func (r *DocumentRepository) Close() error {
	return nil
}

// Upsert inserts or replaces a document keyed by its URL-derived ID.
func (r *DocumentRepository) Upsert(ctx context.Context, doc *core.Document) (*core.Document, error) {
	if err := core.ValidateDocument(doc); err != nil {
		return nil, err
	}
	if doc.Id == 0 {
		doc.Id = core.IDFromURL(doc.URL)
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeDocumentKey(doc.Id)

		old, err := r.readDocument(tx, key)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if old != nil {
			// Replacement keeps the original ingestion time
			doc.CreatedAt = old.CreatedAt
		} else {
			doc.CreatedAt = now
		}
		doc.UpdatedAt = now

		value, err := storage.MarshalDocument(doc)
		if err != nil {
			return err
		}
		if err := tx.Set(key, value); err != nil {
			return err
		}

		// The creation-time index entry only exists once per document;
		// CreatedAt never changes after the first insert.
		if old == nil {
			createdKey := makeDocCreatedKey(doc.CreatedAt, doc.Id)
			if err := tx.Set(createdKey, storage.MarshalID(doc.Id)); err != nil {
				return err
			}
		}

		return tx.Commit()
	}, true)

	return doc, err
}

// Get retrieves a single document by ID.
func (r *DocumentRepository) Get(ctx context.Context, id core.ID) (*core.Document, error) {
	var result *core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeDocumentKey(id)
		var err error
		result, err = r.readDocument(tx, key)
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// GetByURL retrieves a document by its source URL. IDs derive from URLs, so
// this is a direct key lookup rather than a scan.
func (r *DocumentRepository) GetByURL(ctx context.Context, url string) (*core.Document, error) {
	return r.Get(ctx, core.IDFromURL(url))
}

// List retrieves documents ordered by creation time ascending.
func (r *DocumentRepository) List(ctx context.Context, offset, limit int) ([]*core.Document, error) {
	if offset < 0 || limit < 0 {
		return nil, storage.ErrInvalidQuery
	}

	var results []*core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := []byte(docCreatedPrefix + ":")
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		skipped := 0
		for iter.Rewind(); iter.Valid(); iter.Next() {
			if len(results) >= limit {
				break
			}
			if skipped < offset {
				skipped++
				continue
			}

			var docID core.ID
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				docID, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				return err
			}

			doc, err := r.readDocument(tx, makeDocumentKey(docID))
			if err != nil {
				return err
			}
			if doc != nil {
				results = append(results, doc)
			}
		}
		return nil
	}, false)

	return results, err
}

// Count returns the total number of documents.
func (r *DocumentRepository) Count(ctx context.Context) (int, error) {
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := []byte(docCreatedPrefix + ":")
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}

// Delete removes a document and its creation-time index entry.
func (r *DocumentRepository) Delete(ctx context.Context, id core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeDocumentKey(id)

		doc, err := r.readDocument(tx, key)
		if err != nil {
			return err
		}
		if doc == nil {
			return storage.ErrNotFound
		}

		createdKey := makeDocCreatedKey(doc.CreatedAt, doc.Id)
		if err := tx.Delete(createdKey); err != nil {
			return err
		}

		if err := tx.Delete(key); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// readDocument reads a document from the transaction.
// Returns nil without error when the key is absent.
func (r *DocumentRepository) readDocument(tx *badger.Txn, key []byte) (*core.Document, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var doc *core.Document
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		doc, unmarshalErr = storage.UnmarshalDocument(val)
		return unmarshalErr
	})
	return doc, err
}
