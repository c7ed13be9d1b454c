// Copyright 2025 The neuraldocs Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package badger

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"slices"

	"github.com/dgraph-io/badger/v4"

	"github.com/mxmarchal/neuraldocs/core"
	"github.com/mxmarchal/neuraldocs/storage"
)

// VectorRepository implements storage.VectorRepository for BadgerDB.
// Search is a brute-force scan over all stored vectors; the corpus sizes
// this system targets stay well inside what a single pass can serve.
type VectorRepository struct {
	backend *Backend
	seq     *badger.Sequence
}

var _ storage.VectorRepository = (*VectorRepository)(nil)

// NewVectorRepository creates a new VectorRepository.
func NewVectorRepository(backend *Backend) (*VectorRepository, error) {
	seq, err := backend.GetSequence(vectorSeqName)
	if err != nil {
		return nil, err
	}

	return &VectorRepository{
		backend: backend,
		seq:     seq,
	}, nil
}

// Close releases the insertion sequence.
func (r *VectorRepository) Close() error {
	return r.seq.Release()
}

// Upsert stores vector records, assigning insertion sequence numbers.
// The first vector ever stored fixes the index dimensionality.
func (r *VectorRepository) Upsert(ctx context.Context, records ...*core.VectorRecord) ([]*core.VectorRecord, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		dim, err := r.readDimension(tx)
		if err != nil {
			return err
		}

		for _, record := range records {
			if len(record.Vector) == 0 {
				return fmt.Errorf("%w: empty vector for document %s chunk %d",
					storage.ErrDimensionMismatch, record.DocumentId, record.ChunkIndex)
			}
			if dim == 0 {
				dim = len(record.Vector)
				if err := tx.Set([]byte(vectorDimKey), marshalDimension(dim)); err != nil {
					return err
				}
			} else if len(record.Vector) != dim {
				return fmt.Errorf("%w: index holds %d-dimensional vectors, got %d",
					storage.ErrDimensionMismatch, dim, len(record.Vector))
			}

			next, err := r.seq.Next()
			if err != nil {
				return err
			}
			record.Seq = next

			key := makeVectorKey(record.DocumentId, record.ChunkIndex)
			value, err := storage.MarshalVectorRecord(record)
			if err != nil {
				return err
			}
			if err := tx.Set(key, value); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)

	return records, err
}

// DeleteByDocument removes all vector records belonging to a document.
func (r *VectorRepository) DeleteByDocument(ctx context.Context, docID core.ID) (int, error) {
	// Collect keys first; deleting under an open iterator on the same
	// transaction invalidates the iteration.
	var keys [][]byte
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := makePartialVectorKey(docID)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)

		for iter.Rewind(); iter.Valid(); iter.Next() {
			keys = append(keys, iter.Item().KeyCopy(nil))
		}
		iter.Close()

		for _, key := range keys {
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)

	return len(keys), err
}

// Search finds the limit closest vectors by cosine distance.
func (r *VectorRepository) Search(ctx context.Context, vector []float32, limit int) ([]*core.VectorMatch, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidQuery
	}

	var results []*core.VectorMatch
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := []byte(vectorRecordPrefix + ":")
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var record *core.VectorRecord
			err := iter.Item().Value(func(val []byte) error {
				var err error
				record, err = storage.UnmarshalVectorRecord(val)
				return err
			})
			if err != nil {
				return err
			}
			if record == nil || len(record.Vector) != len(vector) {
				continue
			}

			results = append(results, &core.VectorMatch{
				Record:   record,
				Distance: cosineDistance(vector, record.Vector),
			})
		}
		return nil
	}, false)

	if err != nil {
		return nil, err
	}

	// Sort by distance ascending; insertion order breaks ties so result
	// order is stable across identical queries.
	slices.SortFunc(results, func(a, b *core.VectorMatch) int {
		if a.Distance < b.Distance {
			return -1
		}
		if a.Distance > b.Distance {
			return 1
		}
		if a.Record.Seq < b.Record.Seq {
			return -1
		}
		if a.Record.Seq > b.Record.Seq {
			return 1
		}
		return 0
	})

	if len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}

// Dimension returns the dimensionality fixed by the first stored vector,
// or 0 if no vector has been stored yet.
func (r *VectorRepository) Dimension(ctx context.Context) (int, error) {
	var dim int
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		dim, err = r.readDimension(tx)
		return err
	}, false)
	return dim, err
}

// ResetDimension clears the fixed dimensionality so the next stored vector
// fixes it again.
func (r *VectorRepository) ResetDimension(ctx context.Context) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Delete([]byte(vectorDimKey)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Count returns the total number of vector records.
func (r *VectorRepository) Count(ctx context.Context) (int, error) {
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := []byte(vectorRecordPrefix + ":")
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

// readDimension reads the stored index dimensionality, 0 when unset.
func (r *VectorRepository) readDimension(tx *badger.Txn) (int, error) {
	item, err := tx.Get([]byte(vectorDimKey))
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return 0, nil
		}
		return 0, err
	}

	var dim int
	err = item.Value(func(val []byte) error {
		if len(val) < 8 {
			return fmt.Errorf("%w: dimension needs 8 bytes, got %d", storage.ErrTruncatedData, len(val))
		}
		dim = int(binary.BigEndian.Uint64(val))
		return nil
	})
	return dim, err
}

func marshalDimension(dim int) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(dim))
	return buf
}

// cosineDistance calculates 1 - cos(a, b). Smaller means closer.
// A zero-magnitude vector on either side yields the maximum distance 1.
func cosineDistance(a, b []float32) float32 {
	var dot, normA, normB float32
	minLen := len(a)
	if len(b) < minLen {
		minLen = len(b)
	}
	for i := 0; i < minLen; i++ {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/float32(math.Sqrt(float64(normA))*math.Sqrt(float64(normB)))
}
