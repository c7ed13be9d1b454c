package badger

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/mxmarchal/neuraldocs/core"
)

// Key prefixes for different data types
const (
	docRecordPrefix    = "docrec"
	docCreatedPrefix   = "doccre"
	vectorRecordPrefix = "vecrec"
	vectorDimKey       = "vecmeta:dim"
	vectorSeqName      = "vecseq"
	jobRecordPrefix    = "jobrec"
)

// makeDocumentKey generates a key for a document by ID.
func makeDocumentKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", docRecordPrefix, id))
}

// makeDocCreatedKey generates a composite key for the creation-time index.
// Format: prefix:timestamp:id
func makeDocCreatedKey(createdAt time.Time, id core.ID) []byte {
	prefix := docCreatedPrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 16 // 8 bytes for timestamp + 8 bytes for ID
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(createdAt.UnixMicro()))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makeVectorKey generates a composite key for a vector record.
// Format: prefix:documentID:chunkIndex
func makeVectorKey(docID core.ID, chunkIndex int) []byte {
	prefix := vectorRecordPrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 16 // 8 bytes for docID + 8 bytes for chunk index
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so all of a document's vectors are contiguous
	binary.BigEndian.PutUint64(buf[offset:], uint64(docID))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(chunkIndex))
	return buf
}

// makePartialVectorKey generates the key prefix covering all vector records
// of a single document.
func makePartialVectorKey(docID core.ID) []byte {
	prefix := vectorRecordPrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 8
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	binary.BigEndian.PutUint64(buf[offset:], uint64(docID))
	return buf
}

// makeJobKey generates a key for a job by its string ID.
func makeJobKey(id string) []byte {
	return []byte(fmt.Sprintf("%s:%s", jobRecordPrefix, id))
}
