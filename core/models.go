package core

import (
	"encoding/binary"
	"strconv"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// Document IDs are derived deterministically from the article URL.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b
// hashing. Identical content always produces an identical ID.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// IDFromURL generates the document ID for an article URL. The same URL always
// maps to the same ID, which is what turns re-ingestion of a URL into an
// upsert rather than an insert.
func IDFromURL(url string) ID {
	return IDFromContent(url)
}

// String renders the ID in the hexadecimal form used on the wire.
func (id ID) String() string {
	return strconv.FormatUint(uint64(id), 16)
}

// ParseID parses the hexadecimal wire form of an ID.
func ParseID(s string) (ID, error) {
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, err
	}
	return ID(v), nil
}

// Section is one contiguous, titled block of article body text.
type Section struct {
	Heading string
	Text    string
}

// Document is a structured web article. It is created and replaced only by
// the ingestion pipeline; the URL is its natural deduplication key and the
// ID is derived from it.
type Document struct {
	Id        ID
	URL       string
	Title     string
	Sections  []Section
	CreatedAt time.Time // When the URL was first ingested
	UpdatedAt time.Time // When the content was last replaced
}

// Text returns the concatenated body text of all sections in order.
func (d *Document) Text() string {
	var total int
	for _, s := range d.Sections {
		total += len(s.Text) + 1
	}
	buf := make([]byte, 0, total)
	for i, s := range d.Sections {
		if i > 0 {
			buf = append(buf, '\n')
		}
		buf = append(buf, s.Text...)
	}
	return string(buf)
}

// Chunk is a contiguous slice of a document's body text. Chunks are derived
// deterministically at indexing time and never persisted on their own; they
// exist only as the unit handed to the embedder and as vector metadata.
type Chunk struct {
	DocumentId ID
	Index      int
	Text       string
}

// VectorRecord is one embedded chunk as stored in the vector index.
// Seq is the index-wide insertion sequence number; equal-distance search
// hits are ordered by it so result order stays stable across queries.
type VectorRecord struct {
	DocumentId ID
	ChunkIndex int
	URL        string
	Snippet    string
	Text       string
	Vector     []float32
	Seq        uint64
}

// VectorMatch is a search hit with its cosine distance (smaller = closer).
type VectorMatch struct {
	Record   *VectorRecord
	Distance float32
}

// JobState tracks an ingestion job through its lifecycle.
type JobState string

const (
	JobStateQueued    JobState = "queued"
	JobStateRunning   JobState = "running"
	JobStateSucceeded JobState = "succeeded"
	JobStateFailed    JobState = "failed"
)

// Terminal reports whether the state is final. Terminal jobs are never
// mutated again and never deleted by the core.
func (s JobState) Terminal() bool {
	return s == JobStateSucceeded || s == JobStateFailed
}

// JobKindIngest is the only job kind the scheduler currently dispatches.
const JobKindIngest = "ingest"

// Job is the scheduler's record of one submitted URL.
type Job struct {
	Id           string
	Kind         string
	URL          string
	State        JobState
	DocumentId   ID     // Set when the job succeeds
	ErrorKind    string // Set when the job fails, see ErrorKind
	ErrorMessage string
	Attempts     int
	CreatedAt    time.Time
	StartedAt    time.Time
	FinishedAt   time.Time
}

// NoContextAnswer is returned by the query pipeline when vector search yields
// no resolvable hits. It is a defined success result, distinct from an
// answering failure, so clients can tell "nothing retrieved" apart from
// "answering failed".
const NoContextAnswer = "No relevant context was found in the ingested corpus to answer this question."

// QueryResult is the outcome of one question over the corpus.
type QueryResult struct {
	Answer       string
	Sources      []string // Distinct source URLs in first-seen relevance order
	ContextFound bool
}

// DocumentSummary is the listing projection of a document.
type DocumentSummary struct {
	Id    ID
	URL   string
	Title string
}

// DocumentPage is one page of the document listing. Total is the corpus-wide
// document count at the time of the call so clients can compute total pages.
type DocumentPage struct {
	Page      int
	PageSize  int
	Total     int
	Documents []DocumentSummary
}

// CorpusStats summarizes the two stores.
type CorpusStats struct {
	Documents int
	Vectors   int
}
