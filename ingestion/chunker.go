package ingestion

import "github.com/mxmarchal/neuraldocs/core"

const (
	defaultChunkSize    = 1200
	defaultChunkOverlap = 200
	snippetLen          = 120
)

// Chunker splits a document's sections into overlapping windows of runes.
// Chunking is deterministic: the same document always yields the same
// chunks in the same order, so chunk indices are stable across runs.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker creates a chunker. Size is the maximum chunk length in runes,
// overlap is how many runes consecutive chunks within a section share.
// Overlap is clamped below size so every step makes progress.
func NewChunker(size, overlap int) *Chunker {
	if size < 1 {
		size = defaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 2
	}
	return &Chunker{size: size, overlap: overlap}
}

// Chunk splits the document body into chunks. Sections are chunked
// independently so a window never spans a section boundary; the chunk
// index is global across the document.
func (c *Chunker) Chunk(doc *core.Document) []core.Chunk {
	var chunks []core.Chunk
	index := 0

	for _, section := range doc.Sections {
		runes := []rune(section.Text)
		if len(runes) == 0 {
			continue
		}

		step := c.size - c.overlap
		for start := 0; start < len(runes); start += step {
			end := start + c.size
			if end > len(runes) {
				end = len(runes)
			}

			chunks = append(chunks, core.Chunk{
				DocumentId: doc.Id,
				Index:      index,
				Text:       string(runes[start:end]),
			})
			index++

			if end == len(runes) {
				break
			}
		}
	}

	return chunks
}

// Snippet returns the short preview stored alongside each vector record.
func Snippet(text string) string {
	runes := []rune(text)
	if len(runes) <= snippetLen {
		return text
	}
	return string(runes[:snippetLen])
}
