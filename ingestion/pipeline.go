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

package ingestion

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mxmarchal/neuraldocs/ai"
	"github.com/mxmarchal/neuraldocs/core"
	"github.com/mxmarchal/neuraldocs/fetch"
	"github.com/mxmarchal/neuraldocs/storage"
)

const defaultEmbedBatchSize = 16

// Fetcher retrieves raw page content for a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Pipeline runs the full ingestion chain for one URL: fetch, extract,
// structure, persist, chunk, embed, index.
type Pipeline struct {
	documents      storage.DocumentRepository
	vectors        storage.VectorRepository
	fetcher        Fetcher
	structurer     ai.Structurer
	embedder       ai.Embedder
	chunker        *Chunker
	chunkSize      int
	chunkOverlap   int
	embedBatchSize int
	locks          *keyedMutex
	logger         *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithChunking sets the chunk window size and overlap in runes.
// Defaults are 1200 and 200.
func WithChunking(size, overlap int) Option {
	return func(p *Pipeline) error {
		p.chunkSize = size
		p.chunkOverlap = overlap
		return nil
	}
}

// WithEmbedBatchSize sets how many chunks are embedded per provider call.
// Default is 16.
func WithEmbedBatchSize(size int) Option {
	return func(p *Pipeline) error {
		if size > 0 {
			p.embedBatchSize = size
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(
	documents storage.DocumentRepository,
	vectors storage.VectorRepository,
	fetcher Fetcher,
	provider ai.Provider,
	opts ...Option,
) (*Pipeline, error) {
	if documents == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if vectors == nil {
		return nil, ErrVectorRepositoryRequired
	}
	if fetcher == nil {
		return nil, ErrFetcherRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	p := &Pipeline{
		documents:      documents,
		vectors:        vectors,
		fetcher:        fetcher,
		structurer:     provider.Structurer(),
		embedder:       provider.Embedder(),
		chunkSize:      defaultChunkSize,
		chunkOverlap:   defaultChunkOverlap,
		embedBatchSize: defaultEmbedBatchSize,
		locks:          newKeyedMutex(),
		logger:         slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			return nil, optErr
		}
	}

	p.chunker = NewChunker(p.chunkSize, p.chunkOverlap)

	return p, nil
}

// Ingest runs the full chain for one URL and returns the document ID.
// Failures come back as classified stage errors; the caller decides
// whether to retry. Ingestions for the same URL are serialized, so the
// last writer wins wholesale rather than interleaving.
func (p *Pipeline) Ingest(ctx context.Context, url string) (core.ID, error) {
	if url == "" {
		return 0, core.Content("validate", core.ErrEmptyURL)
	}

	raw, err := p.fetcher.Fetch(ctx, url)
	if err != nil {
		return 0, core.Transient("fetch", err)
	}

	title, text := fetch.ExtractArticle(raw)
	if text == "" {
		return 0, core.Content("extract", ErrNoArticleText)
	}

	article, err := p.structurer.StructureArticle(ctx, url, text)
	if err != nil {
		if errors.Is(err, ai.ErrMalformedOutput) {
			return 0, core.Content("structure", err)
		}
		return 0, core.Transient("structure", err)
	}
	if article.Title == "" {
		article.Title = title
	}

	doc := &core.Document{
		Id:       core.IDFromURL(url),
		URL:      url,
		Title:    article.Title,
		Sections: make([]core.Section, len(article.Sections)),
	}
	for i, s := range article.Sections {
		doc.Sections[i] = core.Section{Heading: s.Heading, Text: s.Text}
	}

	// One writer per document from persist through index
	p.locks.Lock(doc.Id)
	defer p.locks.Unlock(doc.Id)

	doc, err = p.documents.Upsert(ctx, doc)
	if err != nil {
		return 0, core.Transient("persist", err)
	}

	chunks := p.chunker.Chunk(doc)
	if len(chunks) == 0 {
		return 0, core.Content("chunk", ErrNoChunks)
	}

	records, err := p.embedChunks(ctx, doc, chunks)
	if err != nil {
		return 0, err
	}

	removed, err := p.vectors.DeleteByDocument(ctx, doc.Id)
	if err != nil {
		return 0, core.Transient("index", err)
	}

	if _, err := p.vectors.Upsert(ctx, records...); err != nil {
		if errors.Is(err, storage.ErrDimensionMismatch) {
			return 0, core.Configuration("index", err)
		}
		return 0, core.Transient("index", err)
	}

	p.logger.Info("ingested document",
		"url", url,
		"document_id", doc.Id.String(),
		"chunks", len(chunks),
		"replaced_vectors", removed)

	return doc.Id, nil
}

// Reindex rebuilds the vector index entries for an already-stored document
// without refetching it: chunk, embed, delete-then-insert. Returns the
// number of chunks indexed. Used when the embedding model changes.
func (p *Pipeline) Reindex(ctx context.Context, doc *core.Document) (int, error) {
	p.locks.Lock(doc.Id)
	defer p.locks.Unlock(doc.Id)

	chunks := p.chunker.Chunk(doc)
	if len(chunks) == 0 {
		return 0, core.Content("chunk", ErrNoChunks)
	}

	records, err := p.embedChunks(ctx, doc, chunks)
	if err != nil {
		return 0, err
	}

	if _, err := p.vectors.DeleteByDocument(ctx, doc.Id); err != nil {
		return 0, core.Transient("index", err)
	}
	if _, err := p.vectors.Upsert(ctx, records...); err != nil {
		if errors.Is(err, storage.ErrDimensionMismatch) {
			return 0, core.Configuration("index", err)
		}
		return 0, core.Transient("index", err)
	}

	return len(chunks), nil
}

// embedChunks embeds chunk texts in batches and builds the vector records.
func (p *Pipeline) embedChunks(ctx context.Context, doc *core.Document, chunks []core.Chunk) ([]*core.VectorRecord, error) {
	records := make([]*core.VectorRecord, 0, len(chunks))

	for start := 0; start < len(chunks); start += p.embedBatchSize {
		end := start + p.embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, chunk := range batch {
			texts[i] = chunk.Text
		}

		vectors, err := p.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return nil, core.Transient("embed", err)
		}
		if len(vectors) != len(batch) {
			return nil, core.Transient("embed",
				errors.New("embedder returned wrong number of vectors"))
		}

		for i, chunk := range batch {
			records = append(records, &core.VectorRecord{
				DocumentId: doc.Id,
				ChunkIndex: chunk.Index,
				URL:        doc.URL,
				Snippet:    Snippet(chunk.Text),
				Text:       chunk.Text,
				Vector:     vectors[i],
			})
		}
	}

	return records, nil
}
