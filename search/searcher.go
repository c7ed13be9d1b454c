package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mxmarchal/neuraldocs/ai"
	"github.com/mxmarchal/neuraldocs/core"
	"github.com/mxmarchal/neuraldocs/storage"
)

const (
	defaultTopK            = 5
	defaultMaxContextBytes = 8000
)

// Searcher answers questions over the ingested corpus by retrieval-augmented
// generation: embed the question, search the vector index, resolve hits to
// documents, and hand the assembled context to the answerer.
type Searcher struct {
	documents       storage.DocumentRepository
	vectors         storage.VectorRepository
	embedder        ai.Embedder
	answerer        ai.Answerer
	topK            int
	maxContextBytes int
	logger          *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithTopK sets how many vector hits are retrieved per query.
// Default is 5.
func WithTopK(k int) Option {
	return func(s *Searcher) error {
		if k > 0 {
			s.topK = k
		}
		return nil
	}
}

// WithMaxContextBytes caps the assembled context block handed to the model.
// Default is 8000 bytes.
func WithMaxContextBytes(limit int) Option {
	return func(s *Searcher) error {
		if limit > 0 {
			s.maxContextBytes = limit
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(
	documents storage.DocumentRepository,
	vectors storage.VectorRepository,
	provider ai.Provider,
	opts ...Option,
) (*Searcher, error) {
	if documents == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if vectors == nil {
		return nil, ErrVectorRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	s := &Searcher{
		documents:       documents,
		vectors:         vectors,
		embedder:        provider.Embedder(),
		answerer:        provider.Answerer(),
		topK:            defaultTopK,
		maxContextBytes: defaultMaxContextBytes,
		logger:          slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Query answers a question using the ingested corpus.
//
// Vector hits whose document is gone are skipped with a warning: they are
// stale references left behind by the non-atomic ingestion path, not
// errors. If nothing resolvable remains, the result is the defined
// no-context answer with ContextFound false — a success, not a failure.
// Only answer generation itself can fail, reported as ErrAnswerFailed.
func (s *Searcher) Query(ctx context.Context, question string) (*core.QueryResult, error) {
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	embedding, err := s.embedder.EmbedText(ctx, question)
	if err != nil {
		s.logger.Error("error embedding question", "err", err)
		return nil, fmt.Errorf("embed question: %w", err)
	}

	matches, err := s.vectors.Search(ctx, embedding, s.topK)
	if err != nil {
		s.logger.Error("error searching vector index", "err", err)
		return nil, fmt.Errorf("vector search: %w", err)
	}

	// Resolve hits against the document store, skipping stale references.
	// Sources keep first-seen order: a URL's rank is its best hit's rank.
	entries := make([]contextEntry, 0, len(matches))
	sources := make([]string, 0, len(matches))
	seen := make(map[string]bool)

	for _, match := range matches {
		doc, err := s.documents.Get(ctx, match.Record.DocumentId)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				s.logger.Warn("skipping stale vector reference",
					"document_id", match.Record.DocumentId.String(),
					"url", match.Record.URL,
					"chunk", match.Record.ChunkIndex)
				continue
			}
			return nil, fmt.Errorf("resolve document: %w", err)
		}

		entries = append(entries, contextEntry{
			URL:   doc.URL,
			Title: doc.Title,
			Text:  match.Record.Text,
		})
		if !seen[doc.URL] {
			seen[doc.URL] = true
			sources = append(sources, doc.URL)
		}
	}

	if len(entries) == 0 {
		return &core.QueryResult{
			Answer:       core.NoContextAnswer,
			Sources:      []string{},
			ContextFound: false,
		}, nil
	}

	contextBlock := assembleContext(entries, s.maxContextBytes)

	answer, err := s.answerer.Answer(ctx, question, contextBlock)
	if err != nil {
		s.logger.Error("error generating answer", "err", err)
		return nil, fmt.Errorf("%w: %v", ErrAnswerFailed, err)
	}

	return &core.QueryResult{
		Answer:       answer,
		Sources:      sources,
		ContextFound: true,
	}, nil
}
