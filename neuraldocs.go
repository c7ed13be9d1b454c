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

// Package neuraldocs assembles the storage, AI, ingestion, scheduling, and
// search layers into one service behind a small facade. The HTTP server and
// the CLI both talk to a Service; nothing above this package touches the
// repositories directly.
package neuraldocs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/mxmarchal/neuraldocs/ai"
	"github.com/mxmarchal/neuraldocs/ai/openai"
	"github.com/mxmarchal/neuraldocs/config"
	"github.com/mxmarchal/neuraldocs/core"
	"github.com/mxmarchal/neuraldocs/fetch"
	"github.com/mxmarchal/neuraldocs/ingestion"
	"github.com/mxmarchal/neuraldocs/scheduler"
	"github.com/mxmarchal/neuraldocs/search"
	"github.com/mxmarchal/neuraldocs/server"
	"github.com/mxmarchal/neuraldocs/storage"
	"github.com/mxmarchal/neuraldocs/storage/badger"
)

var _ server.Service = (*Service)(nil)

// PageSize is the fixed number of documents per listing page.
const PageSize = 100

// APIKeyEnv names the environment variable holding the model API key.
// The key is never read from the config file.
const APIKeyEnv = "NEURALDOCS_API_KEY"

// Service wires the full application together: BadgerDB-backed repositories,
// an OpenAI-compatible model provider, the ingestion pipeline, the job
// scheduler, and the searcher.
type Service struct {
	cfg       *config.Config
	backend   *badger.Backend
	documents storage.DocumentRepository
	vectors   storage.VectorRepository
	jobs      storage.JobRepository
	provider  ai.Provider
	fetcher   ingestion.Fetcher
	pipeline  *ingestion.Pipeline
	scheduler *scheduler.Scheduler
	searcher  *search.Searcher
	logger    *slog.Logger
}

// ServiceOption configures a Service during construction.
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	inMemory bool
	provider ai.Provider
	fetcher  ingestion.Fetcher
	logger   *slog.Logger
}

// WithInMemory opens the storage backend in memory instead of on disk.
func WithInMemory() ServiceOption {
	return func(o *serviceOptions) {
		o.inMemory = true
	}
}

// WithProvider substitutes the AI provider, bypassing the OpenAI-compatible
// client construction. Intended for tests.
func WithProvider(provider ai.Provider) ServiceOption {
	return func(o *serviceOptions) {
		o.provider = provider
	}
}

// WithFetcher substitutes the page fetcher. Intended for tests.
func WithFetcher(fetcher ingestion.Fetcher) ServiceOption {
	return func(o *serviceOptions) {
		o.fetcher = fetcher
	}
}

// WithServiceLogger sets a custom logger for the service and every component
// it builds. Default is slog.Default().
func WithServiceLogger(logger *slog.Logger) ServiceOption {
	return func(o *serviceOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewService opens the storage backend and builds every component from cfg.
// On any failure the already-opened components are closed before returning.
func NewService(cfg *config.Config, opts ...ServiceOption) (*Service, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	options := serviceOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&options)
	}

	backend, err := badger.OpenBackend(cfg.Storage.DatabasePath, options.inMemory)
	if err != nil {
		return nil, fmt.Errorf("open storage backend: %w", err)
	}

	documents, err := badger.NewDocumentRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	vectors, err := badger.NewVectorRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	jobs, err := badger.NewJobRepository(backend)
	if err != nil {
		vectors.Close()
		backend.Close()
		return nil, err
	}

	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(ai.NewConfig(
			ai.WithEmbeddingHost(cfg.AI.EmbeddingHost),
			ai.WithChatHost(cfg.AI.ChatHost),
			ai.WithAPIKey(os.Getenv(APIKeyEnv)),
			ai.WithEmbeddingModel(cfg.AI.EmbeddingModel),
			ai.WithStructurerModel(cfg.AI.StructurerModel),
			ai.WithAnswerModel(cfg.AI.AnswerModel),
			ai.WithEmbeddingDimensions(cfg.AI.EmbeddingDimensions),
		))
		if err != nil {
			vectors.Close()
			backend.Close()
			return nil, err
		}
	}

	fetcher := options.fetcher
	if fetcher == nil {
		fetcher = fetch.NewFetcher(
			fetch.WithTimeout(time.Duration(cfg.Ingestion.FetchTimeout) * time.Second),
		)
	}

	pipeline, err := ingestion.NewPipeline(documents, vectors, fetcher, provider,
		ingestion.WithChunking(cfg.Ingestion.ChunkSize, cfg.Ingestion.ChunkOverlap),
		ingestion.WithLogger(options.logger),
	)
	if err != nil {
		provider.Close()
		vectors.Close()
		backend.Close()
		return nil, err
	}

	schedOpts := []scheduler.Option{
		scheduler.WithMaxAttempts(cfg.Ingestion.MaxAttempts),
		scheduler.WithLogger(options.logger),
	}
	if cfg.Ingestion.PoolSize > 0 {
		schedOpts = append(schedOpts, scheduler.WithPoolSize(cfg.Ingestion.PoolSize))
	}
	sched, err := scheduler.NewScheduler(jobs, pipeline, schedOpts...)
	if err != nil {
		provider.Close()
		vectors.Close()
		backend.Close()
		return nil, err
	}

	searcher, err := search.NewSearcher(documents, vectors, provider,
		search.WithTopK(cfg.Search.TopK),
		search.WithMaxContextBytes(cfg.Search.MaxContextBytes),
		search.WithLogger(options.logger),
	)
	if err != nil {
		sched.Close()
		provider.Close()
		vectors.Close()
		backend.Close()
		return nil, err
	}

	return &Service{
		cfg:       cfg,
		backend:   backend,
		documents: documents,
		vectors:   vectors,
		jobs:      jobs,
		provider:  provider,
		fetcher:   fetcher,
		pipeline:  pipeline,
		scheduler: sched,
		searcher:  searcher,
		logger:    options.logger,
	}, nil
}

// EnqueueIngest accepts a URL for asynchronous ingestion and returns the
// task ID to poll.
func (s *Service) EnqueueIngest(ctx context.Context, url string) (string, error) {
	return s.scheduler.EnqueueIngest(ctx, url)
}

// TaskStatus reports the state of an ingestion task.
// Returns core.ErrUnknownJob for an ID that was never issued.
func (s *Service) TaskStatus(ctx context.Context, id string) (*core.Job, error) {
	return s.scheduler.Status(ctx, id)
}

// Ingest runs the full ingestion chain for one URL synchronously, without
// going through the job scheduler. Used by the CLI.
func (s *Service) Ingest(ctx context.Context, url string) (core.ID, error) {
	return s.pipeline.Ingest(ctx, url)
}

// Query answers a question over the ingested corpus.
func (s *Service) Query(ctx context.Context, question string) (*core.QueryResult, error) {
	return s.searcher.Query(ctx, question)
}

// ListDocuments returns one page of the document listing, ordered by first
// ingestion time. Pages are numbered from 1 and hold PageSize documents;
// a page past the end is valid and comes back empty.
func (s *Service) ListDocuments(ctx context.Context, page int) (*core.DocumentPage, error) {
	if page < 1 {
		return nil, fmt.Errorf("%w: page must be >= 1", storage.ErrInvalidQuery)
	}

	total, err := s.documents.Count(ctx)
	if err != nil {
		return nil, err
	}

	docs, err := s.documents.List(ctx, (page-1)*PageSize, PageSize)
	if err != nil {
		return nil, err
	}

	summaries := make([]core.DocumentSummary, len(docs))
	for i, doc := range docs {
		summaries[i] = core.DocumentSummary{
			Id:    doc.Id,
			URL:   doc.URL,
			Title: doc.Title,
		}
	}

	return &core.DocumentPage{
		Page:      page,
		PageSize:  PageSize,
		Total:     total,
		Documents: summaries,
	}, nil
}

// Stats summarizes the corpus.
func (s *Service) Stats(ctx context.Context) (*core.CorpusStats, error) {
	documents, err := s.documents.Count(ctx)
	if err != nil {
		return nil, err
	}
	vectors, err := s.vectors.Count(ctx)
	if err != nil {
		return nil, err
	}
	return &core.CorpusStats{Documents: documents, Vectors: vectors}, nil
}

// VerifyEmbedding probes the embedding model once and checks its vector
// width against the configured dimensions and against the dimensionality the
// vector index was built with. Run at startup: a mismatch here means every
// later search would silently compare incompatible vectors, so it is fatal.
func (s *Service) VerifyEmbedding(ctx context.Context) error {
	vector, err := s.provider.Embedder().EmbedText(ctx, "dimension probe")
	if err != nil {
		return fmt.Errorf("probe embedding model: %w", err)
	}

	if want := s.cfg.AI.EmbeddingDimensions; want > 0 && len(vector) != want {
		return core.Configuration("startup", fmt.Errorf(
			"%w: model produces %d-dimensional vectors, config expects %d",
			storage.ErrDimensionMismatch, len(vector), want))
	}

	stored, err := s.vectors.Dimension(ctx)
	if err != nil {
		return err
	}
	if stored > 0 && len(vector) != stored {
		return core.Configuration("startup", fmt.Errorf(
			"%w: model produces %d-dimensional vectors, index holds %d-dimensional ones; reindex before serving",
			storage.ErrDimensionMismatch, len(vector), stored))
	}

	s.logger.Info("embedding model verified", "dimensions", len(vector))
	return nil
}

// ReindexAll re-embeds and re-indexes every stored document with the current
// embedding model. The index dimensionality is reset first so a model with a
// new vector width can take over. Returns the number of documents reindexed.
func (s *Service) ReindexAll(ctx context.Context) (int, error) {
	if err := s.vectors.ResetDimension(ctx); err != nil {
		return 0, err
	}

	reindexed := 0
	for offset := 0; ; offset += PageSize {
		docs, err := s.documents.List(ctx, offset, PageSize)
		if err != nil {
			return reindexed, err
		}
		if len(docs) == 0 {
			break
		}

		for _, doc := range docs {
			chunks, err := s.pipeline.Reindex(ctx, doc)
			if err != nil {
				return reindexed, fmt.Errorf("reindex %s: %w", doc.URL, err)
			}
			reindexed++
			s.logger.Info("reindexed document",
				"url", doc.URL,
				"document_id", doc.Id.String(),
				"chunks", chunks)
		}
	}

	return reindexed, nil
}

// Recover re-enqueues ingestion jobs left unfinished by the previous run.
// Call once at startup, before serving new enqueues.
func (s *Service) Recover(ctx context.Context) (int, error) {
	return s.scheduler.Recover(ctx)
}

// Documents exposes the document repository.
func (s *Service) Documents() storage.DocumentRepository {
	return s.documents
}

// Vectors exposes the vector repository.
func (s *Service) Vectors() storage.VectorRepository {
	return s.vectors
}

// Jobs exposes the job repository.
func (s *Service) Jobs() storage.JobRepository {
	return s.jobs
}

// Close shuts the service down: the scheduler drains first so no worker
// touches storage after the repositories close.
func (s *Service) Close() error {
	var errs []error

	if err := s.scheduler.Close(); err != nil {
		s.logger.Error("error closing scheduler", "err", err)
		errs = append(errs, err)
	}
	if err := s.provider.Close(); err != nil {
		s.logger.Error("error closing AI provider", "err", err)
		errs = append(errs, err)
	}
	if err := s.vectors.Close(); err != nil {
		s.logger.Error("error closing vector repository", "err", err)
		errs = append(errs, err)
	}
	if err := s.documents.Close(); err != nil {
		s.logger.Error("error closing document repository", "err", err)
		errs = append(errs, err)
	}
	if err := s.jobs.Close(); err != nil {
		s.logger.Error("error closing job repository", "err", err)
		errs = append(errs, err)
	}
	if err := s.backend.Close(); err != nil {
		s.logger.Error("error closing storage backend", "err", err)
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
