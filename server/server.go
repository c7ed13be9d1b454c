// Package server provides the HTTP API for neuraldocs.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mxmarchal/neuraldocs/core"
)

// Service is the application surface the HTTP layer exposes.
type Service interface {
	// EnqueueIngest accepts a URL for asynchronous ingestion and returns
	// the task ID to poll.
	EnqueueIngest(ctx context.Context, url string) (string, error)

	// TaskStatus reports the state of an ingestion task.
	// Returns core.ErrUnknownJob for an ID that was never issued.
	TaskStatus(ctx context.Context, id string) (*core.Job, error)

	// Query answers a question over the ingested corpus.
	Query(ctx context.Context, question string) (*core.QueryResult, error)

	// ListDocuments returns one fixed-size page of the document listing.
	ListDocuments(ctx context.Context, page int) (*core.DocumentPage, error)

	// Stats summarizes the corpus.
	Stats(ctx context.Context) (*core.CorpusStats, error)
}

// Server is the HTTP server for the neuraldocs API.
type Server struct {
	service Service
	addr    string
	timeout time.Duration
	logger  *slog.Logger
	server  *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithAddr sets the listen address.
// Default is ":8000".
func WithAddr(addr string) Option {
	return func(s *Server) {
		if addr != "" {
			s.addr = addr
		}
	}
}

// WithRequestTimeout sets the per-request timeout middleware.
// Default is 60 seconds.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(s *Server) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer creates a server over the given service.
func NewServer(service Service, opts ...Option) *Server {
	s := &Server{
		service: service,
		addr:    ":8000",
		timeout: 60 * time.Second,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the HTTP routes. Exposed so tests can drive the handlers
// without a listening socket.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.timeout))

	r.Post("/add-url", s.handleAddURL)
	r.Get("/tasks/{id}", s.handleTaskStatus)
	r.Post("/query", s.handleQuery)
	r.Get("/documents", s.handleListDocuments)
	r.Get("/stats", s.handleStats)
	r.Get("/health", s.handleHealth)

	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    s.addr,
		Handler: s.Router(),
	}
	s.logger.Info("starting server", "addr", s.addr)
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
