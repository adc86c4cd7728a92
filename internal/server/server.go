// Package server provides the HTTP API for Kotae.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/history"
	"github.com/hyperjump/kotae/internal/ingest"
	"github.com/hyperjump/kotae/internal/retrieval"
	"github.com/hyperjump/kotae/internal/vector"
)

// Server is the HTTP server for the Kotae API.
type Server struct {
	ingestor  *ingest.Pipeline
	retriever *retrieval.Pipeline
	index     vector.Index
	history   *history.Store
	config    *config.Config
	logger    *zap.Logger
	server    *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	ingestor *ingest.Pipeline,
	retriever *retrieval.Pipeline,
	index vector.Index,
	historyStore *history.Store,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		ingestor:  ingestor,
		retriever: retriever,
		index:     index,
		history:   historyStore,
		config:    cfg,
		logger:    logger,
	}
}

// Router builds the chi router with all routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	// Streaming responses outlive the request timeout, so the timeout
	// middleware applies to everything else.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		r.Post("/api/v1/rag/ingest", s.handleIngest)
		r.Post("/api/v1/rag/query", s.handleQuery)
		r.Get("/api/v1/history/sessions", s.handleListSessions)
		r.Post("/api/v1/history/sessions", s.handleCreateSession)
		r.Get("/api/v1/history/sessions/{id}/messages", s.handleListMessages)
		r.Get("/api/v1/status", s.handleStatus)
		r.Get("/health", s.handleHealth)
	})
	r.Post("/api/v1/rag/query/stream", s.handleQueryStream)

	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
