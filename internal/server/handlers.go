package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/history"
	"github.com/hyperjump/kotae/internal/models"
)

// maxUploadBytes bounds multipart ingest uploads.
const maxUploadBytes = 64 << 20

type ingestPathRequest struct {
	Path string `json:"path"`
}

// handleIngest accepts either a multipart file upload (form field "file")
// or a JSON body naming a server-local path. A document with no extractable
// text is reported as failed with 422.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var (
		report models.IngestionReport
		err    error
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		report, err = s.ingestUpload(r)
	} else {
		var req ingestPathRequest
		if decodeErr := json.NewDecoder(r.Body).Decode(&req); decodeErr != nil || req.Path == "" {
			s.respondError(w, http.StatusBadRequest, "path is required")
			return
		}
		s.logger.Debug("ingest path request", zap.String("path", req.Path))
		report, err = s.ingestor.IngestFile(r.Context(), req.Path)
	}
	if err != nil {
		s.logger.Error("ingest failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	status := http.StatusOK
	if report.Status == models.IngestFailed {
		status = http.StatusUnprocessableEntity
	}
	s.respondJSON(w, status, report)
}

func (s *Server) ingestUpload(r *http.Request) (models.IngestionReport, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return models.IngestionReport{}, err
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return models.IngestionReport{}, err
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		return models.IngestionReport{}, err
	}
	s.logger.Debug("ingest upload request",
		zap.String("filename", header.Filename),
		zap.Int("bytes", len(content)))
	return s.ingestor.IngestUpload(r.Context(), header.Filename, content)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req models.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(s.config.Retrieval.TopK, s.config.Retrieval.MaxTopK); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Debug("query request", zap.String("query", req.Query), zap.Int("top_k", req.TopK))

	resp, err := s.retriever.Answer(r.Context(), req.Query, req.TopK)
	if err != nil {
		s.logger.Error("query failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.recordExchange(r, req.SessionID, req.Query, resp.Answer)
	s.respondJSON(w, http.StatusOK, resp)
}

// handleQueryStream streams the answer as newline-delimited JSON events.
// Client disconnect cancels generation; sources and done events are still
// produced for whatever the client remains connected to receive.
func (s *Server) handleQueryStream(w http.ResponseWriter, r *http.Request) {
	var req models.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(s.config.Retrieval.TopK, s.config.Retrieval.MaxTopK); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.respondError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)

	stream := s.retriever.Stream(r.Context(), req.Query, req.TopK)
	defer stream.Close()

	enc := json.NewEncoder(w)
	var answer strings.Builder
	for {
		ev, ok := stream.Next(r.Context())
		if !ok {
			break
		}
		if ev.Type == models.EventToken {
			if token, isString := ev.Value.(string); isString {
				answer.WriteString(token)
			}
		}
		if err := enc.Encode(ev); err != nil {
			// Client went away; generation stops via the request context.
			s.logger.Debug("stream write failed", zap.Error(err))
			return
		}
		flusher.Flush()
	}
	s.recordExchange(r, req.SessionID, req.Query, answer.String())
}

// recordExchange appends the user query and assistant answer to the session
// history. History failures are logged, never surfaced to the client.
func (s *Server) recordExchange(r *http.Request, sessionID, query, answer string) {
	if s.history == nil || sessionID == "" {
		return
	}
	ctx := r.Context()
	if ctx.Err() != nil {
		ctx = context.WithoutCancel(ctx)
	}
	if _, err := s.history.AddMessage(ctx, sessionID, history.RoleUser, query); err != nil {
		s.logger.Warn("failed to record user message", zap.Error(err))
		return
	}
	if _, err := s.history.AddMessage(ctx, sessionID, history.RoleAssistant, answer); err != nil {
		s.logger.Warn("failed to record assistant message", zap.Error(err))
	}
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.respondError(w, http.StatusNotImplemented, "history not enabled")
		return
	}
	sessions, err := s.history.ListSessions(r.Context())
	if err != nil {
		s.logger.Error("list sessions failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"sessions": sessions})
}

type createSessionRequest struct {
	FirstMessage string `json:"first_message"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.respondError(w, http.StatusNotImplemented, "history not enabled")
		return
	}
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.FirstMessage == "" {
		s.respondError(w, http.StatusBadRequest, "first_message is required")
		return
	}
	session, err := s.history.CreateSession(r.Context(), req.FirstMessage)
	if err != nil {
		s.logger.Error("create session failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, session)
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.respondError(w, http.StatusNotImplemented, "history not enabled")
		return
	}
	id := chi.URLParam(r, "id")
	if _, err := s.history.GetSession(r.Context(), id); err != nil {
		s.respondError(w, http.StatusNotFound, "session not found")
		return
	}
	messages, err := s.history.ListMessages(r.Context(), id)
	if err != nil {
		s.logger.Error("list messages failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"messages": messages})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"indexed_chunks": s.index.Size(),
		"config": map[string]interface{}{
			"index_type":         s.config.Storage.IndexType,
			"embedding_provider": s.config.Embedding.Provider,
			"llm_provider":       s.config.LLM.Provider,
			"chunk_size":         s.config.Chunking.Size,
			"chunk_overlap":      s.config.Chunking.Overlap,
			"chunk_strategy":     s.config.Chunking.Strategy,
			"top_k":              s.config.Retrieval.TopK,
		},
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
