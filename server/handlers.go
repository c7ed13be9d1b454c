package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mxmarchal/neuraldocs/core"
	"github.com/mxmarchal/neuraldocs/search"
)

type addURLRequest struct {
	URL string `json:"url"`
}

type addURLResponse struct {
	Message string `json:"message"`
	TaskID  string `json:"task_id"`
}

type taskResponse struct {
	TaskID     string `json:"task_id"`
	Status     string `json:"status"`
	URL        string `json:"url"`
	Attempts   int    `json:"attempts"`
	DocumentID string `json:"document_id,omitempty"`
	ErrorKind  string `json:"error_kind,omitempty"`
	Error      string `json:"error,omitempty"`
	CreatedAt  string `json:"created_at,omitempty"`
	FinishedAt string `json:"finished_at,omitempty"`
}

type queryRequest struct {
	Question string `json:"question"`
}

type queryResponse struct {
	Answer       string   `json:"answer"`
	Sources      []string `json:"sources"`
	ContextFound bool     `json:"context_found"`
}

type documentSummary struct {
	ID    string `json:"id"`
	URL   string `json:"url"`
	Title string `json:"title"`
}

type documentPageResponse struct {
	Page      int               `json:"page"`
	PageSize  int               `json:"page_size"`
	Total     int               `json:"total"`
	Documents []documentSummary `json:"documents"`
}

type statsResponse struct {
	Documents int `json:"documents"`
	Vectors   int `json:"vectors"`
}

func (s *Server) handleAddURL(w http.ResponseWriter, r *http.Request) {
	var req addURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.URL == "" {
		s.respondError(w, http.StatusBadRequest, "url is required")
		return
	}

	taskID, err := s.service.EnqueueIngest(r.Context(), req.URL)
	if err != nil {
		if errors.Is(err, core.ErrEmptyURL) {
			s.respondError(w, http.StatusBadRequest, "url is required")
			return
		}
		s.logger.Error("enqueue failed", "url", req.URL, "err", err)
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusAccepted, addURLResponse{
		Message: "URL accepted for ingestion",
		TaskID:  taskID,
	})
}

func (s *Server) handleTaskStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	job, err := s.service.TaskStatus(r.Context(), id)
	if err != nil {
		if errors.Is(err, core.ErrUnknownJob) {
			s.respondError(w, http.StatusNotFound, "unknown task")
			return
		}
		s.logger.Error("task status failed", "task_id", id, "err", err)
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := taskResponse{
		TaskID:   job.Id,
		Status:   string(job.State),
		URL:      job.URL,
		Attempts: job.Attempts,
	}
	if job.State == core.JobStateSucceeded {
		resp.DocumentID = job.DocumentId.String()
	}
	if job.State == core.JobStateFailed {
		resp.ErrorKind = job.ErrorKind
		resp.Error = job.ErrorMessage
	}
	if !job.CreatedAt.IsZero() {
		resp.CreatedAt = job.CreatedAt.Format(time.RFC3339)
	}
	if !job.FinishedAt.IsZero() {
		resp.FinishedAt = job.FinishedAt.Format(time.RFC3339)
	}

	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Question == "" {
		s.respondError(w, http.StatusBadRequest, "question is required")
		return
	}

	result, err := s.service.Query(r.Context(), req.Question)
	if err != nil {
		if errors.Is(err, search.ErrEmptyQuestion) {
			s.respondError(w, http.StatusBadRequest, "question is required")
			return
		}
		if errors.Is(err, search.ErrAnswerFailed) {
			// Retrieval worked; the model did not. The client can retry.
			s.logger.Error("answer generation failed", "err", err)
			s.respondJSON(w, http.StatusBadGateway, map[string]string{
				"error": "answer generation failed",
				"code":  "answer_failed",
			})
			return
		}
		s.logger.Error("query failed", "err", err)
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, queryResponse{
		Answer:       result.Answer,
		Sources:      result.Sources,
		ContextFound: result.ContextFound,
	})
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			s.respondError(w, http.StatusBadRequest, "page must be a positive integer")
			return
		}
		page = parsed
	}

	docPage, err := s.service.ListDocuments(r.Context(), page)
	if err != nil {
		s.logger.Error("list documents failed", "page", page, "err", err)
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := documentPageResponse{
		Page:      docPage.Page,
		PageSize:  docPage.PageSize,
		Total:     docPage.Total,
		Documents: make([]documentSummary, len(docPage.Documents)),
	}
	for i, doc := range docPage.Documents {
		resp.Documents[i] = documentSummary{
			ID:    doc.Id.String(),
			URL:   doc.URL,
			Title: doc.Title,
		}
	}

	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.Stats(r.Context())
	if err != nil {
		s.logger.Error("stats failed", "err", err)
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, statsResponse{
		Documents: stats.Documents,
		Vectors:   stats.Vectors,
	})
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
