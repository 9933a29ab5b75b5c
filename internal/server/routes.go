package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/lishiyo/frontier-tower-coordination-bot-sub000/internal/knowledge"
)

// registerRoutes mounts the knowledge base API routes.
func (s *Server) registerRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/documents", s.handleIngest)
		r.Get("/documents", s.handleListDocuments)
		r.Get("/documents/{id}", s.handleGetDocument)
		r.Post("/documents/{id}/proposal", s.handleAttachProposal)
		r.Post("/ask", s.handleAsk)
		r.Post("/reindex", s.handleReindex)
	})
}

type ingestRequest struct {
	Text       string `json:"text"`
	URL        string `json:"url"`
	Title      string `json:"title"`
	ProposalID string `json:"proposal_id"`
}

type ingestResponse struct {
	DocumentID string   `json:"document_id"`
	ChunkIDs   []string `json:"chunk_ids"`
	Searchable bool     `json:"searchable"`
	Warning    string   `json:"warning,omitempty"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Text == "" && req.URL == "" {
		writeError(w, http.StatusBadRequest, "text or url is required")
		return
	}
	if req.Text != "" && req.URL != "" {
		writeError(w, http.StatusBadRequest, "provide either text or url, not both")
		return
	}

	kreq := knowledge.IngestRequest{
		Source:     req.Text,
		Kind:       knowledge.SourceText,
		Title:      req.Title,
		ProposalID: req.ProposalID,
	}
	if req.URL != "" {
		kreq.Source = req.URL
		kreq.Kind = knowledge.SourceURL
	}

	result, err := s.ingestor.Ingest(r.Context(), kreq)
	if err != nil {
		if errors.Is(err, knowledge.ErrNoContent) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("ingest failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := ingestResponse{
		DocumentID: result.DocumentID,
		ChunkIDs:   result.ChunkIDs,
		Searchable: result.Searchable,
	}
	if result.IndexErr != nil {
		resp.Warning = "document stored but not searchable yet; run reindex"
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	docs, err := s.docs.List(r.Context(), limit)
	if err != nil {
		s.logger.Error("listing documents failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	doc, err := s.docs.GetByID(r.Context(), id)
	if err != nil {
		s.logger.Error("fetching document failed", "document_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if doc == nil {
		writeError(w, http.StatusNotFound, "document not found")
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

type attachProposalRequest struct {
	ProposalID string `json:"proposal_id"`
}

func (s *Server) handleAttachProposal(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req attachProposalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ProposalID == "" {
		writeError(w, http.StatusBadRequest, "proposal_id is required")
		return
	}

	if err := s.ingestor.AttachProposal(r.Context(), id, req.ProposalID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type askRequest struct {
	Question   string `json:"question"`
	ProposalID string `json:"proposal_id"`
}

type askResponse struct {
	Answer  string             `json:"answer"`
	Sources []knowledge.Source `json:"sources"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	answer, err := s.answerer.Answer(r.Context(), req.Question, req.ProposalID)
	if err != nil {
		switch {
		case errors.Is(err, knowledge.ErrNoRelevantContent),
			errors.Is(err, knowledge.ErrNoUsableText):
			writeError(w, http.StatusNotFound, knowledge.UserMessage(err))
		case errors.Is(err, knowledge.ErrQuestionEmbedding):
			writeError(w, http.StatusBadGateway, knowledge.UserMessage(err))
		default:
			s.logger.Error("answering failed", "error", err)
			writeError(w, http.StatusInternalServerError, knowledge.UserMessage(err))
		}
		return
	}

	writeJSON(w, http.StatusOK, askResponse{Answer: answer.Text, Sources: answer.Sources})
}

func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	report, err := s.ingestor.Reindex(r.Context())
	if err != nil {
		s.logger.Error("reindex failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	failed := make(map[string]string, len(report.Failed))
	for id, ferr := range report.Failed {
		failed[id] = ferr.Error()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"scanned":  report.Scanned,
		"repaired": report.Repaired,
		"failed":   failed,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
