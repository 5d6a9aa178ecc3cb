package kernel

import (
	"net/http"
	"strings"
	"time"

	"github.com/chimeralabs/chimera/internal/core/domain"
)

func (s *Server) handleListNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := s.repo.ListNotes(r.Context())
	if err != nil {
		s.logger.Error("failed to list notes", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list notes")
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

func (s *Server) handleCreateNote(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, "title and content are required")
		return
	}

	n := domain.Note{
		ID:        domain.NewNoteID(),
		Title:     req.Title,
		Content:   req.Content,
		CreatedAt: time.Now(),
	}
	if err := s.repo.SaveNote(r.Context(), n); err != nil {
		s.logger.Error("failed to save note", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save note")
		return
	}
	writeJSON(w, http.StatusCreated, n)
}
