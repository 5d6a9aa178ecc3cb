package kernel

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/chimeralabs/chimera/internal/core/domain"
)

type personaRequest struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	SystemPrompt string `json:"system_prompt"`
}

func (s *Server) handleListPersonas(w http.ResponseWriter, r *http.Request) {
	personas, err := s.repo.ListPersonas(r.Context())
	if err != nil {
		s.logger.Error("failed to list personas", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list personas")
		return
	}
	writeJSON(w, http.StatusOK, personas)
}

func (s *Server) handleCreatePersona(w http.ResponseWriter, r *http.Request) {
	var req personaRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.SystemPrompt) == "" {
		writeError(w, http.StatusBadRequest, "name and system_prompt are required")
		return
	}

	now := time.Now()
	p := domain.Persona{
		ID:           domain.NewPersonaID(),
		Name:         req.Name,
		Description:  req.Description,
		SystemPrompt: req.SystemPrompt,
		IsBuiltin:    false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.CreatePersona(r.Context(), p); err != nil {
		s.logger.Error("failed to create persona", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create persona")
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleGetPersona(w http.ResponseWriter, r *http.Request) {
	id := domain.PersonaID(r.PathValue("id"))
	p, err := s.repo.GetPersona(r.Context(), id)
	if errors.Is(err, domain.ErrPersonaNotFound) {
		writeError(w, http.StatusNotFound, "persona not found")
		return
	}
	if err != nil {
		s.logger.Error("failed to get persona", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get persona")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleUpdatePersona(w http.ResponseWriter, r *http.Request) {
	id := domain.PersonaID(r.PathValue("id"))

	existing, err := s.repo.GetPersona(r.Context(), id)
	if errors.Is(err, domain.ErrPersonaNotFound) {
		writeError(w, http.StatusNotFound, "persona not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get persona")
		return
	}
	if existing.IsBuiltin {
		writeError(w, http.StatusForbidden, "builtin personas cannot be modified")
		return
	}

	var req personaRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name != "" {
		existing.Name = req.Name
	}
	if req.Description != "" {
		existing.Description = req.Description
	}
	if req.SystemPrompt != "" {
		existing.SystemPrompt = req.SystemPrompt
	}
	existing.UpdatedAt = time.Now()

	if err := s.repo.UpdatePersona(r.Context(), existing); err != nil {
		s.logger.Error("failed to update persona", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update persona")
		return
	}
	writeJSON(w, http.StatusOK, existing)
}

func (s *Server) handleDeletePersona(w http.ResponseWriter, r *http.Request) {
	id := domain.PersonaID(r.PathValue("id"))
	err := s.repo.DeletePersona(r.Context(), id)
	if errors.Is(err, domain.ErrPersonaNotFound) {
		writeError(w, http.StatusNotFound, "persona not found")
		return
	}
	if err != nil {
		s.logger.Error("failed to delete persona", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete persona")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
