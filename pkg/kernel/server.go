// Package kernel exposes the reasoning agent and its supporting stores
// over HTTP.
package kernel

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/chimeralabs/chimera/internal/config"
	"github.com/chimeralabs/chimera/internal/core/domain"
	"github.com/chimeralabs/chimera/internal/core/services"
)

type Server struct {
	logger    *slog.Logger
	agent     *services.ReasoningService
	eventBus  *services.EventBus
	settings  *config.SettingsStore
	convStore *services.ConversationStore
	tracer    *services.TraceCollector
	toolCtx   *services.ToolContext
	repo      interface {
		CreatePersona(ctx context.Context, p domain.Persona) error
		GetPersona(ctx context.Context, id domain.PersonaID) (domain.Persona, error)
		ListPersonas(ctx context.Context) ([]domain.Persona, error)
		UpdatePersona(ctx context.Context, p domain.Persona) error
		DeletePersona(ctx context.Context, id domain.PersonaID) error
		SaveNote(ctx context.Context, n domain.Note) error
		ListNotes(ctx context.Context) ([]domain.Note, error)
	}
}

func NewServer(
	logger *slog.Logger,
	agent *services.ReasoningService,
	eventBus *services.EventBus,
	settings *config.SettingsStore,
	convStore *services.ConversationStore,
	tracer *services.TraceCollector,
	toolCtx *services.ToolContext,
	repo interface {
		CreatePersona(ctx context.Context, p domain.Persona) error
		GetPersona(ctx context.Context, id domain.PersonaID) (domain.Persona, error)
		ListPersonas(ctx context.Context) ([]domain.Persona, error)
		UpdatePersona(ctx context.Context, p domain.Persona) error
		DeletePersona(ctx context.Context, id domain.PersonaID) error
		SaveNote(ctx context.Context, n domain.Note) error
		ListNotes(ctx context.Context) ([]domain.Note, error)
	},
) *Server {
	return &Server{
		logger:    logger,
		agent:     agent,
		eventBus:  eventBus,
		settings:  settings,
		convStore: convStore,
		tracer:    tracer,
		toolCtx:   toolCtx,
		repo:      repo,
	}
}

// Handler returns the http.Handler for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)

	mux.HandleFunc("POST /v1/chat", s.handleChat)

	mux.HandleFunc("GET /v1/conversations", s.handleListConversations)
	mux.HandleFunc("GET /v1/conversations/{id}", s.handleGetConversation)
	mux.HandleFunc("PATCH /v1/conversations/{id}", s.handleRenameConversation)
	mux.HandleFunc("DELETE /v1/conversations/{id}", s.handleDeleteConversation)
	mux.HandleFunc("GET /v1/conversations/{id}/messages", s.handleListMessages)
	mux.HandleFunc("GET /v1/conversations/{id}/events", s.handleConversationSSE)

	mux.HandleFunc("GET /v1/personas", s.handleListPersonas)
	mux.HandleFunc("POST /v1/personas", s.handleCreatePersona)
	mux.HandleFunc("GET /v1/personas/{id}", s.handleGetPersona)
	mux.HandleFunc("PUT /v1/personas/{id}", s.handleUpdatePersona)
	mux.HandleFunc("DELETE /v1/personas/{id}", s.handleDeletePersona)

	mux.HandleFunc("GET /v1/notes", s.handleListNotes)
	mux.HandleFunc("POST /v1/notes", s.handleCreateNote)

	mux.HandleFunc("GET /v1/settings", s.handleGetSettings)
	mux.HandleFunc("PUT /v1/settings", s.handleUpdateSettings)

	mux.HandleFunc("GET /v1/tools", s.handleListTools)

	mux.HandleFunc("GET /v1/traces", s.handleListTraces)
	mux.HandleFunc("GET /v1/traces/{id}", s.handleGetTrace)

	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	tools, err := s.toolCtx.Tools(r.Context())
	if err != nil {
		s.logger.Error("failed to list tools", "error", err)
		writeError(w, http.StatusBadGateway, "tool service unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tools": tools})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
