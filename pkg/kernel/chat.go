package kernel

import (
	"errors"
	"net/http"
	"strings"

	"github.com/chimeralabs/chimera/internal/core/domain"
	"github.com/chimeralabs/chimera/internal/core/services"
)

type chatRequest struct {
	ConversationID string `json:"conversation_id,omitempty"`
	Message        string `json:"message"`
	PersonaID      string `json:"persona_id,omitempty"`
}

type chatResponse struct {
	ConversationID string                  `json:"conversation_id"`
	Response       string                  `json:"response"`
	Steps          []domain.LoopStep       `json:"steps,omitempty"`
	Video          *domain.VideoSearchData `json:"video,omitempty"`
	PersonaUpdated string                  `json:"persona_updated,omitempty"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	var personaID *domain.PersonaID
	if req.PersonaID != "" {
		pid := domain.PersonaID(req.PersonaID)
		personaID = &pid
	}

	resp, convID, err := s.agent.Chat(r.Context(), domain.ConversationID(req.ConversationID), req.Message, personaID)
	if err != nil {
		s.logger.Error("chat request failed", "conversation", convID, "error", err)
		if errors.Is(err, services.ErrToolContextTimeout) {
			writeError(w, http.StatusServiceUnavailable, "tool catalog is still initializing, retry shortly")
			return
		}
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		ConversationID: string(convID),
		Response:       resp.Response,
		Steps:          resp.Steps,
		Video:          resp.Video,
		PersonaUpdated: resp.PersonaUpdated,
	})
}
