package kernel

import (
	"fmt"
	"net/http"

	"github.com/chimeralabs/chimera/internal/core/domain"
)

// handleConversationSSE streams reasoning-loop progress for one
// conversation as server-sent events. It subscribes to the EventBus
// keyed by the conversation ID and forwards turn, tool_call, fallback
// and done events as they happen.
func (s *Server) handleConversationSSE(w http.ResponseWriter, r *http.Request) {
	convID := domain.ConversationID(r.PathValue("id"))
	if convID == "" {
		writeError(w, http.StatusBadRequest, "missing conversation id")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch, unsub := s.eventBus.Subscribe(convID)
	defer unsub()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Type, evt.Data)
			flusher.Flush()
		}
	}
}
