package kernel

import (
	"net/http"
	"strconv"

	"github.com/chimeralabs/chimera/internal/core/domain"
)

func (s *Server) handleListTraces(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	writeJSON(w, http.StatusOK, s.tracer.ListTraces(limit))
}

func (s *Server) handleGetTrace(w http.ResponseWriter, r *http.Request) {
	id := domain.TraceID(r.PathValue("id"))
	trace, err := s.tracer.GetTrace(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "trace not found")
		return
	}
	writeJSON(w, http.StatusOK, trace)
}
