package handler

import (
	"net/http"

	"protoreview/internal/session"
)

// HealthHandler answers liveness and readiness probes. Readiness checks the
// session backend, the only hard runtime dependency.
type HealthHandler struct {
	sessions *session.RedisStore
}

func NewHealthHandler(sessions *session.RedisStore) *HealthHandler {
	return &HealthHandler{sessions: sessions}
}

func (h *HealthHandler) Live(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "session store unreachable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
