package handlers

import (
	"context"
	"net/http"
	"time"
)

// Health reports whether the store answers within a short deadline.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.log.WithError(err).Warn("health check failed")
		h.respondError(w, http.StatusServiceUnavailable, "unavailable", "store unavailable")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
