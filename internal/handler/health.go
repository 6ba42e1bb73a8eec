package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/msomdec/startup-scout/internal/store"
)

// Pinger reports whether local storage is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health serves GET /healthz.
type Health struct {
	storage Pinger
	auth    store.AuthState
}

// NewHealth creates a Health handler.
func NewHealth(storage Pinger, auth store.AuthState) *Health {
	return &Health{storage: storage, auth: auth}
}

// HandleHealthz reports storage reachability and whether a user is signed
// in. It answers 503 when storage cannot be reached.
func (h *Health) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.storage.Ping(ctx); err != nil {
		slog.Error("health check storage ping", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"authenticated": h.auth.IsAuthenticated(),
	})
}
