package handler

import (
	"bytes"
	"log/slog"
	"net/http"

	"github.com/msomdec/startup-scout/internal/store"
	"github.com/msomdec/startup-scout/internal/view"
)

// AnalyticsHandler serves the analytics page and the CSV export.
type AnalyticsHandler struct {
	session   *store.Session
	analytics *store.Analytics
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(session *store.Session, analytics *store.Analytics) *AnalyticsHandler {
	return &AnalyticsHandler{session: session, analytics: analytics}
}

// HandleAnalytics renders the dashboard counts.
// GET /analytics
func (h *AnalyticsHandler) HandleAnalytics(w http.ResponseWriter, r *http.Request) {
	h.analytics.Fetch(r.Context())
	state := h.analytics.State()
	h.analytics.ClearError()

	view.AnalyticsPage(h.session.User(), state).Render(r.Context(), w)
}

// HandleExport passes the backend's watchlist CSV through as a download.
// GET /analytics/export
func (h *AnalyticsHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.analytics.Export(r.Context(), &buf); err != nil {
		slog.Error("export watchlist", "error", err)
		h.analytics.ClearError()
		http.Error(w, store.ErrorMessage(err), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="watchlist_export.csv"`)
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Error("write export", "error", err)
	}
}
