package handler

import (
	"net/http"
	"strconv"

	"github.com/msomdec/startup-scout/internal/store"
	"github.com/msomdec/startup-scout/internal/view"
	datastar "github.com/starfederation/datastar-go/datastar"
)

// WatchlistHandler serves the watchlist page and the watch toggles.
type WatchlistHandler struct {
	session   *store.Session
	watchlist *store.Watchlist
}

// NewWatchlistHandler creates a new WatchlistHandler.
func NewWatchlistHandler(session *store.Session, watchlist *store.Watchlist) *WatchlistHandler {
	return &WatchlistHandler{session: session, watchlist: watchlist}
}

// HandleWatchlist renders the user's watchlist after reloading it.
// GET /watchlist
func (h *WatchlistHandler) HandleWatchlist(w http.ResponseWriter, r *http.Request) {
	h.watchlist.FetchWatchlist(r.Context())
	state := h.watchlist.State()
	h.watchlist.ClearError()

	view.WatchlistPage(h.session.User(), state).Render(r.Context(), w)
}

// HandleAdd adds a startup and patches its watch button.
// POST /watchlist/{startupID}
func (h *WatchlistHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	id, ok := startupID(w, r)
	if !ok {
		return
	}
	h.watchlist.AddToWatchlist(r.Context(), id)
	h.patchToggle(w, r, id)
}

// HandleRemove removes a startup. On the watchlist page the row is
// dropped; elsewhere the watch button is patched.
// DELETE /watchlist/{startupID}
func (h *WatchlistHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	id, ok := startupID(w, r)
	if !ok {
		return
	}
	h.watchlist.RemoveFromWatchlist(r.Context(), id)

	if r.URL.Query().Get("view") != "watchlist" {
		h.patchToggle(w, r, id)
		return
	}

	msg := h.takeError()
	sse := datastar.NewSSE(w, r)
	if msg != "" {
		sse.PatchElementTempl(
			view.ErrorBanner(msg),
			datastar.WithSelectorID(view.WatchlistErrorsID),
			datastar.WithModeInner(),
		)
		return
	}
	sse.RemoveElementByID(view.WatchlistRowID(id))
}

func (h *WatchlistHandler) patchToggle(w http.ResponseWriter, r *http.Request, id int64) {
	msg := h.takeError()
	sse := datastar.NewSSE(w, r)
	sse.PatchElementTempl(view.WatchButton(id, h.watchlist.IsInWatchlist(id), msg))
}

// takeError returns and clears the watchlist's last failure.
func (h *WatchlistHandler) takeError() string {
	st := h.watchlist.State()
	if st.LastError == nil {
		return ""
	}
	h.watchlist.ClearError()
	return st.ErrorMessage()
}

func startupID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("startupID"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "Not Found", http.StatusNotFound)
		return 0, false
	}
	return id, true
}
