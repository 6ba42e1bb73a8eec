package handler

import (
	"net/http"
	"strconv"

	"github.com/msomdec/startup-scout/internal/domain"
	"github.com/msomdec/startup-scout/internal/store"
	"github.com/msomdec/startup-scout/internal/view"
	datastar "github.com/starfederation/datastar-go/datastar"
)

// CatalogHandler serves the discovery page and its live search.
type CatalogHandler struct {
	session   *store.Session
	catalog   *store.Catalog
	filters   *store.FilterController
	watchlist *store.Watchlist
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(session *store.Session, catalog *store.Catalog, filters *store.FilterController, watchlist *store.Watchlist) *CatalogHandler {
	return &CatalogHandler{session: session, catalog: catalog, filters: filters, watchlist: watchlist}
}

// searchSignals mirrors the signals bound to the filter form.
type searchSignals struct {
	Query    string `json:"q"`
	Industry string `json:"industry"`
	Location string `json:"location"`
	Stage    string `json:"stage"`
	Ordering string `json:"ordering"`
}

// HandleCatalog renders the discovery page with the current filters.
// GET /
func (h *CatalogHandler) HandleCatalog(w http.ResponseWriter, r *http.Request) {
	if len(h.catalog.State().FilterOptions.Industries) == 0 {
		h.catalog.FetchFilterOptions(r.Context())
	}
	h.catalog.FetchStartups(r.Context(), nil)

	view.CatalogPage(h.session.User(), h.catalog.State(), h.watchlist.IsInWatchlist).Render(r.Context(), w)
}

// HandleSearch applies a filter edit, page change or reset and patches the
// results over SSE. Filter edits are debounced: a request superseded by a
// newer edit answers 204 and leaves the page alone.
// GET /startups/search
func (h *CatalogHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	switch {
	case q.Get("clear") != "":
		h.filters.Clear(ctx)
		sse := datastar.NewSSE(w, r)
		sse.PatchElementTempl(view.CatalogPanel(h.catalog.State(), h.watchlist.IsInWatchlist))
		return

	case q.Get("page") != "":
		page, err := strconv.Atoi(q.Get("page"))
		if err != nil {
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}
		h.filters.ChangePage(ctx, page)

	default:
		var sig searchSignals
		if err := datastar.ReadSignals(r, &sig); err != nil {
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}
		patch := domain.FilterPatch{
			Query:    &sig.Query,
			Industry: &sig.Industry,
			Location: &sig.Location,
			Stage:    &sig.Stage,
		}
		if sig.Ordering != "" {
			patch.Ordering = &sig.Ordering
		}
		if !h.filters.ChangeFilters(ctx, patch) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}

	sse := datastar.NewSSE(w, r)
	sse.PatchElementTempl(view.StartupResults(h.catalog.State(), h.watchlist.IsInWatchlist))
}
