package store

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/msomdec/startup-scout/internal/domain"
)

// CatalogState is a point-in-time copy of the catalog.
type CatalogState struct {
	Startups         []domain.StartupSummary
	Pagination       domain.Pagination
	Filters          domain.FilterState
	FilterOptions    domain.FilterOptions
	IsLoading        bool
	IsLoadingFilters bool
	LastError        error
}

// ErrorMessage returns LastError rendered for display.
func (s CatalogState) ErrorMessage() string { return ErrorMessage(s.LastError) }

// Catalog owns the searchable startup listing and its filters.
//
// Fetches are not serialized: a response that arrives after a newer
// request was issued still replaces the listing.
type Catalog struct {
	api    CatalogAPI
	logger *slog.Logger

	mu             sync.Mutex
	startups       []domain.StartupSummary
	pagination     domain.Pagination
	filters        domain.FilterState
	options        domain.FilterOptions
	loading        bool
	loadingFilters bool
	lastErr        error
}

// NewCatalog creates a Catalog with default filters.
func NewCatalog(api CatalogAPI, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{
		api:        api,
		logger:     logger.With("component", "catalog"),
		filters:    domain.DefaultFilters(),
		pagination: domain.Pagination{CurrentPage: 1},
		options:    domain.FilterOptions{Stages: stageNames()},
	}
}

// State returns a copy of the current catalog.
func (c *Catalog) State() CatalogState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CatalogState{
		Startups:         append([]domain.StartupSummary(nil), c.startups...),
		Pagination:       c.pagination,
		Filters:          c.filters,
		FilterOptions:    c.options,
		IsLoading:        c.loading,
		IsLoadingFilters: c.loadingFilters,
		LastError:        c.lastErr,
	}
}

// Filters returns the held filter state.
func (c *Catalog) Filters() domain.FilterState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filters
}

// FetchStartups merges overrides onto the held filters, keeps the result
// as the new filters and loads the matching page. The page is not reset.
func (c *Catalog) FetchStartups(ctx context.Context, overrides *domain.FilterPatch) {
	c.mu.Lock()
	effective := c.filters.Merge(overrides)
	if effective.Page < 1 {
		effective.Page = 1
	}
	c.filters = effective
	c.loading = true
	c.lastErr = nil
	c.mu.Unlock()

	page, err := c.api.ListStartups(ctx, effective)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = false
	if err != nil {
		c.logger.Info("fetch startups failed", "error", err)
		c.lastErr = err
		return
	}
	c.startups = page.Results
	c.pagination = domain.Pagination{
		TotalCount:  page.Count,
		Next:        page.Next,
		Previous:    page.Previous,
		CurrentPage: effective.Page,
	}
}

// SetFilters merges patch into the filters and moves back to page 1.
func (c *Catalog) SetFilters(patch domain.FilterPatch) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filters = c.filters.Merge(&patch)
	c.filters.Page = 1
}

// SetPage changes only the page. It does not fetch.
func (c *Catalog) SetPage(page int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filters.Page = page
}

// ClearFilters restores the default filters.
func (c *Catalog) ClearFilters() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filters = domain.DefaultFilters()
}

// FetchFilterOptions derives industry and location choices from the
// unfiltered first page. The values approximate the catalog's facets; the
// analytics dashboard has the authoritative counts.
func (c *Catalog) FetchFilterOptions(ctx context.Context) {
	c.mu.Lock()
	c.loadingFilters = true
	c.mu.Unlock()

	page, err := c.api.ListStartups(ctx, domain.FilterState{})

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loadingFilters = false
	if err != nil {
		c.logger.Info("fetch filter options failed", "error", err)
		c.lastErr = err
		return
	}
	industries := map[string]struct{}{}
	locations := map[string]struct{}{}
	for _, s := range page.Results {
		if s.Industry != "" {
			industries[s.Industry] = struct{}{}
		}
		if s.Location != "" {
			locations[s.Location] = struct{}{}
		}
	}
	c.options = domain.FilterOptions{
		Industries: sortedKeys(industries),
		Locations:  sortedKeys(locations),
		Stages:     stageNames(),
	}
}

// ClearError drops LastError.
func (c *Catalog) ClearError() {
	c.mu.Lock()
	c.lastErr = nil
	c.mu.Unlock()
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func stageNames() []string {
	stages := domain.Stages()
	names := make([]string, len(stages))
	for i, s := range stages {
		names[i] = string(s)
	}
	return names
}
