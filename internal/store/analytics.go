package store

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/msomdec/startup-scout/internal/domain"
)

// AnalyticsState is a point-in-time copy of the dashboard data.
type AnalyticsState struct {
	Dashboard *domain.Analytics
	IsLoading bool
	LastError error
}

// ErrorMessage returns LastError rendered for display.
func (s AnalyticsState) ErrorMessage() string { return ErrorMessage(s.LastError) }

// Analytics holds the aggregate counts shown on the dashboard.
type Analytics struct {
	api    AnalyticsAPI
	logger *slog.Logger

	mu        sync.Mutex
	dashboard *domain.Analytics
	loading   bool
	lastErr   error
}

// NewAnalytics creates an empty Analytics store.
func NewAnalytics(api AnalyticsAPI, logger *slog.Logger) *Analytics {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analytics{api: api, logger: logger.With("component", "analytics")}
}

// State returns a copy of the dashboard data.
func (a *Analytics) State() AnalyticsState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return AnalyticsState{Dashboard: a.dashboard, IsLoading: a.loading, LastError: a.lastErr}
}

// Fetch loads the dashboard aggregates.
func (a *Analytics) Fetch(ctx context.Context) {
	a.mu.Lock()
	a.loading = true
	a.lastErr = nil
	a.mu.Unlock()

	dashboard, err := a.api.Dashboard(ctx)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.loading = false
	if err != nil {
		a.logger.Info("fetch analytics failed", "error", err)
		a.lastErr = err
		return
	}
	a.dashboard = dashboard
}

// Export writes the watchlist CSV export to w. Unlike the other actions it
// returns its failure, since the caller owns w.
func (a *Analytics) Export(ctx context.Context, w io.Writer) error {
	data, err := a.api.ExportWatchlist(ctx)
	if err != nil {
		a.mu.Lock()
		a.lastErr = err
		a.mu.Unlock()
		return fmt.Errorf("export watchlist: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	return nil
}

// ClearError drops LastError.
func (a *Analytics) ClearError() {
	a.mu.Lock()
	a.lastErr = nil
	a.mu.Unlock()
}
