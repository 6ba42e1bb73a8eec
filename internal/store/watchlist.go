package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/msomdec/startup-scout/internal/domain"
	"golang.org/x/sync/errgroup"
)

// DefaultEnrichConcurrency bounds the parallel startup detail requests made
// after the watchlist loads.
const DefaultEnrichConcurrency = 4

// WatchlistState is a point-in-time copy of the watchlist.
type WatchlistState struct {
	Entries   []domain.WatchlistEntry
	IsLoading bool
	LastError error
}

// ErrorMessage returns LastError rendered for display.
func (s WatchlistState) ErrorMessage() string { return ErrorMessage(s.LastError) }

// Watchlist owns the user's watchlist entries. Writes are applied locally
// only after the backend confirms them.
type Watchlist struct {
	api         WatchlistAPI
	auth        AuthState
	repo        domain.WatchlistRepository
	logger      *slog.Logger
	concurrency int

	mu      sync.Mutex
	entries []domain.WatchlistEntry
	loading bool
	lastErr error
}

// NewWatchlist restores any persisted entries from repo.
func NewWatchlist(ctx context.Context, api WatchlistAPI, auth AuthState, repo domain.WatchlistRepository, logger *slog.Logger) (*Watchlist, error) {
	if logger == nil {
		logger = slog.Default()
	}
	entries, err := repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load watchlist: %w", err)
	}
	return &Watchlist{
		api:         api,
		auth:        auth,
		repo:        repo,
		logger:      logger.With("component", "watchlist"),
		concurrency: DefaultEnrichConcurrency,
		entries:     entries,
	}, nil
}

// State returns a copy of the current watchlist.
func (w *Watchlist) State() WatchlistState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return WatchlistState{
		Entries:   append([]domain.WatchlistEntry(nil), w.entries...),
		IsLoading: w.loading,
		LastError: w.lastErr,
	}
}

// IsInWatchlist reports whether startupID is among the confirmed entries.
func (w *Watchlist) IsInWatchlist(startupID int64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, e := range w.entries {
		if e.StartupID == startupID {
			return true
		}
	}
	return false
}

// FetchWatchlist replaces the local entries with the backend's, then
// attaches startup details to each entry. A failed detail request leaves
// that entry without details.
func (w *Watchlist) FetchWatchlist(ctx context.Context) {
	if !w.auth.IsAuthenticated() {
		w.replace(ctx, nil)
		return
	}

	w.mu.Lock()
	w.loading = true
	w.lastErr = nil
	w.mu.Unlock()

	entries, err := w.api.ListWatchlist(ctx)
	if err != nil {
		w.fail("fetch watchlist", err)
		return
	}

	w.enrich(ctx, entries)

	w.mu.Lock()
	w.loading = false
	// A failed refresh during enrichment signs the user out and resets the
	// store; the loaded entries belong to that user.
	if !w.auth.IsAuthenticated() {
		w.mu.Unlock()
		return
	}
	w.entries = entries
	snapshot := append([]domain.WatchlistEntry(nil), entries...)
	w.mu.Unlock()
	w.persist(ctx, snapshot)
}

func (w *Watchlist) enrich(ctx context.Context, entries []domain.WatchlistEntry) {
	var g errgroup.Group
	g.SetLimit(w.concurrency)
	for i := range entries {
		g.Go(func() error {
			details, err := w.api.GetStartup(ctx, entries[i].StartupID)
			if err != nil {
				w.logger.Warn("startup details unavailable",
					"startup_id", entries[i].StartupID, "error", err)
				return nil
			}
			entries[i].StartupDetails = details
			return nil
		})
	}
	_ = g.Wait()
}

// AddToWatchlist asks the backend to track startupID and appends the
// confirmed entry. Nothing is sent when no user is signed in.
func (w *Watchlist) AddToWatchlist(ctx context.Context, startupID int64) {
	if !w.auth.IsAuthenticated() {
		w.mu.Lock()
		w.lastErr = domain.ErrNotAuthenticated
		w.mu.Unlock()
		return
	}

	entry, err := w.api.AddToWatchlist(ctx, startupID)
	if err != nil {
		w.fail("add to watchlist", err)
		return
	}

	w.mu.Lock()
	w.lastErr = nil
	w.entries = append(w.entries, *entry)
	snapshot := append([]domain.WatchlistEntry(nil), w.entries...)
	w.mu.Unlock()
	w.persist(ctx, snapshot)
}

// RemoveFromWatchlist deletes the backend record for startupID and then
// drops the local entries for it. When the startup is not held locally it
// makes an extra GET /watchlist/ request to find the record id; if the
// backend holds none either, no delete is sent.
func (w *Watchlist) RemoveFromWatchlist(ctx context.Context, startupID int64) {
	if !w.auth.IsAuthenticated() {
		return
	}

	entryID, ok := w.localEntryID(startupID)
	if !ok {
		remote, err := w.api.ListWatchlist(ctx)
		if err != nil {
			w.fail("remove from watchlist", err)
			return
		}
		for _, e := range remote {
			if e.StartupID == startupID {
				entryID, ok = e.ID, true
				break
			}
		}
		if !ok {
			return
		}
	}

	if err := w.api.RemoveFromWatchlist(ctx, entryID); err != nil {
		w.fail("remove from watchlist", err)
		return
	}

	w.mu.Lock()
	w.lastErr = nil
	kept := w.entries[:0:0]
	for _, e := range w.entries {
		if e.StartupID != startupID {
			kept = append(kept, e)
		}
	}
	w.entries = kept
	snapshot := append([]domain.WatchlistEntry(nil), kept...)
	w.mu.Unlock()
	w.persist(ctx, snapshot)
}

// ClearError drops LastError.
func (w *Watchlist) ClearError() {
	w.mu.Lock()
	w.lastErr = nil
	w.mu.Unlock()
}

// Reset empties the local entries and their persisted copy.
func (w *Watchlist) Reset(ctx context.Context) {
	w.mu.Lock()
	w.entries = nil
	w.loading = false
	w.lastErr = nil
	w.mu.Unlock()
	if err := w.repo.Clear(ctx); err != nil {
		w.logger.Error("clear persisted watchlist", "error", err)
	}
}

func (w *Watchlist) localEntryID(startupID int64) (int64, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, e := range w.entries {
		if e.StartupID == startupID {
			return e.ID, true
		}
	}
	return 0, false
}

func (w *Watchlist) replace(ctx context.Context, entries []domain.WatchlistEntry) {
	w.mu.Lock()
	w.entries = entries
	w.mu.Unlock()
	w.persist(ctx, entries)
}

func (w *Watchlist) fail(op string, err error) {
	w.logger.Info(op+" failed", "error", err)
	w.mu.Lock()
	w.loading = false
	w.lastErr = err
	w.mu.Unlock()
}

func (w *Watchlist) persist(ctx context.Context, entries []domain.WatchlistEntry) {
	if err := w.repo.Save(ctx, entries); err != nil {
		w.logger.Error("persist watchlist", "error", err)
	}
}
