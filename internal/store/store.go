// Package store holds client-side application state. Each store owns one
// slice of state, guards it with a mutex that is never held across a
// backend call, and records action failures in LastError instead of
// returning them.
package store

import (
	"context"
	"errors"

	"github.com/msomdec/startup-scout/internal/domain"
)

// AuthAPI is the subset of the backend the session store talks to.
type AuthAPI interface {
	Login(ctx context.Context, req domain.LoginRequest) (*domain.AuthResponse, error)
	Register(ctx context.Context, req domain.RegisterRequest) (*domain.AuthResponse, error)
	RefreshToken(ctx context.Context, refresh string) (string, error)
	Profile(ctx context.Context) (*domain.User, error)
}

// WatchlistAPI is the subset of the backend the watchlist store talks to.
type WatchlistAPI interface {
	ListWatchlist(ctx context.Context) ([]domain.WatchlistEntry, error)
	AddToWatchlist(ctx context.Context, startupID int64) (*domain.WatchlistEntry, error)
	RemoveFromWatchlist(ctx context.Context, entryID int64) error
	GetStartup(ctx context.Context, id int64) (*domain.StartupSummary, error)
}

// CatalogAPI is the subset of the backend the catalog store talks to.
type CatalogAPI interface {
	ListStartups(ctx context.Context, filters domain.FilterState) (*domain.Page[domain.StartupSummary], error)
}

// NotesAPI is the subset of the backend the notes store talks to.
type NotesAPI interface {
	ListNotes(ctx context.Context, startupID int64) ([]domain.Note, error)
	CreateNote(ctx context.Context, startupID int64, content string) (*domain.Note, error)
	UpdateNote(ctx context.Context, id int64, content string) (*domain.Note, error)
	DeleteNote(ctx context.Context, id int64) error
}

// AnalyticsAPI is the subset of the backend the analytics store talks to.
type AnalyticsAPI interface {
	Dashboard(ctx context.Context) (*domain.Analytics, error)
	ExportWatchlist(ctx context.Context) ([]byte, error)
}

// AuthState reports whether a user is signed in. The session store
// implements it; other stores only read it.
type AuthState interface {
	IsAuthenticated() bool
}

// ErrorMessage renders err for display. Gateway failures carry the
// backend's own message; everything else falls back to a generic text per
// failure class.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var um interface{ UserMessage() string }
	if errors.As(err, &um) {
		if msg := um.UserMessage(); msg != "" {
			return msg
		}
	}
	switch {
	case errors.Is(err, domain.ErrNotAuthenticated):
		return "You must be authenticated to do that."
	case errors.Is(err, domain.ErrNetwork):
		return "Could not reach the server. Check your connection and try again."
	case errors.Is(err, domain.ErrServer):
		return "The server could not complete the request."
	}
	return err.Error()
}
