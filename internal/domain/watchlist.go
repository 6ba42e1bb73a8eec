package domain

import "context"

// WatchlistEntry is one startup the user is tracking. StartupDetails is
// filled in after the membership list loads and may be nil.
type WatchlistEntry struct {
	ID             int64           `json:"id"`
	StartupID      int64           `json:"startup"`
	StartupName    string          `json:"startup_name"`
	UserUsername   string          `json:"user_username,omitempty"`
	CreatedAt      Timestamp       `json:"created_at"`
	StartupDetails *StartupSummary `json:"startup_details,omitempty"`
}

// Note is a free-text annotation a user attached to a startup.
type Note struct {
	ID          int64     `json:"id"`
	StartupID   int64     `json:"startup"`
	StartupName string    `json:"startup_name"`
	Content     string    `json:"content"`
	CreatedAt   Timestamp `json:"created_at"`
	UpdatedAt   Timestamp `json:"updated_at"`
}

// WatchlistRepository persists the local watchlist across restarts.
type WatchlistRepository interface {
	Load(ctx context.Context) ([]WatchlistEntry, error)
	Save(ctx context.Context, entries []WatchlistEntry) error
	Clear(ctx context.Context) error
}
