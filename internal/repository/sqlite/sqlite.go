package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"

	"github.com/msomdec/startup-scout/internal/repository/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Storage keys under which client state is persisted.
const (
	SessionKey   = "auth-storage"
	WatchlistKey = "startup-scout-watchlist"
)

// DB wraps the SQLite handle that backs persisted client state.
type DB struct {
	SqlDB      *sql.DB
	sealer     *Sealer
	migrations fs.FS
}

// Option configures a DB.
type Option func(*DB)

// WithMigrations replaces the embedded migration scripts with fsys.
func WithMigrations(fsys fs.FS) Option {
	return func(db *DB) { db.migrations = fsys }
}

// WithSealer encrypts every stored value with s.
func WithSealer(s *Sealer) Option {
	return func(db *DB) { db.sealer = s }
}

// New opens a SQLite database at the given path and configures it for use.
// It enables WAL mode and foreign keys.
func New(dbPath string, opts ...Option) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := sqlDB.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := sqlDB.ExecContext(context.Background(), "PRAGMA foreign_keys=ON"); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	// SQLite allows a single writer; one connection avoids SQLITE_BUSY.
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.PingContext(context.Background()); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	db := &DB{SqlDB: sqlDB, migrations: migrations.FS}
	for _, opt := range opts {
		opt(db)
	}
	return db, nil
}

// Migrate applies all pending schema migrations.
func (db *DB) Migrate(ctx context.Context) error {
	_, err := migrations.RunFS(ctx, db.SqlDB, db.migrations)
	return err
}

// Close closes the underlying database.
func (db *DB) Close() error {
	return db.SqlDB.Close()
}

// Sessions returns the repository for the persisted auth session.
func (db *DB) Sessions() *SessionRepository {
	return &SessionRepository{kv: db.kv()}
}

// Watchlist returns the repository for the persisted watchlist entries.
func (db *DB) Watchlist() *WatchlistRepository {
	return &WatchlistRepository{kv: db.kv()}
}

func (db *DB) kv() *kvStore {
	return &kvStore{db: db.SqlDB, sealer: db.sealer}
}

// Ping checks that the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.SqlDB.PingContext(ctx)
}
