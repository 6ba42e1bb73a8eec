package store_test

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/msomdec/startup-scout/internal/api"
	"github.com/msomdec/startup-scout/internal/domain"
	"github.com/msomdec/startup-scout/internal/fakeapi"
	"github.com/msomdec/startup-scout/internal/gateway"
	"github.com/msomdec/startup-scout/internal/repository/sqlite"
	"github.com/msomdec/startup-scout/internal/store"
	"github.com/stretchr/testify/require"
)

const (
	testTimeout = 2 * time.Second
	testTick    = 5 * time.Millisecond
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// env is a complete client stack talking to an in-memory backend.
type env struct {
	fake    *fakeapi.Server
	clock   *clock
	db      *sqlite.DB
	gw      *gateway.Gateway
	client  *api.Client
	session *store.Session
	expired int
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{clock: &clock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}}
	e.fake = fakeapi.New(fakeapi.Config{AccessTTL: time.Minute, Now: e.clock.Now})
	srv := httptest.NewServer(e.fake)
	t.Cleanup(srv.Close)

	db, err := sqlite.New(filepath.Join(t.TempDir(), "client.db"))
	require.NoError(t, err)
	require.NoError(t, db.Migrate(context.Background()))
	t.Cleanup(func() { db.Close() })
	e.db = db

	e.gw, err = gateway.New(gateway.Config{
		BaseURL:          srv.URL + "/api",
		Timeout:          5 * time.Second,
		OnSessionExpired: func() { e.expired++ },
	})
	require.NoError(t, err)
	e.client = api.NewClient(e.gw)

	e.session, err = store.NewSession(context.Background(), e.client, db.Sessions(), nil)
	require.NoError(t, err)
	e.gw.SetCredentials(e.session)
	return e
}

// signIn creates username on the backend and logs the session in.
func (e *env) signIn(t *testing.T, username string) {
	t.Helper()
	_, err := e.fake.AddUser(username, username+"@example.com", "password123")
	require.NoError(t, err)
	require.NoError(t, e.session.Login(context.Background(), username, "password123"))
}

func (e *env) newWatchlist(t *testing.T) *store.Watchlist {
	t.Helper()
	w, err := store.NewWatchlist(context.Background(), e.client, e.session, e.db.Watchlist(), nil)
	require.NoError(t, err)
	return w
}

type staticAuth bool

func (a staticAuth) IsAuthenticated() bool { return bool(a) }

// memoryWatchlistRepo is a WatchlistRepository kept in memory.
type memoryWatchlistRepo struct {
	mu      sync.Mutex
	entries []domain.WatchlistEntry
}

func (r *memoryWatchlistRepo) Load(context.Context) ([]domain.WatchlistEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.WatchlistEntry(nil), r.entries...), nil
}

func (r *memoryWatchlistRepo) Save(_ context.Context, entries []domain.WatchlistEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append([]domain.WatchlistEntry(nil), entries...)
	return nil
}

func (r *memoryWatchlistRepo) Clear(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = nil
	return nil
}

func ptr[T any](v T) *T { return &v }
