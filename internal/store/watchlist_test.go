package store_test

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/msomdec/startup-scout/internal/domain"
	"github.com/msomdec/startup-scout/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blockingWatchlistAPI holds every write until the test releases it.
type blockingWatchlistAPI struct {
	mu      sync.Mutex
	nextID  int64
	calls   int
	release chan struct{}
	started chan struct{}
	remote  []domain.WatchlistEntry
}

func newBlockingWatchlistAPI() *blockingWatchlistAPI {
	return &blockingWatchlistAPI{
		nextID:  100,
		release: make(chan struct{}),
		started: make(chan struct{}, 8),
	}
}

func (b *blockingWatchlistAPI) ListWatchlist(context.Context) ([]domain.WatchlistEntry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	return append([]domain.WatchlistEntry(nil), b.remote...), nil
}

func (b *blockingWatchlistAPI) AddToWatchlist(_ context.Context, startupID int64) (*domain.WatchlistEntry, error) {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	b.started <- struct{}{}
	<-b.release

	b.mu.Lock()
	defer b.mu.Unlock()
	entry := domain.WatchlistEntry{
		ID:          b.nextID,
		StartupID:   startupID,
		StartupName: "Acme",
		CreatedAt:   domain.Timestamp{Time: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	b.nextID++
	b.remote = append(b.remote, entry)
	return &entry, nil
}

func (b *blockingWatchlistAPI) RemoveFromWatchlist(_ context.Context, entryID int64) error {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	b.started <- struct{}{}
	<-b.release
	return nil
}

func (b *blockingWatchlistAPI) GetStartup(context.Context, int64) (*domain.StartupSummary, error) {
	return nil, domain.ErrNotFound
}

func TestWatchlist_AddWhileAnonymous(t *testing.T) {
	e := newEnv(t)
	w := e.newWatchlist(t)

	w.AddToWatchlist(context.Background(), 7)

	state := w.State()
	assert.ErrorIs(t, state.LastError, domain.ErrNotAuthenticated)
	assert.Equal(t, "must be authenticated", state.LastError.Error())
	assert.Empty(t, state.Entries)
	assert.Zero(t, e.fake.TotalCalls())
}

func TestWatchlist_AddConfirmedEntry(t *testing.T) {
	stub := newBlockingWatchlistAPI()
	w, err := store.NewWatchlist(context.Background(), stub, staticAuth(true), &memoryWatchlistRepo{}, nil)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		w.AddToWatchlist(context.Background(), 7)
		close(done)
	}()
	<-stub.started

	// Pending: nothing applied locally yet.
	assert.False(t, w.IsInWatchlist(7))
	assert.Empty(t, w.State().Entries)

	close(stub.release)
	<-done

	state := w.State()
	require.Len(t, state.Entries, 1)
	assert.Equal(t, int64(100), state.Entries[0].ID)
	assert.Equal(t, int64(7), state.Entries[0].StartupID)
	assert.Equal(t, "Acme", state.Entries[0].StartupName)
	assert.True(t, w.IsInWatchlist(7))
}

func TestWatchlist_RemovePendingUntilConfirmed(t *testing.T) {
	stub := newBlockingWatchlistAPI()
	repo := &memoryWatchlistRepo{entries: []domain.WatchlistEntry{{ID: 100, StartupID: 7, StartupName: "Acme"}}}
	w, err := store.NewWatchlist(context.Background(), stub, staticAuth(true), repo, nil)
	require.NoError(t, err)
	require.True(t, w.IsInWatchlist(7))

	done := make(chan struct{})
	go func() {
		w.RemoveFromWatchlist(context.Background(), 7)
		close(done)
	}()
	<-stub.started

	assert.True(t, w.IsInWatchlist(7), "entry stays until the backend confirms")

	close(stub.release)
	<-done

	assert.False(t, w.IsInWatchlist(7))
	persisted, _ := repo.Load(context.Background())
	assert.Empty(t, persisted)
}

func TestWatchlist_ConcurrentAddsDoNotDeduplicate(t *testing.T) {
	stub := newBlockingWatchlistAPI()
	w, err := store.NewWatchlist(context.Background(), stub, staticAuth(true), &memoryWatchlistRepo{}, nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.AddToWatchlist(context.Background(), 7)
		}()
	}
	<-stub.started
	<-stub.started
	assert.Empty(t, w.State().Entries, "no optimistic entries while both adds are pending")

	close(stub.release)
	wg.Wait()

	// Both confirmations are appended as they arrive.
	assert.Len(t, w.State().Entries, 2)
}

func TestWatchlist_DuplicateAddAgainstBackend(t *testing.T) {
	e := newEnv(t)
	e.signIn(t, "ada")
	w := e.newWatchlist(t)
	ctx := context.Background()

	w.AddToWatchlist(ctx, 7)
	require.NoError(t, w.State().LastError)

	w.AddToWatchlist(ctx, 7)
	state := w.State()
	assert.ErrorIs(t, state.LastError, domain.ErrInvalidInput)
	assert.Equal(t, "The fields user, startup must make a unique set.", state.ErrorMessage())
	assert.Len(t, state.Entries, 1)

	w.ClearError()
	assert.NoError(t, w.State().LastError)
}

func TestWatchlist_AddFailureLeavesStateUnchanged(t *testing.T) {
	e := newEnv(t)
	e.signIn(t, "ada")
	w := e.newWatchlist(t)

	e.fake.FailRoute("POST /api/watchlist/", http.StatusInternalServerError)
	w.AddToWatchlist(context.Background(), 7)

	state := w.State()
	assert.ErrorIs(t, state.LastError, domain.ErrServer)
	assert.Empty(t, state.Entries)
	assert.False(t, w.IsInWatchlist(7))
}

func TestWatchlist_FetchEnrichesEntries(t *testing.T) {
	e := newEnv(t)
	e.signIn(t, "ada")
	ctx := context.Background()

	for _, id := range []int64{3, 4, 5} {
		_, err := e.client.AddToWatchlist(ctx, id)
		require.NoError(t, err)
	}

	w := e.newWatchlist(t)
	w.FetchWatchlist(ctx)

	state := w.State()
	require.NoError(t, state.LastError)
	assert.False(t, state.IsLoading)
	require.Len(t, state.Entries, 3)
	for _, entry := range state.Entries {
		require.NotNil(t, entry.StartupDetails, "entry %d", entry.StartupID)
		assert.Equal(t, entry.StartupID, entry.StartupDetails.ID)
	}
	assert.Equal(t, 3, e.fake.Calls("GET /api/startups/{id}/"))
}

func TestWatchlist_FetchToleratesEnrichmentFailures(t *testing.T) {
	e := newEnv(t)
	e.signIn(t, "ada")
	ctx := context.Background()

	for _, id := range []int64{3, 4} {
		_, err := e.client.AddToWatchlist(ctx, id)
		require.NoError(t, err)
	}
	e.fake.FailRoute("GET /api/startups/{id}/", http.StatusInternalServerError)

	w := e.newWatchlist(t)
	w.FetchWatchlist(ctx)

	state := w.State()
	assert.NoError(t, state.LastError)
	require.Len(t, state.Entries, 2)
	for _, entry := range state.Entries {
		assert.Nil(t, entry.StartupDetails)
	}
}

func TestWatchlist_FetchWhileAnonymous(t *testing.T) {
	e := newEnv(t)
	repo := &memoryWatchlistRepo{entries: []domain.WatchlistEntry{{ID: 1, StartupID: 2}}}
	w, err := store.NewWatchlist(context.Background(), e.client, e.session, repo, nil)
	require.NoError(t, err)

	w.FetchWatchlist(context.Background())

	assert.Empty(t, w.State().Entries)
	assert.Zero(t, e.fake.TotalCalls())
}

func TestWatchlist_FetchFailure(t *testing.T) {
	e := newEnv(t)
	e.signIn(t, "ada")
	w := e.newWatchlist(t)

	e.fake.FailRoute("GET /api/watchlist/", http.StatusServiceUnavailable)
	w.FetchWatchlist(context.Background())

	state := w.State()
	assert.ErrorIs(t, state.LastError, domain.ErrServer)
	assert.False(t, state.IsLoading)
}

func TestWatchlist_RemoveNotHeldLocally(t *testing.T) {
	e := newEnv(t)
	e.signIn(t, "ada")
	w := e.newWatchlist(t)
	ctx := context.Background()

	// Nothing local, nothing on the server: no-op.
	w.RemoveFromWatchlist(ctx, 7)
	assert.NoError(t, w.State().LastError)
	assert.Empty(t, w.State().Entries)
	assert.Zero(t, e.fake.Calls("DELETE /api/watchlist/{id}/"))
	assert.Equal(t, 1, e.fake.Calls("GET /api/watchlist/"), "record id is looked up in the server list")

	// Present only on the server: the record id is looked up and deleted.
	_, err := e.client.AddToWatchlist(ctx, 7)
	require.NoError(t, err)
	w.RemoveFromWatchlist(ctx, 7)
	assert.NoError(t, w.State().LastError)
	assert.Equal(t, 1, e.fake.Calls("DELETE /api/watchlist/{id}/"))

	remote, err := e.client.ListWatchlist(ctx)
	require.NoError(t, err)
	assert.Empty(t, remote)
}

func TestWatchlist_RemoveServerNotFound(t *testing.T) {
	e := newEnv(t)
	e.signIn(t, "ada")
	ctx := context.Background()

	repo := &memoryWatchlistRepo{entries: []domain.WatchlistEntry{{ID: 999, StartupID: 7}}}
	w, err := store.NewWatchlist(ctx, e.client, e.session, repo, nil)
	require.NoError(t, err)

	w.RemoveFromWatchlist(ctx, 7)

	state := w.State()
	assert.ErrorIs(t, state.LastError, domain.ErrServer)
	assert.True(t, w.IsInWatchlist(7), "local entry kept when the delete fails")
}

func TestWatchlist_RemoveWhileAnonymous(t *testing.T) {
	e := newEnv(t)
	repo := &memoryWatchlistRepo{entries: []domain.WatchlistEntry{{ID: 100, StartupID: 7}}}
	w, err := store.NewWatchlist(context.Background(), e.client, e.session, repo, nil)
	require.NoError(t, err)

	w.RemoveFromWatchlist(context.Background(), 7)

	assert.True(t, w.IsInWatchlist(7))
	assert.Zero(t, e.fake.TotalCalls())
}

func TestWatchlist_PersistsAcrossRestart(t *testing.T) {
	e := newEnv(t)
	e.signIn(t, "ada")
	ctx := context.Background()

	w := e.newWatchlist(t)
	w.AddToWatchlist(ctx, 7)
	require.True(t, w.IsInWatchlist(7))

	restored := e.newWatchlist(t)
	assert.True(t, restored.IsInWatchlist(7))

	restored.Reset(ctx)
	again := e.newWatchlist(t)
	assert.False(t, again.IsInWatchlist(7))
}

type switchableAuth struct{ signedIn atomic.Bool }

func (a *switchableAuth) IsAuthenticated() bool { return a.signedIn.Load() }

// expiringWatchlistAPI signs the user out while startup details load, the
// way a failed token refresh does.
type expiringWatchlistAPI struct {
	blockingWatchlistAPI
	expire func()
	once   sync.Once
}

func (x *expiringWatchlistAPI) GetStartup(context.Context, int64) (*domain.StartupSummary, error) {
	x.once.Do(x.expire)
	return nil, domain.ErrUnauthorized
}

func TestWatchlist_FetchDiscardedWhenSessionEndsMidway(t *testing.T) {
	auth := &switchableAuth{}
	auth.signedIn.Store(true)
	repo := &memoryWatchlistRepo{}
	api := &expiringWatchlistAPI{}
	api.remote = []domain.WatchlistEntry{{ID: 100, StartupID: 7, StartupName: "Acme"}}

	w, err := store.NewWatchlist(context.Background(), api, auth, repo, nil)
	require.NoError(t, err)
	api.expire = func() {
		auth.signedIn.Store(false)
		w.Reset(context.Background())
	}

	w.FetchWatchlist(context.Background())

	state := w.State()
	assert.Empty(t, state.Entries)
	assert.False(t, state.IsLoading)
	assert.False(t, w.IsInWatchlist(7))
	persisted, _ := repo.Load(context.Background())
	assert.Empty(t, persisted, "entries of a signed-out user must not be persisted")
}
