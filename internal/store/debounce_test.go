package store_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/msomdec/startup-scout/internal/domain"
	"github.com/msomdec/startup-scout/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const quiet = 30 * time.Millisecond

func TestDebouncer_LastCallWins(t *testing.T) {
	d := store.NewDebouncer(quiet)
	var ran atomic.Int32
	var last atomic.Int32

	results := make([]bool, 5)
	var wg sync.WaitGroup
	for i := range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = d.Do(context.Background(), func() {
				ran.Add(1)
				last.Store(int32(i))
			})
		}()
		time.Sleep(quiet / 5)
	}
	wg.Wait()

	assert.Equal(t, int32(1), ran.Load())
	assert.Equal(t, int32(4), last.Load())
	assert.Equal(t, []bool{false, false, false, false, true}, results)
}

func TestDebouncer_SeparateBurstsBothRun(t *testing.T) {
	d := store.NewDebouncer(quiet)
	var ran atomic.Int32

	assert.True(t, d.Do(context.Background(), func() { ran.Add(1) }))
	assert.True(t, d.Do(context.Background(), func() { ran.Add(1) }))
	assert.Equal(t, int32(2), ran.Load())
}

func TestDebouncer_ContextCancelled(t *testing.T) {
	d := store.NewDebouncer(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ran := false
	assert.False(t, d.Do(ctx, func() { ran = true }))
	assert.False(t, ran)
}

func TestDebouncer_Cancel(t *testing.T) {
	d := store.NewDebouncer(time.Hour)
	done := make(chan bool)
	go func() { done <- d.Do(context.Background(), func() {}) }()

	require.Eventually(t, d.Pending, testTimeout, testTick)

	d.Cancel()
	assert.False(t, <-done)
	assert.False(t, d.Pending())
}

func TestFilterController_DebouncesFilterChanges(t *testing.T) {
	stub := &recordingCatalogAPI{page: &domain.Page[domain.StartupSummary]{Count: 1}}
	catalog := store.NewCatalog(stub, nil)
	ctrl := store.NewFilterController(catalog, store.NewDebouncer(quiet))

	var wg sync.WaitGroup
	for _, q := range []string{"a", "ai", "ai t"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctrl.ChangeFilters(context.Background(), domain.FilterPatch{Query: ptr(q)})
		}()
		time.Sleep(quiet / 5)
	}
	wg.Wait()

	calls := stub.Calls()
	require.Len(t, calls, 1, "one fetch per burst")
	assert.Equal(t, "ai t", calls[0].Query)
	assert.Equal(t, 1, calls[0].Page)
}

func TestFilterController_PageChangesFetchImmediately(t *testing.T) {
	stub := &recordingCatalogAPI{page: &domain.Page[domain.StartupSummary]{Count: 100}}
	catalog := store.NewCatalog(stub, nil)
	ctrl := store.NewFilterController(catalog, store.NewDebouncer(time.Hour))

	ctrl.ChangePage(context.Background(), 2)
	ctrl.ChangePage(context.Background(), 3)

	calls := stub.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, 2, calls[0].Page)
	assert.Equal(t, 3, calls[1].Page)
}

func TestFilterController_ClearDropsPendingFetch(t *testing.T) {
	stub := &recordingCatalogAPI{page: &domain.Page[domain.StartupSummary]{}}
	catalog := store.NewCatalog(stub, nil)
	debouncer := store.NewDebouncer(time.Hour)
	ctrl := store.NewFilterController(catalog, debouncer)

	done := make(chan bool)
	go func() {
		done <- ctrl.ChangeFilters(context.Background(), domain.FilterPatch{Industry: ptr("Fintech")})
	}()
	require.Eventually(t, debouncer.Pending, testTimeout, testTick)
	assert.Equal(t, "Fintech", catalog.Filters().Industry)

	ctrl.Clear(context.Background())

	assert.False(t, <-done)
	calls := stub.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, domain.DefaultFilters(), calls[0])
}
