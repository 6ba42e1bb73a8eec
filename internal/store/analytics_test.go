package store_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"testing"

	"github.com/msomdec/startup-scout/internal/domain"
	"github.com/msomdec/startup-scout/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalytics_FetchAndExport(t *testing.T) {
	e := newEnv(t)
	e.signIn(t, "ada")
	ctx := context.Background()

	w := e.newWatchlist(t)
	w.AddToWatchlist(ctx, 1)
	w.AddToWatchlist(ctx, 2)
	require.NoError(t, w.State().LastError)

	a := store.NewAnalytics(e.client, nil)
	a.Fetch(ctx)

	state := a.State()
	require.NoError(t, state.LastError)
	require.NotNil(t, state.Dashboard)
	assert.Equal(t, 2, state.Dashboard.UserStats.WatchlistCount)
	assert.Equal(t, 50, state.Dashboard.UserStats.TotalStartupsAvailable)
	assert.Len(t, state.Dashboard.UserAnalytics.Industries, 2)
	assert.NotEmpty(t, state.Dashboard.GlobalAnalytics.Locations)

	var buf bytes.Buffer
	require.NoError(t, a.Export(ctx, &buf))
	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "Startup Name", records[0][0])
}

func TestAnalytics_RequiresSession(t *testing.T) {
	e := newEnv(t)
	a := store.NewAnalytics(e.client, nil)
	ctx := context.Background()

	a.Fetch(ctx)
	assert.ErrorIs(t, a.State().LastError, domain.ErrUnauthorized)
	assert.Nil(t, a.State().Dashboard)

	a.ClearError()
	err := a.Export(ctx, &bytes.Buffer{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
	assert.ErrorIs(t, a.State().LastError, domain.ErrUnauthorized)
}
