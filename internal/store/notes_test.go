package store_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/msomdec/startup-scout/internal/domain"
	"github.com/msomdec/startup-scout/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotes_Lifecycle(t *testing.T) {
	e := newEnv(t)
	e.signIn(t, "ada")
	notes := store.NewNotes(e.client, nil)
	ctx := context.Background()

	notes.Load(ctx, 3)
	state := notes.State()
	require.NoError(t, state.LastError)
	assert.Equal(t, int64(3), state.StartupID)
	assert.Empty(t, state.Notes)

	notes.Create(ctx, "Strong team")
	notes.Create(ctx, "  Raising a seed round  ")
	state = notes.State()
	require.NoError(t, state.LastError)
	require.Len(t, state.Notes, 2)
	assert.Equal(t, "Raising a seed round", state.Notes[0].Content, "newest first")
	assert.False(t, state.IsSubmitting)

	id := state.Notes[1].ID
	notes.Update(ctx, id, "Met the founders")
	state = notes.State()
	require.NoError(t, state.LastError)
	assert.Equal(t, "Met the founders", state.Notes[1].Content)

	notes.Delete(ctx, id)
	state = notes.State()
	require.NoError(t, state.LastError)
	require.Len(t, state.Notes, 1)

	// A fresh load sees what the backend holds.
	reloaded := store.NewNotes(e.client, nil)
	reloaded.Load(ctx, 3)
	assert.Len(t, reloaded.State().Notes, 1)
}

func TestNotes_CreateRejectsEmptyContent(t *testing.T) {
	e := newEnv(t)
	e.signIn(t, "ada")
	notes := store.NewNotes(e.client, nil)
	ctx := context.Background()
	notes.Load(ctx, 3)
	calls := e.fake.TotalCalls()

	notes.Create(ctx, "   ")

	assert.ErrorIs(t, notes.State().LastError, domain.ErrInvalidInput)
	assert.Equal(t, calls, e.fake.TotalCalls())

	notes.ClearError()
	assert.NoError(t, notes.State().LastError)
}

func TestNotes_CreateWithoutStartup(t *testing.T) {
	e := newEnv(t)
	notes := store.NewNotes(e.client, nil)

	notes.Create(context.Background(), "orphan")

	assert.ErrorIs(t, notes.State().LastError, domain.ErrInvalidInput)
	assert.Zero(t, e.fake.TotalCalls())
}

func TestNotes_DeleteFailureKeepsNote(t *testing.T) {
	e := newEnv(t)
	e.signIn(t, "ada")
	notes := store.NewNotes(e.client, nil)
	ctx := context.Background()
	notes.Load(ctx, 3)
	notes.Create(ctx, "keep me")
	id := notes.State().Notes[0].ID

	e.fake.FailRoute("DELETE /api/notes/{id}/", http.StatusInternalServerError)
	notes.Delete(ctx, id)

	state := notes.State()
	assert.ErrorIs(t, state.LastError, domain.ErrServer)
	assert.Len(t, state.Notes, 1)
}

func TestNotes_LoadRequiresSession(t *testing.T) {
	e := newEnv(t)
	notes := store.NewNotes(e.client, nil)

	notes.Load(context.Background(), 3)

	state := notes.State()
	assert.ErrorIs(t, state.LastError, domain.ErrUnauthorized)
	assert.False(t, state.IsLoading)
}
