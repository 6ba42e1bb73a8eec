package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/msomdec/startup-scout/internal/domain"
)

// NotesState is a point-in-time copy of the notes panel.
type NotesState struct {
	StartupID    int64
	Notes        []domain.Note
	IsLoading    bool
	IsSubmitting bool
	LastError    error
}

// ErrorMessage returns LastError rendered for display.
func (s NotesState) ErrorMessage() string { return ErrorMessage(s.LastError) }

// Notes holds the user's notes for one startup at a time.
type Notes struct {
	api    NotesAPI
	logger *slog.Logger

	mu         sync.Mutex
	startupID  int64
	notes      []domain.Note
	loading    bool
	submitting bool
	lastErr    error
}

// NewNotes creates an empty Notes store.
func NewNotes(api NotesAPI, logger *slog.Logger) *Notes {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notes{api: api, logger: logger.With("component", "notes")}
}

// State returns a copy of the notes panel.
func (n *Notes) State() NotesState {
	n.mu.Lock()
	defer n.mu.Unlock()
	return NotesState{
		StartupID:    n.startupID,
		Notes:        append([]domain.Note(nil), n.notes...),
		IsLoading:    n.loading,
		IsSubmitting: n.submitting,
		LastError:    n.lastErr,
	}
}

// Load switches the panel to startupID and fetches its notes.
func (n *Notes) Load(ctx context.Context, startupID int64) {
	n.mu.Lock()
	if n.startupID != startupID {
		n.notes = nil
	}
	n.startupID = startupID
	n.loading = true
	n.lastErr = nil
	n.mu.Unlock()

	notes, err := n.api.ListNotes(ctx, startupID)

	n.mu.Lock()
	defer n.mu.Unlock()
	n.loading = false
	if err != nil {
		n.logger.Info("load notes failed", "startup_id", startupID, "error", err)
		n.lastErr = err
		return
	}
	if n.startupID == startupID {
		n.notes = notes
	}
}

// Create adds a note to the current startup and puts it first.
func (n *Notes) Create(ctx context.Context, content string) {
	content = strings.TrimSpace(content)
	n.mu.Lock()
	startupID := n.startupID
	switch {
	case startupID == 0:
		n.lastErr = fmt.Errorf("%w: no startup selected", domain.ErrInvalidInput)
		n.mu.Unlock()
		return
	case content == "":
		n.lastErr = fmt.Errorf("%w: note content is required", domain.ErrInvalidInput)
		n.mu.Unlock()
		return
	}
	n.submitting = true
	n.lastErr = nil
	n.mu.Unlock()

	note, err := n.api.CreateNote(ctx, startupID, content)

	n.mu.Lock()
	defer n.mu.Unlock()
	n.submitting = false
	if err != nil {
		n.lastErr = err
		return
	}
	if n.startupID == startupID {
		n.notes = append([]domain.Note{*note}, n.notes...)
	}
}

// Update replaces the content of note id.
func (n *Notes) Update(ctx context.Context, id int64, content string) {
	content = strings.TrimSpace(content)
	if content == "" {
		n.mu.Lock()
		n.lastErr = fmt.Errorf("%w: note content is required", domain.ErrInvalidInput)
		n.mu.Unlock()
		return
	}
	n.mu.Lock()
	n.submitting = true
	n.lastErr = nil
	n.mu.Unlock()

	note, err := n.api.UpdateNote(ctx, id, content)

	n.mu.Lock()
	defer n.mu.Unlock()
	n.submitting = false
	if err != nil {
		n.lastErr = err
		return
	}
	for i := range n.notes {
		if n.notes[i].ID == id {
			n.notes[i] = *note
		}
	}
}

// Delete removes note id once the backend confirms.
func (n *Notes) Delete(ctx context.Context, id int64) {
	n.mu.Lock()
	n.submitting = true
	n.lastErr = nil
	n.mu.Unlock()

	err := n.api.DeleteNote(ctx, id)

	n.mu.Lock()
	defer n.mu.Unlock()
	n.submitting = false
	if err != nil {
		n.lastErr = err
		return
	}
	kept := n.notes[:0:0]
	for _, note := range n.notes {
		if note.ID != id {
			kept = append(kept, note)
		}
	}
	n.notes = kept
}

// ClearError drops LastError.
func (n *Notes) ClearError() {
	n.mu.Lock()
	n.lastErr = nil
	n.mu.Unlock()
}
