package fakeapi

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/msomdec/startup-scout/internal/domain"
)

func (s *Server) noteLocked(rec noteRecord) domain.Note {
	note := domain.Note{
		ID:        rec.id,
		StartupID: rec.startupID,
		Content:   rec.content,
		CreatedAt: domain.Timestamp{Time: rec.createdAt},
		UpdatedAt: domain.Timestamp{Time: rec.updatedAt},
	}
	if st, ok := s.startupLocked(rec.startupID); ok {
		note.StartupName = st.Name
	}
	return note
}

func (s *Server) handleListNotes(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context())
	filter := r.URL.Query().Get("startup")

	s.mu.Lock()
	notes := []domain.Note{}
	for _, rec := range s.notes {
		if rec.userID != userID {
			continue
		}
		if filter != "" && strconv.FormatInt(rec.startupID, 10) != filter {
			continue
		}
		notes = append(notes, s.noteLocked(rec))
	}
	s.mu.Unlock()

	// Newest first.
	sort.SliceStable(notes, func(i, j int) bool { return notes[i].CreatedAt.After(notes[j].CreatedAt.Time) })
	writePage(w, r, notes)
}

func (s *Server) handleCreateNote(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context())
	var req struct {
		Startup *int64 `json:"startup"`
		Content string `json:"content"`
	}
	if err := readJSON(r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Malformed request body.")
		return
	}
	fields := map[string][]string{}
	if req.Startup == nil {
		fields["startup"] = []string{"This field is required."}
	}
	if strings.TrimSpace(req.Content) == "" {
		fields["content"] = []string{"This field may not be blank."}
	}
	if len(fields) > 0 {
		writeFieldErrors(w, fields)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.startupLocked(*req.Startup); !ok {
		writeFieldErrors(w, map[string][]string{
			"startup": {fmt.Sprintf("Invalid pk %q - object does not exist.", strconv.FormatInt(*req.Startup, 10))},
		})
		return
	}
	now := s.now().UTC()
	rec := noteRecord{
		id:        s.newID(),
		userID:    userID,
		startupID: *req.Startup,
		content:   req.Content,
		createdAt: now,
		updatedAt: now,
	}
	s.notes = append(s.notes, rec)
	writeJSON(w, http.StatusCreated, s.noteLocked(rec))
}

func (s *Server) handleUpdateNote(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context())
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeDetail(w, http.StatusNotFound, "Not found.")
		return
	}
	var req struct {
		Content *string `json:"content"`
	}
	if err := readJSON(r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Malformed request body.")
		return
	}
	if req.Content != nil && strings.TrimSpace(*req.Content) == "" {
		writeFieldErrors(w, map[string][]string{"content": {"This field may not be blank."}})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.notes {
		if s.notes[i].id != id || s.notes[i].userID != userID {
			continue
		}
		if req.Content != nil {
			s.notes[i].content = *req.Content
			s.notes[i].updatedAt = s.now().UTC()
		}
		writeJSON(w, http.StatusOK, s.noteLocked(s.notes[i]))
		return
	}
	writeDetail(w, http.StatusNotFound, "Not found.")
}

func (s *Server) handleDeleteNote(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context())
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeDetail(w, http.StatusNotFound, "Not found.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, rec := range s.notes {
		if rec.id == id && rec.userID == userID {
			s.notes = append(s.notes[:i], s.notes[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "Not found.")
}
