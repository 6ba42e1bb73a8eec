package fakeapi

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/msomdec/startup-scout/internal/domain"
)

func (s *Server) watchEntryLocked(rec watchRecord) domain.WatchlistEntry {
	entry := domain.WatchlistEntry{
		ID:        rec.id,
		StartupID: rec.startupID,
		CreatedAt: domain.Timestamp{Time: rec.createdAt},
	}
	if st, ok := s.startupLocked(rec.startupID); ok {
		entry.StartupName = st.Name
	}
	if u, ok := s.auth.userByID(rec.userID); ok {
		entry.UserUsername = u.Username
	}
	return entry
}

func (s *Server) handleListWatchlist(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context())
	filter := r.URL.Query().Get("startup")

	s.mu.Lock()
	entries := []domain.WatchlistEntry{}
	for _, rec := range s.watchlist {
		if rec.userID != userID {
			continue
		}
		if filter != "" && strconv.FormatInt(rec.startupID, 10) != filter {
			continue
		}
		entries = append(entries, s.watchEntryLocked(rec))
	}
	s.mu.Unlock()

	writePage(w, r, entries)
}

func (s *Server) handleAddWatchlist(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context())
	var req struct {
		Startup *int64 `json:"startup"`
	}
	if err := readJSON(r, &req); err != nil || req.Startup == nil {
		writeFieldErrors(w, map[string][]string{"startup": {"This field is required."}})
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
	for _, rec := range s.watchlist {
		if rec.userID == userID && rec.startupID == *req.Startup {
			writeFieldErrors(w, map[string][]string{
				"non_field_errors": {"The fields user, startup must make a unique set."},
			})
			return
		}
	}

	rec := watchRecord{id: s.newID(), userID: userID, startupID: *req.Startup, createdAt: s.now().UTC()}
	s.watchlist = append(s.watchlist, rec)
	writeJSON(w, http.StatusCreated, s.watchEntryLocked(rec))
}

func (s *Server) handleRemoveWatchlist(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context())
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeDetail(w, http.StatusNotFound, "Not found.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, rec := range s.watchlist {
		if rec.id == id && rec.userID == userID {
			s.watchlist = append(s.watchlist[:i], s.watchlist[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "Not found.")
}
