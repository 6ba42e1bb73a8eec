// Package fakeapi is an in-memory implementation of the startup catalog
// REST API. Tests run it behind httptest.Server; `scout serve --demo` runs
// it in-process so the dashboard works without a real backend.
package fakeapi

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/msomdec/startup-scout/internal/domain"
)

// Config holds fake backend configuration.
type Config struct {
	// Secret signs issued tokens.
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// BcryptCost defaults to bcrypt.MinCost to keep tests fast.
	BcryptCost int
	// Startups seeds the catalog. When nil, SeedStartups(50) is used.
	Startups []domain.StartupSummary
	Logger   *slog.Logger
	// Now overrides the clock used for timestamps and token expiry.
	Now func() time.Time
}

// Server serves the REST API from memory.
type Server struct {
	auth   *authService
	logger *slog.Logger
	now    func() time.Time
	mux    *http.ServeMux

	mu        sync.Mutex
	startups  []domain.StartupSummary
	watchlist []watchRecord
	notes     []noteRecord
	nextID    int64
	calls     map[string]int
	failures  map[string]int
}

type watchRecord struct {
	id        int64
	userID    int64
	startupID int64
	createdAt time.Time
}

type noteRecord struct {
	id        int64
	userID    int64
	startupID int64
	content   string
	createdAt time.Time
	updatedAt time.Time
}

// New creates a Server.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	startups := cfg.Startups
	if startups == nil {
		startups = SeedStartups(50, now())
	}
	var maxID int64
	for _, st := range startups {
		maxID = max(maxID, st.ID)
	}

	s := &Server{
		auth:     newAuthService(cfg, now),
		logger:   logger.With("component", "fakeapi"),
		now:      now,
		mux:      http.NewServeMux(),
		startups: append([]domain.StartupSummary(nil), startups...),
		nextID:   maxID,
		calls:    make(map[string]int),
		failures: make(map[string]int),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.handle("POST /api/auth/login/", s.handleLogin)
	s.handle("POST /api/auth/register/", s.handleRegister)
	s.handle("POST /api/auth/token/refresh/", s.handleRefresh)
	s.handle("GET /api/auth/profile/", s.requireAuth(s.handleProfile))

	s.handle("GET /api/startups/", s.handleListStartups)
	s.handle("GET /api/startups/{id}/", s.handleGetStartup)

	s.handle("GET /api/watchlist/", s.requireAuth(s.handleListWatchlist))
	s.handle("POST /api/watchlist/", s.requireAuth(s.handleAddWatchlist))
	s.handle("DELETE /api/watchlist/{id}/", s.requireAuth(s.handleRemoveWatchlist))

	s.handle("GET /api/notes/", s.requireAuth(s.handleListNotes))
	s.handle("POST /api/notes/", s.requireAuth(s.handleCreateNote))
	s.handle("PATCH /api/notes/{id}/", s.requireAuth(s.handleUpdateNote))
	s.handle("DELETE /api/notes/{id}/", s.requireAuth(s.handleDeleteNote))

	s.handle("GET /api/analytics/dashboard/", s.requireAuth(s.handleDashboard))
	s.handle("GET /api/analytics/export/watchlist/", s.requireAuth(s.handleExport))
}

// handle registers h under pattern and counts every request it receives.
func (s *Server) handle(pattern string, h http.HandlerFunc) {
	s.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[pattern]++
		status := s.failures[pattern]
		s.mu.Unlock()

		if status != 0 {
			writeDetail(w, status, http.StatusText(status))
			return
		}
		h(w, r)
	})
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Calls returns how many requests reached pattern, e.g. "POST /api/watchlist/".
func (s *Server) Calls(pattern string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[pattern]
}

// TotalCalls returns the number of requests served on any route.
func (s *Server) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.calls {
		total += n
	}
	return total
}

// FailRoute makes every request to pattern answer with status. A zero
// status restores normal handling.
func (s *Server) FailRoute(pattern string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.failures, pattern)
		return
	}
	s.failures[pattern] = status
}

// AddUser creates an account directly, bypassing registration rules.
func (s *Server) AddUser(username, email, password string) (domain.User, error) {
	return s.auth.addUser(username, email, password, "", "")
}

// IssueTokens returns a fresh token pair for username.
func (s *Server) IssueTokens(username string) (domain.TokenPair, error) {
	return s.auth.issueFor(username)
}

// RevokeRefreshTokens invalidates every refresh token issued so far.
func (s *Server) RevokeRefreshTokens() {
	s.auth.revokeAll()
}

func (s *Server) newID() int64 {
	s.nextID++
	return s.nextID
}
