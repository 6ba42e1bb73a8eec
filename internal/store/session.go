package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/msomdec/startup-scout/internal/domain"
)

// AuthStatus is the position of the session in its lifecycle.
type AuthStatus int

const (
	StatusAnonymous AuthStatus = iota
	StatusAuthenticating
	StatusAuthenticated
)

func (s AuthStatus) String() string {
	switch s {
	case StatusAuthenticating:
		return "authenticating"
	case StatusAuthenticated:
		return "authenticated"
	default:
		return "anonymous"
	}
}

// SessionState is a point-in-time copy of the session.
type SessionState struct {
	User            *domain.User
	IsAuthenticated bool
	IsLoading       bool
	LastError       error
}

// ErrorMessage returns LastError rendered for display.
func (s SessionState) ErrorMessage() string { return ErrorMessage(s.LastError) }

// Session owns the signed-in user and the credential pair. It is the only
// writer of the persisted session and serves credentials to the gateway.
type Session struct {
	api    AuthAPI
	repo   domain.SessionRepository
	logger *slog.Logger

	mu           sync.Mutex
	user         *domain.User
	accessToken  string
	refreshToken string
	isAuth       bool
	loading      bool
	lastErr      error
}

// NewSession restores any persisted session from repo.
func NewSession(ctx context.Context, api AuthAPI, repo domain.SessionRepository, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{api: api, repo: repo, logger: logger.With("component", "session")}

	persisted, err := repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	s.user = persisted.User
	s.accessToken = persisted.AccessToken
	s.refreshToken = persisted.RefreshToken
	s.isAuth = persisted.Complete()
	if persisted.IsAuthenticated != s.isAuth {
		s.logger.Warn("persisted session was inconsistent, recomputed authentication",
			"stored", persisted.IsAuthenticated, "effective", s.isAuth)
	}
	return s, nil
}

// State returns a copy of the current session.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionState{
		User:            copyUser(s.user),
		IsAuthenticated: s.isAuth,
		IsLoading:       s.loading,
		LastError:       s.lastErr,
	}
}

// Status reports where the session is in its lifecycle.
func (s *Session) Status() AuthStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.isAuth:
		return StatusAuthenticated
	case s.loading:
		return StatusAuthenticating
	default:
		return StatusAnonymous
	}
}

// IsAuthenticated reports whether a user and both tokens are held.
func (s *Session) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isAuth
}

// User returns a copy of the signed-in user, or nil.
func (s *Session) User() *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyUser(s.user)
}

// AccessToken implements gateway.CredentialProvider.
func (s *Session) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken
}

// RefreshToken implements gateway.CredentialProvider.
func (s *Session) RefreshToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshToken
}

// ReplaceAccessToken overwrites only the access token and persists it.
func (s *Session) ReplaceAccessToken(ctx context.Context, token string) error {
	s.mu.Lock()
	s.accessToken = token
	s.isAuth = s.user != nil && s.accessToken != "" && s.refreshToken != ""
	snapshot := s.persistedLocked()
	s.mu.Unlock()

	return s.save(ctx, snapshot)
}

// Expire implements gateway.CredentialProvider. It is called when the
// gateway could not refresh an expired access token.
func (s *Session) Expire(ctx context.Context) {
	s.logger.Info("session expired")
	s.Logout(ctx)
}

// AccessTokenExpiry returns the exp claim of the held access token. The
// signature is not verified; the value is for display only.
func (s *Session) AccessTokenExpiry() (time.Time, bool) {
	token := s.AccessToken()
	if token == "" {
		return time.Time{}, false
	}
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// Login exchanges credentials for a session. The failure is recorded in
// LastError and also returned.
func (s *Session) Login(ctx context.Context, username, password string) error {
	s.begin()
	resp, err := s.api.Login(ctx, domain.LoginRequest{Username: username, Password: password})
	return s.finishAuth(ctx, "login", resp, err)
}

// Register creates an account and signs it in. Required fields and the
// password confirmation are checked before any request is sent.
func (s *Session) Register(ctx context.Context, req domain.RegisterRequest) error {
	if err := validateRegistration(req); err != nil {
		s.mu.Lock()
		s.lastErr = err
		s.mu.Unlock()
		return err
	}
	s.begin()
	resp, err := s.api.Register(ctx, req)
	return s.finishAuth(ctx, "register", resp, err)
}

func validateRegistration(req domain.RegisterRequest) error {
	var missing []string
	if strings.TrimSpace(req.Username) == "" {
		missing = append(missing, "username")
	}
	if strings.TrimSpace(req.Email) == "" {
		missing = append(missing, "email")
	}
	if req.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s required", domain.ErrInvalidInput, strings.Join(missing, ", "))
	}
	if req.Password != req.PasswordConfirm {
		return fmt.Errorf("%w: passwords do not match", domain.ErrInvalidInput)
	}
	return nil
}

func (s *Session) begin() {
	s.mu.Lock()
	s.loading = true
	s.lastErr = nil
	s.mu.Unlock()
}

func (s *Session) finishAuth(ctx context.Context, op string, resp *domain.AuthResponse, err error) error {
	s.mu.Lock()
	s.loading = false
	if err != nil {
		s.lastErr = err
		s.mu.Unlock()
		s.logger.Info(op+" failed", "error", err)
		return err
	}
	user := resp.User
	s.user = &user
	s.accessToken = resp.Tokens.Access
	s.refreshToken = resp.Tokens.Refresh
	s.isAuth = s.user != nil && s.accessToken != "" && s.refreshToken != ""
	snapshot := s.persistedLocked()
	s.mu.Unlock()

	s.logger.Info(op+" succeeded", "username", user.Username)
	if err := s.save(ctx, snapshot); err != nil {
		s.logger.Error("persist session", "error", err)
	}
	return nil
}

// Logout clears the session and its persisted copy. It never calls the
// backend.
func (s *Session) Logout(ctx context.Context) {
	s.mu.Lock()
	s.user = nil
	s.accessToken = ""
	s.refreshToken = ""
	s.isAuth = false
	s.loading = false
	s.lastErr = nil
	s.mu.Unlock()

	if err := s.repo.Clear(ctx); err != nil {
		s.logger.Error("clear persisted session", "error", err)
	}
}

// RefreshAccessToken exchanges the refresh token for a new access token.
// A failed exchange logs the user out before the error is returned.
func (s *Session) RefreshAccessToken(ctx context.Context) error {
	refresh := s.RefreshToken()
	if refresh == "" {
		return domain.ErrNoRefreshCredential
	}

	access, err := s.api.RefreshToken(ctx, refresh)
	if err != nil {
		s.Logout(ctx)
		return fmt.Errorf("refresh access token: %w", err)
	}
	return s.ReplaceAccessToken(ctx, access)
}

// LoadProfile replaces the held user with the backend's current profile.
func (s *Session) LoadProfile(ctx context.Context) error {
	user, err := s.api.Profile(ctx)
	s.mu.Lock()
	if err != nil {
		s.lastErr = err
		s.mu.Unlock()
		return err
	}
	if !s.isAuth {
		// Logged out while the request was in flight.
		s.mu.Unlock()
		return nil
	}
	s.user = user
	snapshot := s.persistedLocked()
	s.mu.Unlock()

	return s.save(ctx, snapshot)
}

// ClearError drops LastError.
func (s *Session) ClearError() {
	s.mu.Lock()
	s.lastErr = nil
	s.mu.Unlock()
}

func (s *Session) persistedLocked() domain.PersistedSession {
	return domain.PersistedSession{
		User:            copyUser(s.user),
		AccessToken:     s.accessToken,
		RefreshToken:    s.refreshToken,
		IsAuthenticated: s.isAuth,
	}
}

func (s *Session) save(ctx context.Context, snapshot domain.PersistedSession) error {
	if err := s.repo.Save(ctx, snapshot); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func copyUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
