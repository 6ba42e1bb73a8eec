package fakeapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/msomdec/startup-scout/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

const (
	defaultAccessTTL  = 5 * time.Minute
	defaultRefreshTTL = 24 * time.Hour
	defaultSecret     = "startup-scout-demo-secret"

	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

var errUsernameTaken = errors.New("username taken")

type account struct {
	user         domain.User
	passwordHash string
}

// authService handles registration, login and JWT token operations.
type authService struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	bcryptCost int
	now        func() time.Time

	mu         sync.Mutex
	users      map[string]*account
	byID       map[int64]*account
	nextUserID int64
	generation int
}

func newAuthService(cfg Config, now func() time.Time) *authService {
	a := &authService{
		secret:     []byte(cfg.Secret),
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		bcryptCost: cfg.BcryptCost,
		now:        now,
		users:      make(map[string]*account),
		byID:       make(map[int64]*account),
	}
	if len(a.secret) == 0 {
		a.secret = []byte(defaultSecret)
	}
	if a.accessTTL <= 0 {
		a.accessTTL = defaultAccessTTL
	}
	if a.refreshTTL <= 0 {
		a.refreshTTL = defaultRefreshTTL
	}
	if a.bcryptCost == 0 {
		a.bcryptCost = bcrypt.MinCost
	}
	return a
}

func (a *authService) addUser(username, email, password, first, last string) (domain.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.bcryptCost)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.users[strings.ToLower(username)]; ok {
		return domain.User{}, errUsernameTaken
	}
	a.nextUserID++
	acc := &account{
		user: domain.User{
			ID:         a.nextUserID,
			Username:   username,
			Email:      email,
			FirstName:  first,
			LastName:   last,
			DateJoined: domain.Timestamp{Time: a.now().UTC()},
		},
		passwordHash: string(hash),
	}
	a.users[strings.ToLower(username)] = acc
	a.byID[acc.user.ID] = acc
	return acc.user, nil
}

func (a *authService) login(username, password string) (domain.User, error) {
	a.mu.Lock()
	acc, ok := a.users[strings.ToLower(username)]
	a.mu.Unlock()
	if !ok {
		return domain.User{}, domain.ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.passwordHash), []byte(password)); err != nil {
		return domain.User{}, domain.ErrUnauthorized
	}
	return acc.user, nil
}

func (a *authService) userByID(id int64) (domain.User, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	acc, ok := a.byID[id]
	if !ok {
		return domain.User{}, false
	}
	return acc.user, true
}

func (a *authService) issueFor(username string) (domain.TokenPair, error) {
	a.mu.Lock()
	acc, ok := a.users[strings.ToLower(username)]
	a.mu.Unlock()
	if !ok {
		return domain.TokenPair{}, domain.ErrNotFound
	}
	return a.issue(acc.user.ID)
}

func (a *authService) issue(userID int64) (domain.TokenPair, error) {
	access, err := a.sign(userID, tokenTypeAccess, a.accessTTL)
	if err != nil {
		return domain.TokenPair{}, err
	}
	refresh, err := a.sign(userID, tokenTypeRefresh, a.refreshTTL)
	if err != nil {
		return domain.TokenPair{}, err
	}
	return domain.TokenPair{Access: access, Refresh: refresh}, nil
}

func (a *authService) sign(userID int64, tokenType string, ttl time.Duration) (string, error) {
	a.mu.Lock()
	gen := a.generation
	a.mu.Unlock()

	now := a.now()
	claims := jwt.MapClaims{
		"sub":        strconv.FormatInt(userID, 10),
		"token_type": tokenType,
		"jti":        uuid.NewString(),
		"gen":        gen,
		"iat":        now.Unix(),
		"exp":        now.Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", tokenType, err)
	}
	return signed, nil
}

// validate parses a token of the wanted type and returns its user id.
func (a *authService) validate(tokenString, wantType string) (int64, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithTimeFunc(a.now))
	if err != nil {
		return 0, domain.ErrUnauthorized
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return 0, domain.ErrUnauthorized
	}
	if claims["token_type"] != wantType {
		return 0, domain.ErrUnauthorized
	}
	if wantType == tokenTypeRefresh {
		gen, _ := claims["gen"].(float64)
		a.mu.Lock()
		current := a.generation
		a.mu.Unlock()
		if int(gen) != current {
			return 0, domain.ErrUnauthorized
		}
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return 0, domain.ErrUnauthorized
	}
	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return 0, domain.ErrUnauthorized
	}
	if _, ok := a.userByID(userID); !ok {
		return 0, domain.ErrUnauthorized
	}
	return userID, nil
}

func (a *authService) revokeAll() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.generation++
}

type contextKey string

const userIDKey contextKey = "user_id"

func userIDFrom(ctx context.Context) int64 {
	id, _ := ctx.Value(userIDKey).(int64)
	return id
}

// requireAuth rejects requests without a valid access token.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeDetail(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
			return
		}
		userID, err := s.auth.validate(token, tokenTypeAccess)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"detail": "Given token not valid for any token type",
				"code":   "token_not_valid",
			})
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := readJSON(r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Malformed request body.")
		return
	}
	fields := map[string][]string{}
	if req.Username == "" {
		fields["username"] = []string{"This field is required."}
	}
	if req.Password == "" {
		fields["password"] = []string{"This field is required."}
	}
	if len(fields) > 0 {
		writeFieldErrors(w, fields)
		return
	}

	user, err := s.auth.login(req.Username, req.Password)
	if err != nil {
		writeDetail(w, http.StatusUnauthorized, "No active account found with the given credentials")
		return
	}
	s.writeAuthResponse(w, http.StatusOK, user)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if err := readJSON(r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Malformed request body.")
		return
	}

	fields := map[string][]string{}
	for name, value := range map[string]string{
		"username":         req.Username,
		"email":            req.Email,
		"password":         req.Password,
		"password_confirm": req.PasswordConfirm,
	} {
		if strings.TrimSpace(value) == "" {
			fields[name] = []string{"This field is required."}
		}
	}
	if len(fields) == 0 {
		if req.Password != req.PasswordConfirm {
			fields["password"] = []string{"Password fields didn't match."}
		} else if len(req.Password) < 8 {
			fields["password"] = []string{"This password is too short. It must contain at least 8 characters."}
		}
		if !strings.Contains(req.Email, "@") {
			fields["email"] = []string{"Enter a valid email address."}
		}
	}
	if len(fields) > 0 {
		writeFieldErrors(w, fields)
		return
	}

	user, err := s.auth.addUser(req.Username, req.Email, req.Password, req.FirstName, req.LastName)
	if errors.Is(err, errUsernameTaken) {
		writeFieldErrors(w, map[string][]string{"username": {"A user with that username already exists."}})
		return
	}
	if err != nil {
		s.logger.Error("register user", "error", err)
		writeDetail(w, http.StatusInternalServerError, "Internal server error.")
		return
	}
	s.writeAuthResponse(w, http.StatusCreated, user)
}

func (s *Server) writeAuthResponse(w http.ResponseWriter, status int, user domain.User) {
	tokens, err := s.auth.issue(user.ID)
	if err != nil {
		s.logger.Error("issue tokens", "error", err)
		writeDetail(w, http.StatusInternalServerError, "Internal server error.")
		return
	}
	writeJSON(w, status, domain.AuthResponse{User: user, Tokens: tokens})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Refresh string `json:"refresh"`
	}
	if err := readJSON(r, &req); err != nil || req.Refresh == "" {
		writeFieldErrors(w, map[string][]string{"refresh": {"This field is required."}})
		return
	}
	userID, err := s.auth.validate(req.Refresh, tokenTypeRefresh)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"detail": "Token is invalid or expired",
			"code":   "token_not_valid",
		})
		return
	}
	access, err := s.auth.sign(userID, tokenTypeAccess, s.auth.accessTTL)
	if err != nil {
		s.logger.Error("sign access token", "error", err)
		writeDetail(w, http.StatusInternalServerError, "Internal server error.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"access": access})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := s.auth.userByID(userIDFrom(r.Context()))
	if !ok {
		writeDetail(w, http.StatusNotFound, "Not found.")
		return
	}
	writeJSON(w, http.StatusOK, user)
}
