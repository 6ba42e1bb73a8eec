package handler

import (
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/msomdec/startup-scout/internal/domain"
)

const (
	sessionCookie = "scout_session"
	sessionTTL    = 24 * time.Hour
)

// errNoBrowserSession is returned by Validate for any request that does not
// carry a live session cookie for the signed-in user.
var errNoBrowserSession = errors.New("no browser session")

// BrowserSessions ties browsers to the operator signed in through the
// dashboard. Each sign-in sets an HS256-signed HttpOnly cookie naming the
// user and a session id; signing out revokes every id issued so far.
type BrowserSessions struct {
	secret []byte
	secure bool
	now    func() time.Time

	mu     sync.Mutex
	active map[string]time.Time
}

// NewBrowserSessions creates a BrowserSessions with a random signing key.
// Issued ids live in memory, so browsers sign in again after a restart.
func NewBrowserSessions(secure bool) *BrowserSessions {
	key := make([]byte, 32)
	rand.Read(key)
	return &BrowserSessions{
		secret: key,
		secure: secure,
		now:    time.Now,
		active: make(map[string]time.Time),
	}
}

// Issue sets a fresh session cookie for username.
func (b *BrowserSessions) Issue(w http.ResponseWriter, username string) error {
	now := b.now()
	id := uuid.NewString()
	claims := jwt.RegisteredClaims{
		ID:        id,
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(sessionTTL)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(b.secret)
	if err != nil {
		return fmt.Errorf("sign session cookie: %w", err)
	}

	b.mu.Lock()
	for sid, exp := range b.active {
		if now.After(exp) {
			delete(b.active, sid)
		}
	}
	b.active[id] = now.Add(sessionTTL)
	b.mu.Unlock()

	http.SetCookie(w, b.cookie(token, int(sessionTTL.Seconds())))
	return nil
}

// Validate reports whether r carries a live session cookie issued for
// username.
func (b *BrowserSessions) Validate(r *http.Request, username string) error {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return errNoBrowserSession
	}

	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(c.Value, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return b.secret, nil
	}, jwt.WithTimeFunc(b.now), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return errNoBrowserSession
	}
	if username == "" || claims.Subject != username {
		return errNoBrowserSession
	}

	b.mu.Lock()
	_, ok := b.active[claims.ID]
	b.mu.Unlock()
	if !ok {
		return errNoBrowserSession
	}
	return nil
}

// RevokeAll invalidates every issued cookie and deletes the caller's.
func (b *BrowserSessions) RevokeAll(w http.ResponseWriter) {
	b.mu.Lock()
	clear(b.active)
	b.mu.Unlock()

	http.SetCookie(w, b.cookie("", -1))
}

func (b *BrowserSessions) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     sessionCookie,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   b.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	}
}

// Operator is the process-wide signed-in user the dashboard acts for.
type Operator interface {
	IsAuthenticated() bool
	User() *domain.User
}

// signedIn reports whether r belongs to a browser that signed in as the
// current operator.
func (b *BrowserSessions) signedIn(op Operator, r *http.Request) bool {
	if !op.IsAuthenticated() {
		return false
	}
	user := op.User()
	if user == nil {
		return false
	}
	return b.Validate(r, user.Username) == nil
}
