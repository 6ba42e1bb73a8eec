package handler

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/msomdec/startup-scout/internal/app"
	"github.com/msomdec/startup-scout/internal/store"
	"github.com/msomdec/startup-scout/internal/view"
)

const flashCookie = "scout_flash"

// AuthHandler serves the sign-in entry point.
type AuthHandler struct {
	app          *app.App
	sessions     *BrowserSessions
	limiter      *TokenBucket
	cookieSecure bool
}

// NewAuthHandler creates a new AuthHandler. limiter may be nil.
func NewAuthHandler(a *app.App, sessions *BrowserSessions, limiter *TokenBucket, cookieSecure bool) *AuthHandler {
	return &AuthHandler{app: a, sessions: sessions, limiter: limiter, cookieSecure: cookieSecure}
}

// HandleLoginPage renders the sign-in form, or sends a signed-in browser
// home.
// GET /login
func (h *AuthHandler) HandleLoginPage(w http.ResponseWriter, r *http.Request) {
	if h.sessions.signedIn(h.app.Session, r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	flash := ""
	if c, err := r.Cookie(flashCookie); err == nil {
		flash, _ = url.QueryUnescape(c.Value)
		h.setFlash(w, "")
	}
	view.LoginPage(flash, r.URL.Query().Get("username")).Render(r.Context(), w)
}

// HandleLogin signs in through the session store and loads the watchlist.
// POST /login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if h.limiter != nil && !h.limiter.Allow(clientIP(r)) {
		w.WriteHeader(http.StatusTooManyRequests)
		view.LoginPage("Too many sign-in attempts. Please wait a minute and try again.", "").Render(r.Context(), w)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")

	if err := h.app.Session.Login(r.Context(), username, password); err != nil {
		slog.Info("dashboard sign-in failed", "username", username, "error", err)
		h.setFlash(w, store.ErrorMessage(err))
		h.app.Session.ClearError()
		http.Redirect(w, r, "/login?username="+url.QueryEscape(username), http.StatusSeeOther)
		return
	}

	name := username
	if u := h.app.Session.User(); u != nil {
		name = u.Username
	}
	if err := h.sessions.Issue(w, name); err != nil {
		slog.Error("issue session cookie", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	h.app.Watchlist.FetchWatchlist(r.Context())
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleLogout ends the session and revokes every browser cookie.
// POST /logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.app.Logout(r.Context())
	h.sessions.RevokeAll(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// setFlash stores msg for the next login page render. An empty msg
// deletes the cookie.
func (h *AuthHandler) setFlash(w http.ResponseWriter, msg string) {
	c := &http.Cookie{
		Name:     flashCookie,
		Value:    url.QueryEscape(msg),
		Path:     "/login",
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   60,
	}
	if msg == "" {
		c.MaxAge = -1
	}
	http.SetCookie(w, c)
}
