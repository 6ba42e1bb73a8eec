package handler

import (
	"net"
	"net/http"

	datastar "github.com/starfederation/datastar-go/datastar"
)

// RequireSession sends visitors without a session cookie for the signed-in
// operator to the login page. Datastar requests get an SSE redirect since
// the browser would not follow a 303 issued to a fetch.
func RequireSession(op Operator, sessions *BrowserSessions, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sessions.signedIn(op, r) {
			next.ServeHTTP(w, r)
			return
		}
		if isDatastar(r) {
			sse := datastar.NewSSE(w, r)
			sse.Redirect("/login")
			return
		}
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	})
}

// RequireDatastar rejects requests not sent by the datastar client. Plain
// form posts and cross-site fetches cannot set the header.
func RequireDatastar(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isDatastar(r) {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func isDatastar(r *http.Request) bool {
	return r.Header.Get("Datastar-Request") == "true"
}

// SecurityHeaders sets response headers that apply to every page.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "same-origin")
		h.Set("Content-Security-Policy",
			"default-src 'self'; script-src 'self' 'unsafe-eval' https://cdn.jsdelivr.net; style-src 'self' 'unsafe-inline'; frame-ancestors 'none'")
		next.ServeHTTP(w, r)
	})
}

// clientIP returns the host part of the peer address.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
