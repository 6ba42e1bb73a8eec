package handler_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/msomdec/startup-scout/internal/handler"
)

func TestIntegration_LoginBrowseWatchLogout(t *testing.T) {
	s := newTestServer(t, handler.Options{})

	// 1. Anonymous visitors are sent to the login page.
	status, header, _ := s.do(t, http.MethodGet, "/", false)
	if status != http.StatusSeeOther || header.Get("Location") != "/login" {
		t.Fatalf("anonymous GET /: got %d -> %q", status, header.Get("Location"))
	}

	// 2. A wrong password bounces back with a flash message.
	resp := s.login(t, testUsername, "wrong-password")
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("bad login: expected 303, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/login?username=alice" {
		t.Fatalf("bad login: redirected to %q", loc)
	}
	status, _, body := s.do(t, http.MethodGet, "/login?username=alice", false)
	if status != http.StatusOK {
		t.Fatalf("GET /login: %d", status)
	}
	mustContain(t, body, "No active account found with the given credentials")
	mustContain(t, body, `value="alice"`)

	// The flash is shown once.
	_, _, body = s.do(t, http.MethodGet, "/login", false)
	if strings.Contains(body, "No active account") {
		t.Fatal("flash message should be cleared after it is shown")
	}

	// 3. Valid credentials sign in.
	resp = s.login(t, testUsername, testPassword)
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/" {
		t.Fatalf("login: got %d -> %q", resp.StatusCode, resp.Header.Get("Location"))
	}
	if !s.App.Session.IsAuthenticated() {
		t.Fatal("expected session store to be authenticated")
	}

	// Signed-in users skip the login form.
	status, header, _ = s.do(t, http.MethodGet, "/login", false)
	if status != http.StatusSeeOther || header.Get("Location") != "/" {
		t.Fatalf("GET /login when signed in: got %d -> %q", status, header.Get("Location"))
	}

	// 4. The catalog page lists startups, newest first, with escaped text.
	status, _, body = s.do(t, http.MethodGet, "/", false)
	if status != http.StatusOK {
		t.Fatalf("GET /: %d", status)
	}
	mustContain(t, body, "Acme Robotics")
	mustContain(t, body, "Payments &lt;b&gt;infra&lt;/b&gt;")
	if strings.Index(body, "Beta Ledger") > strings.Index(body, "Acme Robotics") {
		t.Fatal("expected newest startup first")
	}
	mustContain(t, body, `<option value="FinTech"`)
	mustContain(t, body, `class="user">alice`)

	// 5. Watch a startup from the catalog.
	status, header, body = s.do(t, http.MethodPost, "/watchlist/1", true)
	if status != http.StatusOK {
		t.Fatalf("POST /watchlist/1: %d", status)
	}
	if ct := header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("expected SSE response, got %q", ct)
	}
	mustContain(t, body, "datastar-patch-elements")
	mustContain(t, body, "Remove from watchlist")
	if !s.App.Watchlist.IsInWatchlist(1) {
		t.Fatal("expected startup 1 in watchlist")
	}

	// A duplicate add surfaces the backend's message next to the button.
	_, _, body = s.do(t, http.MethodPost, "/watchlist/1", true)
	mustContain(t, body, "class=\"error\"")

	// 6. The watchlist page shows it and the analytics page counts it.
	_, _, body = s.do(t, http.MethodGet, "/watchlist", false)
	mustContain(t, body, "watchlist-row-1")
	mustContain(t, body, "Acme Robotics")

	_, _, body = s.do(t, http.MethodGet, "/analytics", false)
	mustContain(t, body, "<dt>Watchlist</dt><dd>1</dd>")

	status, header, body = s.do(t, http.MethodGet, "/analytics/export", false)
	if status != http.StatusOK {
		t.Fatalf("GET /analytics/export: %d", status)
	}
	if ct := header.Get("Content-Type"); ct != "text/csv" {
		t.Fatalf("export Content-Type = %q", ct)
	}
	if !strings.Contains(header.Get("Content-Disposition"), "attachment") {
		t.Fatalf("export Content-Disposition = %q", header.Get("Content-Disposition"))
	}
	mustContain(t, body, "Acme Robotics")

	// 7. Removing from the watchlist page drops the row.
	status, _, body = s.do(t, http.MethodDelete, "/watchlist/1?view=watchlist", true)
	if status != http.StatusOK {
		t.Fatalf("DELETE /watchlist/1: %d", status)
	}
	mustContain(t, body, "watchlist-row-1")
	if s.App.Watchlist.IsInWatchlist(1) {
		t.Fatal("expected startup 1 removed")
	}

	// 8. Logout ends the session and protects the pages again.
	resp, err := s.client.Post(s.URL+"/logout", "application/x-www-form-urlencoded", nil)
	if err != nil {
		t.Fatalf("POST /logout: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/login" {
		t.Fatalf("logout: got %d -> %q", resp.StatusCode, resp.Header.Get("Location"))
	}
	if s.App.Session.IsAuthenticated() {
		t.Fatal("expected session cleared after logout")
	}
	status, _, _ = s.do(t, http.MethodGet, "/watchlist", false)
	if status != http.StatusSeeOther {
		t.Fatalf("GET /watchlist after logout: expected 303, got %d", status)
	}
}

func TestSearch_FiltersPagesAndClears(t *testing.T) {
	s := newTestServer(t, handler.Options{})
	s.login(t, testUsername, testPassword)

	status, _, body := s.do(t, http.MethodGet, searchPath(`{"q":"acme","industry":"","location":"","stage":"","ordering":"-created_at"}`), true)
	if status != http.StatusOK {
		t.Fatalf("search: %d", status)
	}
	mustContain(t, body, "startup-results")
	mustContain(t, body, "Acme Robotics")
	if strings.Contains(body, "Beta Ledger") {
		t.Fatal("search for acme should not list Beta Ledger")
	}
	if got := s.App.Catalog.State().Filters.Query; got != "acme" {
		t.Fatalf("catalog query = %q", got)
	}

	// Paging keeps the filters and fetches at once.
	_, _, body = s.do(t, http.MethodGet, "/startups/search?page=1", true)
	mustContain(t, body, "Acme Robotics")
	if calls := s.Backend.Calls("GET /api/startups/"); calls < 2 {
		t.Fatalf("expected paging to hit the backend, calls = %d", calls)
	}

	// Clearing resets the filters and re-renders the whole panel.
	_, _, body = s.do(t, http.MethodGet, "/startups/search?clear=1", true)
	mustContain(t, body, `id="catalog"`)
	mustContain(t, body, "Beta Ledger")
	if got := s.App.Catalog.State().Filters.Query; got != "" {
		t.Fatalf("catalog query after clear = %q", got)
	}

	status, _, _ = s.do(t, http.MethodGet, "/startups/search?page=abc", true)
	if status != http.StatusBadRequest {
		t.Fatalf("bad page: expected 400, got %d", status)
	}
}

func TestSearch_AnonymousDatastarRequestIsRedirected(t *testing.T) {
	s := newTestServer(t, handler.Options{})

	status, header, body := s.do(t, http.MethodGet, searchPath(`{"q":"acme"}`), true)
	if status != http.StatusOK {
		t.Fatalf("expected SSE response, got %d", status)
	}
	if ct := header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("expected SSE response, got %q", ct)
	}
	mustContain(t, body, "/login")
	if s.Backend.TotalCalls() != 0 {
		t.Fatalf("expected no backend calls, got %d", s.Backend.TotalCalls())
	}
}

func TestWatchlist_InvalidStartupID(t *testing.T) {
	s := newTestServer(t, handler.Options{})
	s.login(t, testUsername, testPassword)

	status, _, _ := s.do(t, http.MethodPost, "/watchlist/abc", true)
	if status != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", status)
	}
}

func TestLogin_RateLimited(t *testing.T) {
	s := newTestServer(t, handler.Options{LoginLimiter: handler.NewTokenBucket(0, 1)})

	if resp := s.login(t, testUsername, "wrong-password"); resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("first attempt: expected 303, got %d", resp.StatusCode)
	}
	calls := s.Backend.Calls("POST /api/auth/login/")
	if resp := s.login(t, testUsername, testPassword); resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("second attempt: expected 429, got %d", resp.StatusCode)
	}
	if got := s.Backend.Calls("POST /api/auth/login/"); got != calls {
		t.Fatalf("rate-limited attempt reached the backend: %d -> %d", calls, got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, handler.Options{})
	s.do(t, http.MethodGet, "/healthz", false)

	status, _, body := s.do(t, http.MethodGet, "/metrics", false)
	if status != http.StatusOK {
		t.Fatalf("GET /metrics: %d", status)
	}
	mustContain(t, body, `startup_scout_http_requests_total{route="GET /healthz",status="200"} 1`)
	mustContain(t, body, "go_goroutines")
}

func TestSession_OtherBrowsersStaySignedOut(t *testing.T) {
	s := newTestServer(t, handler.Options{})
	s.login(t, testUsername, testPassword)
	if !s.App.Session.IsAuthenticated() {
		t.Fatal("expected session store to be authenticated")
	}

	stranger := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	send := func(method, path string, datastarRequest bool) *http.Response {
		t.Helper()
		req, err := http.NewRequest(method, s.URL+path, nil)
		if err != nil {
			t.Fatalf("new request: %v", err)
		}
		if datastarRequest {
			req.Header.Set("Datastar-Request", "true")
		}
		resp, err := stranger.Do(req)
		if err != nil {
			t.Fatalf("%s %s: %v", method, path, err)
		}
		resp.Body.Close()
		return resp
	}

	for _, path := range []string{"/", "/watchlist", "/analytics", "/analytics/export"} {
		resp := send(http.MethodGet, path, false)
		if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/login" {
			t.Fatalf("GET %s without cookie: got %d -> %q", path, resp.StatusCode, resp.Header.Get("Location"))
		}
	}

	// The login form is shown rather than skipped.
	if resp := send(http.MethodGet, "/login", false); resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /login without cookie: expected 200, got %d", resp.StatusCode)
	}

	send(http.MethodPost, "/watchlist/2", true)
	if s.App.Watchlist.IsInWatchlist(2) {
		t.Fatal("request without cookie changed the watchlist")
	}

	if resp := send(http.MethodPost, "/logout", false); resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("POST /logout without cookie: expected 303, got %d", resp.StatusCode)
	}
	if !s.App.Session.IsAuthenticated() {
		t.Fatal("request without cookie signed the operator out")
	}

	// The signed-in browser is unaffected.
	if status, _, _ := s.do(t, http.MethodGet, "/watchlist", false); status != http.StatusOK {
		t.Fatalf("GET /watchlist with cookie: %d", status)
	}
}

func TestSession_CrossOriginWritesRejected(t *testing.T) {
	s := newTestServer(t, handler.Options{})
	s.login(t, testUsername, testPassword)

	for _, tc := range []struct {
		method, path string
	}{
		{http.MethodPost, "/watchlist/2"},
		{http.MethodPost, "/logout"},
	} {
		req, err := http.NewRequest(tc.method, s.URL+tc.path, nil)
		if err != nil {
			t.Fatalf("new request: %v", err)
		}
		req.Header.Set("Datastar-Request", "true")
		req.Header.Set("Origin", "https://evil.example")
		resp, err := s.client.Do(req)
		if err != nil {
			t.Fatalf("%s %s: %v", tc.method, tc.path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusForbidden {
			t.Fatalf("cross-origin %s %s: expected 403, got %d", tc.method, tc.path, resp.StatusCode)
		}
	}
	if s.App.Watchlist.IsInWatchlist(2) {
		t.Fatal("cross-origin request changed the watchlist")
	}
	if !s.App.Session.IsAuthenticated() {
		t.Fatal("cross-origin request signed the operator out")
	}

	// Plain form posts cannot toggle the watchlist.
	resp, err := s.client.Post(s.URL+"/watchlist/2", "application/x-www-form-urlencoded", nil)
	if err != nil {
		t.Fatalf("POST /watchlist/2: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("form POST /watchlist/2: expected 403, got %d", resp.StatusCode)
	}
}
