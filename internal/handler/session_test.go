package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func issuedRequest(t *testing.T, b *BrowserSessions, username string) (*http.Request, *http.Cookie) {
	t.Helper()
	rec := httptest.NewRecorder()
	if err := b.Issue(rec, username); err != nil {
		t.Fatalf("Issue: %v", err)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected one cookie, got %d", len(cookies))
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	return req, cookies[0]
}

func TestBrowserSessions_IssueSetsHardenedCookie(t *testing.T) {
	b := NewBrowserSessions(true)
	_, c := issuedRequest(t, b, "alice")

	if c.Name != sessionCookie || !c.HttpOnly || !c.Secure || c.Path != "/" {
		t.Fatalf("unexpected cookie: %+v", c)
	}
	if c.SameSite != http.SameSiteLaxMode {
		t.Fatalf("SameSite = %v", c.SameSite)
	}
}

func TestBrowserSessions_Validate(t *testing.T) {
	b := NewBrowserSessions(false)
	req, _ := issuedRequest(t, b, "alice")

	if err := b.Validate(req, "alice"); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if err := b.Validate(req, "bob"); err == nil {
		t.Fatal("expected cookie for alice to be rejected for bob")
	}
	if err := b.Validate(httptest.NewRequest(http.MethodGet, "/", nil), "alice"); err == nil {
		t.Fatal("expected request without cookie to be rejected")
	}
}

func TestBrowserSessions_RejectsForeignKey(t *testing.T) {
	other := NewBrowserSessions(false)
	req, _ := issuedRequest(t, other, "alice")

	if err := NewBrowserSessions(false).Validate(req, "alice"); err == nil {
		t.Fatal("expected cookie signed with another key to be rejected")
	}
}

func TestBrowserSessions_RejectsTamperedCookie(t *testing.T) {
	b := NewBrowserSessions(false)
	_, c := issuedRequest(t, b, "alice")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: c.Value + "x"})
	if err := b.Validate(req, "alice"); err == nil {
		t.Fatal("expected tampered cookie to be rejected")
	}
}

func TestBrowserSessions_Expiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	b := NewBrowserSessions(false)
	b.now = func() time.Time { return now }
	req, _ := issuedRequest(t, b, "alice")

	now = now.Add(sessionTTL - time.Minute)
	if err := b.Validate(req, "alice"); err != nil {
		t.Fatalf("Validate before expiry: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if err := b.Validate(req, "alice"); err == nil {
		t.Fatal("expected expired cookie to be rejected")
	}
}

func TestBrowserSessions_RevokeAll(t *testing.T) {
	b := NewBrowserSessions(false)
	first, _ := issuedRequest(t, b, "alice")
	second, _ := issuedRequest(t, b, "alice")

	rec := httptest.NewRecorder()
	b.RevokeAll(rec)

	for i, req := range []*http.Request{first, second} {
		if err := b.Validate(req, "alice"); err == nil {
			t.Fatalf("cookie %d still valid after RevokeAll", i)
		}
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge >= 0 {
		t.Fatalf("expected cookie deletion, got %+v", cookies)
	}
}
