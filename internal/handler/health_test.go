package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/msomdec/startup-scout/internal/handler"
)

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

type staticAuth bool

func (a staticAuth) IsAuthenticated() bool { return bool(a) }

func TestHandleHealthz(t *testing.T) {
	h := handler.NewHealth(stubPinger{}, staticAuth(true))
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()

	h.HandleHealthz(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected Content-Type application/json, got %s", ct)
	}

	var body struct {
		Status        string `json:"status"`
		Authenticated bool   `json:"authenticated"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Status != "ok" || !body.Authenticated {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestHandleHealthz_StorageUnavailable(t *testing.T) {
	h := handler.NewHealth(stubPinger{err: errors.New("database is closed")}, staticAuth(false))
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()

	h.HandleHealthz(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestHandleHealthzRouting(t *testing.T) {
	s := newTestServer(t, handler.Options{})

	status, header, _ := s.do(t, http.MethodGet, "/healthz", false)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if header.Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("expected security headers on every response")
	}
}
