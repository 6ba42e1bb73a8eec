package gateway_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/msomdec/startup-scout/internal/domain"
	"github.com/msomdec/startup-scout/internal/gateway"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCredentials struct {
	mu       sync.Mutex
	access   string
	refresh  string
	expired  int
	replaced []string
}

func (f *fakeCredentials) AccessToken() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.access
}

func (f *fakeCredentials) RefreshToken() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refresh
}

func (f *fakeCredentials) ReplaceAccessToken(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.access = token
	f.replaced = append(f.replaced, token)
	return nil
}

func (f *fakeCredentials) Expire(context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.access, f.refresh = "", ""
	f.expired++
}

func newGateway(t *testing.T, srv *httptest.Server, cfg gateway.Config) *gateway.Gateway {
	t.Helper()
	cfg.BaseURL = srv.URL + "/api"
	gw, err := gateway.New(cfg)
	require.NoError(t, err)
	return gw
}

// refreshingBackend accepts bearer "fresh" on /api/protected/ and exchanges
// refresh token "R1" for "fresh".
type refreshingBackend struct {
	protectedHits atomic.Int32
	refreshHits   atomic.Int32
	alwaysReject  bool
	refreshStatus int
	authHeaders   []string
	mu            sync.Mutex
}

func (b *refreshingBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/protected/", func(w http.ResponseWriter, r *http.Request) {
		b.protectedHits.Add(1)
		b.mu.Lock()
		b.authHeaders = append(b.authHeaders, r.Header.Get("Authorization"))
		b.mu.Unlock()
		if b.alwaysReject || r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"detail":"Given token not valid for any token type"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	})
	mux.HandleFunc("POST /api/auth/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
		b.refreshHits.Add(1)
		if b.refreshStatus != 0 {
			w.WriteHeader(b.refreshStatus)
			w.Write([]byte(`{"detail":"Token is invalid or expired"}`))
			return
		}
		var req struct {
			Refresh string `json:"refresh"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if req.Refresh != "R1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"access":"fresh"}`))
	})
	return mux
}

func TestGateway_AttachesBearerToken(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	gw := newGateway(t, srv, gateway.Config{})
	gw.SetCredentials(&fakeCredentials{access: "A1", refresh: "R1"})

	_, err := gw.Do(context.Background(), http.MethodGet, "/startups/", nil)
	require.NoError(t, err)
	assert.Equal(t, "Bearer A1", got)
}

func TestGateway_NoCredentialsSendsUnauthenticated(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	gw := newGateway(t, srv, gateway.Config{})
	_, err := gw.Do(context.Background(), http.MethodGet, "/startups/", nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	gw.SetCredentials(&fakeCredentials{})
	_, err = gw.Do(context.Background(), http.MethodGet, "/startups/", nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGateway_RefreshesAndRetriesOnce(t *testing.T) {
	backend := &refreshingBackend{}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	reg := prometheus.NewRegistry()
	metrics := gateway.NewMetrics(reg)
	gw := newGateway(t, srv, gateway.Config{Metrics: metrics})
	creds := &fakeCredentials{access: "stale", refresh: "R1"}
	gw.SetCredentials(creds)

	resp, err := gw.Do(context.Background(), http.MethodGet, "/protected/", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(resp.Body))

	assert.Equal(t, int32(2), backend.protectedHits.Load())
	assert.Equal(t, int32(1), backend.refreshHits.Load())
	assert.Equal(t, []string{"Bearer stale", "Bearer fresh"}, backend.authHeaders)
	assert.Equal(t, []string{"fresh"}, creds.replaced)
	assert.Equal(t, "fresh", creds.AccessToken())
	assert.Equal(t, 0, creds.expired)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RefreshCounter("success")))
}

func TestGateway_SecondUnauthorizedIsPropagated(t *testing.T) {
	backend := &refreshingBackend{alwaysReject: true}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	gw := newGateway(t, srv, gateway.Config{})
	creds := &fakeCredentials{access: "stale", refresh: "R1"}
	gw.SetCredentials(creds)

	_, err := gw.Do(context.Background(), http.MethodGet, "/protected/", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))

	assert.Equal(t, int32(2), backend.protectedHits.Load(), "retried more than once")
	assert.Equal(t, int32(1), backend.refreshHits.Load())
	assert.Equal(t, 0, creds.expired, "a successful refresh must not clear the session")
}

func TestGateway_RefreshFailureExpiresSession(t *testing.T) {
	backend := &refreshingBackend{refreshStatus: http.StatusUnauthorized}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	var expiredHook atomic.Int32
	gw := newGateway(t, srv, gateway.Config{OnSessionExpired: func() { expiredHook.Add(1) }})
	creds := &fakeCredentials{access: "stale", refresh: "R1"}
	gw.SetCredentials(creds)

	resp, err := gw.Do(context.Background(), http.MethodGet, "/protected/", nil)
	require.Error(t, err)
	assert.Nil(t, resp)

	var gwErr *gateway.Error
	require.True(t, errors.As(err, &gwErr))
	assert.Equal(t, gateway.RefreshPath, gwErr.Path, "the refresh failure is what the caller observes")
	assert.Equal(t, "Token is invalid or expired", gwErr.UserMessage())

	assert.Equal(t, 1, creds.expired)
	assert.Empty(t, creds.AccessToken())
	assert.Empty(t, creds.RefreshToken())
	assert.Equal(t, int32(1), expiredHook.Load())
	assert.Equal(t, int32(1), backend.protectedHits.Load())
}

func TestGateway_NoRefreshTokenPropagatesOriginal(t *testing.T) {
	backend := &refreshingBackend{}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	gw := newGateway(t, srv, gateway.Config{})
	creds := &fakeCredentials{access: "stale"}
	gw.SetCredentials(creds)

	_, err := gw.Do(context.Background(), http.MethodGet, "/protected/", nil)
	require.Error(t, err)

	var gwErr *gateway.Error
	require.True(t, errors.As(err, &gwErr))
	assert.Equal(t, "/protected/", gwErr.Path)
	assert.Equal(t, http.StatusUnauthorized, gwErr.StatusCode)
	assert.Equal(t, int32(0), backend.refreshHits.Load())
	assert.Equal(t, 0, creds.expired)
}

func TestGateway_ValidationErrorFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"username":["A user with that username already exists."],"non_field_errors":["Passwords don't match"]}`))
	}))
	defer srv.Close()

	gw := newGateway(t, srv, gateway.Config{})
	err := gw.SendJSON(context.Background(), http.MethodPost, "/auth/register/", map[string]string{"username": "alice"}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	var gwErr *gateway.Error
	require.True(t, errors.As(err, &gwErr))
	assert.Equal(t, "A user with that username already exists.", gwErr.FieldError("username"))
	assert.Equal(t, "Passwords don't match; username: A user with that username already exists.", gwErr.UserMessage())
}

func TestGateway_ServerErrorsAreNotRetried(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"internal error", http.StatusInternalServerError},
		{"not found", http.StatusNotFound},
		{"forbidden", http.StatusForbidden},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var hits atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				hits.Add(1)
				w.WriteHeader(tc.status)
			}))
			defer srv.Close()

			gw := newGateway(t, srv, gateway.Config{})
			gw.SetCredentials(&fakeCredentials{access: "A1", refresh: "R1"})

			_, err := gw.Do(context.Background(), http.MethodDelete, "/watchlist/9/", nil)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrServer))
			assert.Equal(t, int32(1), hits.Load())
		})
	}
}

func TestGateway_TimeoutIsNetworkFailure(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	gw := newGateway(t, srv, gateway.Config{Timeout: 50 * time.Millisecond})
	_, err := gw.Do(context.Background(), http.MethodGet, "/startups/", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNetwork))
}

func TestGateway_ConnectionRefusedIsNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	gw := newGateway(t, srv, gateway.Config{})
	_, err := gw.Do(context.Background(), http.MethodGet, "/startups/", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNetwork))
}

func TestGateway_QueryAndTrailingSlash(t *testing.T) {
	var gotURL string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURL = r.URL.String()
		w.Write([]byte(`{"count":0,"results":[]}`))
	}))
	defer srv.Close()

	gw := newGateway(t, srv, gateway.Config{})
	var page domain.Page[domain.StartupSummary]
	err := gw.GetJSON(context.Background(), "/startups/", domain.FilterState{Industry: "fintech", Page: 2}.Values(), &page)
	require.NoError(t, err)
	assert.Equal(t, "/api/startups/?industry=fintech&page=2", gotURL)
}

func TestNew_RejectsInvalidBaseURL(t *testing.T) {
	_, err := gateway.New(gateway.Config{})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	_, err = gateway.New(gateway.Config{BaseURL: "ftp://example.com"})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}
