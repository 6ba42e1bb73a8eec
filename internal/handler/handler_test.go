package handler_test

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/msomdec/startup-scout/internal/app"
	"github.com/msomdec/startup-scout/internal/config"
	"github.com/msomdec/startup-scout/internal/domain"
	"github.com/msomdec/startup-scout/internal/fakeapi"
	"github.com/msomdec/startup-scout/internal/handler"
)

const (
	testUsername = "alice"
	testPassword = "password123"
)

type testServer struct {
	URL     string
	App     *app.App
	Backend *fakeapi.Server
	client  *http.Client
}

func testStartups() []domain.StartupSummary {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	site := "https://acme.example.com"
	return []domain.StartupSummary{
		{ID: 1, Name: "Acme Robotics", Website: &site, Industry: "Robotics", Location: "Berlin", Stage: domain.StageSeed,
			Description: "Warehouse robots", CreatedAt: domain.Timestamp{Time: base}},
		{ID: 2, Name: "Beta Ledger", Industry: "FinTech", Location: "London", Stage: domain.StageSeriesA,
			Description: "Payments <b>infra</b>", CreatedAt: domain.Timestamp{Time: base.Add(time.Hour)}},
	}
}

func newTestServer(t *testing.T, opts handler.Options) *testServer {
	t.Helper()

	backend := fakeapi.New(fakeapi.Config{Startups: testStartups()})
	if _, err := backend.AddUser(testUsername, "alice@example.com", testPassword); err != nil {
		t.Fatalf("AddUser: %v", err)
	}
	api := httptest.NewServer(backend)
	t.Cleanup(api.Close)

	a, err := app.New(context.Background(), app.Options{Config: &config.Config{
		APIURL:       api.URL + "/api",
		Timeout:      5 * time.Second,
		DatabasePath: filepath.Join(t.TempDir(), "client.db"),
		LogLevel:     "info",
	}})
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	t.Cleanup(func() { a.Close() })

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, a, opts)
	srv := httptest.NewServer(handler.SecurityHeaders(mux))
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("create cookie jar: %v", err)
	}
	return &testServer{
		URL:     srv.URL,
		App:     a,
		Backend: backend,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse // don't follow redirects automatically
			},
		},
	}
}

// do sends a request and returns the status, headers and body.
func (s *testServer) do(t *testing.T, method, path string, datastarRequest bool) (int, http.Header, string) {
	t.Helper()
	req, err := http.NewRequest(method, s.URL+path, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if datastarRequest {
		req.Header.Set("Datastar-Request", "true")
	}
	resp, err := s.client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, resp.Header, string(body)
}

func (s *testServer) login(t *testing.T, username, password string) *http.Response {
	t.Helper()
	resp, err := s.client.PostForm(s.URL+"/login", url.Values{
		"username": {username},
		"password": {password},
	})
	if err != nil {
		t.Fatalf("POST /login: %v", err)
	}
	resp.Body.Close()
	return resp
}

func searchPath(signals string) string {
	return "/startups/search?datastar=" + url.QueryEscape(signals)
}

func mustContain(t *testing.T, body, want string) {
	t.Helper()
	if !strings.Contains(body, want) {
		t.Fatalf("expected body to contain %q, got:\n%s", want, body)
	}
}
