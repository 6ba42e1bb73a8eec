package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/msomdec/startup-scout/internal/cli"
	"github.com/msomdec/startup-scout/internal/domain"
	"github.com/msomdec/startup-scout/internal/fakeapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	t       *testing.T
	backend *fakeapi.Server
	envFile string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	backend := fakeapi.New(fakeapi.Config{})
	_, err := backend.AddUser("alice", "alice@example.com", "password123")
	require.NoError(t, err)
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	t.Setenv("SCOUT_API_URL", srv.URL+"/api")
	t.Setenv("SCOUT_DATABASE_PATH", filepath.Join(dir, "client.db"))
	t.Setenv("SCOUT_LOG_LEVEL", "error")
	return &harness{t: t, backend: backend, envFile: filepath.Join(dir, "missing.env")}
}

// run executes scout with args and returns stdout.
func (h *harness) run(stdin string, args ...string) (string, error) {
	h.t.Helper()
	var stdout, stderr bytes.Buffer
	args = append([]string{"--env-file", h.envFile}, args...)
	err := cli.Execute(context.Background(), strings.NewReader(stdin), &stdout, &stderr, args)
	return stdout.String(), err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	out, err := h.run("", args...)
	require.NoError(h.t, err, "scout %s", strings.Join(args, " "))
	return out
}

func TestCLI_SessionWatchlistNotesAnalytics(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun("login", "-u", "alice", "-p", "password123")
	assert.Contains(t, out, "Signed in as alice.")

	out = h.mustRun("whoami", "-o", "json")
	var user domain.User
	require.NoError(t, json.Unmarshal([]byte(out), &user))
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "alice@example.com", user.Email)

	out = h.mustRun("watchlist", "add", "1")
	assert.Contains(t, out, "Added startup 1")

	out = h.mustRun("watchlist", "list", "-o", "yaml")
	assert.Contains(t, out, "startup: 1")
	assert.NotContains(t, out, "{", "yaml output should use block style")

	out = h.mustRun("startups", "search", "--page", "1", "--ordering", "created_at")
	assert.Contains(t, out, "WATCHED")
	assert.Contains(t, out, "yes")
	assert.Contains(t, out, "Page 1 of 3 (50 startups)")

	out = h.mustRun("notes", "add", "1", "strong", "founding", "team")
	assert.Contains(t, out, "Added note")

	out = h.mustRun("notes", "list", "1")
	assert.Contains(t, out, "strong founding team")

	out = h.mustRun("startups", "show", "1", "-o", "json")
	var shown struct {
		ID      int64         `json:"id"`
		Watched bool          `json:"watched"`
		Notes   []domain.Note `json:"notes"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &shown))
	assert.Equal(t, int64(1), shown.ID)
	assert.True(t, shown.Watched)
	require.Len(t, shown.Notes, 1)

	out = h.mustRun("analytics", "show")
	assert.Contains(t, out, "Watchlist:")
	assert.Contains(t, out, "1")

	exportPath := filepath.Join(t.TempDir(), "watchlist.csv")
	h.mustRun("analytics", "export", "-f", exportPath)
	data, err := os.ReadFile(exportPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Startup Name")

	out = h.mustRun("watchlist", "remove", "1")
	assert.Contains(t, out, "Removed startup 1")

	h.mustRun("logout")
	_, err = h.run("", "whoami")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not signed in")
}

func TestCLI_LoginFailureShowsBackendMessage(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("", "login", "-u", "alice", "-p", "nope")
	require.Error(t, err)
	assert.Equal(t, "No active account found with the given credentials", err.Error())
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestCLI_LoginReadsPasswordFromStdin(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("password123\n", "login", "-u", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as alice.")
}

func TestCLI_RegisterValidatesLocally(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("", "register", "-u", "bob", "--email", "bob@example.com",
		"-p", "password123", "--password-confirm", "different")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	assert.Equal(t, 0, h.backend.TotalCalls())

	out := h.mustRun("register", "-u", "bob", "--email", "bob@example.com", "-p", "password123", "--first-name", "Bob")
	assert.Contains(t, out, "Welcome, Bob.")
}

func TestCLI_AnonymousCommandsFailWithoutNetwork(t *testing.T) {
	h := newHarness(t)

	for _, args := range [][]string{
		{"watchlist", "list"},
		{"watchlist", "add", "1"},
		{"notes", "list", "1"},
		{"analytics", "show"},
	} {
		_, err := h.run("", args...)
		require.Error(t, err, strings.Join(args, " "))
		assert.Contains(t, err.Error(), "not signed in")
	}
	assert.Equal(t, 0, h.backend.TotalCalls())
}

func TestCLI_FacetsAndFilters(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun("startups", "facets", "-o", "json")
	var opts domain.FilterOptions
	require.NoError(t, json.Unmarshal([]byte(out), &opts))
	require.NotEmpty(t, opts.Industries)
	assert.Len(t, opts.Stages, len(domain.Stages()))

	industry := opts.Industries[0]
	out = h.mustRun("startups", "search", "--industry", industry, "-o", "json")
	var page struct {
		Results []domain.StartupSummary `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &page))
	require.NotEmpty(t, page.Results)
	for _, st := range page.Results {
		assert.Equal(t, industry, st.Industry)
	}
}

func TestCLI_InvalidArguments(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("", "whoami", "-o", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")

	_, err = h.run("", "watchlist", "add", "abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid id")
}
