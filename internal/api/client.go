// Package api exposes one typed method per backend REST endpoint.
package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/msomdec/startup-scout/internal/domain"
	"github.com/msomdec/startup-scout/internal/gateway"
)

// Client calls the backend through a Gateway.
type Client struct {
	gw *gateway.Gateway
}

// NewClient creates a new Client.
func NewClient(gw *gateway.Gateway) *Client {
	return &Client{gw: gw}
}

// Login exchanges a username and password for a user and token pair.
func (c *Client) Login(ctx context.Context, req domain.LoginRequest) (*domain.AuthResponse, error) {
	var out domain.AuthResponse
	if err := c.gw.SendJSON(ctx, http.MethodPost, "/auth/login/", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates an account and returns it already authenticated.
func (c *Client) Register(ctx context.Context, req domain.RegisterRequest) (*domain.AuthResponse, error) {
	var out domain.AuthResponse
	if err := c.gw.SendJSON(ctx, http.MethodPost, "/auth/register/", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RefreshToken exchanges a refresh token for a new access token.
func (c *Client) RefreshToken(ctx context.Context, refresh string) (string, error) {
	var out struct {
		Access string `json:"access"`
	}
	if err := c.gw.SendJSON(ctx, http.MethodPost, gateway.RefreshPath, map[string]string{"refresh": refresh}, &out); err != nil {
		return "", err
	}
	if out.Access == "" {
		return "", fmt.Errorf("%w: refresh response did not contain an access token", domain.ErrServer)
	}
	return out.Access, nil
}

// Profile returns the authenticated user.
func (c *Client) Profile(ctx context.Context) (*domain.User, error) {
	var out domain.User
	if err := c.gw.GetJSON(ctx, "/auth/profile/", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListStartups returns one page of startups matching filters.
func (c *Client) ListStartups(ctx context.Context, filters domain.FilterState) (*domain.Page[domain.StartupSummary], error) {
	var out domain.Page[domain.StartupSummary]
	if err := c.gw.GetJSON(ctx, "/startups/", filters.Values(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetStartup returns a single startup.
func (c *Client) GetStartup(ctx context.Context, id int64) (*domain.StartupSummary, error) {
	var out domain.StartupSummary
	if err := c.gw.GetJSON(ctx, fmt.Sprintf("/startups/%d/", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListNotes returns the caller's notes on a startup.
func (c *Client) ListNotes(ctx context.Context, startupID int64) ([]domain.Note, error) {
	var out domain.Page[domain.Note]
	query := url.Values{"startup": {strconv.FormatInt(startupID, 10)}}
	if err := c.gw.GetJSON(ctx, "/notes/", query, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

// CreateNote attaches a note to a startup.
func (c *Client) CreateNote(ctx context.Context, startupID int64, content string) (*domain.Note, error) {
	body := map[string]any{"startup": startupID, "content": content}
	var out domain.Note
	if err := c.gw.SendJSON(ctx, http.MethodPost, "/notes/", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateNote replaces a note's content.
func (c *Client) UpdateNote(ctx context.Context, id int64, content string) (*domain.Note, error) {
	var out domain.Note
	if err := c.gw.SendJSON(ctx, http.MethodPatch, fmt.Sprintf("/notes/%d/", id), map[string]string{"content": content}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteNote removes a note.
func (c *Client) DeleteNote(ctx context.Context, id int64) error {
	_, err := c.gw.Do(ctx, http.MethodDelete, fmt.Sprintf("/notes/%d/", id), nil)
	return err
}

// ListWatchlist returns the caller's watchlist membership records.
func (c *Client) ListWatchlist(ctx context.Context) ([]domain.WatchlistEntry, error) {
	var out domain.Page[domain.WatchlistEntry]
	if err := c.gw.GetJSON(ctx, "/watchlist/", nil, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

// AddToWatchlist creates a watchlist record for a startup.
func (c *Client) AddToWatchlist(ctx context.Context, startupID int64) (*domain.WatchlistEntry, error) {
	var out domain.WatchlistEntry
	if err := c.gw.SendJSON(ctx, http.MethodPost, "/watchlist/", map[string]int64{"startup": startupID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RemoveFromWatchlist deletes a watchlist record by its own id, not the
// startup id.
func (c *Client) RemoveFromWatchlist(ctx context.Context, entryID int64) error {
	_, err := c.gw.Do(ctx, http.MethodDelete, fmt.Sprintf("/watchlist/%d/", entryID), nil)
	return err
}

// Dashboard returns the analytics aggregates for the caller.
func (c *Client) Dashboard(ctx context.Context) (*domain.Analytics, error) {
	var out domain.Analytics
	if err := c.gw.GetJSON(ctx, "/analytics/dashboard/", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ExportWatchlist returns the caller's watchlist as CSV.
func (c *Client) ExportWatchlist(ctx context.Context) ([]byte, error) {
	return c.gw.Raw(ctx, "/analytics/export/watchlist/", "text/csv")
}
