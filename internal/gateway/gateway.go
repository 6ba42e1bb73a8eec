// Package gateway wraps every outgoing backend request: base address,
// default headers, timeout, bearer credentials and the one-shot
// refresh-and-retry protocol for expired access tokens.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/msomdec/startup-scout/internal/domain"
)

const (
	// DefaultTimeout bounds every request attempt.
	DefaultTimeout = 10 * time.Second

	// RefreshPath exchanges a refresh token for a new access token.
	RefreshPath = "/auth/token/refresh/"

	maxLoggedBody = 2048
)

// CredentialProvider supplies the bearer credentials attached to requests
// and receives the outcome of a token refresh.
type CredentialProvider interface {
	AccessToken() string
	RefreshToken() string
	// ReplaceAccessToken overwrites only the access token.
	ReplaceAccessToken(ctx context.Context, token string) error
	// Expire discards the whole session, persisted copy included.
	Expire(ctx context.Context)
}

// Config holds gateway configuration.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	UserAgent  string
	Logger     *slog.Logger
	Metrics    *Metrics
	// OnSessionExpired is called after a failed refresh has cleared the
	// session. Consumers use it to send the user back to the login page.
	OnSessionExpired func()
}

// Gateway issues requests against the backend REST API.
type Gateway struct {
	baseURL   string
	client    *http.Client
	userAgent string
	logger    *slog.Logger
	metrics   *Metrics
	onExpired func()

	mu    sync.RWMutex
	creds CredentialProvider
}

// New creates a Gateway for the API rooted at cfg.BaseURL.
func New(cfg Config) (*Gateway, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: base URL is required", domain.ErrInvalidInput)
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: parse base URL: %v", domain.ErrInvalidInput, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: base URL must be http or https, got %q", domain.ErrInvalidInput, cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "startup-scout"
	}

	return &Gateway{
		baseURL:   strings.TrimSuffix(cfg.BaseURL, "/"),
		client:    client,
		userAgent: userAgent,
		logger:    logger.With("component", "gateway"),
		metrics:   cfg.Metrics,
		onExpired: cfg.OnSessionExpired,
	}, nil
}

// SetCredentials installs the provider consulted for bearer tokens. A nil
// provider makes every request unauthenticated.
func (g *Gateway) SetCredentials(p CredentialProvider) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.creds = p
}

func (g *Gateway) credentials() CredentialProvider {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.creds
}

// Response is a successful (2xx) backend response with its body read.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(v any) error {
	return json.Unmarshal(r.Body, v)
}

type requestOptions struct {
	query  url.Values
	header http.Header
}

// RequestOption customizes a single request.
type RequestOption func(*requestOptions)

// WithQuery appends query parameters to the request URL.
func WithQuery(v url.Values) RequestOption {
	return func(o *requestOptions) { o.query = v }
}

// WithHeader sets an extra request header.
func WithHeader(key, value string) RequestOption {
	return func(o *requestOptions) { o.header.Set(key, value) }
}

// request is one logical request; retried marks that the refresh protocol
// already ran for it.
type request struct {
	method  string
	path    string
	payload []byte
	opts    requestOptions
	retried bool
}

// Do sends a request. body may be nil, a []byte sent verbatim, or any value
// encoded as JSON. Non-2xx responses and transport failures are returned as
// *Error. A 401 is retried at most once, after a successful token refresh.
func (g *Gateway) Do(ctx context.Context, method, path string, body any, opts ...RequestOption) (*Response, error) {
	payload, err := encodeBody(body)
	if err != nil {
		return nil, &Error{Kind: domain.ErrInvalidInput, Method: method, Path: path, Err: err}
	}

	req := &request{
		method:  method,
		path:    path,
		payload: payload,
		opts:    requestOptions{header: http.Header{}},
		retried: path == RefreshPath,
	}
	for _, opt := range opts {
		opt(&req.opts)
	}

	var token string
	if creds := g.credentials(); creds != nil {
		token = creds.AccessToken()
	}

	resp, err := g.send(ctx, req, token)
	if err == nil {
		return resp, nil
	}

	var gwErr *Error
	if !errors.As(err, &gwErr) || gwErr.StatusCode != http.StatusUnauthorized || req.retried {
		return nil, err
	}
	return g.refreshAndRetry(ctx, req, err)
}

func (g *Gateway) refreshAndRetry(ctx context.Context, req *request, original error) (*Response, error) {
	req.retried = true

	creds := g.credentials()
	if creds == nil {
		return nil, original
	}
	refreshToken := creds.RefreshToken()
	if refreshToken == "" {
		return nil, original
	}

	access, err := g.refresh(ctx, refreshToken)
	if err != nil {
		g.metrics.observeRefresh("failure")
		g.logger.Warn("token refresh failed, clearing session", "error", err)
		creds.Expire(ctx)
		if g.onExpired != nil {
			g.onExpired()
		}
		return nil, err
	}
	g.metrics.observeRefresh("success")

	if err := creds.ReplaceAccessToken(ctx, access); err != nil {
		g.logger.Error("store refreshed access token", "error", err)
	}

	g.logger.Debug("retrying request with refreshed token", "method", req.method, "path", req.path)
	return g.send(ctx, req, access)
}

// refresh calls the refresh endpoint directly so that a failing refresh can
// never trigger the retry protocol itself.
func (g *Gateway) refresh(ctx context.Context, refreshToken string) (string, error) {
	payload, err := json.Marshal(map[string]string{"refresh": refreshToken})
	if err != nil {
		return "", fmt.Errorf("marshal refresh request: %w", err)
	}

	resp, err := g.send(ctx, &request{
		method:  http.MethodPost,
		path:    RefreshPath,
		payload: payload,
		opts:    requestOptions{header: http.Header{}},
		retried: true,
	}, "")
	if err != nil {
		return "", err
	}

	var out struct {
		Access string `json:"access"`
	}
	if err := resp.Decode(&out); err != nil || out.Access == "" {
		return "", &Error{
			Kind:       domain.ErrServer,
			Method:     http.MethodPost,
			Path:       RefreshPath,
			StatusCode: resp.StatusCode,
			Body:       resp.Body,
			Detail:     "refresh response did not contain an access token",
			Err:        err,
		}
	}
	return out.Access, nil
}

func (g *Gateway) send(ctx context.Context, r *request, token string) (*Response, error) {
	var bodyReader io.Reader
	if r.payload != nil {
		bodyReader = bytes.NewReader(r.payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, r.method, g.url(r.path, r.opts.query), bodyReader)
	if err != nil {
		return nil, &Error{Kind: domain.ErrInvalidInput, Method: r.method, Path: r.path, Err: fmt.Errorf("create request: %w", err)}
	}

	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", g.userAgent)
	httpReq.Header.Set("X-Request-ID", uuid.NewString())
	if r.payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for key, values := range r.opts.header {
		for _, v := range values {
			httpReq.Header.Set(key, v)
		}
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := g.client.Do(httpReq)
	if err != nil {
		g.metrics.observeRequest(r.method, 0, time.Since(start))
		g.logger.Error("api request failed",
			"method", r.method,
			"path", r.path,
			"request_id", httpReq.Header.Get("X-Request-ID"),
			"error", err,
		)
		return nil, &Error{Kind: domain.ErrNetwork, Method: r.method, Path: r.path, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	g.metrics.observeRequest(r.method, resp.StatusCode, time.Since(start))
	if err != nil {
		g.logger.Error("read api response", "method", r.method, "path", r.path, "error", err)
		return nil, &Error{Kind: domain.ErrNetwork, Method: r.method, Path: r.path, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, nil
	}

	apiErr := newStatusError(r.method, r.path, resp.StatusCode, body)
	level := slog.LevelError
	if resp.StatusCode < 500 {
		level = slog.LevelWarn
	}
	g.logger.Log(ctx, level, "api error",
		"method", r.method,
		"path", r.path,
		"status", resp.StatusCode,
		"request_id", httpReq.Header.Get("X-Request-ID"),
		"body", truncate(body, maxLoggedBody),
	)
	return nil, apiErr
}

func (g *Gateway) url(path string, query url.Values) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := g.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// GetJSON issues a GET and decodes the JSON response into out.
func (g *Gateway) GetJSON(ctx context.Context, path string, query url.Values, out any) error {
	resp, err := g.Do(ctx, http.MethodGet, path, nil, WithQuery(query))
	if err != nil {
		return err
	}
	return decodeInto(resp, http.MethodGet, path, out)
}

// SendJSON issues a request with a JSON body and decodes the response into
// out when out is non-nil.
func (g *Gateway) SendJSON(ctx context.Context, method, path string, body, out any) error {
	resp, err := g.Do(ctx, method, path, body)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return decodeInto(resp, method, path, out)
}

// Raw issues a GET and returns the undecoded response body.
func (g *Gateway) Raw(ctx context.Context, path string, accept string) ([]byte, error) {
	resp, err := g.Do(ctx, http.MethodGet, path, nil, WithHeader("Accept", accept))
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func decodeInto(resp *Response, method, path string, out any) error {
	if err := resp.Decode(out); err != nil {
		return &Error{
			Kind:       domain.ErrServer,
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       resp.Body,
			Detail:     "malformed response body",
			Err:        err,
		}
	}
	return nil
}

func encodeBody(body any) ([]byte, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return b, nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		return data, nil
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
