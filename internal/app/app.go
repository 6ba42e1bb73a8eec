// Package app builds the client stack: persistent storage, the session
// store, the gateway that reads credentials from it, the API client, and
// the remaining stores.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/msomdec/startup-scout/internal/api"
	"github.com/msomdec/startup-scout/internal/config"
	"github.com/msomdec/startup-scout/internal/gateway"
	"github.com/msomdec/startup-scout/internal/repository/sqlite"
	"github.com/msomdec/startup-scout/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Options configures New.
type Options struct {
	Config *config.Config
	Logger *slog.Logger
	// HTTPClient overrides the client used for backend requests.
	HTTPClient *http.Client
	// OnSessionExpired runs after a failed token refresh cleared the
	// session.
	OnSessionExpired func()
}

// App owns every long-lived component. Close releases them.
type App struct {
	DB        *sqlite.DB
	Gateway   *gateway.Gateway
	API       *api.Client
	Session   *store.Session
	Watchlist *store.Watchlist
	Catalog   *store.Catalog
	Filters   *store.FilterController
	Notes     *store.Notes
	Analytics *store.Analytics
	Registry  *prometheus.Registry

	logger    *slog.Logger
	closeOnce sync.Once
	closeErr  error
}

// New opens storage and wires the stores together.
func New(ctx context.Context, opts Options) (*App, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, errors.New("app: config is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var dbOpts []sqlite.Option
	if cfg.StorageSecret != "" {
		sealer, err := sqlite.NewSealer(cfg.StorageSecret)
		if err != nil {
			return nil, fmt.Errorf("storage secret: %w", err)
		}
		dbOpts = append(dbOpts, sqlite.WithSealer(sealer))
	}
	db, err := sqlite.New(cfg.DatabasePath, dbOpts...)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate storage: %w", err)
	}

	a := &App{DB: db, logger: logger}

	a.Registry = prometheus.NewRegistry()
	a.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	a.Gateway, err = gateway.New(gateway.Config{
		BaseURL:          cfg.APIURL,
		Timeout:          cfg.Timeout,
		HTTPClient:       opts.HTTPClient,
		Logger:           logger,
		Metrics:          gateway.NewMetrics(a.Registry),
		OnSessionExpired: a.sessionExpired(opts.OnSessionExpired),
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create gateway: %w", err)
	}
	a.API = api.NewClient(a.Gateway)

	a.Session, err = store.NewSession(ctx, a.API, db.Sessions(), logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	a.Gateway.SetCredentials(a.Session)

	a.Watchlist, err = store.NewWatchlist(ctx, a.API, a.Session, db.Watchlist(), logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	a.Catalog = store.NewCatalog(a.API, logger)
	a.Filters = store.NewFilterController(a.Catalog, store.NewDebouncer(store.DefaultDebounce))
	a.Notes = store.NewNotes(a.API, logger)
	a.Analytics = store.NewAnalytics(a.API, logger)

	logger.Info("client initialized",
		"api_url", cfg.APIURL,
		"database", cfg.DatabasePath,
		"sealed_storage", cfg.StorageSecret != "",
		"authenticated", a.Session.IsAuthenticated(),
	)
	return a, nil
}

// sessionExpired drops user-scoped state once the gateway has cleared the
// session, then runs the caller's hook.
func (a *App) sessionExpired(hook func()) func() {
	return func() {
		a.logger.Warn("session expired, sign in again")
		if a.Watchlist != nil {
			a.Watchlist.Reset(context.Background())
		}
		if hook != nil {
			hook()
		}
	}
}

// Logout ends the session and forgets the user's watchlist.
func (a *App) Logout(ctx context.Context) {
	a.Session.Logout(ctx)
	a.Watchlist.Reset(ctx)
}

// Close releases storage. It is safe to call more than once.
func (a *App) Close() error {
	a.closeOnce.Do(func() {
		a.closeErr = a.DB.Close()
	})
	return a.closeErr
}
