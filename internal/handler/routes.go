package handler

import (
	"net/http"

	"github.com/msomdec/startup-scout/internal/app"
)

// Options configures RegisterRoutes.
type Options struct {
	// CookieSecure marks cookies Secure; disable only for plain-HTTP
	// local development.
	CookieSecure bool
	// LoginLimiter throttles POST /login per client IP. Nil disables it.
	LoginLimiter *TokenBucket
}

// RegisterRoutes sets up all dashboard routes on mux.
func RegisterRoutes(mux *http.ServeMux, a *app.App, opts Options) {
	metrics := NewMetrics(a.Registry)
	sessions := NewBrowserSessions(opts.CookieSecure)
	// Unsafe methods from another origin are refused with 403.
	crossOrigin := http.NewCrossOriginProtection()
	health := NewHealth(a.DB, a.Session)
	auth := NewAuthHandler(a, sessions, opts.LoginLimiter, opts.CookieSecure)
	catalog := NewCatalogHandler(a.Session, a.Catalog, a.Filters, a.Watchlist)
	watchlist := NewWatchlistHandler(a.Session, a.Watchlist)
	analytics := NewAnalyticsHandler(a.Session, a.Analytics)

	route := func(pattern string, h http.Handler) {
		mux.Handle(pattern, metrics.Instrument(pattern, crossOrigin.Handler(h)))
	}
	protected := func(pattern string, h http.Handler) {
		route(pattern, RequireSession(a.Session, sessions, h))
	}

	route("GET /healthz", http.HandlerFunc(health.HandleHealthz))
	mux.Handle("GET /metrics", MetricsHandler(a.Registry))

	route("GET /login", http.HandlerFunc(auth.HandleLoginPage))
	route("POST /login", http.HandlerFunc(auth.HandleLogin))
	protected("POST /logout", http.HandlerFunc(auth.HandleLogout))

	protected("GET /{$}", http.HandlerFunc(catalog.HandleCatalog))
	protected("GET /startups/search", http.HandlerFunc(catalog.HandleSearch))
	protected("GET /watchlist", http.HandlerFunc(watchlist.HandleWatchlist))
	protected("POST /watchlist/{startupID}", RequireDatastar(http.HandlerFunc(watchlist.HandleAdd)))
	protected("DELETE /watchlist/{startupID}", RequireDatastar(http.HandlerFunc(watchlist.HandleRemove)))
	protected("GET /analytics", http.HandlerFunc(analytics.HandleAnalytics))
	protected("GET /analytics/export", http.HandlerFunc(analytics.HandleExport))
}
