package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/msomdec/startup-scout/internal/config"
	"github.com/msomdec/startup-scout/internal/fakeapi"
)

// Demo account created on the in-process backend.
const (
	DemoUsername = "demo"
	DemoPassword = "scout-demo-password"
)

// DemoBackend is the in-memory REST API served on a loopback port.
type DemoBackend struct {
	URL    string
	Server *fakeapi.Server
	srv    *http.Server
}

// StartDemoBackend serves a seeded fakeapi.Server on 127.0.0.1 and returns
// its base URL.
func StartDemoBackend(cfg *config.Config, logger *slog.Logger) (*DemoBackend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	backend := fakeapi.New(fakeapi.Config{
		Secret:     cfg.DemoJWTSecret,
		BcryptCost: cfg.DemoBcryptCost,
		Logger:     logger,
	})
	if _, err := backend.AddUser(DemoUsername, "demo@example.com", DemoPassword); err != nil {
		return nil, fmt.Errorf("create demo user: %w", err)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}
	d := &DemoBackend{
		URL:    "http://" + ln.Addr().String() + "/api",
		Server: backend,
		srv: &http.Server{
			Handler:           backend,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
	go func() {
		if err := d.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("demo backend error", "error", err)
		}
	}()
	logger.Info("demo backend started", "url", d.URL, "username", DemoUsername)
	return d, nil
}

// Shutdown stops the demo backend.
func (d *DemoBackend) Shutdown(ctx context.Context) error {
	return d.srv.Shutdown(ctx)
}
