package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/msomdec/startup-scout/internal/app"
	"github.com/msomdec/startup-scout/internal/handler"
	"github.com/spf13/cobra"
)

func (c *command) serveCommand() *cobra.Command {
	var (
		demo bool
		addr string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				c.cfg.ListenAddr = addr
			}
			return c.serve(cmd.Context(), demo)
		},
	}
	cmd.Flags().BoolVar(&demo, "demo", false, "serve against an in-process demo backend")
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides SCOUT_LISTEN_ADDR)")
	return cmd
}

// serve runs the dashboard until ctx is cancelled, then shuts down
// gracefully.
func (c *command) serve(ctx context.Context, demo bool) error {
	level, _ := c.cfg.SlogLevel()
	logOpts := &slog.HandlerOptions{Level: level}
	logger := slog.New(slog.NewMultiHandler(
		slog.NewTextHandler(c.stdout, logOpts),
		slog.NewJSONHandler(c.stderr, logOpts),
	))
	slog.SetDefault(logger)

	cfg := *c.cfg
	if demo {
		backend, err := app.StartDemoBackend(&cfg, logger)
		if err != nil {
			return fmt.Errorf("start demo backend: %w", err)
		}
		defer backend.Shutdown(context.Background())
		cfg.APIURL = backend.URL
		slog.Info("demo credentials", "username", app.DemoUsername, "password", app.DemoPassword)
	}

	a, err := app.New(ctx, app.Options{Config: &cfg, Logger: logger})
	if err != nil {
		return err
	}
	defer a.Close()

	// Five attempts per minute per client, refilled gradually.
	limiter := handler.NewTokenBucket(5.0/60, 5)
	stopSweeper := make(chan struct{})
	defer close(stopSweeper)
	go limiter.RunSweeper(5*time.Minute, 10*time.Minute, stopSweeper)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, a, handler.Options{
		CookieSecure: cfg.CookieSecure,
		LoginLimiter: limiter,
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler.SecurityHeaders(mux),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", srv.Addr, "api_url", cfg.APIURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	slog.Info("server stopped")
	return nil
}

// Main runs scout with the process arguments and returns the exit code.
func Main(ctx context.Context, args []string) int {
	if err := Execute(ctx, os.Stdin, os.Stdout, os.Stderr, args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}
