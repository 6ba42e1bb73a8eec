// Package cli implements the scout command.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/msomdec/startup-scout/internal/app"
	"github.com/msomdec/startup-scout/internal/config"
	"github.com/msomdec/startup-scout/internal/store"
	"github.com/spf13/cobra"
)

// errNotSignedIn is returned by commands that need a session.
var errNotSignedIn = errors.New("not signed in; run `scout login` first")

// command carries the state shared by every subcommand.
type command struct {
	stdin          io.Reader
	stdout, stderr io.Writer

	envFile string
	output  string

	cfg    *config.Config
	logger *slog.Logger
}

// NewRootCommand builds the scout command tree writing to stdout and
// stderr.
func NewRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	c := &command{stdin: stdin, stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:           "scout",
		Short:         "Discover startups, keep a watchlist and take notes",
		Long:          "scout is a client for the startup catalog API. It keeps the signed-in session and watchlist in a local SQLite database.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup()
		},
	}
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&c.envFile, "env-file", ".env", "dotenv file read before the environment")
	flags.StringVarP(&c.output, "output", "o", "text", "output format: text, json or yaml")

	root.AddCommand(
		c.serveCommand(),
		c.loginCommand(),
		c.registerCommand(),
		c.logoutCommand(),
		c.whoamiCommand(),
		c.startupsCommand(),
		c.watchlistCommand(),
		c.notesCommand(),
		c.analyticsCommand(),
	)
	return root
}

// Execute runs the command tree with ctx.
func Execute(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer, args []string) error {
	root := NewRootCommand(stdin, stdout, stderr)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func (c *command) setup() error {
	if _, err := parseFormat(c.output); err != nil {
		return err
	}
	cfg, err := config.Load(c.envFile)
	if err != nil {
		return err
	}
	level, err := cfg.SlogLevel()
	if err != nil {
		return err
	}
	c.cfg = cfg
	// Data goes to stdout; command logs stay on stderr.
	c.logger = slog.New(slog.NewTextHandler(c.stderr, &slog.HandlerOptions{Level: level}))
	return nil
}

// withApp opens the client stack for the duration of fn.
func (c *command) withApp(fn func(ctx context.Context, a *app.App) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := app.New(ctx, app.Options{
			Config: c.cfg,
			Logger: c.logger,
			OnSessionExpired: func() {
				fmt.Fprintln(c.stderr, "Session expired. Sign in again with `scout login`.")
			},
		})
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(ctx, a)
	}
}

// requireSession fails fast when no user is signed in.
func requireSession(a *app.App) error {
	if !a.Session.IsAuthenticated() {
		return errNotSignedIn
	}
	return nil
}

// displayError shows a store failure the way the store renders it while
// keeping the cause for errors.Is.
type displayError struct {
	err error
}

func (e *displayError) Error() string { return store.ErrorMessage(e.err) }

func (e *displayError) Unwrap() error { return e.err }

// storeError wraps a store's LastError for return from a command.
func storeError(err error) error {
	if err == nil {
		return nil
	}
	return &displayError{err: err}
}
