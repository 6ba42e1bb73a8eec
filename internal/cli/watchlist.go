package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/msomdec/startup-scout/internal/app"
	"github.com/msomdec/startup-scout/internal/domain"
	"github.com/msomdec/startup-scout/internal/view"
	"github.com/spf13/cobra"
)

func (c *command) watchlistCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watchlist",
		Short: "Manage your watchlist",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List watched startups",
			Args:  cobra.NoArgs,
			RunE: c.withApp(func(ctx context.Context, a *app.App) error {
				if err := requireSession(a); err != nil {
					return err
				}
				a.Watchlist.FetchWatchlist(ctx)
				state := a.Watchlist.State()
				if state.LastError != nil {
					return storeError(state.LastError)
				}
				return c.render(state.Entries, func(w io.Writer) error {
					writeWatchlist(w, state.Entries)
					return nil
				})
			}),
		},
		c.watchlistEditCommand("add", "Watch a startup", "Added startup %d to your watchlist.\n",
			func(ctx context.Context, a *app.App, id int64) { a.Watchlist.AddToWatchlist(ctx, id) }),
		c.watchlistEditCommand("remove", "Stop watching a startup", "Removed startup %d from your watchlist.\n",
			func(ctx context.Context, a *app.App, id int64) { a.Watchlist.RemoveFromWatchlist(ctx, id) }),
	)
	return cmd
}

// watchlistEditCommand builds add/remove, which differ only in the store
// action and the confirmation text.
func (c *command) watchlistEditCommand(use, short, doneFormat string, action func(context.Context, *app.App, int64)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <startup-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return c.withApp(func(ctx context.Context, a *app.App) error {
				if err := requireSession(a); err != nil {
					return err
				}
				action(ctx, a, id)
				if err := a.Watchlist.State().LastError; err != nil {
					return storeError(err)
				}
				fmt.Fprintf(c.stdout, doneFormat, id)
				return nil
			})(cmd, args)
		},
	}
}

func writeWatchlist(w io.Writer, entries []domain.WatchlistEntry) {
	fmt.Fprintln(w, "STARTUP\tNAME\tINDUSTRY\tSTAGE\tADDED")
	for _, e := range entries {
		industry, stage := "", ""
		if d := e.StartupDetails; d != nil {
			industry, stage = d.Industry, view.StageLabel(string(d.Stage))
		}
		added := ""
		if !e.CreatedAt.IsZero() {
			added = e.CreatedAt.Format("2006-01-02")
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", e.StartupID, e.StartupName, industry, stage, added)
	}
}
