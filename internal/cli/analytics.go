package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/msomdec/startup-scout/internal/app"
	"github.com/spf13/cobra"
)

func (c *command) analyticsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analytics",
		Short: "Watchlist statistics and export",
	}

	var file string
	export := &cobra.Command{
		Use:   "export",
		Short: "Download the watchlist as CSV",
		Args:  cobra.NoArgs,
		RunE: c.withApp(func(ctx context.Context, a *app.App) error {
			if err := requireSession(a); err != nil {
				return err
			}
			if file == "" || file == "-" {
				return storeError(a.Analytics.Export(ctx, c.stdout))
			}
			f, err := os.Create(file)
			if err != nil {
				return fmt.Errorf("create export file: %w", err)
			}
			if err := a.Analytics.Export(ctx, f); err != nil {
				f.Close()
				os.Remove(file)
				return storeError(err)
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("write export file: %w", err)
			}
			fmt.Fprintf(c.stderr, "Wrote %s\n", file)
			return nil
		}),
	}
	export.Flags().StringVarP(&file, "file", "f", "", "write to this file instead of stdout")

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show watchlist and catalog statistics",
		Args:  cobra.NoArgs,
		RunE: c.withApp(func(ctx context.Context, a *app.App) error {
			if err := requireSession(a); err != nil {
				return err
			}
			a.Analytics.Fetch(ctx)
			state := a.Analytics.State()
			if state.LastError != nil {
				return storeError(state.LastError)
			}
			d := state.Dashboard
			return c.render(d, func(w io.Writer) error {
				fmt.Fprintf(w, "Watchlist:\t%d\n", d.UserStats.WatchlistCount)
				fmt.Fprintf(w, "Notes:\t%d\n", d.UserStats.NotesCount)
				fmt.Fprintf(w, "Startups available:\t%d\n", d.UserStats.TotalStartupsAvailable)
				if len(d.UserAnalytics.Industries) > 0 {
					fmt.Fprintln(w, "\nYour industries:")
					for _, ic := range d.UserAnalytics.Industries {
						fmt.Fprintf(w, "  %s\t%d\n", ic.Industry, ic.Count)
					}
				}
				if len(d.GlobalAnalytics.Industries) > 0 {
					fmt.Fprintln(w, "\nTop industries:")
					for _, ic := range d.GlobalAnalytics.Industries {
						fmt.Fprintf(w, "  %s\t%d\n", ic.Industry, ic.Count)
					}
				}
				return nil
			})
		}),
	}, export)
	return cmd
}
