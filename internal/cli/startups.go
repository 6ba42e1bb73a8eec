package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/msomdec/startup-scout/internal/app"
	"github.com/msomdec/startup-scout/internal/domain"
	"github.com/msomdec/startup-scout/internal/view"
	"github.com/spf13/cobra"
)

func (c *command) startupsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "startups",
		Aliases: []string{"startup"},
		Short:   "Search the startup catalog",
	}
	cmd.AddCommand(c.startupsSearchCommand(), c.startupsShowCommand(), c.startupsFacetsCommand())
	return cmd
}

func (c *command) startupsSearchCommand() *cobra.Command {
	var f domain.FilterState
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "List startups matching the filters",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				f.Query = args[0]
			}
			return c.withApp(func(ctx context.Context, a *app.App) error {
				patch := &domain.FilterPatch{
					Query:    &f.Query,
					Industry: &f.Industry,
					Location: &f.Location,
					Stage:    &f.Stage,
					Page:     &f.Page,
					Ordering: &f.Ordering,
				}
				a.Catalog.FetchStartups(ctx, patch)
				state := a.Catalog.State()
				if state.LastError != nil {
					return storeError(state.LastError)
				}

				out := struct {
					Results    []domain.StartupSummary `json:"results"`
					Pagination domain.Pagination       `json:"pagination"`
				}{state.Startups, state.Pagination}
				return c.render(out, func(w io.Writer) error {
					fmt.Fprintln(w, "ID\tNAME\tINDUSTRY\tLOCATION\tSTAGE\tWATCHED")
					for _, st := range state.Startups {
						watched := ""
						if a.Watchlist.IsInWatchlist(st.ID) {
							watched = "yes"
						}
						fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
							st.ID, st.Name, st.Industry, st.Location, view.StageLabel(string(st.Stage)), watched)
					}
					p := state.Pagination
					fmt.Fprintf(w, "\nPage %d of %d (%d startups)\n", p.CurrentPage, max(p.TotalPages(), 1), p.TotalCount)
					return nil
				})
			})(cmd, args)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&f.Industry, "industry", "", "exact industry")
	flags.StringVar(&f.Location, "location", "", "location substring")
	flags.StringVar(&f.Stage, "stage", "", "funding stage, e.g. seed or series_a")
	flags.StringVar(&f.Ordering, "ordering", domain.DefaultOrdering, "sort field, prefix with - for descending")
	flags.IntVar(&f.Page, "page", 1, "result page")
	return cmd
}

func (c *command) startupsShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <startup-id>",
		Short: "Show one startup with your notes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return c.withApp(func(ctx context.Context, a *app.App) error {
				st, err := a.API.GetStartup(ctx, id)
				if err != nil {
					return storeError(err)
				}
				var notes []domain.Note
				if a.Session.IsAuthenticated() {
					a.Notes.Load(ctx, id)
					notes = a.Notes.State().Notes
				}

				out := struct {
					*domain.StartupSummary
					Watched bool          `json:"watched"`
					Notes   []domain.Note `json:"notes,omitempty"`
				}{st, a.Watchlist.IsInWatchlist(id), notes}
				return c.render(out, func(w io.Writer) error {
					fmt.Fprintf(w, "Name:\t%s\n", st.Name)
					fmt.Fprintf(w, "Industry:\t%s\n", st.Industry)
					fmt.Fprintf(w, "Location:\t%s\n", st.Location)
					fmt.Fprintf(w, "Stage:\t%s\n", view.StageLabel(string(st.Stage)))
					if st.Website != nil {
						fmt.Fprintf(w, "Website:\t%s\n", *st.Website)
					}
					if len(st.TagList) > 0 {
						fmt.Fprintf(w, "Tags:\t%s\n", strings.Join(st.TagList, ", "))
					}
					fmt.Fprintf(w, "Watched:\t%t\n", out.Watched)
					fmt.Fprintf(w, "\n%s\n", st.Description)
					if len(notes) > 0 {
						fmt.Fprintln(w, "\nNotes:")
						writeNotes(w, notes)
					}
					return nil
				})
			})(cmd, args)
		},
	}
}

func (c *command) startupsFacetsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "facets",
		Short: "List the industries, locations and stages to filter by",
		Args:  cobra.NoArgs,
		RunE: c.withApp(func(ctx context.Context, a *app.App) error {
			a.Catalog.FetchFilterOptions(ctx)
			state := a.Catalog.State()
			if state.LastError != nil {
				return storeError(state.LastError)
			}
			opts := state.FilterOptions
			return c.render(opts, func(w io.Writer) error {
				fmt.Fprintf(w, "Industries:\t%s\n", strings.Join(opts.Industries, ", "))
				fmt.Fprintf(w, "Locations:\t%s\n", strings.Join(opts.Locations, ", "))
				fmt.Fprintf(w, "Stages:\t%s\n", strings.Join(opts.Stages, ", "))
				return nil
			})
		}),
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
