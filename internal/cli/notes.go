package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/msomdec/startup-scout/internal/app"
	"github.com/msomdec/startup-scout/internal/domain"
	"github.com/spf13/cobra"
)

func (c *command) notesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notes",
		Short: "Manage your notes on startups",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list <startup-id>",
			Short: "List your notes on a startup",
			Args:  cobra.ExactArgs(1),
			RunE:  c.notesRun(0, c.listNotes),
		},
		&cobra.Command{
			Use:   "add <startup-id> <text>...",
			Short: "Add a note to a startup",
			Args:  cobra.MinimumNArgs(2),
			RunE:  c.notesRun(1, c.addNote),
		},
		&cobra.Command{
			Use:   "edit <note-id> <text>...",
			Short: "Replace the text of a note",
			Args:  cobra.MinimumNArgs(2),
			RunE:  c.notesRun(1, c.editNote),
		},
		&cobra.Command{
			Use:     "rm <note-id>",
			Aliases: []string{"delete"},
			Short:   "Delete a note",
			Args:    cobra.ExactArgs(1),
			RunE:    c.notesRun(0, c.deleteNote),
		},
	)
	return cmd
}

type notesAction func(ctx context.Context, a *app.App, id int64, text string) error

// notesRun parses the leading id argument, joins the rest as note text
// when textArgs > 0, and runs fn with a signed-in session.
func (c *command) notesRun(textArgs int, fn notesAction) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		text := ""
		if textArgs > 0 {
			text = strings.Join(args[1:], " ")
		}
		return c.withApp(func(ctx context.Context, a *app.App) error {
			if err := requireSession(a); err != nil {
				return err
			}
			if err := fn(ctx, a, id, text); err != nil {
				return err
			}
			return storeError(a.Notes.State().LastError)
		})(cmd, args)
	}
}

func (c *command) listNotes(ctx context.Context, a *app.App, startupID int64, _ string) error {
	a.Notes.Load(ctx, startupID)
	state := a.Notes.State()
	if state.LastError != nil {
		return nil
	}
	return c.render(state.Notes, func(w io.Writer) error {
		writeNotes(w, state.Notes)
		return nil
	})
}

func (c *command) addNote(ctx context.Context, a *app.App, startupID int64, text string) error {
	a.Notes.Load(ctx, startupID)
	if a.Notes.State().LastError != nil {
		return nil
	}
	a.Notes.Create(ctx, text)
	state := a.Notes.State()
	if state.LastError == nil && len(state.Notes) > 0 {
		fmt.Fprintf(c.stdout, "Added note %d.\n", state.Notes[0].ID)
	}
	return nil
}

func (c *command) editNote(ctx context.Context, a *app.App, noteID int64, text string) error {
	a.Notes.Update(ctx, noteID, text)
	if a.Notes.State().LastError == nil {
		fmt.Fprintf(c.stdout, "Updated note %d.\n", noteID)
	}
	return nil
}

func (c *command) deleteNote(ctx context.Context, a *app.App, noteID int64, _ string) error {
	a.Notes.Delete(ctx, noteID)
	if a.Notes.State().LastError == nil {
		fmt.Fprintf(c.stdout, "Deleted note %d.\n", noteID)
	}
	return nil
}

func writeNotes(w io.Writer, notes []domain.Note) {
	if len(notes) == 0 {
		fmt.Fprintln(w, "No notes yet.")
		return
	}
	fmt.Fprintln(w, "ID\tUPDATED\tNOTE")
	for _, n := range notes {
		fmt.Fprintf(w, "%d\t%s\t%s\n", n.ID, n.UpdatedAt.Format("2006-01-02 15:04"), n.Content)
	}
}
