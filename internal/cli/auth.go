package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/msomdec/startup-scout/internal/app"
	"github.com/msomdec/startup-scout/internal/domain"
	"github.com/spf13/cobra"
)

func (c *command) loginCommand() *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the session",
		Args:  cobra.NoArgs,
		RunE: c.withApp(func(ctx context.Context, a *app.App) error {
			if password == "" {
				p, err := c.readSecret("Password: ")
				if err != nil {
					return err
				}
				password = p
			}
			if err := a.Session.Login(ctx, username, password); err != nil {
				return storeError(err)
			}
			a.Watchlist.FetchWatchlist(ctx)
			fmt.Fprintf(c.stdout, "Signed in as %s.\n", a.Session.User().Username)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "account username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password (read from stdin when omitted)")
	cmd.MarkFlagRequired("username")
	return cmd
}

func (c *command) registerCommand() *cobra.Command {
	var req domain.RegisterRequest
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: c.withApp(func(ctx context.Context, a *app.App) error {
			if req.Password == "" {
				p, err := c.readSecret("Password: ")
				if err != nil {
					return err
				}
				req.Password = p
			}
			if req.PasswordConfirm == "" {
				req.PasswordConfirm = req.Password
			}
			if err := a.Session.Register(ctx, req); err != nil {
				return storeError(err)
			}
			fmt.Fprintf(c.stdout, "Welcome, %s.\n", a.Session.User().DisplayName())
			return nil
		}),
	}
	flags := cmd.Flags()
	flags.StringVarP(&req.Username, "username", "u", "", "account username")
	flags.StringVar(&req.Email, "email", "", "email address")
	flags.StringVarP(&req.Password, "password", "p", "", "password (read from stdin when omitted)")
	flags.StringVar(&req.PasswordConfirm, "password-confirm", "", "password confirmation (defaults to --password)")
	flags.StringVar(&req.FirstName, "first-name", "", "first name")
	flags.StringVar(&req.LastName, "last-name", "", "last name")
	return cmd
}

func (c *command) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the session and the cached watchlist",
		Args:  cobra.NoArgs,
		RunE: c.withApp(func(ctx context.Context, a *app.App) error {
			a.Logout(ctx)
			fmt.Fprintln(c.stdout, "Signed out.")
			return nil
		}),
	}
}

func (c *command) whoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: c.withApp(func(ctx context.Context, a *app.App) error {
			if err := requireSession(a); err != nil {
				return err
			}
			if err := a.Session.LoadProfile(ctx); err != nil {
				return storeError(err)
			}
			user := a.Session.User()
			return c.render(user, func(w io.Writer) error {
				fmt.Fprintf(w, "Username:\t%s\n", user.Username)
				fmt.Fprintf(w, "Name:\t%s\n", user.DisplayName())
				fmt.Fprintf(w, "Email:\t%s\n", user.Email)
				if !user.DateJoined.IsZero() {
					fmt.Fprintf(w, "Joined:\t%s\n", user.DateJoined.Format("2 Jan 2006"))
				}
				return nil
			})
		}),
	}
}

// readSecret prompts on stderr and reads one line from stdin.
func (c *command) readSecret(prompt string) (string, error) {
	fmt.Fprint(c.stderr, prompt)
	line, err := bufio.NewReader(c.stdin).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
