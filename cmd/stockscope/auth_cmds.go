package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/jrsteele09/stockscope-client/internal/utils"
	"github.com/jrsteele09/stockscope-client/session"
	"github.com/spf13/cobra"
)

func (a *app) loginCmd() *cobra.Command {
	var username string
	var passwordStdin bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with a username or email",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var password string
			if passwordStdin {
				lines, err := readLines(a.in, 1)
				if err != nil {
					return err
				}
				password = lines[0]
			}
			if username == "" || password == "" {
				if err := loginForm(&username, &password).Run(); err != nil {
					return fmt.Errorf("login form: %w", err)
				}
			}

			user, err := a.manager.Login(cmd.Context(), username, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Logged in as %s\n", user.Username)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "Username or email")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")
	return cmd
}

func loginForm(username, password *string) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Username or email").
				Value(username),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(password),
		).Title("Sign in to StockScope"),
	)
}

func (a *app) registerCmd() *cobra.Command {
	var reg session.Registration
	var passwordStdin bool

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if passwordStdin {
				lines, err := readLines(a.in, 2)
				if err != nil {
					return err
				}
				reg.Password, reg.ConfirmPassword = lines[0], lines[1]
			} else if err := registerForm(&reg).Run(); err != nil {
				return fmt.Errorf("register form: %w", err)
			}

			user, err := a.manager.Register(cmd.Context(), reg)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Welcome, %s. You are now logged in.\n", user.Username)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&reg.Username, "username", "u", "", "Username")
	flags.StringVar(&reg.Email, "email", "", "Email address")
	flags.StringVar(&reg.FirstName, "first-name", "", "First name")
	flags.StringVar(&reg.LastName, "last-name", "", "Last name")
	flags.BoolVar(&passwordStdin, "password-stdin", false, "Read the password and its confirmation from stdin, one per line")
	return cmd
}

func registerForm(reg *session.Registration) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Username").Value(&reg.Username),
			huh.NewInput().Title("Email").Value(&reg.Email),
			huh.NewInput().Title("First name").Description("Optional").Value(&reg.FirstName),
			huh.NewInput().Title("Last name").Description("Optional").Value(&reg.LastName),
		).Title("Create a StockScope account"),
		huh.NewGroup(
			huh.NewInput().Title("Password").EchoMode(huh.EchoModePassword).Value(&reg.Password),
			huh.NewInput().Title("Confirm password").EchoMode(huh.EchoModePassword).Value(&reg.ConfirmPassword),
		),
	)
}

// readLines reads n lines from r. Missing trailing lines repeat the last one
// read, so a single piped password also serves as its confirmation.
func readLines(r io.Reader, n int) ([]string, error) {
	scanner := bufio.NewScanner(r)
	lines := make([]string, 0, n)
	for len(lines) < n && scanner.Scan() {
		lines = append(lines, strings.TrimRight(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading stdin: %w", err)
	}
	if len(lines) == 0 {
		return nil, &session.ValidationError{Field: "password", Message: "No password on stdin"}
	}
	for len(lines) < n {
		lines = append(lines, lines[len(lines)-1])
	}
	return lines, nil
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.manager.Logout(cmd.Context())
			fmt.Fprintln(a.out, "Logged out")
			return nil
		},
	}
}

func (a *app) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			user, err := a.manager.LoadCurrentUser(cmd.Context())
			if err != nil {
				return err
			}
			if user == nil {
				fmt.Fprintln(a.out, "Not logged in")
				return nil
			}
			return a.renderUser(user)
		},
	}
}

func (a *app) profileCmd() *cobra.Command {
	var email, firstName, lastName, market, theme string

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or update the signed in user's profile",
		Long: `Without flags profile prints the current user. Any of the flags below
changes just that field.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			update := session.ProfileUpdate{
				Email:           utils.PtrIf(flags.Changed("email"), email),
				FirstName:       utils.PtrIf(flags.Changed("first-name"), firstName),
				LastName:        utils.PtrIf(flags.Changed("last-name"), lastName),
				PreferredMarket: utils.PtrIf(flags.Changed("market"), market),
				Theme:           utils.PtrIf(flags.Changed("theme"), theme),
			}

			if update == (session.ProfileUpdate{}) {
				user, err := a.manager.LoadCurrentUser(cmd.Context())
				if err != nil {
					return err
				}
				if user == nil {
					fmt.Fprintln(a.out, "Not logged in")
					return nil
				}
				return a.renderUser(user)
			}

			user, err := a.manager.UpdateProfile(cmd.Context(), update)
			if err != nil {
				return err
			}
			return a.renderUser(user)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&email, "email", "", "New email address")
	flags.StringVar(&firstName, "first-name", "", "New first name")
	flags.StringVar(&lastName, "last-name", "", "New last name")
	flags.StringVar(&market, "market", "", "Preferred market, US or IN")
	flags.StringVar(&theme, "theme", "", "UI theme, light or dark")
	return cmd
}

func (a *app) renderUser(user *session.User) error {
	return a.render(user, func(w io.Writer) {
		row(w, "USERNAME", user.Username)
		row(w, "EMAIL", orDash(user.Email))
		row(w, "NAME", orDash(strings.TrimSpace(user.FirstName+" "+user.LastName)))
		row(w, "MARKET", orDash(user.PreferredMarket))
		row(w, "THEME", orDash(user.Theme))
		row(w, "LAST LOGIN", orDash(user.LastLogin))
	})
}
