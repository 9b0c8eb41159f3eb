package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"workdesk/internal/backend"
	"workdesk/internal/model"

	"github.com/spf13/cobra"
)

type authResult struct {
	User      *model.User `json:"user,omitempty"`
	Pending   bool        `json:"pending,omitempty"`
	SignedOut bool        `json:"signedOut,omitempty"`
	ResetSent string      `json:"resetSent,omitempty"`
}

func (r authResult) Text() string {
	switch {
	case r.Pending:
		return "Check your email to confirm your account, then sign in."
	case r.SignedOut:
		return "Signed out."
	case r.ResetSent != "":
		return fmt.Sprintf("If %s has an account, a password reset link is on its way.", r.ResetSent)
	case r.User != nil:
		return fmt.Sprintf("%s (%s)", r.User.Email, r.User.ID)
	}
	return ""
}

type credentials struct {
	email         string
	password      string
	passwordStdin bool
}

func (c *credentials) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&c.email, "email", "", "Account email")
	cmd.Flags().StringVar(&c.password, "password", envOr("WORKDESK_PASSWORD", ""), "Account password")
	cmd.Flags().BoolVar(&c.passwordStdin, "password-stdin", false, "Read the password from stdin")
}

func (c *credentials) resolve(cmd *cobra.Command) (email, password string, err error) {
	email = strings.TrimSpace(c.email)
	if email == "" {
		return "", "", usageErrorf("missing --email")
	}
	password, err = c.readPassword(cmd)
	return email, password, err
}

func (c *credentials) readPassword(cmd *cobra.Command) (string, error) {
	if c.passwordStdin {
		return readLine(cmd.InOrStdin())
	}
	if c.password == "" {
		return "", usageErrorf("missing --password (or --password-stdin)")
	}
	return c.password, nil
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", usageErrorf("empty password on stdin")
	}
	return line, nil
}

func newAuthCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Sign in, sign up and manage the session",
	}
	cmd.AddCommand(newAuthLoginCmd(app))
	cmd.AddCommand(newAuthSignupCmd(app))
	cmd.AddCommand(newAuthLogoutCmd(app))
	cmd.AddCommand(newAuthWhoamiCmd(app))
	cmd.AddCommand(newAuthResetRequestCmd(app))
	cmd.AddCommand(newAuthResetPasswordCmd(app))
	return cmd
}

func newAuthLoginCmd(app *App) *cobra.Command {
	var creds credentials
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			email, password, err := creds.resolve(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			return app.withBackend(cmd, func(ctx context.Context, be backend.Backend) error {
				s, err := be.SignInWithPassword(ctx, email, password)
				if err != nil {
					return err
				}
				return writeOut(cmd, app, authResult{User: &s.User})
			})
		},
	}
	creds.bind(cmd)
	return cmd
}

func newAuthSignupCmd(app *App) *cobra.Command {
	var creds credentials
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			email, password, err := creds.resolve(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			return app.withBackend(cmd, func(ctx context.Context, be backend.Backend) error {
				s, err := be.SignUp(ctx, email, password)
				if err != nil {
					return err
				}
				if s == nil {
					return writeOut(cmd, app, authResult{Pending: true})
				}
				return writeOut(cmd, app, authResult{User: &s.User})
			})
		},
	}
	creds.bind(cmd)
	return cmd
}

func newAuthLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withBackend(cmd, func(ctx context.Context, be backend.Backend) error {
				if err := be.SignOut(ctx); err != nil {
					return err
				}
				return writeOut(cmd, app, authResult{SignedOut: true})
			})
		},
	}
}

func newAuthWhoamiCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withBackend(cmd, func(ctx context.Context, be backend.Backend) error {
				u, err := requireUser(ctx, be)
				if err != nil {
					return err
				}
				return writeOut(cmd, app, authResult{User: u})
			})
		},
	}
}

func newAuthResetRequestCmd(app *App) *cobra.Command {
	var email, redirectTo string
	cmd := &cobra.Command{
		Use:   "reset-request",
		Short: "Email a password reset link",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			email = strings.TrimSpace(email)
			if email == "" {
				return writeErr(cmd, usageErrorf("missing --email"))
			}
			return app.withBackend(cmd, func(ctx context.Context, be backend.Backend) error {
				to := redirectTo
				if to == "" {
					to = app.redirectTo()
				}
				if err := be.ResetPasswordForEmail(ctx, email, to); err != nil {
					return err
				}
				return writeOut(cmd, app, authResult{ResetSent: email})
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&redirectTo, "redirect-to", "", "Where the emailed link should point (default from config)")
	return cmd
}

func newAuthResetPasswordCmd(app *App) *cobra.Command {
	var link string
	var creds credentials
	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Set a new password using the link from a reset email",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(link) == "" {
				return writeErr(cmd, usageErrorf("missing --link"))
			}
			password, err := creds.readPassword(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			if len(password) < backend.MinPasswordLen {
				return writeErr(cmd, usageErrorf("password must be at least %d characters", backend.MinPasswordLen))
			}
			return app.withBackend(cmd, func(ctx context.Context, be backend.Backend) error {
				if err := be.ExchangeRecoveryLink(ctx, link); err != nil {
					return err
				}
				if err := be.UpdatePassword(ctx, password); err != nil {
					return err
				}
				u, err := requireUser(ctx, be)
				if err != nil {
					return err
				}
				return writeOut(cmd, app, authResult{User: u})
			})
		},
	}
	cmd.Flags().StringVar(&link, "link", "", "Recovery link from the reset email")
	cmd.Flags().StringVar(&creds.password, "password", envOr("WORKDESK_PASSWORD", ""), "New password")
	cmd.Flags().BoolVar(&creds.passwordStdin, "password-stdin", false, "Read the new password from stdin")
	return cmd
}

func requireUser(ctx context.Context, be backend.Auth) (*model.User, error) {
	u, err := be.GetUser(ctx)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, errNotSignedIn
	}
	return u, nil
}
