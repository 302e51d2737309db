package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/five82/repeater/internal/app"
	"github.com/five82/repeater/internal/logging"
	"github.com/five82/repeater/internal/repeater"
)

func (o *rootOptions) credentials(email string) (repeater.Credentials, error) {
	var err error
	if strings.TrimSpace(email) == "" {
		email, err = o.streams.readLine("Email: ")
		if err != nil {
			return repeater.Credentials{}, err
		}
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return repeater.Credentials{}, fmt.Errorf("email is required")
	}
	password, err := o.streams.readPassword("Password: ")
	if err != nil {
		return repeater.Credentials{}, err
	}
	if password == "" {
		return repeater.Credentials{}, fmt.Errorf("password is required")
	}
	return repeater.Credentials{Email: email, Password: password}, nil
}

func newLoginCmd(opts *rootOptions) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the session",
		Long: `Sign in to the Repeater backend. The session cookies are stored in the
data directory so later runs stay signed in.

Examples:
  # Prompt for email and password
  repeater login

  # Pipe the password from a secret manager
  pass show repeater | repeater login --email me@example.com`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			creds, err := opts.credentials(email)
			if err != nil {
				return err
			}
			return opts.withRuntime(cmd, func(rt *app.Runtime) error {
				ctx := cmd.Context()
				rt.Logger.Debug("signing in",
					zap.String("email", creds.Email),
					logging.Redacted("password", creds.Password))
				if err := rt.Client.Login(ctx, creds); err != nil {
					return fmt.Errorf("login: %w", err)
				}
				user, err := rt.Client.Me(ctx)
				if err != nil {
					return fmt.Errorf("load profile: %w", err)
				}
				if err := rt.Session.SaveUser(ctx, *user); err != nil {
					rt.Logger.Warn("cache user failed", zap.Error(err))
				}
				rt.Logger.Info("signed in", zap.String("user_id", user.ID))
				fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", user.Email)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email (prompted when empty)")
	return cmd
}

func newRegisterCmd(opts *rootOptions) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Long: `Create an account on the Repeater backend. Registration does not sign
you in; run "repeater login" afterwards.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			creds, err := opts.credentials(email)
			if err != nil {
				return err
			}
			return opts.withRuntime(cmd, func(rt *app.Runtime) error {
				user, err := rt.Client.Register(cmd.Context(), creds)
				if err != nil {
					return fmt.Errorf("register: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Registered %s. Run `repeater login` to sign in.\n", user.Email)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email (prompted when empty)")
	return cmd
}

func newLogoutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withRuntime(cmd, func(rt *app.Runtime) error {
				if err := rt.Client.Logout(cmd.Context()); err != nil {
					return fmt.Errorf("logout: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
				return nil
			})
		},
	}
}
