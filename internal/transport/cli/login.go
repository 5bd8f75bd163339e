package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dan-divy/spruce-sub000/internal/core/domain"
	"github.com/dan-divy/spruce-sub000/internal/infra/app"
)

func newLoginCmd(opts *options) *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the refresh credential",
		RunE: func(cmd *cobra.Command, args []string) error {
			in := bufio.NewReader(cmd.InOrStdin())
			out := cmd.OutOrStdout()

			var err error
			if username, err = prompt(in, out, "Username", username); err != nil {
				return err
			}
			if password, err = promptPassword(cmd.InOrStdin(), in, out, "Password", password); err != nil {
				return err
			}
			if username == "" || password == "" {
				return errors.New("username and password are required")
			}

			return withApp(cmd, opts, func(ctx context.Context, a *app.Application) error {
				if err := a.Lifecycle().Login(ctx, username, password); err != nil {
					return fmt.Errorf("login: %w", err)
				}
				fmt.Fprintf(out, "Signed in as %s\n", username)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Account username (prompted if omitted)")
	cmd.Flags().StringVar(&password, "password", "", "Account password (prompted if omitted)")
	return cmd
}

func newRegisterCmd(opts *options) *cobra.Command {
	var form domain.Registration

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a new account",
		RunE: func(cmd *cobra.Command, args []string) error {
			in := bufio.NewReader(cmd.InOrStdin())
			out := cmd.OutOrStdout()

			var err error
			if form.Username, err = prompt(in, out, "Username", form.Username); err != nil {
				return err
			}
			if form.Email, err = prompt(in, out, "Email", form.Email); err != nil {
				return err
			}
			if form.Password, err = promptPassword(cmd.InOrStdin(), in, out, "Password", form.Password); err != nil {
				return err
			}

			return withApp(cmd, opts, func(ctx context.Context, a *app.Application) error {
				if err := a.Lifecycle().Register(ctx, form); err != nil {
					return fmt.Errorf("register: %w", err)
				}
				fmt.Fprintf(out, "Account %s created, run `spruce login` to sign in\n", form.Username)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&form.Username, "username", "", "Account username")
	cmd.Flags().StringVar(&form.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&form.Password, "password", "", "Password")
	cmd.Flags().StringVar(&form.FirstName, "firstname", "", "First name")
	cmd.Flags().StringVar(&form.LastName, "lastname", "", "Last name")
	return cmd
}

func newLogoutCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the session and clear stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.Application) error {
				a.Lifecycle().Logout(ctx, domain.SessionContext{})
				fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
				return nil
			})
		},
	}
}
