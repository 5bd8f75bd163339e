package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dan-divy/spruce-sub000/internal/infra/app"
)

func newStatusCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether the stored session is usable",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			return withApp(cmd, opts, func(ctx context.Context, a *app.Application) error {
				lifecycle := a.Lifecycle()
				if lifecycle.IsInvalid(ctx) {
					fmt.Fprintln(out, "Session: signed out")
					return nil
				}

				session := lifecycle.Build(ctx)
				if !session.Usable() {
					fmt.Fprintf(out, "Session: unusable (%s)\n", session.Error)
					return nil
				}

				fmt.Fprintln(out, "Session: active")
				fmt.Fprintf(out, "  User:  %s\n", session.Username)
				fmt.Fprintf(out, "  Admin: %t\n", session.Admin)
				if len(session.Community) > 0 {
					fmt.Fprintln(out, "  Communities:")
					for _, c := range session.Community {
						fmt.Fprintf(out, "    - %s\n", c.Name)
					}
				}
				return nil
			})
		},
	}
}
