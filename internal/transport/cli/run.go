package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/dan-divy/spruce-sub000/internal/infra/app"
)

func newRunCmd(opts *options) *cobra.Command {
	var fragment string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the interactive client",
		Long: `Start the interactive client. Lines starting with # navigate (for example #chat/room/42).
Commands: /say <text>, /typing, /stop, /notify <text>, /logout, /quit.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.Application) error {
				return a.Run(ctx, cmd.InOrStdin(), fragment)
			})
		},
	}

	cmd.Flags().StringVar(&fragment, "fragment", "#main", "Initial navigation fragment")
	return cmd
}
