package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/onboard/cmd/onboard/handlers"
)

// Run returns the command that executes the onboarding pipeline. It is what
// the root command does without --status or --rollback.
func Run() *cobra.Command {
	var opts handlers.RunOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the onboarding pipeline",
		Long: `Run the onboarding phases in order.

A fresh run refuses to start when saved state exists; continue it with
--resume, or remove it with 'onboard rollback' or 'onboard cleanup'.

Examples:
  onboard run --node worker-3
  onboard run --resume --auto-fix
  onboard run --dry-run --no-tui`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.GlobalOptions = globalFrom(cmd)
			return handlers.Run(cmd.Context(), opts)
		},
	}
	addRunFlags(cmd, &opts)
	return cmd
}
