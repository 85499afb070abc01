package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/onboard/cmd/onboard/handlers"
)

// Rollback returns the command that undoes completed phases.
func Rollback() *cobra.Command {
	var opts handlers.RollbackOptions

	cmd := &cobra.Command{
		Use:   "rollback",
		Short: "Roll back completed phases in reverse order",
		Long: `Run the compensating action of every completed phase, last phase first.

Phases without a compensating action are skipped. When every action
succeeds the state file is removed; otherwise it is kept for inspection.

Examples:
  onboard rollback
  onboard rollback --dry-run
  onboard rollback --yes`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.GlobalOptions = globalFrom(cmd)
			return handlers.Rollback(cmd.Context(), opts)
		},
	}
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Simulate the compensating actions")
	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}
