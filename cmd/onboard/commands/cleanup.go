package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/onboard/cmd/onboard/handlers"
)

// Cleanup returns the command that removes the state file without rolling back.
func Cleanup() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove the saved state without running compensating actions",
		Long: `Remove the state file so the next run starts fresh.

Nothing on the node or in the cluster is changed. Use 'onboard rollback'
to undo completed phases instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Cleanup(cmd.Context(), handlers.CleanupOptions{
				GlobalOptions: globalFrom(cmd),
				Yes:           yes,
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}
