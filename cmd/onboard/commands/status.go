package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/onboard/cmd/onboard/handlers"
)

// Status returns the command that shows saved progress.
//
// Optional flags:
//
//	--json: Print the raw state document
func Status() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show onboarding progress",
		Long: `Show the status of every phase from the saved state.

Examples:
  onboard status
  onboard status --json | jq .phase_status`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Status(cmd.Context(), handlers.StatusOptions{
				GlobalOptions: globalFrom(cmd),
				JSON:          jsonOutput,
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the raw state document")
	return cmd
}
