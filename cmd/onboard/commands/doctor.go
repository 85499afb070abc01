package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/onboard/cmd/onboard/handlers"
)

// Doctor returns the command that checks the environment before a run.
//
// Optional flags:
//
//	--json: Output in JSON format
func Doctor() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check tools, phase commands and connectivity",
		Long: `Check that everything a run needs is in place:

  - required tools (kubectl, git) are on PATH
  - every local phase command exists and is executable
  - the configuration and saved state are valid
  - the cluster, Hetzner Cloud and report bucket are reachable when configured

Examples:
  onboard doctor
  onboard doctor --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Doctor(cmd.Context(), handlers.DoctorOptions{
				GlobalOptions: globalFrom(cmd),
				JSON:          jsonOutput,
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	return cmd
}
