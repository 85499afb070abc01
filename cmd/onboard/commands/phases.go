package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/onboard/cmd/onboard/handlers"
)

// Phases returns the command that lists the resolved phase table.
func Phases() *cobra.Command {
	return &cobra.Command{
		Use:   "phases",
		Short: "List the phases with their actions and timeouts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Phases(cmd.Context(), globalFrom(cmd))
		},
	}
}
