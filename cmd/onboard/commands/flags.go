package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/onboard/cmd/onboard/handlers"
)

// globalFrom reads the persistent flags inherited from the root command.
func globalFrom(cmd *cobra.Command) handlers.GlobalOptions {
	flags := cmd.Flags()
	g := handlers.GlobalOptions{}
	g.ConfigPath, _ = flags.GetString("config")
	g.Node, _ = flags.GetString("node")
	g.Verbose, _ = flags.GetBool("verbose")
	g.NoTUI, _ = flags.GetBool("no-tui")
	return g
}
