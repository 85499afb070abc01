// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument parsing,
// flag binding, and validation. Command execution is delegated to handler
// functions in the handlers package.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/onboard/cmd/onboard/handlers"
)

// Root returns the root command for the onboard CLI.
//
// Without a subcommand the root runs the onboarding pipeline. The --status and
// --rollback flags switch it to the reporter or the rollback engine.
func Root() *cobra.Command {
	var global handlers.GlobalOptions
	var run handlers.RunOptions
	var status, rollback bool

	cmd := &cobra.Command{
		Use:   "onboard",
		Short: "Onboard a node into the cluster, phase by phase",
		Long: `Onboard a node into the Kubernetes cluster.

The pipeline runs nine phases in order and records progress in a state file
after every phase. A failed or interrupted run can be continued with --resume
or undone with --rollback.

Examples:
  # Onboard the node named in onboard.yaml
  onboard

  # Onboard a specific node, writing a Markdown report
  onboard --node worker-3 --report

  # See what would run
  onboard --dry-run

  # Continue after fixing a failure
  onboard --resume

  # Inspect or undo progress
  onboard --status
  onboard --rollback`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch {
			case status:
				return handlers.Status(cmd.Context(), handlers.StatusOptions{GlobalOptions: global})
			case rollback:
				return handlers.Rollback(cmd.Context(), handlers.RollbackOptions{
					GlobalOptions: global,
					DryRun:        run.DryRun,
					Yes:           run.Yes,
				})
			}
			run.GlobalOptions = global
			return handlers.Run(cmd.Context(), run)
		},
	}

	addGlobalFlags(cmd, &global)
	addRunFlags(cmd, &run)
	cmd.Flags().BoolVar(&status, "status", false, "Show onboarding progress and exit")
	cmd.Flags().BoolVar(&rollback, "rollback", false, "Roll back completed phases in reverse order")
	cmd.MarkFlagsMutuallyExclusive("status", "rollback")
	for mode, ignored := range modeExclusiveFlags {
		for _, name := range ignored {
			cmd.MarkFlagsMutuallyExclusive(mode, name)
		}
	}

	cmd.AddCommand(Run())
	cmd.AddCommand(Status())
	cmd.AddCommand(Rollback())
	cmd.AddCommand(Report())
	cmd.AddCommand(Cleanup())
	cmd.AddCommand(Phases())
	cmd.AddCommand(Doctor())
	cmd.AddCommand(Version())
	cmd.AddCommand(Completion())

	return cmd
}

// modeExclusiveFlags lists the run flags each alternate mode has no use for.
// --rollback honours --dry-run and --yes.
var modeExclusiveFlags = map[string][]string{
	"status":   {"dry-run", "skip-validation", "resume", "report", "auto-fix", "yes"},
	"rollback": {"skip-validation", "resume", "report", "auto-fix"},
}

// addGlobalFlags binds flags shared by every command that loads configuration.
func addGlobalFlags(cmd *cobra.Command, g *handlers.GlobalOptions) {
	cmd.PersistentFlags().StringVarP(&g.ConfigPath, "config", "c", "", "Path to configuration file (default: onboard.yaml)")
	cmd.PersistentFlags().StringVar(&g.Node, "node", "", "Node to onboard (overrides node.name)")
	cmd.PersistentFlags().BoolVar(&g.Verbose, "verbose", false, "Log debug output to the console")
	cmd.PersistentFlags().BoolVar(&g.NoTUI, "no-tui", false, "Print plain progress lines instead of the interactive view")
}

func addRunFlags(cmd *cobra.Command, r *handlers.RunOptions) {
	cmd.Flags().BoolVar(&r.DryRun, "dry-run", false, "Simulate every action; nothing runs and no state is written")
	cmd.Flags().BoolVar(&r.SkipValidation, "skip-validation", false, "Mark skippable validation phases completed without running them")
	cmd.Flags().BoolVar(&r.Resume, "resume", false, "Continue from saved state, skipping completed phases")
	cmd.Flags().BoolVar(&r.Report, "report", false, "Write a Markdown report when the run ends")
	cmd.Flags().BoolVar(&r.AutoFix, "auto-fix", false, "Let validation phases remediate what they can")
	cmd.Flags().BoolVarP(&r.Yes, "yes", "y", false, "Do not ask for confirmation")
}
