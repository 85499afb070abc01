package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/onboard/cmd/onboard/handlers"
)

// Report returns the command that renders a Markdown report from saved state.
func Report() *cobra.Command {
	var opts handlers.ReportOptions

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Write a Markdown report of the saved state",
		Long: `Render the saved state into a Markdown report under report_dir.

When report.s3 is configured the report is also uploaded.

Examples:
  onboard report
  onboard report --stdout
  onboard report --list`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.GlobalOptions = globalFrom(cmd)
			return handlers.Report(cmd.Context(), opts)
		},
	}
	cmd.Flags().BoolVar(&opts.Stdout, "stdout", false, "Print the report instead of writing a file")
	cmd.Flags().BoolVar(&opts.NoUpload, "no-upload", false, "Do not upload to report.s3")
	cmd.Flags().BoolVar(&opts.List, "list", false, "List reports uploaded to report.s3")
	cmd.MarkFlagsMutuallyExclusive("stdout", "list")
	return cmd
}
