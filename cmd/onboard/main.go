// Package main is the entry point for the onboard CLI.
//
// onboard drives a node through the ordered onboarding pipeline (validation,
// preparation, cluster join, readiness, network, storage, GitOps registration,
// reconciliation and post validation), persisting progress after every phase
// so an interrupted or failed run can be resumed or rolled back.
//
// For detailed usage information, run:
//
//	onboard --help
package main

import (
	"fmt"
	"os"

	"github.com/imamik/onboard/cmd/onboard/commands"
	"github.com/imamik/onboard/cmd/onboard/handlers"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(handlers.ExitCode(err))
	}
}
