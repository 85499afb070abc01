package handlers

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/imamik/onboard/internal/onboarding"
	"github.com/imamik/onboard/internal/report"
	"github.com/imamik/onboard/internal/ui/tui"
)

// RunOptions holds the flags of a forward run.
type RunOptions struct {
	GlobalOptions
	DryRun         bool
	SkipValidation bool
	Resume         bool
	Report         bool
	AutoFix        bool
	Yes            bool
}

// Run executes the onboarding pipeline for the configured node.
//
// Progress is shown in the TUI when stdout is a terminal and as plain lines
// otherwise. SIGINT and SIGTERM interrupt the current phase; its state is
// saved before Run returns. With --report a Markdown report is written even
// when the run halted.
func Run(ctx context.Context, opts RunOptions) error {
	ctx, stop := signalContext(ctx)
	defer stop()

	s, err := openSession(opts.GlobalOptions, true)
	if err != nil {
		return err
	}
	interactive := useTUI(opts.GlobalOptions)
	if err := s.startLogger(opts.GlobalOptions, !interactive); err != nil {
		return err
	}
	defer s.close()

	metrics := onboarding.NewMetrics()
	runOpts := onboarding.RunOptions{
		DryRun:         opts.DryRun,
		SkipValidation: opts.SkipValidation,
		Resume:         opts.Resume,
		AutoFix:        opts.AutoFix,
	}

	var summary *onboarding.Summary
	execute := func(ctx context.Context, progress onboarding.ProgressFunc) error {
		executor := onboarding.NewExecutor(s.registry, s.store, s.invoker(), s.engineOptions(metrics, progress)...)
		var err error
		summary, err = executor.Run(ctx, runOpts)
		return err
	}

	if interactive {
		err = runTUI(ctx, s.cfg.Node.Name, tui.ModeRun, opts.DryRun, s.registry.Phases(), execute)
	} else {
		printRunHeader(s, opts)
		err = execute(ctx, newProgressPrinter(os.Stdout).print)
	}
	s.writeMetrics(metrics)

	if opts.Report && summary != nil {
		meta := s.reportMeta(opts.DryRun)
		meta.Results = summary.Results
		if _, rerr := s.writeReport(ctx, summary.State, meta, true); rerr != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", rerr)
		}
	}

	printRunResult(s, summary, err)
	return err
}

func printRunHeader(s *session, opts RunOptions) {
	mode := ""
	switch {
	case opts.DryRun:
		mode = " (dry run)"
	case opts.Resume:
		mode = " (resume)"
	}
	fmt.Printf("Onboarding node %s%s: %d phases\n", s.cfg.Node.Name, mode, s.registry.Len())
	if path := s.log.FilePath(); path != "" {
		fmt.Printf("Log file: %s\n", path)
	}
}

func printRunResult(s *session, summary *onboarding.Summary, err error) {
	switch {
	case err == nil && summary != nil && summary.DryRun:
		fmt.Printf("\nDry run complete: %d phase(s) simulated; no state was written.\n", len(summary.Results))
	case err == nil && summary != nil:
		fmt.Printf("\nNode %s onboarded (%d/%d phases completed in %s).\n",
			s.cfg.Node.Name, summary.State.CompletedCount, summary.State.TotalPhases, summary.Duration.Round(time.Second))
	case errors.Is(err, onboarding.ErrHalted), errors.Is(err, onboarding.ErrInterrupted):
		if summary != nil && summary.State != nil && !summary.DryRun {
			fmt.Println()
			fmt.Print(report.New(s.registry, s.cfg.Node.Name).Status(summary.State, s.store.Path()))
		}
		printHint(os.Stderr, err)
	}
}
