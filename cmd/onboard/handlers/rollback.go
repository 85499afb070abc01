package handlers

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/imamik/onboard/internal/onboarding"
	"github.com/imamik/onboard/internal/registry"
	"github.com/imamik/onboard/internal/report"
	"github.com/imamik/onboard/internal/ui/tui"
)

// RollbackOptions holds the flags of a rollback run.
type RollbackOptions struct {
	GlobalOptions
	DryRun bool
	Yes    bool
}

// Rollback compensates the completed phases in reverse order.
//
// Without --yes the operator confirms on the terminal; a non-interactive
// rollback without --yes is refused. The TUI is only used when no prompt is
// needed.
func Rollback(ctx context.Context, opts RollbackOptions) error {
	ctx, stop := signalContext(ctx)
	defer stop()

	s, err := openSession(opts.GlobalOptions, true)
	if err != nil {
		return err
	}

	prompt := !opts.Yes && !opts.DryRun
	var targets []registry.Phase
	interactive := useTUI(opts.GlobalOptions) && !prompt
	if interactive {
		st, err := s.store.Load()
		if err != nil {
			// Let the engine report the problem in plain output.
			interactive = false
		} else {
			targets = onboarding.NewRollbackEngine(s.registry, s.store, nil).Targets(st)
		}
	}

	if err := s.startLogger(opts.GlobalOptions, !interactive); err != nil {
		return err
	}
	defer s.close()

	metrics := onboarding.NewMetrics()
	var summary *onboarding.RollbackSummary
	execute := func(ctx context.Context, progress onboarding.ProgressFunc) error {
		engineOpts := s.engineOptions(metrics, progress)
		if prompt && isInteractiveTTY() {
			engineOpts = append(engineOpts, onboarding.WithConfirm(rollbackPrompt(s.cfg.Node.Name)))
		}
		engine := onboarding.NewRollbackEngine(s.registry, s.store, s.invoker(), engineOpts...)
		var err error
		summary, err = engine.Run(ctx, onboarding.RollbackOptions{DryRun: opts.DryRun, Yes: opts.Yes})
		return err
	}

	if interactive {
		err = runTUI(ctx, s.cfg.Node.Name, tui.ModeRollback, opts.DryRun, targets, execute)
	} else {
		err = execute(ctx, newProgressPrinter(os.Stdout).print)
	}
	s.writeMetrics(metrics)

	switch {
	case errors.Is(err, onboarding.ErrRollbackDeclined):
		fmt.Println("Rollback cancelled; nothing was changed.")
		return nil
	case err == nil, errors.Is(err, onboarding.ErrRollbackIncomplete), errors.Is(err, onboarding.ErrInterrupted):
		fmt.Print(report.Rollback(summary))
	}
	return err
}
