package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/imamik/onboard/internal/onboarding"
	"github.com/imamik/onboard/internal/registry"
)

// RunFunc performs the run, reporting each step through progress.
type RunFunc func(ctx context.Context, progress onboarding.ProgressFunc) error

// Run shows the progress view while fn executes. ctrl+c cancels the context
// given to fn; the view stays up until fn has returned so the final state is
// visible. The error of fn is returned unchanged.
func Run(ctx context.Context, node string, mode Mode, dryRun bool, phases []registry.Phase, fn RunFunc, opts ...tea.ProgramOption) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := NewModel(node, mode, dryRun, phases, cancel)
	p := tea.NewProgram(m, opts...)

	errCh := make(chan error, 1)
	go func() {
		err := fn(runCtx, func(r onboarding.PhaseResult) {
			p.Send(PhaseMsg{Result: r})
		})
		errCh <- err
		p.Send(DoneMsg{Err: err})
	}()

	_, uiErr := p.Run()
	if uiErr != nil && !errors.Is(uiErr, tea.ErrProgramKilled) {
		// The UI failed; stop the run and still wait for it to persist state.
		cancel()
		runErr := <-errCh
		return errors.Join(runErr, fmt.Errorf("TUI error: %w", uiErr))
	}
	return <-errCh
}
