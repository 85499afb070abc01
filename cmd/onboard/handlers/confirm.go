package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/imamik/onboard/internal/registry"
)

// confirmWithPrompt asks a yes/no question on the terminal. Aborting the
// form with ctrl+c counts as "no".
func confirmWithPrompt(ctx context.Context, title, description string) (bool, error) {
	var ok bool
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(description).
				Affirmative("Yes").
				Negative("No").
				Value(&ok),
		),
	).RunWithContext(ctx)
	if errors.Is(err, huh.ErrUserAborted) {
		return false, nil
	}
	return ok, err
}

// rollbackPrompt adapts confirm to the rollback engine's confirmation gate.
func rollbackPrompt(node string) func(ctx context.Context, phases []registry.Phase) (bool, error) {
	return func(ctx context.Context, phases []registry.Phase) (bool, error) {
		return confirm(ctx, fmt.Sprintf("Roll back node %s?", node), rollbackDescription(phases))
	}
}

func rollbackDescription(phases []registry.Phase) string {
	if len(phases) == 0 {
		return "No phase is completed; nothing will run."
	}
	var b strings.Builder
	b.WriteString("Compensating actions run in this order:\n")
	for _, p := range phases {
		if p.HasRollback() {
			fmt.Fprintf(&b, "  - %s: %s\n", p.DisplayName, p.Rollback.String())
		} else {
			fmt.Fprintf(&b, "  - %s: nothing to undo\n", p.DisplayName)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
