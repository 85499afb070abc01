package handlers

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/imamik/onboard/internal/registry"
)

// Phases prints the resolved phase table: built-in defaults with the
// configuration overrides and environment timeouts applied.
func Phases(_ context.Context, g GlobalOptions) error {
	s, err := openSession(g, false)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tID\tKIND\tFORWARD\tROLLBACK\tTIMEOUT\tRETRIES\tFLAGS")
	for _, p := range s.registry.Phases() {
		rollback := "-"
		if p.HasRollback() {
			rollback = p.Rollback.String()
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			p.Order, p.ID, kindOf(p.Forward), p.Forward.String(), rollback, p.Timeout, p.Retries, phaseFlags(p))
	}
	return w.Flush()
}

func kindOf(a registry.Action) registry.Kind {
	if a.Kind == "" {
		return registry.KindCommand
	}
	return a.Kind
}

func phaseFlags(p registry.Phase) string {
	var flags []string
	if p.Skippable {
		flags = append(flags, "skippable")
	}
	if p.Validation {
		flags = append(flags, "validation")
	}
	if p.AutoFix {
		flags = append(flags, "auto-fix")
	}
	if p.Forward.Remote {
		flags = append(flags, "remote")
	}
	if len(flags) == 0 {
		return "-"
	}
	return strings.Join(flags, ",")
}
