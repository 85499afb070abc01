package handlers

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/imamik/onboard/internal/report"
	"github.com/imamik/onboard/internal/state"
)

// StatusOptions holds the flags of the status command.
type StatusOptions struct {
	GlobalOptions
	JSON bool
}

// Status prints the saved progress. It never changes state and does not take
// the lock, so it can be used while a run is in progress.
func Status(_ context.Context, opts StatusOptions) error {
	s, err := openSession(opts.GlobalOptions, false)
	if err != nil {
		return err
	}

	if opts.JSON {
		data, err := s.store.Raw()
		if errors.Is(err, state.ErrNoState) {
			return fmt.Errorf("%w at %s", err, s.store.Path())
		}
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	}

	st, err := s.store.Load()
	if err != nil && !errors.Is(err, state.ErrNoState) {
		return err
	}
	fmt.Print(report.New(s.registry, s.cfg.Node.Name).Status(st, s.store.Path()))
	return nil
}
