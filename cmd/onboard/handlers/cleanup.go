package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// CleanupOptions holds the flags of the cleanup command.
type CleanupOptions struct {
	GlobalOptions
	Yes bool
}

// errCleanupConfirmation is returned when cleanup needs confirmation but stdout is not a terminal.
var errCleanupConfirmation = errors.New("cleanup requires confirmation (use --yes for non-interactive runs)")

// Cleanup removes the state file without running any compensating action.
// A corrupt state file can be removed too; that is the usual reason to run it.
func Cleanup(ctx context.Context, opts CleanupOptions) error {
	s, err := openSession(opts.GlobalOptions, false)
	if err != nil {
		return err
	}
	if !s.store.Exists() {
		fmt.Printf("No state file at %s; nothing to clean up.\n", s.store.Path())
		return nil
	}

	lock, err := s.store.Lock()
	if err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()

	if !opts.Yes {
		if !isInteractiveTTY() {
			return errCleanupConfirmation
		}
		ok, err := confirm(ctx, "Remove "+s.store.Path()+"?", cleanupDescription(s))
		if err != nil {
			return fmt.Errorf("confirmation failed: %w", err)
		}
		if !ok {
			fmt.Println("Cleanup cancelled; state file kept.")
			return nil
		}
	}

	if err := s.store.Delete(); err != nil {
		return err
	}
	fmt.Printf("Removed %s\n", s.store.Path())
	return nil
}

func cleanupDescription(s *session) string {
	st, err := s.store.Load()
	if err != nil {
		return "The state file cannot be read: " + err.Error()
	}
	done := st.CompletedPhases()
	if len(done) == 0 {
		return "No phase is completed."
	}
	return "Completed phases are NOT rolled back: " + strings.Join(done, ", ")
}
