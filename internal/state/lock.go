package state

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gofrs/flock"
)

// Lock is held for the whole run through a kernel advisory lock on the lock
// file. The holder's PID is written into the file for diagnostics only.
type Lock struct {
	path string
	fl   *flock.Flock

	// Stale is set when the previous holder exited without releasing.
	Stale    bool
	StalePID int
}

// AcquireLock takes the advisory lock at path without blocking.
//
// A lock held by another run yields a *LockError naming the PID recorded in
// the file. A file left with a PID by a run that died is taken over and
// reported through Lock.Stale; the kernel drops the lock with the process,
// so a recycled PID never blocks a new run.
func AcquireLock(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	fl := flock.New(path)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", path, err)
	}
	if !locked {
		pid, _ := readLockPID(path)
		return nil, &LockError{Path: path, PID: pid}
	}

	lock := &Lock{path: path, fl: fl}
	// #nosec G304 - path comes from operator configuration
	if prev, err := os.ReadFile(path); err == nil && strings.TrimSpace(string(prev)) != "" {
		lock.Stale = true
		lock.StalePID, _ = readLockPID(path)
	}

	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644); err != nil {
		_ = fl.Unlock()
		return nil, fmt.Errorf("failed to record pid in lock file: %w", err)
	}
	return lock, nil
}

func readLockPID(path string) (int, error) {
	// #nosec G304 - path comes from operator configuration
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid pid in lock file %q", strings.TrimSpace(string(data)))
	}
	return pid, nil
}

// Path returns the lock file location.
func (l *Lock) Path() string {
	return l.path
}

// Release clears the recorded PID and drops the advisory lock. The file stays
// so that every run locks the same inode.
func (l *Lock) Release() error {
	if l.fl == nil || !l.fl.Locked() {
		return nil
	}
	truncErr := os.Truncate(l.path, 0)
	if errors.Is(truncErr, os.ErrNotExist) {
		truncErr = nil
	}
	if err := l.fl.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	if truncErr != nil {
		return fmt.Errorf("failed to clear lock file: %w", truncErr)
	}
	return nil
}
