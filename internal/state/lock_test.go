package state

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireLock_FreshAndRelease(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "state.json.lock")

	lock, err := AcquireLock(path)
	require.NoError(t, err)
	assert.False(t, lock.Stale)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid())+"\n", string(data))

	require.NoError(t, lock.Release())
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, data, "pid cleared on release")

	again, err := AcquireLock(path)
	require.NoError(t, err)
	assert.False(t, again.Stale, "a released lock is not stale")
	require.NoError(t, again.Release())
}

func TestAcquireLock_HeldByAnotherRun(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "state.json.lock")

	held, err := AcquireLock(path)
	require.NoError(t, err)
	defer func() { _ = held.Release() }()

	_, err = AcquireLock(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConcurrencyConflict))
	var le *LockError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, os.Getpid(), le.PID)

	data, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, strconv.Itoa(os.Getpid())+"\n", string(data), "holder's pid untouched")
}

func TestAcquireLock_StaleLocks(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		content string
		pid     int
	}{
		{name: "dead pid", content: "2147483646", pid: 2147483646},
		// A recycled PID belongs to a live process that holds no lock.
		{name: "live unrelated pid", content: strconv.Itoa(os.Getppid()), pid: os.Getppid()},
		{name: "garbage", content: "not-a-pid", pid: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), "state.json.lock")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			lock, err := AcquireLock(path)
			require.NoError(t, err)
			assert.True(t, lock.Stale)
			assert.Equal(t, tt.pid, lock.StalePID)

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, strconv.Itoa(os.Getpid())+"\n", string(data))
			require.NoError(t, lock.Release())
		})
	}
}

func TestAcquireLock_ConcurrentStaleTakeover(t *testing.T) {
	t.Parallel()
	const contenders = 8

	for round := 0; round < 25; round++ {
		path := filepath.Join(t.TempDir(), "state.json.lock")
		require.NoError(t, os.WriteFile(path, []byte("999999"), 0o644))

		var (
			start    = make(chan struct{})
			attempts sync.WaitGroup
			mu       sync.Mutex
			held     []*Lock
			refused  int
		)
		attempts.Add(contenders)
		for i := 0; i < contenders; i++ {
			go func() {
				defer attempts.Done()
				<-start
				lock, err := AcquireLock(path)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					assert.ErrorIs(t, err, ErrConcurrencyConflict)
					refused++
					return
				}
				held = append(held, lock)
			}()
		}
		close(start)
		attempts.Wait()

		require.Len(t, held, 1, "round %d: exactly one run may hold the lock", round)
		assert.Equal(t, contenders-1, refused)
		require.NoError(t, held[0].Release())
	}
}

func TestRelease_Idempotent(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "state.json.lock")
	lock, err := AcquireLock(path)
	require.NoError(t, err)

	require.NoError(t, lock.Release())
	require.NoError(t, lock.Release())
}

func TestStore_Lock(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	lock, err := s.Lock()
	require.NoError(t, err)
	assert.Equal(t, s.Path()+".lock", lock.Path())
	require.NoError(t, lock.Release())
}

func TestLockError_Message(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "state lock s.lock is held by running process 42", (&LockError{Path: "s.lock", PID: 42}).Error())
	assert.Equal(t, "state lock s.lock is held by another process", (&LockError{Path: "s.lock"}).Error())
}
