package state

import (
	"encoding/json"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "state", "onboarding.json"), testIDs)
}

func TestLoad_Absent(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	_, err := s.Load()
	assert.True(t, errors.Is(err, ErrNoState))
	assert.False(t, s.Exists())
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	st := New(testIDs)
	require.NoError(t, st.Complete("one", ""))
	require.NoError(t, st.Fail("two", "API unreachable."))
	require.NoError(t, s.Save(st))

	loaded, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, "two", loaded.CurrentPhase)
	assert.Equal(t, StatusCompleted, loaded.Status("one"))
	assert.Equal(t, StatusFailed, loaded.Status("two"))
	assert.Equal(t, StatusNotStarted, loaded.Status("three"))
	assert.Equal(t, "API unreachable.", loaded.Error("two"))
	assert.Equal(t, 1, loaded.CompletedCount)
	assert.Equal(t, 1, loaded.FailedCount)
	assert.Equal(t, 3, loaded.TotalPhases)
	assert.True(t, fixed.Equal(loaded.LastUpdated))
}

func TestSave_WritesCompatibleKeys(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	require.NoError(t, s.Save(New(testIDs)))

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, key := range requiredKeys {
		assert.Contains(t, raw, key)
	}
	assert.Len(t, raw, len(requiredKeys))
}

func TestSave_RecomputesCounters(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	rng := rand.New(rand.NewSource(42))
	statuses := []Status{StatusNotStarted, StatusInProgress, StatusCompleted, StatusFailed}

	for i := 0; i < 50; i++ {
		st := New(testIDs)
		for _, id := range testIDs {
			st.PhaseStatus[id] = statuses[rng.Intn(len(statuses))]
		}
		// Counters set by hand must never survive a save.
		st.CompletedCount = 99
		st.FailedCount = -1
		require.NoError(t, s.Save(st))

		data, err := os.ReadFile(s.Path())
		require.NoError(t, err)
		var doc document
		require.NoError(t, json.Unmarshal(data, &doc))

		completed, failed := 0, 0
		for _, status := range doc.PhaseStatus {
			switch status {
			case StatusCompleted:
				completed++
			case StatusFailed:
				failed++
			}
		}
		assert.Equal(t, completed, doc.CompletedPhases)
		assert.Equal(t, failed, doc.FailedPhases)
		assert.Equal(t, len(testIDs), doc.TotalPhases)
	}
}

func TestSave_LeavesNoTempFiles(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	require.NoError(t, s.Save(New(testIDs)))
	require.NoError(t, s.Save(New(testIDs)))

	entries, err := os.ReadDir(filepath.Dir(s.Path()))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "onboarding.json", entries[0].Name())
}

func TestLoad_Corruption(t *testing.T) {
	t.Parallel()
	valid := `"timestamp":"2026-01-01T00:00:00Z","current_phase":"one","completed_phases":0,"failed_phases":0,"total_phases":3`

	tests := []struct {
		name    string
		content string
		reason  string
	}{
		{name: "malformed json", content: `{"timestamp":`, reason: "malformed JSON"},
		{name: "missing keys", content: `{"timestamp":"x"}`, reason: "missing required keys"},
		{
			name:    "null phase_status",
			content: `{` + valid + `,"phase_status":null,"phase_errors":{}}`,
			reason:  "phase_status",
		},
		{
			name:    "invalid status",
			content: `{` + valid + `,"phase_status":{"one":"done","two":"not_started","three":"not_started"},"phase_errors":{}}`,
			reason:  "invalid status",
		},
		{
			name:    "unknown phase",
			content: `{` + valid + `,"phase_status":{"one":"completed","two":"not_started","three":"not_started","zzz":"completed"},"phase_errors":{}}`,
			reason:  "unknown phases: zzz",
		},
		{
			name:    "missing phase",
			content: `{` + valid + `,"phase_status":{"one":"completed","two":"not_started"},"phase_errors":{}}`,
			reason:  "missing phases: three",
		},
		{
			name:    "wrong type",
			content: `{` + valid + `,"phase_status":["one"],"phase_errors":{}}`,
			reason:  "invalid field types",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := newTestStore(t)
			require.NoError(t, os.MkdirAll(filepath.Dir(s.Path()), 0o755))
			require.NoError(t, os.WriteFile(s.Path(), []byte(tt.content), 0o644))

			_, err := s.Load()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrStateCorruption))
			var ce *CorruptionError
			require.True(t, errors.As(err, &ce))
			assert.Contains(t, ce.Error(), tt.reason)

			// The corrupt file is left for inspection.
			data, readErr := os.ReadFile(s.Path())
			require.NoError(t, readErr)
			assert.Equal(t, tt.content, string(data))
		})
	}
}

func TestLoad_AcceptsLegacyTimestampAndMissingErrorEntries(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	content := `{"timestamp":"2025-11-02 08:15:00","current_phase":"two","completed_phases":5,"failed_phases":0,"total_phases":3,` +
		`"phase_status":{"one":"completed","two":"in_progress","three":"not_started"},"phase_errors":{"one":""}}`
	require.NoError(t, os.MkdirAll(filepath.Dir(s.Path()), 0o755))
	require.NoError(t, os.WriteFile(s.Path(), []byte(content), 0o644))

	st, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, 2025, st.LastUpdated.Year())
	assert.Equal(t, StatusInProgress, st.Status("two"))
	assert.Empty(t, st.Error("three"))
	assert.Equal(t, 1, st.CompletedCount, "stored counters are recomputed")
}

func TestDelete(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	require.NoError(t, s.Save(New(testIDs)))
	require.True(t, s.Exists())

	require.NoError(t, s.Delete())
	assert.False(t, s.Exists())
	require.NoError(t, s.Delete(), "deleting a missing file is not an error")
}

func TestRaw(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	_, err := s.Raw()
	assert.True(t, errors.Is(err, ErrNoState))

	require.NoError(t, s.Save(New(testIDs)))
	data, err := s.Raw()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"phase_status"`)
}
