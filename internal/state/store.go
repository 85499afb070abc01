package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/renameio/v2"
)

const (
	keyTimestamp       = "timestamp"
	keyCurrentPhase    = "current_phase"
	keyCompletedPhases = "completed_phases"
	keyFailedPhases    = "failed_phases"
	keyTotalPhases     = "total_phases"
	keyPhaseStatus     = "phase_status"
	keyPhaseErrors     = "phase_errors"
)

var requiredKeys = []string{
	keyTimestamp,
	keyCurrentPhase,
	keyCompletedPhases,
	keyFailedPhases,
	keyTotalPhases,
	keyPhaseStatus,
	keyPhaseErrors,
}

// timestampLayouts are accepted on read; writes always use RFC 3339.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// document is the on-disk JSON shape.
type document struct {
	Timestamp       string            `json:"timestamp"`
	CurrentPhase    string            `json:"current_phase"`
	CompletedPhases int               `json:"completed_phases"`
	FailedPhases    int               `json:"failed_phases"`
	TotalPhases     int               `json:"total_phases"`
	PhaseStatus     map[string]Status `json:"phase_status"`
	PhaseErrors     map[string]string `json:"phase_errors"`
}

// Store reads and writes the state file for a fixed set of phases.
type Store struct {
	path     string
	phaseIDs []string
	now      func() time.Time
}

// NewStore creates a store for path. phaseIDs are the registered phase ids in
// order; loaded documents must describe exactly these phases.
func NewStore(path string, phaseIDs []string) *Store {
	return &Store{
		path:     path,
		phaseIDs: append([]string(nil), phaseIDs...),
		now:      time.Now,
	}
}

// Path returns the state file location.
func (s *Store) Path() string {
	return s.path
}

// LockPath returns the sibling lock file location.
func (s *Store) LockPath() string {
	return s.path + ".lock"
}

// Exists reports whether a state file is present.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Lock acquires the store's process lock.
func (s *Store) Lock() (*Lock, error) {
	return AcquireLock(s.LockPath())
}

// Load reads the state file. It returns ErrNoState when the file is absent and a
// *CorruptionError when the file exists but does not match the schema. A corrupt
// file is left untouched.
func (s *Store) Load() (*OnboardingState, error) {
	// #nosec G304 - path comes from operator configuration
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoState
		}
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}
	return s.decode(data)
}

func (s *Store) decode(data []byte) (*OnboardingState, error) {
	corrupt := func(reason string, err error) error {
		return &CorruptionError{Path: s.path, Reason: reason, Err: err}
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, corrupt("malformed JSON", err)
	}

	var missing []string
	for _, key := range requiredKeys {
		v, ok := raw[key]
		if !ok || string(v) == "null" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, corrupt("missing required keys: "+strings.Join(missing, ", "), nil)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, corrupt("invalid field types", err)
	}

	st := New(s.phaseIDs)

	var unknown []string
	for id, status := range doc.PhaseStatus {
		if _, ok := st.PhaseStatus[id]; !ok {
			unknown = append(unknown, id)
			continue
		}
		if !status.Valid() {
			return nil, corrupt(fmt.Sprintf("phase %q has invalid status %q", id, status), nil)
		}
		st.PhaseStatus[id] = status
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, corrupt("unknown phases: "+strings.Join(unknown, ", "), nil)
	}
	if len(doc.PhaseStatus) != len(s.phaseIDs) {
		var absent []string
		for _, id := range s.phaseIDs {
			if _, ok := doc.PhaseStatus[id]; !ok {
				absent = append(absent, id)
			}
		}
		return nil, corrupt("phase_status is missing phases: "+strings.Join(absent, ", "), nil)
	}

	for id, msg := range doc.PhaseErrors {
		if _, ok := st.PhaseErrors[id]; ok {
			st.PhaseErrors[id] = msg
		}
	}

	if doc.CurrentPhase != "" {
		if _, ok := st.PhaseStatus[doc.CurrentPhase]; !ok {
			return nil, corrupt(fmt.Sprintf("current_phase %q is not a registered phase", doc.CurrentPhase), nil)
		}
	}
	st.CurrentPhase = doc.CurrentPhase
	st.LastUpdated = parseTimestamp(doc.Timestamp)
	st.Recount()

	return st, nil
}

func parseTimestamp(v string) time.Time {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Save writes st atomically, recomputing its counters and timestamp first.
func (s *Store) Save(st *OnboardingState) error {
	st.Recount()
	st.LastUpdated = s.now().UTC()

	doc := document{
		Timestamp:       st.LastUpdated.Format(time.RFC3339),
		CurrentPhase:    st.CurrentPhase,
		CompletedPhases: st.CompletedCount,
		FailedPhases:    st.FailedCount,
		TotalPhases:     st.TotalPhases,
		PhaseStatus:     st.PhaseStatus,
		PhaseErrors:     st.PhaseErrors,
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	data = append(data, '\n')

	return writeAtomic(s.path, data)
}

// Delete removes the state file. A missing file is not an error.
func (s *Store) Delete() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove state file: %w", err)
	}
	return nil
}

// Raw returns the state file contents as stored.
func (s *Store) Raw() ([]byte, error) {
	// #nosec G304 - path comes from operator configuration
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoState
	}
	return data, err
}

// writeAtomic replaces path with data through a synced temp file and a rename.
func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	return nil
}
