// Package state persists onboarding progress.
//
// The on-disk document is a compatibility contract shared with earlier tooling:
// a JSON object with the keys timestamp, current_phase, completed_phases,
// failed_phases, total_phases, phase_status and phase_errors. Writes are atomic
// (temp file, fsync, rename) and the derived counters are recomputed from
// phase_status on every save.
//
// An advisory lock on a sibling lock file keeps two orchestrator processes
// from writing the same state file. The file records the owner's PID.
package state
