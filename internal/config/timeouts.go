package config

import (
	"os"
	"strings"
	"time"
)

// Environment variables read by LoadTimeouts.
const (
	EnvTimeoutPrefix     = "ONBOARD_TIMEOUT_"
	EnvTimeoutDefault    = "ONBOARD_TIMEOUT_DEFAULT"
	EnvTimeoutRollback   = "ONBOARD_TIMEOUT_ROLLBACK"
	EnvRetryInitialDelay = "ONBOARD_RETRY_INITIAL_DELAY"
	EnvLogLevel          = "ONBOARD_LOG_LEVEL"
)

// Timeouts holds timeout values that can be customized via environment variables.
type Timeouts struct {
	// Phase holds per-phase forward timeouts set through ONBOARD_TIMEOUT_<PHASE>.
	Phase map[string]time.Duration
	// Default, when non-zero, replaces the built-in timeout of every phase
	// without a per-phase override.
	Default time.Duration
	// Rollback bounds each compensating action.
	Rollback          time.Duration
	RetryInitialDelay time.Duration
}

// LoadTimeouts loads timeout configuration from environment variables.
// If an environment variable is not set or invalid, a default value is used.
//
// Environment Variables:
//   - ONBOARD_TIMEOUT_<PHASE_ID> e.g. ONBOARD_TIMEOUT_CLUSTER_JOIN=20m
//   - ONBOARD_TIMEOUT_DEFAULT (default: unset, built-in per-phase values)
//   - ONBOARD_TIMEOUT_ROLLBACK (default: 5m)
//   - ONBOARD_RETRY_INITIAL_DELAY (default: 2s)
func LoadTimeouts(phaseIDs []string) *Timeouts {
	t := &Timeouts{
		Phase:             make(map[string]time.Duration),
		Default:           parseDuration(EnvTimeoutDefault, 0),
		Rollback:          parseDuration(EnvTimeoutRollback, 5*time.Minute),
		RetryInitialDelay: parseDuration(EnvRetryInitialDelay, 2*time.Second),
	}
	for _, id := range phaseIDs {
		if d := parseDuration(PhaseTimeoutEnv(id), 0); d > 0 {
			t.Phase[id] = d
		}
	}
	return t
}

// PhaseTimeoutEnv returns the environment variable overriding a phase timeout.
func PhaseTimeoutEnv(phaseID string) string {
	return EnvTimeoutPrefix + strings.ToUpper(phaseID)
}

// parseDuration parses a duration from an environment variable.
// If the variable is not set, fails to parse or is not positive, the default value is returned.
func parseDuration(envVar string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return defaultVal
	}

	return d
}
