// Package config loads the onboarding configuration: the node being
// onboarded, where scripts, state, logs and reports live, optional platform
// credentials, and per-phase overrides of the built-in phase table.
//
// Configuration is read from onboard.yaml (see [FindConfigFile]). When no
// file exists every field falls back to its default, so a bare checkout with
// a scripts/ directory works without any configuration at all. Phase
// timeouts can additionally be overridden from the environment; see
// [LoadTimeouts].
package config
