// Package registry holds the fixed, ordered catalog of onboarding phases.
//
// The registry is built once at startup (from the built-in defaults merged with
// configuration overrides) and is read-only afterwards. Both the executor and the
// rollback engine walk the same registry, so forward and reverse ordering always
// agree.
package registry
