// Package report renders onboarding state for humans: a compact per-phase
// status view for terminals and a Markdown report file. It only reads state.
package report
