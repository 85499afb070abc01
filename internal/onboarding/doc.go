// Package onboarding drives a node through the phase registry.
//
// The [Executor] runs phases in registry order, persisting every status
// transition through the state store before and after each action, and halts
// on the first failure. A later run with Resume skips completed phases and
// re-executes the failed one. The [RollbackEngine] walks completed phases in
// reverse order and invokes their compensating actions, collecting failures
// instead of stopping at the first one.
//
// Both report progress through an [Observer] and an optional per-phase
// progress callback, and record Prometheus metrics when configured.
package onboarding
