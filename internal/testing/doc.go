// Package testing provides test doubles, builders, and helpers shared by the
// onboarding packages.
//
// This package centralizes common testing patterns to avoid duplication across test files:
//   - RegistryBuilder: Fluent builder for phase registries
//   - FakeInvoker: Scripted action invoker that records every call
//   - MockInvoker: testify mock of the invoker
//   - SeedState: Writes a state file with the given statuses
//
// Usage:
//
//	reg := testing.NewRegistryBuilder().
//	    WithPhases(9).
//	    WithRollback("phase_3").
//	    Build(t)
//
//	inv := testing.NewFakeInvoker()
//	inv.Respond("phase_3/forward", testing.Failed(2, "API unreachable."))
package testing
