// Package retry provides exponential backoff retry logic for transient failures.
//
// [WithExponentialBackoff] retries an operation with configurable max retries,
// initial delay, maximum delay and multiplier. The onboarding executor uses it to
// apply a phase's retry budget; errors wrapped with [Fatal] (timeouts, operator
// interrupts) stop retrying immediately.
package retry
