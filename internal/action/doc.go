// Package action runs a single external action and classifies the outcome.
//
// The Invoker never retries and keeps no state between calls. Each call either
// simulates the action (dry-run), or dispatches it to the Runner registered for
// the action's kind, bounding it by the given timeout. The result is one of
// success, failure, timed out or cancelled, together with an excerpt of the
// action's error stream suitable for persisting.
package action
