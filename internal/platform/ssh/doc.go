// Package ssh runs onboarding commands on the target node over SSH.
//
// The Runner dials per action with retry, authenticates with a private key and
// verifies the host key against a known_hosts file when one is configured.
// Exit statuses of remote commands are reported as *action.ExitError so they
// are classified like local ones.
package ssh
