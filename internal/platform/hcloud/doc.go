// Package hcloud checks the node's Hetzner Cloud server before it is onboarded.
//
// The Checker implements action.Runner for the "hcloud-server-running" action
// kind: it looks the server up by the node name and waits until the API
// reports it running. Servers that are off, stopping or being deleted fail
// immediately.
package hcloud
