// Package k8s talks to the cluster the node joins. The NodeWaiter implements
// action.Runner for the "kube-node-ready" action kind.
package k8s
