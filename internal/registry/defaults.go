package registry

import "time"

// Phase identifiers of the built-in onboarding pipeline.
const (
	PhasePreValidation      = "pre_validation"
	PhaseNodePreparation    = "node_preparation"
	PhaseClusterJoin        = "cluster_join"
	PhaseNodeReady          = "node_ready"
	PhaseNetworkValidation  = "network_validation"
	PhaseStorageIntegration = "storage_integration"
	PhaseGitOpsRegistration = "gitops_registration"
	PhaseReconciliation     = "reconciliation"
	PhasePostValidation     = "post_validation"
)

// Default forward-action timeouts. They can be overridden per phase through
// configuration or ONBOARD_TIMEOUT_<PHASE> environment variables.
const (
	DefaultPreValidationTimeout      = 5 * time.Minute
	DefaultNodePreparationTimeout    = 10 * time.Minute
	DefaultClusterJoinTimeout        = 15 * time.Minute
	DefaultNodeReadyTimeout          = 10 * time.Minute
	DefaultNetworkValidationTimeout  = 5 * time.Minute
	DefaultStorageIntegrationTimeout = 15 * time.Minute
	DefaultGitOpsRegistrationTimeout = 5 * time.Minute
	DefaultReconciliationTimeout     = 20 * time.Minute
	DefaultPostValidationTimeout     = 10 * time.Minute
)

func command(name string) Action {
	return Action{Kind: KindCommand, Command: name}
}

func rollback(name string) *Action {
	a := command(name)
	return &a
}

// DefaultPhases returns the built-in nine-phase onboarding pipeline.
//
// Command names are relative to the configured scripts directory. Only phases
// that change the cluster declare a rollback action.
func DefaultPhases() []Phase {
	return []Phase{
		{
			ID:          PhasePreValidation,
			Order:       1,
			DisplayName: "Pre-onboarding validation",
			Forward:     command("validate-cluster-health.sh"),
			Timeout:     DefaultPreValidationTimeout,
			Skippable:   true,
			Validation:  true,
			AutoFix:     true,
		},
		{
			ID:          PhaseNodePreparation,
			Order:       2,
			DisplayName: "Node preparation",
			Forward:     command("prepare-node.sh"),
			Timeout:     DefaultNodePreparationTimeout,
		},
		{
			ID:          PhaseClusterJoin,
			Order:       3,
			DisplayName: "Cluster join",
			Forward:     command("join-cluster.sh"),
			Rollback:    rollback("remove-node.sh"),
			Timeout:     DefaultClusterJoinTimeout,
		},
		{
			ID:          PhaseNodeReady,
			Order:       4,
			DisplayName: "Node readiness",
			Forward:     Action{Kind: KindKubeNodeReady},
			Timeout:     DefaultNodeReadyTimeout,
			Validation:  true,
		},
		{
			ID:          PhaseNetworkValidation,
			Order:       5,
			DisplayName: "Network validation",
			Forward:     command("validate-network.sh"),
			Timeout:     DefaultNetworkValidationTimeout,
			Validation:  true,
			AutoFix:     true,
		},
		{
			ID:          PhaseStorageIntegration,
			Order:       6,
			DisplayName: "Storage integration",
			Forward:     command("integrate-storage.sh"),
			Rollback:    rollback("detach-storage.sh"),
			Timeout:     DefaultStorageIntegrationTimeout,
		},
		{
			ID:          PhaseGitOpsRegistration,
			Order:       7,
			DisplayName: "GitOps registration",
			Forward:     command("register-gitops.sh"),
			Rollback:    rollback("deregister-gitops.sh"),
			Timeout:     DefaultGitOpsRegistrationTimeout,
		},
		{
			ID:          PhaseReconciliation,
			Order:       8,
			DisplayName: "GitOps reconciliation",
			Forward:     command("wait-reconciliation.sh"),
			Timeout:     DefaultReconciliationTimeout,
		},
		{
			ID:          PhasePostValidation,
			Order:       9,
			DisplayName: "Post-onboarding validation",
			Forward:     command("validate-node.sh"),
			Timeout:     DefaultPostValidationTimeout,
			Validation:  true,
			AutoFix:     true,
		},
	}
}

// Default returns a registry of the built-in phases.
func Default() *Registry {
	r, err := New(DefaultPhases())
	if err != nil {
		panic("registry: invalid built-in phases: " + err.Error())
	}
	return r
}
