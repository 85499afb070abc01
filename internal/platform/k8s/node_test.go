package k8s

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/kubernetes/fake"
	k8stesting "k8s.io/client-go/testing"

	"github.com/imamik/onboard/internal/action"
)

func node(name string, status corev1.ConditionStatus, reason string) *corev1.Node {
	return &corev1.Node{
		ObjectMeta: metav1.ObjectMeta{Name: name},
		Status: corev1.NodeStatus{
			Conditions: []corev1.NodeCondition{
				{Type: corev1.NodeMemoryPressure, Status: corev1.ConditionFalse},
				{Type: corev1.NodeReady, Status: status, Reason: reason},
			},
		},
	}
}

func spec(name string) action.Spec {
	return action.Spec{Name: "node_ready/forward", Kind: action.KindKubeNodeReady, Target: name}
}

func TestNodeReady(t *testing.T) {
	t.Parallel()

	ready, reason := nodeReady(node("n", corev1.ConditionTrue, ""))
	assert.True(t, ready)
	assert.Equal(t, "Ready", reason)

	ready, reason = nodeReady(node("n", corev1.ConditionFalse, "KubeletNotReady"))
	assert.False(t, ready)
	assert.Equal(t, "NotReady (KubeletNotReady)", reason)

	ready, reason = nodeReady(&corev1.Node{})
	assert.False(t, ready)
	assert.Equal(t, "no Ready condition reported", reason)
}

func TestNodeWaiter_Ready(t *testing.T) {
	t.Parallel()

	client := fake.NewSimpleClientset(node("worker-1", corev1.ConditionTrue, ""))
	var stdout bytes.Buffer
	err := NewNodeWaiter(client).Run(context.Background(), spec("worker-1"), &stdout, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "node worker-1: Ready")
}

func TestNodeWaiter_WaitsForRegistrationAndReady(t *testing.T) {
	t.Parallel()

	client := fake.NewSimpleClientset()
	calls := 0
	client.PrependReactor("get", "nodes", func(k8stesting.Action) (bool, runtime.Object, error) {
		calls++
		switch {
		case calls < 2:
			return true, nil, apierrors.NewNotFound(schema.GroupResource{Resource: "nodes"}, "worker-1")
		case calls < 4:
			return true, node("worker-1", corev1.ConditionFalse, "KubeletNotReady"), nil
		}
		return true, node("worker-1", corev1.ConditionTrue, ""), nil
	})

	var stdout bytes.Buffer
	err := NewNodeWaiter(client, WithPollInterval(time.Millisecond)).Run(context.Background(), spec("worker-1"), &stdout, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, 4, calls)
	assert.Equal(t,
		"node worker-1: not registered yet\nnode worker-1: NotReady (KubeletNotReady)\nnode worker-1: Ready\n",
		stdout.String())
}

func TestNodeWaiter_Timeout(t *testing.T) {
	t.Parallel()

	client := fake.NewSimpleClientset(node("worker-1", corev1.ConditionFalse, "KubeletNotReady"))
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	var stderr bytes.Buffer
	err := NewNodeWaiter(client, WithPollInterval(5*time.Millisecond)).Run(ctx, spec("worker-1"), &bytes.Buffer{}, &stderr)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Contains(t, stderr.String(), "NotReady (KubeletNotReady)")
}

func TestNodeWaiter_Forbidden(t *testing.T) {
	t.Parallel()

	client := fake.NewSimpleClientset()
	client.PrependReactor("get", "nodes", func(k8stesting.Action) (bool, runtime.Object, error) {
		return true, nil, apierrors.NewForbidden(schema.GroupResource{Resource: "nodes"}, "worker-1", errors.New("rbac"))
	})

	err := NewNodeWaiter(client, WithPollInterval(time.Millisecond)).Run(context.Background(), spec("worker-1"), &bytes.Buffer{}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Equal(t, 1, action.ExitCode(err))
}

func TestNodeWaiter_NoTarget(t *testing.T) {
	t.Parallel()

	err := NewNodeWaiter(fake.NewSimpleClientset()).Run(context.Background(), spec(""), &bytes.Buffer{}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Equal(t, 2, action.ExitCode(err))
}

func TestNodeWaiter_AppliesLabels(t *testing.T) {
	t.Parallel()

	client := fake.NewSimpleClientset(node("worker-1", corev1.ConditionTrue, ""))
	labels := map[string]string{"node-role.kubernetes.io/worker": "", "topology.kubernetes.io/zone": "fsn1-dc14"}

	var stdout bytes.Buffer
	err := NewNodeWaiter(client, WithLabels(labels)).Run(context.Background(), spec("worker-1"), &stdout, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "labelled node-role.kubernetes.io/worker=,topology.kubernetes.io/zone=fsn1-dc14")

	got, err := client.CoreV1().Nodes().Get(context.Background(), "worker-1", metav1.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, "fsn1-dc14", got.Labels["topology.kubernetes.io/zone"])
	assert.Contains(t, got.Labels, "node-role.kubernetes.io/worker")
}

func TestServerVersion(t *testing.T) {
	t.Parallel()

	client := fake.NewSimpleClientset()
	_, err := ServerVersion(context.Background(), client)
	require.NoError(t, err)
}
