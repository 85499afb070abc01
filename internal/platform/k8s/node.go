package k8s

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/kubernetes"

	"github.com/imamik/onboard/internal/action"
)

// DefaultPollInterval is how often the node is checked.
const DefaultPollInterval = 5 * time.Second

// NodeWaiter waits until a node reports Ready and then applies the configured
// labels. It implements action.Runner; spec.Target names the node.
type NodeWaiter struct {
	client   kubernetes.Interface
	interval time.Duration
	labels   map[string]string
}

// NodeWaiterOption configures a NodeWaiter.
type NodeWaiterOption func(*NodeWaiter)

// WithPollInterval overrides DefaultPollInterval.
func WithPollInterval(d time.Duration) NodeWaiterOption {
	return func(w *NodeWaiter) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithLabels sets labels to apply once the node is Ready.
func WithLabels(labels map[string]string) NodeWaiterOption {
	return func(w *NodeWaiter) {
		w.labels = labels
	}
}

// NewNodeWaiter returns a NodeWaiter using client.
func NewNodeWaiter(client kubernetes.Interface, opts ...NodeWaiterOption) *NodeWaiter {
	w := &NodeWaiter{client: client, interval: DefaultPollInterval}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run implements action.Runner.
func (w *NodeWaiter) Run(ctx context.Context, spec action.Spec, stdout, stderr io.Writer) error {
	name := spec.Target
	if name == "" {
		return &action.ExitError{Code: 2, Err: errors.New("node name is not set")}
	}

	var lastReason string
	err := wait.PollUntilContextCancel(ctx, w.interval, true, func(ctx context.Context) (bool, error) {
		node, err := w.client.CoreV1().Nodes().Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			reason := err.Error()
			if apierrors.IsNotFound(err) {
				reason = "not registered yet"
			}
			if reason != lastReason {
				_, _ = fmt.Fprintf(stdout, "node %s: %s\n", name, reason)
				lastReason = reason
			}
			if apierrors.IsUnauthorized(err) || apierrors.IsForbidden(err) {
				return false, err
			}
			return false, nil
		}

		ready, reason := nodeReady(node)
		if reason != lastReason {
			_, _ = fmt.Fprintf(stdout, "node %s: %s\n", name, reason)
			lastReason = reason
		}
		return ready, nil
	})
	if err != nil {
		if ctx.Err() != nil {
			_, _ = fmt.Fprintf(stderr, "node %s is not Ready: %s\n", name, lastReason)
			return ctx.Err()
		}
		_, _ = fmt.Fprintf(stderr, "failed to check node %s: %v\n", name, err)
		return &action.ExitError{Code: 1, Err: err}
	}

	if len(w.labels) > 0 {
		if err := w.applyLabels(ctx, name); err != nil {
			_, _ = fmt.Fprintln(stderr, err.Error())
			return &action.ExitError{Code: 1, Err: err}
		}
		_, _ = fmt.Fprintf(stdout, "node %s: labelled %s\n", name, labelList(w.labels))
	}
	return nil
}

func (w *NodeWaiter) applyLabels(ctx context.Context, name string) error {
	patch, err := json.Marshal(map[string]any{
		"metadata": map[string]any{"labels": w.labels},
	})
	if err != nil {
		return fmt.Errorf("failed to encode label patch: %w", err)
	}
	if _, err := w.client.CoreV1().Nodes().Patch(ctx, name, types.MergePatchType, patch, metav1.PatchOptions{}); err != nil {
		return fmt.Errorf("failed to label node %s: %w", name, err)
	}
	return nil
}

// nodeReady reports the Ready condition and a short description of it.
func nodeReady(node *corev1.Node) (bool, string) {
	for _, c := range node.Status.Conditions {
		if c.Type != corev1.NodeReady {
			continue
		}
		if c.Status == corev1.ConditionTrue {
			return true, "Ready"
		}
		if c.Reason != "" {
			return false, fmt.Sprintf("NotReady (%s)", c.Reason)
		}
		return false, "NotReady"
	}
	return false, "no Ready condition reported"
}

func labelList(labels map[string]string) string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := ""
	for i, k := range keys {
		if i > 0 {
			out += ","
		}
		out += k + "=" + labels[k]
	}
	return out
}
