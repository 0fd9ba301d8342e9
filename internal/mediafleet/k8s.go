package mediafleet

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
)

// PodLabelKey is the label Kubernetes-deployed media-node pods are
// expected to carry, used to scope the list call below.
const PodLabelKey = "app"

// K8sCheck cross-checks the pub/sub-tracked media-node fleet against the
// Kubernetes Pods actually running in a namespace, per SPEC_FULL.md A7.
// It is purely supplementary diagnostics: a mismatch is logged, never
// enforced, and it never gates call flow.
type K8sCheck struct {
	client    kubernetes.Interface
	namespace string
	selector  string
}

// NewK8sCheck builds a K8sCheck using in-cluster configuration. It
// returns an error if no in-cluster config is available, which callers
// should treat as "cross-check disabled" rather than fatal.
func NewK8sCheck(namespace, selector string) (*K8sCheck, error) {
	cfg, err := rest.InClusterConfig()
	if err != nil {
		return nil, fmt.Errorf("mediafleet: no in-cluster kubernetes config: %w", err)
	}
	client, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("mediafleet: failed to build kubernetes client: %w", err)
	}
	return NewK8sCheckWithClient(client, namespace, selector), nil
}

// NewK8sCheckWithClient builds a K8sCheck with an injected client (for testing).
func NewK8sCheckWithClient(client kubernetes.Interface, namespace, selector string) *K8sCheck {
	return &K8sCheck{client: client, namespace: namespace, selector: selector}
}

// Mismatch describes a discrepancy between the pub/sub directory and the
// Kubernetes Pod listing.
type Mismatch struct {
	// TrackedNotRunning are node ids the directory believes are live but
	// that have no corresponding running Pod.
	TrackedNotRunning []string
	// RunningNotTracked are running Pod names with no corresponding
	// directory entry (the node has not yet announced itself).
	RunningNotTracked []string
}

// Empty reports whether the cross-check found no discrepancies.
func (m Mismatch) Empty() bool {
	return len(m.TrackedNotRunning) == 0 && len(m.RunningNotTracked) == 0
}

// Check lists running media-node Pods in the configured namespace and
// compares their names against directory's tracked node ids.
func (k *K8sCheck) Check(ctx context.Context, directory *Directory) (Mismatch, error) {
	pods, err := k.client.CoreV1().Pods(k.namespace).List(ctx, metav1.ListOptions{
		LabelSelector: k.selector,
	})
	if err != nil {
		return Mismatch{}, fmt.Errorf("mediafleet: failed to list media-node pods: %w", err)
	}

	running := make(map[string]bool, len(pods.Items))
	for _, pod := range pods.Items {
		if pod.Status.Phase == corev1.PodRunning {
			running[pod.Name] = true
		}
	}

	tracked := directory.NodeIDs()
	trackedSet := make(map[string]bool, len(tracked))
	for _, id := range tracked {
		trackedSet[id] = true
	}

	var mismatch Mismatch
	for _, id := range tracked {
		if !running[id] {
			mismatch.TrackedNotRunning = append(mismatch.TrackedNotRunning, id)
		}
	}
	for name := range running {
		if !trackedSet[name] {
			mismatch.RunningNotTracked = append(mismatch.RunningNotTracked, name)
		}
	}

	return mismatch, nil
}

// RunPeriodic runs Check every interval until ctx is cancelled, logging
// any discrepancy it finds. It never returns an error; a failed list
// call is logged and retried on the next tick.
func (k *K8sCheck) RunPeriodic(ctx context.Context, directory *Directory, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			mismatch, err := k.Check(ctx, directory)
			if err != nil {
				slog.Warn("mediafleet: k8s cross-check failed", "error", err)
				continue
			}
			if !mismatch.Empty() {
				slog.Warn("mediafleet: k8s cross-check found discrepancy",
					"trackedNotRunning", mismatch.TrackedNotRunning,
					"runningNotTracked", mismatch.RunningNotTracked)
			}
		case <-ctx.Done():
			return
		}
	}
}
