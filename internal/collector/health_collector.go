package collector

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/tilakarasunh/K8s-health-guardian/internal/kube"
	"github.com/tilakarasunh/K8s-health-guardian/internal/snapshot"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// Config bounds the raw collection before summarization.
type Config struct {
	EventWindow        time.Duration // trailing window for events, default 24h
	EventLimit         int           // hard cap on collected events, default 50
	HighPodCPUMilli    int64         // per-pod CPU flag threshold, default 500m
	HighPodMemoryBytes int64         // per-pod memory flag threshold, default 1Gi
}

// HealthCollector assembles one Snapshot from the cluster and metrics APIs.
type HealthCollector struct {
	client  *kube.Client
	logger  *slog.Logger
	metrics *MetricsCollector
	cfg     Config
}

// NewHealthCollector returns a configured collector. Zero config fields fall
// back to defaults.
func NewHealthCollector(client *kube.Client, cfg Config, logger *slog.Logger) *HealthCollector {
	if cfg.EventWindow <= 0 {
		cfg.EventWindow = 24 * time.Hour
	}
	if cfg.EventLimit <= 0 {
		cfg.EventLimit = 50
	}
	if cfg.HighPodCPUMilli <= 0 {
		cfg.HighPodCPUMilli = 500
	}
	if cfg.HighPodMemoryBytes <= 0 {
		cfg.HighPodMemoryBytes = 1024 * 1024 * 1024
	}
	return &HealthCollector{
		client:  client,
		logger:  logger,
		metrics: NewMetricsCollector(client, cfg.HighPodCPUMilli, cfg.HighPodMemoryBytes, logger),
		cfg:     cfg,
	}
}

// Collect fetches pods, nodes, events, and usage in a single pass. A metrics
// API failure leaves ResourceUsage nil; every other list error fails the
// collection.
func (c *HealthCollector) Collect(ctx context.Context) (snapshot.Snapshot, error) {
	start := time.Now()

	pods, err := c.client.Kubernetes.CoreV1().Pods("").List(ctx, metav1.ListOptions{})
	if err != nil {
		return snapshot.Snapshot{}, fmt.Errorf("list pods: %w", err)
	}
	nodes, err := c.client.Kubernetes.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
	if err != nil {
		return snapshot.Snapshot{}, fmt.Errorf("list nodes: %w", err)
	}
	events, err := c.client.Kubernetes.CoreV1().Events("").List(ctx, metav1.ListOptions{})
	if err != nil {
		return snapshot.Snapshot{}, fmt.Errorf("list events: %w", err)
	}

	now := time.Now().UTC()
	snap := snapshot.Snapshot{
		ClusterName: c.client.ClusterName,
		Timestamp:   now,
		Pods:        censusPods(pods.Items, now),
		Nodes:       collectNodes(nodes.Items),
		Events:      c.recentEvents(events.Items, now),
		FailedPods:  collectFailedPods(pods.Items),
	}

	usage, err := c.metrics.Collect(ctx)
	if err != nil {
		c.logger.Warn("resource usage unavailable", slog.String("error", err.Error()))
	} else {
		snap.ResourceUsage = usage
	}

	c.logger.Debug("collected cluster snapshot",
		slog.Int("pods", snap.Pods.Total),
		slog.Int("nodes", len(snap.Nodes)),
		slog.Int("events", len(snap.Events)),
		slog.Duration("duration", time.Since(start)))
	return snap, nil
}

// censusPods counts pods by phase. Succeeded pods (completed jobs) are not a
// health signal and are excluded, which keeps total equal to the sum of the
// four phase counters.
func censusPods(pods []corev1.Pod, now time.Time) snapshot.PodCensus {
	census := snapshot.PodCensus{Details: make([]snapshot.PodDetail, 0, len(pods))}
	for _, pod := range pods {
		switch pod.Status.Phase {
		case corev1.PodRunning:
			census.Running++
		case corev1.PodPending:
			census.Pending++
		case corev1.PodFailed:
			census.Failed++
		case corev1.PodUnknown:
			census.Unknown++
		default:
			continue
		}
		census.Total++
		census.Details = append(census.Details, snapshot.PodDetail{
			Name:      pod.Name,
			Namespace: pod.Namespace,
			Phase:     string(pod.Status.Phase),
			Restarts:  totalRestarts(pod.Status.ContainerStatuses),
			AgeDays:   int(now.Sub(pod.CreationTimestamp.Time).Hours() / 24),
		})
	}
	return census
}

func collectNodes(nodes []corev1.Node) []snapshot.Node {
	result := make([]snapshot.Node, 0, len(nodes))
	for _, node := range nodes {
		conditions := make([]snapshot.NodeCondition, 0, len(node.Status.Conditions))
		for _, cond := range node.Status.Conditions {
			conditions = append(conditions, snapshot.NodeCondition{
				Type:   string(cond.Type),
				Status: string(cond.Status),
			})
		}
		result = append(result, snapshot.Node{
			Name:                   node.Name,
			CPUCapacityMilli:       node.Status.Capacity.Cpu().MilliValue(),
			MemoryCapacityBytes:    node.Status.Capacity.Memory().Value(),
			CPUAllocatableMilli:    node.Status.Allocatable.Cpu().MilliValue(),
			MemoryAllocatableBytes: node.Status.Allocatable.Memory().Value(),
			Conditions:             conditions,
		})
	}
	return result
}

// recentEvents keeps events inside the trailing window, newest first, capped
// at the collector limit.
func (c *HealthCollector) recentEvents(events []corev1.Event, now time.Time) []snapshot.Event {
	cutoff := now.Add(-c.cfg.EventWindow)
	recent := make([]snapshot.Event, 0, len(events))
	for _, ev := range events {
		ts := eventTimestamp(ev)
		if ts.IsZero() || ts.Before(cutoff) {
			continue
		}
		recent = append(recent, snapshot.Event{
			Timestamp: ts,
			Type:      ev.Type,
			Reason:    ev.Reason,
			Message:   ev.Message,
			Object:    fmt.Sprintf("%s/%s", ev.InvolvedObject.Kind, ev.InvolvedObject.Name),
			Namespace: ev.Namespace,
			Count:     ev.Count,
		})
	}
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].Timestamp.After(recent[j].Timestamp)
	})
	if len(recent) > c.cfg.EventLimit {
		recent = recent[:c.cfg.EventLimit]
	}
	return recent
}

func eventTimestamp(ev corev1.Event) time.Time {
	if !ev.LastTimestamp.IsZero() {
		return ev.LastTimestamp.Time
	}
	if !ev.EventTime.IsZero() {
		return ev.EventTime.Time
	}
	return ev.CreationTimestamp.Time
}

// collectFailedPods keeps diagnostics for pods in phase Failed so the list
// length always matches the census Failed counter.
func collectFailedPods(pods []corev1.Pod) []snapshot.FailedPod {
	failed := make([]snapshot.FailedPod, 0)
	for _, pod := range pods {
		if pod.Status.Phase != corev1.PodFailed {
			continue
		}
		containers := make([]snapshot.ContainerStatus, 0, len(pod.Status.ContainerStatuses))
		for _, cs := range pod.Status.ContainerStatuses {
			containers = append(containers, snapshot.ContainerStatus{
				Name:         cs.Name,
				Ready:        cs.Ready,
				RestartCount: cs.RestartCount,
				State:        containerState(cs.State),
			})
		}
		failed = append(failed, snapshot.FailedPod{
			Name:       pod.Name,
			Namespace:  pod.Namespace,
			Reason:     pod.Status.Reason,
			Message:    pod.Status.Message,
			Containers: containers,
		})
	}
	return failed
}

func containerState(state corev1.ContainerState) string {
	switch {
	case state.Waiting != nil:
		return "Waiting: " + state.Waiting.Reason
	case state.Terminated != nil:
		return "Terminated: " + state.Terminated.Reason
	case state.Running != nil:
		return "Running"
	default:
		return "Unknown"
	}
}

func totalRestarts(statuses []corev1.ContainerStatus) int32 {
	var total int32
	for _, cs := range statuses {
		total += cs.RestartCount
	}
	return total
}
