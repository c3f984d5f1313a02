package collector

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/tilakarasunh/K8s-health-guardian/internal/kube"
	"github.com/tilakarasunh/K8s-health-guardian/internal/snapshot"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// MetricsCollector aggregates usage readings from the metrics.k8s.io API.
type MetricsCollector struct {
	client          *kube.Client
	highCPUMilli    int64
	highMemoryBytes int64
	logger          *slog.Logger
}

// NewMetricsCollector returns a configured collector.
func NewMetricsCollector(client *kube.Client, highCPUMilli, highMemoryBytes int64, logger *slog.Logger) *MetricsCollector {
	return &MetricsCollector{
		client:          client,
		highCPUMilli:    highCPUMilli,
		highMemoryBytes: highMemoryBytes,
		logger:          logger,
	}
}

// Collect sums per-pod usage across the cluster and flags pods above the
// per-pod thresholds. The flagged lists are sorted by usage, heaviest first,
// with the pod name breaking ties so the output is deterministic.
func (c *MetricsCollector) Collect(ctx context.Context) (*snapshot.ResourceUsage, error) {
	metricsList, err := c.client.Metrics.MetricsV1beta1().PodMetricses("").List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("list pod metrics: %w", err)
	}

	usage := &snapshot.ResourceUsage{
		HighCPUPods:    []snapshot.PodUsage{},
		HighMemoryPods: []snapshot.PodUsage{},
	}
	for _, m := range metricsList.Items {
		var cpuMilli, memBytes int64
		for _, container := range m.Containers {
			cpuMilli += container.Usage.Cpu().MilliValue()
			memBytes += container.Usage.Memory().Value()
		}
		usage.CPUUsageMilliTotal += cpuMilli
		usage.MemoryUsageBytesTotal += memBytes
		usage.PodCount++

		if cpuMilli > c.highCPUMilli {
			usage.HighCPUPods = append(usage.HighCPUPods, snapshot.PodUsage{
				Name: m.Name, Namespace: m.Namespace, CPUMilli: cpuMilli, MemoryBytes: memBytes,
			})
		}
		if memBytes > c.highMemoryBytes {
			usage.HighMemoryPods = append(usage.HighMemoryPods, snapshot.PodUsage{
				Name: m.Name, Namespace: m.Namespace, CPUMilli: cpuMilli, MemoryBytes: memBytes,
			})
		}
	}

	sort.SliceStable(usage.HighCPUPods, func(i, j int) bool {
		a, b := usage.HighCPUPods[i], usage.HighCPUPods[j]
		if a.CPUMilli != b.CPUMilli {
			return a.CPUMilli > b.CPUMilli
		}
		return a.Name < b.Name
	})
	sort.SliceStable(usage.HighMemoryPods, func(i, j int) bool {
		a, b := usage.HighMemoryPods[i], usage.HighMemoryPods[j]
		if a.MemoryBytes != b.MemoryBytes {
			return a.MemoryBytes > b.MemoryBytes
		}
		return a.Name < b.Name
	})

	return usage, nil
}
