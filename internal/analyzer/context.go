package analyzer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tilakarasunh/K8s-health-guardian/internal/snapshot"
)

const (
	// DefaultEventCap bounds how many events the digest spells out.
	DefaultEventCap = 20
	// DefaultFailedPodCap bounds how many failed pods the digest spells out.
	DefaultFailedPodCap = 10

	eventMessageLimit = 120
)

// Context is the bounded, analysis-ready digest of a Snapshot that is
// embedded into the remote analyzer prompt.
type Context struct {
	Text string
}

// SummarizerConfig sets the digest caps. Zero values fall back to defaults.
type SummarizerConfig struct {
	EventCap     int
	FailedPodCap int
}

// Summarizer condenses a Snapshot into a Context. Summarize is a pure
// function of its input: the same Snapshot always yields the same Context.
type Summarizer struct {
	eventCap     int
	failedPodCap int
}

// NewSummarizer returns a Summarizer with the configured caps.
func NewSummarizer(cfg SummarizerConfig) *Summarizer {
	if cfg.EventCap <= 0 {
		cfg.EventCap = DefaultEventCap
	}
	if cfg.FailedPodCap <= 0 {
		cfg.FailedPodCap = DefaultFailedPodCap
	}
	return &Summarizer{eventCap: cfg.EventCap, failedPodCap: cfg.FailedPodCap}
}

// Summarize builds the digest. Overflow beyond a cap is reported as an
// explicit "and N more" line rather than dropped silently.
func (s *Summarizer) Summarize(snap snapshot.Snapshot) Context {
	var b strings.Builder

	fmt.Fprintf(&b, "Cluster: %s (observed %s)\n", snap.ClusterName, snap.Timestamp.UTC().Format("2006-01-02T15:04:05Z"))
	fmt.Fprintf(&b, "Pod Summary: %d total, %d running, %d pending, %d failed, %d unknown\n",
		snap.Pods.Total, snap.Pods.Running, snap.Pods.Pending, snap.Pods.Failed, snap.Pods.Unknown)

	s.writeNodes(&b, snap.Nodes)
	s.writeUsage(&b, snap.ResourceUsage)
	s.writeEvents(&b, snap.Events)
	s.writeFailedPods(&b, snap.FailedPods)

	return Context{Text: b.String()}
}

func (s *Summarizer) writeNodes(b *strings.Builder, nodes []snapshot.Node) {
	fmt.Fprintf(b, "Nodes: %d total\n", len(nodes))
	for _, node := range nodes {
		for _, cond := range node.Conditions {
			if conditionAbnormal(cond) {
				fmt.Fprintf(b, "  - node %s condition %s=%s\n", node.Name, cond.Type, cond.Status)
			}
		}
	}
}

func (s *Summarizer) writeUsage(b *strings.Builder, usage *snapshot.ResourceUsage) {
	if usage == nil {
		b.WriteString("Resource Usage: metrics unavailable\n")
		return
	}
	fmt.Fprintf(b, "Resource Usage: %dm CPU, %dMi memory across %d pods; %d pods high CPU, %d pods high memory\n",
		usage.CPUUsageMilliTotal, usage.MemoryUsageBytesTotal/(1024*1024), usage.PodCount,
		len(usage.HighCPUPods), len(usage.HighMemoryPods))
}

func (s *Summarizer) writeEvents(b *strings.Builder, events []snapshot.Event) {
	warnings := 0
	for _, ev := range events {
		if ev.Type == "Warning" {
			warnings++
		}
	}
	fmt.Fprintf(b, "Recent Events: %d warnings, %d normal\n", warnings, len(events)-warnings)
	if len(events) == 0 {
		return
	}

	selected := sampleEvents(events, s.eventCap)
	b.WriteString("Top Events:\n")
	for _, ev := range selected {
		fmt.Fprintf(b, "  - [%s] %s (%s): %s\n", ev.Type, ev.Reason, ev.Object, truncate(ev.Message, eventMessageLimit))
	}
	if rest := len(events) - len(selected); rest > 0 {
		fmt.Fprintf(b, "  ... and %d more events\n", rest)
	}
}

func (s *Summarizer) writeFailedPods(b *strings.Builder, failed []snapshot.FailedPod) {
	if len(failed) == 0 {
		return
	}
	fmt.Fprintf(b, "Failed Pods: %d pods in failed state\n", len(failed))
	shown := failed
	if len(shown) > s.failedPodCap {
		shown = shown[:s.failedPodCap]
	}
	for _, pod := range shown {
		reason := pod.Reason
		if reason == "" {
			reason = "Unknown"
		}
		fmt.Fprintf(b, "  - %s/%s: %s\n", pod.Namespace, pod.Name, reason)
	}
	if rest := len(failed) - len(shown); rest > 0 {
		fmt.Fprintf(b, "  ... and %d more failed pods\n", rest)
	}
}

// sampleEvents picks up to cap events: warnings before normal events, most
// recent first inside each class. The sort is stable so that input order
// breaks timestamp ties, keeping the selection deterministic.
func sampleEvents(events []snapshot.Event, limit int) []snapshot.Event {
	sorted := make([]snapshot.Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		iw, jw := sorted[i].Type == "Warning", sorted[j].Type == "Warning"
		if iw != jw {
			return iw
		}
		return sorted[i].Timestamp.After(sorted[j].Timestamp)
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

func conditionAbnormal(cond snapshot.NodeCondition) bool {
	if cond.Type == "Ready" {
		return cond.Status != "True"
	}
	return cond.Status == "True"
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
