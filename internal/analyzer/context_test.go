package analyzer

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/tilakarasunh/K8s-health-guardian/internal/snapshot"
)

func TestSummarizeBasicSections(t *testing.T) {
	snap := snapshot.Snapshot{
		ClusterName: "prod-east",
		Timestamp:   time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC),
		Pods:        snapshot.PodCensus{Total: 10, Running: 7, Pending: 1, Failed: 1, Unknown: 1},
		Nodes: []snapshot.Node{
			{Name: "node-1", Conditions: []snapshot.NodeCondition{{Type: "Ready", Status: "True"}}},
			{Name: "node-2", Conditions: []snapshot.NodeCondition{{Type: "Ready", Status: "False"}, {Type: "MemoryPressure", Status: "True"}}},
		},
		ResourceUsage: &snapshot.ResourceUsage{
			CPUUsageMilliTotal:    1500,
			MemoryUsageBytesTotal: 512 * 1024 * 1024,
			PodCount:              9,
		},
	}

	text := NewSummarizer(SummarizerConfig{}).Summarize(snap).Text

	for _, want := range []string{
		"Cluster: prod-east (observed 2026-03-01T12:30:00Z)",
		"Pod Summary: 10 total, 7 running, 1 pending, 1 failed, 1 unknown",
		"Nodes: 2 total",
		"node node-2 condition Ready=False",
		"node node-2 condition MemoryPressure=True",
		"Resource Usage: 1500m CPU, 512Mi memory across 9 pods",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("digest missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "node node-1") {
		t.Fatalf("healthy node should not be listed:\n%s", text)
	}
}

func TestSummarizeIsIdempotent(t *testing.T) {
	snap := snapshot.Snapshot{
		ClusterName: "test",
		Timestamp:   time.Unix(1700000000, 0),
		Pods:        snapshot.PodCensus{Total: 1, Running: 1},
		Events: []snapshot.Event{
			{Timestamp: time.Unix(1700000000, 0), Type: "Warning", Reason: "BackOff", Object: "pod/x", Message: "restarting"},
		},
	}

	summarizer := NewSummarizer(SummarizerConfig{})
	first := summarizer.Summarize(snap)
	second := summarizer.Summarize(snap)
	if first.Text != second.Text {
		t.Fatalf("digest not stable:\n%s\n---\n%s", first.Text, second.Text)
	}
}

func TestSummarizeMetricsUnavailable(t *testing.T) {
	snap := snapshot.Snapshot{ClusterName: "test", Pods: snapshot.PodCensus{Total: 1, Running: 1}}

	text := NewSummarizer(SummarizerConfig{}).Summarize(snap).Text
	if !strings.Contains(text, "Resource Usage: metrics unavailable") {
		t.Fatalf("expected explicit metrics-unavailable line:\n%s", text)
	}
}

func TestSummarizeEventCapPrefersWarningsThenRecency(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	var events []snapshot.Event
	for i := 0; i < 25; i++ {
		events = append(events, snapshot.Event{
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Type:      "Warning",
			Reason:    fmt.Sprintf("Warn%02d", i),
			Object:    "pod/w",
		})
	}
	for i := 0; i < 25; i++ {
		events = append(events, snapshot.Event{
			Timestamp: base.Add(time.Duration(100+i) * time.Minute),
			Type:      "Normal",
			Reason:    fmt.Sprintf("Norm%02d", i),
			Object:    "pod/n",
		})
	}

	snap := snapshot.Snapshot{ClusterName: "test", Events: events}
	text := NewSummarizer(SummarizerConfig{EventCap: 20}).Summarize(snap).Text

	if !strings.Contains(text, "Recent Events: 25 warnings, 25 normal") {
		t.Fatalf("expected event counts line:\n%s", text)
	}
	listed := strings.Count(text, "  - [")
	if listed != 20 {
		t.Fatalf("expected exactly 20 listed events, got %d:\n%s", listed, text)
	}
	if strings.Contains(text, "[Normal]") {
		t.Fatalf("normal events listed while warnings overflow the cap:\n%s", text)
	}
	// Most recent warning comes first, the 5 oldest warnings fall off.
	if !strings.Contains(text, "Warn24") {
		t.Fatalf("newest warning missing:\n%s", text)
	}
	for i := 0; i < 5; i++ {
		if strings.Contains(text, fmt.Sprintf("Warn%02d", i)) {
			t.Fatalf("stale warning Warn%02d should be sampled out:\n%s", i, text)
		}
	}
	if !strings.Contains(text, "... and 30 more events") {
		t.Fatalf("expected overflow line:\n%s", text)
	}
}

func TestSummarizeFailedPodCap(t *testing.T) {
	var failed []snapshot.FailedPod
	for i := 0; i < 13; i++ {
		failed = append(failed, snapshot.FailedPod{
			Name:      fmt.Sprintf("pod-%02d", i),
			Namespace: "default",
			Reason:    "Evicted",
		})
	}

	snap := snapshot.Snapshot{ClusterName: "test", Pods: snapshot.PodCensus{Total: 13, Failed: 13}, FailedPods: failed}
	text := NewSummarizer(SummarizerConfig{FailedPodCap: 10}).Summarize(snap).Text

	if !strings.Contains(text, "Failed Pods: 13 pods in failed state") {
		t.Fatalf("expected failed pod count:\n%s", text)
	}
	if !strings.Contains(text, "default/pod-09: Evicted") {
		t.Fatalf("expected tenth failed pod listed:\n%s", text)
	}
	if strings.Contains(text, "pod-10") {
		t.Fatalf("pod beyond cap should not be listed:\n%s", text)
	}
	if !strings.Contains(text, "... and 3 more failed pods") {
		t.Fatalf("expected failed pod overflow line:\n%s", text)
	}
}

func TestSummarizeFailedPodReasonDefaultsToUnknown(t *testing.T) {
	snap := snapshot.Snapshot{
		ClusterName: "test",
		Pods:        snapshot.PodCensus{Total: 1, Failed: 1},
		FailedPods:  []snapshot.FailedPod{{Name: "mystery", Namespace: "default"}},
	}

	text := NewSummarizer(SummarizerConfig{}).Summarize(snap).Text
	if !strings.Contains(text, "default/mystery: Unknown") {
		t.Fatalf("expected Unknown reason placeholder:\n%s", text)
	}
}

func TestSummarizeTruncatesLongEventMessages(t *testing.T) {
	snap := snapshot.Snapshot{
		ClusterName: "test",
		Events: []snapshot.Event{
			{Type: "Warning", Reason: "Chatty", Object: "pod/x", Message: strings.Repeat("a", 300)},
		},
	}

	text := NewSummarizer(SummarizerConfig{}).Summarize(snap).Text
	if !strings.Contains(text, strings.Repeat("a", eventMessageLimit)+"...") {
		t.Fatalf("expected truncated message:\n%s", text)
	}
	if strings.Contains(text, strings.Repeat("a", eventMessageLimit+1)) {
		t.Fatalf("message not truncated:\n%s", text)
	}
}
