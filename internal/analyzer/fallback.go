package analyzer

import (
	"fmt"
	"sort"

	"github.com/tilakarasunh/K8s-health-guardian/internal/snapshot"
)

// Thresholds are the fixed scoring inputs for the rule-based analyzer.
type Thresholds struct {
	FailedPodPenalty    int     // points per failed pod
	PendingPodPenalty   int     // points per pending pod beyond the tolerance
	PendingPodTolerance int     // pending pods allowed before penalties apply
	CPUUsagePercent     float64 // aggregate CPU usage over capacity, in percent
	MemoryUsagePercent  float64 // aggregate memory usage over capacity, in percent
	UsagePenalty        int     // points per exceeded aggregate threshold
}

// DefaultThresholds returns the documented default scoring inputs.
func DefaultThresholds() Thresholds {
	return Thresholds{
		FailedPodPenalty:    10,
		PendingPodPenalty:   2,
		PendingPodTolerance: 0,
		CPUUsagePercent:     80,
		MemoryUsagePercent:  80,
		UsagePenalty:        10,
	}
}

// FallbackAnalyzer produces a deterministic rule-based Assessment without any
// external I/O. It runs whenever the remote analyzer does not yield Success.
type FallbackAnalyzer struct {
	t Thresholds
}

// NewFallbackAnalyzer returns an analyzer over the given thresholds. Zero
// threshold fields fall back to the defaults.
func NewFallbackAnalyzer(t Thresholds) *FallbackAnalyzer {
	def := DefaultThresholds()
	if t.FailedPodPenalty <= 0 {
		t.FailedPodPenalty = def.FailedPodPenalty
	}
	if t.PendingPodPenalty <= 0 {
		t.PendingPodPenalty = def.PendingPodPenalty
	}
	if t.PendingPodTolerance < 0 {
		t.PendingPodTolerance = def.PendingPodTolerance
	}
	if t.CPUUsagePercent <= 0 {
		t.CPUUsagePercent = def.CPUUsagePercent
	}
	if t.MemoryUsagePercent <= 0 {
		t.MemoryUsagePercent = def.MemoryUsagePercent
	}
	if t.UsagePenalty <= 0 {
		t.UsagePenalty = def.UsagePenalty
	}
	return &FallbackAnalyzer{t: t}
}

// Assess scores the snapshot with fixed penalties. Repeated calls on an
// identical Snapshot yield an identical Assessment, issue order included:
// issues are ranked by severity, then by the fixed detection order below.
func (f *FallbackAnalyzer) Assess(snap snapshot.Snapshot) Assessment {
	score := 100
	var issues []Issue
	var recs []Recommendation

	if failed := snap.Pods.Failed; failed > 0 {
		score -= failed * f.t.FailedPodPenalty
		issues = append(issues, Issue{
			Severity:    SeverityCritical,
			Title:       fmt.Sprintf("%d Failed Pods", failed),
			Description: "Pods are in failed state and need investigation",
		})
		recs = append(recs, Recommendation{
			Priority: PriorityHigh,
			Action:   "Investigate failed pods",
			Command:  "kubectl get pods --field-selector=status.phase=Failed -A",
		})
	}

	if backlog := snap.Pods.Pending - f.t.PendingPodTolerance; backlog > 0 {
		score -= backlog * f.t.PendingPodPenalty
		issues = append(issues, Issue{
			Severity:    SeverityInfo,
			Title:       fmt.Sprintf("%d Pods Pending", snap.Pods.Pending),
			Description: "Pods are waiting to be scheduled",
		})
		recs = append(recs, Recommendation{
			Priority: PriorityMedium,
			Action:   "Review scheduling of pending pods",
			Command:  "kubectl get pods --field-selector=status.phase=Pending -A",
		})
	}

	usage := snap.ResourceUsage
	cpuCap, memCap := capacityTotals(snap.Nodes)

	if usage != nil && cpuCap > 0 && percent(usage.CPUUsageMilliTotal, cpuCap) > f.t.CPUUsagePercent {
		score -= f.t.UsagePenalty
		issues = append(issues, Issue{
			Severity:    SeverityWarning,
			Title:       "High Cluster CPU Usage",
			Description: fmt.Sprintf("Aggregate CPU usage is %.0f%% of node capacity", percent(usage.CPUUsageMilliTotal, cpuCap)),
		})
		recs = appendCommandOnce(recs, Recommendation{
			Priority: PriorityMedium,
			Action:   "Review pod CPU requests and limits",
			Command:  "kubectl top pods -A --sort-by=cpu",
		})
	}
	if usage != nil && memCap > 0 && percent(usage.MemoryUsageBytesTotal, memCap) > f.t.MemoryUsagePercent {
		score -= f.t.UsagePenalty
		issues = append(issues, Issue{
			Severity:    SeverityWarning,
			Title:       "High Cluster Memory Usage",
			Description: fmt.Sprintf("Aggregate memory usage is %.0f%% of node capacity", percent(usage.MemoryUsageBytesTotal, memCap)),
		})
		recs = appendCommandOnce(recs, Recommendation{
			Priority: PriorityMedium,
			Action:   "Review pod memory requests and limits",
			Command:  "kubectl top pods -A --sort-by=memory",
		})
	}
	if usage != nil && len(usage.HighCPUPods) > 0 {
		issues = append(issues, Issue{
			Severity:    SeverityWarning,
			Title:       "High CPU Pods Detected",
			Description: fmt.Sprintf("%d pods exceed the per-pod CPU threshold", len(usage.HighCPUPods)),
		})
		recs = appendCommandOnce(recs, Recommendation{
			Priority: PriorityMedium,
			Action:   "Review pod CPU requests and limits",
			Command:  "kubectl top pods -A --sort-by=cpu",
		})
	}
	if usage != nil && len(usage.HighMemoryPods) > 0 {
		issues = append(issues, Issue{
			Severity:    SeverityWarning,
			Title:       "High Memory Pods Detected",
			Description: fmt.Sprintf("%d pods exceed the per-pod memory threshold", len(usage.HighMemoryPods)),
		})
		recs = appendCommandOnce(recs, Recommendation{
			Priority: PriorityMedium,
			Action:   "Review pod memory requests and limits",
			Command:  "kubectl top pods -A --sort-by=memory",
		})
	}

	nodeIssues := false
	for _, node := range snap.Nodes {
		for _, cond := range node.Conditions {
			if conditionAbnormal(cond) {
				nodeIssues = true
				issues = append(issues, Issue{
					Severity:    SeverityInfo,
					Title:       fmt.Sprintf("Node %s Condition %s", node.Name, cond.Type),
					Description: fmt.Sprintf("Node %s reports condition %s=%s", node.Name, cond.Type, cond.Status),
				})
			}
		}
	}
	if nodeIssues {
		recs = append(recs, Recommendation{
			Priority: PriorityMedium,
			Action:   "Inspect affected node conditions",
			Command:  "kubectl describe nodes",
		})
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	sort.SliceStable(issues, func(i, j int) bool {
		return severityRank(issues[i].Severity) < severityRank(issues[j].Severity)
	})

	if len(recs) == 0 {
		recs = append(recs, Recommendation{
			Priority: PriorityLow,
			Action:   "Continue monitoring",
			Command:  "kubectl get pods -A",
		})
	}

	return Assessment{
		HealthScore: score,
		Summary:     summaryForScore(score),
		Issues:      issues,
		Predictions: []Prediction{
			{Timeframe: "24-48h", Issue: "Insufficient data for forecasting without AI analysis", Probability: "unknown"},
		},
		Recommendations: recs,
		Source:          SourceFallback,
	}
}

func summaryForScore(score int) string {
	switch {
	case score >= 90:
		return "Cluster is healthy with minor issues"
	case score >= 70:
		return "Cluster has some issues requiring attention"
	default:
		return "Cluster has significant issues requiring immediate attention"
	}
}

func capacityTotals(nodes []snapshot.Node) (cpuMilli, memBytes int64) {
	for _, node := range nodes {
		cpuMilli += node.CPUCapacityMilli
		memBytes += node.MemoryCapacityBytes
	}
	return cpuMilli, memBytes
}

func percent(used, capacity int64) float64 {
	return float64(used) / float64(capacity) * 100
}

// appendCommandOnce keeps recommendations 1:1 with issue categories that
// share a remediation command.
func appendCommandOnce(recs []Recommendation, rec Recommendation) []Recommendation {
	for _, existing := range recs {
		if existing.Command == rec.Command {
			return recs
		}
	}
	return append(recs, rec)
}
