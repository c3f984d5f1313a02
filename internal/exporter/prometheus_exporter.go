package exporter

import (
	"net/http"

	"github.com/tilakarasunh/K8s-health-guardian/internal/api"
	"github.com/tilakarasunh/K8s-health-guardian/internal/snapshot"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusExporter exposes the latest assessment to Prometheus in serve mode.
type PrometheusExporter struct {
	registry      *prometheus.Registry
	healthScore   *prometheus.GaugeVec
	podsByPhase   *prometheus.GaugeVec
	failedPods    *prometheus.GaugeVec
	warningEvents *prometheus.GaugeVec
	issues        *prometheus.GaugeVec
	lastRun       *prometheus.GaugeVec
}

// NewPrometheusExporter initializes the metric collectors.
func NewPrometheusExporter() *PrometheusExporter {
	reg := prometheus.NewRegistry()

	healthScore := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "healthguardian_health_score",
		Help: "Latest cluster health score (0-100)",
	}, []string{"cluster_name", "source"})

	podsByPhase := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "healthguardian_pods",
		Help: "Pod count by phase from the latest snapshot",
	}, []string{"cluster_name", "phase"})

	failedPods := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "healthguardian_failed_pods",
		Help: "Failed pod count from the latest snapshot",
	}, []string{"cluster_name"})

	warningEvents := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "healthguardian_warning_events",
		Help: "Warning events inside the collection window",
	}, []string{"cluster_name"})

	issues := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "healthguardian_issues",
		Help: "Detected issues by severity in the latest assessment",
	}, []string{"cluster_name", "severity"})

	lastRun := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "healthguardian_last_run_timestamp_seconds",
		Help: "Unix timestamp of the latest completed assessment",
	}, []string{"cluster_name"})

	reg.MustRegister(healthScore, podsByPhase, failedPods, warningEvents, issues, lastRun)

	return &PrometheusExporter{
		registry:      reg,
		healthScore:   healthScore,
		podsByPhase:   podsByPhase,
		failedPods:    failedPods,
		warningEvents: warningEvents,
		issues:        issues,
		lastRun:       lastRun,
	}
}

// Handler returns the HTTP handler for /metrics.
func (p *PrometheusExporter) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Update copies one completed run into the Prometheus metrics.
func (p *PrometheusExporter) Update(result api.Result) {
	p.healthScore.Reset()
	p.podsByPhase.Reset()
	p.issues.Reset()

	cluster := result.Snapshot.ClusterName
	p.healthScore.WithLabelValues(cluster, string(result.Assessment.Source)).Set(float64(result.Assessment.HealthScore))

	census := result.Snapshot.Pods
	p.podsByPhase.WithLabelValues(cluster, "running").Set(float64(census.Running))
	p.podsByPhase.WithLabelValues(cluster, "pending").Set(float64(census.Pending))
	p.podsByPhase.WithLabelValues(cluster, "failed").Set(float64(census.Failed))
	p.podsByPhase.WithLabelValues(cluster, "unknown").Set(float64(census.Unknown))
	p.failedPods.WithLabelValues(cluster).Set(float64(census.Failed))
	p.warningEvents.WithLabelValues(cluster).Set(float64(countWarnings(result.Snapshot.Events)))

	counts := map[string]int{}
	for _, issue := range result.Assessment.Issues {
		counts[string(issue.Severity)]++
	}
	for severity, count := range counts {
		p.issues.WithLabelValues(cluster, severity).Set(float64(count))
	}

	p.lastRun.WithLabelValues(cluster).Set(float64(result.CompletedAt.Unix()))
}

func countWarnings(events []snapshot.Event) int {
	warnings := 0
	for _, ev := range events {
		if ev.Type == "Warning" {
			warnings++
		}
	}
	return warnings
}
