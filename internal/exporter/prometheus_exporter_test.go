package exporter

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tilakarasunh/K8s-health-guardian/internal/analyzer"
	"github.com/tilakarasunh/K8s-health-guardian/internal/api"
	"github.com/tilakarasunh/K8s-health-guardian/internal/snapshot"
)

func scrape(t *testing.T, exporter *PrometheusExporter) string {
	t.Helper()
	rec := httptest.NewRecorder()
	exporter.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("scrape returned %d", rec.Code)
	}
	return rec.Body.String()
}

func TestExporterUpdate(t *testing.T) {
	exporter := NewPrometheusExporter()
	exporter.Update(api.Result{
		Snapshot: snapshot.Snapshot{
			ClusterName: "test",
			Pods:        snapshot.PodCensus{Total: 6, Running: 4, Pending: 1, Failed: 1},
			Events: []snapshot.Event{
				{Type: "Warning", Reason: "BackOff"},
				{Type: "Normal", Reason: "Pulled"},
				{Type: "Warning", Reason: "FailedScheduling"},
			},
		},
		Assessment: analyzer.Assessment{
			HealthScore: 78,
			Summary:     "some issues",
			Issues: []analyzer.Issue{
				{Severity: analyzer.SeverityCritical, Title: "1 Failed Pods"},
				{Severity: analyzer.SeverityWarning, Title: "High CPU"},
				{Severity: analyzer.SeverityWarning, Title: "High memory"},
			},
			Source: analyzer.SourceFallback,
		},
		CompletedAt: time.Unix(1700000000, 0).UTC(),
	})

	body := scrape(t, exporter)
	for _, want := range []string{
		`healthguardian_health_score{cluster_name="test",source="Fallback"} 78`,
		`healthguardian_pods{cluster_name="test",phase="running"} 4`,
		`healthguardian_pods{cluster_name="test",phase="failed"} 1`,
		`healthguardian_failed_pods{cluster_name="test"} 1`,
		`healthguardian_warning_events{cluster_name="test"} 2`,
		`healthguardian_issues{cluster_name="test",severity="Critical"} 1`,
		`healthguardian_issues{cluster_name="test",severity="Warning"} 2`,
		`healthguardian_last_run_timestamp_seconds{cluster_name="test"} 1.7e+09`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics missing %q:\n%s", want, body)
		}
	}
}

func TestExporterUpdateResetsStaleSeries(t *testing.T) {
	exporter := NewPrometheusExporter()

	exporter.Update(api.Result{
		Snapshot: snapshot.Snapshot{ClusterName: "test"},
		Assessment: analyzer.Assessment{
			HealthScore: 40,
			Issues:      []analyzer.Issue{{Severity: analyzer.SeverityCritical, Title: "bad"}},
			Source:      analyzer.SourceFallback,
		},
		CompletedAt: time.Unix(1700000000, 0),
	})
	exporter.Update(api.Result{
		Snapshot:    snapshot.Snapshot{ClusterName: "test"},
		Assessment:  analyzer.Assessment{HealthScore: 95, Source: analyzer.SourceRemoteAnalysis},
		CompletedAt: time.Unix(1700000100, 0),
	})

	body := scrape(t, exporter)
	if strings.Contains(body, `source="Fallback"`) {
		t.Fatalf("stale fallback series survived:\n%s", body)
	}
	if strings.Contains(body, `severity="Critical"`) {
		t.Fatalf("stale issue series survived:\n%s", body)
	}
	if !strings.Contains(body, `healthguardian_health_score{cluster_name="test",source="RemoteAnalysis"} 95`) {
		t.Fatalf("new score missing:\n%s", body)
	}
}
