package report

import (
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/tilakarasunh/K8s-health-guardian/internal/analyzer"
	"github.com/tilakarasunh/K8s-health-guardian/internal/snapshot"
)

const reportTemplate = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Cluster Health Report</title></head>
<body style="font-family: Arial, sans-serif; color: #1f2933; margin: 0; padding: 20px;">
  <div style="background-color: {{.ScoreColor}}; color: #ffffff; padding: 20px; border-radius: 6px;">
    <h1 style="margin: 0;">Cluster Health Report: {{.Snapshot.ClusterName}}</h1>
    <p style="font-size: 32px; margin: 8px 0;">{{.Assessment.HealthScore}}/100</p>
    <p style="margin: 0;">{{.Assessment.Summary}}</p>
  </div>
  {{if .Degraded}}
  <p style="background-color: #fff3cd; padding: 10px; border-radius: 4px;">
    AI analysis was unavailable for this run; the verdict below comes from the rule-based fallback analyzer.
  </p>
  {{end}}

  <h2>Cluster Statistics</h2>
  <ul>
    <li>Pods: {{.Snapshot.Pods.Total}} total ({{.Snapshot.Pods.Running}} running, {{.Snapshot.Pods.Pending}} pending, {{.Snapshot.Pods.Failed}} failed, {{.Snapshot.Pods.Unknown}} unknown)</li>
    <li>Nodes: {{len .Snapshot.Nodes}}</li>
    {{if .Snapshot.ResourceUsage}}
    <li>Usage: {{.Snapshot.ResourceUsage.CPUUsageMilliTotal}}m CPU, {{.UsageMemoryMi}}Mi memory across {{.Snapshot.ResourceUsage.PodCount}} pods</li>
    {{else}}
    <li>Usage: metrics unavailable</li>
    {{end}}
  </ul>

  {{if .Assessment.Issues}}
  <h2>Issues</h2>
  <table border="1" cellpadding="6" cellspacing="0" style="border-collapse: collapse;">
    <tr style="background-color: #e4e7eb;"><th>Severity</th><th>Issue</th><th>Details</th></tr>
    {{range .Assessment.Issues}}
    <tr><td>{{.Severity}}</td><td>{{.Title}}</td><td>{{.Description}}</td></tr>
    {{end}}
  </table>
  {{else}}
  <h2>Issues</h2>
  <p>No issues detected.</p>
  {{end}}

  {{if .Assessment.Predictions}}
  <h2>Predictions</h2>
  <ul>
    {{range .Assessment.Predictions}}
    <li><strong>{{.Timeframe}}</strong>: {{.Issue}} (probability: {{.Probability}})</li>
    {{end}}
  </ul>
  {{end}}

  {{if .Assessment.Recommendations}}
  <h2>Recommendations</h2>
  <ul>
    {{range .Assessment.Recommendations}}
    <li><strong>{{.Priority}}</strong>: {{.Action}}{{if .Command}} &mdash; <code>{{.Command}}</code>{{end}}</li>
    {{end}}
  </ul>
  {{end}}

  {{if .WarningEvents}}
  <h2>Recent Warning Events</h2>
  <ul>
    {{range .WarningEvents}}
    <li>[{{.Timestamp.Format "15:04 Jan 2"}}] {{.Reason}} ({{.Object}}): {{.Message}}</li>
    {{end}}
  </ul>
  {{end}}

  <p style="color: #7b8794; font-size: 12px;">Generated {{.GeneratedAt.Format "2006-01-02 15:04:05 MST"}} &middot; source: {{.Assessment.Source}}</p>
</body>
</html>`

const warningEventDisplayLimit = 10

// Renderer turns one run's Snapshot and Assessment into an HTML report body.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses the report template once.
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.New("report").Parse(reportTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse report template: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

type reportData struct {
	Snapshot      snapshot.Snapshot
	Assessment    analyzer.Assessment
	ScoreColor    string
	Degraded      bool
	UsageMemoryMi int64
	WarningEvents []snapshot.Event
	GeneratedAt   time.Time
}

// Render is a pure function of its inputs apart from the generation stamp.
func (r *Renderer) Render(snap snapshot.Snapshot, assessment analyzer.Assessment) (string, error) {
	data := reportData{
		Snapshot:      snap,
		Assessment:    assessment,
		ScoreColor:    scoreColor(assessment.HealthScore),
		Degraded:      assessment.Source == analyzer.SourceFallback,
		WarningEvents: warningEvents(snap.Events),
		GeneratedAt:   time.Now().UTC(),
	}
	if snap.ResourceUsage != nil {
		data.UsageMemoryMi = snap.ResourceUsage.MemoryUsageBytesTotal / (1024 * 1024)
	}

	var b strings.Builder
	if err := r.tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	return b.String(), nil
}

func scoreColor(score int) string {
	switch {
	case score >= 90:
		return "#2e7d32" // green
	case score >= 70:
		return "#f9a825" // amber
	default:
		return "#c62828" // red
	}
}

func warningEvents(events []snapshot.Event) []snapshot.Event {
	warnings := make([]snapshot.Event, 0, warningEventDisplayLimit)
	for _, ev := range events {
		if ev.Type != "Warning" {
			continue
		}
		warnings = append(warnings, ev)
		if len(warnings) == warningEventDisplayLimit {
			break
		}
	}
	return warnings
}
