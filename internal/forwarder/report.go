package forwarder

import (
	"time"

	"github.com/tilakarasunh/K8s-health-guardian/internal/analyzer"
)

// ReportEnvelope is the payload posted to the email webhook. The webhook is
// responsible for fanning the HTML body out to the recipients.
type ReportEnvelope struct {
	ClusterName string          `json:"clusterName"`
	Recipients  []string        `json:"recipients"`
	Subject     string          `json:"subject"`
	HTML        string          `json:"html"`
	HealthScore int             `json:"healthScore"`
	Source      analyzer.Source `json:"source"`
	Version     string          `json:"version"`
	Timestamp   time.Time       `json:"timestamp"`
}
