package analyzer

import "fmt"

// Severity classifies an issue for display ordering and triage.
type Severity string

const (
	SeverityCritical Severity = "Critical"
	SeverityWarning  Severity = "Warning"
	SeverityInfo     Severity = "Info"
)

func severityRank(s Severity) int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityWarning:
		return 1
	default:
		return 2
	}
}

// Priority classifies a recommendation.
type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// Source records which analysis path produced an Assessment.
type Source string

const (
	SourceRemoteAnalysis Source = "RemoteAnalysis"
	SourceFallback       Source = "Fallback"
)

// Issue is one detected problem.
type Issue struct {
	Severity    Severity `json:"severity"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
}

// Prediction is a short qualitative forecast over the current snapshot.
type Prediction struct {
	Timeframe   string `json:"timeframe"`
	Issue       string `json:"issue"`
	Probability string `json:"probability"`
}

// Recommendation is an actionable remediation step.
type Recommendation struct {
	Priority Priority `json:"priority"`
	Action   string   `json:"action"`
	Command  string   `json:"command,omitempty"`
}

// Assessment is the canonical health verdict consumed by reporting.
// Exactly one is produced per run, regardless of which analyzer ran.
type Assessment struct {
	HealthScore     int              `json:"healthScore"`
	Summary         string           `json:"summary"`
	Issues          []Issue          `json:"issues"`
	Predictions     []Prediction     `json:"predictions"`
	Recommendations []Recommendation `json:"recommendations"`
	Source          Source           `json:"source"`
}

// RemoteAnalysis is a fully validated remote analyzer response. It only
// exists inside a Success outcome; partially valid responses never reach it.
type RemoteAnalysis struct {
	HealthScore     int
	Summary         string
	Issues          []Issue
	Predictions     []Prediction
	Recommendations []Recommendation
}

// OutcomeKind tags the result of one remote analysis attempt.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeSchemaInvalid
	OutcomeUnreachable
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeSchemaInvalid:
		return "schema-invalid"
	case OutcomeUnreachable:
		return "unreachable"
	default:
		return fmt.Sprintf("outcome(%d)", int(k))
	}
}

// Outcome is the tagged result of Client.Analyze. Exactly one of the payload
// fields is meaningful depending on Kind: Analysis for Success, RawBody and
// Violation for SchemaInvalid, Err for Unreachable.
type Outcome struct {
	Kind      OutcomeKind
	Analysis  RemoteAnalysis
	RawBody   string
	Violation string
	Err       error
}
