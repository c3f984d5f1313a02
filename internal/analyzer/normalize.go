package analyzer

import (
	"log/slog"
	"strings"

	"github.com/tilakarasunh/K8s-health-guardian/internal/snapshot"
)

// Normalizer merges either analysis path into the canonical Assessment shape
// so that reporting never branches on which path produced it.
type Normalizer struct {
	fallback *FallbackAnalyzer
	logger   *slog.Logger
}

// NewNormalizer returns a Normalizer delegating degraded outcomes to fallback.
func NewNormalizer(fallback *FallbackAnalyzer, logger *slog.Logger) *Normalizer {
	return &Normalizer{fallback: fallback, logger: logger}
}

// Normalize turns an analysis Outcome into exactly one Assessment. A Success
// is re-checked before it is trusted: an out-of-range score or empty summary
// is treated as a schema violation and routed to the fallback analyzer.
func (n *Normalizer) Normalize(outcome Outcome, snap snapshot.Snapshot) Assessment {
	switch outcome.Kind {
	case OutcomeSuccess:
		if violation := recheck(outcome.Analysis); violation != "" {
			n.logger.Warn("remote analysis rejected after success classification",
				slog.String("violation", violation))
			return n.fallback.Assess(snap)
		}
		n.logger.Info("using remote analysis", slog.Int("healthScore", outcome.Analysis.HealthScore))
		return Assessment{
			HealthScore:     outcome.Analysis.HealthScore,
			Summary:         outcome.Analysis.Summary,
			Issues:          outcome.Analysis.Issues,
			Predictions:     outcome.Analysis.Predictions,
			Recommendations: outcome.Analysis.Recommendations,
			Source:          SourceRemoteAnalysis,
		}
	case OutcomeSchemaInvalid:
		n.logger.Warn("remote analysis schema invalid, using rule-based fallback",
			slog.String("violation", outcome.Violation))
		return n.fallback.Assess(snap)
	default:
		detail := "unknown outcome"
		if outcome.Err != nil {
			detail = outcome.Err.Error()
		}
		n.logger.Warn("remote analyzer unreachable, using rule-based fallback",
			slog.String("error", detail))
		return n.fallback.Assess(snap)
	}
}

func recheck(analysis RemoteAnalysis) string {
	if analysis.HealthScore < 0 || analysis.HealthScore > 100 {
		return "health_score outside range [0,100]"
	}
	if strings.TrimSpace(analysis.Summary) == "" {
		return "summary is empty"
	}
	return ""
}
