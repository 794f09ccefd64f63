// Package render maps numeric report scores onto the labels operators see in
// tickets and chat summaries.
package render

import (
	"fmt"

	"github.com/opsvista/incident-analyzer/internal/models"
	"github.com/opsvista/incident-analyzer/internal/scoring"
)

// ReportLabels carries the presentation strings for one report.
type ReportLabels struct {
	Severity    string `json:"severity"`
	Impact      string `json:"impact"`
	BlastRadius string `json:"blast_radius"`
}

// SeverityTier converts a 0-100 severity score into the paging tier.
func SeverityTier(score int) string {
	switch {
	case score >= 80:
		return "SEV1"
	case score >= 60:
		return "SEV2"
	case score >= 40:
		return "SEV3"
	default:
		return "SEV4"
	}
}

// ImpactLabel converts a 0-100 business impact score into prose.
func ImpactLabel(score int) string {
	switch {
	case score >= 75:
		return "critical business impact"
	case score >= 50:
		return "major business impact"
	case score >= 25:
		return "moderate business impact"
	default:
		return "minor business impact"
	}
}

// BlastRadiusLabel describes how much of the estate the incident touches.
func BlastRadiusLabel(services []models.Service) string {
	pct := scoring.BlastRadius(services)
	switch {
	case pct >= 67:
		return fmt.Sprintf("widespread (%d%% of services)", pct)
	case pct >= 34:
		return fmt.Sprintf("contained (%d%% of services)", pct)
	case pct > 0:
		return fmt.Sprintf("isolated (%d%% of services)", pct)
	default:
		return "no affected services"
	}
}

// Labels derives all presentation labels for a report.
func Labels(report models.IncidentReport) ReportLabels {
	return ReportLabels{
		Severity:    SeverityTier(report.SeverityScore),
		Impact:      ImpactLabel(report.BusinessImpactScore),
		BlastRadius: BlastRadiusLabel(report.Services),
	}
}
