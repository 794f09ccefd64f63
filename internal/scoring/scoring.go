// Package scoring computes deterministic severity and impact figures from
// structured service and propagation data. All functions are pure; the model
// can raise severity above the topology-derived floor but never suppress it.
package scoring

import (
	"math"

	"github.com/opsvista/incident-analyzer/internal/models"
)

// Per-service severity weights. The additive policy is the canonical one for
// both the streaming and synchronous paths.
const (
	downWeight     = 35
	degradedWeight = 15
)

// Propagation impact weights.
const (
	nodeWeight = 5
	edgeWeight = 8
)

// DeterministicSeverity accumulates per-service weight by status and clamps
// the total to [0,100].
func DeterministicSeverity(services []models.Service) int {
	score := 0
	for _, svc := range services {
		switch svc.Status {
		case models.StatusDown:
			score += downWeight
		case models.StatusDegraded:
			score += degradedWeight
		}
	}
	return clampInt(score, 0, 100)
}

// BlastRadius returns the affected fraction of services on a 0-100 scale.
// Down services count fully, degraded ones half.
func BlastRadius(services []models.Service) int {
	if len(services) == 0 {
		return 0
	}
	down, degraded := 0, 0
	for _, svc := range services {
		switch svc.Status {
		case models.StatusDown:
			down++
		case models.StatusDegraded:
			degraded++
		}
	}
	affected := float64(down) + 0.5*float64(degraded)
	return clampInt(int(math.Round(affected/float64(len(services))*100)), 0, 100)
}

// DeterministicImpact scores the propagation graph by size: wider graphs mean
// wider business impact.
func DeterministicImpact(prop models.Propagation) int {
	return clampInt(nodeWeight*len(prop.Nodes)+edgeWeight*len(prop.Edges), 0, 100)
}

// FinalSeverity applies the deterministic floor: the AI-asserted severity can
// raise the figure but never pull it below what the topology shows.
func FinalSeverity(aiSeverity int, services []models.Service) int {
	floor := DeterministicSeverity(services)
	if aiSeverity > floor {
		return clampInt(aiSeverity, 0, 100)
	}
	return floor
}

// FinalImpact blends the AI-asserted impact with the topology signal. The AI
// view dominates but stays bounded by graph size and blast radius.
func FinalImpact(aiImpact int, prop models.Propagation, services []models.Service) int {
	det := DeterministicImpact(prop)
	blast := BlastRadius(services)
	blended := 0.5*float64(aiImpact) + 0.3*float64(det) + 0.2*float64(blast)
	return clampInt(int(math.Round(blended)), 0, 100)
}

// Overlay recomputes the report's scores in place before hand-off, using the
// already-normalized AI figures as input.
func Overlay(report *models.IncidentReport) {
	if report == nil {
		return
	}
	report.SeverityScore = FinalSeverity(report.SeverityScore, report.Services)
	report.BusinessImpactScore = FinalImpact(report.BusinessImpactScore, report.Propagation, report.Services)
}

func clampInt(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
