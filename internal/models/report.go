package models

import "time"

// ServiceStatus enumerates the health states a service can report.
type ServiceStatus string

const (
	StatusHealthy  ServiceStatus = "healthy"
	StatusDegraded ServiceStatus = "degraded"
	StatusDown     ServiceStatus = "down"
)

// Valid reports whether the status is one of the three known values.
func (s ServiceStatus) Valid() bool {
	switch s {
	case StatusHealthy, StatusDegraded, StatusDown:
		return true
	}
	return false
}

// Cause is one ranked hypothesis for the incident root cause.
type Cause struct {
	Name              string  `json:"name"`
	Probability       float64 `json:"probability"`
	Reasoning         string  `json:"reasoning"`
	RecommendedAction string  `json:"recommended_action"`
}

// Service captures the observed state of one service during the incident.
type Service struct {
	Name                string        `json:"name"`
	Status              ServiceStatus `json:"status"`
	Signals             []string      `json:"signals"`
	SuspectedComponents []string      `json:"suspected_components"`
}

// PropagationNode is a vertex in the failure-propagation graph.
type PropagationNode struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// PropagationEdge is a directed dependency edge in the propagation graph.
type PropagationEdge struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Label string `json:"label"`
}

// Propagation describes how the failure spreads across service dependencies.
type Propagation struct {
	Nodes []PropagationNode `json:"nodes"`
	Edges []PropagationEdge `json:"edges"`
}

// IncidentReport is the canonical analysis output. Once handed to a caller it
// is never mutated; every numeric field is finite and inside its bound.
type IncidentReport struct {
	IncidentType             string      `json:"incident_type"`
	ExecutiveSummary         string      `json:"executive_summary"`
	SeverityScore            int         `json:"severity_score"`
	BusinessImpactScore      int         `json:"business_impact_score"`
	EstimatedRecoveryMinutes float64     `json:"estimated_recovery_time_minutes"`
	Confidence               float64     `json:"confidence"`
	ProbableCauses           []Cause     `json:"probable_causes"`
	RunbookSteps             []string    `json:"recommended_runbook_steps"`
	Services                 []Service   `json:"services"`
	Propagation              Propagation `json:"propagation"`
}

// AnalysisResult bundles the final report with the enrichment context that
// informed it.
type AnalysisResult struct {
	Report     IncidentReport `json:"report"`
	Enrichment string         `json:"enrichment"`
	CreatedAt  time.Time      `json:"created_at"`
}
