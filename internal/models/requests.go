package models

// AnalysisRequest carries the raw incident logs submitted for analysis.
type AnalysisRequest struct {
	IncidentID string `json:"incident_id"`
	Logs       string `json:"logs"`
	// SkipEnrichment disables the external context lookup; useful for
	// air-gapped deployments and tests.
	SkipEnrichment bool `json:"skip_enrichment,omitempty"`
}

// RestartRequest asks the execution trigger to restart a named service.
type RestartRequest struct {
	Service string `json:"service"`
}
