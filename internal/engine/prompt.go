package engine

import (
	"strings"

	"github.com/opsvista/incident-analyzer/internal/extract"
	"github.com/opsvista/incident-analyzer/internal/stream"
)

const reportSchema = `{
  "incident_type": "short classification",
  "executive_summary": "2-3 sentences for leadership",
  "severity_score": 0-100,
  "business_impact_score": 0-100,
  "estimated_recovery_time_minutes": 0,
  "confidence": 0.0-1.0,
  "probable_causes": [{"name": "", "probability": 0.0, "reasoning": "", "recommended_action": ""}],
  "recommended_runbook_steps": ["step"],
  "services": [{"name": "", "status": "healthy|degraded|down", "signals": [""], "suspected_components": [""]}],
  "propagation": {"nodes": [{"id": "", "label": ""}], "edges": [{"from": "", "to": "", "label": ""}]}
}`

// syncPrompt asks for the report as a single JSON object.
func syncPrompt(logs, enrichment string, hints extract.Hints) string {
	var b strings.Builder
	b.WriteString("You are an SRE incident analyst. Analyze the incident logs below and respond with ONE JSON object following this schema exactly:\n")
	b.WriteString(reportSchema)
	b.WriteString("\n\nRespond with JSON only, no prose.\n")
	writePromptContext(&b, logs, enrichment, hints)
	return b.String()
}

// streamPrompt asks for narration followed by the delimited JSON payload so
// the incremental parser can separate the two.
func streamPrompt(logs, enrichment string, hints extract.Hints) string {
	var b strings.Builder
	b.WriteString("You are an SRE incident analyst. Think out loud briefly while you analyze the incident logs below, then finish with the complete structured report wrapped exactly as:\n")
	b.WriteString(stream.OpenDelimiter)
	b.WriteString("\n<JSON object following this schema>\n")
	b.WriteString(stream.CloseDelimiter)
	b.WriteString("\n\nSchema:\n")
	b.WriteString(reportSchema)
	b.WriteString("\n")
	writePromptContext(&b, logs, enrichment, hints)
	return b.String()
}

func writePromptContext(b *strings.Builder, logs, enrichment string, hints extract.Hints) {
	if len(hints.Services) > 0 {
		b.WriteString("\nServices observed in the logs: ")
		b.WriteString(strings.Join(hints.Services, ", "))
		b.WriteString("\n")
	}
	b.WriteString("\nExternal context:\n")
	b.WriteString(enrichment)
	b.WriteString("\n\nIncident logs:\n")
	b.WriteString(logs)
}
