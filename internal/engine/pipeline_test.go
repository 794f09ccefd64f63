package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/opsvista/incident-analyzer/internal/enrich"
	"github.com/opsvista/incident-analyzer/internal/llm"
	"github.com/opsvista/incident-analyzer/internal/models"
)

const sampleLogs = `2026-08-28T10:00:01Z api-gateway ERROR upstream timeout calling primary-db
2026-08-28T10:00:02Z primary-db FATAL out of connections
2026-08-28T10:00:03Z cache WARN evictions spiking`

const sampleModelJSON = `{
  "incident_type": "Database outage",
  "executive_summary": "Primary database is down, gateway failing over.",
  "severity_score": 40,
  "business_impact_score": 60,
  "estimated_recovery_time_minutes": 45,
  "confidence": 0.8,
  "probable_causes": [
    {"name": "connection pool exhaustion", "probability": 0.7, "reasoning": "FATAL out of connections", "recommended_action": "raise pool limits"}
  ],
  "recommended_runbook_steps": ["page the DBA", "fail over to replica"],
  "services": [
    {"name": "api-gateway", "status": "degraded"},
    {"name": "primary-db", "status": "down"},
    {"name": "cache", "status": "healthy"}
  ],
  "propagation": {
    "nodes": [{"id": "api-gateway"}, {"id": "primary-db"}, {"id": "cache"}],
    "edges": [{"from": "api-gateway", "to": "primary-db", "label": "depends_on"}]
  }
}`

type fakeModel struct {
	completeText string
	completeErr  error
	fragments    []string
	streamErr    error
	fragmentErr  error
	prompts      []string
}

func (f *fakeModel) Complete(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.completeText, f.completeErr
}

func (f *fakeModel) Stream(_ context.Context, prompt string) (<-chan llm.Fragment, error) {
	f.prompts = append(f.prompts, prompt)
	if f.streamErr != nil {
		return nil, f.streamErr
	}
	out := make(chan llm.Fragment, len(f.fragments)+1)
	for _, frag := range f.fragments {
		out <- llm.Fragment{Text: frag}
	}
	if f.fragmentErr != nil {
		out <- llm.Fragment{Err: f.fragmentErr}
	}
	close(out)
	return out, nil
}

type fakeSearcher struct {
	results []enrich.Summary
	err     error
	calls   int
}

func (f *fakeSearcher) Search(_ context.Context, _ string, _ int) ([]enrich.Summary, error) {
	f.calls++
	return f.results, f.err
}

func TestAnalyzeSuccess(t *testing.T) {
	model := &fakeModel{completeText: "```json\n" + sampleModelJSON + "\n```"}
	search := &fakeSearcher{results: []enrich.Summary{{Title: "Known issue", Snippet: "pool limits"}}}
	pipeline := NewPipeline(nil, model, search, nil)

	result, err := pipeline.Analyze(context.Background(), models.AnalysisRequest{IncidentID: "inc-1", Logs: sampleLogs})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	report := result.Report
	if report.IncidentType != "Database outage" {
		t.Fatalf("incident type = %q", report.IncidentType)
	}
	// Deterministic floor: one down + one degraded = 50 > the AI's 40.
	if report.SeverityScore != 50 {
		t.Fatalf("severity = %d, want 50", report.SeverityScore)
	}
	if len(report.Services) != 3 {
		t.Fatalf("services = %d", len(report.Services))
	}
	if result.Enrichment == enrich.Unavailable {
		t.Fatal("expected enrichment context to be used")
	}
	if search.calls == 0 {
		t.Fatal("searcher was not consulted")
	}
}

func TestAnalyzeEmptyLogs(t *testing.T) {
	pipeline := NewPipeline(nil, &fakeModel{}, nil, nil)
	_, err := pipeline.Analyze(context.Background(), models.AnalysisRequest{Logs: "   \n"})
	if !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
}

func TestAnalyzeUpstreamFailure(t *testing.T) {
	model := &fakeModel{completeErr: errors.New("connection reset")}
	pipeline := NewPipeline(nil, model, nil, nil)

	_, err := pipeline.Analyze(context.Background(), models.AnalysisRequest{Logs: sampleLogs})
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
}

func TestAnalyzeMalformedResponse(t *testing.T) {
	model := &fakeModel{completeText: "I could not produce the report, sorry."}
	pipeline := NewPipeline(nil, model, nil, nil)

	_, err := pipeline.Analyze(context.Background(), models.AnalysisRequest{Logs: sampleLogs})
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}

func TestAnalyzeEnrichmentDegradesGracefully(t *testing.T) {
	model := &fakeModel{completeText: sampleModelJSON}
	search := &fakeSearcher{err: errors.New("search down")}
	pipeline := NewPipeline(nil, model, search, nil)

	result, err := pipeline.Analyze(context.Background(), models.AnalysisRequest{Logs: sampleLogs})
	if err != nil {
		t.Fatalf("enrichment failure must not fail the analysis: %v", err)
	}
	if result.Enrichment != enrich.Unavailable {
		t.Fatalf("enrichment = %q, want placeholder", result.Enrichment)
	}
}

func TestAnalyzeSkipEnrichment(t *testing.T) {
	model := &fakeModel{completeText: sampleModelJSON}
	search := &fakeSearcher{}
	pipeline := NewPipeline(nil, model, search, nil)

	result, err := pipeline.Analyze(context.Background(), models.AnalysisRequest{Logs: sampleLogs, SkipEnrichment: true})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if search.calls != 0 {
		t.Fatalf("searcher called %d times despite skip", search.calls)
	}
	if result.Enrichment != enrich.Unavailable {
		t.Fatalf("enrichment = %q", result.Enrichment)
	}
}

func TestAnalyzeMergesRunbookSteps(t *testing.T) {
	model := &fakeModel{completeText: sampleModelJSON}
	runbook := &RunbookEngine{rules: []RunbookRule{{
		ID:    "db-outage",
		Match: RunbookMatch{IncidentTypeContains: []string{"database"}, MinSeverity: 40},
		Steps: []string{"verify replica lag", "page the DBA"},
	}}}
	pipeline := NewPipeline(nil, model, nil, runbook)

	result, err := pipeline.Analyze(context.Background(), models.AnalysisRequest{Logs: sampleLogs, SkipEnrichment: true})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	steps := result.Report.RunbookSteps
	if !containsStep(steps, "verify replica lag") {
		t.Fatalf("rule step missing: %v", steps)
	}
	// "page the DBA" came from the model too; merge must not duplicate it.
	if countStep(steps, "page the DBA") != 1 {
		t.Fatalf("duplicate step after merge: %v", steps)
	}
	if len(steps) > 10 {
		t.Fatalf("runbook cap exceeded: %d", len(steps))
	}
}

func containsStep(steps []string, target string) bool {
	return countStep(steps, target) > 0
}

func countStep(steps []string, target string) int {
	n := 0
	for _, s := range steps {
		if s == target {
			n++
		}
	}
	return n
}
