package normalize

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/opsvista/incident-analyzer/internal/models"
)

func TestReportDefaultsForEmptyInput(t *testing.T) {
	report := Report(map[string]any{})

	if report.IncidentType != "Unknown incident" {
		t.Fatalf("incident type = %q", report.IncidentType)
	}
	if report.SeverityScore != 0 || report.BusinessImpactScore != 0 {
		t.Fatalf("scores not defaulted: %d/%d", report.SeverityScore, report.BusinessImpactScore)
	}
	if len(report.Services) != 3 {
		t.Fatalf("expected fallback topology, got %d services", len(report.Services))
	}
	if len(report.Propagation.Nodes) < 2 {
		t.Fatalf("expected synthesized propagation, got %d nodes", len(report.Propagation.Nodes))
	}
}

func TestScoreCoercionAlwaysBounded(t *testing.T) {
	cases := []struct {
		name  string
		value any
		want  int
	}{
		{"missing", nil, 0},
		{"non-numeric", "not a number", 0},
		{"numeric string", "87", 87},
		{"negative", float64(-20), 0},
		{"above range", float64(250), 100},
		{"nan", math.NaN(), 0},
		{"positive inf", math.Inf(1), 0},
		{"in range", float64(55), 55},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			report := Report(map[string]any{"severity_score": tc.value})
			if report.SeverityScore != tc.want {
				t.Fatalf("severity = %d, want %d", report.SeverityScore, tc.want)
			}
		})
	}
}

func TestFallbackTopologyEscalation(t *testing.T) {
	report := Report(map[string]any{"incident_type": "Database outage"})

	wantNames := []string{FallbackGateway, FallbackDB, FallbackCache}
	wantStatuses := []models.ServiceStatus{models.StatusDown, models.StatusDown, models.StatusDegraded}
	for i, svc := range report.Services {
		if svc.Name != wantNames[i] {
			t.Fatalf("service[%d] = %q, want %q", i, svc.Name, wantNames[i])
		}
		if svc.Status != wantStatuses[i] {
			t.Fatalf("service[%d] status = %q, want %q", i, svc.Status, wantStatuses[i])
		}
	}

	calm := Report(map[string]any{"incident_type": "Elevated latency"})
	if calm.Services[0].Status != models.StatusDegraded || calm.Services[2].Status != models.StatusHealthy {
		t.Fatalf("expected default fallback statuses, got %+v", calm.Services)
	}
}

func TestCausesSortedCappedAndFiltered(t *testing.T) {
	causes := []any{
		map[string]any{"name": "low", "probability": 0.2},
		map[string]any{"name": "", "probability": 0.99},
		map[string]any{"name": "high", "probability": 1.7},
		map[string]any{"name": "mid", "probability": 0.5},
		map[string]any{"name": "c4", "probability": 0.4},
		map[string]any{"name": "c5", "probability": 0.35},
		map[string]any{"name": "c6", "probability": 0.3},
	}
	report := Report(map[string]any{"probable_causes": causes})

	if len(report.ProbableCauses) != 5 {
		t.Fatalf("causes not capped: %d", len(report.ProbableCauses))
	}
	if report.ProbableCauses[0].Name != "high" || report.ProbableCauses[0].Probability != 1 {
		t.Fatalf("expected clamped top cause, got %+v", report.ProbableCauses[0])
	}
	for i := 1; i < len(report.ProbableCauses); i++ {
		if report.ProbableCauses[i].Probability > report.ProbableCauses[i-1].Probability {
			t.Fatalf("causes not sorted descending")
		}
	}
}

func TestServiceNormalization(t *testing.T) {
	report := Report(map[string]any{
		"services": []any{
			map[string]any{"name": "api", "status": "DOWN"},
			map[string]any{"name": "api", "status": "healthy"}, // duplicate dropped
			map[string]any{"name": "db", "status": "exploded"}, // unknown -> degraded
			map[string]any{"name": "queue", "signals": []any{" lag ", "", 42}},
		},
	})

	if len(report.Services) != 3 {
		t.Fatalf("expected 3 services, got %d", len(report.Services))
	}
	if report.Services[0].Status != models.StatusDown {
		t.Fatalf("status casefolding failed: %q", report.Services[0].Status)
	}
	if report.Services[1].Status != models.StatusDegraded {
		t.Fatalf("unknown status should fail open to degraded, got %q", report.Services[1].Status)
	}
	if len(report.Services[2].Signals) != 1 || report.Services[2].Signals[0] != "lag" {
		t.Fatalf("signals not trimmed/filtered: %+v", report.Services[2].Signals)
	}
}

func TestPropagationRebuiltWhenTooSmall(t *testing.T) {
	report := Report(map[string]any{
		"services": []any{
			map[string]any{"name": "web", "status": "degraded"},
			map[string]any{"name": "auth", "status": "healthy"},
			map[string]any{"name": "billing", "status": "down"},
		},
		"propagation": map[string]any{
			"nodes": []any{map[string]any{"id": "solo"}},
		},
	})

	if len(report.Propagation.Nodes) != 3 {
		t.Fatalf("expected rebuilt propagation over services, got %d nodes", len(report.Propagation.Nodes))
	}
	if report.Propagation.Nodes[0].ID != "web" {
		t.Fatalf("rebuild should start from first service, got %q", report.Propagation.Nodes[0].ID)
	}
	labels := []string{report.Propagation.Edges[0].Label, report.Propagation.Edges[1].Label}
	if labels[0] != "depends_on" || labels[1] != "uses_cache" {
		t.Fatalf("unexpected edge labels %v", labels)
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	first := Report(map[string]any{
		"incident_type":  "Cache outage",
		"severity_score": float64(640),
		"confidence":     1.8,
		"probable_causes": []any{
			map[string]any{"name": "cache eviction storm", "probability": 0.8, "reasoning": "hit rate collapsed"},
		},
		"recommended_runbook_steps": []any{"restart cache", ""},
	})

	// Round-trip through JSON to mimic a second pass over a normalized report.
	data, err := json.Marshal(first)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	second := Report(raw)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("normalization is not a fixed point (-first +second):\n%s", diff)
	}
}
