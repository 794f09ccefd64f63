package extract

import (
	"strings"
	"testing"
)

const sampleLogs = `2026-08-28T10:00:01Z api-gateway ERROR upstream timeout calling primary-db
2026-08-28T10:00:02Z api-gateway ERROR connection refused: primary-db:5432
2026-08-28T10:00:03Z cache-proxy WARN hit rate dropping
2026-08-28T10:00:04Z api-gateway INFO retrying
`

func TestLogHints(t *testing.T) {
	hints := LogHints(sampleLogs)

	if len(hints.Services) == 0 || hints.Services[0] != "api-gateway" {
		t.Fatalf("expected api-gateway as top service, got %v", hints.Services)
	}
	if !contains(hints.Services, "primary-db") {
		t.Fatalf("expected primary-db candidate, got %v", hints.Services)
	}
	if !contains(hints.Keywords, "timeout") || !contains(hints.Keywords, "refused") {
		t.Fatalf("keywords missing: %v", hints.Keywords)
	}
	if len(hints.ErrorLines) != 2 {
		t.Fatalf("expected 2 error lines, got %d", len(hints.ErrorLines))
	}
}

func TestLogHintsEmptyInput(t *testing.T) {
	hints := LogHints("")
	if len(hints.Services) != 0 || len(hints.ErrorLines) != 0 {
		t.Fatalf("expected empty hints, got %+v", hints)
	}
	if hints.Query() != "service incident troubleshooting" {
		t.Fatalf("fallback query = %q", hints.Query())
	}
}

func TestLogHintsErrorLineCap(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 20; i++ {
		b.WriteString("payments-api ERROR database timeout\n")
	}
	hints := LogHints(b.String())
	if len(hints.ErrorLines) != 8 {
		t.Fatalf("error lines not capped: %d", len(hints.ErrorLines))
	}
}

func TestQueryUsesTopHints(t *testing.T) {
	hints := LogHints(sampleLogs)
	query := hints.Query()
	if !strings.Contains(query, "api-gateway") || !strings.HasSuffix(query, "incident") {
		t.Fatalf("query = %q", query)
	}
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
