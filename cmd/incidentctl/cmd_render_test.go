package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

const renderReportJSON = `{
  "incident_type": "Database outage",
  "severity_score": 85,
  "business_impact_score": 60,
  "services": [
    {"name": "api-gateway", "status": "down"},
    {"name": "primary-db", "status": "degraded"}
  ]
}`

func writeReportFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "report.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func runRenderOn(t *testing.T, path string) string {
	t.Helper()
	renderFlags.reportPath = path
	t.Cleanup(func() { renderFlags.reportPath = "" })

	cmd := &cobra.Command{}
	var out bytes.Buffer
	cmd.SetOut(&out)
	if err := runRender(cmd, nil); err != nil {
		t.Fatalf("render: %v", err)
	}
	return out.String()
}

func TestRenderBareReport(t *testing.T) {
	got := runRenderOn(t, writeReportFile(t, renderReportJSON))
	if !strings.Contains(got, "SEV1") {
		t.Fatalf("severity tier missing: %q", got)
	}
	if !strings.Contains(got, "major business impact") {
		t.Fatalf("impact label missing: %q", got)
	}
	// one down + half a degraded of two services = 75%.
	if !strings.Contains(got, "widespread (75% of services)") {
		t.Fatalf("blast radius missing: %q", got)
	}
}

func TestRenderAnalyzeEnvelope(t *testing.T) {
	got := runRenderOn(t, writeReportFile(t, `{"report": `+renderReportJSON+`, "enrichment": "ctx"}`))
	if !strings.Contains(got, "SEV1") {
		t.Fatalf("severity tier missing: %q", got)
	}
}

func TestRenderRejectsBadJSON(t *testing.T) {
	renderFlags.reportPath = writeReportFile(t, "not json")
	t.Cleanup(func() { renderFlags.reportPath = "" })

	cmd := &cobra.Command{}
	cmd.SetOut(&bytes.Buffer{})
	if err := runRender(cmd, nil); err == nil {
		t.Fatal("expected error for malformed report")
	}
}
