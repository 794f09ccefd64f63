package engine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/opsvista/incident-analyzer/internal/llm"
	"github.com/opsvista/incident-analyzer/internal/models"
	"github.com/opsvista/incident-analyzer/internal/stream"
)

func collect(t *testing.T, events <-chan stream.Event) []stream.Event {
	t.Helper()
	var got []stream.Event
	for event := range events {
		got = append(got, event)
	}
	return got
}

func TestStreamAnalyzeEmitsTokensThenFinal(t *testing.T) {
	model := &fakeModel{fragments: []string{
		"Checking the database tier... ",
		"the gateway is timing out. ",
		"<FINAL_", "JSON>" + sampleModelJSON + "</FINAL_JSON>",
	}}
	pipeline := NewPipeline(nil, model, nil, nil)

	events, err := pipeline.StreamAnalyze(context.Background(), models.AnalysisRequest{Logs: sampleLogs, SkipEnrichment: true})
	if err != nil {
		t.Fatalf("StreamAnalyze: %v", err)
	}
	got := collect(t, events)
	if len(got) < 2 {
		t.Fatalf("expected narration plus final, got %d events", len(got))
	}

	var narration strings.Builder
	for _, event := range got[:len(got)-1] {
		if event.Type != stream.EventToken {
			t.Fatalf("expected token before the terminal event, got %q", event.Type)
		}
		narration.WriteString(event.Text)
	}
	if want := "Checking the database tier... the gateway is timing out. "; narration.String() != want {
		t.Fatalf("narration = %q, want %q", narration.String(), want)
	}

	last := got[len(got)-1]
	if last.Type != stream.EventFinal || last.Report == nil {
		t.Fatalf("terminal event = %+v", last)
	}
	if last.Report.SeverityScore != 50 {
		t.Fatalf("final severity = %d, want 50", last.Report.SeverityScore)
	}
}

func TestStreamAnalyzeMissingFinalJSON(t *testing.T) {
	model := &fakeModel{fragments: []string{"I am still thinking about it."}}
	pipeline := NewPipeline(nil, model, nil, nil)

	events, err := pipeline.StreamAnalyze(context.Background(), models.AnalysisRequest{Logs: sampleLogs, SkipEnrichment: true})
	if err != nil {
		t.Fatalf("StreamAnalyze: %v", err)
	}
	got := collect(t, events)
	last := got[len(got)-1]
	if last.Type != stream.EventError {
		t.Fatalf("terminal event = %+v", last)
	}
	if last.Message != "missing final JSON block" {
		t.Fatalf("message = %q", last.Message)
	}
}

func TestStreamAnalyzeUpstreamFragmentError(t *testing.T) {
	model := &fakeModel{
		fragments:   []string{"partial narration "},
		fragmentErr: errors.New("connection reset mid-stream"),
	}
	pipeline := NewPipeline(nil, model, nil, nil)

	events, err := pipeline.StreamAnalyze(context.Background(), models.AnalysisRequest{Logs: sampleLogs, SkipEnrichment: true})
	if err != nil {
		t.Fatalf("StreamAnalyze: %v", err)
	}
	got := collect(t, events)
	last := got[len(got)-1]
	if last.Type != stream.EventError {
		t.Fatalf("terminal event = %+v", last)
	}
	if !strings.Contains(last.Message, "upstream") {
		t.Fatalf("message = %q, want upstream failure", last.Message)
	}
}

func TestStreamAnalyzeEmptyLogs(t *testing.T) {
	pipeline := NewPipeline(nil, &fakeModel{}, nil, nil)
	_, err := pipeline.StreamAnalyze(context.Background(), models.AnalysisRequest{Logs: ""})
	if !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
}

type gatedModel struct {
	fragments chan llm.Fragment
}

func (m *gatedModel) Complete(context.Context, string) (string, error) {
	return "", errors.New("not used")
}

func (m *gatedModel) Stream(context.Context, string) (<-chan llm.Fragment, error) {
	return m.fragments, nil
}

func TestStreamAnalyzeCancelledMidStream(t *testing.T) {
	model := &gatedModel{fragments: make(chan llm.Fragment)}
	pipeline := NewPipeline(nil, model, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := pipeline.StreamAnalyze(ctx, models.AnalysisRequest{Logs: sampleLogs, SkipEnrichment: true})
	if err != nil {
		t.Fatalf("StreamAnalyze: %v", err)
	}

	model.fragments <- llm.Fragment{Text: "partial narration "}
	first, ok := <-events
	if !ok || first.Type != stream.EventToken {
		t.Fatalf("expected a token before cancellation, got %+v (open=%v)", first, ok)
	}

	cancel()
	model.fragments <- llm.Fragment{Text: "arrives after cancellation"}
	close(model.fragments)

	// The channel must close silently: no terminal event after cancellation.
	for event := range events {
		if event.Type == stream.EventFinal || event.Type == stream.EventError {
			t.Fatalf("terminal event after cancellation: %+v", event)
		}
	}
}

func TestStreamAnalyzeAppliesRunbookToFinal(t *testing.T) {
	model := &fakeModel{fragments: []string{"<FINAL_JSON>" + sampleModelJSON + "</FINAL_JSON>"}}
	runbook := &RunbookEngine{rules: []RunbookRule{{
		ID:    "db-outage",
		Match: RunbookMatch{Service: "primary-db"},
		Steps: []string{"verify replica lag"},
	}}}
	pipeline := NewPipeline(nil, model, nil, runbook)

	events, err := pipeline.StreamAnalyze(context.Background(), models.AnalysisRequest{Logs: sampleLogs, SkipEnrichment: true})
	if err != nil {
		t.Fatalf("StreamAnalyze: %v", err)
	}
	got := collect(t, events)
	last := got[len(got)-1]
	if last.Type != stream.EventFinal {
		t.Fatalf("terminal event = %+v", last)
	}
	if !containsStep(last.Report.RunbookSteps, "verify replica lag") {
		t.Fatalf("rule step missing: %v", last.Report.RunbookSteps)
	}
}
