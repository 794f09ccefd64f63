// Package engine orchestrates the analysis pipelines: the synchronous
// single-shot variant and the incremental streaming variant. Both feed the
// same normalizer and scoring engine, so their final semantics are identical.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/opsvista/incident-analyzer/internal/enrich"
	"github.com/opsvista/incident-analyzer/internal/extract"
	"github.com/opsvista/incident-analyzer/internal/llm"
	"github.com/opsvista/incident-analyzer/internal/models"
	"github.com/opsvista/incident-analyzer/internal/normalize"
	"github.com/opsvista/incident-analyzer/internal/scoring"
)

const maxRunbookSteps = 10

// Pipeline runs incident analyses against the model and enrichment
// collaborators.
type Pipeline struct {
	logger  *slog.Logger
	model   llm.Client
	search  enrich.Searcher
	runbook *RunbookEngine
}

// NewPipeline constructs an analysis pipeline. search and runbook may be nil.
func NewPipeline(logger *slog.Logger, model llm.Client, search enrich.Searcher, runbook *RunbookEngine) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		logger:  logger,
		model:   model,
		search:  search,
		runbook: runbook,
	}
}

// Analyze executes the synchronous single-shot variant: one blocking model
// call, JSON extraction, normalization, and the scoring overlay. It returns a
// typed error and never a partially populated report.
func (p *Pipeline) Analyze(ctx context.Context, req models.AnalysisRequest) (models.AnalysisResult, error) {
	if p.model == nil {
		return models.AnalysisResult{}, fmt.Errorf("model client not configured")
	}
	if strings.TrimSpace(req.Logs) == "" {
		return models.AnalysisResult{}, ErrEmptyInput
	}

	hints := extract.LogHints(req.Logs)
	enrichment := p.fetchEnrichment(ctx, req, hints)

	text, err := p.model.Complete(ctx, syncPrompt(req.Logs, enrichment, hints))
	if err != nil {
		return models.AnalysisResult{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	raw, err := normalize.ExtractJSON(text)
	if err != nil {
		return models.AnalysisResult{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	report := normalize.Report(raw)
	scoring.Overlay(&report)
	p.mergeRunbook(&report)

	return models.AnalysisResult{
		Report:     report,
		Enrichment: enrichment,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

// fetchEnrichment gathers external context for the strongest log hints. Any
// failure degrades to the fixed placeholder; enrichment never fails the
// analysis.
func (p *Pipeline) fetchEnrichment(ctx context.Context, req models.AnalysisRequest, hints extract.Hints) string {
	if req.SkipEnrichment || p.search == nil {
		return enrich.Unavailable
	}

	queries := []string{hints.Query()}
	if len(hints.Services) > 1 {
		queries = append(queries, hints.Services[1]+" incident")
	}

	results := make([][]enrich.Summary, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(2)
	for i, query := range queries {
		i, query := i, query
		g.Go(func() error {
			res, err := p.search.Search(gctx, query, 2)
			if err != nil {
				p.logger.Warn("enrichment lookup failed", slog.String("query", query), slog.Any("error", err))
				return nil
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	merged := make([]enrich.Summary, 0, 4)
	seen := make(map[string]struct{})
	for _, batch := range results {
		for _, summary := range batch {
			key := summary.Title + "|" + summary.URL
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, summary)
		}
	}

	return enrich.FormatContext(merged)
}

// mergeRunbook appends matching rule-pack steps under the runbook cap.
// Applied after the scoring overlay so severity gates see final figures.
func (p *Pipeline) mergeRunbook(report *models.IncidentReport) {
	extra := p.runbook.Steps(*report)
	if len(extra) == 0 {
		return
	}
	merged := appendUnique(append([]string{}, report.RunbookSteps...), extra...)
	if len(merged) > maxRunbookSteps {
		merged = merged[:maxRunbookSteps]
	}
	report.RunbookSteps = merged
}
