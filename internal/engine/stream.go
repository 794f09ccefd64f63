package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/opsvista/incident-analyzer/internal/extract"
	"github.com/opsvista/incident-analyzer/internal/models"
	"github.com/opsvista/incident-analyzer/internal/stream"
)

// StreamAnalyze executes the incremental variant: model fragments are parsed
// as they arrive and token/final/error events are pushed to the returned
// channel in order. The channel closes after the terminal event, or silently
// when ctx is cancelled first.
func (p *Pipeline) StreamAnalyze(ctx context.Context, req models.AnalysisRequest) (<-chan stream.Event, error) {
	if p.model == nil {
		return nil, fmt.Errorf("model client not configured")
	}
	if strings.TrimSpace(req.Logs) == "" {
		return nil, ErrEmptyInput
	}

	out := make(chan stream.Event, 16)
	go func() {
		defer close(out)

		hints := extract.LogHints(req.Logs)
		enrichment := p.fetchEnrichment(ctx, req, hints)

		fragments, err := p.model.Stream(ctx, streamPrompt(req.Logs, enrichment, hints))
		if err != nil {
			p.emit(ctx, out, stream.Event{Type: stream.EventError, Message: fmt.Sprintf("%v: %v", ErrUpstream, err)})
			return
		}

		parser := stream.NewParser()
		for fragment := range fragments {
			if ctx.Err() != nil {
				// Explicit cancellation: release without emitting.
				parser.Cancel()
				return
			}
			if fragment.Err != nil {
				if !parser.Done() {
					parser.Cancel()
					p.emit(ctx, out, stream.Event{Type: stream.EventError, Message: fmt.Sprintf("%v: %v", ErrUpstream, fragment.Err)})
				}
				return
			}
			for _, event := range parser.Feed(fragment.Text) {
				p.deliver(ctx, out, event)
			}
			if parser.Done() {
				// Drain remaining fragments without processing so the
				// upstream goroutine can finish.
				for range fragments {
				}
				return
			}
		}

		for _, event := range parser.Close() {
			p.deliver(ctx, out, event)
		}
	}()

	return out, nil
}

func (p *Pipeline) deliver(ctx context.Context, out chan<- stream.Event, event stream.Event) {
	if event.Type == stream.EventFinal && event.Report != nil {
		p.mergeRunbook(event.Report)
	}
	p.emit(ctx, out, event)
}

func (p *Pipeline) emit(ctx context.Context, out chan<- stream.Event, event stream.Event) {
	select {
	case out <- event:
	case <-ctx.Done():
		p.logger.Debug("stream consumer gone before event delivery", slog.String("type", string(event.Type)))
	}
}
