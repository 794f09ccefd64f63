// Package service wires the analysis pipeline behind a facade handling
// validation, metrics, and latency bookkeeping for the transport layer.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/opsvista/incident-analyzer/internal/engine"
	"github.com/opsvista/incident-analyzer/internal/metrics"
	"github.com/opsvista/incident-analyzer/internal/models"
	"github.com/opsvista/incident-analyzer/internal/stream"
	"github.com/opsvista/incident-analyzer/internal/utils"
)

// AnalyzerService fronts the pipeline and the action trigger.
type AnalyzerService struct {
	logger    *slog.Logger
	pipeline  *engine.Pipeline
	trigger   *engine.Trigger
	latencies *utils.LatencyTracker
}

// NewAnalyzerService constructs the facade. trigger may be nil when restart
// actions are disabled.
func NewAnalyzerService(logger *slog.Logger, pipeline *engine.Pipeline, trigger *engine.Trigger) *AnalyzerService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalyzerService{
		logger:    logger,
		pipeline:  pipeline,
		trigger:   trigger,
		latencies: utils.NewLatencyTracker(1024),
	}
}

// Analyze runs a synchronous analysis and records outcome metrics.
func (s *AnalyzerService) Analyze(ctx context.Context, req models.AnalysisRequest) (models.AnalysisResult, error) {
	if s.pipeline == nil {
		return models.AnalysisResult{}, fmt.Errorf("pipeline not configured")
	}

	s.logger.Debug("analysis requested",
		slog.String("incident_id", req.IncidentID),
		slog.Int("log_bytes", len(req.Logs)),
	)

	start := time.Now()
	result, err := s.pipeline.Analyze(ctx, req)
	duration := time.Since(start)
	if err != nil {
		metrics.ObserveAnalysis(duration, metrics.OutcomeError, metrics.ModeSync)
		s.logger.Error("analysis failed", slog.String("incident_id", req.IncidentID), slog.Any("error", err))
		return models.AnalysisResult{}, err
	}

	s.observeLatency(duration)
	metrics.ObserveAnalysis(duration, metrics.OutcomeSuccess, metrics.ModeSync)
	return result, nil
}

// StreamAnalyze starts an incremental analysis. The returned channel follows
// the pipeline's event contract; metrics are recorded when the terminal event
// passes through.
func (s *AnalyzerService) StreamAnalyze(ctx context.Context, req models.AnalysisRequest) (<-chan stream.Event, error) {
	if s.pipeline == nil {
		return nil, fmt.Errorf("pipeline not configured")
	}

	s.logger.Debug("stream analysis requested", slog.String("incident_id", req.IncidentID))

	start := time.Now()
	events, err := s.pipeline.StreamAnalyze(ctx, req)
	if err != nil {
		metrics.ObserveAnalysis(time.Since(start), metrics.OutcomeError, metrics.ModeStream)
		return nil, err
	}

	out := make(chan stream.Event, 16)
	go func() {
		defer close(out)
		terminalSeen := false
		for event := range events {
			if event.Type == stream.EventFinal || event.Type == stream.EventError {
				terminalSeen = true
				duration := time.Since(start)
				outcome := metrics.OutcomeSuccess
				if event.Type == stream.EventError {
					outcome = metrics.OutcomeError
				} else {
					s.observeLatency(duration)
				}
				metrics.ObserveAnalysis(duration, outcome, metrics.ModeStream)
			}
			select {
			case out <- event:
			case <-ctx.Done():
				return
			}
		}
		if !terminalSeen {
			// Cancellation path: the pipeline closed without a terminal event.
			metrics.ObserveAnalysis(time.Since(start), metrics.OutcomeError, metrics.ModeStream)
		}
	}()
	return out, nil
}

// RestartService validates and forwards a restart request.
func (s *AnalyzerService) RestartService(ctx context.Context, req models.RestartRequest) error {
	if s.trigger == nil {
		return fmt.Errorf("action trigger not configured")
	}
	if strings.TrimSpace(req.Service) == "" {
		return fmt.Errorf("%w: %q", engine.ErrServiceNotAllowed, req.Service)
	}

	err := s.trigger.Restart(ctx, req.Service)
	if err != nil {
		metrics.ObserveRestart(metrics.OutcomeError)
		return err
	}
	metrics.ObserveRestart(metrics.OutcomeSuccess)
	return nil
}

func (s *AnalyzerService) observeLatency(duration time.Duration) {
	s.latencies.Observe(duration)
	if count := s.latencies.Count(); count >= 20 && count%20 == 0 {
		p95 := s.latencies.Percentile(95)
		s.logger.Info("analysis latency", slog.Duration("p95", p95), slog.Int("samples", count))
	}
}
