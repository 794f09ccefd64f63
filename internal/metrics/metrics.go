package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels analyses that produced a report.
	OutcomeSuccess = "success"
	// OutcomeError labels analyses that failed (input, upstream, or parse issues).
	OutcomeError = "error"

	// ModeSync labels single-shot analyses.
	ModeSync = "sync"
	// ModeStream labels incremental analyses.
	ModeStream = "stream"
)

var (
	analysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "incident_analyzer",
			Name:      "analyses_total",
			Help:      "Total number of incident analyses handled, partitioned by outcome and mode.",
		},
		[]string{"outcome", "mode"},
	)

	analysisDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "incident_analyzer",
			Name:      "analysis_seconds",
			Help:      "Analysis latency in seconds.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 3, 4, 5, 6, 8, 10, 15, 30},
		},
		[]string{"mode"},
	)

	restartsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "incident_analyzer",
			Name:      "restarts_total",
			Help:      "Restart requests handled, partitioned by outcome.",
		},
		[]string{"outcome"},
	)
)

// Register attaches incident-analyzer collectors to the supplied Prometheus
// registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		analysesTotal,
		analysisDurationSeconds,
		restartsTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveAnalysis records an analysis duration and its outcome/mode labels.
func ObserveAnalysis(duration time.Duration, outcome, mode string) {
	label := outcome
	if label != OutcomeError {
		label = OutcomeSuccess
	}
	if mode != ModeStream {
		mode = ModeSync
	}
	analysesTotal.WithLabelValues(label, mode).Inc()
	if duration < 0 {
		duration = 0
	}
	analysisDurationSeconds.WithLabelValues(mode).Observe(duration.Seconds())
}

// ObserveRestart records a restart request outcome.
func ObserveRestart(outcome string) {
	label := outcome
	if label != OutcomeError {
		label = OutcomeSuccess
	}
	restartsTotal.WithLabelValues(label).Inc()
}
