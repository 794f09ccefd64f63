package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/opsvista/incident-analyzer/internal/engine"
	"github.com/opsvista/incident-analyzer/internal/models"
	"github.com/opsvista/incident-analyzer/internal/render"
	"github.com/opsvista/incident-analyzer/internal/service"
	"github.com/opsvista/incident-analyzer/internal/stream"
)

// Handlers bundles the HTTP endpoints over the analyzer service.
type Handlers struct {
	logger *slog.Logger
	svc    *service.AnalyzerService
}

// NewHandlers constructs the endpoint set.
func NewHandlers(logger *slog.Logger, svc *service.AnalyzerService) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{logger: logger, svc: svc}
}

// Routes returns the HTTP mux with all endpoints registered.
func (h *Handlers) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/analyze", requireMethod(http.MethodPost, h.handleAnalyze))
	mux.HandleFunc("/api/v1/analyze/stream", requireMethod(http.MethodPost, h.handleAnalyzeStream))
	mux.HandleFunc("/api/v1/actions/restart", requireMethod(http.MethodPost, h.handleRestart))
	mux.HandleFunc("/healthz", requireMethod(http.MethodGet, h.handleHealth))
	return mux
}

// requireMethod rejects other HTTP methods with 405, matching the
// method-pattern routing of Go 1.22's ServeMux on older toolchains.
func requireMethod(method string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	}
}

// analyzeResponse is the sync endpoint payload.
type analyzeResponse struct {
	Report     models.IncidentReport `json:"report"`
	Labels     render.ReportLabels   `json:"labels"`
	Enrichment string                `json:"enrichment"`
	CreatedAt  time.Time             `json:"created_at"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handlers) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req models.AnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	result, err := h.svc.Analyze(r.Context(), req)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, analyzeResponse{
		Report:     result.Report,
		Labels:     render.Labels(result.Report),
		Enrichment: result.Enrichment,
		CreatedAt:  result.CreatedAt,
	})
}

func (h *Handlers) handleAnalyzeStream(w http.ResponseWriter, r *http.Request) {
	var req models.AnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	events, err := h.svc.StreamAnalyze(r.Context(), req)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for event := range events {
		data, err := json.Marshal(event)
		if err != nil {
			h.logger.Error("encode stream event", slog.Any("error", err))
			return
		}
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data)
		flusher.Flush()
		if event.Type == stream.EventFinal || event.Type == stream.EventError {
			return
		}
	}
}

func (h *Handlers) handleRestart(w http.ResponseWriter, r *http.Request) {
	var req models.RestartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	if err := h.svc.RestartService(r.Context(), req); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, engine.ErrServiceNotAllowed) {
			status = http.StatusForbidden
		}
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted", "service": req.Service})
}

func (h *Handlers) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, engine.ErrEmptyInput):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrUpstream):
		return http.StatusBadGateway
	case errors.Is(err, engine.ErrMalformedResponse):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
