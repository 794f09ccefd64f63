// mock-model is a local stand-in for an OpenAI-compatible chat completions
// provider. It answers every prompt with a canned incident narration and a
// structured report so the analyzer can run end-to-end offline.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"
)

const cannedNarration = "Looking at the error burst around the gateway... " +
	"the database connection pool drained within two minutes, so upstream " +
	"requests are timing out while the cache takes the overflow. "

const cannedReport = `{
  "incident_type": "Database connection pool exhaustion",
  "executive_summary": "The primary database exhausted its connection pool, taking the API gateway into timeout cascades. Cache is absorbing read traffic but evicting aggressively.",
  "severity_score": 72,
  "business_impact_score": 64,
  "estimated_recovery_time_minutes": 30,
  "confidence": 0.82,
  "probable_causes": [
    {"name": "connection pool exhaustion", "probability": 0.7, "reasoning": "pool drained within two minutes of the error burst", "recommended_action": "raise pool limits and recycle stuck connections"},
    {"name": "slow query regression", "probability": 0.4, "reasoning": "p99 query latency tripled before the pool drained", "recommended_action": "review the latest query plan changes"}
  ],
  "recommended_runbook_steps": [
    "check primary-db connection pool saturation",
    "recycle stuck connections",
    "fail over reads to the replica if saturation persists"
  ],
  "services": [
    {"name": "api-gateway", "status": "degraded", "signals": ["upstream timeouts"], "suspected_components": ["connection pool"]},
    {"name": "primary-db", "status": "down", "signals": ["pool exhausted"], "suspected_components": ["connection pool"]},
    {"name": "cache", "status": "degraded", "signals": ["eviction spike"], "suspected_components": []}
  ],
  "propagation": {
    "nodes": [{"id": "api-gateway", "label": "API Gateway"}, {"id": "primary-db", "label": "Primary DB"}, {"id": "cache", "label": "Cache"}],
    "edges": [{"from": "api-gateway", "to": "primary-db", "label": "depends_on"}, {"from": "api-gateway", "to": "cache", "label": "uses_cache"}]
  }
}`

type chatRequest struct {
	Model  string `json:"model"`
	Stream bool   `json:"stream"`
}

func main() {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if req.Stream {
			streamCompletion(w)
			return
		}
		syncCompletion(w)
	})

	logger := log.New(log.Writer(), "mock-model ", log.LstdFlags|log.Lmicroseconds)
	srv := &http.Server{
		Addr:    ":8081",
		Handler: logRequests(logger, mux),
	}

	logger.Println("listening on :8081")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("server error: %v", err)
	}
}

func syncCompletion(w http.ResponseWriter) {
	writeJSON(w, map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"role": "assistant", "content": cannedReport}},
		},
	})
}

// streamCompletion plays the narration back word by word, then the report in
// larger chunks, the delimiter deliberately split across two chunks.
func streamCompletion(w http.ResponseWriter) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	chunks := strings.SplitAfter(cannedNarration, " ")
	chunks = append(chunks, "<FINAL_", "JSON>")
	for start := 0; start < len(cannedReport); start += 256 {
		end := start + 256
		if end > len(cannedReport) {
			end = len(cannedReport)
		}
		chunks = append(chunks, cannedReport[start:end])
	}
	chunks = append(chunks, "</FINAL_JSON>")

	for _, chunk := range chunks {
		if chunk == "" {
			continue
		}
		payload, err := json.Marshal(map[string]any{
			"choices": []map[string]any{
				{"delta": map[string]string{"content": chunk}},
			},
		})
		if err != nil {
			return
		}
		fmt.Fprintf(w, "data: %s\n\n", payload)
		flusher.Flush()
		time.Sleep(20 * time.Millisecond)
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encode error: %v", err)
	}
}

func logRequests(logger *log.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		logger.Printf("%s %s %d %s", r.Method, r.URL.Path, rw.status, time.Since(start))
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
