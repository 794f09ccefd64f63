// Package normalize turns an arbitrary parsed JSON value into a valid
// IncidentReport. Every field has a typed coercion with a documented default;
// malformed fields are silently defaulted, never surfaced as errors.
package normalize

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/opsvista/incident-analyzer/internal/models"
)

// Sequence caps applied during normalization.
const (
	maxCauses       = 5
	maxRunbookSteps = 10
	maxSignals      = 12
	maxComponents   = 12
	maxNodes        = 30
	maxEdges        = 60
	minServices     = 3
	minNodes        = 2
)

// Coercion schema. Each canonical field lists its accepted keys in priority
// order; the first present key wins. Defaults: strings -> "" or "Unknown
// incident", integers -> 0 clamped [0,100], probabilities -> 0 clamped [0,1],
// arrays -> empty, service status -> degraded.
var (
	keysIncidentType = []string{"incident_type", "incidentType", "type"}
	keysSummary      = []string{"executive_summary", "summary"}
	keysSeverity     = []string{"severity_score", "severity"}
	keysImpact       = []string{"business_impact_score", "impact_score", "business_impact"}
	keysRecovery     = []string{"estimated_recovery_time_minutes", "recovery_minutes", "eta_minutes"}
	keysConfidence   = []string{"confidence"}
	keysCauses       = []string{"probable_causes", "causes"}
	keysRunbook      = []string{"recommended_runbook_steps", "runbook_steps", "runbook"}
	keysServices     = []string{"services"}
	keysPropagation  = []string{"propagation", "propagation_graph"}
)

// Report normalizes an untrusted JSON object into the canonical report shape.
// It never fails: missing or malformed fields fall back to safe defaults, and
// running it on an already-normalized report is a fixed point.
func Report(raw map[string]any) models.IncidentReport {
	report := models.IncidentReport{
		IncidentType:             coerceString(pick(raw, keysIncidentType), "Unknown incident"),
		ExecutiveSummary:         coerceString(pick(raw, keysSummary), ""),
		SeverityScore:            coerceScore(pick(raw, keysSeverity)),
		BusinessImpactScore:      coerceScore(pick(raw, keysImpact)),
		EstimatedRecoveryMinutes: coerceNonNegative(pick(raw, keysRecovery)),
		Confidence:               coerceProbability(pick(raw, keysConfidence)),
		ProbableCauses:           coerceCauses(pick(raw, keysCauses)),
		RunbookSteps:             coerceStringSlice(pick(raw, keysRunbook), maxRunbookSteps),
		Services:                 coerceServices(pick(raw, keysServices)),
	}

	if len(report.Services) < minServices {
		report.Services = fallbackServices(report.IncidentType)
	}

	report.Propagation = coercePropagation(pick(raw, keysPropagation))
	if len(report.Propagation.Nodes) < minNodes {
		report.Propagation = fallbackPropagation(report.Services)
	}

	return report
}

func pick(raw map[string]any, keys []string) any {
	for _, key := range keys {
		if value, ok := raw[key]; ok {
			return value
		}
	}
	return nil
}

func coerceString(value any, fallback string) string {
	s, ok := value.(string)
	if !ok {
		return fallback
	}
	return s
}

// coerceScore clamps an integer score to [0,100]; non-numeric and non-finite
// inputs default to 0.
func coerceScore(value any) int {
	f, ok := toFloat(value)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return clampInt(int(math.Round(f)), 0, 100)
}

func coerceProbability(value any) float64 {
	f, ok := toFloat(value)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return clampFloat(f, 0, 1)
}

func coerceNonNegative(value any) float64 {
	f, ok := toFloat(value)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	return f
}

func coerceStringSlice(value any, limit int) []string {
	items, ok := value.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s := strings.TrimSpace(coerceString(item, ""))
		if s == "" {
			continue
		}
		out = append(out, s)
		if len(out) == limit {
			break
		}
	}
	return out
}

func coerceCauses(value any) []models.Cause {
	items, ok := value.([]any)
	if !ok {
		return []models.Cause{}
	}
	causes := make([]models.Cause, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		cause := models.Cause{
			Name:              strings.TrimSpace(coerceString(obj["name"], "")),
			Probability:       coerceProbability(obj["probability"]),
			Reasoning:         coerceString(obj["reasoning"], ""),
			RecommendedAction: coerceString(obj["recommended_action"], ""),
		}
		if cause.Name == "" {
			continue
		}
		causes = append(causes, cause)
	}
	sort.SliceStable(causes, func(i, j int) bool {
		return causes[i].Probability > causes[j].Probability
	})
	if len(causes) > maxCauses {
		causes = causes[:maxCauses]
	}
	return causes
}

func coerceServices(value any) []models.Service {
	items, ok := value.([]any)
	if !ok {
		return nil
	}
	seen := make(map[string]struct{}, len(items))
	services := make([]models.Service, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		name := strings.TrimSpace(coerceString(obj["name"], ""))
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		status := models.ServiceStatus(strings.ToLower(coerceString(obj["status"], "")))
		if !status.Valid() {
			// Fail open toward "needs attention" rather than silently healthy.
			status = models.StatusDegraded
		}

		services = append(services, models.Service{
			Name:                name,
			Status:              status,
			Signals:             coerceStringSlice(obj["signals"], maxSignals),
			SuspectedComponents: coerceStringSlice(obj["suspected_components"], maxComponents),
		})
	}
	return services
}

func coercePropagation(value any) models.Propagation {
	obj, ok := value.(map[string]any)
	if !ok {
		return models.Propagation{}
	}

	prop := models.Propagation{
		Nodes: []models.PropagationNode{},
		Edges: []models.PropagationEdge{},
	}

	if rawNodes, ok := obj["nodes"].([]any); ok {
		seen := make(map[string]struct{}, len(rawNodes))
		for _, item := range rawNodes {
			node, ok := item.(map[string]any)
			if !ok {
				continue
			}
			id := strings.TrimSpace(coerceString(node["id"], ""))
			if id == "" {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			prop.Nodes = append(prop.Nodes, models.PropagationNode{
				ID:    id,
				Label: coerceString(node["label"], id),
			})
			if len(prop.Nodes) == maxNodes {
				break
			}
		}
	}

	if rawEdges, ok := obj["edges"].([]any); ok {
		for _, item := range rawEdges {
			edge, ok := item.(map[string]any)
			if !ok {
				continue
			}
			from := strings.TrimSpace(coerceString(edge["from"], ""))
			to := strings.TrimSpace(coerceString(edge["to"], ""))
			if from == "" || to == "" {
				continue
			}
			prop.Edges = append(prop.Edges, models.PropagationEdge{
				From:  from,
				To:    to,
				Label: coerceString(edge["label"], ""),
			})
			if len(prop.Edges) == maxEdges {
				break
			}
		}
	}

	return prop
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func clampInt(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

func clampFloat(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
