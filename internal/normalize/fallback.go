package normalize

import (
	"strings"

	"github.com/opsvista/incident-analyzer/internal/models"
)

// Fixed synthetic topology used when the model supplies fewer than three
// valid services.
const (
	FallbackGateway = "api-gateway"
	FallbackDB      = "primary-db"
	FallbackCache   = "cache"
)

var outageKeywords = []string{"outage", "down", "critical"}

// fallbackServices builds the three-service synthetic topology. Statuses are
// escalated when the incident-type text reads like a hard outage.
func fallbackServices(incidentType string) []models.Service {
	lowered := strings.ToLower(incidentType)
	escalated := false
	for _, kw := range outageKeywords {
		if strings.Contains(lowered, kw) {
			escalated = true
			break
		}
	}

	gateway, db, cache := models.StatusDegraded, models.StatusDegraded, models.StatusHealthy
	if escalated {
		gateway, db, cache = models.StatusDown, models.StatusDown, models.StatusDegraded
	}

	return []models.Service{
		{Name: FallbackGateway, Status: gateway, Signals: []string{}, SuspectedComponents: []string{}},
		{Name: FallbackDB, Status: db, Signals: []string{}, SuspectedComponents: []string{}},
		{Name: FallbackCache, Status: cache, Signals: []string{}, SuspectedComponents: []string{}},
	}
}

// fallbackPropagation synthesizes a star over the first three service names:
// the first service depends on the second and uses the third as a cache.
func fallbackPropagation(services []models.Service) models.Propagation {
	names := make([]string, 0, 3)
	for _, svc := range services {
		names = append(names, svc.Name)
		if len(names) == 3 {
			break
		}
	}
	for len(names) < 3 {
		// Nothing supplied at all; fall back to the synthetic names.
		names = append(names, []string{FallbackGateway, FallbackDB, FallbackCache}[len(names)])
	}

	nodes := make([]models.PropagationNode, 0, 3)
	for _, name := range names {
		nodes = append(nodes, models.PropagationNode{ID: name, Label: name})
	}

	return models.Propagation{
		Nodes: nodes,
		Edges: []models.PropagationEdge{
			{From: names[0], To: names[1], Label: "depends_on"},
			{From: names[0], To: names[2], Label: "uses_cache"},
		},
	}
}
