// Package extract pulls lightweight hints out of raw incident logs: candidate
// service names, notable error lines, and matched failure keywords. The hints
// steer the enrichment query and the model prompt; they are advisory only.
package extract

import (
	"regexp"
	"sort"
	"strings"
)

const (
	maxScanLines  = 2000
	maxErrorLines = 8
	maxServices   = 5
	maxLineLength = 200
)

var (
	// Kebab-case tokens are the strongest signal for service names in logs.
	serviceToken = regexp.MustCompile(`\b[a-z][a-z0-9]*(?:-[a-z0-9]+)+\b`)

	failureKeywords = []string{
		"error", "fatal", "panic", "timeout", "refused", "unavailable",
		"exception", "oom", "crash",
	}
)

// Hints summarises what the raw logs appear to be about.
type Hints struct {
	Services   []string
	ErrorLines []string
	Keywords   []string
}

// LogHints scans raw log text and extracts candidate services, error lines,
// and matched failure keywords.
func LogHints(logs string) Hints {
	hints := Hints{}
	serviceCounts := make(map[string]int)
	keywordSeen := make(map[string]struct{})

	lines := strings.Split(logs, "\n")
	if len(lines) > maxScanLines {
		lines = lines[:maxScanLines]
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		lowered := strings.ToLower(trimmed)

		for _, token := range serviceToken.FindAllString(lowered, -1) {
			serviceCounts[token]++
		}

		matched := false
		for _, kw := range failureKeywords {
			if strings.Contains(lowered, kw) {
				matched = true
				if _, ok := keywordSeen[kw]; !ok {
					keywordSeen[kw] = struct{}{}
					hints.Keywords = append(hints.Keywords, kw)
				}
			}
		}
		if matched && len(hints.ErrorLines) < maxErrorLines {
			if len(trimmed) > maxLineLength {
				trimmed = trimmed[:maxLineLength]
			}
			hints.ErrorLines = append(hints.ErrorLines, trimmed)
		}
	}

	hints.Services = topServices(serviceCounts, maxServices)
	return hints
}

// Query builds a short search query from the strongest hints.
func (h Hints) Query() string {
	parts := make([]string, 0, 4)
	if len(h.Services) > 0 {
		parts = append(parts, h.Services[0])
	}
	for i, kw := range h.Keywords {
		if i == 2 {
			break
		}
		parts = append(parts, kw)
	}
	if len(parts) == 0 {
		return "service incident troubleshooting"
	}
	return strings.Join(parts, " ") + " incident"
}

func topServices(counts map[string]int, limit int) []string {
	services := make([]string, 0, len(counts))
	for svc := range counts {
		services = append(services, svc)
	}
	sort.Slice(services, func(i, j int) bool {
		if counts[services[i]] != counts[services[j]] {
			return counts[services[i]] > counts[services[j]]
		}
		return services[i] < services[j]
	})
	if len(services) > limit {
		services = services[:limit]
	}
	return services
}
