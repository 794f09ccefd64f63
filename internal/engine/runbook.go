package engine

import (
	"errors"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/opsvista/incident-analyzer/internal/models"
)

// RunbookEngine appends operator-curated recovery steps from a YAML rule pack
// when a rule matches the analyzed incident.
type RunbookEngine struct {
	rules  []RunbookRule
	logger *slog.Logger
}

// RunbookRule maps incident attributes onto extra runbook steps.
type RunbookRule struct {
	ID    string       `yaml:"id"`
	Match RunbookMatch `yaml:"match"`
	Steps []string     `yaml:"steps"`
}

// RunbookMatch defines optional attributes for rule matching; empty fields
// match everything.
type RunbookMatch struct {
	IncidentTypeContains []string `yaml:"incident_type_contains"`
	Service              string   `yaml:"service"`
	MinSeverity          int      `yaml:"min_severity"`
}

// RunbookConfigFile is the YAML root structure.
type RunbookConfigFile struct {
	Rules []RunbookRule `yaml:"rules"`
}

// NewRunbookEngine loads rules from the provided path. An empty or missing
// path yields a nil engine, which matches nothing.
func NewRunbookEngine(path string, logger *slog.Logger) (*RunbookEngine, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var cfg RunbookConfigFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RunbookEngine{rules: cfg.Rules, logger: logger}, nil
}

// Steps returns the extra runbook steps whose rules match the report.
func (e *RunbookEngine) Steps(report models.IncidentReport) []string {
	if e == nil {
		return nil
	}

	matched := make([]string, 0)
	for _, rule := range e.rules {
		if len(rule.Match.IncidentTypeContains) > 0 && !incidentTypeMatches(rule.Match.IncidentTypeContains, report.IncidentType) {
			continue
		}
		if rule.Match.Service != "" && !reportHasService(rule.Match.Service, report.Services) {
			continue
		}
		if rule.Match.MinSeverity > 0 && report.SeverityScore < rule.Match.MinSeverity {
			continue
		}
		matched = appendUnique(matched, rule.Steps...)
	}
	return matched
}

func incidentTypeMatches(keywords []string, incidentType string) bool {
	lowered := strings.ToLower(incidentType)
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lowered, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func reportHasService(service string, services []models.Service) bool {
	for _, svc := range services {
		if strings.EqualFold(service, svc.Name) {
			return true
		}
	}
	return false
}

func appendUnique(existing []string, additions ...string) []string {
	seen := make(map[string]struct{}, len(existing))
	for _, step := range existing {
		seen[step] = struct{}{}
	}
	for _, item := range additions {
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		existing = append(existing, item)
		seen[item] = struct{}{}
	}
	return existing
}
