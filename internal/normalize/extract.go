package normalize

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractJSON pulls the JSON object embedded in raw model text. Markdown code
// fences are stripped, then the substring between the first '{' and the last
// '}' is parsed. A parse failure is a hard error for the caller to surface;
// it is never silently swallowed.
func ExtractJSON(raw string) (map[string]any, error) {
	cleaned := stripCodeFences(raw)

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start == -1 || end == -1 || end < start {
		return nil, fmt.Errorf("no JSON object found in model response")
	}

	var out map[string]any
	if err := json.Unmarshal([]byte(cleaned[start:end+1]), &out); err != nil {
		return nil, fmt.Errorf("parse model JSON: %w", err)
	}
	return out, nil
}

func stripCodeFences(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.Contains(trimmed, "```") {
		return trimmed
	}
	lines := strings.Split(trimmed, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}
