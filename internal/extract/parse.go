package extract

import (
	"encoding/json"
	"strings"
)

// ParseError indicates the model output contained no well-formed JSON
// object. It drives the repair loop rather than aborting the extraction.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return "failed to parse model output: " + e.Reason
}

// ParseRecord locates the structured-data block in raw model output and
// decodes it into a record. Tolerates markdown code fences and surrounding
// prose by trying progressively narrower candidates. Empty output and JSON
// values that are not objects are parse failures.
func ParseRecord(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, &ParseError{Reason: "empty output"}
	}

	candidates := []string{raw}
	if stripped := stripCodeFences(raw); stripped != "" && stripped != raw {
		candidates = append(candidates, stripped)
	}
	if extracted := extractObjectCandidate(raw); extracted != "" && extracted != raw {
		candidates = append(candidates, extracted)
	}

	seen := make(map[string]struct{}, len(candidates))
	for _, candidate := range candidates {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		if _, ok := seen[candidate]; ok {
			continue
		}
		seen[candidate] = struct{}{}

		// Unmarshal accepts JSON null into a map and leaves it nil; that is
		// not an object either.
		var record map[string]any
		if err := json.Unmarshal([]byte(candidate), &record); err == nil && record != nil {
			return record, nil
		}
	}

	return nil, &ParseError{Reason: "no JSON object found in model output"}
}

// stripCodeFences removes a surrounding markdown code fence, if present.
func stripCodeFences(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return ""
	}

	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return ""
	}

	// Drop first fence line.
	lines = lines[1:]
	// Drop trailing fence if present.
	if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// extractObjectCandidate returns the outermost {...} span, covering output
// where the model wrapped the record in prose.
func extractObjectCandidate(content string) string {
	start := strings.Index(content, "{")
	if start < 0 {
		return ""
	}
	end := strings.LastIndex(content, "}")
	if end < start {
		return ""
	}
	return strings.TrimSpace(content[start : end+1])
}
