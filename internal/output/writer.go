// Package output persists extraction results as JSON files.
package output

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/clausewise/clausewise/internal/extract"
)

// Write serializes one extraction result to path as indented JSON. Nothing
// is written before a result is terminal, so cancelled extractions leave no
// partial files behind.
func Write(path string, result *extract.Result) error {
	return writeJSON(path, result)
}

// WriteAll serializes a batch of results to path as a JSON array, in input
// order.
func WriteAll(path string, results []*extract.Result) error {
	return writeJSON(path, results)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
