package extract

import (
	"time"

	"github.com/clausewise/clausewise/internal/types"
)

// Status tags a terminal extraction result.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// Result is the terminal outcome of one document extraction. A success
// carries a record that satisfies every constraint of the schema it was
// produced with; a failure carries the exhausted attempt history and the
// last error, so non-convergence is always diagnosable.
type Result struct {
	RecordID     string `json:"recordId"`
	DocumentName string `json:"documentName"`
	Schema       string `json:"schema"`
	Status       Status `json:"status"`

	// Record is set only on success.
	Record map[string]any `json:"record,omitempty"`

	// Attempts holds every failed attempt (raw output + errors), including
	// endpoint failures, in request order.
	Attempts []types.Attempt `json:"attempts,omitempty"`

	// Error is the last failure when Status is failure.
	Error string `json:"error,omitempty"`

	ModelUsed string        `json:"modelUsed,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// Succeeded reports whether the extraction converged on a valid record.
func (r *Result) Succeeded() bool {
	return r.Status == StatusSuccess
}
