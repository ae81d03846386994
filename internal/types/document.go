// Package types holds the small shared data types passed between the
// pipeline packages.
package types

// Document is one unit of extraction input: an identifier plus the raw text
// body. Immutable once loaded.
type Document struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

// Attempt records one failed extraction attempt: the raw model output and
// the errors that rejected it. Attempts accumulate in request order and feed
// the repair prompt for the next attempt.
type Attempt struct {
	RawOutput string   `json:"rawOutput"`
	Errors    []string `json:"errors"`

	// EndpointFailure marks an attempt where the inference call itself
	// failed, so there is no model output to repair against.
	EndpointFailure bool `json:"endpointFailure,omitempty"`
}
