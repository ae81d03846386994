// Package extract runs the structured extraction pipeline: build prompt,
// call the inference endpoint, parse and validate the output, and repair
// malformed or schema-violating responses within a bounded attempt budget.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/clausewise/clausewise/internal/prompt"
	"github.com/clausewise/clausewise/internal/providers"
	"github.com/clausewise/clausewise/internal/schema"
	"github.com/clausewise/clausewise/internal/types"
)

// Config controls extraction behavior.
type Config struct {
	// MaxAttempts bounds the repair loop, counting the first attempt
	// (default: 3).
	MaxAttempts int
	// Model overrides the client's default model.
	Model string
	// Temperature for inference (default 0 for determinism).
	Temperature float64
	// MaxTokens caps the model output length (default: 2048).
	MaxTokens int
	// Timeout per inference call (0 = client default).
	Timeout time.Duration
	// Concurrency bounds simultaneous documents in ExtractBatch
	// (default: 8).
	Concurrency int
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 2048
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 8
	}
	return c
}

// loop states for one extraction run. Terminal on success or once the
// attempt budget is exhausted.
type runState int

const (
	statePending runState = iota
	stateRunning
	stateSucceeded
	stateFailed
)

func (s runState) String() string {
	switch s {
	case statePending:
		return "pending"
	case stateRunning:
		return "running"
	case stateSucceeded:
		return "succeeded"
	case stateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Extractor coordinates the pipeline per document. Safe for concurrent use:
// each call keeps its own attempt history.
type Extractor struct {
	registry *schema.Registry
	client   providers.Client
	cfg      Config
	logger   *slog.Logger
}

// New creates an Extractor.
func New(registry *schema.Registry, client providers.Client, cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Extractor{
		registry: registry,
		client:   client,
		cfg:      cfg.withDefaults(),
		logger:   logger,
	}
}

// Extract runs one document through the pipeline. An unknown schema fails
// fast with an error and is never retried; parse and validation failures
// drive the repair loop; endpoint failures (after the client's own transient
// retries) consume an attempt without producing a repair prompt. A terminal
// Failure is returned as a Result, not an error.
func (e *Extractor) Extract(ctx context.Context, doc types.Document, schemaName string) (*Result, error) {
	desc, err := e.registry.Get(schemaName)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result := &Result{
		RecordID:     uuid.New().String(),
		DocumentName: doc.Name,
		Schema:       schemaName,
	}

	rfRaw, err := json.Marshal(schema.ResponseFormatSchema(desc))
	if err != nil {
		return nil, fmt.Errorf("failed to render response format: %w", err)
	}
	responseFormat := &providers.ResponseFormat{Type: "json_schema", JSONSchema: rfRaw}

	var attempts []types.Attempt
	var lastErr error
	state := statePending

	for attempt := 1; attempt <= e.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		state = stateRunning
		e.logger.Debug("extraction attempt",
			"document", doc.Name, "schema", schemaName,
			"attempt", attempt, "state", state.String())

		res, err := e.client.Chat(ctx, &providers.ChatRequest{
			Messages:       prompt.Messages(doc, desc, repairable(attempts)),
			Model:          e.cfg.Model,
			Temperature:    e.cfg.Temperature,
			MaxTokens:      e.cfg.MaxTokens,
			Timeout:        e.cfg.Timeout,
			ResponseFormat: responseFormat,
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			attempts = append(attempts, types.Attempt{
				Errors:          []string{err.Error()},
				EndpointFailure: true,
			})
			lastErr = err
			e.logger.Warn("inference call failed",
				"document", doc.Name, "attempt", attempt, "error", err)
			continue
		}
		result.ModelUsed = res.ModelUsed

		record, perr := ParseRecord(res.Content)
		if perr != nil {
			attempts = append(attempts, types.Attempt{
				RawOutput: res.Content,
				Errors:    []string{perr.Error()},
			})
			lastErr = perr
			e.logger.Warn("model output unparseable",
				"document", doc.Name, "attempt", attempt, "error", perr)
			continue
		}

		outcome := schema.Validate(record, desc)
		if outcome.Valid() {
			state = stateSucceeded
			result.Status = StatusSuccess
			result.Record = record
			result.Attempts = attempts
			result.Duration = time.Since(start)
			e.logger.Info("extraction succeeded",
				"document", doc.Name, "schema", schemaName,
				"attempts", attempt, "state", state.String())
			return result, nil
		}

		errs := make([]string, len(outcome.Errors))
		for i, fe := range outcome.Errors {
			errs[i] = fe.String()
		}
		attempts = append(attempts, types.Attempt{RawOutput: res.Content, Errors: errs})
		lastErr = fmt.Errorf("record does not conform to schema %s: %s", schemaName, outcome.Summary())
		e.logger.Warn("record failed validation",
			"document", doc.Name, "attempt", attempt, "errors", len(outcome.Errors))
	}

	state = stateFailed
	result.Status = StatusFailure
	result.Attempts = attempts
	if lastErr != nil {
		result.Error = lastErr.Error()
	}
	result.Duration = time.Since(start)
	e.logger.Error("extraction exhausted attempt budget",
		"document", doc.Name, "schema", schemaName,
		"attempts", e.cfg.MaxAttempts, "state", state.String())
	return result, nil
}

// ExtractBatch runs independent extractions for many documents with bounded
// concurrency. Results are positionally aligned with docs. The first
// non-result error (unknown schema, cancellation) aborts the batch.
func (e *Extractor) ExtractBatch(ctx context.Context, docs []types.Document, schemaName string) ([]*Result, error) {
	if _, err := e.registry.Get(schemaName); err != nil {
		return nil, err
	}

	results := make([]*Result, len(docs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Concurrency)

	for i, doc := range docs {
		g.Go(func() error {
			r, err := e.Extract(ctx, doc, schemaName)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// repairable filters endpoint failures out of the attempt history: they
// have nothing to repair against, so the retry after one reuses the base
// (or previous repair) prompt. Parse and validation failures stay, even
// when the model returned no output at all.
func repairable(attempts []types.Attempt) []types.Attempt {
	out := make([]types.Attempt, 0, len(attempts))
	for _, a := range attempts {
		if !a.EndpointFailure {
			out = append(out, a)
		}
	}
	return out
}
