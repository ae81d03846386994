package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/clausewise/clausewise/internal/providers"
	"github.com/clausewise/clausewise/internal/schema"
	"github.com/clausewise/clausewise/internal/types"
)

func testRegistry(t *testing.T) *schema.Registry {
	t.Helper()
	r, err := schema.Load()
	if err != nil {
		t.Fatalf("schema.Load() error = %v", err)
	}
	return r
}

func testDoc() types.Document {
	return types.Document{
		Name: "msa.txt",
		Text: "Acme shall indemnify and hold harmless the counterparty from all claims.",
	}
}

func newTestExtractor(t *testing.T, mc *providers.MockClient) *Extractor {
	t.Helper()
	return New(testRegistry(t), mc, Config{MaxAttempts: 3}, nil)
}

func TestExtractSucceedsAfterRepair(t *testing.T) {
	mc := providers.NewMockClient()
	mc.Responses = []string{
		"I'm sorry, I could not find any structured data.",
		`{"party":"Acme","obligation":"indemnify counterparty"}`,
	}

	e := newTestExtractor(t, mc)
	result, err := e.Extract(context.Background(), testDoc(), "indemnification_clause")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if !result.Succeeded() {
		t.Fatalf("status = %s, attempts = %+v", result.Status, result.Attempts)
	}
	if result.Record["party"] != "Acme" {
		t.Errorf("party = %v", result.Record["party"])
	}
	if result.Record["obligation"] != "indemnify counterparty" {
		t.Errorf("obligation = %v", result.Record["obligation"])
	}
	if len(result.Attempts) != 1 {
		t.Errorf("attempt history = %d entries, want 1", len(result.Attempts))
	}
	if mc.RequestCount() != 2 {
		t.Errorf("requests = %d, want 2", mc.RequestCount())
	}

	// The second request must be the repair variant, carrying the first
	// attempt's raw output and exact error string.
	repairPrompt := mc.Requests()[1].Messages[1].Content
	if !strings.Contains(repairPrompt, "could not find any structured data") {
		t.Error("repair prompt missing prior raw output")
	}
	if !strings.Contains(repairPrompt, result.Attempts[0].Errors[0]) {
		t.Error("repair prompt missing exact prior error string")
	}
}

func TestExtractRepairsValidationFailure(t *testing.T) {
	mc := providers.NewMockClient()
	mc.Responses = []string{
		`{"party":"Acme"}`,
		`{"party":"Acme","obligation":"indemnify counterparty"}`,
	}

	e := newTestExtractor(t, mc)
	result, err := e.Extract(context.Background(), testDoc(), "indemnification_clause")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if !result.Succeeded() {
		t.Fatalf("status = %s", result.Status)
	}

	repairPrompt := mc.Requests()[1].Messages[1].Content
	if !strings.Contains(repairPrompt, "obligation: required field is missing") {
		t.Errorf("repair prompt missing field-level error:\n%s", repairPrompt)
	}
}

func TestExtractFirstValidTerminatesImmediately(t *testing.T) {
	mc := providers.NewMockClient()
	mc.Responses = []string{`{"party":"Acme","obligation":"indemnify"}`}

	e := newTestExtractor(t, mc)
	result, err := e.Extract(context.Background(), testDoc(), "indemnification_clause")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if !result.Succeeded() {
		t.Fatalf("status = %s", result.Status)
	}
	if mc.RequestCount() != 1 {
		t.Errorf("requests = %d, want 1 (no calls after first valid outcome)", mc.RequestCount())
	}
	if len(result.Attempts) != 0 {
		t.Errorf("attempt history = %d entries, want 0", len(result.Attempts))
	}
}

func TestExtractExhaustsAttemptBudget(t *testing.T) {
	mc := providers.NewMockClient()
	mc.Responses = []string{"still no JSON from me"} // repeats every attempt

	e := newTestExtractor(t, mc)
	result, err := e.Extract(context.Background(), testDoc(), "indemnification_clause")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if result.Succeeded() {
		t.Fatal("status = success, want failure")
	}
	if mc.RequestCount() != 3 {
		t.Errorf("requests = %d, want exactly MaxAttempts", mc.RequestCount())
	}
	if len(result.Attempts) != 3 {
		t.Errorf("attempt history = %d entries, want 3", len(result.Attempts))
	}
	if result.Error == "" {
		t.Error("failure result missing last error")
	}
	if result.Record != nil {
		t.Error("failure result must not carry a partial record")
	}
}

func TestExtractUnknownSchemaFailsFast(t *testing.T) {
	mc := providers.NewMockClient()

	e := newTestExtractor(t, mc)
	_, err := e.Extract(context.Background(), testDoc(), "no_such_schema")
	if err == nil {
		t.Fatal("Extract() expected error")
	}
	if !errors.Is(err, schema.ErrUnknownSchema) {
		t.Errorf("error = %v, want ErrUnknownSchema", err)
	}
	if mc.RequestCount() != 0 {
		t.Errorf("requests = %d, want 0 (unknown schema is never retried)", mc.RequestCount())
	}
}

func TestExtractEndpointUnreachableEveryAttempt(t *testing.T) {
	mc := providers.NewMockClient()
	mc.FailWith = fmt.Errorf("%w: connection refused", providers.ErrEndpointUnreachable)

	e := newTestExtractor(t, mc)
	result, err := e.Extract(context.Background(), testDoc(), "indemnification_clause")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if result.Succeeded() {
		t.Fatal("status = success, want failure")
	}
	if result.Record != nil {
		t.Error("no partial record may be emitted")
	}
	if len(result.Attempts) != 3 {
		t.Fatalf("attempt history = %d entries, want 3", len(result.Attempts))
	}
	for _, a := range result.Attempts {
		if len(a.Errors) == 0 || !strings.Contains(a.Errors[0], "unreachable") {
			t.Errorf("attempt errors = %v, want unreachable recorded", a.Errors)
		}
	}
}

func TestExtractEndpointFailureDoesNotBuildRepairPrompt(t *testing.T) {
	mc := providers.NewMockClient()
	mc.FailFirst = 1
	mc.Responses = []string{
		`{"party":"Acme","obligation":"indemnify"}`,
	}

	e := newTestExtractor(t, mc)
	result, err := e.Extract(context.Background(), testDoc(), "indemnification_clause")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if !result.Succeeded() {
		t.Fatalf("status = %s", result.Status)
	}

	// The retry after an endpoint failure has no output to repair against,
	// so its prompt must be the base variant.
	second := mc.Requests()[1].Messages[1].Content
	if strings.Contains(second, "previous attempts") {
		t.Error("retry after endpoint failure should reuse the base prompt")
	}
}

func TestExtractEmptyOutputFeedsRepair(t *testing.T) {
	mc := providers.NewMockClient()
	mc.Responses = []string{
		"",
		`{"party":"Acme","obligation":"indemnify"}`,
	}

	e := newTestExtractor(t, mc)
	result, err := e.Extract(context.Background(), testDoc(), "indemnification_clause")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if !result.Succeeded() {
		t.Fatalf("status = %s", result.Status)
	}

	// An empty response is a parse failure, not an endpoint failure: the
	// retry must carry it in the repair prompt, exact error included.
	second := mc.Requests()[1].Messages[1].Content
	if !strings.Contains(second, "previous attempts") {
		t.Error("retry after empty output should use the repair variant")
	}
	if !strings.Contains(second, "empty output") {
		t.Errorf("repair prompt missing the empty-output error:\n%s", second)
	}
}

func TestExtractAbsentOptionalFieldsIsSuccess(t *testing.T) {
	mc := providers.NewMockClient()
	mc.Responses = []string{`{"party":"Acme","obligation":"indemnify"}`}

	e := newTestExtractor(t, mc)
	result, err := e.Extract(context.Background(), testDoc(), "indemnification_clause")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if !result.Succeeded() {
		t.Fatalf("record with only required fields should succeed, got %s", result.Status)
	}
}

func TestExtractCancelledContext(t *testing.T) {
	mc := providers.NewMockClient()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := newTestExtractor(t, mc)
	_, err := e.Extract(ctx, testDoc(), "indemnification_clause")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestExtractBatch(t *testing.T) {
	mc := providers.NewMockClient()
	mc.ResponseText = `{"party":"Acme","obligation":"indemnify"}`

	docs := []types.Document{
		{Name: "a.txt", Text: "Acme shall indemnify."},
		{Name: "b.txt", Text: "Bolt shall defend."},
		{Name: "c.txt", Text: "Crane shall hold harmless."},
	}

	e := New(testRegistry(t), mc, Config{MaxAttempts: 3, Concurrency: 2}, nil)
	results, err := e.ExtractBatch(context.Background(), docs, "indemnification_clause")
	if err != nil {
		t.Fatalf("ExtractBatch() error = %v", err)
	}

	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}
	for i, r := range results {
		if r == nil || !r.Succeeded() {
			t.Errorf("result %d = %+v, want success", i, r)
			continue
		}
		if r.DocumentName != docs[i].Name {
			t.Errorf("result %d document = %q, want %q", i, r.DocumentName, docs[i].Name)
		}
	}
}

func TestExtractBatchUnknownSchema(t *testing.T) {
	mc := providers.NewMockClient()
	e := newTestExtractor(t, mc)

	_, err := e.ExtractBatch(context.Background(), []types.Document{testDoc()}, "nope")
	if !errors.Is(err, schema.ErrUnknownSchema) {
		t.Errorf("error = %v, want ErrUnknownSchema", err)
	}
	if mc.RequestCount() != 0 {
		t.Errorf("requests = %d, want 0", mc.RequestCount())
	}
}

func TestExtractEnumViolationFeedsRepair(t *testing.T) {
	mc := providers.NewMockClient()
	mc.Responses = []string{
		`{"party":"Acme","obligation":"indemnify","risk_level":"extreme"}`,
		`{"party":"Acme","obligation":"indemnify","risk_level":"high"}`,
	}

	e := newTestExtractor(t, mc)
	result, err := e.Extract(context.Background(), testDoc(), "indemnification_clause")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if !result.Succeeded() {
		t.Fatalf("status = %s", result.Status)
	}

	repairPrompt := mc.Requests()[1].Messages[1].Content
	if !strings.Contains(repairPrompt, `"extreme"`) {
		t.Errorf("repair prompt should name the offending enum value:\n%s", repairPrompt)
	}
}
