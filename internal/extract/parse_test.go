package extract

import (
	"errors"
	"testing"
)

func TestParseRecordPlainJSON(t *testing.T) {
	record, err := ParseRecord(`{"name": "Acme", "risk_level": "high"}`)
	if err != nil {
		t.Fatalf("ParseRecord() error = %v", err)
	}
	if record["name"] != "Acme" {
		t.Errorf("name = %v", record["name"])
	}
	if record["risk_level"] != "high" {
		t.Errorf("risk_level = %v", record["risk_level"])
	}
}

func TestParseRecordNoStructuredData(t *testing.T) {
	_, err := ParseRecord("No structured data here")
	if err == nil {
		t.Fatal("ParseRecord() expected error")
	}
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Errorf("error = %T, want *ParseError", err)
	}
}

func TestParseRecordEmptyOutput(t *testing.T) {
	for _, raw := range []string{"", "   ", "\n\t"} {
		if _, err := ParseRecord(raw); err == nil {
			t.Errorf("ParseRecord(%q) expected ParseError", raw)
		}
	}
}

func TestParseRecordCodeFence(t *testing.T) {
	raw := "```json\n{\"party\": \"Acme\"}\n```"
	record, err := ParseRecord(raw)
	if err != nil {
		t.Fatalf("ParseRecord() error = %v", err)
	}
	if record["party"] != "Acme" {
		t.Errorf("party = %v", record["party"])
	}
}

func TestParseRecordSurroundingProse(t *testing.T) {
	raw := `Here is the extracted record you asked for:

{"party": "Acme", "obligation": "indemnify counterparty"}

Let me know if you need anything else!`

	record, err := ParseRecord(raw)
	if err != nil {
		t.Fatalf("ParseRecord() error = %v", err)
	}
	if record["obligation"] != "indemnify counterparty" {
		t.Errorf("obligation = %v", record["obligation"])
	}
}

func TestParseRecordRejectsNonObjectJSON(t *testing.T) {
	for _, raw := range []string{`["a","b"]`, `"just a string"`, `42`, `true`, `null`} {
		if _, err := ParseRecord(raw); err == nil {
			t.Errorf("ParseRecord(%q) expected ParseError for non-object JSON", raw)
		}
	}
}

func TestParseRecordNestedObject(t *testing.T) {
	raw := `{"party":"Acme","terms":{"duration":"2 years"},"parties":["Acme","Bolt"]}`
	record, err := ParseRecord(raw)
	if err != nil {
		t.Fatalf("ParseRecord() error = %v", err)
	}
	terms, ok := record["terms"].(map[string]any)
	if !ok || terms["duration"] != "2 years" {
		t.Errorf("terms = %v", record["terms"])
	}
}

func TestParseRecordMalformedJSON(t *testing.T) {
	_, err := ParseRecord(`{"party": "Acme", "obligation": `)
	if err == nil {
		t.Fatal("ParseRecord() expected error for truncated JSON")
	}
}
