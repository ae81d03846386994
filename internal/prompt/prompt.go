// Package prompt builds the instruction text sent to the inference
// endpoint. Building is deterministic: identical inputs yield byte-identical
// prompts, which keeps runs reproducible and testable.
package prompt

import (
	"fmt"
	"strings"

	"github.com/clausewise/clausewise/internal/providers"
	"github.com/clausewise/clausewise/internal/schema"
	"github.com/clausewise/clausewise/internal/types"
)

// maxAttemptOutputChars caps how much of a prior attempt's raw output is
// echoed back into a repair prompt, to avoid blowing the context window.
const maxAttemptOutputChars = 12000

// System is the system prompt for all extraction requests.
const System = `You are a meticulous data extraction engine for compliance and legal documents. You will be given a document and a target schema. Extract the requested fields from the document and return them as a single JSON object.

Rules:
1. Return ONLY one JSON object. No markdown fences, no commentary, no prose before or after.
2. Populate every required field. Omit optional fields that the document does not support.
3. Use values taken from the document itself; never invent facts.
4. Enumerated fields must use one of the allowed values exactly as listed.`

// Build composes the user prompt for an extraction attempt. When attempts is
// non-empty it produces the repair variant, which carries every prior raw
// output with its exact validation errors and instructs the model to correct
// only the offending fields.
func Build(doc types.Document, desc *schema.SchemaDescriptor, attempts []types.Attempt) string {
	var b strings.Builder

	b.WriteString("Target schema: ")
	b.WriteString(desc.Name)
	b.WriteString("\n")
	if desc.Description != "" {
		b.WriteString(desc.Description)
		b.WriteString("\n")
	}
	b.WriteString("\nFields:\n")
	renderFields(&b, desc.Fields, 0)

	fmt.Fprintf(&b, "\nDocument %q:\n---\n%s\n---\n", doc.Name, doc.Text)

	if len(attempts) == 0 {
		b.WriteString("\nReturn the extracted record as a single JSON object.")
		return b.String()
	}

	b.WriteString("\nYour previous attempts did not conform to the schema.\n")
	for i, a := range attempts {
		fmt.Fprintf(&b, "\nAttempt %d output:\n---\n%s\n---\n", i+1, truncateOutput(a.RawOutput))
		if len(a.Errors) > 0 {
			b.WriteString("Errors:\n")
			for _, e := range a.Errors {
				b.WriteString(e)
				b.WriteString("\n")
			}
		}
	}
	b.WriteString("\nCorrect ONLY the offending fields listed in the errors above. Keep every field that was already valid unchanged. Return the full corrected record as a single JSON object with no other text.")

	return b.String()
}

// Messages assembles the chat messages for an extraction attempt.
func Messages(doc types.Document, desc *schema.SchemaDescriptor, attempts []types.Attempt) []providers.Message {
	return []providers.Message{
		{Role: "system", Content: System},
		{Role: "user", Content: Build(doc, desc, attempts)},
	}
}

// renderFields writes one line per field: name, type, required-ness, enum
// values, and description, recursing into objects and array elements.
func renderFields(b *strings.Builder, fields []schema.Field, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, f := range fields {
		fmt.Fprintf(b, "%s- %s (%s, %s)", indent, f.Name, typeLabel(f), requiredLabel(f.Required))
		if f.Description != "" {
			b.WriteString(": ")
			b.WriteString(f.Description)
		}
		b.WriteString("\n")

		switch f.Type {
		case schema.TypeObject:
			renderFields(b, f.Fields, depth+1)
		case schema.TypeArray:
			if f.Items != nil && f.Items.Type == schema.TypeObject {
				renderFields(b, f.Items.Fields, depth+1)
			}
		}
	}
}

func typeLabel(f schema.Field) string {
	switch f.Type {
	case schema.TypeEnum:
		return "one of: " + strings.Join(f.Enum, " | ")
	case schema.TypeArray:
		if f.Items != nil {
			return "array of " + typeLabel(*f.Items)
		}
		return "array"
	default:
		return string(f.Type)
	}
}

func requiredLabel(required bool) string {
	if required {
		return "required"
	}
	return "optional"
}

func truncateOutput(raw string) string {
	raw = strings.TrimSpace(raw)
	if len(raw) > maxAttemptOutputChars {
		return raw[:maxAttemptOutputChars] + "\n...[truncated]"
	}
	return raw
}
