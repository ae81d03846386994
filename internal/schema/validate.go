package schema

import (
	"fmt"
	"strings"
)

// FieldError is a single validation error tied to a field path
// (e.g. "identifiers[2].value").
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) String() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Outcome is the result of validating a record against a descriptor.
// A record is valid when there are no field errors.
type Outcome struct {
	Errors []FieldError `json:"errors,omitempty"`
}

// Valid reports whether the record conformed to the descriptor.
func (o Outcome) Valid() bool {
	return len(o.Errors) == 0
}

// Summary renders all field errors as one line per error, for feeding back
// into a repair prompt.
func (o Outcome) Summary() string {
	lines := make([]string, len(o.Errors))
	for i, e := range o.Errors {
		lines[i] = e.String()
	}
	return strings.Join(lines, "\n")
}

// Validate checks a parsed record against a descriptor: required fields
// present, present values type-conformant, enum membership, nested objects
// and arrays recursively. Pure function, no side effects.
func Validate(record map[string]any, desc *SchemaDescriptor) Outcome {
	var out Outcome
	validateObject(record, desc.Fields, "", &out)
	return out
}

func validateObject(record map[string]any, fields []Field, path string, out *Outcome) {
	for _, f := range fields {
		fieldPath := joinPath(path, f.Name)
		value, present := record[f.Name]
		if !present {
			if f.Required {
				out.Errors = append(out.Errors, FieldError{
					Field:   fieldPath,
					Message: "required field is missing",
				})
			}
			continue
		}
		validateValue(value, f, fieldPath, out)
	}

	// Undeclared fields are rejected so the repair prompt can name them;
	// the generated JSON Schema sets additionalProperties=false to match.
	declared := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		declared[f.Name] = struct{}{}
	}
	for name := range record {
		if _, ok := declared[name]; !ok {
			out.Errors = append(out.Errors, FieldError{
				Field:   joinPath(path, name),
				Message: "field is not declared in the schema",
			})
		}
	}
}

func validateValue(value any, f Field, path string, out *Outcome) {
	if value == nil {
		if f.Required {
			out.Errors = append(out.Errors, FieldError{Field: path, Message: "required field is null"})
		}
		return
	}

	switch f.Type {
	case TypeString:
		if _, ok := value.(string); !ok {
			out.Errors = append(out.Errors, typeError(path, "string", value))
		}

	case TypeNumber:
		switch value.(type) {
		case float64, int, int64:
		default:
			out.Errors = append(out.Errors, typeError(path, "number", value))
		}

	case TypeBoolean:
		if _, ok := value.(bool); !ok {
			out.Errors = append(out.Errors, typeError(path, "boolean", value))
		}

	case TypeEnum:
		s, ok := value.(string)
		if !ok {
			out.Errors = append(out.Errors, typeError(path, "string", value))
			return
		}
		for _, allowed := range f.Enum {
			if s == allowed {
				return
			}
		}
		out.Errors = append(out.Errors, FieldError{
			Field:   path,
			Message: fmt.Sprintf("value %q is not one of [%s]", s, strings.Join(f.Enum, ", ")),
		})

	case TypeObject:
		obj, ok := value.(map[string]any)
		if !ok {
			out.Errors = append(out.Errors, typeError(path, "object", value))
			return
		}
		validateObject(obj, f.Fields, path, out)

	case TypeArray:
		items, ok := value.([]any)
		if !ok {
			out.Errors = append(out.Errors, typeError(path, "array", value))
			return
		}
		if f.Items == nil {
			return
		}
		for i, item := range items {
			validateValue(item, *f.Items, fmt.Sprintf("%s[%d]", path, i), out)
		}

	default:
		out.Errors = append(out.Errors, FieldError{
			Field:   path,
			Message: fmt.Sprintf("descriptor declares unsupported type %q", f.Type),
		})
	}
}

func typeError(path, want string, got any) FieldError {
	return FieldError{
		Field:   path,
		Message: fmt.Sprintf("expected %s, got %s", want, typeName(got)),
	}
}

func typeName(v any) string {
	switch v.(type) {
	case string:
		return "string"
	case float64, int, int64:
		return "number"
	case bool:
		return "boolean"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func joinPath(base, name string) string {
	if base == "" {
		return name
	}
	return base + "." + name
}
