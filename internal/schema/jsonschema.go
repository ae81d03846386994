package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// JSONSchema renders a descriptor as a JSON Schema document suitable for an
// OpenAI-compatible response_format block.
func JSONSchema(desc *SchemaDescriptor) map[string]any {
	root := objectSchema(desc.Fields)
	if desc.Description != "" {
		root["description"] = desc.Description
	}
	return root
}

// ResponseFormatSchema wraps the rendered schema in the
// {"name","strict","schema"} envelope used by json_schema response formats.
func ResponseFormatSchema(desc *SchemaDescriptor) map[string]any {
	return map[string]any{
		"name":   desc.Name,
		"strict": true,
		"schema": JSONSchema(desc),
	}
}

func objectSchema(fields []Field) map[string]any {
	props := make(map[string]any, len(fields))
	required := make([]string, 0, len(fields))
	for _, f := range fields {
		props[f.Name] = fieldSchema(f)
		if f.Required {
			required = append(required, f.Name)
		}
	}
	schema := map[string]any{
		"type":                 "object",
		"properties":           props,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func fieldSchema(f Field) map[string]any {
	var schema map[string]any
	switch f.Type {
	case TypeEnum:
		schema = map[string]any{"type": "string", "enum": f.Enum}
	case TypeObject:
		schema = objectSchema(f.Fields)
	case TypeArray:
		items := map[string]any{}
		if f.Items != nil {
			items = fieldSchema(*f.Items)
		}
		schema = map[string]any{"type": "array", "items": items}
	default:
		schema = map[string]any{"type": string(f.Type)}
	}
	if f.Description != "" {
		schema["description"] = f.Description
	}
	return schema
}

// compileCheck verifies the rendered JSON Schema compiles, catching
// descriptor mistakes (bad types, empty enums) at registry load.
func compileCheck(desc *SchemaDescriptor) error {
	raw, err := json.Marshal(JSONSchema(desc))
	if err != nil {
		return fmt.Errorf("failed to serialize schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("failed to load schema: %w", err)
	}
	if _, err := compiler.Compile("schema.json"); err != nil {
		return fmt.Errorf("failed to compile schema: %w", err)
	}
	return nil
}
