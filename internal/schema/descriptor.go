package schema

// FieldType is the semantic type of a descriptor field.
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeNumber  FieldType = "number"
	TypeBoolean FieldType = "boolean"
	TypeEnum    FieldType = "enum"
	TypeObject  FieldType = "object"
	TypeArray   FieldType = "array"
)

// Field is a single field declaration within a schema descriptor.
type Field struct {
	Name        string    `yaml:"name"`
	Type        FieldType `yaml:"type"`
	Required    bool      `yaml:"required"`
	Description string    `yaml:"description,omitempty"`

	// Enum holds the allowed values when Type is "enum".
	Enum []string `yaml:"enum,omitempty"`

	// Fields holds nested field declarations when Type is "object".
	Fields []Field `yaml:"fields,omitempty"`

	// Items declares the element type when Type is "array".
	// The element's Name is unused.
	Items *Field `yaml:"items,omitempty"`
}

// SchemaDescriptor declares the target record structure for one extraction
// schema: an ordered sequence of typed, required-or-optional fields.
// Descriptors are immutable after registry load and shared across runs.
type SchemaDescriptor struct {
	Name        string  `yaml:"name"`
	Description string  `yaml:"description,omitempty"`
	Fields      []Field `yaml:"fields"`
}

// Field returns the declared field with the given name, or nil.
func (d *SchemaDescriptor) Field(name string) *Field {
	for i := range d.Fields {
		if d.Fields[i].Name == name {
			return &d.Fields[i]
		}
	}
	return nil
}
