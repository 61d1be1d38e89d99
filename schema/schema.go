package schema

import (
	"fmt"
	"strings"
)

// Type is the declared primitive type of a schema field.
type Type string

const (
	// TypeString accepts JSON strings.
	TypeString Type = "string"
	// TypeInt accepts JSON numbers with no fractional part.
	TypeInt Type = "integer"
	// TypeFloat accepts any JSON number.
	TypeFloat Type = "number"
	// TypeBool accepts JSON booleans.
	TypeBool Type = "boolean"
)

// Field declares one named field of a structured payload.
type Field struct {
	Name        string
	Type        Type
	Required    bool
	Description string

	// Enum, when non-empty, restricts a string field to an exact closed set.
	Enum []string

	// Min and Max, when set, bound a numeric field inclusively.
	Min *float64
	Max *float64
}

// Definition is an ordered, immutable set of field declarations describing
// the payload a backend is expected to produce.
type Definition struct {
	name   string
	fields []Field
}

// New constructs a Definition. The field order is preserved; it drives the
// order of the generated format instruction and of reported violations.
func New(name string, fields ...Field) Definition {
	d := Definition{name: name, fields: make([]Field, len(fields))}
	copy(d.fields, fields)
	return d
}

// Name returns the schema name.
func (d Definition) Name() string { return d.name }

// Fields returns a copy of the ordered field declarations.
func (d Definition) Fields() []Field {
	out := make([]Field, len(d.fields))
	copy(out, d.fields)
	return out
}

// Instruction renders a prompt fragment instructing the backend to emit a
// JSON object matching this definition.
func (d Definition) Instruction() string {
	var b strings.Builder
	b.WriteString("Return ONLY a JSON object with these fields:\n")
	for _, f := range d.fields {
		b.WriteString("- ")
		b.WriteString(f.Name)
		b.WriteString(": ")
		b.WriteString(string(f.Type))
		if len(f.Enum) > 0 {
			fmt.Fprintf(&b, ", exactly one of: %s", strings.Join(f.Enum, ", "))
		}
		if f.Min != nil && f.Max != nil {
			fmt.Fprintf(&b, ", between %g and %g", *f.Min, *f.Max)
		}
		if !f.Required {
			b.WriteString(" (optional, null if unknown)")
		}
		if f.Description != "" {
			b.WriteString(" - ")
			b.WriteString(f.Description)
		}
		b.WriteString("\n")
	}
	b.WriteString("Do not include any other text.")
	return b.String()
}

// Violation records a single schema violation for one field. The pseudo
// field name "<root>" is used when the payload as a whole is rejected.
type Violation struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (v Violation) String() string { return v.Field + ": " + v.Reason }

// RootField is the violation field name used for whole-payload rejections.
const RootField = "<root>"

// Outcome is the result of validating a value against a Definition. It is a
// strict sum: either Valid with a value, or Invalid with at least one
// violation, never both.
type Outcome struct {
	value      map[string]any
	violations []Violation
}

// ValidOutcome wraps a value that satisfied the schema.
func ValidOutcome(value map[string]any) Outcome {
	return Outcome{value: value}
}

// InvalidOutcome wraps the complete violation list of a failed validation.
func InvalidOutcome(violations []Violation) Outcome {
	return Outcome{violations: violations}
}

// Valid reports whether the validated value satisfied the schema.
func (o Outcome) Valid() bool { return len(o.violations) == 0 }

// Value returns the validated value. It is nil unless Valid.
func (o Outcome) Value() map[string]any { return o.value }

// Violations returns every violation found in one validation pass.
func (o Outcome) Violations() []Violation { return o.violations }
