package schema

import (
	"fmt"
	"math"
)

// Validator checks decoded values against a Definition. The zero value is
// usable and lenient about extra fields.
type Validator struct {
	strict bool
}

// ValidatorOptions configure a Validator.
type ValidatorOptions struct {
	// Strict rejects fields present in the value but absent from the schema.
	// The default is to ignore them.
	Strict bool
}

// NewValidator constructs a Validator.
func NewValidator(optFns ...func(o *ValidatorOptions)) *Validator {
	opts := ValidatorOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Validator{strict: opts.Strict}
}

// Validate checks value against def and returns a complete Outcome. All
// violations are collected in a single pass so corrective feedback can
// address every problem at once. Validation is pure: the same value and
// definition always produce the same outcome.
func (v *Validator) Validate(value any, def Definition) Outcome {
	obj, ok := value.(map[string]any)
	if !ok {
		return InvalidOutcome([]Violation{{Field: RootField, Reason: "not an object"}})
	}

	var violations []Violation
	for _, f := range def.fields {
		raw, present := obj[f.Name]
		if !present || raw == nil {
			if f.Required {
				violations = append(violations, Violation{Field: f.Name, Reason: "missing"})
			}
			continue
		}
		violations = append(violations, checkField(f, raw)...)
	}

	if v.strict {
		declared := make(map[string]struct{}, len(def.fields))
		for _, f := range def.fields {
			declared[f.Name] = struct{}{}
		}
		for name := range obj {
			if _, ok := declared[name]; !ok {
				violations = append(violations, Violation{Field: name, Reason: "not declared in schema"})
			}
		}
	}

	if len(violations) > 0 {
		return InvalidOutcome(violations)
	}
	return ValidOutcome(obj)
}

// checkField validates a single present field value. Types are matched
// exactly against the JSON runtime representation: a numeric-looking string
// is never accepted for a numeric field.
func checkField(f Field, raw any) []Violation {
	var violations []Violation

	switch f.Type {
	case TypeString:
		s, ok := raw.(string)
		if !ok {
			return []Violation{typeMismatch(f, raw)}
		}
		if len(f.Enum) > 0 && !inSet(s, f.Enum) {
			violations = append(violations, Violation{Field: f.Name, Reason: "not in allowed set"})
		}
	case TypeBool:
		if _, ok := raw.(bool); !ok {
			return []Violation{typeMismatch(f, raw)}
		}
	case TypeInt:
		n, ok := asNumber(raw)
		if !ok || n != math.Trunc(n) {
			return []Violation{typeMismatch(f, raw)}
		}
		violations = append(violations, checkRange(f, n)...)
	case TypeFloat:
		n, ok := asNumber(raw)
		if !ok {
			return []Violation{typeMismatch(f, raw)}
		}
		violations = append(violations, checkRange(f, n)...)
	default:
		violations = append(violations, Violation{
			Field:  f.Name,
			Reason: fmt.Sprintf("unknown declared type %q", f.Type),
		})
	}

	return violations
}

func checkRange(f Field, n float64) []Violation {
	if f.Min != nil && n < *f.Min {
		return []Violation{outOfRange(f)}
	}
	if f.Max != nil && n > *f.Max {
		return []Violation{outOfRange(f)}
	}
	return nil
}

func outOfRange(f Field) Violation {
	switch {
	case f.Min != nil && f.Max != nil:
		return Violation{Field: f.Name, Reason: fmt.Sprintf("out of range [%g, %g]", *f.Min, *f.Max)}
	case f.Min != nil:
		return Violation{Field: f.Name, Reason: fmt.Sprintf("below minimum %g", *f.Min)}
	default:
		return Violation{Field: f.Name, Reason: fmt.Sprintf("above maximum %g", *f.Max)}
	}
}

func typeMismatch(f Field, raw any) Violation {
	return Violation{
		Field:  f.Name,
		Reason: fmt.Sprintf("type mismatch: expected %s got %s", f.Type, runtimeType(raw)),
	}
}

// runtimeType names the JSON runtime type of a decoded value.
func runtimeType(v any) string {
	switch v.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, float32, int, int32, int64:
		return "number"
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

// asNumber extracts a numeric value from the JSON runtime representations a
// decoder may produce.
func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func inSet(s string, set []string) bool {
	for _, m := range set {
		if s == m {
			return true
		}
	}
	return false
}

// Float is a convenience for building Min/Max bounds inline.
func Float(v float64) *float64 { return &v }
