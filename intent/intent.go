package intent

import (
	"fmt"

	"structgen/schema"
)

// Intent is a classification label drawn from a fixed, closed set.
type Intent string

const (
	// Question asks for information.
	Question Intent = "question"
	// Request asks for an action to be taken.
	Request Intent = "request"
	// Complaint expresses dissatisfaction.
	Complaint Intent = "complaint"
)

// Intents returns the closed set of valid intents in declaration order.
func Intents() []Intent {
	return []Intent{Question, Request, Complaint}
}

// Result is one immutable classification outcome.
type Result struct {
	Intent     Intent  `json:"intent"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// ClassificationSchema is the fixed closed-set schema every classification
// reply must satisfy. The enum constraint guarantees no label outside the
// closed set survives validation.
func ClassificationSchema() schema.Definition {
	enum := make([]string, 0, len(Intents()))
	for _, it := range Intents() {
		enum = append(enum, string(it))
	}
	return schema.New("intent_classification",
		schema.Field{
			Name: "intent", Type: schema.TypeString, Required: true, Enum: enum,
			Description: "the single best matching category",
		},
		schema.Field{
			Name: "confidence", Type: schema.TypeFloat, Required: true,
			Min: schema.Float(0), Max: schema.Float(1),
			Description: "how certain the classification is",
		},
		schema.Field{
			Name: "reasoning", Type: schema.TypeString, Required: true,
			Description: "a brief explanation of the classification",
		},
	)
}

// InvariantViolationError signals that an upstream contract was broken,
// e.g. a label outside the closed set reached dispatch despite the enum
// check. It is fatal and never retried.
type InvariantViolationError struct {
	Component string
	Detail    string
}

// Error implements the error interface.
func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("invariant violation in %s: %s", e.Component, e.Detail)
}
