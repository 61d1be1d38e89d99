package intent

import (
	"context"

	"structgen/chat"
	"structgen/logging"
	"structgen/model"
	"structgen/repair"
)

const classifierInstruction = "Classify the user input into exactly one of " +
	"these categories: question, request, or complaint."

// ClassifierOptions configure a Classifier.
type ClassifierOptions struct {
	// MaxAttempts bounds the repair loop per classification call.
	MaxAttempts int
	// Sampling applies to every backend call. Classification wants a low
	// temperature.
	Sampling model.Options
	// Logger receives debug logs. Defaults to NoOpLogger.
	Logger logging.Logger
}

// Classifier assigns user input a label from the closed intent set. It is a
// repairing generator instantiated with the fixed classification schema,
// so it inherits the repair loop's failure modes.
type Classifier struct {
	gen         *repair.Generator
	maxAttempts int
}

// NewClassifier constructs a Classifier over the given backend.
func NewClassifier(backend model.Backend, optFns ...func(o *ClassifierOptions)) *Classifier {
	opts := ClassifierOptions{
		MaxAttempts: 3,
		Logger:      logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	gen := repair.NewGenerator(backend, func(o *repair.Options) {
		o.Sampling = opts.Sampling
		o.Logger = opts.Logger
	})
	return &Classifier{gen: gen, maxAttempts: opts.MaxAttempts}
}

// Classify returns the validated classification of input. Failure modes are
// those of the repair loop: transport errors pass through, and exhaustion
// of the attempt budget returns *repair.ExhaustedError.
func (c *Classifier) Classify(ctx context.Context, input string) (Result, error) {
	conv := chat.New(
		chat.System(classifierInstruction),
		chat.User(input),
	)

	value, err := c.gen.GenerateValidated(ctx, conv, ClassificationSchema(), c.maxAttempts)
	if err != nil {
		return Result{}, err
	}

	// Schema validation guarantees these shapes: intent is an enum member,
	// confidence a number in [0,1], reasoning a string.
	return Result{
		Intent:     Intent(value["intent"].(string)),
		Confidence: toFloat(value["confidence"]),
		Reasoning:  value["reasoning"].(string),
	}, nil
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return 0
	}
}
