package repair

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"structgen/chat"
	"structgen/logging"
	"structgen/model"
	"structgen/schema"
)

// MalformedOutputError reports backend output that could not be decoded as
// structured data. Within the repair loop it is treated identically to a
// validation failure.
type MalformedOutputError struct {
	Raw string
	Err error
}

// Error implements the error interface.
func (e *MalformedOutputError) Error() string {
	return fmt.Sprintf("malformed output: %v", e.Err)
}

// Unwrap exposes the decode error.
func (e *MalformedOutputError) Unwrap() error { return e.Err }

// ExhaustedError is returned when no attempt produced a schema-valid value.
// It carries the failure of the final attempt (the decode error or the
// violation list) plus whatever partial state that attempt left behind, so
// callers can degrade from it instead of starting over.
type ExhaustedError struct {
	Attempts   int
	LastErr    error
	Violations []schema.Violation
	// Raw is the final attempt's raw backend output.
	Raw string
	// Value is the final attempt's decoded object, nil when decoding failed.
	Value map[string]any
}

// Error implements the error interface.
func (e *ExhaustedError) Error() string {
	if len(e.Violations) > 0 {
		return fmt.Sprintf("no valid output after %d attempts, last violations: %s",
			e.Attempts, joinViolations(e.Violations))
	}
	return fmt.Sprintf("no valid output after %d attempts: %v", e.Attempts, e.LastErr)
}

// Unwrap exposes the final attempt's error, if any.
func (e *ExhaustedError) Unwrap() error { return e.LastErr }

// Options configure a Generator.
type Options struct {
	// Validator checks decoded values. Defaults to a lenient validator.
	Validator *schema.Validator
	// Sampling applies to every backend call. Structured extraction usually
	// wants a low temperature.
	Sampling model.Options
	// Logger receives per-attempt debug logs. Defaults to NoOpLogger.
	Logger logging.Logger
}

// Generator drives the generate, decode, validate, repair loop that turns an
// unreliable, schema-agnostic backend into a schema-consistent producer.
type Generator struct {
	backend   model.Backend
	validator *schema.Validator
	sampling  model.Options
	logger    logging.Logger
}

// NewGenerator constructs a Generator for the given backend.
func NewGenerator(backend model.Backend, optFns ...func(o *Options)) *Generator {
	opts := Options{
		Validator: schema.NewValidator(),
		Logger:    logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Generator{
		backend:   backend,
		validator: opts.Validator,
		sampling:  opts.Sampling,
		logger:    opts.Logger,
	}
}

// GenerateValidated runs up to maxAttempts backend calls until one reply
// decodes and validates against def. Each failed attempt appends the raw
// assistant output and a corrective user turn embedding the specific
// violation list, so later attempts can converge. The conversation grows in
// strict chronological order and is private to this invocation.
//
// Decode and validation failures are the only reasons an attempt is
// retried; transport failures are returned as-is (compose a retry.Policy
// around the backend for those). Exhaustion returns *ExhaustedError.
func (g *Generator) GenerateValidated(
	ctx context.Context,
	conv chat.Conversation,
	def schema.Definition,
	maxAttempts int,
) (map[string]any, error) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	hint := chat.System(def.Instruction())
	var lastErr error
	var lastViolations []schema.Violation
	var lastRaw string
	var lastValue map[string]any

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		turns := append([]chat.Turn{hint}, conv.Turns()...)
		req := model.NewRequest(turns, g.sampling)
		req.Format = model.FormatJSON

		reply, err := g.backend.Chat(ctx, req)
		if err != nil {
			return nil, err
		}
		raw := reply.Turn.Content
		lastRaw = raw

		value, decodeErr := decodeObject(raw)
		lastValue = value
		if decodeErr != nil {
			lastErr = &MalformedOutputError{Raw: raw, Err: decodeErr}
			lastViolations = nil
			g.logger.Debug("repair.decode_failed",
				"schema", def.Name(), "attempt", attempt, "error", decodeErr.Error())
			conv = conv.Append(chat.Assistant(raw), chat.User(decodeFeedback(decodeErr)))
			continue
		}

		outcome := g.validator.Validate(value, def)
		if outcome.Valid() {
			g.logger.Debug("repair.valid", "schema", def.Name(), "attempt", attempt)
			return outcome.Value(), nil
		}

		lastViolations = outcome.Violations()
		lastErr = nil
		g.logger.Debug("repair.invalid",
			"schema", def.Name(), "attempt", attempt, "violations", joinViolations(lastViolations))
		conv = conv.Append(chat.Assistant(raw), chat.User(violationFeedback(lastViolations)))
	}

	return nil, &ExhaustedError{
		Attempts:   maxAttempts,
		LastErr:    lastErr,
		Violations: lastViolations,
		Raw:        lastRaw,
		Value:      lastValue,
	}
}

// decodeObject parses raw backend text as a JSON object, tolerating a
// markdown code fence around the payload.
func decodeObject(raw string) (map[string]any, error) {
	trimmed := stripFence(strings.TrimSpace(raw))
	var value map[string]any
	if err := json.Unmarshal([]byte(trimmed), &value); err != nil {
		return nil, err
	}
	return value, nil
}

// stripFence removes a surrounding ``` or ```json fence.
func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// violationFeedback builds the corrective user turn for a failed
// validation, embedding the per-field violation list.
func violationFeedback(violations []schema.Violation) string {
	var b strings.Builder
	b.WriteString("The previous output was invalid:\n")
	for _, v := range violations {
		fmt.Fprintf(&b, "- %s: %s\n", v.Field, v.Reason)
	}
	b.WriteString("Return ONLY a corrected JSON object matching the schema.")
	return b.String()
}

func decodeFeedback(err error) string {
	return fmt.Sprintf("The previous output was not valid JSON: %v. Return ONLY a JSON object matching the schema, with no surrounding text.", err)
}

func joinViolations(violations []schema.Violation) string {
	parts := make([]string, len(violations))
	for i, v := range violations {
		parts[i] = v.String()
	}
	return strings.Join(parts, "; ")
}
