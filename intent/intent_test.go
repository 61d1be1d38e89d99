package intent

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"structgen/internal/testutil"
	"structgen/repair"
	"structgen/schema"
)

func TestClassifyValidReply(t *testing.T) {
	backend := testutil.NewScriptedBackend(
		testutil.Text(`{"intent": "question", "confidence": 0.95, "reasoning": "asks for information"}`),
	)
	c := NewClassifier(backend)

	res, err := c.Classify(context.Background(), "What is machine learning?")

	require.NoError(t, err)
	assert.Equal(t, Question, res.Intent)
	assert.Equal(t, 0.95, res.Confidence)
	assert.Equal(t, "asks for information", res.Reasoning)
}

func TestClassifyRepairsOutOfRangeConfidence(t *testing.T) {
	backend := testutil.NewScriptedBackend(
		testutil.Text(`{"intent": "complaint", "confidence": 1.4, "reasoning": "angry"}`),
		testutil.Text(`{"intent": "complaint", "confidence": 0.9, "reasoning": "angry"}`),
	)
	c := NewClassifier(backend)

	res, err := c.Classify(context.Background(), "This is unacceptable")

	require.NoError(t, err)
	assert.Equal(t, Complaint, res.Intent)
	assert.Equal(t, 0.9, res.Confidence)

	reqs := backend.Requests()
	require.Len(t, reqs, 2)
	corrective := reqs[1].Turns[len(reqs[1].Turns)-1]
	assert.Contains(t, corrective.Content, "confidence: out of range [0, 1]")
}

func TestClassifyRejectsLabelOutsideClosedSet(t *testing.T) {
	backend := testutil.NewScriptedBackend(
		testutil.Text(`{"intent": "greeting", "confidence": 0.9, "reasoning": "says hi"}`),
	)
	c := NewClassifier(backend, func(o *ClassifierOptions) { o.MaxAttempts = 1 })

	_, err := c.Classify(context.Background(), "hello")

	var exhausted *repair.ExhaustedError
	require.True(t, errors.As(err, &exhausted))
	assert.Contains(t, violationFields(exhausted.Violations), "intent")
}

func violationFields(violations []schema.Violation) []string {
	fields := make([]string, len(violations))
	for i, v := range violations {
		fields[i] = v.Field
	}
	return fields
}

func classificationText(intent string, confidence float64) testutil.Step {
	return testutil.Text(fmt.Sprintf(
		`{"intent": %q, "confidence": %g, "reasoning": "because"}`, intent, confidence))
}

func totalHandlers(record *[]Intent) map[Intent]Handler {
	handler := func(name Intent) Handler {
		return func(ctx context.Context, input string, res Result) (string, error) {
			*record = append(*record, name)
			return "handled by " + string(name), nil
		}
	}
	return map[Intent]Handler{
		Question:  handler(Question),
		Request:   handler(Request),
		Complaint: handler(Complaint),
	}
}

func TestRouterDispatchesDeterministically(t *testing.T) {
	// For any confidence/reasoning values, intent "question" must reach the
	// question handler and no other.
	for _, confidence := range []float64{0, 0.5, 1} {
		backend := testutil.NewScriptedBackend(classificationText("question", confidence))
		var dispatched []Intent
		router, err := NewRouter(NewClassifier(backend), totalHandlers(&dispatched))
		require.NoError(t, err)

		out, res, err := router.Route(context.Background(), "What is Go?")

		require.NoError(t, err)
		assert.Equal(t, "handled by question", out)
		assert.Equal(t, Question, res.Intent)
		assert.Equal(t, []Intent{Question}, dispatched)
	}
}

func TestRouterRequiresTotalHandlerMap(t *testing.T) {
	backend := testutil.NewScriptedBackend()
	c := NewClassifier(backend)

	_, err := NewRouter(c, map[Intent]Handler{
		Question: func(ctx context.Context, input string, res Result) (string, error) { return "", nil },
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no handler registered")
}

func TestRouterRejectsHandlerOutsideClosedSet(t *testing.T) {
	backend := testutil.NewScriptedBackend()
	var dispatched []Intent
	handlers := totalHandlers(&dispatched)
	handlers[Intent("greeting")] = handlers[Question]

	_, err := NewRouter(NewClassifier(backend), handlers)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown intent")
}

func TestRouterInvariantViolationOnBypassedEnum(t *testing.T) {
	backend := testutil.NewScriptedBackend(classificationText("question", 0.8))
	var dispatched []Intent
	router, err := NewRouter(NewClassifier(backend), totalHandlers(&dispatched))
	require.NoError(t, err)

	// Simulate an upstream contract break: remove a handler after the
	// totality check so an in-set label finds no registered target.
	delete(router.handlers, Question)

	_, _, err = router.Route(context.Background(), "What is Go?")

	var iv *InvariantViolationError
	require.True(t, errors.As(err, &iv))
	assert.Contains(t, iv.Error(), "invariant violation")
	assert.Empty(t, dispatched, "never a silent default dispatch")
}

func TestRouterPropagatesHandlerError(t *testing.T) {
	backend := testutil.NewScriptedBackend(classificationText("request", 0.7))
	var dispatched []Intent
	handlers := totalHandlers(&dispatched)
	boom := errors.New("downstream failure")
	handlers[Request] = func(ctx context.Context, input string, res Result) (string, error) {
		return "", boom
	}
	router, err := NewRouter(NewClassifier(backend), handlers)
	require.NoError(t, err)

	_, res, err := router.Route(context.Background(), "Please schedule a meeting")

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, Request, res.Intent)
}

func TestClassificationSchemaShape(t *testing.T) {
	def := ClassificationSchema()
	fields := def.Fields()

	require.Len(t, fields, 3)
	assert.Equal(t, []string{"question", "request", "complaint"}, fields[0].Enum)
	assert.Equal(t, schema.TypeFloat, fields[1].Type)
	assert.Equal(t, 0.0, *fields[1].Min)
	assert.Equal(t, 1.0, *fields[1].Max)
	assert.True(t, fields[2].Required)
}
