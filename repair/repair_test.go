package repair

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"structgen/chat"
	"structgen/internal/testutil"
	"structgen/model"
	"structgen/schema"
)

func taskDefinition() schema.Definition {
	return schema.New("task_result",
		schema.Field{Name: "task", Type: schema.TypeString, Required: true},
		schema.Field{Name: "completed", Type: schema.TypeBool, Required: true},
		schema.Field{Name: "priority", Type: schema.TypeInt, Required: true},
	)
}

func userConv(input string) chat.Conversation {
	return chat.New(chat.User(input))
}

func TestGenerateValidatedSucceedsFirstAttempt(t *testing.T) {
	backend := testutil.NewScriptedBackend(
		testutil.Text(`{"task": "finish report", "completed": false, "priority": 3}`),
	)
	g := NewGenerator(backend)

	value, err := g.GenerateValidated(context.Background(), userConv("extract"), taskDefinition(), 3)

	require.NoError(t, err)
	assert.Equal(t, "finish report", value["task"])
	assert.Equal(t, false, value["completed"])
	assert.Equal(t, float64(3), value["priority"])
	assert.Equal(t, 1, backend.Calls(), "no further attempts after the first success")
}

func TestGenerateValidatedSendsSchemaHintAndJSONFormat(t *testing.T) {
	backend := testutil.NewScriptedBackend(
		testutil.Text(`{"task": "x", "completed": true, "priority": 1}`),
	)
	g := NewGenerator(backend)

	_, err := g.GenerateValidated(context.Background(), userConv("extract"), taskDefinition(), 1)
	require.NoError(t, err)

	req := backend.Requests()[0]
	assert.Equal(t, model.FormatJSON, req.Format)
	require.NotEmpty(t, req.Turns)
	assert.Equal(t, chat.RoleSystem, req.Turns[0].Role)
	assert.Contains(t, req.Turns[0].Content, "Return ONLY a JSON object")
	assert.Contains(t, req.Turns[0].Content, "priority: integer")
}

func TestGenerateValidatedRepairsAfterViolations(t *testing.T) {
	backend := testutil.NewScriptedBackend(
		testutil.Text(`{"task": "x"}`),
		testutil.Text(`{"task": "x", "completed": true, "priority": 2}`),
	)
	g := NewGenerator(backend)

	value, err := g.GenerateValidated(context.Background(), userConv("extract"), taskDefinition(), 3)

	require.NoError(t, err)
	assert.Equal(t, "x", value["task"])

	reqs := backend.Requests()
	require.Len(t, reqs, 2)

	// Second attempt carries the raw assistant output plus a corrective turn
	// naming every violation.
	second := reqs[1].Turns
	require.Len(t, second, 4) // hint, user input, assistant raw, corrective user
	assert.Equal(t, chat.RoleAssistant, second[2].Role)
	assert.Equal(t, `{"task": "x"}`, second[2].Content)
	assert.Equal(t, chat.RoleUser, second[3].Role)
	assert.Contains(t, second[3].Content, "completed: missing")
	assert.Contains(t, second[3].Content, "priority: missing")
}

func TestGenerateValidatedExhaustsOnPersistentMalformedOutput(t *testing.T) {
	backend := testutil.NewScriptedBackend(
		testutil.Text("not json at all"),
		testutil.Text("{broken"),
		testutil.Text("still not json"),
	)
	g := NewGenerator(backend)

	_, err := g.GenerateValidated(context.Background(), userConv("extract"), taskDefinition(), 3)

	var exhausted *ExhaustedError
	require.True(t, errors.As(err, &exhausted))
	assert.Equal(t, 3, exhausted.Attempts)

	var malformed *MalformedOutputError
	assert.True(t, errors.As(exhausted.LastErr, &malformed))
	assert.Equal(t, "still not json", malformed.Raw)
	assert.Equal(t, "still not json", exhausted.Raw)
	assert.Nil(t, exhausted.Value)

	// Exactly 3 backend calls, and the conversation sent on the last attempt
	// grew by exactly 2 turns per failed attempt (assistant + corrective).
	reqs := backend.Requests()
	require.Len(t, reqs, 3)
	assert.Len(t, reqs[0].Turns, 2) // hint + user input
	assert.Len(t, reqs[1].Turns, 4)
	assert.Len(t, reqs[2].Turns, 6)
}

func TestGenerateValidatedExhaustsWithFinalViolations(t *testing.T) {
	backend := testutil.NewScriptedBackend(
		testutil.Text(`{"task": 1}`),
		testutil.Text(`{"task": "x", "completed": "yes", "priority": 1}`),
	)
	g := NewGenerator(backend)

	_, err := g.GenerateValidated(context.Background(), userConv("extract"), taskDefinition(), 2)

	var exhausted *ExhaustedError
	require.True(t, errors.As(err, &exhausted))
	require.NotEmpty(t, exhausted.Violations)
	assert.Equal(t, "completed", exhausted.Violations[0].Field)
	assert.Contains(t, err.Error(), "type mismatch")

	// The final attempt's raw output and decoded object survive exhaustion
	// so fallback tiers can degrade from them.
	assert.Equal(t, `{"task": "x", "completed": "yes", "priority": 1}`, exhausted.Raw)
	require.NotNil(t, exhausted.Value)
	assert.Equal(t, "x", exhausted.Value["task"])
}

func TestGenerateValidatedDoesNotRetryTransportFailures(t *testing.T) {
	cause := model.NewTransportError("test", 500, errors.New("down"))
	backend := testutil.NewScriptedBackend(testutil.Fail(cause))
	g := NewGenerator(backend)

	_, err := g.GenerateValidated(context.Background(), userConv("extract"), taskDefinition(), 3)

	var terr *model.TransportError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, 1, backend.Calls())
}

func TestGenerateValidatedHonorsCancellation(t *testing.T) {
	backend := testutil.NewScriptedBackend(testutil.Text("ignored"))
	g := NewGenerator(backend)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.GenerateValidated(ctx, userConv("extract"), taskDefinition(), 3)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, backend.Calls())
}

func TestGenerateValidatedStripsCodeFences(t *testing.T) {
	backend := testutil.NewScriptedBackend(
		testutil.Text("```json\n{\"task\": \"x\", \"completed\": true, \"priority\": 1}\n```"),
	)
	g := NewGenerator(backend)

	value, err := g.GenerateValidated(context.Background(), userConv("extract"), taskDefinition(), 1)

	require.NoError(t, err)
	assert.Equal(t, "x", value["task"])
}

func TestGenerateValidatedCallerConversationUnchanged(t *testing.T) {
	backend := testutil.NewScriptedBackend(
		testutil.Text("nope"),
		testutil.Text(`{"task": "x", "completed": true, "priority": 1}`),
	)
	g := NewGenerator(backend)

	conv := userConv("extract")
	_, err := g.GenerateValidated(context.Background(), conv, taskDefinition(), 2)

	require.NoError(t, err)
	assert.Equal(t, 1, conv.Len(), "repair turns never leak into the caller's conversation")
}
