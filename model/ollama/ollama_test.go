package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"structgen/chat"
	"structgen/model"
)

func newTestBackend(t *testing.T, handler http.HandlerFunc) *Backend {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(func(o *Options) {
		o.BaseURL = srv.URL
		o.Model = "test-model"
	})
}

func TestGenerate(t *testing.T) {
	var got generateRequest
	b := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(map[string]any{"response": "hello there"})
	})

	text, err := b.Generate(context.Background(), "say hello")

	require.NoError(t, err)
	assert.Equal(t, "hello there", text)
	assert.Equal(t, "test-model", got.Model)
	assert.Equal(t, "say hello", got.Prompt)
	assert.False(t, got.Stream)
}

func TestChatWithJSONFormatAndToolCalls(t *testing.T) {
	var got chatRequest
	b := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]any{
				"role":    "assistant",
				"content": "",
				"tool_calls": []map[string]any{
					{"function": map[string]any{
						"name":      "get_weather",
						"arguments": map[string]any{"latitude": 48.85, "longitude": 2.35},
					}},
				},
			},
			"done_reason": "tool_calls",
		})
	})

	req := model.NewRequest([]chat.Turn{
		chat.System("use tools when needed"),
		chat.User("weather in Paris?"),
	}, model.Options{Temperature: 0.1})
	req.Format = model.FormatJSON
	req.Tools = []model.ToolDefinition{{Name: "get_weather", Description: "Current temperature"}}

	reply, err := b.Chat(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, "json", got.Format)
	assert.Equal(t, 0.1, got.Options["temperature"])
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)

	assert.Equal(t, chat.RoleAssistant, reply.Turn.Role)
	require.Len(t, reply.ToolCalls, 1)
	assert.Equal(t, "get_weather", reply.ToolCalls[0].Name)
	assert.JSONEq(t, `{"latitude":48.85,"longitude":2.35}`, string(reply.ToolCalls[0].Arguments))
	assert.Equal(t, "tool_calls", reply.FinishReason)
}

func TestChatServerErrorIsRetryableTransportError(t *testing.T) {
	b := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusInternalServerError)
	})

	_, err := b.Chat(context.Background(), model.NewRequest([]chat.Turn{chat.User("hi")}, model.Options{}))

	var terr *model.TransportError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, http.StatusInternalServerError, terr.Status)
	assert.True(t, terr.Retryable())
}

func TestChatBadRequestIsFatalTransportError(t *testing.T) {
	b := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	})

	_, err := b.Generate(context.Background(), "hi")

	var terr *model.TransportError
	require.True(t, errors.As(err, &terr))
	assert.False(t, terr.Retryable())
}
