package model

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"structgen/chat"
)

func TestNewTransportErrorClassification(t *testing.T) {
	cases := []struct {
		status    int
		retryable bool
	}{
		{0, true},   // network failure, no response
		{500, true}, // server-side
		{503, true},
		{429, true}, // rate limited
		{408, true}, // request timeout
		{400, false},
		{401, false}, // authorization failure
		{404, false},
	}
	for _, tc := range cases {
		err := NewTransportError("test", tc.status, errors.New("boom"))
		assert.Equal(t, tc.retryable, err.Retryable(), "status %d", tc.status)
	}
}

func TestTransportErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewTransportError("ollama", 0, cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "ollama transport error")
}

func TestNewRequestAssignsUniqueIDs(t *testing.T) {
	a := NewRequest([]chat.Turn{chat.User("x")}, Options{})
	b := NewRequest([]chat.Turn{chat.User("x")}, Options{})

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestMockBackend(t *testing.T) {
	m := NewMockBackend("mock", "test")
	m.AddResponse("ping", "pong")

	text, err := m.Generate(context.Background(), "ping")
	require.NoError(t, err)
	assert.Equal(t, "pong", text)

	reply, err := m.Chat(context.Background(), NewRequest([]chat.Turn{chat.User("ping")}, Options{}))
	require.NoError(t, err)
	assert.Equal(t, chat.Assistant("pong"), reply.Turn)

	_, err = m.Chat(context.Background(), Request{})
	assert.Error(t, err)
}
