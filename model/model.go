package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"structgen/chat"
)

// Format requests a specific output shape from the backend.
type Format string

const (
	// FormatText leaves the output shape unconstrained.
	FormatText Format = ""
	// FormatJSON asks the backend to emit a single JSON object. Backends
	// without a native JSON mode may ignore it; callers must still decode
	// and validate the reply.
	FormatJSON Format = "json"
)

// Options are per-request sampling options.
type Options struct {
	Temperature float64 `json:"temperature"`
	MaxTokens   int64   `json:"max_tokens"`
}

// ToolDefinition declaratively exposes a callable function to the backend.
// Parameters is a JSON Schema object (minimal subset expected).
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ToolCall is a function invocation request surfaced by the backend,
// unified across providers.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// Request captures one normalized chat call. It is created per call and
// never mutated after dispatch.
type Request struct {
	ID      string           `json:"id"`
	Turns   []chat.Turn      `json:"turns"`
	Tools   []ToolDefinition `json:"tools,omitempty"`
	Format  Format           `json:"format,omitempty"`
	Options Options          `json:"options"`
}

// NewRequest builds a Request with a fresh identifier.
func NewRequest(turns []chat.Turn, opts Options) Request {
	return Request{ID: uuid.NewString(), Turns: turns, Options: opts}
}

// Reply is the assistant turn produced by a chat call, plus zero or more
// tool call requests.
type Reply struct {
	Turn         chat.Turn  `json:"turn"`
	ToolCalls    []ToolCall `json:"tool_calls,omitempty"`
	FinishReason string     `json:"finish_reason"`
}

// Info contains metadata about a backend implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "ollama", ...
	SupportsTools bool   `json:"supports_tools"`
}

// Backend is the minimal interface the generation components require from
// an inference provider. Implementations must be safe for concurrent use.
type Backend interface {
	// Generate sends a bare prompt and returns the raw completion text.
	Generate(ctx context.Context, prompt string) (string, error)

	// Chat sends an ordered list of turns and returns the assistant reply.
	Chat(ctx context.Context, req Request) (Reply, error)

	// Info returns information about the backend implementation.
	Info() Info
}

// TransportError reports a network or backend failure. Transient failures
// (timeouts, server-side errors) are marked retryable so a retry policy can
// distinguish them from fatal ones such as a malformed request or an
// authorization failure.
type TransportError struct {
	Provider  string
	Status    int // HTTP status when known, 0 otherwise
	Transient bool
	Err       error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s transport error (status %d): %v", e.Provider, e.Status, e.Err)
	}
	return fmt.Sprintf("%s transport error: %v", e.Provider, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *TransportError) Unwrap() error { return e.Err }

// Retryable reports whether the failure is worth retrying.
func (e *TransportError) Retryable() bool { return e.Transient }

// NewTransportError wraps a provider failure. Server-side statuses (>= 500),
// 408 and 429 are considered transient; client errors are fatal.
func NewTransportError(provider string, status int, err error) *TransportError {
	transient := status == 0 || status >= 500 || status == 408 || status == 429
	return &TransportError{Provider: provider, Status: status, Transient: transient, Err: err}
}

// MockBackend is a lightweight in-memory Backend useful for tests and
// examples. Canned responses are matched against the prompt or the content
// of the last turn. Register all responses before handing the backend to
// concurrent callers: AddResponse is not synchronized against Generate/Chat.
type MockBackend struct {
	info      Info
	responses map[string]string
}

// NewMockBackend constructs a MockBackend with tool support enabled.
func NewMockBackend(name, provider string) *MockBackend {
	return &MockBackend{
		info:      Info{Name: name, Provider: provider, SupportsTools: true},
		responses: make(map[string]string),
	}
}

// AddResponse registers a deterministic canned completion for an input.
func (m *MockBackend) AddResponse(input, response string) { m.responses[input] = response }

// Generate implements Backend.
func (m *MockBackend) Generate(_ context.Context, prompt string) (string, error) {
	if r, ok := m.responses[prompt]; ok {
		return r, nil
	}
	return fmt.Sprintf("Mock response to: %s", prompt), nil
}

// Chat implements Backend.
func (m *MockBackend) Chat(_ context.Context, req Request) (Reply, error) {
	if len(req.Turns) == 0 {
		return Reply{}, errors.New("no turns provided")
	}
	last := req.Turns[len(req.Turns)-1]
	full := m.responses[last.Content]
	if full == "" {
		full = fmt.Sprintf("Mock response to: %s", last.Content)
	}
	return Reply{Turn: chat.Assistant(full), FinishReason: "stop"}, nil
}

// Info implements Backend.
func (m *MockBackend) Info() Info { return m.info }
