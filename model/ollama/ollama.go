// Package ollama implements model.Backend against a local Ollama server's
// REST API (/api/generate and /api/chat).
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"structgen/chat"
	"structgen/model"
)

// DefaultBaseURL is the address of a locally running Ollama server.
const DefaultBaseURL = "http://localhost:11434"

// Options configure the Ollama backend adapter.
type Options struct {
	BaseURL     string
	Model       string
	Temperature float64
	HTTPClient  *http.Client
}

// Backend talks to an Ollama server behind model.Backend.
type Backend struct {
	baseURL     string
	model       string
	temperature float64
	client      *http.Client
}

// New creates a new Ollama backend.
func New(optFns ...func(o *Options)) *Backend {
	opts := Options{
		BaseURL:     DefaultBaseURL,
		Model:       "llama3.2",
		Temperature: 0.7,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}
	return &Backend{
		baseURL:     opts.BaseURL,
		model:       opts.Model,
		temperature: opts.Temperature,
		client:      client,
	}
}

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
}

type chatMessage struct {
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	ToolCalls []chatToolCall `json:"tool_calls,omitempty"`
}

type chatToolCall struct {
	Function struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	} `json:"function"`
}

type chatRequest struct {
	Model    string           `json:"model"`
	Messages []chatMessage    `json:"messages"`
	Stream   bool             `json:"stream"`
	Format   string           `json:"format,omitempty"`
	Tools    []map[string]any `json:"tools,omitempty"`
	Options  map[string]any   `json:"options,omitempty"`
}

type chatResponse struct {
	Message    chatMessage `json:"message"`
	DoneReason string      `json:"done_reason"`
}

// Generate implements model.Backend via POST /api/generate.
func (b *Backend) Generate(ctx context.Context, prompt string) (string, error) {
	payload := generateRequest{
		Model:   b.model,
		Prompt:  prompt,
		Stream:  false,
		Options: map[string]any{"temperature": b.temperature},
	}
	var result generateResponse
	if err := b.post(ctx, "/api/generate", payload, &result); err != nil {
		return "", err
	}
	return result.Response, nil
}

// Chat implements model.Backend via POST /api/chat. Ollama natively accepts
// tool turns and a JSON output format.
func (b *Backend) Chat(ctx context.Context, req model.Request) (model.Reply, error) {
	temperature := b.temperature
	if req.Options.Temperature != 0 {
		temperature = req.Options.Temperature
	}

	payload := chatRequest{
		Model:    b.model,
		Messages: buildMessages(req.Turns),
		Stream:   false,
		Options:  map[string]any{"temperature": temperature},
	}
	if req.Options.MaxTokens != 0 {
		payload.Options["num_predict"] = req.Options.MaxTokens
	}
	if req.Format == model.FormatJSON {
		payload.Format = "json"
	}
	for _, tdef := range req.Tools {
		payload.Tools = append(payload.Tools, map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        tdef.Name,
				"description": tdef.Description,
				"parameters":  tdef.Parameters,
			},
		})
	}

	var result chatResponse
	if err := b.post(ctx, "/api/chat", payload, &result); err != nil {
		return model.Reply{}, err
	}

	reply := model.Reply{
		Turn:         chat.Assistant(result.Message.Content),
		FinishReason: result.DoneReason,
	}
	if reply.FinishReason == "" {
		reply.FinishReason = "stop"
	}
	for _, tc := range result.Message.ToolCalls {
		reply.ToolCalls = append(reply.ToolCalls, model.ToolCall{
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return reply, nil
}

func buildMessages(turns []chat.Turn) []chatMessage {
	messages := make([]chatMessage, 0, len(turns))
	for _, t := range turns {
		messages = append(messages, chatMessage{Role: string(t.Role), Content: t.Content})
	}
	return messages
}

// post sends a JSON request and decodes the JSON response, normalizing
// failures into *model.TransportError.
func (b *Backend) post(ctx context.Context, path string, payload, result any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode ollama request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build ollama request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return model.NewTransportError("ollama", 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return model.NewTransportError("ollama", resp.StatusCode,
			fmt.Errorf("unexpected status: %s", bytes.TrimSpace(data)))
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return model.NewTransportError("ollama", 0, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// Info implements model.Backend.
func (b *Backend) Info() model.Info {
	return model.Info{Name: b.model, Provider: "ollama", SupportsTools: true}
}
