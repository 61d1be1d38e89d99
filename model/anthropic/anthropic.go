// Package anthropic implements model.Backend for the Anthropic Messages API.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"

	"structgen/chat"
	"structgen/model"
)

// Model identifies an Anthropic model, re-exported so callers can set
// Options.Model without importing the SDK.
type Model = anthropic.Model

// Options configure the Anthropic backend adapter (model id, temperature,
// max tokens, API key).
type Options struct {
	Model       Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
}

// Backend wraps the Anthropic Messages API behind model.Backend.
type Backend struct {
	client *anthropic.Client
	opts   Options
}

// New creates a new Anthropic backend using the official client.
func New(optFns ...func(o *Options)) *Backend {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := anthropic.NewClient(clientOpts...)

	return &Backend{client: &client, opts: opts}
}

// NewFromClient creates a new Anthropic backend from an existing client.
func NewFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Backend {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Backend{client: client, opts: opts}
}

func defaultOptions() Options {
	return Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   4096,
	}
}

// Generate implements model.Backend with a single-turn chat call.
func (b *Backend) Generate(ctx context.Context, prompt string) (string, error) {
	reply, err := b.Chat(ctx, model.NewRequest([]chat.Turn{chat.User(prompt)}, model.Options{}))
	if err != nil {
		return "", err
	}
	return reply.Turn.Content, nil
}

// Chat implements model.Backend. Anthropic has no native JSON output mode;
// FormatJSON requests rely on the schema instruction already present in the
// turns.
func (b *Backend) Chat(ctx context.Context, req model.Request) (model.Reply, error) {
	temperature := b.opts.Temperature
	if req.Options.Temperature != 0 {
		temperature = req.Options.Temperature
	}
	maxTokens := b.opts.MaxTokens
	if req.Options.MaxTokens != 0 {
		maxTokens = req.Options.MaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:       b.opts.Model,
		Messages:    buildMessages(req.Turns),
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(temperature),
	}
	if system := extractSystem(req.Turns); len(system) > 0 {
		params.System = system
	}
	if len(req.Tools) > 0 {
		params.Tools = buildTools(req.Tools)
	}

	resp, err := b.client.Messages.New(ctx, params)
	if err != nil {
		return model.Reply{}, wrapErr(err)
	}

	reply := model.Reply{FinishReason: "stop"}
	if resp.StopReason != "" {
		reply.FinishReason = string(resp.StopReason)
	}

	var text string
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			text += block.AsText().Text
		case "tool_use":
			toolBlock := block.AsToolUse()
			args := json.RawMessage("{}")
			if toolBlock.Input != nil {
				if raw, err := json.Marshal(toolBlock.Input); err == nil {
					args = raw
				}
			}
			reply.ToolCalls = append(reply.ToolCalls, model.ToolCall{
				ID:        toolBlock.ID,
				Name:      toolBlock.Name,
				Arguments: args,
			})
		}
	}
	reply.Turn = chat.Assistant(text)
	return reply, nil
}

// buildMessages converts normalized turns to the Anthropic message format.
// System turns are handled separately; tool turns are forwarded as user
// messages labeled as tool output (the flat turn model carries no call id).
func buildMessages(turns []chat.Turn) []anthropic.MessageParam {
	var messages []anthropic.MessageParam
	for _, t := range turns {
		switch t.Role {
		case chat.RoleSystem:
			continue
		case chat.RoleAssistant:
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(t.Content)))
		case chat.RoleTool:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(fmt.Sprintf("Tool result: %s", t.Content))))
		default:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(t.Content)))
		}
	}
	return messages
}

func extractSystem(turns []chat.Turn) []anthropic.TextBlockParam {
	var blocks []anthropic.TextBlockParam
	for _, t := range turns {
		if t.Role == chat.RoleSystem && t.Content != "" {
			blocks = append(blocks, anthropic.TextBlockParam{Text: t.Content})
		}
	}
	return blocks
}

// buildTools converts tool definitions to the Anthropic tool format.
func buildTools(tools []model.ToolDefinition) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, len(tools))
	for i, tdef := range tools {
		inputSchema := anthropic.ToolInputSchemaParam{
			Type: constant.Object("object"),
		}
		if props, ok := tdef.Parameters["properties"]; ok {
			inputSchema.Properties = props
		}
		if required, ok := tdef.Parameters["required"]; ok {
			switch req := required.(type) {
			case []string:
				inputSchema.Required = req
			case []any:
				for _, r := range req {
					if s, ok := r.(string); ok {
						inputSchema.Required = append(inputSchema.Required, s)
					}
				}
			}
		}
		out[i] = anthropic.ToolUnionParamOfTool(inputSchema, tdef.Name)
	}
	return out
}

// wrapErr normalizes SDK failures into *model.TransportError.
func wrapErr(err error) error {
	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		return model.NewTransportError("anthropic", apierr.StatusCode, err)
	}
	return model.NewTransportError("anthropic", 0, err)
}

// Info implements model.Backend.
func (b *Backend) Info() model.Info {
	return model.Info{Name: string(b.opts.Model), Provider: "anthropic", SupportsTools: true}
}
