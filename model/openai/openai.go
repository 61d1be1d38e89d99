// Package openai implements model.Backend using the OpenAI Chat Completions
// API, adapting the normalized turn/reply structures into the SDK's message
// format and back.
package openai

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"structgen/chat"
	"structgen/model"
)

// Options configure the OpenAI backend adapter. Fields mirror a subset of
// Chat Completion parameters intentionally kept minimal.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
	APIKey              string
}

// Backend wraps the OpenAI Chat Completions API behind model.Backend.
type Backend struct {
	client *openai.Client
	opts   Options
}

// New creates a new OpenAI backend using the official client. The API key
// is taken from the environment unless overridden via Options.
func New(optFns ...func(o *Options)) *Backend {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := openai.NewClient(clientOpts...)

	return &Backend{client: &client, opts: opts}
}

// NewFromClient creates a new OpenAI backend from an existing client.
func NewFromClient(client *openai.Client, optFns ...func(o *Options)) *Backend {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Backend{client: client, opts: opts}
}

func defaultOptions() Options {
	return Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
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

// Chat implements model.Backend.
func (b *Backend) Chat(ctx context.Context, req model.Request) (model.Reply, error) {
	params := b.buildParams(req)

	resp, err := b.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return model.Reply{}, wrapErr(err)
	}
	if len(resp.Choices) == 0 {
		return model.Reply{}, model.NewTransportError("openai", 0, errors.New("no choices returned"))
	}

	ch0 := resp.Choices[0]
	reply := model.Reply{
		Turn:         chat.Assistant(ch0.Message.Content),
		FinishReason: ch0.FinishReason,
	}
	for _, tc := range ch0.Message.ToolCalls {
		reply.ToolCalls = append(reply.ToolCalls, model.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: []byte(tc.Function.Arguments),
		})
	}
	return reply, nil
}

// buildParams assembles the request parameters including tool definitions.
func (b *Backend) buildParams(req model.Request) openai.ChatCompletionNewParams {
	temperature := b.opts.Temperature
	if req.Options.Temperature != 0 {
		temperature = req.Options.Temperature
	}
	maxTokens := b.opts.MaxCompletionTokens
	if req.Options.MaxTokens != 0 {
		maxTokens = req.Options.MaxTokens
	}

	params := openai.ChatCompletionNewParams{
		Messages:            buildMessages(req.Turns),
		Model:               b.opts.Model,
		Temperature:         openai.Float(temperature),
		MaxCompletionTokens: openai.Int(maxTokens),
	}

	if req.Format == model.FormatJSON {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		}
	}

	if len(req.Tools) > 0 {
		tools := make([]openai.ChatCompletionToolParam, len(req.Tools))
		for i, tdef := range req.Tools {
			tools[i] = openai.ChatCompletionToolParam{
				Type: "function",
				Function: openai.FunctionDefinitionParam{
					Name:        tdef.Name,
					Description: openai.String(tdef.Description),
					Parameters:  tdef.Parameters,
				},
			}
		}
		params.Tools = tools
	}

	return params
}

// buildMessages converts normalized turns into OpenAI chat messages. Tool
// turns carry no call id in the flat turn model; they are forwarded as user
// messages labeled as tool output.
func buildMessages(turns []chat.Turn) []openai.ChatCompletionMessageParamUnion {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(turns))
	for _, t := range turns {
		switch t.Role {
		case chat.RoleSystem:
			messages = append(messages, openai.SystemMessage(t.Content))
		case chat.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(t.Content))
		case chat.RoleTool:
			messages = append(messages, openai.UserMessage(fmt.Sprintf("Tool result: %s", t.Content)))
		default:
			messages = append(messages, openai.UserMessage(t.Content))
		}
	}
	return messages
}

// wrapErr normalizes SDK failures into *model.TransportError.
func wrapErr(err error) error {
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		return model.NewTransportError("openai", apierr.StatusCode, err)
	}
	return model.NewTransportError("openai", 0, err)
}

// Info implements model.Backend.
func (b *Backend) Info() model.Info {
	return model.Info{Name: b.opts.Model, Provider: "openai", SupportsTools: true}
}
