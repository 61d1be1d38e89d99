// Package structgen provides a high-level façade over the structured
// generation building blocks (schema validation, repair loops, retries,
// intent routing, fallback chains, tool calling and approval gates).
// Most applications interact with this package by:
//  1. Constructing a backend adapter (model/openai, model/anthropic or model/ollama)
//  2. Creating a Client via New() (optionally overriding sampling, retry policy or gate)
//  3. Calling Ask, Extract, Classify, RunWithTools or Draft
//
// The façade delegates the work to the underlying packages while keeping
// setup ergonomics concise. All defaults are safe for local development;
// production deployments typically supply a tuned retry.Policy and a
// structured logger.
package structgen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"structgen/chat"
	"structgen/fallback"
	"structgen/gate"
	"structgen/intent"
	"structgen/logging"
	"structgen/model"
	"structgen/repair"
	"structgen/retry"
	"structgen/schema"
	"structgen/session"
	"structgen/tool"
)

// DefaultRepairAttempts bounds the repair loop when the caller does not
// override it.
const DefaultRepairAttempts = 3

// DefaultToolRounds bounds the tool-call exchange loop in RunWithTools.
const DefaultToolRounds = 5

// ErrRejected is returned by Draft when the gate declines the content.
var ErrRejected = errors.New("structgen: draft rejected")

// Options configures the Client.
type Options struct {
	// RetryPolicy wraps every backend call. Nil disables transport retries.
	RetryPolicy *retry.Policy

	// RepairAttempts bounds the validate-and-repair loop.
	RepairAttempts int

	// ToolRounds bounds the tool-call exchange loop in RunWithTools.
	ToolRounds int

	// Sampling applies to every backend call.
	Sampling model.Options

	// Strict rejects fields outside the schema during validation.
	Strict bool

	// Gate approves or rejects drafts. Defaults to auto-approve.
	Gate gate.Gate

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Client is the high-level façade aggregating the underlying components.
type Client struct {
	backend    model.Backend
	gen        *repair.Generator
	classifier *intent.Classifier
	opts       Options
}

// New creates a Client over a backend with optional overrides.
func New(backend model.Backend, optFns ...func(o *Options)) *Client {
	opts := Options{
		RepairAttempts: DefaultRepairAttempts,
		ToolRounds:     DefaultToolRounds,
		Sampling:       model.Options{Temperature: 0.2},
		Gate:           gate.StaticGate{Approved: true},
		Logger:         logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.RetryPolicy != nil {
		backend = &retryingBackend{inner: backend, policy: opts.RetryPolicy}
	}

	gen := repair.NewGenerator(backend, func(o *repair.Options) {
		o.Validator = schema.NewValidator(func(vo *schema.ValidatorOptions) {
			vo.Strict = opts.Strict
		})
		o.Sampling = opts.Sampling
		o.Logger = opts.Logger
	})

	classifier := intent.NewClassifier(backend, func(o *intent.ClassifierOptions) {
		o.MaxAttempts = opts.RepairAttempts
		o.Sampling = opts.Sampling
		o.Logger = opts.Logger
	})

	return &Client{backend: backend, gen: gen, classifier: classifier, opts: opts}
}

// Backend exposes the wrapped backend, including the retry layer if one was
// configured. Useful for composing custom call patterns.
func (c *Client) Backend() model.Backend { return c.backend }

// Ask sends a bare prompt and returns the raw completion text.
func (c *Client) Ask(ctx context.Context, prompt string) (string, error) {
	return c.backend.Generate(ctx, prompt)
}

// Reply sends a conversation and returns the assistant's answer together
// with the conversation extended by that answer. Callers keep the returned
// conversation to preserve context across turns.
func (c *Client) Reply(ctx context.Context, conv chat.Conversation) (string, chat.Conversation, error) {
	req := model.NewRequest(conv.Turns(), c.opts.Sampling)
	reply, err := c.backend.Chat(ctx, req)
	if err != nil {
		return "", conv, err
	}
	return reply.Turn.Content, conv.Append(reply.Turn), nil
}

// ReplyInSession continues the conversation stored under sessionID: the
// input becomes a user turn, the assistant's answer is appended and the
// extended conversation saved back to the store.
func (c *Client) ReplyInSession(
	ctx context.Context,
	store session.Store,
	sessionID string,
	input string,
) (string, error) {
	conv, err := store.Get(sessionID)
	if err != nil {
		return "", err
	}

	answer, conv, err := c.Reply(ctx, conv.Append(chat.User(input)))
	if err != nil {
		return "", err
	}

	if err := store.Save(sessionID, conv); err != nil {
		return "", err
	}
	return answer, nil
}

// Extract produces a schema-valid value from free-form input, repairing
// invalid outputs up to the configured attempt budget.
func (c *Client) Extract(ctx context.Context, input string, def schema.Definition) (map[string]any, error) {
	conv := chat.New(chat.User(input))
	return c.gen.GenerateValidated(ctx, conv, def, c.opts.RepairAttempts)
}

// ExtractTo extracts into a struct: the schema is derived from out's type
// and the validated value is unmarshalled into it. out must be a non-nil
// pointer to a struct.
func (c *Client) ExtractTo(ctx context.Context, input string, name string, out any) error {
	def := schema.FromStruct(name, out)
	value, err := c.Extract(ctx, input, def)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// ExtractResilient runs Extract and, when the primary path fails, resolves
// the fallback chain instead of surfacing the error. On primary success the
// returned Result is nil; a non-nil Result marks a degraded payload and
// names the tier that produced it.
func (c *Client) ExtractResilient(
	ctx context.Context,
	input string,
	def schema.Definition,
	chain *fallback.Chain,
) (any, *fallback.Result, error) {
	value, err := c.Extract(ctx, input, def)
	if err == nil {
		return value, nil, nil
	}

	c.opts.Logger.Warn("primary extraction failed, falling back", "error", err)

	st := fallback.State{Input: input, Err: err}
	var exhausted *repair.ExhaustedError
	if errors.As(err, &exhausted) {
		st.Raw = exhausted.Raw
		st.Value = exhausted.Value
	}

	res, resErr := chain.Resolve(ctx, st)
	if resErr != nil {
		return nil, nil, resErr
	}
	return res.Payload, &res, nil
}

// Classify assigns the input one of the closed set of intents.
func (c *Client) Classify(ctx context.Context, input string) (intent.Result, error) {
	return c.classifier.Classify(ctx, input)
}

// Router builds an intent router over the client's classifier. The handler
// map must cover every intent exactly.
func (c *Client) Router(handlers map[intent.Intent]intent.Handler) (*intent.Router, error) {
	return intent.NewRouter(c.classifier, handlers, func(o *intent.RouterOptions) {
		o.Logger = c.opts.Logger
	})
}

// RunWithTools drives a tool-call exchange: the backend sees the registry's
// definitions, requested calls are invoked and their results appended as
// tool turns, and the loop repeats until the backend answers in plain text
// or the round budget runs out. Tool failures are reported back to the
// backend rather than aborting the exchange.
func (c *Client) RunWithTools(
	ctx context.Context,
	conv chat.Conversation,
	registry *tool.Registry,
) (string, chat.Conversation, error) {
	defs := registry.Definitions()

	for round := 0; round < c.opts.ToolRounds; round++ {
		if err := ctx.Err(); err != nil {
			return "", conv, err
		}

		req := model.NewRequest(conv.Turns(), c.opts.Sampling)
		req.Tools = defs

		reply, err := c.backend.Chat(ctx, req)
		if err != nil {
			return "", conv, err
		}

		if len(reply.ToolCalls) == 0 {
			return reply.Turn.Content, conv.Append(reply.Turn), nil
		}

		conv = conv.Append(reply.Turn)

		for _, call := range reply.ToolCalls {
			result := c.invokeTool(ctx, registry, call)
			conv = conv.Append(chat.ToolResult(result))
		}
	}

	return "", conv, fmt.Errorf("structgen: no answer after %d tool rounds", c.opts.ToolRounds)
}

func (c *Client) invokeTool(ctx context.Context, registry *tool.Registry, call model.ToolCall) string {
	var args map[string]any
	if len(call.Arguments) > 0 {
		if err := json.Unmarshal(call.Arguments, &args); err != nil {
			c.opts.Logger.Warn("tool arguments undecodable", "tool", call.Name, "error", err)
			return fmt.Sprintf("Error from %s: invalid arguments: %v", call.Name, err)
		}
	}

	out, err := registry.Invoke(ctx, call.Name, args)
	if err != nil {
		c.opts.Logger.Warn("tool invocation failed", "tool", call.Name, "error", err)
		return fmt.Sprintf("Error from %s: %v", call.Name, err)
	}

	raw, err := json.Marshal(out)
	if err != nil {
		return fmt.Sprintf("Error from %s: unencodable result: %v", call.Name, err)
	}
	return fmt.Sprintf("Result from %s: %s", call.Name, raw)
}

// Draft generates a completion and presents it to the gate before release.
// A rejected draft returns the content alongside ErrRejected so callers can
// revise and retry.
func (c *Client) Draft(ctx context.Context, prompt string) (string, error) {
	content, err := c.backend.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}

	approved, err := c.opts.Gate.Present(ctx, content)
	if err != nil {
		return "", err
	}
	if !approved {
		return content, ErrRejected
	}
	return content, nil
}

// retryingBackend wraps a backend so every call runs under the retry policy.
type retryingBackend struct {
	inner  model.Backend
	policy *retry.Policy
}

func (b *retryingBackend) Generate(ctx context.Context, prompt string) (string, error) {
	return retry.Execute(ctx, b.policy, func(ctx context.Context) (string, error) {
		return b.inner.Generate(ctx, prompt)
	})
}

func (b *retryingBackend) Chat(ctx context.Context, req model.Request) (model.Reply, error) {
	return retry.Execute(ctx, b.policy, func(ctx context.Context) (model.Reply, error) {
		return b.inner.Chat(ctx, req)
	})
}

func (b *retryingBackend) Info() model.Info { return b.inner.Info() }
