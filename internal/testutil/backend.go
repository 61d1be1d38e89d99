package testutil

import (
	"context"
	"errors"
	"sync"

	"structgen/chat"
	"structgen/model"
)

// Step is one scripted backend outcome: a reply or an error.
type Step struct {
	Reply model.Reply
	Err   error
}

// Text builds a step replying with plain assistant text.
func Text(content string) Step {
	return Step{Reply: model.Reply{Turn: chat.Assistant(content), FinishReason: "stop"}}
}

// Fail builds a step that fails with err.
func Fail(err error) Step {
	return Step{Err: err}
}

// ScriptedBackend is a model.Backend that replays a fixed sequence of steps
// and records every request it receives. Safe for concurrent use.
type ScriptedBackend struct {
	mu       sync.Mutex
	steps    []Step
	requests []model.Request
	prompts  []string
}

// NewScriptedBackend builds a backend that replays steps in order. When the
// script is exhausted further calls fail.
func NewScriptedBackend(steps ...Step) *ScriptedBackend {
	return &ScriptedBackend{steps: steps}
}

// Generate implements model.Backend by consuming the next step's text.
func (s *ScriptedBackend) Generate(_ context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, prompt)
	step, err := s.next()
	if err != nil {
		return "", err
	}
	if step.Err != nil {
		return "", step.Err
	}
	return step.Reply.Turn.Content, nil
}

// Chat implements model.Backend by consuming the next step.
func (s *ScriptedBackend) Chat(_ context.Context, req model.Request) (model.Reply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	step, err := s.next()
	if err != nil {
		return model.Reply{}, err
	}
	return step.Reply, step.Err
}

// Info implements model.Backend.
func (s *ScriptedBackend) Info() model.Info {
	return model.Info{Name: "scripted", Provider: "test", SupportsTools: true}
}

// Requests returns a copy of the chat requests received so far.
func (s *ScriptedBackend) Requests() []model.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// Prompts returns a copy of the generate prompts received so far.
func (s *ScriptedBackend) Prompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.prompts))
	copy(out, s.prompts)
	return out
}

// Calls returns the total number of backend calls made.
func (s *ScriptedBackend) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests) + len(s.prompts)
}

func (s *ScriptedBackend) next() (Step, error) {
	if len(s.steps) == 0 {
		return Step{}, errors.New("scripted backend: script exhausted")
	}
	step := s.steps[0]
	s.steps = s.steps[1:]
	return step, nil
}
