// Package tool implements the function calling subsystem that lets backends
// invoke structured capabilities (APIs, computations, side effects) with
// schema-validated arguments and consistent error handling.
package tool

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"structgen/logging"
	"structgen/model"
)

// Tool defines the interface for exposing external functions to a backend.
//
// Tool implementations should:
//   - Provide clear, descriptive names (snake_case recommended)
//   - Define a proper JSON schema for parameters
//   - Be safe for concurrent use
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description returns a human-readable description provided to the
	// backend so it understands when and how to use the tool.
	Description() string

	// Parameters returns a JSON schema describing the expected arguments.
	Parameters() map[string]any

	// Call executes the tool with decoded arguments.
	Call(ctx context.Context, args map[string]any) (any, error)
}

// UnknownToolError reports an invocation of a name with no registered tool.
// It is fatal and never retried.
type UnknownToolError struct {
	Name string
}

// Error implements the error interface.
func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool: %s", e.Name)
}

// InvocationError reports a failure during tool execution with a code for
// categorization.
type InvocationError struct {
	Tool    string `json:"tool"`
	Message string `json:"message"`
	Code    string `json:"code"` // VALIDATION_ERROR or EXECUTION_ERROR
}

// Error implements the error interface.
func (e *InvocationError) Error() string {
	return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
}

// RegistryOptions configure a Registry.
type RegistryOptions struct {
	// Logger receives per-invocation logs. Defaults to NoOpLogger.
	Logger logging.Logger
}

// Registry holds the tools available to the backend and dispatches
// invocations by name. Safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]Tool
	logger logging.Logger
}

// NewRegistry constructs an empty Registry.
func NewRegistry(optFns ...func(o *RegistryOptions)) *Registry {
	opts := RegistryOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Registry{tools: make(map[string]Tool), logger: opts.Logger}
}

// Register adds a tool. Registering a duplicate name is an error.
func (r *Registry) Register(t Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name()]; exists {
		return fmt.Errorf("tool %q already registered", t.Name())
	}
	r.tools[t.Name()] = t
	return nil
}

// Invoke executes the named tool with the given arguments. An unregistered
// name fails with *UnknownToolError.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any) (any, error) {
	r.mu.RLock()
	t, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return nil, &UnknownToolError{Name: name}
	}

	start := time.Now()
	result, err := t.Call(ctx, args)
	r.logger.Debug("tool.invoke",
		"tool", name, "duration_ms", time.Since(start).Milliseconds(), "success", err == nil)
	return result, err
}

// Definitions exports every registered tool as a backend tool definition,
// sorted by name for deterministic requests.
func (r *Registry) Definitions() []model.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]model.ToolDefinition, 0, len(r.tools))
	for _, t := range r.tools {
		defs = append(defs, model.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}
