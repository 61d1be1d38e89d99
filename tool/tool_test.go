package tool

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sumTool(t *testing.T) *FunctionTool {
	t.Helper()
	sum, err := NewFunctionTool(
		"calculate_sum",
		"Calculate the sum of two numbers",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"a": map[string]any{"type": "number"},
				"b": map[string]any{"type": "number"},
			},
			"required": []string{"a", "b"},
		},
		func(ctx context.Context, args map[string]any) (any, error) {
			return args["a"].(float64) + args["b"].(float64), nil
		},
	)
	require.NoError(t, err)
	return sum
}

func TestFunctionToolCall(t *testing.T) {
	sum := sumTool(t)

	result, err := sum.Call(context.Background(), map[string]any{"a": 2.0, "b": 3.0})

	require.NoError(t, err)
	assert.Equal(t, 5.0, result)
}

func TestFunctionToolValidatesArguments(t *testing.T) {
	sum := sumTool(t)

	_, err := sum.Call(context.Background(), map[string]any{"a": 2.0})

	var invErr *InvocationError
	require.True(t, errors.As(err, &invErr))
	assert.Equal(t, "VALIDATION_ERROR", invErr.Code)

	_, err = sum.Call(context.Background(), map[string]any{"a": 2.0, "b": "three"})
	require.True(t, errors.As(err, &invErr))
	assert.Equal(t, "VALIDATION_ERROR", invErr.Code)
}

func TestFunctionToolWrapsExecutionErrors(t *testing.T) {
	boom, err := NewFunctionTool("boom", "always fails",
		map[string]any{"type": "object"},
		func(ctx context.Context, args map[string]any) (any, error) {
			return nil, errors.New("kaput")
		},
	)
	require.NoError(t, err)

	_, err = boom.Call(context.Background(), nil)

	var invErr *InvocationError
	require.True(t, errors.As(err, &invErr))
	assert.Equal(t, "EXECUTION_ERROR", invErr.Code)
	assert.Contains(t, invErr.Error(), "kaput")
}

func TestNewFunctionToolRejectsBadSchema(t *testing.T) {
	_, err := NewFunctionTool("bad", "broken schema",
		map[string]any{"type": 42},
		func(ctx context.Context, args map[string]any) (any, error) { return nil, nil },
	)
	assert.Error(t, err)
}

func TestRegistryInvoke(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(sumTool(t)))

	result, err := reg.Invoke(context.Background(), "calculate_sum", map[string]any{"a": 1.0, "b": 2.0})

	require.NoError(t, err)
	assert.Equal(t, 3.0, result)
}

func TestRegistryUnknownTool(t *testing.T) {
	reg := NewRegistry()

	_, err := reg.Invoke(context.Background(), "get_weather", nil)

	var unknown *UnknownToolError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "get_weather", unknown.Name)
}

func TestRegistryRejectsDuplicateNames(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(sumTool(t)))
	assert.Error(t, reg.Register(sumTool(t)))
}

func TestRegistryDefinitionsSorted(t *testing.T) {
	reg := NewRegistry()
	b, err := NewFunctionTool("b_tool", "second", map[string]any{"type": "object"},
		func(ctx context.Context, args map[string]any) (any, error) { return nil, nil })
	require.NoError(t, err)
	a, err := NewFunctionTool("a_tool", "first", map[string]any{"type": "object"},
		func(ctx context.Context, args map[string]any) (any, error) { return nil, nil })
	require.NoError(t, err)
	require.NoError(t, reg.Register(b))
	require.NoError(t, reg.Register(a))

	defs := reg.Definitions()

	require.Len(t, defs, 2)
	assert.Equal(t, "a_tool", defs[0].Name)
	assert.Equal(t, "b_tool", defs[1].Name)
}
