package fallback

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func failingTier(err error, calls *int) Tier {
	return func(ctx context.Context, st State) (any, error) {
		*calls++
		return nil, err
	}
}

func succeedingTier(payload any, calls *int) Tier {
	return func(ctx context.Context, st State) (any, error) {
		*calls++
		return payload, nil
	}
}

func TestResolveStopsAtFirstSuccessfulTier(t *testing.T) {
	var first, second, third int
	chain, err := NewChain([]Tier{
		failingTier(errors.New("tier 1 failed"), &first),
		succeedingTier("partial answer", &second),
		succeedingTier("never reached", &third),
	})
	require.NoError(t, err)

	result, err := chain.Resolve(context.Background(), State{Input: "x"})

	require.NoError(t, err)
	assert.Equal(t, 1, result.Tier)
	assert.Equal(t, "partial answer", result.Payload)
	assert.Equal(t, 1, first)
	assert.Equal(t, 1, second)
	assert.Equal(t, 0, third, "tier 3 is never invoked once tier 2 succeeds")
}

func TestResolveTiersSeePartialState(t *testing.T) {
	primaryErr := errors.New("validation exhausted")
	tier := func(ctx context.Context, st State) (any, error) {
		assert.Equal(t, "extract user", st.Input)
		assert.Equal(t, `{"name": "john"}`, st.Raw)
		assert.Equal(t, "john", st.Value["name"])
		assert.ErrorIs(t, st.Err, primaryErr)
		return "User john", nil
	}
	chain, err := NewChain([]Tier{tier})
	require.NoError(t, err)

	result, err := chain.Resolve(context.Background(), State{
		Input: "extract user",
		Raw:   `{"name": "john"}`,
		Value: map[string]any{"name": "john"},
		Err:   primaryErr,
	})

	require.NoError(t, err)
	assert.Equal(t, 0, result.Tier)
}

func TestResolveStaticFinalTierIsTotal(t *testing.T) {
	var first int
	chain, err := NewChain([]Tier{
		failingTier(errors.New("no structured data"), &first),
		Static("Service temporarily unavailable. Please try again later."),
	})
	require.NoError(t, err)

	result, err := chain.Resolve(context.Background(), State{})

	require.NoError(t, err)
	assert.Equal(t, 1, result.Tier)
	assert.Equal(t, "Service temporarily unavailable. Please try again later.", result.Payload)
}

func TestNewChainRejectsEmptyChain(t *testing.T) {
	_, err := NewChain(nil)
	assert.ErrorIs(t, err, ErrNoTiers)
}

func TestResolveSurfacesMisconfiguredChain(t *testing.T) {
	var calls int
	boom := errors.New("still failing")
	chain, err := NewChain([]Tier{failingTier(boom, &calls), failingTier(boom, &calls)})
	require.NoError(t, err)

	_, err = chain.Resolve(context.Background(), State{})

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "final tier must be total")
}

func TestResolveHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls int
	chain, err := NewChain([]Tier{succeedingTier("x", &calls)})
	require.NoError(t, err)

	_, err = chain.Resolve(ctx, State{})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, calls)
}
