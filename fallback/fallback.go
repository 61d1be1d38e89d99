package fallback

import (
	"context"
	"errors"
	"fmt"

	"structgen/logging"
)

// ErrNoTiers reports a chain constructed without any tiers. A chain must
// end in a total tier, so an empty chain is a configuration error rather
// than a runtime condition.
var ErrNoTiers = errors.New("fallback: chain has no tiers")

// State carries whatever partial state the failed primary path left
// behind, for tiers to degrade gracefully from.
type State struct {
	// Input is the original caller input.
	Input string
	// Raw is the last raw backend output, possibly unvalidated.
	Raw string
	// Value is the last decoded value, possibly incomplete or invalid.
	Value map[string]any
	// Err is the primary path's terminal error.
	Err error
}

// Tier produces a degraded result from the failed primary path's partial
// state, or fails over to the next tier. The final tier of a chain must be
// total: it always succeeds.
type Tier func(ctx context.Context, st State) (any, error)

// Result is the outcome of a resolved chain.
type Result struct {
	// Tier is the zero-based index of the tier that produced the payload.
	Tier int
	// Payload is the possibly partial degraded result.
	Payload any
}

// Static builds a total tier returning a fixed payload. Useful as the final
// tier of a chain.
func Static(payload any) Tier {
	return func(context.Context, State) (any, error) { return payload, nil }
}

// ChainOptions configure a Chain.
type ChainOptions struct {
	// Logger receives per-tier debug logs. Defaults to NoOpLogger.
	Logger logging.Logger
}

// Chain is an ordered list of degraded-result producers tried in sequence
// after the primary path fails.
type Chain struct {
	tiers  []Tier
	logger logging.Logger
}

// NewChain constructs a Chain from tiers in priority order. The last tier
// should be total so the chain as a whole cannot fail.
func NewChain(tiers []Tier, optFns ...func(o *ChainOptions)) (*Chain, error) {
	if len(tiers) == 0 {
		return nil, ErrNoTiers
	}
	opts := ChainOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	own := make([]Tier, len(tiers))
	copy(own, tiers)
	return &Chain{tiers: own, logger: opts.Logger}, nil
}

// Resolve tries each tier strictly in declared order and returns the result
// of the first one that succeeds. Later tiers are never invoked once a tier
// succeeds. If every tier fails the chain itself is misconfigured (the
// final tier was not total) and the last failure is surfaced.
func (c *Chain) Resolve(ctx context.Context, st State) (Result, error) {
	var lastErr error
	for i, tier := range c.tiers {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		payload, err := tier(ctx, st)
		if err == nil {
			c.logger.Debug("fallback.resolved", "tier", i)
			return Result{Tier: i, Payload: payload}, nil
		}
		lastErr = err
		c.logger.Debug("fallback.tier_failed", "tier", i, "error", err.Error())
	}
	return Result{}, fmt.Errorf("fallback: every tier failed, final tier must be total: %w", lastErr)
}
