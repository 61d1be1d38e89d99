package intent

import (
	"context"
	"fmt"

	"structgen/logging"
)

// Handler processes input that was classified with a specific intent.
type Handler func(ctx context.Context, input string, res Result) (string, error)

// RouterOptions configure a Router.
type RouterOptions struct {
	// Logger receives per-dispatch debug logs. Defaults to NoOpLogger.
	Logger logging.Logger
}

// Router deterministically dispatches classified input to exactly one
// registered handler. The handler mapping is total over the closed intent
// set; construction fails otherwise.
type Router struct {
	classifier *Classifier
	handlers   map[Intent]Handler
	logger     logging.Logger
}

// NewRouter constructs a Router. Every intent in the closed set must have a
// handler and no handler may target a label outside the set.
func NewRouter(classifier *Classifier, handlers map[Intent]Handler, optFns ...func(o *RouterOptions)) (*Router, error) {
	opts := RouterOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	known := make(map[Intent]struct{}, len(Intents()))
	for _, it := range Intents() {
		known[it] = struct{}{}
		if handlers[it] == nil {
			return nil, fmt.Errorf("router: no handler registered for intent %q", it)
		}
	}
	for it := range handlers {
		if _, ok := known[it]; !ok {
			return nil, fmt.Errorf("router: handler registered for unknown intent %q", it)
		}
	}

	own := make(map[Intent]Handler, len(handlers))
	for it, h := range handlers {
		own[it] = h
	}
	return &Router{classifier: classifier, handlers: own, logger: opts.Logger}, nil
}

// Route classifies input and dispatches it to the matching handler. A label
// outside the closed set reaching dispatch should be impossible given the
// schema's enum check; if it happens the upstream contract was broken and
// Route fails with *InvariantViolationError rather than a silent default.
func (r *Router) Route(ctx context.Context, input string) (string, Result, error) {
	res, err := r.classifier.Classify(ctx, input)
	if err != nil {
		return "", Result{}, err
	}

	handler, ok := r.handlers[res.Intent]
	if !ok {
		return "", res, &InvariantViolationError{
			Component: "router",
			Detail:    fmt.Sprintf("intent %q is outside the closed set", res.Intent),
		}
	}

	r.logger.Debug("router.dispatch", "intent", string(res.Intent), "confidence", res.Confidence)

	out, err := handler(ctx, input, res)
	if err != nil {
		return "", res, err
	}
	return out, res, nil
}
