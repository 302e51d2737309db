package mutation

import (
	"context"
	"fmt"

	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"

	"github.com/five82/repeater/internal/query"
	"github.com/five82/repeater/internal/repeater"
)

// Invalidator marks cached collections stale.
type Invalidator interface {
	Invalidate(prefixes ...query.Key) int
}

// Result is the outcome of Run. Exactly one of Value or Err is meaningful.
type Result struct {
	Op          Operation
	Value       any
	Err         error
	Invalidated []query.Key
}

// OK reports whether the write succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

// Coordinator runs writes and invalidates the collections they affect.
type Coordinator struct {
	api      repeater.Writer
	cache    Invalidator
	logger   *zap.Logger
	inflight *xsync.MapOf[string, struct{}]
}

// NewCoordinator wires a coordinator to the API and the cache.
func NewCoordinator(api repeater.Writer, cache Invalidator, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		api:      api,
		cache:    cache,
		logger:   logger.Named("mutation"),
		inflight: xsync.NewMapOf[string, struct{}](),
	}
}

// Run validates op, rejects it if the same logical operation is already
// running, performs the write, and on success invalidates op.AffectedKeys().
// Failures are returned, never retried.
func (c *Coordinator) Run(ctx context.Context, op Operation) Result {
	if err := op.Validate(); err != nil {
		return Result{Op: op, Err: err}
	}

	key := op.InFlightKey()
	if _, running := c.inflight.LoadOrStore(key, struct{}{}); running {
		c.logger.Debug("rejected duplicate", zap.String("op", op.Op()), zap.String("key", key))
		return Result{Op: op, Err: fmt.Errorf("%s: %w", op.Op(), ErrInFlight)}
	}
	defer c.inflight.Delete(key)

	value, err := c.execute(ctx, op)
	if err != nil {
		c.logger.Warn("mutation failed", zap.String("op", op.Op()), zap.Error(err))
		return Result{Op: op, Err: fmt.Errorf("%s: %w", op.Op(), err)}
	}

	keys := op.AffectedKeys()
	n := c.cache.Invalidate(keys...)
	c.logger.Debug("mutation applied",
		zap.String("op", op.Op()),
		zap.Stringers("invalidated", keys),
		zap.Int("entries", n),
	)
	return Result{Op: op, Value: value, Invalidated: keys}
}

// InFlight reports whether an operation with the same logical key is running.
func (c *Coordinator) InFlight(op Operation) bool {
	_, ok := c.inflight.Load(op.InFlightKey())
	return ok
}

func (c *Coordinator) execute(ctx context.Context, op Operation) (any, error) {
	switch o := op.(type) {
	case CreateCard:
		return c.api.CreateCard(ctx, repeater.CardCreate{DeckID: o.DeckID, Content: o.Content})
	case UpdateCard:
		return c.api.UpdateCard(ctx, o.CardID, o.Patch)
	case DeleteCard:
		return nil, c.api.DeleteCard(ctx, o.CardID)
	case CreateDeck:
		return c.api.CreateDeck(ctx, repeater.DeckCreate{
			Name:        o.Name,
			Description: o.Description,
			CategoryID:  o.CategoryID,
		})
	case UpdateDeck:
		return c.api.UpdateDeck(ctx, o.DeckID, o.Patch)
	case DeleteDeck:
		return nil, c.api.DeleteDeck(ctx, o.DeckID)
	case SubmitReview:
		return c.api.SubmitReview(ctx, repeater.ReviewCreate{CardID: o.CardID, Feedback: o.Feedback})
	default:
		return nil, fmt.Errorf("unsupported operation %T", op)
	}
}
