package query

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultPrefetchRetention is how long a prefetched entry survives without
// subscribers, and how long its data counts as fresh for later prefetches.
const DefaultPrefetchRetention = 5 * time.Minute

var (
	// ErrClosed is stored on entries whose fetch could not start because the cache was closed.
	ErrClosed = errors.New("query cache closed")
	// ErrFetchPanic wraps a panic recovered from a fetch function.
	ErrFetchPanic = errors.New("fetch panicked")
)

// Status is the lifecycle state of an entry.
type Status int

const (
	StatusPending Status = iota
	StatusReady
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusReady:
		return "ready"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// FetchFunc loads a collection. It must honour ctx cancellation.
type FetchFunc func(ctx context.Context) (any, error)

// Observer is notified after every applied fetch, before subscribers are
// signalled. It runs with the cache locked and must not call back into it.
type Observer func(key Key, err error)

// Entry is a point-in-time snapshot of a cached collection. Data is shared
// with the cache and must be treated as read-only.
type Entry struct {
	Key         Key
	Data        any
	Status      Status
	Err         error
	FetchedAt   time.Time
	Stale       bool
	Fetching    bool
	Subscribers int
}

// Settled reports whether no fetch is outstanding and a result (data or
// error) is available.
func (e Entry) Settled() bool {
	return !e.Fetching && e.Status != StatusPending
}

// Ready reports whether the last fetch succeeded.
func (e Entry) Ready() bool {
	return e.Status == StatusReady
}

// Options configure a Cache.
type Options struct {
	// Timeout bounds each fetch. Zero leaves fetches bounded only by the caller's client.
	Timeout time.Duration
	// PrefetchRetention defaults to DefaultPrefetchRetention.
	PrefetchRetention time.Duration
	Logger            *zap.Logger
	Metrics           *Metrics
	OnFetch           Observer
	Now               func() time.Time
}

// Cache is a keyed store of remote collections shared by every view.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	closed  bool

	// seq numbers flights across entry lifetimes, so a recreated entry
	// never shares a generation with an abandoned fetch.
	seq    uint64
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	timeout   time.Duration
	retention time.Duration
	logger    *zap.Logger
	metrics   *Metrics
	onFetch   Observer
	now       func() time.Time
}

type entry struct {
	key         Key
	data        any
	status      Status
	err         error
	fetchedAt   time.Time
	stale       bool
	fetch       FetchFunc
	gen         uint64
	flight      *flight
	subs        map[*Subscription]struct{}
	retainUntil time.Time
}

type flight struct {
	gen    uint64
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

func (f *flight) finish(err error) {
	f.err = err
	close(f.done)
}

// New creates an empty cache. Call Close to stop outstanding fetches.
func New(opts Options) *Cache {
	ctx, cancel := context.WithCancel(context.Background())
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	retention := opts.PrefetchRetention
	if retention <= 0 {
		retention = DefaultPrefetchRetention
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Cache{
		entries:   make(map[string]*entry),
		ctx:       ctx,
		cancel:    cancel,
		timeout:   opts.Timeout,
		retention: retention,
		logger:    logger.Named("query"),
		metrics:   opts.Metrics,
		onFetch:   opts.OnFetch,
		now:       now,
	}
}

// Subscribe registers interest in key. A fetch starts unless a fresh Ready
// entry exists or one is already in flight, so concurrent subscribers share
// a single call to fetch.
func (c *Cache) Subscribe(key Key, fetch FetchFunc) *Subscription {
	sub := &Subscription{
		cache:   c,
		key:     key.Clone(),
		updates: make(chan struct{}, 1),
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.lookupOrCreate(key)
	if fetch != nil {
		e.fetch = fetch
	}
	if len(e.subs) == 0 && !e.retainUntil.IsZero() && !c.retained(e) {
		e.stale = true
	}
	e.subs[sub] = struct{}{}
	c.ensureFresh(e)
	return sub
}

// Prefetch warms key without subscribing. The entry is kept for the
// retention period, and data younger than that is not fetched again.
func (c *Cache) Prefetch(key Key, fetch FetchFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.lookupOrCreate(key)
	if fetch != nil {
		e.fetch = fetch
	}
	now := c.now()
	if until := now.Add(c.retention); until.After(e.retainUntil) {
		e.retainUntil = until
	}
	if e.status == StatusReady && now.Sub(e.fetchedAt) > c.retention {
		e.stale = true
	}
	c.ensureFresh(e)
}

// Get returns the current snapshot for key.
func (c *Cache) Get(key Key) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key.id()]
	if !ok {
		return Entry{}, false
	}
	return e.snapshot(), true
}

// Invalidate marks every entry whose key starts with one of prefixes as
// stale. Subscribed entries refetch immediately; the rest refetch on their
// next Subscribe or Prefetch. It returns the number of entries matched.
func (c *Cache) Invalidate(prefixes ...Key) int {
	return c.InvalidateFunc(matchAny(prefixes))
}

// InvalidateFunc is Invalidate with an arbitrary key predicate.
func (c *Cache) InvalidateFunc(match func(Key) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, _ := c.invalidateLocked(match)
	return n
}

// Refresh invalidates like Invalidate and waits for the resulting fetches.
// It returns the first fetch error.
func (c *Cache) Refresh(ctx context.Context, prefixes ...Key) error {
	c.mu.Lock()
	_, started := c.invalidateLocked(matchAny(prefixes))
	c.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, f := range started {
		g.Go(func() error {
			select {
			case <-f.done:
				return f.err
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	}
	return g.Wait()
}

// Evict removes key. Entries that still have subscribers are reset to
// Pending and fetched again instead.
func (c *Cache) Evict(key Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key.id()]
	if !ok {
		return false
	}
	if len(e.subs) == 0 {
		c.remove(e)
		return true
	}
	c.abandonFlight(e)
	e.data = nil
	e.status = StatusPending
	e.err = nil
	e.stale = false
	e.fetchedAt = time.Time{}
	e.retainUntil = time.Time{}
	c.startFetch(e)
	c.notify(e)
	return true
}

// Sweep drops unsubscribed entries whose prefetch retention has expired.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for _, e := range c.entries {
		if len(e.subs) == 0 && !c.retained(e) {
			c.remove(e)
			removed++
		}
	}
	return removed
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Close cancels outstanding fetches and waits for them to return.
func (c *Cache) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
}

func matchAny(prefixes []Key) func(Key) bool {
	return func(k Key) bool {
		for _, p := range prefixes {
			if k.HasPrefix(p) {
				return true
			}
		}
		return false
	}
}

func (c *Cache) invalidateLocked(match func(Key) bool) (int, []*flight) {
	matched := 0
	var started []*flight
	for _, e := range c.entries {
		if !match(e.key) {
			continue
		}
		matched++
		c.abandonFlight(e)
		e.stale = true
		if len(e.subs) > 0 {
			if f := c.startFetch(e); f != nil {
				started = append(started, f)
			}
		}
		c.notify(e)
	}
	if matched > 0 {
		c.logger.Debug("invalidated", zap.Int("entries", matched), zap.Int("refetching", len(started)))
	}
	return matched, started
}

func (c *Cache) lookupOrCreate(key Key) *entry {
	id := key.id()
	if e, ok := c.entries[id]; ok {
		return e
	}
	e := &entry{
		key:    key.Clone(),
		status: StatusPending,
		subs:   make(map[*Subscription]struct{}),
	}
	c.entries[id] = e
	c.metrics.entries(len(c.entries))
	return e
}

func (c *Cache) ensureFresh(e *entry) {
	if e.flight != nil || (e.status == StatusReady && !e.stale) {
		c.metrics.hit()
		return
	}
	c.startFetch(e)
}

func (c *Cache) retained(e *entry) bool {
	return c.now().Before(e.retainUntil)
}

func (c *Cache) remove(e *entry) {
	c.abandonFlight(e)
	delete(c.entries, e.key.id())
	c.metrics.entries(len(c.entries))
}

// abandonFlight detaches the in-flight fetch so its result is discarded.
func (c *Cache) abandonFlight(e *entry) {
	if e.flight == nil {
		return
	}
	e.flight.cancel()
	e.flight = nil
}

func (c *Cache) notify(e *entry) {
	for sub := range e.subs {
		select {
		case sub.updates <- struct{}{}:
		default:
		}
	}
}

// startFetch must be called with c.mu held.
func (c *Cache) startFetch(e *entry) *flight {
	if e.fetch == nil {
		return nil
	}
	if c.closed {
		e.status = StatusError
		e.err = ErrClosed
		return nil
	}

	c.seq++
	e.gen = c.seq
	var ctx context.Context
	var cancel context.CancelFunc
	if c.timeout > 0 {
		ctx, cancel = context.WithTimeout(c.ctx, c.timeout)
	} else {
		ctx, cancel = context.WithCancel(c.ctx)
	}
	f := &flight{gen: e.gen, cancel: cancel, done: make(chan struct{})}
	e.flight = f
	c.metrics.miss()

	key := e.key
	fetch := e.fetch
	c.logger.Debug("fetch start", zap.Stringer("key", key), zap.Uint64("gen", f.gen))

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer cancel()
		start := c.now()
		data, err := runFetch(ctx, fetch)
		c.complete(key, f, data, err, c.now().Sub(start))
	}()
	return f
}

func (c *Cache) complete(key Key, f *flight, data any, err error, elapsed time.Duration) {
	c.mu.Lock()
	e := c.entries[key.id()]
	if e == nil || e.flight != f || c.ctx.Err() != nil {
		c.mu.Unlock()
		f.finish(nil)
		c.metrics.fetched(key.Entity(), outcomeDiscarded, 0)
		c.logger.Debug("fetch discarded", zap.Stringer("key", key), zap.Uint64("gen", f.gen))
		return
	}

	e.flight = nil
	if err != nil {
		e.status = StatusError
		e.err = err
	} else {
		e.data = data
		e.status = StatusReady
		e.err = nil
		e.stale = false
		e.fetchedAt = c.now()
	}

	outcome := outcomeOK
	if err != nil {
		outcome = outcomeError
		c.logger.Warn("fetch failed", zap.Stringer("key", key), zap.Duration("elapsed", elapsed), zap.Error(err))
	} else {
		c.logger.Debug("fetch done", zap.Stringer("key", key), zap.Duration("elapsed", elapsed))
	}
	c.metrics.fetched(key.Entity(), outcome, elapsed.Seconds())
	if c.onFetch != nil {
		c.onFetch(key, err)
	}
	c.notify(e)
	c.mu.Unlock()

	f.finish(err)
}

func runFetch(ctx context.Context, fetch FetchFunc) (data any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrFetchPanic, r)
		}
	}()
	return fetch(ctx)
}

func (e *entry) snapshot() Entry {
	return Entry{
		Key:         e.key.Clone(),
		Data:        e.data,
		Status:      e.status,
		Err:         e.err,
		FetchedAt:   e.fetchedAt,
		Stale:       e.stale,
		Fetching:    e.flight != nil,
		Subscribers: len(e.subs),
	}
}
