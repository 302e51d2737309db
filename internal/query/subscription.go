package query

import (
	"context"
	"sync"
)

// Subscription is a live handle on a cache entry. It receives a signal on
// Updates whenever the entry changes and must be closed when the view that
// owns it goes away.
type Subscription struct {
	cache     *Cache
	key       Key
	updates   chan struct{}
	closeOnce sync.Once
}

// Key returns the subscribed key.
func (s *Subscription) Key() Key {
	return s.key.Clone()
}

// Snapshot returns the entry's current state.
func (s *Subscription) Snapshot() Entry {
	if entry, ok := s.cache.Get(s.key); ok {
		return entry
	}
	return Entry{Key: s.key.Clone(), Status: StatusPending}
}

// Updates signals entry changes. Signals coalesce; read Snapshot after each
// one. The channel is closed by Close.
func (s *Subscription) Updates() <-chan struct{} {
	return s.updates
}

// Wait blocks until the entry is settled or ctx is done.
func (s *Subscription) Wait(ctx context.Context) (Entry, error) {
	for {
		snap := s.Snapshot()
		if snap.Settled() {
			return snap, nil
		}
		select {
		case <-ctx.Done():
			return snap, ctx.Err()
		case _, ok := <-s.updates:
			if !ok {
				return s.Snapshot(), ErrClosed
			}
		}
	}
}

// Refetch discards any in-flight fetch and loads the entry again. Views use
// it for an explicit retry after an error.
func (s *Subscription) Refetch() {
	c := s.cache
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[s.key.id()]
	if !ok {
		return
	}
	if _, subscribed := e.subs[s]; !subscribed {
		return
	}
	c.abandonFlight(e)
	c.startFetch(e)
	c.notify(e)
}

// Close unsubscribes. The entry is destroyed when its last subscriber
// leaves unless a prefetch is still retaining it. Close is idempotent.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		c := s.cache
		c.mu.Lock()
		defer c.mu.Unlock()

		if e, ok := c.entries[s.key.id()]; ok {
			if _, subscribed := e.subs[s]; subscribed {
				delete(e.subs, s)
				if len(e.subs) == 0 && !c.retained(e) {
					c.remove(e)
				}
			}
		}
		close(s.updates)
	})
}
