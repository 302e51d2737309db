package query

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func newTestCache(t *testing.T, opts Options) *Cache {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = zaptest.NewLogger(t)
	}
	c := New(opts)
	t.Cleanup(c.Close)
	return c
}

func waitEntry(t *testing.T, sub *Subscription) Entry {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	entry, err := sub.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait(%s) returned error: %v", sub.Key(), err)
	}
	return entry
}

// counter returns a fetch that yields 1, 2, 3... and counts calls.
func counter() (FetchFunc, *atomic.Int32) {
	var calls atomic.Int32
	return func(context.Context) (any, error) {
		return int(calls.Add(1)), nil
	}, &calls
}

func TestSubscribe_ConcurrentSubscribersShareOneFetch(t *testing.T) {
	c := newTestCache(t, Options{})

	release := make(chan struct{})
	var calls atomic.Int32
	fetch := func(ctx context.Context) (any, error) {
		calls.Add(1)
		select {
		case <-release:
			return []string{"a", "b"}, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	key := NewKey("cards", "due")
	subs := make([]*Subscription, 2)
	var wg sync.WaitGroup
	for i := range subs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			subs[i] = c.Subscribe(key, fetch)
		}()
	}
	wg.Wait()
	close(release)

	for _, sub := range subs {
		entry := waitEntry(t, sub)
		got, ok := Value[[]string](entry)
		if !ok || len(got) != 2 {
			t.Fatalf("entry data = %#v, want [a b]", entry.Data)
		}
		sub.Close()
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("fetch calls = %d, want 1", n)
	}
}

func TestSubscribe_FreshEntryIsNotRefetched(t *testing.T) {
	c := newTestCache(t, Options{})
	fetch, calls := counter()
	key := NewKey("decks")

	first := c.Subscribe(key, fetch)
	defer first.Close()
	waitEntry(t, first)

	second := c.Subscribe(key, fetch)
	defer second.Close()
	if entry := waitEntry(t, second); entry.Data != 1 {
		t.Fatalf("second subscriber data = %v, want 1", entry.Data)
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("fetch calls = %d, want 1", n)
	}
	if entry, _ := c.Get(key); entry.Subscribers != 2 {
		t.Fatalf("subscribers = %d, want 2", entry.Subscribers)
	}
}

func TestInvalidate_NextReadyReadIsNewData(t *testing.T) {
	c := newTestCache(t, Options{})

	var calls atomic.Int32
	gates := []chan struct{}{make(chan struct{}), make(chan struct{}), make(chan struct{})}
	fetch := func(ctx context.Context) (any, error) {
		n := int(calls.Add(1))
		select {
		case <-gates[n-1]:
			return n, nil
		case <-ctx.Done():
			// The abandoned fetch still reports a value to prove it is ignored.
			<-gates[n-1]
			return n, nil
		}
	}

	key := NewKey("cards")
	sub := c.Subscribe(key, fetch)
	defer sub.Close()

	close(gates[0])
	if entry := waitEntry(t, sub); entry.Data != 1 {
		t.Fatalf("initial data = %v, want 1", entry.Data)
	}

	// Invalidate twice; the second flight supersedes the first.
	if n := c.Invalidate(NewKey("cards")); n != 1 {
		t.Fatalf("Invalidate matched %d, want 1", n)
	}
	deadline := time.Now().Add(2 * time.Second)
	for calls.Load() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("refetch did not start")
		}
		time.Sleep(time.Millisecond)
	}
	if entry := sub.Snapshot(); !entry.Stale || !entry.Fetching || entry.Data != 1 {
		t.Fatalf("after invalidate = %+v, want stale fetching with old data", entry)
	}
	c.Invalidate(key)

	close(gates[2])
	entry := waitEntry(t, sub)
	if entry.Data != 3 || entry.Stale {
		t.Fatalf("after refetch = %+v, want fresh data 3", entry)
	}

	close(gates[1])
	// Give the superseded fetch a chance to land; it must not overwrite.
	time.Sleep(20 * time.Millisecond)
	if entry := sub.Snapshot(); entry.Data != 3 {
		t.Fatalf("superseded fetch overwrote data: %v", entry.Data)
	}
}

func TestInvalidate_PrefixMatchesAndLazyForUnsubscribed(t *testing.T) {
	c := newTestCache(t, Options{})
	fetch, calls := counter()

	due := c.Subscribe(NewKey("cards", "due"), fetch)
	defer due.Close()
	waitEntry(t, due)

	c.Prefetch(NewKey("cards", "deck=d1"), fetch)
	decks := c.Subscribe(NewKey("decks"), fetch)
	defer decks.Close()
	waitEntry(t, decks)

	deadline := time.Now().Add(2 * time.Second)
	for calls.Load() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("prefetch did not run")
		}
		time.Sleep(time.Millisecond)
	}
	if entry, ok := c.Get(NewKey("cards", "deck=d1")); ok {
		for !entry.Settled() && time.Now().Before(deadline) {
			time.Sleep(time.Millisecond)
			entry, _ = c.Get(NewKey("cards", "deck=d1"))
		}
	}

	before := calls.Load()
	if n := c.Invalidate(NewKey("cards")); n != 2 {
		t.Fatalf("Invalidate(cards) matched %d, want 2", n)
	}
	waitEntry(t, due)

	if got := calls.Load() - before; got != 1 {
		t.Fatalf("refetches = %d, want 1 (only the subscribed entry)", got)
	}
	prefetched, ok := c.Get(NewKey("cards", "deck=d1"))
	if !ok || !prefetched.Stale || prefetched.Fetching {
		t.Fatalf("prefetched entry = %+v, want stale and idle", prefetched)
	}
	if entry, _ := c.Get(NewKey("decks")); entry.Stale {
		t.Fatalf("decks should not be invalidated")
	}
}

func TestClose_LastSubscriberDestroysEntry(t *testing.T) {
	c := newTestCache(t, Options{})
	fetch, _ := counter()
	key := NewKey("reviews", "c1")

	sub := c.Subscribe(key, fetch)
	waitEntry(t, sub)
	sub.Close()
	sub.Close()

	if _, ok := c.Get(key); ok {
		t.Fatalf("entry should be destroyed after last unsubscribe")
	}
	if _, open := <-sub.Updates(); open {
		t.Fatalf("Updates should be closed after Close")
	}
}

func TestClose_DuringFetchDiscardsResult(t *testing.T) {
	c := newTestCache(t, Options{})
	release := make(chan struct{})
	fetch := func(ctx context.Context) (any, error) {
		<-release
		return "late", nil
	}
	key := NewKey("stats")

	sub := c.Subscribe(key, fetch)
	sub.Close()
	close(release)
	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get(key); ok {
		t.Fatalf("late result resurrected a destroyed entry")
	}
}

func TestResubscribe_DuringAbandonedFetchRunsNewFetch(t *testing.T) {
	c := newTestCache(t, Options{})
	release := make(chan struct{})
	var once sync.Once
	releaseOld := func() { once.Do(func() { close(release) }) }
	t.Cleanup(releaseOld)
	started := make(chan struct{})
	blocking := func(context.Context) (any, error) {
		close(started)
		<-release
		return "old", nil
	}
	fresh, calls := counter()
	key := NewKey("decks")

	first := c.Subscribe(key, blocking)
	<-started
	first.Close()

	second := c.Subscribe(key, fresh)
	defer second.Close()
	entry := waitEntry(t, second)
	if !entry.Ready() || entry.Data != 1 {
		t.Fatalf("remounted entry = %+v, want ready with fresh data", entry)
	}

	releaseOld()
	time.Sleep(20 * time.Millisecond)

	got, ok := c.Get(key)
	if !ok || got.Data != 1 || got.Status != StatusReady {
		t.Fatalf("abandoned fetch overwrote entry: %+v", got)
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("fresh fetch calls = %d, want 1", n)
	}
}

func TestPrefetch_RetentionAndSweep(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)}
	c := newTestCache(t, Options{Now: clock.Now, PrefetchRetention: time.Minute})
	fetch, calls := counter()
	key := NewKey("reviews", "c1")

	c.Prefetch(key, fetch)
	sub := c.Subscribe(key, fetch)
	waitEntry(t, sub)
	sub.Close()

	if _, ok := c.Get(key); !ok {
		t.Fatalf("prefetched entry should survive its last subscriber")
	}
	c.Prefetch(key, fetch)
	if n := calls.Load(); n != 1 {
		t.Fatalf("fresh prefetch refetched: calls = %d, want 1", n)
	}

	if removed := c.Sweep(); removed != 0 {
		t.Fatalf("Sweep removed %d before retention expired", removed)
	}
	clock.Advance(2 * time.Minute)
	if removed := c.Sweep(); removed != 1 {
		t.Fatalf("Sweep removed %d, want 1", removed)
	}
	if c.Len() != 0 {
		t.Fatalf("Len = %d, want 0", c.Len())
	}
}

func TestFetchError_KeepsDataAndReportsObserver(t *testing.T) {
	var observed []error
	var mu sync.Mutex
	c := newTestCache(t, Options{OnFetch: func(_ Key, err error) {
		mu.Lock()
		observed = append(observed, err)
		mu.Unlock()
	}})

	boom := errors.New("boom")
	var fail atomic.Bool
	fetch := func(context.Context) (any, error) {
		if fail.Load() {
			return nil, boom
		}
		return "good", nil
	}

	key := NewKey("decks")
	sub := c.Subscribe(key, fetch)
	defer sub.Close()
	waitEntry(t, sub)

	fail.Store(true)
	c.Invalidate(key)
	entry := waitEntry(t, sub)
	if entry.Status != StatusError || !errors.Is(entry.Err, boom) {
		t.Fatalf("entry = %+v, want error status with boom", entry)
	}
	if entry.Data != "good" {
		t.Fatalf("data = %v, want last good value", entry.Data)
	}

	fail.Store(false)
	sub.Refetch()
	if entry := waitEntry(t, sub); entry.Status != StatusReady || entry.Err != nil {
		t.Fatalf("after refetch = %+v, want ready", entry)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(observed) != 3 || observed[0] != nil || !errors.Is(observed[1], boom) || observed[2] != nil {
		t.Fatalf("observed = %v, want [nil boom nil]", observed)
	}
}

func TestFetchPanic_IsRecovered(t *testing.T) {
	c := newTestCache(t, Options{})
	sub := c.Subscribe(NewKey("cards"), func(context.Context) (any, error) {
		panic("bad payload")
	})
	defer sub.Close()

	entry := waitEntry(t, sub)
	if !errors.Is(entry.Err, ErrFetchPanic) {
		t.Fatalf("err = %v, want ErrFetchPanic", entry.Err)
	}
}

func TestRefresh_WaitsAndReturnsError(t *testing.T) {
	c := newTestCache(t, Options{})
	boom := errors.New("offline")
	var fail atomic.Bool
	fetch := func(context.Context) (any, error) {
		if fail.Load() {
			return nil, boom
		}
		return 1, nil
	}

	sub := c.Subscribe(NewKey("cards", "due"), fetch)
	defer sub.Close()
	waitEntry(t, sub)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.Refresh(ctx, NewKey("cards")); err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}
	fail.Store(true)
	if err := c.Refresh(ctx, NewKey("cards")); !errors.Is(err, boom) {
		t.Fatalf("Refresh error = %v, want %v", err, boom)
	}
	if err := c.Refresh(ctx, NewKey("nothing")); err != nil {
		t.Fatalf("Refresh with no matches returned %v", err)
	}
}

func TestEvict(t *testing.T) {
	c := newTestCache(t, Options{})
	fetch, calls := counter()
	other, _ := counter()

	c.Prefetch(NewKey("categories"), other)
	if !c.Evict(NewKey("categories")) {
		t.Fatalf("Evict should report removal")
	}
	if _, ok := c.Get(NewKey("categories")); ok {
		t.Fatalf("unsubscribed entry should be gone after Evict")
	}
	if c.Evict(NewKey("categories")) {
		t.Fatalf("Evict of missing key should report false")
	}

	sub := c.Subscribe(NewKey("me"), fetch)
	defer sub.Close()
	waitEntry(t, sub)
	before := calls.Load()
	c.Evict(NewKey("me"))
	entry := waitEntry(t, sub)
	if entry.Status != StatusReady || calls.Load() != before+1 {
		t.Fatalf("subscribed entry should refetch after Evict: %+v", entry)
	}
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	c := newTestCache(t, Options{Metrics: metrics})
	fetch, _ := counter()

	a := c.Subscribe(NewKey("decks"), fetch)
	defer a.Close()
	waitEntry(t, a)
	b := c.Subscribe(NewKey("decks"), fetch)
	defer b.Close()

	if got := testutil.ToFloat64(metrics.Misses); got != 1 {
		t.Fatalf("misses = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.Hits); got != 1 {
		t.Fatalf("hits = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.Fetches.WithLabelValues("decks", outcomeOK)); got != 1 {
		t.Fatalf("ok fetches = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.Entries); got != 1 {
		t.Fatalf("entries = %v, want 1", got)
	}
}

func TestCacheClose_StopsInFlightFetches(t *testing.T) {
	c := New(Options{})
	started := make(chan struct{})
	sub := c.Subscribe(NewKey("cards"), func(ctx context.Context) (any, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	})
	<-started
	c.Close()
	sub.Close()
}
