package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/five82/repeater/internal/cursor"
	"github.com/five82/repeater/internal/mutation"
	"github.com/five82/repeater/internal/queries"
	"github.com/five82/repeater/internal/query"
	"github.com/five82/repeater/internal/repeater"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// Keep-alive connections to httptest servers wind down asynchronously.
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

// backend is an in-memory card API recording every write it receives.
type backend struct {
	mu     sync.Mutex
	cards  []repeater.Card
	gets   int
	writes []recordedWrite
}

type recordedWrite struct {
	Method string
	Path   string
	Body   map[string]any
}

func newBackend(t *testing.T, cards ...repeater.Card) (*backend, *httptest.Server) {
	t.Helper()
	b := &backend{cards: cards}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /cards", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.gets++
		out := append([]repeater.Card(nil), b.cards...)
		b.mu.Unlock()
		_ = json.NewEncoder(w).Encode(out)
	})
	mux.HandleFunc("PATCH /cards/{id}", func(w http.ResponseWriter, r *http.Request) {
		body := b.record(r)
		b.mu.Lock()
		defer b.mu.Unlock()
		for i := range b.cards {
			if b.cards[i].ID != r.PathValue("id") {
				continue
			}
			if content, ok := body["content"].(string); ok {
				b.cards[i].Content = content
			}
			if deckID, ok := body["deck_id"].(string); ok {
				b.cards[i].DeckID = deckID
			}
			_ = json.NewEncoder(w).Encode(b.cards[i])
			return
		}
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"Card not found"}`))
	})
	mux.HandleFunc("DELETE /cards/{id}", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		b.mu.Lock()
		defer b.mu.Unlock()
		kept := b.cards[:0]
		for _, c := range b.cards {
			if c.ID != r.PathValue("id") {
				kept = append(kept, c)
			}
		}
		b.cards = kept
		w.WriteHeader(http.StatusNoContent)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return b, server
}

func (b *backend) record(r *http.Request) map[string]any {
	raw, _ := io.ReadAll(r.Body)
	body := map[string]any{}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &body)
	}
	b.mu.Lock()
	b.writes = append(b.writes, recordedWrite{Method: r.Method, Path: r.URL.Path, Body: body})
	b.mu.Unlock()
	return body
}

func (b *backend) snapshot() (int, []recordedWrite) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.gets, append([]recordedWrite(nil), b.writes...)
}

func newTestServices(t *testing.T, server *httptest.Server) *Services {
	t.Helper()
	client, err := repeater.NewClient(context.Background(), repeater.Options{
		BaseURL:   server.URL,
		RateLimit: -1,
		Logger:    zaptest.NewLogger(t),
	})
	require.NoError(t, err)

	svc := NewServices(client, ServiceOptions{FetchTimeout: 2 * time.Second, Logger: zaptest.NewLogger(t)})
	t.Cleanup(svc.Close)
	return svc
}

func waitSettled(t *testing.T, sub *query.Subscription) query.Entry {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	entry, err := sub.Wait(ctx)
	require.NoError(t, err)
	return entry
}

func TestEditCard_SendsOnlyChangedFieldsAndInvalidatesCards(t *testing.T) {
	b, server := newBackend(t, repeater.Card{ID: "c1", DeckID: "d1", Content: "Bonjour---Hello"})
	svc := newTestServices(t, server)

	sub := svc.Cache.Subscribe(queries.DeckCards(svc.API, "d1"))
	defer sub.Close()
	entry := waitSettled(t, sub)
	cards, ok := query.Value[[]repeater.Card](entry)
	require.True(t, ok)
	require.Len(t, cards, 1)

	// Closing the inspector without changes produces an empty diff, which
	// never reaches the network.
	unchanged := mutation.DiffCard(cards[0], "  Bonjour---Hello ", "d1")
	res := svc.Mutations.Run(context.Background(), unchanged)
	assert.ErrorIs(t, res.Err, mutation.ErrNothingToUpdate)
	_, writes := b.snapshot()
	assert.Empty(t, writes)

	getsBefore, _ := b.snapshot()
	edited := mutation.DiffCard(cards[0], "Bonjour---Hello there", "d1")
	res = svc.Mutations.Run(context.Background(), edited)
	require.NoError(t, res.Err)
	assert.Equal(t, []query.Key{queries.CardsKey()}, res.Invalidated)

	_, writes = b.snapshot()
	require.Len(t, writes, 1)
	assert.Equal(t, http.MethodPatch, writes[0].Method)
	assert.Equal(t, "/cards/c1", writes[0].Path)
	assert.Equal(t, map[string]any{"content": "Bonjour---Hello there"}, writes[0].Body)

	entry = waitSettled(t, sub)
	cards, _ = query.Value[[]repeater.Card](entry)
	require.Len(t, cards, 1)
	assert.Equal(t, "Bonjour---Hello there", cards[0].Content)

	getsAfter, _ := b.snapshot()
	assert.Greater(t, getsAfter, getsBefore, "subscribed cards list should refetch")
}

func TestReviewQueue_CursorClampsAfterDelete(t *testing.T) {
	_, server := newBackend(t,
		repeater.Card{ID: "A", DeckID: "d1", Content: "a---1"},
		repeater.Card{ID: "B", DeckID: "d1", Content: "b---2"},
	)
	svc := newTestServices(t, server)

	sub := svc.Cache.Subscribe(queries.DueCards(svc.API))
	defer sub.Close()
	waitSettled(t, sub)

	nav := cursor.New[repeater.Card](svc.Cache, queries.DueCardsKey())
	require.Equal(t, 2, nav.Len())

	require.True(t, nav.Next())
	assert.False(t, nav.Next(), "next at the last item stays put")
	require.True(t, nav.Prev())
	require.True(t, nav.Next())
	require.Equal(t, 1, nav.Index())

	res := svc.Mutations.Run(context.Background(), mutation.DeleteCard{CardID: "A"})
	require.NoError(t, res.Err)
	entry := waitSettled(t, sub)
	require.True(t, entry.Ready())

	assert.Equal(t, 1, nav.Len())
	_, ok := nav.Current()
	assert.False(t, ok, "index 1 is past the end of the shrunk queue")
	assert.NotPanics(t, func() { nav.Next(); nav.Prev() })

	assert.Equal(t, 0, nav.Clamp())
	current, ok := nav.Current()
	require.True(t, ok)
	assert.Equal(t, "B", current.ID)
}

func TestNewServices_RecordsFetchHealth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"detail":"database down"}`))
	}))
	defer server.Close()
	svc := newTestServices(t, server)

	sub := svc.Cache.Subscribe(queries.Stats(svc.API))
	defer sub.Close()
	entry := waitSettled(t, sub)
	require.Equal(t, query.StatusError, entry.Status)

	snap := svc.Health.Snapshot()
	assert.Equal(t, 1, snap.ConsecutiveFailures)
	assert.Equal(t, "stats", snap.LastErrorKey)
	require.Error(t, snap.LastError)
	assert.Contains(t, snap.LastError.Error(), "database down")
}
