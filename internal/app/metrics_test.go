package app

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/five82/repeater/internal/queries"
)

func TestCacheSummary_ReadsCollectorsBack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()
	svc := newTestServices(t, server)

	first := svc.Cache.Subscribe(queries.Stats(svc.API))
	defer first.Close()
	waitSettled(t, first)
	second := svc.Cache.Subscribe(queries.Stats(svc.API))
	defer second.Close()

	sum, err := svc.CacheSummary()
	require.NoError(t, err)
	assert.Equal(t, 1.0, sum.Misses)
	assert.Equal(t, 1.0, sum.Hits)
	assert.Equal(t, 0.5, sum.HitRatio())
	assert.Equal(t, 1.0, sum.Fetches["ok"])
	assert.Equal(t, 1.0, sum.Entries)
}

func TestCacheSummary_HitRatioBeforeReads(t *testing.T) {
	assert.Zero(t, CacheSummary{}.HitRatio())
}

func TestServeMetrics_ExposesRegistry(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()
	svc := newTestServices(t, server)

	sub := svc.Cache.Subscribe(queries.Stats(svc.API))
	defer sub.Close()
	waitSettled(t, sub)

	ms, err := serveMetrics("127.0.0.1:0", svc.Registry, zaptest.NewLogger(t))
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, "http://"+ms.addr+"/metrics", nil)
	require.NoError(t, err)
	req.Close = true
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `query_cache_fetches_total{entity="stats",outcome="ok"} 1`)
	assert.Contains(t, string(body), "query_cache_misses_total 1")
	require.NoError(t, ms.shutdown())
}

func TestServeMetrics_RejectsBusyAddress(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()
	svc := newTestServices(t, server)
	ms, err := serveMetrics("127.0.0.1:0", svc.Registry, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer func() { _ = ms.shutdown() }()

	_, err = serveMetrics(ms.addr, svc.Registry, zaptest.NewLogger(t))
	require.Error(t, err)
}
