package query

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Fetch outcomes reported on query_cache_fetches_total.
const (
	outcomeOK        = "ok"
	outcomeError     = "error"
	outcomeDiscarded = "discarded"
)

// Metrics holds Prometheus collectors for a Cache.
//
// Metrics:
//   - query_cache_hits_total: reads served without starting a fetch
//   - query_cache_misses_total: reads that started a fetch
//   - query_cache_fetches_total{entity,outcome}: completed fetches
//   - query_cache_fetch_duration_seconds{entity}: fetch latency
//   - query_cache_entries: live entries
type Metrics struct {
	Hits          prometheus.Counter
	Misses        prometheus.Counter
	Fetches       *prometheus.CounterVec
	FetchDuration *prometheus.HistogramVec
	Entries       prometheus.Gauge
}

// NewMetrics registers cache collectors on reg. Each registry may only
// receive one set.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Hits: factory.NewCounter(prometheus.CounterOpts{
			Name: "query_cache_hits_total",
			Help: "Total number of cache reads served without a fetch",
		}),
		Misses: factory.NewCounter(prometheus.CounterOpts{
			Name: "query_cache_misses_total",
			Help: "Total number of cache reads that started a fetch",
		}),
		Fetches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "query_cache_fetches_total",
			Help: "Total number of completed fetches",
		}, []string{"entity", "outcome"}),
		FetchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "query_cache_fetch_duration_seconds",
			Help:    "Duration of collection fetches in seconds",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
		}, []string{"entity"}),
		Entries: factory.NewGauge(prometheus.GaugeOpts{
			Name: "query_cache_entries",
			Help: "Current number of cached entries",
		}),
	}
}

func (m *Metrics) hit() {
	if m != nil {
		m.Hits.Inc()
	}
}

func (m *Metrics) miss() {
	if m != nil {
		m.Misses.Inc()
	}
}

func (m *Metrics) fetched(entity, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.Fetches.WithLabelValues(entity, outcome).Inc()
	if outcome != outcomeDiscarded {
		m.FetchDuration.WithLabelValues(entity).Observe(seconds)
	}
}

func (m *Metrics) entries(n int) {
	if m != nil {
		m.Entries.Set(float64(n))
	}
}
