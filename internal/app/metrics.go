package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// CacheSummary is the cache activity read back from the metrics registry.
type CacheSummary struct {
	Hits    float64
	Misses  float64
	Entries float64
	// Fetches counts completed fetches by outcome (ok, error, discarded).
	Fetches map[string]float64
}

// HitRatio is hits over all reads, or zero before the first read.
func (s CacheSummary) HitRatio() float64 {
	if total := s.Hits + s.Misses; total > 0 {
		return s.Hits / total
	}
	return 0
}

// CacheSummary gathers the cache collectors from the registry.
func (s *Services) CacheSummary() (CacheSummary, error) {
	families, err := s.Registry.Gather()
	if err != nil {
		return CacheSummary{}, fmt.Errorf("gather metrics: %w", err)
	}
	sum := CacheSummary{Fetches: map[string]float64{}}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			switch mf.GetName() {
			case "query_cache_hits_total":
				sum.Hits += m.GetCounter().GetValue()
			case "query_cache_misses_total":
				sum.Misses += m.GetCounter().GetValue()
			case "query_cache_entries":
				sum.Entries = m.GetGauge().GetValue()
			case "query_cache_fetches_total":
				for _, lp := range m.GetLabel() {
					if lp.GetName() == "outcome" {
						sum.Fetches[lp.GetValue()] += m.GetCounter().GetValue()
					}
				}
			}
		}
	}
	return sum, nil
}

func (s *Services) logCacheSummary() {
	sum, err := s.CacheSummary()
	if err != nil {
		s.Logger.Warn("cache summary unavailable", zap.Error(err))
		return
	}
	s.Logger.Info("cache summary",
		zap.Float64("hits", sum.Hits),
		zap.Float64("misses", sum.Misses),
		zap.Float64("hit_ratio", sum.HitRatio()),
		zap.Float64("fetches_ok", sum.Fetches["ok"]),
		zap.Float64("fetches_error", sum.Fetches["error"]),
		zap.Float64("fetches_discarded", sum.Fetches["discarded"]),
		zap.Float64("entries", sum.Entries),
	)
}

// metricsServer exposes a registry at /metrics.
type metricsServer struct {
	srv  *http.Server
	addr string
	done chan struct{}
}

// serveMetrics starts serving reg on addr. Stop it with shutdown.
func serveMetrics(addr string, reg prometheus.Gatherer, logger *zap.Logger) (*metricsServer, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen metrics: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	ms := &metricsServer{
		srv:  &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		addr: ln.Addr().String(),
		done: make(chan struct{}),
	}
	go func() {
		defer close(ms.done)
		if err := ms.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server stopped", zap.Error(err))
		}
	}()
	logger.Info("metrics listening", zap.String("addr", ms.addr))
	return ms, nil
}

func (ms *metricsServer) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := ms.srv.Shutdown(ctx)
	<-ms.done
	return err
}
