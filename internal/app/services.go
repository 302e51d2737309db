package app

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/five82/repeater/internal/mutation"
	"github.com/five82/repeater/internal/query"
	"github.com/five82/repeater/internal/repeater"
	"github.com/five82/repeater/internal/shortcuts"
	"github.com/five82/repeater/internal/state"
)

// Services are the components shared by every view and subcommand.
type Services struct {
	API       repeater.API
	Cache     *query.Cache
	Health    *state.Store
	Mutations *mutation.Coordinator
	Shortcuts *shortcuts.Dispatcher
	Registry  *prometheus.Registry
	Logger    *zap.Logger
}

// ServiceOptions tune NewServices.
type ServiceOptions struct {
	FetchTimeout time.Duration
	Logger       *zap.Logger
}

// NewServices builds the cache, coordinator and dispatcher on top of api.
// Every applied fetch is reported to the health store.
func NewServices(api repeater.API, opts ServiceOptions) *Services {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	registry := prometheus.NewRegistry()
	health := &state.Store{}
	cache := query.New(query.Options{
		Timeout: opts.FetchTimeout,
		Logger:  logger,
		Metrics: query.NewMetrics(registry),
		OnFetch: health.Record,
	})

	return &Services{
		API:       api,
		Cache:     cache,
		Health:    health,
		Mutations: mutation.NewCoordinator(api, cache, logger),
		Shortcuts: shortcuts.NewDispatcher(shortcuts.DefaultTable()),
		Registry:  registry,
		Logger:    logger,
	}
}

// Close stops outstanding fetches and logs the cache activity.
func (s *Services) Close() {
	s.Cache.Close()
	s.logCacheSummary()
}
