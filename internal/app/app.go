package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/five82/repeater/internal/config"
	"github.com/five82/repeater/internal/logging"
	"github.com/five82/repeater/internal/prefs"
	"github.com/five82/repeater/internal/repeater"
	"github.com/five82/repeater/internal/session"
	"github.com/five82/repeater/internal/ui"
)

// Options configure the Repeater application.
type Options struct {
	ConfigPath string
	PrefsPath  string        // empty uses default ~/.config/repeater/prefs.toml
	APIURL     string        // overrides api_url from config
	PollEvery  time.Duration // zero uses poll_interval from config
}

// Runtime is a bootstrapped client: config, logger, persisted session and
// the shared services. Close releases all of them.
type Runtime struct {
	Config  config.Config
	Logger  *zap.Logger
	Session *session.Store
	Client  *repeater.Client
	*Services

	closers []func() error
}

// Bootstrap loads configuration, opens the log file and session database,
// and builds the API client and services.
func Bootstrap(ctx context.Context, opts Options) (*Runtime, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if opts.APIURL != "" {
		cfg.APIURL = opts.APIURL
	}
	if opts.PollEvery > 0 {
		cfg.PollInterval = opts.PollEvery
	}

	rt := &Runtime{Config: cfg}

	logger, closeLog, err := logging.New(logging.Options{Path: cfg.LogFile, Level: cfg.LogLevel})
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}
	rt.Logger = logger
	rt.closers = append(rt.closers, closeLog)

	store, err := session.Open(cfg.SessionPath())
	if err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("open session: %w", err)
	}
	rt.Session = store
	rt.closers = append(rt.closers, store.Close)

	client, err := repeater.NewClient(ctx, repeater.Options{
		BaseURL:   cfg.APIURL,
		Timeout:   cfg.RequestTimeout,
		RateLimit: cfg.RateLimit,
		RateBurst: cfg.RateBurst,
		Tokens:    store,
		Logger:    logger,
	})
	if err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("init api client: %w", err)
	}
	rt.Client = client

	rt.Services = NewServices(client, ServiceOptions{FetchTimeout: cfg.RequestTimeout, Logger: logger})
	rt.closers = append(rt.closers, func() error {
		rt.Services.Close()
		return nil
	})

	logger.Info("repeater started",
		zap.String("api_url", client.BaseURL()),
		zap.Bool("authenticated", client.Authenticated()),
	)
	return rt, nil
}

// Close releases resources in reverse order of acquisition.
func (r *Runtime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}

// SignedIn reports whether the persisted session can still authenticate.
func (r *Runtime) SignedIn(ctx context.Context) bool {
	ok, err := r.Session.IsAuthenticated(ctx)
	if err != nil {
		r.Logger.Warn("read session failed", zap.Error(err))
		return r.Client.Authenticated()
	}
	return ok
}

// Run boots the Repeater TUI until the context is cancelled or the user quits.
func Run(ctx context.Context, opts Options) error {
	rt, err := Bootstrap(ctx, opts)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	userPrefs, _ := prefs.Load(opts.PrefsPath)
	if user, ok, err := rt.Session.User(ctx); err == nil && ok {
		rt.Health.SetUser(&user)
	}

	if rt.Config.MetricsAddr != "" {
		ms, err := serveMetrics(rt.Config.MetricsAddr, rt.Registry, rt.Logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := ms.shutdown(); err != nil {
				rt.Logger.Warn("metrics shutdown failed", zap.Error(err))
			}
		}()
	}

	pollCtx, stopPoller := context.WithCancel(ctx)
	done := StartPoller(pollCtx, rt.Cache, rt.Config.PollInterval, rt.Logger)
	defer func() {
		stopPoller()
		<-done
	}()

	return ui.Run(ui.Options{
		Context:   ctx,
		API:       rt.Client,
		Cache:     rt.Cache,
		Mutations: rt.Mutations,
		Shortcuts: rt.Shortcuts,
		Health:    rt.Health,
		Logger:    rt.Logger,
		Prefs:     userPrefs,
		PrefsPath: opts.PrefsPath,
		ExportDir: rt.Config.ExportDir(),
		SignedIn:  rt.SignedIn(ctx),
	})
}
