package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/five82/repeater/internal/queries"
	"github.com/five82/repeater/internal/query"
)

const (
	defaultPollInterval = 30 * time.Second
	maxBackoff          = 30 * time.Second
)

// refresher is the part of the cache the poller drives.
type refresher interface {
	Refresh(ctx context.Context, prefixes ...query.Key) error
	Sweep() int
}

// StartPoller launches a background goroutine that re-fetches the due
// review queue at a fixed cadence, backing off while fetches fail. It
// returns immediately; the returned channel closes once the goroutine exits.
func StartPoller(ctx context.Context, cache refresher, interval time.Duration, logger *zap.Logger) <-chan struct{} {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("poller")

	done := make(chan struct{})
	go func() {
		defer close(done)

		failures := 0
		timer := time.NewTimer(interval)
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
			}

			if err := poll(ctx, cache); err != nil {
				if ctx.Err() != nil {
					return
				}
				failures++
				logger.Warn("due cards poll failed", zap.Int("failures", failures), zap.Error(err))
			} else {
				failures = 0
			}
			timer.Reset(calculateBackoff(failures, interval))
		}
	}()
	return done
}

// poll refreshes the due queue if a view is watching it and drops expired
// prefetched entries.
func poll(ctx context.Context, cache refresher) error {
	err := cache.Refresh(ctx, queries.DueCardsKey())
	cache.Sweep()
	return err
}

// calculateBackoff doubles base per consecutive failure, capped at
// maxBackoff. A base above the cap is returned unchanged.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 || base >= maxBackoff {
		return base
	}
	if failures > 30 {
		return maxBackoff
	}
	backoff := base << failures
	if backoff > maxBackoff || backoff <= 0 {
		return maxBackoff
	}
	return backoff
}
