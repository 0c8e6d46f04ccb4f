// Package worker holds the binary's background loops. None of them touch
// ledger entries.
package worker

import (
	"context"
	"log/slog"
	"time"
)

type expiredPurger interface {
	CleanExpired(ctx context.Context) (int64, error)
}

// IdempotencyCleaner periodically deletes expired idempotency cache rows.
type IdempotencyCleaner struct {
	store    expiredPurger
	logger   *slog.Logger
	interval time.Duration
}

func NewIdempotencyCleaner(store expiredPurger, logger *slog.Logger, interval time.Duration) *IdempotencyCleaner {
	return &IdempotencyCleaner{
		store:    store,
		logger:   logger,
		interval: interval,
	}
}

// Start blocks until ctx is cancelled.
func (c *IdempotencyCleaner) Start(ctx context.Context) {
	c.logger.Info("idempotency cleaner started", "interval", c.interval)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("idempotency cleaner stopped")
			return
		case <-ticker.C:
			c.sweep(ctx)
		}
	}
}

func (c *IdempotencyCleaner) sweep(ctx context.Context) {
	n, err := c.store.CleanExpired(ctx)
	if err != nil {
		c.logger.Error("idempotency cleanup failed", "error", err)
		return
	}
	if n > 0 {
		c.logger.Info("expired idempotency keys removed", "count", n)
	}
}
