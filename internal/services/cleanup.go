package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// CleanupService periodically removes ticker history rows past the retention
// window. It runs on every instance; the deletes are idempotent so
// concurrent runs only race to remove the same rows.
type CleanupService struct {
	tickers   TickerStore
	retention time.Duration
	interval  time.Duration
	log       *logrus.Entry
}

// NewCleanupService creates a new cleanup service.
func NewCleanupService(tickers TickerStore, retention, interval time.Duration) *CleanupService {
	return &CleanupService{
		tickers:   tickers,
		retention: retention,
		interval:  interval,
		log:       logrus.WithField("component", "cleanup"),
	}
}

// Run executes the periodic cleanup loop until the context is cancelled.
func (c *CleanupService) Run(ctx context.Context) {
	c.log.WithFields(logrus.Fields{
		"retention": c.retention.String(),
		"interval":  c.interval.String(),
	}).Info("Cleanup service started")

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.log.Info("Cleanup service stopping")
			return
		case <-ticker.C:
			if err := c.RunCleanup(ctx); err != nil {
				c.log.WithError(err).Error("Cleanup failed")
			}
		}
	}
}

// RunCleanup performs one cleanup pass.
func (c *CleanupService) RunCleanup(ctx context.Context) error {
	cutoff := time.Now().Add(-c.retention)
	removed, err := c.tickers.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return err
	}
	if removed > 0 {
		c.log.WithField("rows", removed).Info("Removed old ticker history")
	}
	return nil
}
