package drafts

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Cleaner periodically purges snapshots older than the configured ttl.
type Cleaner struct {
	cron   *cron.Cron
	purger Purger
	ttl    time.Duration
	spec   string
	logger *slog.Logger
	now    func() time.Time
}

// NewCleaner returns a Cleaner running on spec, e.g. "@every 1h".
func NewCleaner(purger Purger, ttl time.Duration, spec string, logger *slog.Logger) *Cleaner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cleaner{
		cron:   cron.New(),
		purger: purger,
		ttl:    ttl,
		spec:   spec,
		logger: logger,
		now:    time.Now,
	}
}

// Start registers the purge job and starts the scheduler.
func (c *Cleaner) Start(ctx context.Context) error {
	if _, err := c.cron.AddFunc(c.spec, func() { c.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}
	c.cron.Start()
	c.logger.Info("draft cleanup scheduled", slog.String("spec", c.spec), slog.Duration("ttl", c.ttl))
	return nil
}

// Stop halts the scheduler and waits for a running purge to finish.
func (c *Cleaner) Stop() {
	<-c.cron.Stop().Done()
}

// RunOnce purges now.
func (c *Cleaner) RunOnce(ctx context.Context) {
	n, err := c.purger.Purge(ctx, c.now().Add(-c.ttl))
	if err != nil {
		c.logger.Error("purge drafts failed", slog.Any("error", err))
		return
	}
	if n > 0 {
		c.logger.Info("purged stale drafts", slog.Int64("count", n))
	}
}
