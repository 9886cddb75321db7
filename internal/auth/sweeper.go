package auth

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper periodically purges expired sessions from stores that keep them.
type Sweeper struct {
	purger   ExpiredPurger
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// NewSweeper creates a sweeper that runs every interval.
func NewSweeper(purger ExpiredPurger, interval time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{purger: purger, interval: interval, logger: logger, now: time.Now}
}

// Run purges on every tick until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	removed, err := s.purger.PurgeExpired(ctx, s.now())
	if err != nil {
		s.logger.Warn("session sweep failed", "error", err)
		return
	}
	if removed > 0 {
		s.logger.Debug("expired sessions purged", "count", removed)
	}
}
