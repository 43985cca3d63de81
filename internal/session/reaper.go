package session

import (
	"context"
	"log/slog"
	"time"
)

// Reaper periodically removes sessions that have been idle past the
// inactivity window.
type Reaper struct {
	store      *PostgresStore
	interval   time.Duration
	idleWindow time.Duration
	logger     *slog.Logger
}

func NewReaper(store *PostgresStore, interval, idleWindow time.Duration, logger *slog.Logger) *Reaper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if idleWindow <= 0 {
		idleWindow = time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reaper{store: store, interval: interval, idleWindow: idleWindow, logger: logger}
}

// Run blocks until the context is cancelled, reaping on every tick.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := r.store.ReapIdle(ctx, r.idleWindow)
			if err != nil {
				r.logger.Error("session reap failed", "error", err)
				continue
			}
			if n > 0 {
				r.logger.Info("reaped idle sessions", "count", n)
			}
		}
	}
}
