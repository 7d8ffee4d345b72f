package session

import (
	"context"
	"log/slog"
	"time"
)

// SweepCallback is called for every session removed by the sweeper.
type SweepCallback func(ctx context.Context, userID string)

// StartSweeper runs a background goroutine that periodically removes
// abandoned sessions. A non-positive ttl disables sweeping entirely.
func StartSweeper(ctx context.Context, store *Store, ttl, interval time.Duration, onSweep SweepCallback) {
	if ttl <= 0 {
		slog.Info("Session sweeper disabled")
		return
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("Session sweeper started", "interval", interval, "ttl", ttl)

		for {
			select {
			case now := <-ticker.C:
				sweepOnce(ctx, store, ttl, now, onSweep)
			case <-ctx.Done():
				slog.Info("Session sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

func sweepOnce(ctx context.Context, store *Store, ttl time.Duration, now time.Time, onSweep SweepCallback) {
	removed := store.Sweep(ttl, now)
	for _, sess := range removed {
		slog.Info("Session expired",
			"user_id", sess.UserID,
			"session_id", sess.ID,
			"step", sess.Step,
			"age", now.Sub(sess.CreatedAt))
		if onSweep != nil {
			onSweep(ctx, sess.UserID)
		}
	}
}
