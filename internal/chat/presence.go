package chat

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/anugrahsoft/chatstream/internal/metrics"
	"github.com/anugrahsoft/chatstream/internal/store"
)

// Tracker records user activity. Implementations are fire-and-forget:
// RecordActivity must not block the surrounding request and never surfaces
// errors to the caller.
type Tracker interface {
	RecordActivity(ctx context.Context, userID int64)
}

// PresenceCache is an optional hot cache for recent activity.
type PresenceCache interface {
	MarkActive(ctx context.Context, userID int64, at time.Time) error
}

// StoreTracker writes last-seen timestamps to the SQL store and, when
// configured, mirrors them into Redis. Errors are logged and dropped.
type StoreTracker struct {
	store  store.DataStore
	cache  PresenceCache
	logger zerolog.Logger
}

// NewStoreTracker creates a StoreTracker. cache may be nil.
func NewStoreTracker(st store.DataStore, cache PresenceCache, logger zerolog.Logger) *StoreTracker {
	return &StoreTracker{store: st, cache: cache, logger: logger}
}

// RecordActivity updates the user's last-seen timestamp. The write runs on a
// detached context with its own deadline so a cancelled request cannot abort
// it.
func (t *StoreTracker) RecordActivity(ctx context.Context, userID int64) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()

	now := time.Now().UTC()
	if err := t.store.TouchLastSeen(ctx, userID, now); err != nil {
		metrics.PresenceWriteFailures.Inc()
		t.logger.Warn().Err(err).Int64("user_id", userID).Msg("last-seen update failed")
	}
	if t.cache != nil {
		if err := t.cache.MarkActive(ctx, userID, now); err != nil {
			t.logger.Debug().Err(err).Int64("user_id", userID).Msg("presence cache write failed")
		}
	}
}
