package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"review_insights/internal/domain"
)

// StatsKey is where the latest published stats are mirrored.
const StatsKey = "stats:current"

// MirrorStats writes every published AggregateStats to cache until ctx is done.
// Cache errors are logged and never stop the loop.
func MirrorStats(ctx context.Context, ctrl *RefreshController, cache domain.Cache, ttl time.Duration) error {
	ch, cancel := ctrl.Subscribe()
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case s := <-ch:
			if err := cache.Set(ctx, StatsKey, s, int(ttl.Seconds())); err != nil {
				log.Warn().Err(err).Str("key", StatsKey).Msg("mirror stats failed")
			}
		}
	}
}
