package main

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"review_insights/internal/adapters/observability"
	redisad "review_insights/internal/adapters/redis"
	"review_insights/internal/app"
	"review_insights/internal/domain"
	"review_insights/internal/shared"
)

// One-shot: fetch once, aggregate, print the summary as JSON and mirror it.
func main() {
	cfg, err := shared.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 2*cfg.FetchTimeout)
	defer cancel()

	src, closeSrc, err := shared.OpenSource(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("review source")
	}
	defer closeSrc()

	log.Info().Str("source", src.Name()).Msg("ingestor starting")

	ctrl := app.NewRefreshController(nil)
	loopCtx, stopLoop := context.WithCancel(ctx)
	defer stopLoop()
	go func() { _ = ctrl.Run(loopCtx) }()

	res, err := app.NewIngestionService(src, ctrl).Refresh(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("ingestion failed")
	}
	stats := ctrl.Current().Stats

	if cfg.MirrorEnabled {
		cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB, "reviews:")
		defer cache.Close()

		var prev domain.AggregateStats
		if ok, err := cache.Get(ctx, app.StatsKey, &prev); err != nil {
			log.Warn().Err(err).Msg("read mirrored stats failed")
		} else if ok {
			log.Info().
				Int("previous_total", prev.TotalReviews).
				Int("delta", stats.TotalReviews-prev.TotalReviews).
				Float64("previous_average", prev.AverageRating).
				Msg("compared with mirrored stats")
		}
		if err := cache.Set(ctx, app.StatsKey, stats, int(cfg.CacheTTL/time.Second)); err != nil {
			log.Warn().Err(err).Msg("mirror stats failed")
		}
	}

	log.Info().
		Int("fetched", res.Fetched).
		Int("rejected", res.Rejected).
		Int("total", stats.TotalReviews).
		Float64("average", stats.AverageRating).
		Msg("ingestion completed")

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(stats); err != nil {
		log.Fatal().Err(err).Msg("write stats")
	}
}
