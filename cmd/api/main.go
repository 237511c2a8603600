package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	server "review_insights/internal/adapters/http_server"
	"review_insights/internal/adapters/observability"
	redisad "review_insights/internal/adapters/redis"
	"review_insights/internal/app"
	"review_insights/internal/shared"
)

func main() {
	cfg, err := shared.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	src, closeSrc, err := shared.OpenSource(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("source", cfg.ReviewSource).Msg("review source")
	}
	defer closeSrc()

	ctrl := app.NewRefreshController(app.NewReviewCollection())
	ing := app.NewIngestionService(src, ctrl)
	q := app.NewQueryService(ctrl)

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	srv := server.New(log.Logger, 15*time.Second)
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Q: q, Ing: ing})
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return ctrl.Run(gctx) })

	// initial fetch; a failure leaves the empty summary published
	g.Go(func() error {
		_, _ = ing.Refresh(gctx)
		return nil
	})

	if cfg.RefreshSchedule != "" {
		sched, err := app.NewScheduler(cfg.RefreshSchedule)
		if err != nil {
			log.Fatal().Err(err).Msg("refresh schedule")
		}
		log.Info().Str("cron", cfg.RefreshSchedule).Msg("scheduled refresh enabled")
		g.Go(func() error { return sched.Run(gctx, app.RefreshJob(ing)) })
	} else {
		log.Info().Msg("scheduled refresh disabled (REFRESH_SCHEDULE empty)")
	}

	if cfg.MirrorEnabled {
		cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB, "reviews:")
		defer cache.Close()
		pingCtx, cancelPing := context.WithTimeout(ctx, 3*time.Second)
		if err := cache.Ping(pingCtx); err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable; mirror writes will fail until it is up")
		} else {
			log.Info().Str("addr", cfg.RedisAddr).Msg("redis connection ok")
		}
		cancelPing()
		g.Go(func() error { return app.MirrorStats(gctx, ctrl, cache, cfg.CacheTTL) })
	}

	g.Go(func() error {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("api stopped")
	}
	log.Info().Msg("api stopped")
}
