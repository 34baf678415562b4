package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	hlog "github.com/cloudwego/hertz/pkg/common/hlog"
	hertzzerolog "github.com/hertz-contrib/logger/zerolog"
	"github.com/spf13/pflag"

	"github.com/manasdutta04/matchwise/internal/api/handler"
	"github.com/manasdutta04/matchwise/internal/api/router"
	"github.com/manasdutta04/matchwise/internal/augment"
	"github.com/manasdutta04/matchwise/internal/config"
	"github.com/manasdutta04/matchwise/internal/logger"
	"github.com/manasdutta04/matchwise/internal/match"
	"github.com/manasdutta04/matchwise/internal/scheduler"
	"github.com/manasdutta04/matchwise/internal/screening"
	"github.com/manasdutta04/matchwise/internal/storage"
)

func main() {
	var configPath string
	pflag.StringVarP(&configPath, "config", "c", "config.yaml", "path to config file")
	pflag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", configPath).Msg("loading config")
	}

	logger.Init(logger.Config{
		Level:        cfg.Logger.Level,
		Format:       cfg.Logger.Format,
		TimeFormat:   cfg.Logger.TimeFormat,
		ReportCaller: cfg.Logger.ReportCaller,
	})
	hlog.SetLogger(hertzzerolog.From(logger.Logger))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := storage.NewStorage(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("initializing storage")
	}
	defer store.Close()

	var aug augment.Augmenter
	aug, err = augment.NewLLMAugmenter(cfg.Augmenter)
	if err != nil {
		logger.Warn().Err(err).Msg("llm augmenter unavailable, using deterministic pipeline only")
		aug = augment.Disabled{}
	}

	sched, err := scheduler.NewScheduler(cfg.Scheduler, scheduler.WithAugmenter(aug))
	if err != nil {
		logger.Fatal().Err(err).Msg("initializing scheduler")
	}

	options := []screening.Option{screening.WithAugmenter(aug)}
	if store.Redis != nil {
		options = append(options, screening.WithDeduper(store.Redis))
	}
	if store.MinIO != nil {
		options = append(options, screening.WithArchiver(store.MinIO))
	}
	if store.RabbitMQ != nil {
		options = append(options, screening.WithPublisher(store.RabbitMQ))
	}

	svc, err := screening.NewService(store.MySQL, match.NewScorer(cfg.Matching), sched, options...)
	if err != nil {
		logger.Fatal().Err(err).Msg("initializing screening service")
	}

	if store.RabbitMQ != nil {
		go func() {
			queue := store.RabbitMQ.MatchNeededQueue()
			if queue == "" {
				return
			}
			if err := store.RabbitMQ.Consume(ctx, queue, svc.HandleMatchNeeded); err != nil && ctx.Err() == nil {
				logger.Error().Err(err).Str("queue", queue).Msg("match-needed consumer stopped")
			}
		}()
	}

	h := server.New(
		server.WithHostPorts(cfg.Server.Address),
		server.WithHandleMethodNotAllowed(true),
	)
	h.Use(func(c context.Context, ctx *app.RequestContext) {
		start := time.Now()
		ctx.Next(c)
		logger.Info().
			Str("method", string(ctx.Method())).
			Str("path", string(ctx.Path())).
			Int("status", ctx.Response.StatusCode()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})

	router.RegisterRoutes(h, handler.NewScreeningHandler(svc))
	logger.Info().Str("address", cfg.Server.Address).Msg("http server starting")

	go func() {
		if err := h.Run(); err != nil {
			logger.Fatal().Err(err).Msg("http server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := h.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown")
	}
}
