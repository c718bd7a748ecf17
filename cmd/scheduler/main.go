package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"recipe-digest/internal/app"
	"recipe-digest/internal/infra/config"
	applog "recipe-digest/internal/infra/log"
	"recipe-digest/internal/infra/metrics"
	"recipe-digest/internal/usecase/schedule"
)

func main() {
	cfg := config.Load()
	logger := applog.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.StartServer(ctx, logger.With().Str("component", "metrics").Logger(), cfg.MetricsAddr)

	infra, err := app.OpenInfra(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("scheduler: нет подключения к хранилищам")
	}
	defer infra.Close()

	runQueue, closeQueue, err := app.NewRunQueue(cfg, infra)
	if err != nil {
		logger.Fatal().Err(err).Msg("scheduler: не удалось инициализировать очередь")
	}
	defer closeQueue()

	scheduler, err := schedule.NewService(runQueue, infra.Cache("recipe-digest"), cfg.Schedule.RunAt, cfg.TZ)
	if err != nil {
		logger.Fatal().Err(err).Msg("scheduler: некорректное расписание")
	}
	logger.Info().
		Str("run_at", cfg.Schedule.RunAt).
		Str("tz", cfg.TZ).
		Time("next_run", scheduler.NextRun(time.Now())).
		Msg("scheduler: старт")

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		enqueued, err := scheduler.Tick(ctx, time.Now())
		if err != nil {
			logger.Error().Err(err).Msg("scheduler: не удалось поставить запуск")
		} else if enqueued {
			logger.Info().Time("next_run", scheduler.NextRun(time.Now())).Msg("scheduler: запуск поставлен в очередь")
		}
		select {
		case <-ctx.Done():
			logger.Info().Msg("scheduler: остановлен")
			return
		case <-ticker.C:
		}
	}
}
