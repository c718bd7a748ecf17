package main

import (
	"context"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"recipe-digest/internal/app"
	"recipe-digest/internal/infra/config"
	httpinfra "recipe-digest/internal/infra/http"
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

	infra, err := app.OpenInfra(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: нет подключения к хранилищам")
	}
	defer infra.Close()

	var runs httpinfra.RunEnqueuer
	runQueue, closeQueue, err := app.NewRunQueue(cfg, infra)
	if err != nil {
		logger.Warn().Err(err).Msg("api: очередь недоступна, ручной запуск отключён")
	} else {
		defer closeQueue()
		scheduler, err := schedule.NewService(runQueue, nil, cfg.Schedule.RunAt, cfg.TZ)
		if err != nil {
			logger.Fatal().Err(err).Msg("api: некорректное расписание")
		}
		runs = scheduler
	}

	server := httpinfra.NewServer(logger.With().Str("component", "http").Logger())
	httpinfra.NewAPI(app.Archive(cfg), app.Preview(cfg), runs, logger.With().Str("component", "api").Logger()).Mount(server.Router)

	go func() {
		if err := server.Start(":" + strconv.Itoa(cfg.Port)); err != nil {
			logger.Error().Err(err).Msg("api: сервер остановлен")
			stop()
		}
	}()
	<-ctx.Done()
	logger.Info().Msg("api: остановка")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
}
