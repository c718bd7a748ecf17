package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"recipe-digest/internal/app"
	"recipe-digest/internal/infra/config"
	applog "recipe-digest/internal/infra/log"
	"recipe-digest/internal/infra/metrics"
	"recipe-digest/internal/usecase/pipeline"
)

func main() {
	cfg := config.Load()
	logger := applog.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	infra, err := app.OpenInfra(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: нет подключения к хранилищам")
	}
	defer infra.Close()

	runQueue, closeQueue, err := app.NewRunQueue(cfg, infra)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: не удалось инициализировать очередь")
	}
	defer closeQueue()

	service, err := app.NewPipeline(ctx, cfg, infra, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: не удалось собрать пайплайн")
	}
	reporter, err := app.NewReporter(cfg)
	if err != nil {
		logger.Warn().Err(err).Msg("worker: отчёты в Telegram отключены")
	}
	worker := pipeline.NewWorker(runQueue, service, reporter, logger.With().Str("component", "worker").Logger())

	metricsSrv := &http.Server{
		Addr:         cfg.MetricsAddr,
		Handler:      promhttp.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", cfg.MetricsAddr).Msg("worker: метрики доступны")
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return metricsSrv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		logger.Info().Msg("worker: запуск обработки очереди")
		if err := worker.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("worker: остановлен с ошибкой")
		return
	}
	logger.Info().Msg("worker: остановлен")
}
