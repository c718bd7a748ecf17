package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	VideosProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "newsletter_videos_processed_total",
		Help: "Обработанные видео по итогу извлечения рецепта",
	}, []string{"status"})

	RecipesExtracted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "newsletter_recipes_extracted_total",
		Help: "Успешно извлечённые рецепты",
	})

	ExtractionCacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "newsletter_extraction_cache_hits_total",
		Help: "Рецепты, взятые из кэша без вызова модели",
	})

	ArchiveWrites = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "newsletter_archive_writes_total",
		Help: "Записи архива выпусков",
	}, []string{"status"})

	EmailsSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "newsletter_emails_total",
		Help: "Отправленные письма по статусу",
	}, []string{"status"})

	RunSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "newsletter_run_seconds",
		Help:    "Длительность полного запуска пайплайна",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1200},
	})

	RunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "newsletter_runs_total",
		Help: "Запуски пайплайна по результату",
	}, []string{"status"})

	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Длительность сетевых запросов",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 20, 30, 60, 120, 300},
	}, []string{"component", "operation", "target", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_request_total",
		Help: "Количество сетевых запросов",
	}, []string{"component", "operation", "target", "status"})

	LLMGenerationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "llm_generation_duration_seconds",
		Help:    "Длительность генерации ответа LLM",
		Buckets: prometheus.DefBuckets,
	}, []string{"model"})

	LLMTokensTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "llm_tokens_total",
		Help: "Количество токенов, использованных LLM",
	}, []string{"model", "type"})
)

// MustRegister регистрирует метрики.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		VideosProcessed,
		RecipesExtracted,
		ExtractionCacheHits,
		ArchiveWrites,
		EmailsSent,
		RunSeconds,
		RunsTotal,
		NetworkRequestDuration,
		NetworkRequestTotal,
		LLMGenerationDuration,
		LLMTokensTotal,
	)
}

// StartServer запускает HTTP сервер с эндпоинтом /metrics.
func StartServer(ctx context.Context, logger zerolog.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	shutdownCtx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-ctx.Done():
		case <-shutdownCtx.Done():
		}
		shutdownTimeout, timeoutCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer timeoutCancel()
		if err := srv.Shutdown(shutdownTimeout); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: graceful shutdown failed")
		}
	}()

	go func() {
		logger.Info().Str("addr", addr).Msg("metrics: server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: server stopped")
		}
		cancel()
	}()
}

// ObserveNetworkRequest записывает длительность и статус сетевого запроса.
func ObserveNetworkRequest(component, operation, target string, start time.Time, err error) {
	if component == "" {
		component = "unknown"
	}
	if operation == "" {
		operation = "unknown"
	}
	if target == "" {
		target = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	duration := time.Since(start).Seconds()
	NetworkRequestDuration.WithLabelValues(component, operation, target, status).Observe(duration)
	NetworkRequestTotal.WithLabelValues(component, operation, target, status).Inc()
}

// ObserveLLMGeneration записывает длительность и токены генерации LLM.
func ObserveLLMGeneration(model string, duration time.Duration, promptTokens, completionTokens, totalTokens int) {
	if model == "" {
		model = "unknown"
	}
	LLMGenerationDuration.WithLabelValues(model).Observe(duration.Seconds())
	if promptTokens > 0 {
		LLMTokensTotal.WithLabelValues(model, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		LLMTokensTotal.WithLabelValues(model, "completion").Add(float64(completionTokens))
	}
	if totalTokens <= 0 {
		totalTokens = promptTokens + completionTokens
	}
	if totalTokens > 0 {
		LLMTokensTotal.WithLabelValues(model, "total").Add(float64(totalTokens))
	}
}

// ObserveVideo фиксирует результат обработки одного видео.
func ObserveVideo(extracted bool) {
	if extracted {
		VideosProcessed.WithLabelValues("extracted").Inc()
		RecipesExtracted.Inc()
		return
	}
	VideosProcessed.WithLabelValues("skipped").Inc()
}

// ObserveEmail фиксирует результат отправки одного письма.
func ObserveEmail(sent bool) {
	if sent {
		EmailsSent.WithLabelValues("sent").Inc()
		return
	}
	EmailsSent.WithLabelValues("failed").Inc()
}

// ObserveArchive фиксирует запись архива.
func ObserveArchive(err error) {
	if err != nil {
		ArchiveWrites.WithLabelValues("error").Inc()
		return
	}
	ArchiveWrites.WithLabelValues("success").Inc()
}

// ObserveRun фиксирует длительность и итог запуска.
func ObserveRun(duration time.Duration, status string) {
	RunSeconds.Observe(duration.Seconds())
	RunsTotal.WithLabelValues(status).Inc()
}
