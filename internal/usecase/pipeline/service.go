package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"recipe-digest/internal/domain"
	"recipe-digest/internal/infra/metrics"
	"recipe-digest/internal/usecase/newsletter"
)

// ErrNoRecipes возвращается, если ни из одного видео не удалось извлечь рецепт.
var ErrNoRecipes = errors.New("не извлечено ни одного рецепта")

// BatchProcessor превращает список видео в пачку рецептов.
type BatchProcessor interface {
	Process(ctx context.Context, videos []domain.VideoReference) domain.RecipeBatch
}

// Distributor рассылает готовый выпуск.
type Distributor interface {
	Distribute(ctx context.Context, n domain.Newsletter, subscribers []domain.Subscriber) (domain.DeliverySummary, error)
}

// Service собирает и рассылает выпуск целиком.
type Service struct {
	videos      domain.VideoSource
	processor   BatchProcessor
	archiver    domain.Archiver
	preview     domain.PreviewWriter
	subscribers domain.SubscriberSource
	distributor Distributor
	mirror      domain.ArchiveMirror
	analytics   domain.BusinessMetricRepo
	log         zerolog.Logger
}

// NewService создаёт сервис запуска.
func NewService(videos domain.VideoSource, processor BatchProcessor, archiver domain.Archiver, preview domain.PreviewWriter, subscribers domain.SubscriberSource, distributor Distributor, logger zerolog.Logger) *Service {
	return &Service{videos: videos, processor: processor, archiver: archiver, preview: preview, subscribers: subscribers, distributor: distributor, log: logger}
}

// WithMirror дублирует архив во внешнее хранилище.
func (s *Service) WithMirror(mirror domain.ArchiveMirror) *Service {
	s.mirror = mirror
	return s
}

// WithAnalytics включает запись бизнесовых событий.
func (s *Service) WithAnalytics(repo domain.BusinessMetricRepo) *Service {
	s.analytics = repo
	return s
}

// Run выполняет один запуск: видео, извлечение, архив, рендер, превью и рассылку.
// При нуле рецептов возвращает ErrNoRecipes и ничего не пишет.
func (s *Service) Run(ctx context.Context, now time.Time) (report domain.RunReport, err error) {
	start := time.Now()
	report = domain.RunReport{RunID: uuid.NewString(), Date: now}
	logger := s.log.With().Str("run_id", report.RunID).Logger()
	defer func() {
		report.Duration = time.Since(start)
		status := "success"
		if err != nil {
			status = "failed"
			s.record(ctx, domain.BusinessMetricEventRunFailed, report, map[string]any{"error": err.Error()})
		}
		metrics.ObserveRun(report.Duration, status)
	}()

	videos, err := s.videos.Videos(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("pipeline: источник видео недоступен")
		return report, fmt.Errorf("получение видео: %w", err)
	}
	report.VideosTotal = len(videos)
	logger.Info().Int("videos", len(videos)).Msg("pipeline: видео получены")

	batch := s.processor.Process(ctx, videos)
	report.RecipesExtracted = len(batch)
	if len(batch) == 0 {
		logger.Error().Int("videos", len(videos)).Msg("pipeline: рецепты не найдены, запуск остановлен")
		return report, ErrNoRecipes
	}
	s.record(ctx, domain.BusinessMetricEventRecipesExtracted, report, map[string]any{
		"videos":  report.VideosTotal,
		"recipes": report.RecipesExtracted,
	})

	if path, archErr := s.archiver.Archive(ctx, batch, now); archErr != nil {
		report.ArchiveErr = archErr
		logger.Error().Err(archErr).Msg("pipeline: архив не записан, продолжаем без него")
	} else {
		report.ArchivePath = path
		logger.Info().Str("path", path).Msg("pipeline: архив записан")
	}
	if s.mirror != nil {
		if mirrorErr := s.mirror.SaveArchive(ctx, now, batch); mirrorErr != nil {
			logger.Warn().Err(mirrorErr).Msg("pipeline: копия архива не сохранена")
		}
	}

	issue, textErr := newsletter.Build(batch, now)
	if textErr != nil {
		logger.Warn().Err(textErr).Msg("pipeline: текстовая версия не собрана, отправляем только HTML")
	}
	if path, prevErr := s.preview.WritePreview(ctx, issue.HTML); prevErr != nil {
		logger.Warn().Err(prevErr).Msg("pipeline: превью не записано")
	} else {
		report.PreviewPath = path
		logger.Info().Str("path", path).Msg("pipeline: превью записано")
	}

	subs, subErr := s.subscribers.Subscribers(ctx)
	if subErr != nil {
		logger.Warn().Err(subErr).Msg("pipeline: список подписчиков не прочитан")
	}
	if len(subs) == 0 {
		report.NoSubscribers = true
		logger.Warn().Msg("pipeline: нет подписчиков, выпуск только в превью")
		return report, nil
	}

	summary, err := s.distributor.Distribute(ctx, issue, subs)
	report.Delivery = summary
	if err != nil {
		logger.Error().Err(err).Msg("pipeline: рассылка прервана")
		return report, fmt.Errorf("рассылка: %w", err)
	}
	s.record(ctx, domain.BusinessMetricEventNewsletterDelivered, report, map[string]any{
		"sent":   summary.SentCount,
		"failed": len(summary.FailedEmails),
	})
	logger.Info().
		Int("recipes", report.RecipesExtracted).
		Int("sent", summary.SentCount).
		Int("failed", len(summary.FailedEmails)).
		Msg("pipeline: запуск завершён")
	return report, nil
}

// RenderArchived перерисовывает сохранённый выпуск в превью без обращения к модели.
func RenderArchived(ctx context.Context, reader domain.ArchiveReader, preview domain.PreviewWriter, day time.Time) (string, error) {
	batch, err := reader.Load(ctx, day)
	if err != nil {
		return "", fmt.Errorf("загрузка архива: %w", err)
	}
	if len(batch) == 0 {
		return "", ErrNoRecipes
	}
	path, err := preview.WritePreview(ctx, newsletter.Render(batch, day))
	if err != nil {
		return "", fmt.Errorf("запись превью: %w", err)
	}
	return path, nil
}

func (s *Service) record(ctx context.Context, event string, report domain.RunReport, metadata map[string]any) {
	if s.analytics == nil {
		return
	}
	metric := domain.BusinessMetric{Event: event, RunID: report.RunID, Metadata: metadata, OccurredAt: time.Now().UTC()}
	if err := s.analytics.RecordBusinessMetric(ctx, metric); err != nil {
		s.log.Warn().Err(err).Str("event", event).Msg("pipeline: бизнес-метрика не сохранена")
	}
}
