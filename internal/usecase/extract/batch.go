package extract

import (
	"context"

	"github.com/rs/zerolog"

	"recipe-digest/internal/domain"
	"recipe-digest/internal/infra/metrics"
)

// Extractor извлекает рецепт из одного видео.
type Extractor interface {
	Extract(ctx context.Context, video domain.VideoReference) (domain.RecipeRecord, bool)
}

// Processor прогоняет список видео через Extractor по одному.
type Processor struct {
	extractor Extractor
	log       zerolog.Logger
}

// NewProcessor создаёт обработчик пачки.
func NewProcessor(extractor Extractor, logger zerolog.Logger) *Processor {
	return &Processor{extractor: extractor, log: logger}
}

// Process возвращает успешно извлечённые рецепты в порядке исходных видео.
// Пустой результат ошибкой не считается.
func (p *Processor) Process(ctx context.Context, videos []domain.VideoReference) domain.RecipeBatch {
	batch := make(domain.RecipeBatch, 0, len(videos))
	failed := 0
	for i, video := range videos {
		rec, ok := p.extractor.Extract(ctx, video)
		metrics.ObserveVideo(ok)
		event := p.log.Info()
		if !ok {
			failed++
			event = p.log.Warn()
		}
		event.Int("position", i+1).Int("total", len(videos)).Str("video_id", video.ID).Bool("extracted", ok).
			Msg("batch: видео обработано")
		if ok {
			batch = append(batch, rec)
		}
	}
	p.log.Info().Int("extracted", len(batch)).Int("failed", failed).Msg("batch: обработка завершена")
	return batch
}
