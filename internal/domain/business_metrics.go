package domain

import (
	"context"
	"time"
)

// BusinessMetric описывает бизнесовое событие, которое сохраняется для последующего анализа.
type BusinessMetric struct {
	Event      string
	RunID      string
	Metadata   map[string]any
	OccurredAt time.Time
}

const (
	// BusinessMetricEventRecipesExtracted фиксирует успешное извлечение рецептов за запуск.
	BusinessMetricEventRecipesExtracted = "recipes_extracted"
	// BusinessMetricEventNewsletterDelivered фиксирует завершение рассылки выпуска.
	BusinessMetricEventNewsletterDelivered = "newsletter_delivered"
	// BusinessMetricEventRunFailed фиксирует запуск, завершившийся фатальной ошибкой.
	BusinessMetricEventRunFailed = "run_failed"
)

// BusinessMetricRepo сохраняет бизнесовые события.
type BusinessMetricRepo interface {
	RecordBusinessMetric(ctx context.Context, metric BusinessMetric) error
}
