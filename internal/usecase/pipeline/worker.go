package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"recipe-digest/internal/domain"
)

const maxDeliveryAttempts = 3

// Runner выполняет один запуск пайплайна.
type Runner interface {
	Run(ctx context.Context, now time.Time) (domain.RunReport, error)
}

type jobOutcome int

const (
	jobOutcomeCompleted jobOutcome = iota
	jobOutcomeRetry
)

// Worker читает задачи из очереди и запускает по ним сборку выпуска.
type Worker struct {
	queue    domain.RunQueue
	runner   Runner
	reporter domain.RunReporter
	log      zerolog.Logger

	attempts map[string]int
	backoff  time.Duration
}

// NewWorker создаёт обработчик очереди. reporter может быть nil.
func NewWorker(queue domain.RunQueue, runner Runner, reporter domain.RunReporter, logger zerolog.Logger) *Worker {
	return &Worker{
		queue:    queue,
		runner:   runner,
		reporter: reporter,
		log:      logger,
		attempts: make(map[string]int),
		backoff:  time.Second,
	}
}

// Run обрабатывает очередь до отмены контекста.
func (w *Worker) Run(ctx context.Context) error {
	for {
		job, ack, err := w.queue.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.log.Error().Err(err).Msg("worker: ошибка чтения очереди")
			if !sleepCtx(ctx, w.backoff) {
				return ctx.Err()
			}
			continue
		}
		w.handle(ctx, job, ack)
	}
}

func (w *Worker) handle(ctx context.Context, job domain.RunJob, ack domain.AckFunc) {
	w.attempts[job.ID]++
	attempt := w.attempts[job.ID]
	jobLog := w.log.With().
		Str("job_id", job.ID).
		Str("cause", string(job.Cause)).
		Int("attempt", attempt).
		Logger()

	outcome := w.process(ctx, job, jobLog)
	if outcome == jobOutcomeRetry && attempt < maxDeliveryAttempts {
		jobLog.Warn().Msg("worker: запуск завершился ошибкой, повторим позже")
		if err := ack(false); err != nil {
			jobLog.Error().Err(err).Msg("worker: не удалось вернуть задачу в очередь")
		}
		return
	}
	if outcome == jobOutcomeRetry {
		jobLog.Error().Msg("worker: достигнут предел попыток, подтверждаем задачу")
	}
	delete(w.attempts, job.ID)
	if err := ack(true); err != nil {
		jobLog.Error().Err(err).Msg("worker: не удалось подтвердить задачу")
	}
}

func (w *Worker) process(ctx context.Context, job domain.RunJob, jobLog zerolog.Logger) jobOutcome {
	now := job.Date
	if now.IsZero() {
		now = time.Now()
	}
	report, err := w.runner.Run(ctx, now)
	w.report(ctx, report, err, jobLog)

	switch {
	case err == nil:
		jobLog.Info().
			Str("run_id", report.RunID).
			Int("recipes", report.RecipesExtracted).
			Int("sent", report.Delivery.SentCount).
			Msg("worker: запуск завершён")
		return jobOutcomeCompleted
	case errors.Is(err, ErrNoRecipes), errors.Is(err, domain.ErrTransportUnavailable):
		// повтор не поможет
		jobLog.Error().Err(err).Msg("worker: запуск завершён с ошибкой")
		return jobOutcomeCompleted
	case report.Delivery.SentCount > 0:
		// часть писем уже ушла, повтор разослал бы их второй раз
		jobLog.Error().Err(err).
			Int("sent", report.Delivery.SentCount).
			Msg("worker: рассылка прервана после частичной отправки, повтор пропущен")
		return jobOutcomeCompleted
	default:
		jobLog.Error().Err(err).Msg("worker: запуск не удался")
		return jobOutcomeRetry
	}
}

func (w *Worker) report(ctx context.Context, report domain.RunReport, runErr error, jobLog zerolog.Logger) {
	if w.reporter == nil {
		return
	}
	if err := w.reporter.ReportRun(ctx, report, runErr); err != nil {
		jobLog.Warn().Err(err).Msg("worker: не удалось отправить отчёт")
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
