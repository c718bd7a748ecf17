package domain

import (
	"context"
	"time"
)

// RunJobCause описывает источник запроса на запуск пайплайна.
type RunJobCause string

const (
	// RunCauseManual — запуск запрошен вручную через API.
	RunCauseManual RunJobCause = "manual"
	// RunCauseScheduled — запуск запланирован по расписанию.
	RunCauseScheduled RunJobCause = "scheduled"
)

// RunJob содержит информацию о задаче сборки выпуска.
type RunJob struct {
	ID          string      `json:"job_id,omitempty"`
	Date        time.Time   `json:"date"`
	RequestedAt time.Time   `json:"requested_at"`
	Cause       RunJobCause `json:"cause"`
}

// RunQueue описывает очередь задач на сборку выпуска.
type RunQueue interface {
	Enqueue(ctx context.Context, job RunJob) error
	Receive(ctx context.Context) (RunJob, AckFunc, error)
}

// AckFunc подтверждает успешную обработку или запрашивает повтор доставки задачи.
type AckFunc func(success bool) error

// RunReport собирает итоги одного запуска пайплайна.
type RunReport struct {
	RunID            string
	Date             time.Time
	VideosTotal      int
	RecipesExtracted int
	ArchivePath      string
	ArchiveErr       error
	PreviewPath      string
	NoSubscribers    bool
	Delivery         DeliverySummary
	Duration         time.Duration
}
