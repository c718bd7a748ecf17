package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"recipe-digest/internal/domain"
)

type ackCall struct {
	jobID   string
	success bool
}

// chanQueue отдаёт задачи по одной и записывает подтверждения.
type chanQueue struct {
	jobs chan domain.RunJob

	mu   sync.Mutex
	acks []ackCall
}

func newChanQueue(jobs ...domain.RunJob) *chanQueue {
	q := &chanQueue{jobs: make(chan domain.RunJob, 16)}
	for _, job := range jobs {
		q.jobs <- job
	}
	return q
}

func (q *chanQueue) Enqueue(_ context.Context, job domain.RunJob) error {
	q.jobs <- job
	return nil
}

func (q *chanQueue) Receive(ctx context.Context) (domain.RunJob, domain.AckFunc, error) {
	select {
	case <-ctx.Done():
		return domain.RunJob{}, nil, ctx.Err()
	case job := <-q.jobs:
		ack := func(success bool) error {
			q.mu.Lock()
			q.acks = append(q.acks, ackCall{jobID: job.ID, success: success})
			q.mu.Unlock()
			if !success {
				q.jobs <- job
			}
			return nil
		}
		return job, ack, nil
	}
}

func (q *chanQueue) snapshot() []ackCall {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]ackCall(nil), q.acks...)
}

type scriptedRunner struct {
	mu    sync.Mutex
	errs  []error
	sent  []int
	dates []time.Time
}

func (r *scriptedRunner) Run(_ context.Context, now time.Time) (domain.RunReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dates = append(r.dates, now)
	var err error
	if len(r.errs) > 0 {
		err = r.errs[0]
		r.errs = r.errs[1:]
	}
	report := domain.RunReport{RunID: "run", Date: now}
	if len(r.sent) > 0 {
		report.Delivery.SentCount = r.sent[0]
		r.sent = r.sent[1:]
	}
	return report, err
}

type countingReporter struct {
	mu   sync.Mutex
	errs []error
}

func (r *countingReporter) ReportRun(_ context.Context, _ domain.RunReport, runErr error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, runErr)
	return nil
}

func runWorkerUntil(t *testing.T, w *Worker, q *chanQueue, wantAcks int) []ackCall {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return len(q.snapshot()) >= wantAcks }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
	return q.snapshot()
}

func TestWorkerAcksSuccessfulRun(t *testing.T) {
	day := time.Date(2025, 3, 14, 8, 0, 0, 0, time.UTC)
	q := newChanQueue(domain.RunJob{ID: "job-1", Date: day, Cause: domain.RunCauseScheduled})
	runner := &scriptedRunner{}
	reporter := &countingReporter{}

	acks := runWorkerUntil(t, NewWorker(q, runner, reporter, zerolog.Nop()), q, 1)

	require.Equal(t, []ackCall{{jobID: "job-1", success: true}}, acks)
	require.Equal(t, []time.Time{day}, runner.dates)
	require.Equal(t, []error{nil}, reporter.errs)
}

func TestWorkerRetriesTransientFailure(t *testing.T) {
	q := newChanQueue(domain.RunJob{ID: "job-2", Date: time.Now()})
	runner := &scriptedRunner{errs: []error{errors.New("источник недоступен")}}

	acks := runWorkerUntil(t, NewWorker(q, runner, nil, zerolog.Nop()), q, 2)

	require.Equal(t, []ackCall{{jobID: "job-2", success: false}, {jobID: "job-2", success: true}}, acks)
}

func TestWorkerGivesUpAfterMaxAttempts(t *testing.T) {
	boom := errors.New("boom")
	q := newChanQueue(domain.RunJob{ID: "job-3", Date: time.Now()})
	runner := &scriptedRunner{errs: []error{boom, boom, boom, boom}}

	acks := runWorkerUntil(t, NewWorker(q, runner, nil, zerolog.Nop()), q, maxDeliveryAttempts)

	require.Len(t, acks, maxDeliveryAttempts)
	require.True(t, acks[len(acks)-1].success)
	for _, a := range acks[:len(acks)-1] {
		require.False(t, a.success)
	}
}

func TestWorkerDoesNotRetryAfterPartialDelivery(t *testing.T) {
	q := newChanQueue(domain.RunJob{ID: "job-4", Date: time.Now()})
	runner := &scriptedRunner{
		errs: []error{errors.New("рассылка: ожидание лимита отправки: context canceled")},
		sent: []int{2},
	}
	reporter := &countingReporter{}

	acks := runWorkerUntil(t, NewWorker(q, runner, reporter, zerolog.Nop()), q, 1)

	require.Equal(t, []ackCall{{jobID: "job-4", success: true}}, acks)
	require.Len(t, runner.dates, 1)
	require.Len(t, reporter.errs, 1)
}

func TestWorkerDoesNotRetryFatalErrors(t *testing.T) {
	q := newChanQueue(
		domain.RunJob{ID: "empty", Date: time.Now()},
		domain.RunJob{ID: "no-transport", Date: time.Now()},
	)
	runner := &scriptedRunner{errs: []error{ErrNoRecipes, domain.ErrTransportUnavailable}}
	reporter := &countingReporter{}

	acks := runWorkerUntil(t, NewWorker(q, runner, reporter, zerolog.Nop()), q, 2)

	require.Equal(t, []ackCall{{jobID: "empty", success: true}, {jobID: "no-transport", success: true}}, acks)
	require.Len(t, reporter.errs, 2)
}
