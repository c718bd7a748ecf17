package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"recipe-digest/internal/domain"
	"recipe-digest/internal/infra/metrics"
)

// Postgres хранит копию архива выпусков и бизнесовые события.
type Postgres struct {
	pool *pgxpool.Pool
}

var (
	_ domain.BusinessMetricRepo = (*Postgres)(nil)
	_ domain.ArchiveMirror      = (*Postgres)(nil)
)

// NewPostgres создаёт адаптер БД.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

const schema = `
CREATE TABLE IF NOT EXISTS recipe_archives (
	day date PRIMARY KEY,
	recipes jsonb NOT NULL,
	recipe_count integer NOT NULL,
	updated_at timestamptz NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS business_metrics (
	id bigserial PRIMARY KEY,
	event text NOT NULL,
	run_id text,
	metadata jsonb,
	occurred_at timestamptz NOT NULL
);
CREATE INDEX IF NOT EXISTS business_metrics_event_idx ON business_metrics (event, occurred_at);
`

func (p *Postgres) connCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, 5*time.Second)
}

// EnsureSchema создаёт таблицы, если их нет.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, schema)
	metrics.ObserveNetworkRequest("postgres", "ensure_schema", "schema", start, err)
	if err != nil {
		return fmt.Errorf("postgres: ensure schema: %w", err)
	}
	return nil
}

// SaveArchive записывает пачку рецептов за день, перезаписывая предыдущую.
func (p *Postgres) SaveArchive(ctx context.Context, day time.Time, batch domain.RecipeBatch) error {
	payload, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("postgres: marshal archive: %w", err)
	}
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	_, err = p.pool.Exec(ctx, `
INSERT INTO recipe_archives (day, recipes, recipe_count, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (day) DO UPDATE SET recipes = EXCLUDED.recipes, recipe_count = EXCLUDED.recipe_count, updated_at = now()
`, dayOf(day), payload, len(batch))
	metrics.ObserveNetworkRequest("postgres", "archive_upsert", "recipe_archives", start, err)
	if err != nil {
		return fmt.Errorf("postgres: save archive: %w", err)
	}
	return nil
}

// LoadArchive читает пачку рецептов за день.
func (p *Postgres) LoadArchive(ctx context.Context, day time.Time) (domain.RecipeBatch, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	var payload []byte
	start := time.Now()
	err := p.pool.QueryRow(ctx, `SELECT recipes FROM recipe_archives WHERE day = $1`, dayOf(day)).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		metrics.ObserveNetworkRequest("postgres", "archive_select", "recipe_archives", start, nil)
		return nil, domain.ErrNotFound
	}
	metrics.ObserveNetworkRequest("postgres", "archive_select", "recipe_archives", start, err)
	if err != nil {
		return nil, fmt.Errorf("postgres: load archive: %w", err)
	}
	var batch domain.RecipeBatch
	if err := json.Unmarshal(payload, &batch); err != nil {
		return nil, fmt.Errorf("postgres: decode archive: %w", err)
	}
	return batch, nil
}

// RecordBusinessMetric сохраняет бизнесовую метрику в БД.
func (p *Postgres) RecordBusinessMetric(ctx context.Context, metric domain.BusinessMetric) error {
	if metric.Event == "" {
		return nil
	}
	if metric.OccurredAt.IsZero() {
		metric.OccurredAt = time.Now().UTC()
	}

	var payload []byte
	if metric.Metadata != nil {
		if data, err := json.Marshal(metric.Metadata); err == nil {
			payload = data
		}
	}
	var runID *string
	if metric.RunID != "" {
		runID = &metric.RunID
	}

	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
INSERT INTO business_metrics (event, run_id, metadata, occurred_at)
VALUES ($1, $2, $3, $4)
`, metric.Event, runID, payload, metric.OccurredAt)
	metrics.ObserveNetworkRequest("postgres", "business_metrics_insert", "business_metrics", start, err)
	return err
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
