// Package app собирает зависимости бинарников из конфига.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"recipe-digest/internal/adapters/llm"
	"recipe-digest/internal/adapters/localstorage"
	"recipe-digest/internal/adapters/mailer"
	"recipe-digest/internal/adapters/repo"
	"recipe-digest/internal/adapters/telegram"
	"recipe-digest/internal/adapters/tiktok"
	"recipe-digest/internal/domain"
	"recipe-digest/internal/infra/cache"
	"recipe-digest/internal/infra/config"
	"recipe-digest/internal/infra/db"
	"recipe-digest/internal/infra/queue"
	"recipe-digest/internal/usecase/delivery"
	"recipe-digest/internal/usecase/extract"
	"recipe-digest/internal/usecase/pipeline"
)

const (
	pageTimeout = 30 * time.Second
	mailTimeout = 30 * time.Second
)

// Infra держит опциональные подключения к Redis и Postgres.
type Infra struct {
	Redis    *redis.Client
	PG       *pgxpool.Pool
	Postgres *repo.Postgres
}

// OpenInfra подключается к тем хранилищам, что указаны в конфиге.
func OpenInfra(ctx context.Context, cfg config.AppConfig, logger zerolog.Logger) (*Infra, error) {
	infra := &Infra{}
	if cfg.RedisAddr != "" {
		client, err := cache.Connect(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, err
		}
		infra.Redis = client
	} else {
		logger.Debug().Msg("app: REDIS_ADDR не указан, кэш отключён")
	}
	if cfg.PGDSN != "" {
		pool, err := db.Connect(ctx, cfg.PGDSN)
		if err != nil {
			infra.Close()
			return nil, err
		}
		infra.PG = pool
		infra.Postgres = repo.NewPostgres(pool)
		if err := infra.Postgres.EnsureSchema(ctx); err != nil {
			infra.Close()
			return nil, err
		}
	} else {
		logger.Debug().Msg("app: PG_DSN не указан, зеркало архива отключено")
	}
	return infra, nil
}

// Close закрывает открытые подключения.
func (i *Infra) Close() {
	if i.Redis != nil {
		_ = i.Redis.Close()
	}
	if i.PG != nil {
		i.PG.Close()
	}
}

// Cache возвращает кэш поверх Redis или nil, если Redis не настроен.
func (i *Infra) Cache(prefix string) domain.Cache {
	if i.Redis == nil {
		return nil
	}
	return cache.NewRedis(i.Redis, prefix)
}

// Archive возвращает локальный архив выпусков.
func Archive(cfg config.AppConfig) *localstorage.Archive {
	return localstorage.NewArchive(cfg.Storage.ArchiveDir)
}

// Preview возвращает файл превью.
func Preview(cfg config.AppConfig) *localstorage.Preview {
	return localstorage.NewPreview(cfg.Storage.PreviewPath)
}

// NewPipeline собирает сервис запуска со всеми адаптерами.
func NewPipeline(ctx context.Context, cfg config.AppConfig, infra *Infra, logger zerolog.Logger) (*pipeline.Service, error) {
	model, err := llm.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("модель: %w", err)
	}

	var comments domain.CommentSource = tiktok.NoComments{}
	if cfg.Videos.ApifyToken != "" {
		comments = tiktok.NewApifyComments(cfg.Videos.ApifyToken, "")
	}

	coordinator := extract.NewCoordinator(comments, model, infra.Cache("recipe-digest"), extract.Config{
		MaxComments:     cfg.Extract.MaxComments,
		MaxOutputTokens: cfg.LLM.MaxTokens,
		CacheTTL:        cfg.Extract.CacheTTL,
	}, logger.With().Str("component", "extract").Logger())
	processor := extract.NewProcessor(coordinator, logger.With().Str("component", "batch").Logger())

	videos := tiktok.NewPageSource(cfg.Videos.URLsFile, cfg.Videos.Count, pageTimeout, logger.With().Str("component", "tiktok").Logger())
	resend := mailer.NewResend(cfg.Mail.ResendAPIKey, cfg.Mail.ResendBaseURL, mailTimeout)
	distributor := delivery.NewDistributor(resend, cfg.Mail.From, cfg.Mail.RPS, logger.With().Str("component", "delivery").Logger())

	service := pipeline.NewService(
		videos,
		processor,
		Archive(cfg),
		Preview(cfg),
		localstorage.NewSubscriberFile(cfg.Storage.SubscribersFile),
		distributor,
		logger.With().Str("component", "pipeline").Logger(),
	)
	if infra.Postgres != nil {
		service.WithMirror(infra.Postgres).WithAnalytics(infra.Postgres)
	}
	return service, nil
}

// NewRunQueue создаёт очередь запусков выбранного бэкенда. close освобождает соединения брокера.
func NewRunQueue(cfg config.AppConfig, infra *Infra) (domain.RunQueue, func() error, error) {
	switch cfg.Queues.Backend {
	case "rabbitmq":
		q, err := queue.NewRabbitRunQueue(cfg.RabbitURL, cfg.Queues.Run)
		if err != nil {
			return nil, nil, err
		}
		return q, q.Close, nil
	default:
		if infra.Redis == nil {
			return nil, nil, fmt.Errorf("очередь redis: не указан REDIS_ADDR")
		}
		return queue.NewRedisRunQueue(infra.Redis, cfg.Queues.Run), func() error { return nil }, nil
	}
}

// NewReporter создаёт отправку отчётов в Telegram или возвращает nil, если она не настроена.
func NewReporter(cfg config.AppConfig) (domain.RunReporter, error) {
	if cfg.Telegram.Token == "" || cfg.Telegram.ReportChatID == 0 {
		return nil, nil
	}
	reporter, err := telegram.NewBotReporter(cfg.Telegram.Token, cfg.Telegram.ReportChatID)
	if err != nil {
		return nil, err
	}
	return reporter, nil
}
