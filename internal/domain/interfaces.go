package domain

import (
	"context"
	"errors"
	"time"
)

// ErrTransportUnavailable возвращается, когда почтовый транспорт недоступен целиком
// (нет ключа, отправителя или аккаунт отклонил авторизацию).
var ErrTransportUnavailable = errors.New("mail transport unavailable")

// ErrNotFound возвращается хранилищами, если запись отсутствует.
var ErrNotFound = errors.New("not found")

// ErrCacheMiss возвращается кэшем, если ключ не найден.
var ErrCacheMiss = errors.New("cache miss")

// VideoSource поставляет видео для очередного выпуска.
type VideoSource interface {
	Videos(ctx context.Context) ([]VideoReference, error)
}

// CommentSource выгружает комментарии под видео.
type CommentSource interface {
	Fetch(ctx context.Context, videoID string, maxCount int) ([]Comment, error)
}

// Completer отправляет промпт языковой модели и возвращает сырой текст ответа.
type Completer interface {
	Complete(ctx context.Context, prompt string, maxOutputTokens int) (string, error)
}

// Archiver сохраняет снимок выпуска за день.
type Archiver interface {
	Archive(ctx context.Context, batch RecipeBatch, when time.Time) (string, error)
}

// ArchiveReader читает ранее сохранённые снимки.
type ArchiveReader interface {
	Load(ctx context.Context, day time.Time) (RecipeBatch, error)
	List(ctx context.Context) ([]time.Time, error)
}

// ArchiveMirror дублирует архив во внешнее хранилище.
type ArchiveMirror interface {
	SaveArchive(ctx context.Context, day time.Time, batch RecipeBatch) error
}

// PreviewWriter сохраняет последний отрендеренный выпуск для просмотра.
type PreviewWriter interface {
	WritePreview(ctx context.Context, document string) (string, error)
}

// SubscriberSource загружает список подписчиков.
type SubscriberSource interface {
	Subscribers(ctx context.Context) ([]Subscriber, error)
}

// Mailer отправляет одно письмо.
type Mailer interface {
	Send(ctx context.Context, email Email) error
}

// Cache используется для простых TTL-хранилищ.
type Cache interface {
	Once(ctx context.Context, key string, ttl time.Duration, fn func() error) error
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// RunReporter сообщает оператору итоги запуска.
type RunReporter interface {
	ReportRun(ctx context.Context, report RunReport, runErr error) error
}
