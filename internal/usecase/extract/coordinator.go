package extract

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"recipe-digest/internal/domain"
	"recipe-digest/internal/infra/metrics"
)

// Config задаёт лимиты одного извлечения.
type Config struct {
	MaxComments     int
	MaxOutputTokens int
	CacheTTL        time.Duration
}

// Coordinator проводит одно видео через комментарии, модель и нормализацию.
type Coordinator struct {
	comments domain.CommentSource
	model    domain.Completer
	cache    domain.Cache
	cfg      Config
	log      zerolog.Logger
}

// NewCoordinator создаёт координатор. comments и cache могут быть nil.
func NewCoordinator(comments domain.CommentSource, model domain.Completer, cache domain.Cache, cfg Config, logger zerolog.Logger) *Coordinator {
	if cfg.MaxComments < 0 {
		cfg.MaxComments = 0
	}
	if cfg.MaxOutputTokens <= 0 {
		cfg.MaxOutputTokens = 1000
	}
	return &Coordinator{comments: comments, model: model, cache: cache, cfg: cfg, log: logger}
}

// Extract возвращает рецепт из видео или false, если рецепта нет или что-то сломалось.
// Ошибки наружу не выходят.
func (c *Coordinator) Extract(ctx context.Context, video domain.VideoReference) (rec domain.RecipeRecord, ok bool) {
	logger := c.log.With().Str("video_id", video.ID).Str("author", video.Author).Logger()
	defer func() {
		if r := recover(); r != nil {
			logger.Warn().Interface("panic", r).Msg("extract: извлечение прервано")
			rec, ok = domain.RecipeRecord{}, false
		}
	}()

	if cached, hit := c.lookup(ctx, video, logger); hit {
		metrics.ExtractionCacheHits.Inc()
		logger.Debug().Msg("extract: рецепт взят из кэша")
		return stamp(cached, video), true
	}

	comments := c.fetchComments(ctx, video, logger)
	prompt := BuildPrompt(video.Caption, comments, c.cfg.MaxComments)

	raw, err := c.model.Complete(ctx, prompt, c.cfg.MaxOutputTokens)
	if err != nil {
		logger.Warn().Err(err).Msg("extract: модель недоступна, видео пропущено")
		return domain.RecipeRecord{}, false
	}

	rec, err = Normalize(raw)
	if err != nil {
		if errors.Is(err, ErrNoRecipe) {
			logger.Info().Msg("extract: рецепт не найден")
		} else {
			logger.Warn().Err(err).Msg("extract: ответ модели отклонён")
		}
		return domain.RecipeRecord{}, false
	}

	rec = stamp(rec, video)
	c.remember(ctx, video, rec, logger)
	return rec, true
}

func (c *Coordinator) fetchComments(ctx context.Context, video domain.VideoReference, logger zerolog.Logger) []domain.Comment {
	if c.comments == nil || c.cfg.MaxComments == 0 {
		return nil
	}
	comments, err := c.comments.Fetch(ctx, video.ID, c.cfg.MaxComments)
	if err != nil {
		logger.Warn().Err(err).Msg("extract: комментарии недоступны, используем только подпись")
		return nil
	}
	if len(comments) > c.cfg.MaxComments {
		comments = comments[:c.cfg.MaxComments]
	}
	logger.Debug().Int("comments", len(comments)).Msg("extract: комментарии получены")
	return comments
}

func (c *Coordinator) lookup(ctx context.Context, video domain.VideoReference, logger zerolog.Logger) (domain.RecipeRecord, bool) {
	if c.cache == nil || video.ID == "" {
		return domain.RecipeRecord{}, false
	}
	data, err := c.cache.Get(ctx, cacheKey(video))
	if err != nil {
		if !errors.Is(err, domain.ErrCacheMiss) {
			logger.Warn().Err(err).Msg("extract: чтение кэша")
		}
		return domain.RecipeRecord{}, false
	}
	var rec domain.RecipeRecord
	if err := json.Unmarshal(data, &rec); err != nil || !rec.Valid() {
		logger.Warn().Err(err).Msg("extract: повреждённая запись кэша")
		return domain.RecipeRecord{}, false
	}
	return rec, true
}

func (c *Coordinator) remember(ctx context.Context, video domain.VideoReference, rec domain.RecipeRecord, logger zerolog.Logger) {
	if c.cache == nil || video.ID == "" || c.cfg.CacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, cacheKey(video), data, c.cfg.CacheTTL); err != nil {
		logger.Warn().Err(err).Msg("extract: запись кэша")
	}
}

func cacheKey(video domain.VideoReference) string {
	return "recipe:" + strings.ToLower(domain.PlatformTikTok) + ":" + video.ID
}

// stamp проставляет источник по данным видео, перезаписывая всё, что могло прийти от модели.
func stamp(rec domain.RecipeRecord, video domain.VideoReference) domain.RecipeRecord {
	rec.Source = domain.Source{
		Platform: domain.PlatformTikTok,
		Author:   video.Author,
		URL:      video.URL,
		Likes:    video.Likes,
		Views:    video.Views,
	}
	return rec
}
