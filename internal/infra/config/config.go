package config

import (
	"fmt"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию сервисов.
type AppConfig struct {
	AppEnv      string `envconfig:"APP_ENV" default:"dev"`
	TZ          string `envconfig:"TZ" default:"UTC"`
	Port        int    `envconfig:"PORT" default:"8080" validate:"min=1,max=65535"`
	MetricsAddr string `envconfig:"METRICS_ADDR" default:":9090"`

	LLM struct {
		Provider  string        `envconfig:"LLM_PROVIDER" default:"anthropic" validate:"oneof=anthropic openai gemini"`
		MaxTokens int           `envconfig:"LLM_MAX_TOKENS" default:"1000" validate:"min=1"`
		Timeout   time.Duration `envconfig:"LLM_TIMEOUT" default:"60s"`
	} `envconfig:""`

	Anthropic struct {
		APIKey  string `envconfig:"ANTHROPIC_API_KEY"`
		BaseURL string `envconfig:"ANTHROPIC_BASE_URL"`
		Model   string `envconfig:"ANTHROPIC_MODEL" default:"claude-sonnet-4-20250514"`
	} `envconfig:""`

	OpenAI struct {
		APIKey  string `envconfig:"OPENAI_API_KEY"`
		BaseURL string `envconfig:"OPENAI_BASE_URL"`
		Model   string `envconfig:"OPENAI_MODEL" default:"gpt-4.1-mini"`
	} `envconfig:""`

	Gemini struct {
		APIKey string `envconfig:"GEMINI_API_KEY"`
		Model  string `envconfig:"GEMINI_MODEL" default:"gemini-2.5-flash"`
	} `envconfig:""`

	Extract struct {
		MaxComments int           `envconfig:"MAX_COMMENTS" default:"50" validate:"min=0"`
		CacheTTL    time.Duration `envconfig:"RECIPE_CACHE_TTL" default:"72h"`
	} `envconfig:""`

	Videos struct {
		URLsFile   string `envconfig:"RECIPE_URLS_FILE" default:"recipe_urls.json"`
		Count      int    `envconfig:"VIDEO_COUNT" default:"5" validate:"min=1"`
		ApifyToken string `envconfig:"APIFY_API_TOKEN"`
	} `envconfig:""`

	Mail struct {
		ResendAPIKey  string  `envconfig:"RESEND_API_KEY"`
		ResendBaseURL string  `envconfig:"RESEND_BASE_URL"`
		From          string  `envconfig:"FROM_EMAIL" default:"recipes@yourdomain.com"`
		RPS           float64 `envconfig:"MAIL_RPS" default:"2" validate:"gte=0"`
	} `envconfig:""`

	Storage struct {
		ArchiveDir      string `envconfig:"ARCHIVE_DIR" default:"archive"`
		PreviewPath     string `envconfig:"PREVIEW_PATH" default:"latest_newsletter.html"`
		SubscribersFile string `envconfig:"SUBSCRIBERS_FILE" default:"subscribers.json"`
	} `envconfig:""`

	PGDSN string `envconfig:"PG_DSN"`

	RedisAddr string `envconfig:"REDIS_ADDR"`

	RabbitURL string `envconfig:"RABBITMQ_URL"`

	Queues struct {
		Backend string `envconfig:"QUEUE_BACKEND" default:"redis" validate:"oneof=redis rabbitmq"`
		Run     string `envconfig:"RUN_QUEUE_KEY" default:"newsletter_runs"`
	} `envconfig:""`

	Schedule struct {
		RunAt string `envconfig:"RUN_AT" default:"08:00"`
	} `envconfig:""`

	Telegram struct {
		Token        string `envconfig:"TG_BOT_TOKEN"`
		ReportChatID int64  `envconfig:"TG_REPORT_CHAT_ID"`
	} `envconfig:""`
}

// Parse читает конфиг из окружения и валидирует его.
func Parse() (AppConfig, error) {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return AppConfig{}, fmt.Errorf("envconfig: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return AppConfig{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Load подхватывает .env, если он есть, и загружает конфиг из окружения.
func Load() AppConfig {
	_ = godotenv.Load()
	cfg, err := Parse()
	if err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}

// LLMKey возвращает API-ключ выбранного провайдера модели.
func (c AppConfig) LLMKey() string {
	switch c.LLM.Provider {
	case "openai":
		return c.OpenAI.APIKey
	case "gemini":
		return c.Gemini.APIKey
	default:
		return c.Anthropic.APIKey
	}
}

// Location возвращает часовой пояс из конфига, откатываясь на UTC.
func (c AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.TZ)
	if err != nil {
		return time.UTC
	}
	return loc
}
