package llm

import (
	"context"
	"fmt"

	"recipe-digest/internal/domain"
	"recipe-digest/internal/infra/anthropic"
	"recipe-digest/internal/infra/config"
	openai "recipe-digest/internal/infra/openai"
)

// New выбирает провайдера модели по конфигу.
func New(ctx context.Context, cfg config.AppConfig) (domain.Completer, error) {
	switch cfg.LLM.Provider {
	case "openai":
		client := openai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.LLM.Timeout)
		return NewOpenAI(client, cfg.OpenAI.Model, cfg.LLM.Timeout), nil
	case "gemini":
		gemini, err := NewGemini(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, cfg.LLM.Timeout)
		if err != nil {
			return nil, err
		}
		return gemini, nil
	case "anthropic", "":
		client := anthropic.NewClient(cfg.Anthropic.APIKey, cfg.Anthropic.BaseURL, cfg.LLM.Timeout)
		return NewAnthropic(client, cfg.Anthropic.Model, cfg.LLM.Timeout), nil
	default:
		return nil, fmt.Errorf("неизвестный провайдер модели: %s", cfg.LLM.Provider)
	}
}
