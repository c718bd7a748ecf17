package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"recipe-digest/internal/domain"
	"recipe-digest/internal/infra/anthropic"
)

// ErrEmptyResponse возвращается, если модель не вернула текста.
var ErrEmptyResponse = errors.New("пустой ответ модели")

type messagesClient interface {
	CreateMessage(ctx context.Context, req anthropic.MessagesRequest) (anthropic.MessagesResponse, error)
}

// Anthropic реализует domain.Completer через Messages API.
type Anthropic struct {
	client  messagesClient
	model   string
	timeout time.Duration
}

var _ domain.Completer = (*Anthropic)(nil)

// NewAnthropic создаёт провайдер модели.
func NewAnthropic(client messagesClient, model string, timeout time.Duration) *Anthropic {
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Anthropic{client: client, model: model, timeout: timeout}
}

// Complete возвращает текст ответа без обработки.
func (a *Anthropic) Complete(ctx context.Context, prompt string, maxOutputTokens int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	resp, err := a.client.CreateMessage(ctx, anthropic.MessagesRequest{
		Model:     a.model,
		MaxTokens: maxOutputTokens,
		Messages:  []anthropic.Message{{Role: anthropic.RoleUser, Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic completion: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("anthropic completion: %w", ErrEmptyResponse)
	}
	return text, nil
}
