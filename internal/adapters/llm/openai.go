package llm

import (
	"context"
	"fmt"
	"time"

	"recipe-digest/internal/domain"
	openai "recipe-digest/internal/infra/openai"
)

type chatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAI реализует domain.Completer через Chat Completions.
type OpenAI struct {
	client  chatClient
	model   string
	timeout time.Duration
}

var _ domain.Completer = (*OpenAI)(nil)

// NewOpenAI создаёт провайдер модели.
func NewOpenAI(client chatClient, model string, timeout time.Duration) *OpenAI {
	if model == "" {
		model = "gpt-4.1-mini"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OpenAI{client: client, model: model, timeout: timeout}
}

// Complete отправляет промпт одним сообщением пользователя.
func (o *OpenAI) Complete(ctx context.Context, prompt string, maxOutputTokens int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     o.model,
		MaxTokens: maxOutputTokens,
		Messages:  []openai.ChatMessage{{Role: openai.RoleUser, Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai completion: %w", ErrEmptyResponse)
	}
	return resp.Text(), nil
}
