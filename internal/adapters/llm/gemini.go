package llm

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"

	"recipe-digest/internal/domain"
	"recipe-digest/internal/infra/metrics"
)

// Gemini реализует domain.Completer через Gemini API.
type Gemini struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

var _ domain.Completer = (*Gemini)(nil)

// NewGemini создаёт клиента Gemini.
func NewGemini(ctx context.Context, apiKey, model string, timeout time.Duration) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: api key is empty")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Gemini{client: client, model: model, timeout: timeout}, nil
}

// Complete генерирует ответ с ограничением длины.
func (g *Gemini) Complete(ctx context.Context, prompt string, maxOutputTokens int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		MaxOutputTokens: int32(maxOutputTokens),
	})
	metrics.ObserveNetworkRequest("gemini", "generate_content", g.model, start, err)
	if err != nil {
		return "", fmt.Errorf("gemini completion: %w", err)
	}
	if usage := resp.UsageMetadata; usage != nil {
		metrics.ObserveLLMGeneration(g.model, time.Since(start), int(usage.PromptTokenCount), int(usage.CandidatesTokenCount), int(usage.TotalTokenCount))
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("gemini completion: %w", ErrEmptyResponse)
	}
	return text, nil
}
