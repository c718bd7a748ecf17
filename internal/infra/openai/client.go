package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"recipe-digest/internal/infra/metrics"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	maxAttempts    = 3
)

// Client вызывает Chat Completions у OpenAI или совместимого провайдера.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
	backoff time.Duration
}

// NewClient создаёт клиента. Пустой baseURL означает api.openai.com.
func NewClient(apiKey, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		http:    &http.Client{Timeout: timeout + 5*time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		backoff: time.Second,
	}
}

// ChatCompletionRequest описывает тело запроса.
type ChatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

// ChatMessage представляет реплику диалога.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// RoleUser сообщение пользователя.
const RoleUser = "user"

// ChatCompletionResponse описывает ответ модели.
type ChatCompletionResponse struct {
	Choices []ChatCompletionChoice `json:"choices"`
	Usage   *ChatCompletionUsage   `json:"usage,omitempty"`
}

// ChatCompletionChoice содержит один вариант ответа.
type ChatCompletionChoice struct {
	Message      ChatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

// ChatCompletionUsage описывает расход токенов.
type ChatCompletionUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Text возвращает текст первого варианта или пустую строку.
func (r ChatCompletionResponse) Text() string {
	if len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}

// StatusError возвращается, если API ответил кодом ошибки.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("openai: status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("openai: status %d", e.StatusCode)
}

// CreateChatCompletion вызывает /chat/completions. Ответы 429 и 5xx повторяются.
func (c *Client) CreateChatCompletion(ctx context.Context, req ChatCompletionRequest) (ChatCompletionResponse, error) {
	if c.apiKey == "" {
		return ChatCompletionResponse{}, errors.New("openai: api key is empty")
	}
	body, err := json.Marshal(req)
	if err != nil {
		return ChatCompletionResponse{}, fmt.Errorf("openai: marshal request: %w", err)
	}

	var statusErr *StatusError
	for attempt := 1; ; attempt++ {
		out, err := c.post(ctx, req.Model, body)
		if err == nil {
			return out, nil
		}
		retryable := errors.As(err, &statusErr) &&
			(statusErr.StatusCode == http.StatusTooManyRequests || statusErr.StatusCode >= 500)
		if !retryable || attempt == maxAttempts {
			return ChatCompletionResponse{}, err
		}
		select {
		case <-ctx.Done():
			return ChatCompletionResponse{}, fmt.Errorf("openai: %w", ctx.Err())
		case <-time.After(c.backoff * time.Duration(attempt)):
		}
	}
}

func (c *Client) post(ctx context.Context, model string, body []byte) (out ChatCompletionResponse, err error) {
	start := time.Now()
	defer func() {
		metrics.ObserveNetworkRequest("openai", "chat_completions", model, start, err)
	}()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return out, fmt.Errorf("openai: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return out, fmt.Errorf("openai: do request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return out, fmt.Errorf("openai: read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.Unmarshal(payload, &apiErr)
		return out, &StatusError{StatusCode: resp.StatusCode, Message: apiErr.Error.Message}
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		return out, fmt.Errorf("openai: decode response: %w", err)
	}
	if out.Usage != nil {
		metrics.ObserveLLMGeneration(model, time.Since(start), out.Usage.PromptTokens, out.Usage.CompletionTokens, out.Usage.TotalTokens)
	}
	return out, nil
}
