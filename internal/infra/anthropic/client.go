package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"recipe-digest/internal/infra/metrics"
)

const (
	defaultBaseURL = "https://api.anthropic.com/v1"
	apiVersion     = "2023-06-01"
	maxAttempts    = 3
)

// Client выполняет запросы к Messages API.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
	backoff time.Duration
}

// NewClient создаёт клиента Anthropic.
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

// MessagesRequest описывает тело запроса.
type MessagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []Message `json:"messages"`
}

// Message представляет реплику диалога.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// RoleUser сообщение пользователя.
const RoleUser = "user"

// MessagesResponse описывает ответ модели.
type MessagesResponse struct {
	Content    []ContentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
	Usage      Usage          `json:"usage"`
}

// ContentBlock содержит часть ответа.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Usage описывает расход токенов.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Text склеивает текстовые блоки ответа.
func (r MessagesResponse) Text() string {
	var b strings.Builder
	for _, block := range r.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return b.String()
}

// StatusError возвращается, если API ответил кодом ошибки.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("anthropic: status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("anthropic: status %d", e.StatusCode)
}

func (e *StatusError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// CreateMessage вызывает /messages. 429 и 5xx повторяются с паузой.
func (c *Client) CreateMessage(ctx context.Context, req MessagesRequest) (MessagesResponse, error) {
	if c.apiKey == "" {
		return MessagesResponse{}, fmt.Errorf("anthropic: api key is empty")
	}
	body, err := json.Marshal(req)
	if err != nil {
		return MessagesResponse{}, fmt.Errorf("anthropic: marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return MessagesResponse{}, fmt.Errorf("anthropic: %w", ctx.Err())
			case <-time.After(c.backoff * time.Duration(1<<(attempt-1))):
			}
		}
		resp, err := c.do(ctx, req.Model, body)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		statusErr, ok := err.(*StatusError)
		if !ok || !statusErr.retryable() {
			return MessagesResponse{}, err
		}
	}
	return MessagesResponse{}, lastErr
}

func (c *Client) do(ctx context.Context, model string, body []byte) (MessagesResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return MessagesResponse{}, fmt.Errorf("anthropic: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		metrics.ObserveNetworkRequest("anthropic", "messages", model, start, err)
		return MessagesResponse{}, fmt.Errorf("anthropic: do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.ObserveNetworkRequest("anthropic", "messages", model, start, err)
		return MessagesResponse{}, fmt.Errorf("anthropic: read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		statusErr := &StatusError{StatusCode: resp.StatusCode}
		var apiErr apiErrorResponse
		if json.Unmarshal(respBody, &apiErr) == nil {
			statusErr.Message = apiErr.Error.Message
		}
		metrics.ObserveNetworkRequest("anthropic", "messages", model, start, statusErr)
		return MessagesResponse{}, statusErr
	}
	var out MessagesResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		metrics.ObserveNetworkRequest("anthropic", "messages", model, start, err)
		return MessagesResponse{}, fmt.Errorf("anthropic: decode response: %w", err)
	}
	metrics.ObserveNetworkRequest("anthropic", "messages", model, start, nil)
	metrics.ObserveLLMGeneration(model, time.Since(start), out.Usage.InputTokens, out.Usage.OutputTokens, 0)
	return out, nil
}

type apiErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}
