package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"recipe-digest/internal/domain"
	"recipe-digest/internal/infra/metrics"
)

const defaultResendURL = "https://api.resend.com"

// Resend отправляет письма через HTTP API Resend.
type Resend struct {
	http    *http.Client
	baseURL string
	apiKey  string
}

var _ domain.Mailer = (*Resend)(nil)

// NewResend создаёт транспорт.
func NewResend(apiKey, baseURL string, timeout time.Duration) *Resend {
	if baseURL == "" {
		baseURL = defaultResendURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Resend{http: &http.Client{Timeout: timeout}, baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey}
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	Text    string   `json:"text,omitempty"`
}

type apiError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// Send отправляет одно письмо. Отказ в авторизации или неподтверждённый домен
// отправителя означают, что транспорт недоступен целиком, и возвращаются как
// domain.ErrTransportUnavailable. Прочие 403 относятся к конкретному получателю.
func (r *Resend) Send(ctx context.Context, email domain.Email) error {
	if r.apiKey == "" {
		return fmt.Errorf("%w: resend api key is empty", domain.ErrTransportUnavailable)
	}
	body, err := json.Marshal(sendRequest{From: email.From, To: []string{email.To}, Subject: email.Subject, HTML: email.HTML, Text: email.Text})
	if err != nil {
		return fmt.Errorf("resend: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("resend: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.apiKey)

	start := time.Now()
	resp, err := r.http.Do(req)
	if err != nil {
		metrics.ObserveNetworkRequest("resend", "send_email", "api.resend.com", start, err)
		return fmt.Errorf("resend: do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 400 {
		metrics.ObserveNetworkRequest("resend", "send_email", "api.resend.com", start, nil)
		return nil
	}

	msg := fmt.Sprintf("status %d", resp.StatusCode)
	var apiErr apiError
	if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Message != "" {
		msg += ": " + apiErr.Message
	}
	if accountLevel(resp.StatusCode, apiErr) {
		err = fmt.Errorf("%w: resend: %s", domain.ErrTransportUnavailable, msg)
	} else {
		err = fmt.Errorf("resend: %s", msg)
	}
	metrics.ObserveNetworkRequest("resend", "send_email", "api.resend.com", start, err)
	return err
}

var accountErrorNames = map[string]struct{}{
	"missing_api_key":    {},
	"invalid_api_key":    {},
	"restricted_api_key": {},
}

func accountLevel(status int, apiErr apiError) bool {
	switch status {
	case http.StatusUnauthorized:
		return true
	case http.StatusForbidden:
		if _, ok := accountErrorNames[apiErr.Name]; ok {
			return true
		}
		return strings.Contains(strings.ToLower(apiErr.Message), "domain is not verified")
	default:
		return false
	}
}
