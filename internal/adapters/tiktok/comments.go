package tiktok

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"recipe-digest/internal/domain"
	"recipe-digest/internal/infra/metrics"
)

const (
	apifyBaseURL        = "https://api.apify.com/v2"
	commentsActorID     = "clockworks~tiktok-comments-scraper"
	defaultPollInterval = 3 * time.Second
	defaultRunTimeout   = 5 * time.Minute
)

// NoComments возвращает пустой список комментариев. Используется, когда
// внешний скрейпер не настроен.
type NoComments struct{}

var _ domain.CommentSource = NoComments{}

// Fetch всегда возвращает пустой список.
func (NoComments) Fetch(context.Context, string, int) ([]domain.Comment, error) {
	return nil, nil
}

// ApifyComments выгружает комментарии через актор Apify.
type ApifyComments struct {
	http     *http.Client
	baseURL  string
	token    string
	interval time.Duration
	timeout  time.Duration
}

var _ domain.CommentSource = (*ApifyComments)(nil)

// NewApifyComments создаёт источник комментариев.
func NewApifyComments(token, baseURL string) *ApifyComments {
	if baseURL == "" {
		baseURL = apifyBaseURL
	}
	return &ApifyComments{
		http:     &http.Client{Timeout: 30 * time.Second},
		baseURL:  strings.TrimRight(baseURL, "/"),
		token:    token,
		interval: defaultPollInterval,
		timeout:  defaultRunTimeout,
	}
}

type apifyComment struct {
	Text      string `json:"text"`
	UniqueID  string `json:"uniqueId"`
	DiggCount int64  `json:"diggCount"`
}

// Fetch запускает актор, дожидается завершения и читает датасет.
// Порядок комментариев сохраняется как у провайдера.
func (a *ApifyComments) Fetch(ctx context.Context, videoID string, maxCount int) ([]domain.Comment, error) {
	if a.token == "" {
		return nil, fmt.Errorf("apify: token is empty")
	}
	if maxCount <= 0 {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	runID, err := a.startRun(ctx, videoURLByID(videoID), maxCount)
	if err != nil {
		return nil, err
	}
	datasetID, err := a.waitRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	items, err := a.datasetItems(ctx, datasetID)
	if err != nil {
		return nil, err
	}

	comments := make([]domain.Comment, 0, len(items))
	for _, item := range items {
		text := strings.TrimSpace(item.Text)
		if text == "" {
			continue
		}
		comments = append(comments, domain.Comment{Text: text, Author: item.UniqueID, Likes: item.DiggCount})
		if len(comments) == maxCount {
			break
		}
	}
	return comments, nil
}

func (a *ApifyComments) startRun(ctx context.Context, postURL string, maxCount int) (string, error) {
	input, err := json.Marshal(map[string]any{
		"postURLs":        []string{postURL},
		"commentsPerPost": maxCount,
	})
	if err != nil {
		return "", fmt.Errorf("apify: marshal input: %w", err)
	}
	endpoint := fmt.Sprintf("%s/acts/%s/runs?token=%s", a.baseURL, commentsActorID, url.QueryEscape(a.token))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(input))
	if err != nil {
		return "", fmt.Errorf("apify: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var out struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := a.do(req, "start_run", &out); err != nil {
		return "", err
	}
	if out.Data.ID == "" {
		return "", fmt.Errorf("apify: empty run id")
	}
	return out.Data.ID, nil
}

func (a *ApifyComments) waitRun(ctx context.Context, runID string) (string, error) {
	endpoint := fmt.Sprintf("%s/actor-runs/%s?token=%s", a.baseURL, runID, url.QueryEscape(a.token))
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return "", fmt.Errorf("apify: build request: %w", err)
		}
		var status struct {
			Data struct {
				Status           string `json:"status"`
				DefaultDatasetID string `json:"defaultDatasetId"`
			} `json:"data"`
		}
		if err := a.do(req, "run_status", &status); err != nil {
			return "", err
		}
		switch status.Data.Status {
		case "SUCCEEDED":
			return status.Data.DefaultDatasetID, nil
		case "FAILED", "ABORTED", "TIMED-OUT":
			return "", fmt.Errorf("apify: run finished with status %s", status.Data.Status)
		}

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("apify: wait run: %w", ctx.Err())
		case <-time.After(a.interval):
		}
	}
}

func (a *ApifyComments) datasetItems(ctx context.Context, datasetID string) ([]apifyComment, error) {
	endpoint := fmt.Sprintf("%s/datasets/%s/items?token=%s", a.baseURL, datasetID, url.QueryEscape(a.token))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("apify: build request: %w", err)
	}
	var items []apifyComment
	if err := a.do(req, "dataset_items", &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (a *ApifyComments) do(req *http.Request, operation string, out any) error {
	start := time.Now()
	resp, err := a.http.Do(req)
	if err != nil {
		metrics.ObserveNetworkRequest("apify", operation, commentsActorID, start, err)
		return fmt.Errorf("apify: do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err == nil && resp.StatusCode >= 400 {
		err = fmt.Errorf("apify: %s: status %d: %s", operation, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	metrics.ObserveNetworkRequest("apify", operation, commentsActorID, start, err)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("apify: decode %s: %w", operation, err)
	}
	return nil
}

// videoURLByID строит короткую ссылку на видео, которая работает без имени автора.
func videoURLByID(id string) string {
	return "https://m.tiktok.com/v/" + id + ".html"
}
