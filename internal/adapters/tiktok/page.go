package tiktok

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"recipe-digest/internal/domain"
	"recipe-digest/internal/infra/metrics"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

const noCaption = "No caption found"

var (
	authorRe  = regexp.MustCompile(`@([^/?#]+)`)
	videoIDRe = regexp.MustCompile(`/video/(\d+)`)
	descRe    = regexp.MustCompile(`"desc":("(?:[^"\\]|\\.)*")`)
	diggRe    = regexp.MustCompile(`"diggCount":(\d+)`)
	playRe    = regexp.MustCompile(`"playCount":(\d+)`)
)

var stateScripts = []string{
	"script#__UNIVERSAL_DATA_FOR_REHYDRATION__",
	"script#SIGI_STATE",
	"script#__NEXT_DATA__",
}

// PageSource строит список видео по ссылкам из файла, разбирая страницы TikTok.
type PageSource struct {
	http     *http.Client
	urlsFile string
	count    int
	log      zerolog.Logger
}

var _ domain.VideoSource = (*PageSource)(nil)

// NewPageSource создаёт источник. count ограничивает число видео за запуск.
func NewPageSource(urlsFile string, count int, timeout time.Duration, logger zerolog.Logger) *PageSource {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	if count <= 0 {
		count = 5
	}
	return &PageSource{http: &http.Client{Timeout: timeout}, urlsFile: urlsFile, count: count, log: logger}
}

// Videos загружает ссылки и разбирает первые count страниц. Ссылки, которые
// не удалось разобрать или скачать, пропускаются.
func (s *PageSource) Videos(ctx context.Context) ([]domain.VideoReference, error) {
	urls, created, err := LoadURLs(s.urlsFile)
	if err != nil {
		return nil, err
	}
	if created {
		s.log.Warn().Str("path", s.urlsFile).Msg("tiktok: файл ссылок не найден, создан пример")
	}
	urls = DeduplicateURLs(urls)
	if len(urls) > s.count {
		urls = urls[:s.count]
	}
	if len(urls) == 0 {
		s.log.Warn().Str("path", s.urlsFile).Msg("tiktok: список ссылок пуст")
		return nil, nil
	}

	videos := make([]domain.VideoReference, 0, len(urls))
	for _, u := range urls {
		video, err := s.Fetch(ctx, u)
		if err != nil {
			s.log.Warn().Err(err).Str("url", u).Msg("tiktok: видео пропущено")
			continue
		}
		videos = append(videos, video)
	}
	return videos, nil
}

// Fetch скачивает страницу видео и извлекает подпись и статистику.
func (s *PageSource) Fetch(ctx context.Context, videoURL string) (domain.VideoReference, error) {
	author, id, err := ParseVideoURL(videoURL)
	if err != nil {
		return domain.VideoReference{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, videoURL, nil)
	if err != nil {
		return domain.VideoReference{}, fmt.Errorf("tiktok: build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := s.http.Do(req)
	if err != nil {
		metrics.ObserveNetworkRequest("tiktok", "video_page", "tiktok.com", start, err)
		return domain.VideoReference{}, fmt.Errorf("tiktok: do request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		err := fmt.Errorf("tiktok: unexpected status %d", resp.StatusCode)
		metrics.ObserveNetworkRequest("tiktok", "video_page", "tiktok.com", start, err)
		return domain.VideoReference{}, err
	}
	body, err := io.ReadAll(resp.Body)
	metrics.ObserveNetworkRequest("tiktok", "video_page", "tiktok.com", start, err)
	if err != nil {
		return domain.VideoReference{}, fmt.Errorf("tiktok: read page: %w", err)
	}

	caption, likes, views := ParsePage(string(body))
	return domain.VideoReference{
		ID:      id,
		Author:  author,
		URL:     videoURL,
		Caption: caption,
		Likes:   likes,
		Views:   views,
	}, nil
}

// ParseVideoURL достаёт автора и идентификатор из ссылки вида /@user/video/123.
func ParseVideoURL(videoURL string) (string, string, error) {
	a := authorRe.FindStringSubmatch(videoURL)
	v := videoIDRe.FindStringSubmatch(videoURL)
	if a == nil || v == nil {
		return "", "", fmt.Errorf("tiktok: could not parse url %q", videoURL)
	}
	return a[1], v[1], nil
}

// ParsePage извлекает подпись и счётчики из встроенного состояния страницы.
// Если скриптов состояния нет, поиск идёт по всему документу.
func ParsePage(page string) (string, int64, int64) {
	haystack := page
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(page)); err == nil {
		for _, sel := range stateScripts {
			if text := doc.Find(sel).First().Text(); strings.TrimSpace(text) != "" {
				haystack = text
				break
			}
		}
	}

	caption := noCaption
	if m := descRe.FindStringSubmatch(haystack); m != nil {
		var decoded string
		if err := json.Unmarshal([]byte(m[1]), &decoded); err == nil && strings.TrimSpace(decoded) != "" {
			caption = decoded
		}
	}
	return caption, firstInt(diggRe, haystack), firstInt(playRe, haystack)
}

func firstInt(re *regexp.Regexp, s string) int64 {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0
	}
	return n
}
