package extract

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"recipe-digest/internal/domain"
)

const pastaJSON = `{"title":"Pasta","description":"Simple","ingredients":["1 cup flour","2 eggs"],"instructions":["Mix"],"tips":[]}`

type stubComments struct {
	comments []domain.Comment
	err      error
	gotMax   int
}

func (s *stubComments) Fetch(_ context.Context, _ string, maxCount int) ([]domain.Comment, error) {
	s.gotMax = maxCount
	return s.comments, s.err
}

type stubModel struct {
	replies   map[string]string
	err       error
	calls     int
	prompts   []string
	gotTokens int
	panicMsg  string
}

func (s *stubModel) Complete(_ context.Context, prompt string, maxOutputTokens int) (string, error) {
	s.calls++
	s.prompts = append(s.prompts, prompt)
	s.gotTokens = maxOutputTokens
	if s.panicMsg != "" {
		panic(s.panicMsg)
	}
	if s.err != nil {
		return "", s.err
	}
	for marker, reply := range s.replies {
		if strings.Contains(prompt, marker) {
			return reply, nil
		}
	}
	return "null", nil
}

type memoryCache struct {
	data map[string][]byte
}

func newMemoryCache() *memoryCache { return &memoryCache{data: map[string][]byte{}} }

func (m *memoryCache) Once(_ context.Context, key string, _ time.Duration, fn func() error) error {
	if _, ok := m.data[key]; ok {
		return nil
	}
	m.data[key] = []byte("1")
	return fn()
}

func (m *memoryCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.data[key] = value
	return nil
}

func (m *memoryCache) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := m.data[key]
	if !ok {
		return nil, domain.ErrCacheMiss
	}
	return v, nil
}

func testVideo(id, caption string) domain.VideoReference {
	return domain.VideoReference{ID: id, Author: "chef", URL: "https://www.tiktok.com/@chef/video/" + id, Caption: caption, Likes: 1200, Views: 35000}
}

func TestExtractStampsSource(t *testing.T) {
	model := &stubModel{replies: map[string]string{"pasta": "```json\n" + pastaJSON + "\n```"}}
	c := NewCoordinator(nil, model, nil, Config{MaxComments: 50, MaxOutputTokens: 1000}, zerolog.Nop())

	rec, ok := c.Extract(context.Background(), testVideo("1", "pasta night"))
	require.True(t, ok)
	require.Equal(t, "Pasta", rec.Title)
	require.Equal(t, domain.Source{Platform: "TikTok", Author: "chef", URL: "https://www.tiktok.com/@chef/video/1", Likes: 1200, Views: 35000}, rec.Source)
	require.Equal(t, 1000, model.gotTokens)
}

func TestExtractFallsBackToCaptionWhenCommentsFail(t *testing.T) {
	comments := &stubComments{err: errors.New("apify: status 500")}
	model := &stubModel{replies: map[string]string{"pasta": pastaJSON}}
	c := NewCoordinator(comments, model, nil, Config{MaxComments: 3}, zerolog.Nop())

	_, ok := c.Extract(context.Background(), testVideo("1", "pasta"))
	require.True(t, ok)
	require.Equal(t, 3, comments.gotMax)
	require.Equal(t, 1, model.calls)
}

func TestExtractPassesBoundedComments(t *testing.T) {
	comments := &stubComments{comments: []domain.Comment{{Text: "c1"}, {Text: "c2"}, {Text: "c3"}}}
	model := &stubModel{}
	c := NewCoordinator(comments, model, nil, Config{MaxComments: 2}, zerolog.Nop())

	_, ok := c.Extract(context.Background(), testVideo("1", "caption"))
	require.False(t, ok)
	require.Len(t, model.prompts, 1)
	require.Contains(t, model.prompts[0], "- c1\n- c2")
	require.NotContains(t, model.prompts[0], "c3")
}

func TestExtractModelErrorIsAbsence(t *testing.T) {
	model := &stubModel{err: errors.New("anthropic: status 401")}
	c := NewCoordinator(nil, model, nil, Config{MaxComments: 50}, zerolog.Nop())

	_, ok := c.Extract(context.Background(), testVideo("1", "pasta"))
	require.False(t, ok)
}

func TestExtractRecoversPanic(t *testing.T) {
	model := &stubModel{panicMsg: "boom"}
	c := NewCoordinator(nil, model, nil, Config{MaxComments: 50}, zerolog.Nop())

	require.NotPanics(t, func() {
		_, ok := c.Extract(context.Background(), testVideo("1", "pasta"))
		require.False(t, ok)
	})
}

func TestExtractUsesCache(t *testing.T) {
	cache := newMemoryCache()
	model := &stubModel{replies: map[string]string{"pasta": pastaJSON}}
	c := NewCoordinator(nil, model, cache, Config{MaxComments: 50, CacheTTL: time.Hour}, zerolog.Nop())

	first, ok := c.Extract(context.Background(), testVideo("7", "pasta"))
	require.True(t, ok)
	require.Equal(t, int64(1200), first.Source.Likes)

	fresher := testVideo("7", "pasta")
	fresher.Likes = 5000
	second, ok := c.Extract(context.Background(), fresher)
	require.True(t, ok)
	require.Equal(t, 1, model.calls)
	require.Equal(t, int64(5000), second.Source.Likes)
	require.Equal(t, first.Title, second.Title)
}
