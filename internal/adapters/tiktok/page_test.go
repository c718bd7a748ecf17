package tiktok

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const samplePage = `<html><head>
<script id="__UNIVERSAL_DATA_FOR_REHYDRATION__" type="application/json">{"__DEFAULT_SCOPE__":{"webapp.video-detail":{"itemInfo":{"itemStruct":{"desc":"Garlic pasta ✨ recipe in comments \"best\"","stats":{"diggCount":12345,"playCount":678901}}}}}}</script>
</head><body><div>"desc":"decoy"</div></body></html>`

func TestParseVideoURL(t *testing.T) {
	author, id, err := ParseVideoURL("https://www.tiktok.com/@feelgoodfoodie/video/7234567890123456789?lang=en")
	require.NoError(t, err)
	require.Equal(t, "feelgoodfoodie", author)
	require.Equal(t, "7234567890123456789", id)

	_, _, err = ParseVideoURL("https://www.tiktok.com/foryou")
	require.Error(t, err)
}

func TestParsePage(t *testing.T) {
	caption, likes, views := ParsePage(samplePage)
	require.Equal(t, `Garlic pasta ✨ recipe in comments "best"`, caption)
	require.Equal(t, int64(12345), likes)
	require.Equal(t, int64(678901), views)
}

func TestParsePageFallbacks(t *testing.T) {
	caption, likes, views := ParsePage(`<html><body>nothing here</body></html>`)
	require.Equal(t, noCaption, caption)
	require.Zero(t, likes)
	require.Zero(t, views)

	caption, _, _ = ParsePage(`<html><script>window.x={"desc":"inline caption","diggCount":5}</script></html>`)
	require.Equal(t, "inline caption", caption)
}

func TestPageSourceVideos(t *testing.T) {
	var userAgents []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgents = append(userAgents, r.Header.Get("User-Agent"))
		if r.URL.Path == "/@broken/video/2" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte(samplePage))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "recipe_urls.json")
	data, _ := json.Marshal(map[string][]string{"urls": {
		srv.URL + "/@chef/video/1",
		srv.URL + "/@chef/video/1",
		srv.URL + "/@broken/video/2",
		srv.URL + "/not-a-video",
		srv.URL + "/@cook/video/3",
		srv.URL + "/@late/video/4",
	}})
	require.NoError(t, os.WriteFile(path, data, 0o644))

	source := NewPageSource(path, 4, time.Second, zerolog.Nop())
	videos, err := source.Videos(context.Background())
	require.NoError(t, err)
	require.Len(t, videos, 2)
	require.Equal(t, "1", videos[0].ID)
	require.Equal(t, "chef", videos[0].Author)
	require.Equal(t, "3", videos[1].ID)
	require.Equal(t, int64(678901), videos[1].Views)
	for _, ua := range userAgents {
		require.Equal(t, userAgent, ua)
	}
}

func TestLoadURLsCreatesExample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recipe_urls.json")

	urls, created, err := LoadURLs(path)
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, ExampleURLs, urls)
	require.FileExists(t, path)

	again, created, err := LoadURLs(path)
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, ExampleURLs, again)
}

func TestDeduplicateURLs(t *testing.T) {
	got := DeduplicateURLs([]string{"a", " a ", "", "b", "a"})
	require.Equal(t, []string{"a", "b"}, got)
}
