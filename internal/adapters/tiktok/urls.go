package tiktok

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ExampleURLs записываются в новый файл списка, если его ещё нет.
var ExampleURLs = []string{
	"https://www.tiktok.com/@feelgoodfoodie/video/7234567890123456789",
	"https://www.tiktok.com/@brunchwithbabs/video/7234567890123456790",
	"https://www.tiktok.com/@cookingwithshereen/video/7234567890123456791",
}

type urlFile struct {
	URLs         []string `json:"urls"`
	Instructions string   `json:"instructions,omitempty"`
}

// LoadURLs читает список ссылок на видео. Если файла нет, создаёт пример
// и возвращает ссылки из него.
func LoadURLs(path string) ([]string, bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		example := urlFile{
			URLs:         ExampleURLs,
			Instructions: "Add TikTok recipe video URLs here. Find them by browsing TikTok and copying the video link!",
		}
		out, err := json.MarshalIndent(example, "", "  ")
		if err != nil {
			return nil, false, fmt.Errorf("tiktok: marshal example: %w", err)
		}
		if err := os.WriteFile(path, append(out, '\n'), 0o644); err != nil {
			return nil, false, fmt.Errorf("tiktok: write example %s: %w", path, err)
		}
		return append([]string(nil), ExampleURLs...), true, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("tiktok: read %s: %w", path, err)
	}
	var f urlFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, false, fmt.Errorf("tiktok: decode %s: %w", path, err)
	}
	return f.URLs, false, nil
}

// DeduplicateURLs удаляет пустые и повторяющиеся ссылки, сохраняя порядок.
func DeduplicateURLs(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		key := strings.TrimSpace(u)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}
