package localstorage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"recipe-digest/internal/domain"
)

// SubscriberFile читает список подписчиков из JSON или YAML файла.
// Отсутствующий или пустой файл означает пустой список.
type SubscriberFile struct {
	path string
}

var _ domain.SubscriberSource = (*SubscriberFile)(nil)

// NewSubscriberFile создаёт источник подписчиков.
func NewSubscriberFile(path string) *SubscriberFile {
	return &SubscriberFile{path: path}
}

// Path возвращает путь к файлу.
func (f *SubscriberFile) Path() string { return f.path }

// Subscribers загружает подписчиков. Записи без адреса пропускаются.
func (f *SubscriberFile) Subscribers(ctx context.Context) ([]domain.Subscriber, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("subscribers: read: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var subs []domain.Subscriber
	switch strings.ToLower(filepath.Ext(f.path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &subs)
	default:
		err = json.Unmarshal(data, &subs)
	}
	if err != nil {
		return nil, fmt.Errorf("subscribers: decode %s: %w", f.path, err)
	}

	out := subs[:0]
	for _, s := range subs {
		s.Email = strings.TrimSpace(s.Email)
		if s.Email == "" {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}
