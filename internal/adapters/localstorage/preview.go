package localstorage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"recipe-digest/internal/domain"
)

// ErrPreviewNotFound возвращается, если превью ещё не создавалось.
var ErrPreviewNotFound = fmt.Errorf("preview %w", domain.ErrNotFound)

// Preview хранит последний отрендеренный выпуск по фиксированному пути.
type Preview struct {
	path string
}

var _ domain.PreviewWriter = (*Preview)(nil)

// NewPreview создаёт хранилище превью.
func NewPreview(path string) *Preview {
	return &Preview{path: path}
}

// WritePreview перезаписывает файл превью.
func (p *Preview) WritePreview(ctx context.Context, document string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if dir := filepath.Dir(p.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("preview: create dir %s: %w", dir, err)
		}
	}
	if err := writeFileAtomic(p.path, []byte(document)); err != nil {
		return "", fmt.Errorf("preview: %w", err)
	}
	return p.path, nil
}

// ReadPreview возвращает содержимое последнего превью.
func (p *Preview) ReadPreview(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrPreviewNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("preview: read: %w", err)
	}
	return data, nil
}
