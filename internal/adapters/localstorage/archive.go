package localstorage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"recipe-digest/internal/domain"
	"recipe-digest/internal/infra/metrics"
)

const (
	archivePrefix = "recipes_"
	archiveSuffix = ".json"
	dayLayout     = "20060102"
)

// ErrArchiveNotFound возвращается, если за день нет снимка.
var ErrArchiveNotFound = fmt.Errorf("archive %w", domain.ErrNotFound)

// Archive хранит снимки выпусков в каталоге, по файлу на календарный день.
type Archive struct {
	dir string
}

var (
	_ domain.Archiver      = (*Archive)(nil)
	_ domain.ArchiveReader = (*Archive)(nil)
)

// NewArchive создаёт архив в каталоге dir.
func NewArchive(dir string) *Archive {
	return &Archive{dir: dir}
}

// Dir возвращает каталог архива.
func (a *Archive) Dir() string { return a.dir }

// PathFor возвращает путь к снимку за день.
func (a *Archive) PathFor(day time.Time) string {
	return filepath.Join(a.dir, archivePrefix+day.Format(dayLayout)+archiveSuffix)
}

// Archive записывает пачку в файл дня. Повторный запуск в тот же день перезаписывает файл.
func (a *Archive) Archive(ctx context.Context, batch domain.RecipeBatch, when time.Time) (path string, err error) {
	defer func() { metrics.ObserveArchive(err) }()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if batch == nil {
		batch = domain.RecipeBatch{}
	}
	data, err := json.MarshalIndent(batch, "", "  ")
	if err != nil {
		return "", fmt.Errorf("archive: marshal: %w", err)
	}
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return "", fmt.Errorf("archive: create dir %s: %w", a.dir, err)
	}
	path = a.PathFor(when)
	if err := writeFileAtomic(path, append(data, '\n')); err != nil {
		return "", fmt.Errorf("archive: %w", err)
	}
	return path, nil
}

// Load читает снимок за день.
func (a *Archive) Load(ctx context.Context, day time.Time) (domain.RecipeBatch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(a.PathFor(day))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrArchiveNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("archive: read: %w", err)
	}
	var batch domain.RecipeBatch
	if err := json.Unmarshal(data, &batch); err != nil {
		return nil, fmt.Errorf("archive: decode %s: %w", day.Format(dayLayout), err)
	}
	return batch, nil
}

// List возвращает дни, за которые есть снимки, от новых к старым.
func (a *Archive) List(ctx context.Context) ([]time.Time, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(a.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("archive: list: %w", err)
	}
	var days []time.Time
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, archivePrefix) || !strings.HasSuffix(name, archiveSuffix) {
			continue
		}
		stamp := strings.TrimSuffix(strings.TrimPrefix(name, archivePrefix), archiveSuffix)
		day, err := time.Parse(dayLayout, stamp)
		if err != nil {
			continue
		}
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].After(days[j]) })
	return days, nil
}

// writeFileAtomic пишет во временный файл рядом и переименовывает его.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
