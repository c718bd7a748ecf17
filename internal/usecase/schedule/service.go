package schedule

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"recipe-digest/internal/domain"
)

// ErrInvalidTimezone возвращается, если указан некорректный часовой пояс.
var ErrInvalidTimezone = errors.New("invalid timezone")

// ErrInvalidRunAt возвращается для времени запуска не в формате HH:MM.
var ErrInvalidRunAt = errors.New("invalid run time")

const guardTTL = 36 * time.Hour

// Service ставит ежедневный запуск в очередь.
type Service struct {
	queue  domain.RunQueue
	guard  domain.Cache
	hour   int
	minute int
	loc    *time.Location

	mu      sync.Mutex
	lastDay string
}

// NewService создаёт планировщик. guard может быть nil, тогда защита от
// повторной постановки живёт только в памяти процесса.
func NewService(queue domain.RunQueue, guard domain.Cache, runAt, timezone string) (*Service, error) {
	hour, minute, err := ParseRunAt(runAt)
	if err != nil {
		return nil, err
	}
	tz, err := NormalizeTimezone(timezone)
	if err != nil {
		return nil, err
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, ErrInvalidTimezone
	}
	return &Service{queue: queue, guard: guard, hour: hour, minute: minute, loc: loc}, nil
}

// Due сообщает, наступило ли время запуска в дне, к которому относится now.
func (s *Service) Due(now time.Time) bool {
	local := now.In(s.loc)
	return local.Hour() > s.hour || (local.Hour() == s.hour && local.Minute() >= s.minute)
}

// NextRun возвращает ближайший момент запуска после now.
func (s *Service) NextRun(now time.Time) time.Time {
	local := now.In(s.loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), s.hour, s.minute, 0, 0, s.loc)
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Tick ставит запланированный запуск не чаще одного раза в день.
// Возвращает true, если задача была поставлена этим вызовом.
func (s *Service) Tick(ctx context.Context, now time.Time) (bool, error) {
	if !s.Due(now) {
		return false, nil
	}
	local := now.In(s.loc)
	day := local.Format("2006-01-02")

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastDay == day {
		return false, nil
	}

	enqueued := false
	enqueue := func() error {
		if _, err := s.Enqueue(ctx, domain.RunCauseScheduled, local); err != nil {
			return err
		}
		enqueued = true
		return nil
	}

	var err error
	if s.guard != nil {
		err = s.guard.Once(ctx, "schedule:run:"+day, guardTTL, enqueue)
	} else {
		err = enqueue()
	}
	if err != nil {
		return false, fmt.Errorf("постановка запуска: %w", err)
	}
	s.lastDay = day
	return enqueued, nil
}

// Enqueue ставит задачу на сборку выпуска за указанную дату.
func (s *Service) Enqueue(ctx context.Context, cause domain.RunJobCause, date time.Time) (domain.RunJob, error) {
	job := domain.RunJob{ID: uuid.NewString(), Date: date, RequestedAt: time.Now().UTC(), Cause: cause}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		return domain.RunJob{}, err
	}
	return job, nil
}

// ParseRunAt разбирает время запуска вида HH:MM.
func ParseRunAt(raw string) (int, int, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(raw), ":")
	if !ok {
		return 0, 0, ErrInvalidRunAt
	}
	hour, err := strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, ErrInvalidRunAt
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, ErrInvalidRunAt
	}
	return hour, minute, nil
}

// NormalizeTimezone приводит название зоны к виду, который понимает time.LoadLocation.
func NormalizeTimezone(raw string) (string, error) {
	candidate := strings.TrimSpace(raw)
	if candidate == "" {
		return "", ErrInvalidTimezone
	}
	candidate = strings.ReplaceAll(candidate, " ", "_")
	if _, err := time.LoadLocation(candidate); err == nil {
		return candidate, nil
	}

	lower := strings.ToLower(candidate)
	parts := strings.Split(lower, "/")
	for i, part := range parts {
		segments := strings.Split(part, "_")
		for j, segment := range segments {
			pieces := strings.Split(segment, "-")
			for k, piece := range pieces {
				if piece == "" {
					continue
				}
				pieces[k] = strings.ToUpper(piece[:1]) + piece[1:]
			}
			segments[j] = strings.Join(pieces, "-")
		}
		parts[i] = strings.Join(segments, "_")
	}
	normalized := strings.Join(parts, "/")
	if _, err := time.LoadLocation(normalized); err == nil {
		return normalized, nil
	}
	return "", ErrInvalidTimezone
}
