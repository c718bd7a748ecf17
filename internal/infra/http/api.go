package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"recipe-digest/internal/domain"
	"recipe-digest/internal/usecase/newsletter"
)

const dateLayout = "2006-01-02"

// PreviewReader отдаёт последний отрендеренный выпуск.
type PreviewReader interface {
	ReadPreview(ctx context.Context) ([]byte, error)
}

// RunEnqueuer ставит запуск пайплайна в очередь.
type RunEnqueuer interface {
	Enqueue(ctx context.Context, cause domain.RunJobCause, date time.Time) (domain.RunJob, error)
}

// API обслуживает просмотр архива и ручной запуск выпуска.
type API struct {
	archive domain.ArchiveReader
	preview PreviewReader
	runs    RunEnqueuer
	log     zerolog.Logger
	now     func() time.Time
}

// NewAPI создаёт обработчики. runs может быть nil, тогда ручной запуск недоступен.
func NewAPI(archive domain.ArchiveReader, preview PreviewReader, runs RunEnqueuer, logger zerolog.Logger) *API {
	return &API{archive: archive, preview: preview, runs: runs, log: logger, now: time.Now}
}

// Mount регистрирует маршруты.
func (a *API) Mount(r chi.Router) {
	r.Get("/preview", a.getPreview)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/archive", a.listArchive)
		r.Get("/archive/{date}", a.getArchive)
		r.Get("/archive/{date}/html", a.renderArchive)
		r.Post("/runs", a.createRun)
	})
}

func (a *API) getPreview(w http.ResponseWriter, r *http.Request) {
	doc, err := a.preview.ReadPreview(r.Context())
	if err != nil {
		a.fail(w, err, "preview")
		return
	}
	writeHTML(w, doc)
}

func (a *API) listArchive(w http.ResponseWriter, r *http.Request) {
	days, err := a.archive.List(r.Context())
	if err != nil {
		a.fail(w, err, "archive list")
		return
	}
	dates := make([]string, 0, len(days))
	for _, d := range days {
		dates = append(dates, d.Format(dateLayout))
	}
	writeJSON(w, http.StatusOK, map[string]any{"dates": dates})
}

func (a *API) getArchive(w http.ResponseWriter, r *http.Request) {
	day, batch, ok := a.loadDay(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"date":    day.Format(dateLayout),
		"count":   len(batch),
		"recipes": batch,
	})
}

func (a *API) renderArchive(w http.ResponseWriter, r *http.Request) {
	day, batch, ok := a.loadDay(w, r)
	if !ok {
		return
	}
	writeHTML(w, []byte(newsletter.Render(batch, day)))
}

func (a *API) loadDay(w http.ResponseWriter, r *http.Request) (time.Time, domain.RecipeBatch, bool) {
	day, err := time.Parse(dateLayout, chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return time.Time{}, nil, false
	}
	batch, err := a.archive.Load(r.Context(), day)
	if err != nil {
		a.fail(w, err, "archive load")
		return time.Time{}, nil, false
	}
	return day, batch, true
}

type createRunRequest struct {
	Date string `json:"date"`
}

func (a *API) createRun(w http.ResponseWriter, r *http.Request) {
	if a.runs == nil {
		writeError(w, http.StatusServiceUnavailable, "run queue is not configured")
		return
	}
	defer r.Body.Close()

	var req createRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	date := a.now()
	if strings.TrimSpace(req.Date) != "" {
		parsed, err := time.Parse(dateLayout, strings.TrimSpace(req.Date))
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		date = parsed
	}
	job, err := a.runs.Enqueue(r.Context(), domain.RunCauseManual, date)
	if err != nil {
		a.log.Error().Err(err).Msg("api: не удалось поставить запуск в очередь")
		writeError(w, http.StatusInternalServerError, "failed to enqueue run")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id": job.ID,
		"date":   job.Date.Format(dateLayout),
	})
}

func (a *API) fail(w http.ResponseWriter, err error, op string) {
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	a.log.Error().Err(err).Str("op", op).Msg("api: ошибка хранилища")
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeHTML(w http.ResponseWriter, doc []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(doc)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
