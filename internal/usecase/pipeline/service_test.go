package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"recipe-digest/internal/adapters/localstorage"
	"recipe-digest/internal/domain"
	"recipe-digest/internal/usecase/delivery"
	"recipe-digest/internal/usecase/extract"
)

type staticVideos struct {
	videos []domain.VideoReference
	err    error
}

func (s staticVideos) Videos(context.Context) ([]domain.VideoReference, error) { return s.videos, s.err }

type cannedModel struct {
	replies map[string]string
}

func (m cannedModel) Complete(_ context.Context, prompt string, _ int) (string, error) {
	for marker, reply := range m.replies {
		if strings.Contains(prompt, marker) {
			return reply, nil
		}
	}
	return "null", nil
}

type spyDistributor struct {
	calls int
	err   error
}

func (d *spyDistributor) Distribute(_ context.Context, _ domain.Newsletter, subs []domain.Subscriber) (domain.DeliverySummary, error) {
	d.calls++
	return domain.DeliverySummary{SentCount: len(subs)}, d.err
}

type okMailer struct{ sent int }

func (m *okMailer) Send(context.Context, domain.Email) error {
	m.sent++
	return nil
}

type memoryMetrics struct{ events []string }

func (m *memoryMetrics) RecordBusinessMetric(_ context.Context, metric domain.BusinessMetric) error {
	m.events = append(m.events, metric.Event)
	return nil
}

type env struct {
	dir         string
	archive     *localstorage.Archive
	previewPath string
	subsPath    string
}

func newEnv(t *testing.T) env {
	t.Helper()
	dir := t.TempDir()
	return env{
		dir:         dir,
		archive:     localstorage.NewArchive(filepath.Join(dir, "archive")),
		previewPath: filepath.Join(dir, "latest_newsletter.html"),
		subsPath:    filepath.Join(dir, "subscribers.json"),
	}
}

func (e env) service(videos domain.VideoSource, model domain.Completer, dist Distributor) *Service {
	coord := extract.NewCoordinator(nil, model, nil, extract.Config{MaxComments: 50, MaxOutputTokens: 1000}, zerolog.Nop())
	proc := extract.NewProcessor(coord, zerolog.Nop())
	return NewService(videos, proc, e.archive, localstorage.NewPreview(e.previewPath), localstorage.NewSubscriberFile(e.subsPath), dist, zerolog.Nop())
}

var runDate = time.Date(2025, 3, 7, 8, 0, 0, 0, time.UTC)

const pasta = `{"title":"Pasta","description":"Homemade","ingredients":["1 cup flour","2 eggs"],"instructions":["Mix"],"tips":[]}`

func video(id, caption string) domain.VideoReference {
	return domain.VideoReference{ID: id, Author: "chef" + id, URL: "https://www.tiktok.com/@chef" + id + "/video/" + id, Caption: caption, Likes: 10, Views: 100}
}

func TestRunOneOfTwoVideos(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, os.WriteFile(e.subsPath, []byte(`[{"email":"a@example.com"}]`), 0o644))
	mailer := &okMailer{}
	dist := delivery.NewDistributor(mailer, "recipes@example.com", 0, zerolog.Nop())
	analytics := &memoryMetrics{}
	svc := e.service(staticVideos{videos: []domain.VideoReference{video("1", "pasta night"), video("2", "no recipe here")}},
		cannedModel{replies: map[string]string{"pasta night": pasta}}, dist).WithAnalytics(analytics)

	report, err := svc.Run(context.Background(), runDate)
	require.NoError(t, err)
	require.Equal(t, 2, report.VideosTotal)
	require.Equal(t, 1, report.RecipesExtracted)
	require.Equal(t, 1, report.Delivery.SentCount)
	require.Equal(t, 1, mailer.sent)
	require.NotEmpty(t, report.RunID)
	require.Equal(t, []string{domain.BusinessMetricEventRecipesExtracted, domain.BusinessMetricEventNewsletterDelivered}, analytics.events)

	batch, err := e.archive.Load(context.Background(), runDate)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	require.Equal(t, "chef1", batch[0].Source.Author)

	doc, err := os.ReadFile(e.previewPath)
	require.NoError(t, err)
	require.Contains(t, string(doc), "#1 Pasta")
	require.NotContains(t, string(doc), "#2 ")
}

func TestRunWithoutSubscribers(t *testing.T) {
	e := newEnv(t)
	dist := &spyDistributor{}
	svc := e.service(staticVideos{videos: []domain.VideoReference{video("1", "pasta")}},
		cannedModel{replies: map[string]string{"pasta": pasta}}, dist)

	report, err := svc.Run(context.Background(), runDate)
	require.NoError(t, err)
	require.True(t, report.NoSubscribers)
	require.Zero(t, dist.calls)
	require.FileExists(t, report.ArchivePath)
	require.FileExists(t, e.previewPath)
	require.Equal(t, e.previewPath, report.PreviewPath)
}

func TestRunZeroRecipes(t *testing.T) {
	e := newEnv(t)
	dist := &spyDistributor{}
	analytics := &memoryMetrics{}
	var videos []domain.VideoReference
	for _, id := range []string{"1", "2", "3", "4", "5"} {
		videos = append(videos, video(id, "dance"))
	}
	svc := e.service(staticVideos{videos: videos}, cannedModel{}, dist).WithAnalytics(analytics)

	report, err := svc.Run(context.Background(), runDate)
	require.ErrorIs(t, err, ErrNoRecipes)
	require.Equal(t, 5, report.VideosTotal)
	require.Zero(t, report.RecipesExtracted)
	require.Zero(t, dist.calls)
	require.NoFileExists(t, e.archive.PathFor(runDate))
	require.NoFileExists(t, e.previewPath)
	require.Equal(t, []string{domain.BusinessMetricEventRunFailed}, analytics.events)
}

func TestRunContinuesWhenArchiveFails(t *testing.T) {
	e := newEnv(t)
	blocked := filepath.Join(e.dir, "blocked")
	require.NoError(t, os.WriteFile(blocked, []byte("file"), 0o644))
	e.archive = localstorage.NewArchive(blocked)
	svc := e.service(staticVideos{videos: []domain.VideoReference{video("1", "pasta")}},
		cannedModel{replies: map[string]string{"pasta": pasta}}, &spyDistributor{})

	report, err := svc.Run(context.Background(), runDate)
	require.NoError(t, err)
	require.Error(t, report.ArchiveErr)
	require.Empty(t, report.ArchivePath)
	require.FileExists(t, e.previewPath)
}

func TestRunTransportUnavailableIsFatal(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, os.WriteFile(e.subsPath, []byte(`[{"email":"a@example.com"}]`), 0o644))
	dist := delivery.NewDistributor(nil, "", 0, zerolog.Nop())
	svc := e.service(staticVideos{videos: []domain.VideoReference{video("1", "pasta")}},
		cannedModel{replies: map[string]string{"pasta": pasta}}, dist)

	_, err := svc.Run(context.Background(), runDate)
	require.ErrorIs(t, err, domain.ErrTransportUnavailable)
	require.FileExists(t, e.previewPath)
}

func TestRunVideoSourceFailure(t *testing.T) {
	e := newEnv(t)
	svc := e.service(staticVideos{err: errors.New("urls file unreadable")}, cannedModel{}, &spyDistributor{})

	_, err := svc.Run(context.Background(), runDate)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNoRecipes)
}

func TestRenderArchived(t *testing.T) {
	e := newEnv(t)
	svc := e.service(staticVideos{videos: []domain.VideoReference{video("1", "pasta")}},
		cannedModel{replies: map[string]string{"pasta": pasta}}, &spyDistributor{})
	_, err := svc.Run(context.Background(), runDate)
	require.NoError(t, err)
	require.NoError(t, os.Remove(e.previewPath))

	path, err := RenderArchived(context.Background(), e.archive, localstorage.NewPreview(e.previewPath), runDate)
	require.NoError(t, err)
	doc, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(doc), "March 07, 2025")

	_, err = RenderArchived(context.Background(), e.archive, localstorage.NewPreview(e.previewPath), runDate.AddDate(0, 0, 1))
	require.ErrorIs(t, err, localstorage.ErrArchiveNotFound)
}
