package telegram

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"recipe-digest/internal/domain"
)

type fakeBot struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.err != nil {
		return tgbotapi.Message{}, f.err
	}
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	return tgbotapi.Message{}, nil
}

func TestReportRunSendsHTML(t *testing.T) {
	bot := &fakeBot{}
	r := NewReporter(bot, -100500)
	report := domain.RunReport{
		RunID:            "run-1",
		Date:             time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC),
		VideosTotal:      5,
		RecipesExtracted: 3,
		ArchivePath:      "archive/recipes_20250307.json",
		Delivery:         domain.DeliverySummary{SentCount: 2, FailedEmails: []string{"<bad>"}},
	}

	if err := r.ReportRun(context.Background(), report, nil); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(bot.sent) != 1 {
		t.Fatalf("ожидали одно сообщение, получили %d", len(bot.sent))
	}
	msg := bot.sent[0]
	if msg.ChatID != -100500 || msg.ParseMode != tgbotapi.ModeHTML {
		t.Fatalf("неожиданные параметры сообщения: %+v", msg)
	}
	for _, want := range []string{"Выпуск собран", "Видео: 5, рецептов: 3", "Отправлено: 2, ошибок: 1", "&lt;bad&gt;"} {
		if !strings.Contains(msg.Text, want) {
			t.Fatalf("ожидали %q в %q", want, msg.Text)
		}
	}
}

func TestFormatReportFailure(t *testing.T) {
	text := FormatReport(domain.RunReport{NoSubscribers: true, ArchiveErr: errors.New("disk full")}, errors.New("не извлечено ни одного рецепта"))
	for _, want := range []string{"Запуск завершился ошибкой", "Архив не записан: disk full", "Подписчиков нет", "Ошибка: не извлечено ни одного рецепта"} {
		if !strings.Contains(text, want) {
			t.Fatalf("ожидали %q в %q", want, text)
		}
	}
}

func TestReportRunPropagatesSendError(t *testing.T) {
	r := NewReporter(&fakeBot{err: errors.New("forbidden")}, 1)
	if err := r.ReportRun(context.Background(), domain.RunReport{}, nil); err == nil {
		t.Fatalf("ожидали ошибку отправки")
	}
}
