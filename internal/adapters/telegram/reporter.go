package telegram

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"recipe-digest/internal/domain"
	"recipe-digest/internal/infra/metrics"
)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Reporter отправляет оператору итоги запуска в Telegram.
type Reporter struct {
	bot    sender
	chatID int64
}

var _ domain.RunReporter = (*Reporter)(nil)

// NewReporter создаёт отправителя отчётов.
func NewReporter(bot sender, chatID int64) *Reporter {
	return &Reporter{bot: bot, chatID: chatID}
}

// NewBotReporter подключается к Bot API по токену.
func NewBotReporter(token string, chatID int64) (*Reporter, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram: init bot: %w", err)
	}
	return NewReporter(bot, chatID), nil
}

// ReportRun отправляет отчёт, при необходимости разбивая его на несколько сообщений.
func (r *Reporter) ReportRun(ctx context.Context, report domain.RunReport, runErr error) error {
	for _, part := range SplitMessage(FormatReport(report, runErr), MessageLimit) {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg := tgbotapi.NewMessage(r.chatID, part)
		msg.ParseMode = tgbotapi.ModeHTML
		msg.DisableWebPagePreview = true
		start := time.Now()
		_, err := r.bot.Send(msg)
		metrics.ObserveNetworkRequest("telegram_bot", "send_message", strconv.FormatInt(r.chatID, 10), start, err)
		if err != nil {
			return fmt.Errorf("telegram: send report: %w", err)
		}
	}
	return nil
}

// FormatReport собирает текст отчёта о запуске.
func FormatReport(report domain.RunReport, runErr error) string {
	var b strings.Builder
	status := "✅ <b>Выпуск собран</b>"
	if runErr != nil {
		status = "❌ <b>Запуск завершился ошибкой</b>"
	}
	b.WriteString(status + "\n")
	fmt.Fprintf(&b, "Дата: %s\n", report.Date.Format("2006-01-02"))
	if report.RunID != "" {
		fmt.Fprintf(&b, "Запуск: <code>%s</code>\n", html.EscapeString(report.RunID))
	}
	fmt.Fprintf(&b, "Видео: %d, рецептов: %d\n", report.VideosTotal, report.RecipesExtracted)

	switch {
	case report.ArchiveErr != nil:
		fmt.Fprintf(&b, "⚠️ Архив не записан: %s\n", html.EscapeString(report.ArchiveErr.Error()))
	case report.ArchivePath != "":
		fmt.Fprintf(&b, "Архив: %s\n", html.EscapeString(report.ArchivePath))
	}
	if report.NoSubscribers {
		b.WriteString("Подписчиков нет, выпуск сохранён только в превью\n")
	} else if report.Delivery.SentCount > 0 || len(report.Delivery.FailedEmails) > 0 {
		fmt.Fprintf(&b, "Отправлено: %d, ошибок: %d\n", report.Delivery.SentCount, len(report.Delivery.FailedEmails))
		for _, email := range report.Delivery.FailedEmails {
			b.WriteString("• " + html.EscapeString(email) + "\n")
		}
	}
	if report.Duration > 0 {
		fmt.Fprintf(&b, "Длительность: %s\n", report.Duration.Round(time.Second))
	}
	if runErr != nil {
		fmt.Fprintf(&b, "\nОшибка: %s", html.EscapeString(runErr.Error()))
	}
	return strings.TrimSpace(b.String())
}
