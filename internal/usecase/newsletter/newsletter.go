package newsletter

import (
	"fmt"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"recipe-digest/internal/domain"
)

// Subject формирует тему письма с той же датой, что и в шапке.
func Subject(count int, when time.Time) string {
	return fmt.Sprintf("🍳 Top %d TikTok Recipes - %s", count, when.Format(DateLayout))
}

// convertHTML подменяется в тестах.
var convertHTML = func(document string) (string, error) {
	return htmltomarkdown.ConvertString(document)
}

// PlainText делает текстовую альтернативу письма из HTML.
func PlainText(document string) (string, error) {
	md, err := convertHTML(document)
	if err != nil {
		return "", fmt.Errorf("конвертация в текст: %w", err)
	}
	return strings.TrimSpace(md), nil
}

// Build собирает готовый к отправке выпуск. Текстовая версия необязательна:
// при ошибке конвертации выпуск всё равно заполнен и уходит только с HTML,
// а ошибка возвращается, чтобы вызывающий её залогировал.
func Build(batch domain.RecipeBatch, when time.Time) (domain.Newsletter, error) {
	document := Render(batch, when)
	text, err := PlainText(document)
	issue := domain.Newsletter{
		Subject: Subject(len(batch), when),
		HTML:    document,
		Text:    text,
		Date:    when,
	}
	return issue, err
}
