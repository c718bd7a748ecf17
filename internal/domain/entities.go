package domain

import "time"

// PlatformTikTok обозначает платформу, с которой приходят видео.
const PlatformTikTok = "TikTok"

// VideoReference описывает одно найденное видео с метаданными.
type VideoReference struct {
	ID      string `json:"id"`
	Author  string `json:"author"`
	URL     string `json:"url"`
	Caption string `json:"caption"`
	Likes   int64  `json:"likes"`
	Views   int64  `json:"views"`
}

// Comment представляет комментарий под видео.
type Comment struct {
	Text   string `json:"text"`
	Author string `json:"author"`
	Likes  int64  `json:"likes"`
}

// Source хранит происхождение рецепта.
type Source struct {
	Platform string `json:"platform"`
	Author   string `json:"author"`
	URL      string `json:"url"`
	Likes    int64  `json:"likes"`
	Views    int64  `json:"views"`
}

// RecipeRecord описывает каноничный рецепт, который архивируется и попадает в рассылку.
type RecipeRecord struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	PrepTime     *string  `json:"prep_time"`
	CookTime     *string  `json:"cook_time"`
	Servings     *string  `json:"servings"`
	Ingredients  []string `json:"ingredients"`
	Instructions []string `json:"instructions"`
	Tips         []string `json:"tips"`
	Source       Source   `json:"source"`
}

// Valid сообщает, есть ли у рецепта название и ингредиенты.
func (r RecipeRecord) Valid() bool {
	return r.Title != "" && len(r.Ingredients) > 0
}

// RecipeBatch содержит рецепты одного запуска в порядке обнаружения видео.
type RecipeBatch []RecipeRecord

// Subscriber описывает получателя рассылки.
type Subscriber struct {
	Email string `json:"email" yaml:"email"`
}

// Newsletter описывает готовый к отправке выпуск.
type Newsletter struct {
	Subject string
	HTML    string
	Text    string
	Date    time.Time
}

// Email описывает одно исходящее письмо.
type Email struct {
	From    string
	To      string
	Subject string
	HTML    string
	Text    string
}

// SendStatus описывает результат отправки одному подписчику.
type SendStatus string

const (
	// SendStatusSent — письмо принято транспортом.
	SendStatusSent SendStatus = "sent"
	// SendStatusFailed — отправка не удалась.
	SendStatusFailed SendStatus = "failed"
)

// SendOutcome хранит результат отправки конкретному подписчику.
type SendOutcome struct {
	Email  string
	Status SendStatus
	Reason string
}

// DeliverySummary агрегирует результаты рассылки.
type DeliverySummary struct {
	SentCount    int
	FailedEmails []string
	Outcomes     []SendOutcome
}

// Failed проверяет, попал ли адрес в список неудачных.
func (s DeliverySummary) Failed(email string) bool {
	for _, e := range s.FailedEmails {
		if e == email {
			return true
		}
	}
	return false
}
