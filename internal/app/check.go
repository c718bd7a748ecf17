package app

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"

	"recipe-digest/internal/adapters/localstorage"
	"recipe-digest/internal/domain"
	"recipe-digest/internal/infra/config"
)

// CheckResult описывает итог одной проверки окружения.
type CheckResult struct {
	Name   string
	OK     bool
	Detail string
}

// Check проверяет, что для запуска хватает настроек и файлов.
func Check(ctx context.Context, cfg config.AppConfig) []CheckResult {
	var results []CheckResult
	add := func(name string, ok bool, detail string) {
		results = append(results, CheckResult{Name: name, OK: ok, Detail: detail})
	}

	if cfg.LLMKey() != "" {
		add("model key", true, fmt.Sprintf("%s key is set", cfg.LLM.Provider))
	} else {
		add("model key", false, fmt.Sprintf("%s key is missing", cfg.LLM.Provider))
	}

	if cfg.Mail.ResendAPIKey != "" {
		add("mail key", true, "RESEND_API_KEY is set")
	} else {
		add("mail key", false, "RESEND_API_KEY is missing")
	}

	if err := validator.New().Var(cfg.Mail.From, "required,email"); err != nil {
		add("from address", false, fmt.Sprintf("FROM_EMAIL %q is not a valid address", cfg.Mail.From))
	} else {
		add("from address", true, cfg.Mail.From)
	}

	if _, err := os.Stat(cfg.Videos.URLsFile); err != nil {
		add("video list", true, fmt.Sprintf("%s not found, an example will be created on first run", cfg.Videos.URLsFile))
	} else {
		add("video list", true, cfg.Videos.URLsFile)
	}

	subs, err := localstorage.NewSubscriberFile(cfg.Storage.SubscribersFile).Subscribers(ctx)
	switch {
	case err != nil:
		add("subscribers", false, err.Error())
	case len(subs) == 0:
		add("subscribers", false, fmt.Sprintf("%s is missing or empty, newsletter will only be rendered", cfg.Storage.SubscribersFile))
	default:
		add("subscribers", true, describeSubscribers(subs))
	}
	return results
}

// PingModel отправляет модели короткий запрос, чтобы проверить ключ и сеть.
func PingModel(ctx context.Context, model domain.Completer) CheckResult {
	reply, err := model.Complete(ctx, "Say 'API working!'", 50)
	if err != nil {
		return CheckResult{Name: "model call", OK: false, Detail: err.Error()}
	}
	return CheckResult{Name: "model call", OK: true, Detail: strings.TrimSpace(reply)}
}

// Passed сообщает, прошли ли все проверки.
func Passed(results []CheckResult) bool {
	for _, r := range results {
		if !r.OK {
			return false
		}
	}
	return true
}

func describeSubscribers(subs []domain.Subscriber) string {
	shown := make([]string, 0, 3)
	for i, s := range subs {
		if i == 3 {
			break
		}
		shown = append(shown, s.Email)
	}
	detail := fmt.Sprintf("%d subscriber(s): %s", len(subs), strings.Join(shown, ", "))
	if len(subs) > 3 {
		detail += fmt.Sprintf(" and %d more", len(subs)-3)
	}
	return detail
}
