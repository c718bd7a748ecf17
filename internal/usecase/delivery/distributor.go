package delivery

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"recipe-digest/internal/domain"
	"recipe-digest/internal/infra/metrics"
)

// Distributor рассылает выпуск подписчикам по одному.
type Distributor struct {
	mailer   domain.Mailer
	from     string
	limiter  *rate.Limiter
	validate *validator.Validate
	log      zerolog.Logger
}

// NewDistributor создаёт рассыльщика. rps <= 0 отключает ограничение скорости.
func NewDistributor(mailer domain.Mailer, from string, rps float64, logger zerolog.Logger) *Distributor {
	var limiter *rate.Limiter
	if rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
	return &Distributor{mailer: mailer, from: strings.TrimSpace(from), limiter: limiter, validate: validator.New(), log: logger}
}

// Distribute отправляет выпуск каждому подписчику в порядке списка. Ошибка одного
// адреса не останавливает рассылку; ошибка возвращается только если транспорт
// недоступен целиком.
func (d *Distributor) Distribute(ctx context.Context, n domain.Newsletter, subscribers []domain.Subscriber) (domain.DeliverySummary, error) {
	var summary domain.DeliverySummary
	if d.mailer == nil || d.from == "" {
		return summary, fmt.Errorf("%w: не задан транспорт или отправитель", domain.ErrTransportUnavailable)
	}

	for i, sub := range subscribers {
		email := strings.TrimSpace(sub.Email)
		logger := d.log.With().Str("email", email).Int("position", i+1).Logger()

		if err := d.validate.Var(email, "required,email"); err != nil {
			d.fail(&summary, email, "некорректный адрес")
			logger.Warn().Msg("delivery: адрес пропущен")
			continue
		}

		if d.limiter != nil {
			if err := d.limiter.Wait(ctx); err != nil {
				return summary, fmt.Errorf("ожидание лимита отправки: %w", err)
			}
		}

		err := d.mailer.Send(ctx, domain.Email{From: d.from, To: email, Subject: n.Subject, HTML: n.HTML, Text: n.Text})
		if errors.Is(err, domain.ErrTransportUnavailable) {
			d.fail(&summary, email, err.Error())
			logger.Error().Err(err).Msg("delivery: транспорт недоступен, рассылка остановлена")
			return summary, err
		}
		if err != nil {
			d.fail(&summary, email, err.Error())
			logger.Warn().Err(err).Msg("delivery: письмо не отправлено")
			continue
		}
		summary.SentCount++
		summary.Outcomes = append(summary.Outcomes, domain.SendOutcome{Email: email, Status: domain.SendStatusSent})
		metrics.ObserveEmail(true)
		logger.Info().Msg("delivery: письмо отправлено")
	}

	d.log.Info().Int("sent", summary.SentCount).Int("failed", len(summary.FailedEmails)).Msg("delivery: рассылка завершена")
	return summary, nil
}

func (d *Distributor) fail(summary *domain.DeliverySummary, email, reason string) {
	metrics.ObserveEmail(false)
	summary.Outcomes = append(summary.Outcomes, domain.SendOutcome{Email: email, Status: domain.SendStatusFailed, Reason: reason})
	if !summary.Failed(email) {
		summary.FailedEmails = append(summary.FailedEmails, email)
	}
}
