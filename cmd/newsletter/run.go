package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"recipe-digest/internal/app"
	"recipe-digest/internal/domain"
	"recipe-digest/internal/infra/config"
	applog "recipe-digest/internal/infra/log"
	"recipe-digest/internal/infra/metrics"
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline once: extract, archive, render, send",
	RunE:  runOnce,
}

var runReport bool

func init() {
	runCommand.Flags().BoolVar(&runReport, "report", false, "Send the run summary to the Telegram report chat")
	rootCmd.AddCommand(runCommand)
}

func runOnce(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Parse()
	if err != nil {
		return err
	}
	logger := applog.NewLogger(cfg.AppEnv)
	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	infra, err := app.OpenInfra(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer infra.Close()

	service, err := app.NewPipeline(ctx, cfg, infra, logger)
	if err != nil {
		return err
	}

	report, runErr := service.Run(ctx, time.Now().In(cfg.Location()))
	if runReport {
		reporter, err := app.NewReporter(cfg)
		if err != nil {
			logger.Warn().Err(err).Msg("newsletter: отчёт в Telegram не настроен")
		} else {
			sendReport(ctx, logger, reporter, report, runErr)
		}
	}
	return finishRun(cmd, report, runErr)
}

// finishRun печатает итоги, если до ошибки успели извлечь рецепты:
// архив и превью к этому моменту уже могли быть записаны.
func finishRun(cmd *cobra.Command, report domain.RunReport, runErr error) error {
	if runErr == nil || report.RecipesExtracted > 0 {
		printSummary(cmd, report)
	}
	return runErr
}

func sendReport(ctx context.Context, logger zerolog.Logger, reporter domain.RunReporter, report domain.RunReport, runErr error) {
	if reporter == nil {
		return
	}
	if err := reporter.ReportRun(ctx, report, runErr); err != nil {
		logger.Warn().Err(err).Str("run_id", report.RunID).Msg("newsletter: отчёт о запуске не отправлен")
	}
}

func printSummary(cmd *cobra.Command, report domain.RunReport) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Recipes extracted: %d of %d videos\n", report.RecipesExtracted, report.VideosTotal)
	if report.ArchivePath != "" {
		fmt.Fprintf(out, "Archive: %s\n", report.ArchivePath)
	}
	if report.PreviewPath != "" {
		fmt.Fprintf(out, "Preview: %s\n", report.PreviewPath)
	}
	if report.NoSubscribers {
		fmt.Fprintln(out, "No subscribers, newsletter was not sent")
		return
	}
	fmt.Fprintf(out, "Emails sent: %d, failed: %d\n", report.Delivery.SentCount, len(report.Delivery.FailedEmails))
}
