package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"recipe-digest/internal/app"
	"recipe-digest/internal/infra/config"
	"recipe-digest/internal/usecase/pipeline"
)

var previewCommand = &cobra.Command{
	Use:   "preview",
	Short: "Re-render an archived day into the preview file",
	RunE:  runPreview,
}

var previewDate string

func init() {
	previewCommand.Flags().StringVar(&previewDate, "date", "", "Archive date (YYYY-MM-DD), defaults to the latest archive")
	rootCmd.AddCommand(previewCommand)
}

func runPreview(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Parse()
	if err != nil {
		return err
	}
	archive := app.Archive(cfg)

	var day time.Time
	if previewDate != "" {
		day, err = time.Parse("2006-01-02", previewDate)
		if err != nil {
			return fmt.Errorf("--date must be YYYY-MM-DD: %w", err)
		}
	} else {
		days, err := archive.List(cmd.Context())
		if err != nil {
			return err
		}
		if len(days) == 0 {
			return fmt.Errorf("archive %s is empty", archive.Dir())
		}
		day = days[0]
	}

	path, err := pipeline.RenderArchived(cmd.Context(), archive, app.Preview(cfg), day)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Preview for %s written to %s\n", day.Format("2006-01-02"), path)
	return nil
}
