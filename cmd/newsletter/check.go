package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"recipe-digest/internal/adapters/llm"
	"recipe-digest/internal/app"
	"recipe-digest/internal/infra/config"
)

var checkCommand = &cobra.Command{
	Use:   "check",
	Short: "Verify configuration, keys and the subscriber list",
	RunE:  runCheck,
}

var checkPing bool

func init() {
	checkCommand.Flags().BoolVar(&checkPing, "ping", false, "Also send a tiny prompt to the model")
	rootCmd.AddCommand(checkCommand)
}

func runCheck(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Parse()
	if err != nil {
		return err
	}
	results := app.Check(cmd.Context(), cfg)
	if checkPing {
		model, err := llm.New(cmd.Context(), cfg)
		if err != nil {
			results = append(results, app.CheckResult{Name: "model call", Detail: err.Error()})
		} else {
			results = append(results, app.PingModel(cmd.Context(), model))
		}
	}

	out := cmd.OutOrStdout()
	for _, r := range results {
		mark := "✅"
		if !r.OK {
			mark = "❌"
		}
		fmt.Fprintf(out, "%s %s: %s\n", mark, r.Name, r.Detail)
	}
	if !app.Passed(results) {
		return errors.New("setup check failed")
	}
	fmt.Fprintln(out, "All checks passed")
	return nil
}
