// Command newsletter собирает выпуск рецептов из TikTok и рассылает его подписчикам.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "newsletter",
	Short:        "TikTok recipe newsletter",
	Long:         "Extracts recipes from trending TikTok cooking videos, archives them, renders an HTML newsletter and emails it to subscribers.",
	SilenceUsage: true,
}

func main() {
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
