package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	flagConfig string
	flagLang   string
)

var rootCmd = &cobra.Command{
	Use:   "rotulo",
	Short: "Allergen exposure-risk scoring for food products",
	Long: "Rotulo scores one product against a user's declared allergens by\n" +
		"fusing label declarations, ingredient-text detection, facility\n" +
		"profiles and a closed-form cross-contact estimator.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&flagLang, "lang", "en", "output language (en, pt)")

	rootCmd.AddCommand(assessCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(detectCmd)
	rootCmd.AddCommand(allergensCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
