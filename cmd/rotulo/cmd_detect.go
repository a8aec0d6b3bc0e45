package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/duartefn/rotulo/internal/fooddict"
	"github.com/duartefn/rotulo/internal/taxonomy"
)

var flagDetectFoodCSV string

var detectCmd = &cobra.Command{
	Use:   "detect <text...>",
	Short: "Scan free-form ingredient text for allergen mentions",
	Long: "Detect tokenizes the given text, resolves single words and short\n" +
		"phrases against the allergen synonym table and prints every match.\n" +
		"With --food-csv it also prints dictionary context for each token.",
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")
		codes := taxonomy.DetectInTexts([]string{text})
		if len(codes) == 0 {
			fmt.Println("no allergens detected")
		}
		for _, code := range codes {
			fmt.Printf("%s\n", displayName(code, flagLang))
		}

		if flagDetectFoodCSV == "" {
			return nil
		}
		dict, err := fooddict.NewFromCSV(flagDetectFoodCSV)
		if err != nil {
			return err
		}
		for _, token := range taxonomy.Tokenize(text) {
			for _, summary := range dict.Summaries(token) {
				fmt.Printf("  %s: %s\n", token, summary)
			}
		}
		return nil
	},
}

func init() {
	detectCmd.Flags().StringVar(&flagDetectFoodCSV, "food-csv", "", "path to a FoodDB Food.csv export for extra context")
}
