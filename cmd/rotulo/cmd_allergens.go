package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/duartefn/rotulo/internal/taxonomy"
)

var allergensCmd = &cobra.Command{
	Use:   "allergens",
	Short: "List the supported allergen catalog",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		for i, def := range taxonomy.Definitions() {
			fmt.Printf("%2d. %-12s %s\n", i+1, def.Code, taxonomy.Label(def.Code, flagLang))
		}
	},
}
