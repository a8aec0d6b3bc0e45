package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/duartefn/rotulo/internal/taxonomy"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <token> [token...]",
	Short: "Resolve free-form allergen tokens to canonical codes",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var failed bool
		for _, token := range args {
			code, ok := taxonomy.Resolve(token)
			if !ok {
				fmt.Printf("%s -> ?\n", token)
				failed = true
				continue
			}
			fmt.Printf("%s -> %s (%s)\n", token, code, taxonomy.Label(code, flagLang))
		}
		if failed {
			return fmt.Errorf("some tokens did not resolve")
		}
		return nil
	},
}
