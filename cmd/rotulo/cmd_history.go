package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/duartefn/rotulo/internal/app"
	"github.com/duartefn/rotulo/internal/history"
	"github.com/duartefn/rotulo/internal/logging"
)

var flagHistoryLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent assessments",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := app.LoadConfig(flagConfig)
		if err != nil {
			return err
		}
		if cfg.HistoryDSN == "" {
			return fmt.Errorf("history logging is disabled in the configuration")
		}
		log, err := history.Open(cfg.HistoryDSN, logging.Nop{})
		if err != nil {
			return err
		}
		defer log.Close()

		entries, err := log.Recent(cmd.Context(), flagHistoryLimit)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("no assessments recorded yet")
			return nil
		}
		for _, entry := range entries {
			fmt.Printf("%s  %-4s %-14s %-24s %6.2f/100\n",
				entry.CreatedAt.Format("2006-01-02 15:04:05"),
				entry.Command, entry.EAN,
				strings.Join(entry.Allergens, ","), entry.TotalScore)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&flagHistoryLimit, "limit", "n", 20, "maximum entries to show")
}
