package main

import (
	"github.com/spf13/cobra"

	"github.com/duartefn/rotulo/internal/app"
	"github.com/duartefn/rotulo/internal/logging"
	"github.com/duartefn/rotulo/internal/server"
)

var flagListenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and WebSocket API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := app.LoadConfig(flagConfig)
		if err != nil {
			return err
		}
		if flagListenAddr != "" {
			cfg.ListenAddr = flagListenAddr
		}

		srv, err := server.NewServer(server.Config{
			ListenAddr: cfg.ListenAddr,
			AppConfig:  cfg,
			Logger:     logging.NewStdoutLogger("Server"),
		})
		if err != nil {
			return err
		}
		defer srv.Close()

		return srv.ListenAndServe()
	},
}

func init() {
	serveCmd.Flags().StringVarP(&flagListenAddr, "listen", "l", "", "listen address (overrides config)")
}
