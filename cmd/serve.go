package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cotai/tendersearch/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		orch, err := initOrchestrator(ctx)
		if err != nil {
			return err
		}
		defer orch.Shutdown(ctx)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := server.New(orch, server.Config{Port: port})
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
