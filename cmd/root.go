package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cotai/tendersearch/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "tendersearch",
	Short: "Unified search across Brazilian government procurement sources",
	Long:  "Queries PNCP, ComprasNet, Receita Federal and SICONV through a single interface with per-source rate limiting and health tracking.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
