package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "Show provider health and availability",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		orch, err := initOrchestrator(ctx)
		if err != nil {
			return err
		}
		defer orch.Shutdown(ctx)

		out := map[string]any{
			"available": orch.AvailableProviders(),
			"health":    orch.Health(),
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

var agenciesCmd = &cobra.Command{
	Use:   "agencies",
	Short: "List known contracting agencies",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		orch, err := initOrchestrator(ctx)
		if err != nil {
			return err
		}
		defer orch.Shutdown(ctx)

		agencies, err := orch.Agencies(ctx)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(agencies)
	},
}

var modalitiesCmd = &cobra.Command{
	Use:   "modalities",
	Short: "List contracting modalities",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		orch, err := initOrchestrator(ctx)
		if err != nil {
			return err
		}
		defer orch.Shutdown(ctx)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(orch.Modalities())
	},
}

func init() {
	rootCmd.AddCommand(providersCmd)
	rootCmd.AddCommand(agenciesCmd)
	rootCmd.AddCommand(modalitiesCmd)
}
