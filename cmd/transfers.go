package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var (
	transferState     string
	transferCity      string
	transferMinistry  string
	transferStartDate string
	transferEndDate   string
	transferMinValue  float64
	transferMaxValue  float64
	agreementsOnly    bool
)

var transfersCmd = &cobra.Command{
	Use:   "transfers",
	Short: "Search federal transfers and agreements",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		orch, err := initOrchestrator(ctx)
		if err != nil {
			return err
		}
		defer orch.Shutdown(ctx)

		filters := transferFilters()

		search := orch.Transfers
		if agreementsOnly {
			search = orch.Agreements
		}
		transfers, err := search(ctx, filters)
		if err != nil {
			return eris.Wrap(err, "transfers")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(transfers)
	},
}

func transferFilters() map[string]any {
	filters := map[string]any{}
	if transferState != "" {
		filters["state"] = transferState
	}
	if transferCity != "" {
		filters["municipality_code"] = transferCity
	}
	if transferMinistry != "" {
		filters["ministry_code"] = transferMinistry
	}
	if transferStartDate != "" {
		filters["start_date"] = transferStartDate
	}
	if transferEndDate != "" {
		filters["end_date"] = transferEndDate
	}
	if transferMinValue > 0 {
		filters["min_value"] = transferMinValue
	}
	if transferMaxValue > 0 {
		filters["max_value"] = transferMaxValue
	}
	return filters
}

func init() {
	transfersCmd.Flags().StringVar(&transferState, "state", "", "filter by state (UF)")
	transfersCmd.Flags().StringVar(&transferCity, "municipality", "", "filter by IBGE municipality code")
	transfersCmd.Flags().StringVar(&transferMinistry, "ministry", "", "filter by ministry code")
	transfersCmd.Flags().StringVar(&transferStartDate, "start-date", "", "start date (YYYY-MM-DD)")
	transfersCmd.Flags().StringVar(&transferEndDate, "end-date", "", "end date (YYYY-MM-DD)")
	transfersCmd.Flags().Float64Var(&transferMinValue, "min-value", 0, "minimum value")
	transfersCmd.Flags().Float64Var(&transferMaxValue, "max-value", 0, "maximum value")
	transfersCmd.Flags().BoolVar(&agreementsOnly, "agreements", false, "search agreements (convênios) instead of transfers")
	rootCmd.AddCommand(transfersCmd)
}
