package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	searchSources    []string
	searchState      string
	searchModality   string
	searchStartDate  string
	searchEndDate    string
	searchMinValue   float64
	searchMaxValue   float64
	searchMaxResults int
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search tenders across all available sources",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		orch, err := initOrchestrator(ctx)
		if err != nil {
			return err
		}
		defer orch.Shutdown(ctx)

		tenders, err := orch.Search(ctx, args[0], searchSources, searchFilters())
		if err != nil {
			return eris.Wrap(err, "search")
		}

		if searchMaxResults > 0 && len(tenders) > searchMaxResults {
			tenders = tenders[:searchMaxResults]
		}

		zap.L().Info("search complete",
			zap.String("query", args[0]),
			zap.Int("results", len(tenders)),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(tenders)
	},
}

// searchFilters converts the set flags into the filter map providers accept.
func searchFilters() map[string]any {
	filters := map[string]any{}
	if searchState != "" {
		filters["state"] = searchState
	}
	if searchModality != "" {
		filters["modality"] = searchModality
	}
	if searchStartDate != "" {
		filters["start_date"] = searchStartDate
	}
	if searchEndDate != "" {
		filters["end_date"] = searchEndDate
	}
	if searchMinValue > 0 {
		filters["min_value"] = searchMinValue
	}
	if searchMaxValue > 0 {
		filters["max_value"] = searchMaxValue
	}
	return filters
}

func init() {
	searchCmd.Flags().StringSliceVar(&searchSources, "sources", nil, "restrict to specific sources (default all usable)")
	searchCmd.Flags().StringVar(&searchState, "state", "", "filter by state (UF)")
	searchCmd.Flags().StringVar(&searchModality, "modality", "", "filter by modality")
	searchCmd.Flags().StringVar(&searchStartDate, "start-date", "", "publication start date (YYYY-MM-DD)")
	searchCmd.Flags().StringVar(&searchEndDate, "end-date", "", "publication end date (YYYY-MM-DD)")
	searchCmd.Flags().Float64Var(&searchMinValue, "min-value", 0, "minimum estimated value")
	searchCmd.Flags().Float64Var(&searchMaxValue, "max-value", 0, "maximum estimated value")
	searchCmd.Flags().IntVar(&searchMaxResults, "max-results", 0, "cap on returned results (default from config)")
	rootCmd.AddCommand(searchCmd)
}
