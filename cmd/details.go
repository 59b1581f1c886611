package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var detailsCmd = &cobra.Command{
	Use:   "details <source> <id>",
	Short: "Fetch full details for one tender",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		orch, err := initOrchestrator(ctx)
		if err != nil {
			return err
		}
		defer orch.Shutdown(ctx)

		tender, err := orch.Details(ctx, args[0], args[1])
		if err != nil {
			return eris.Wrap(err, "details")
		}
		if tender == nil {
			return fmt.Errorf("tender %s not found on %s", args[1], args[0])
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(tender)
	},
}

func init() {
	rootCmd.AddCommand(detailsCmd)
}
