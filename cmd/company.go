package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/cotai/tendersearch/internal/provider"
)

var companyCmd = &cobra.Command{
	Use:   "company",
	Short: "Look up companies by CNPJ",
}

var companyValidateCmd = &cobra.Command{
	Use:   "validate <cnpj>",
	Short: "Check whether a CNPJ exists and is active",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		orch, err := initOrchestrator(ctx)
		if err != nil {
			return err
		}
		defer orch.Shutdown(ctx)

		ok, err := orch.ValidateCompany(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "validate company")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"cnpj": args[0], "valid": ok})
	},
}

var companyInfoCmd = &cobra.Command{
	Use:   "info <cnpj>",
	Short: "Fetch registration data for a CNPJ",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		orch, err := initOrchestrator(ctx)
		if err != nil {
			return err
		}
		defer orch.Shutdown(ctx)

		company, err := orch.CompanyInfo(ctx, args[0])
		if err != nil {
			if provider.IsNotFound(err) {
				return fmt.Errorf("cnpj %s not found", args[0])
			}
			return eris.Wrap(err, "company info")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(company)
	},
}

func init() {
	companyCmd.AddCommand(companyValidateCmd)
	companyCmd.AddCommand(companyInfoCmd)
	rootCmd.AddCommand(companyCmd)
}
