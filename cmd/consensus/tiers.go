package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/consensusai/consensus/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var tiersJSON bool

var tiersCmd = &cobra.Command{
	Use:   "tiers",
	Short: "Print the tiers and model prices loaded from billing.yml",
	RunE: func(cmd *cobra.Command, args []string) error {
		holder, err := config.NewBillingConfigHolder(config.Load(), zap.NewNop())
		if err != nil {
			return err
		}
		billingCfg := holder.Current()

		out := cmd.OutOrStdout()
		if tiersJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(billingCfg)
		}

		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TIER\tMESSAGES\tDEBATES\tMONTHLY\tANNUAL\tOVERAGE/MSG")
		for _, t := range billingCfg.Tiers {
			fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%.2f\t%.4f\n",
				t.Code, limit(t.MonthlyMessages), limit(t.MonthlyDebates), t.MonthlyPrice, t.AnnualPrice, t.OveragePerMessage)
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, "MODEL\tPER 1K TOKENS")
		for _, p := range billingCfg.Models {
			fmt.Fprintf(w, "%s\t%.6f\n", p.Model, p.PricePer1K)
		}
		return w.Flush()
	},
}

func init() {
	tiersCmd.Flags().BoolVar(&tiersJSON, "json", false, "print as JSON")
}

func limit(v int64) string {
	if v == config.Unlimited {
		return "unlimited"
	}
	return strconv.FormatInt(v, 10)
}
