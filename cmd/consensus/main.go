package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "consensus",
	Short: "ConsensusAI usage metering and billing service",
	Long: `consensus records message and debate usage, keeps per-user monthly
aggregates and applies subscription tiers, quotas and overage pricing.

Configuration is read from the environment (and .env); tier and model
pricing from billing.yml on BILLING_CONFIG_PATHS.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(tiersCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
