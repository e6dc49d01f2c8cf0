// Command datapay runs the DataPay BFA and offers a local valuation tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "datapay",
		Short: "DataPay personal-data valuation BFA",
		Long: `datapay estimates what a person's data is worth to advertisers.

Examples:
  datapay serve                         # Run the HTTP BFA
  datapay estimate -f profile.yaml      # Value a profile locally
  datapay estimate -f profile.json --json`,
		SilenceUsage: true,
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newEstimateCmd())
	return root
}
