package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tradebot",
	Short: "A single-symbol automated trading bot for the xStation API",
	Long: `Tradebot runs a moving-average strategy against one instrument on an
xStation (xAPI) account.

It provides tools for:
  - Running the live strategy loop with risk-based position sizing
  - One-shot diagnostic checks against the venue (no orders placed)
  - Managing bot configuration files
  - An HTTP surface for status, indicators, logs and metrics

Credentials are read from the XTB_USER_ID and XTB_PASSWORD environment
variables, or from a .env file in the working directory.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}
