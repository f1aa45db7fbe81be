package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tradebot",
	Short: "An automated trading client for the Capital.com REST API",
	Long: `Tradebot is an automated trading client written in Go.

It provides:
  - Multi-indicator signal aggregation (SMA, EMA, RSI, MACD, Bollinger)
  - Risk-based position sizing with daily loss and profit limits
  - Position lifecycle management with breakeven and trailing rules
  - Fuzzy symbol resolution against the broker's market catalog
  - SQLite and CSV trade journaling
  - Webhook alerts and a websocket event feed`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}
