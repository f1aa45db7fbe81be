package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/johnmagusrecords/tradebot/journal"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Query the trade journal",
	Long: `Query and display trade records from the SQLite journal.

Subcommands:
  today  - List trades closed today
  day    - List trades closed on a specific day

Examples:
  tradebot history today
  tradebot history day 2026-08-28`,
}

var historyTodayCmd = &cobra.Command{
	Use:   "today",
	Short: "List trades closed today",
	Args:  cobra.NoArgs,
	RunE:  runHistoryToday,
}

var historyDayCmd = &cobra.Command{
	Use:   "day <YYYY-MM-DD>",
	Short: "List trades closed on a specific day",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryDay,
}

var historyDBPath string

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyTodayCmd)
	historyCmd.AddCommand(historyDayCmd)

	historyCmd.PersistentFlags().StringVarP(&historyDBPath, "db", "d", "./trades.db", "path to SQLite journal DB")
}

func runHistoryToday(cmd *cobra.Command, args []string) error {
	return printDay(time.Now().UTC().Format("2006-01-02"))
}

func runHistoryDay(cmd *cobra.Command, args []string) error {
	return printDay(args[0])
}

func printDay(day string) error {
	j, err := journal.NewSQLite(historyDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	start, end, err := dayBounds(day)
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}

	recs, err := j.ListBetween(start, end)
	if err != nil {
		return fmt.Errorf("query trades: %w", err)
	}
	summary, err := j.Summarize(start, end)
	if err != nil {
		return fmt.Errorf("summarize: %w", err)
	}

	if len(recs) == 0 {
		fmt.Printf("No trades closed on %s\n", day)
		return nil
	}

	fmt.Printf("Trades closed on %s:\n\n", day)
	for _, r := range recs {
		fmt.Printf("  %s  %-10s %-4s size %8.2f  %10.5f -> %10.5f  %+10.2f  %-4s %s\n",
			r.Time.UTC().Format("15:04:05"), r.Symbol, r.Action, r.Size,
			r.EntryPrice, r.ExitPrice, r.RealizedPL, r.Result, r.Reason)
	}
	fmt.Printf("\n  %d trades, %d wins, %d losses, net %+0.2f\n",
		summary.Trades, summary.Wins, summary.Losses, summary.TotalPL)
	return nil
}

func dayBounds(day string) (time.Time, time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", day, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.Add(24 * time.Hour), nil
}
