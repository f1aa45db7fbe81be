package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/johnmagusrecords/tradebot/capital"
	"github.com/johnmagusrecords/tradebot/config"
	"github.com/johnmagusrecords/tradebot/events"
	"github.com/johnmagusrecords/tradebot/internal/logx"
	"github.com/johnmagusrecords/tradebot/journal"
	"github.com/johnmagusrecords/tradebot/marketdata"
	"github.com/johnmagusrecords/tradebot/notify"
	"github.com/johnmagusrecords/tradebot/position"
	"github.com/johnmagusrecords/tradebot/risk"
	"github.com/johnmagusrecords/tradebot/scheduler"
	"github.com/johnmagusrecords/tradebot/signal"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the trading bot from a config file",
	Long: `Run the trading bot using settings from a configuration file.

The config file specifies broker credentials, the watchlist, the risk
profile, daily limits and journaling. Credentials may instead come from
the CAPITAL_* environment variables.

Example:
  tradebot run --config config.yaml`,
	RunE: runRun,
}

var (
	runConfigPath  string
	runCloseOnExit bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "config", "f", "", "path to config file (YAML or JSON) (required)")
	runCmd.Flags().BoolVar(&runCloseOnExit, "close-on-exit", false, "close all open positions on shutdown")
	runCmd.MarkFlagRequired("config")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(runConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logx.New(cfg.Log.Level)

	baseURL := capital.LiveAPIURL
	if cfg.Broker.Demo {
		baseURL = capital.DemoAPIURL
	}
	client := capital.NewClient(capital.Credentials{
		APIKey:     cfg.Broker.APIKey,
		Identifier: cfg.Broker.Identifier,
		Password:   cfg.Broker.Password,
		BaseURL:    baseURL,
	}, cfg.Broker.CallsPerMinute, log)

	profile, err := signal.ProfileByName(cfg.Trading.Profile)
	if err != nil {
		return err
	}

	j, err := openJournal(cfg.Journal)
	if err != nil {
		return fmt.Errorf("create journal: %w", err)
	}
	defer j.Close()

	catalog := marketdata.NewCatalog(client, marketdata.DefaultTTL, log)
	cache := marketdata.NewSeriesCache(client, catalog, profile.EvalInterval, log)
	quoter := marketdata.NewQuoter(client, catalog, log)

	bus := events.NewBus(log)
	defer bus.Close()

	daily := risk.NewDailyTracker(cfg.Limits.DailyLossLimit, cfg.Limits.DailyProfitLimit)
	manager := position.NewManager(client, profile, daily, j, bus, log)
	aggregator := signal.NewAggregator(cfg.SignalConfig(), profile, signal.NeutralSentiment{})

	notifier := notify.NewWebhookNotifier(cfg.Alerts.WebhookURL, log)
	go notifier.Consume(bus.Subscribe(64))

	if cfg.Alerts.ListenAddr != "" {
		hub := events.NewHub(log)
		go hub.Run(bus.Subscribe(64))
		mux := http.NewServeMux()
		mux.HandleFunc("/ws", hub.Handler())
		go func() {
			log.Info("event feed listening", "addr", cfg.Alerts.ListenAddr)
			if err := http.ListenAndServe(cfg.Alerts.ListenAddr, mux); err != nil {
				log.Error("event feed stopped", "err", err)
			}
		}()
	}

	sched := scheduler.New(scheduler.Options{
		Series:  cache,
		Quoter:  quoter,
		Catalog: catalog,
		Eval:    aggregator,
		Trader:  manager,
		Bus:     bus,
		Log:     log,
		Profile: profile,
		Symbols: cfg.Trading.Symbols,
	})

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Info("tradebot starting",
		"profile", cfg.Trading.Profile,
		"symbols", cfg.Trading.Symbols,
		"demo", cfg.Broker.Demo)

	sched.Run(ctx)

	if runCloseOnExit {
		// Best effort with a fresh context; the signal context is done.
		shutdownCtx := context.Background()
		manager.CloseAll(shutdownCtx, func(symbol string) (float64, bool) {
			return quoter.Quote(shutdownCtx, symbol)
		}, position.ReasonShutdown)
	}

	log.Info("tradebot stopped")
	return nil
}

func openJournal(cfg config.JournalConfig) (journal.Journal, error) {
	switch cfg.Type {
	case "sqlite":
		return journal.NewSQLite(cfg.DBPath)
	case "csv":
		return journal.NewCSV(cfg.TradesFile)
	default:
		return journal.Nop{}, nil
	}
}
