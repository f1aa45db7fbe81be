// Package config loads and validates the bot configuration from YAML or
// JSON, with environment-variable overrides for the broker credentials.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/johnmagusrecords/tradebot/signal"
)

// Config represents the complete bot configuration
type Config struct {
	Broker  BrokerConfig  `json:"broker" yaml:"broker"`
	Trading TradingConfig `json:"trading" yaml:"trading"`
	Signals SignalsConfig `json:"signals" yaml:"signals"`
	Limits  LimitsConfig  `json:"limits" yaml:"limits"`
	Journal JournalConfig `json:"journal" yaml:"journal"`
	Alerts  AlertsConfig  `json:"alerts,omitempty" yaml:"alerts,omitempty"`
	Log     LogConfig     `json:"log" yaml:"log"`
}

// BrokerConfig contains the REST API connection parameters. Credentials
// may be left empty in the file and supplied through the environment
// (CAPITAL_API_KEY, CAPITAL_IDENTIFIER, CAPITAL_PASSWORD).
type BrokerConfig struct {
	APIKey         string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	Identifier     string `json:"identifier,omitempty" yaml:"identifier,omitempty"`
	Password       string `json:"password,omitempty" yaml:"password,omitempty"`
	Demo           bool   `json:"demo" yaml:"demo"`
	CallsPerMinute int    `json:"calls_per_minute" yaml:"calls_per_minute"`
}

// TradingConfig contains the watchlist and risk profile selection
type TradingConfig struct {
	Profile string   `json:"profile" yaml:"profile"` // safe, balanced or aggressive
	Symbols []string `json:"symbols" yaml:"symbols"`
}

// SignalsConfig overrides the aggregator thresholds. Zero values keep
// the defaults.
type SignalsConfig struct {
	RSIBullish         float64 `json:"rsi_bullish,omitempty" yaml:"rsi_bullish,omitempty"`
	RSIBearish         float64 `json:"rsi_bearish,omitempty" yaml:"rsi_bearish,omitempty"`
	SentimentThreshold float64 `json:"sentiment_threshold,omitempty" yaml:"sentiment_threshold,omitempty"`
	AgreementRatio     float64 `json:"agreement_ratio,omitempty" yaml:"agreement_ratio,omitempty"`
}

// LimitsConfig contains the daily circuit breakers, in account currency
type LimitsConfig struct {
	DailyLossLimit   float64 `json:"daily_loss_limit" yaml:"daily_loss_limit"`
	DailyProfitLimit float64 `json:"daily_profit_limit" yaml:"daily_profit_limit"`
}

// JournalConfig contains trade journaling parameters
type JournalConfig struct {
	Type       string `json:"type" yaml:"type"` // "csv", "sqlite" or "none"
	TradesFile string `json:"trades_file,omitempty" yaml:"trades_file,omitempty"`
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// AlertsConfig contains outbound notification parameters
type AlertsConfig struct {
	WebhookURL string `json:"webhook_url,omitempty" yaml:"webhook_url,omitempty"`
	ListenAddr string `json:"listen_addr,omitempty" yaml:"listen_addr,omitempty"` // websocket event feed, empty disables
}

// LogConfig controls the structured logger
type LogConfig struct {
	Level string `json:"level" yaml:"level"` // debug, info, warn or error
}

// LoadFromFile loads configuration from a file (JSON or YAML based on
// content), applies environment overrides and validates the result
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// applyEnv lets the environment override or supply the credentials so
// they never have to live in the config file.
func (c *Config) applyEnv() {
	if v := os.Getenv("CAPITAL_API_KEY"); v != "" {
		c.Broker.APIKey = v
	}
	if v := os.Getenv("CAPITAL_IDENTIFIER"); v != "" {
		c.Broker.Identifier = v
	}
	if v := os.Getenv("CAPITAL_PASSWORD"); v != "" {
		c.Broker.Password = v
	}
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}

	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Broker.APIKey == "" || c.Broker.Identifier == "" || c.Broker.Password == "" {
		return fmt.Errorf("broker credentials are required (file or CAPITAL_* environment)")
	}
	if c.Broker.CallsPerMinute <= 0 {
		return fmt.Errorf("broker.calls_per_minute must be positive")
	}
	if _, err := signal.ProfileByName(c.Trading.Profile); err != nil {
		return fmt.Errorf("trading.profile: %w", err)
	}
	if len(c.Trading.Symbols) == 0 {
		return fmt.Errorf("trading.symbols must name at least one instrument")
	}
	if c.Limits.DailyLossLimit < 0 || c.Limits.DailyProfitLimit < 0 {
		return fmt.Errorf("daily limits must not be negative")
	}
	if c.Signals.AgreementRatio < 0 || c.Signals.AgreementRatio > 1 {
		return fmt.Errorf("signals.agreement_ratio must be between 0 and 1")
	}
	switch c.Journal.Type {
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal.db_path required for sqlite type")
		}
	case "csv":
		if c.Journal.TradesFile == "" {
			return fmt.Errorf("journal.trades_file required for csv type")
		}
	case "none":
	default:
		return fmt.Errorf("journal.type must be 'csv', 'sqlite' or 'none'")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error")
	}
	return nil
}

// SignalConfig resolves the aggregator configuration: defaults with any
// non-zero file overrides applied on top.
func (c *Config) SignalConfig() signal.Config {
	out := signal.DefaultConfig()
	if c.Signals.RSIBullish > 0 {
		out.RSIBullish = c.Signals.RSIBullish
	}
	if c.Signals.RSIBearish > 0 {
		out.RSIBearish = c.Signals.RSIBearish
	}
	if c.Signals.SentimentThreshold > 0 {
		out.SentimentThreshold = c.Signals.SentimentThreshold
	}
	if c.Signals.AgreementRatio > 0 {
		out.AgreementRatio = c.Signals.AgreementRatio
	}
	return out
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Broker: BrokerConfig{
			Demo:           true,
			CallsPerMinute: 60,
		},
		Trading: TradingConfig{
			Profile: "balanced",
			Symbols: []string{"Gold", "EUR/USD"},
		},
		Limits: LimitsConfig{
			DailyLossLimit:   500,
			DailyProfitLimit: 1000,
		},
		Journal: JournalConfig{
			Type:   "sqlite",
			DBPath: "./trades.db",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
