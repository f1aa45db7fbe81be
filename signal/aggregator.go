// Package signal reduces technical indicators and sentiment into a single
// BUY/SELL/HOLD decision with a confidence score.
package signal

import (
	"fmt"
	"math"

	"github.com/johnmagusrecords/tradebot/indicators"
	"github.com/johnmagusrecords/tradebot/market"
)

// Action is the aggregated trade decision.
type Action string

const (
	Buy  Action = "BUY"
	Sell Action = "SELL"
	Hold Action = "HOLD"
)

// Decision is the output of one evaluation cycle. It is recomputed every
// cycle and never persisted.
type Decision struct {
	Action     Action
	Confidence float64 // |vote sum| / vote count, in [0,1]
	TakeProfit float64
	StopLoss   float64
}

// SentimentSource supplies an external news-sentiment score in [-1, 1] per
// symbol. The aggregator does not compute sentiment itself.
type SentimentSource interface {
	Score(symbol string) float64
}

// NeutralSentiment always reports 0, for running without a news collaborator.
type NeutralSentiment struct{}

func (NeutralSentiment) Score(string) float64 { return 0 }

// Config holds the indicator parameters and vote thresholds. The agreement
// ratio and per-indicator thresholds are deliberately tunables, not
// constants.
type Config struct {
	TrendPeriod     int
	RSIPeriod       int
	MACDFast        int
	MACDSlow        int
	MACDSignal      int
	BollingerPeriod int
	BollingerWidth  float64

	RSIBullish         float64 // RSI below this votes bullish
	RSIBearish         float64 // RSI above this votes bearish
	SentimentThreshold float64 // |score| beyond this casts a vote
	AgreementRatio     float64 // |sum| must exceed ratio*votes to act
}

// DefaultConfig returns the standard indicator parameters.
func DefaultConfig() Config {
	return Config{
		TrendPeriod:        20,
		RSIPeriod:          14,
		MACDFast:           12,
		MACDSlow:           26,
		MACDSignal:         9,
		BollingerPeriod:    20,
		BollingerWidth:     2,
		RSIBullish:         30,
		RSIBearish:         70,
		SentimentThreshold: 0.3,
		AgreementRatio:     0.6,
	}
}

// Aggregator evaluates price series into decisions. Pure apart from the
// sentiment lookup; safe for concurrent use.
type Aggregator struct {
	cfg       Config
	profile   Profile
	sentiment SentimentSource
}

// NewAggregator creates an aggregator. A nil sentiment source defaults to
// NeutralSentiment.
func NewAggregator(cfg Config, profile Profile, sentiment SentimentSource) *Aggregator {
	if sentiment == nil {
		sentiment = NeutralSentiment{}
	}
	return &Aggregator{cfg: cfg, profile: profile, sentiment: sentiment}
}

// MinBars is the series length Evaluate needs for its slowest indicator.
func (a *Aggregator) MinBars() int {
	return a.cfg.MACDSlow + a.cfg.MACDSignal
}

// Evaluate reduces the series to one decision. Each indicator casts one
// vote: +1 bullish, -1 bearish, 0 neutral. The decision is BUY when the sum
// exceeds AgreementRatio times the vote count, SELL when it falls below the
// negative of that, HOLD otherwise.
func (a *Aggregator) Evaluate(symbol string, series market.Series) (Decision, error) {
	last, ok := series.Last()
	if !ok {
		return Decision{}, fmt.Errorf("signal: empty series for %s", symbol)
	}
	price := last.Close

	sma, err := indicators.SMA(series, a.cfg.TrendPeriod)
	if err != nil {
		return Decision{}, fmt.Errorf("signal: %s: %w", symbol, err)
	}
	rsi, err := indicators.RSI(series, a.cfg.RSIPeriod)
	if err != nil {
		return Decision{}, fmt.Errorf("signal: %s: %w", symbol, err)
	}
	macdLine, macdSignal, err := indicators.MACD(series, a.cfg.MACDFast, a.cfg.MACDSlow, a.cfg.MACDSignal)
	if err != nil {
		return Decision{}, fmt.Errorf("signal: %s: %w", symbol, err)
	}
	upper, lower, err := indicators.Bollinger(series, a.cfg.BollingerPeriod, a.cfg.BollingerWidth)
	if err != nil {
		return Decision{}, fmt.Errorf("signal: %s: %w", symbol, err)
	}

	votes := []int{
		vote(price > sma, price < sma),
		vote(rsi < a.cfg.RSIBullish, rsi > a.cfg.RSIBearish),
		vote(macdLine > macdSignal, macdLine < macdSignal),
		vote(price < lower, price > upper),
	}

	score := a.sentiment.Score(symbol)
	votes = append(votes, vote(score > a.cfg.SentimentThreshold, score < -a.cfg.SentimentThreshold))

	return a.reduce(price, votes), nil
}

// reduce applies the majority-vote decision rule to the collected votes.
func (a *Aggregator) reduce(price float64, votes []int) Decision {
	sum := 0
	for _, v := range votes {
		sum += v
	}
	n := len(votes)

	d := Decision{
		Action:     Hold,
		Confidence: math.Abs(float64(sum)) / float64(n),
	}
	threshold := a.cfg.AgreementRatio * float64(n)
	switch {
	case float64(sum) > threshold:
		d.Action = Buy
		d.TakeProfit = price * (1 + a.profile.TakeProfitPct)
		d.StopLoss = price * (1 - a.profile.StopLossPct)
	case float64(sum) < -threshold:
		d.Action = Sell
		d.TakeProfit = price * (1 - a.profile.TakeProfitPct)
		d.StopLoss = price * (1 + a.profile.StopLossPct)
	}
	return d
}

func vote(bullish, bearish bool) int {
	switch {
	case bullish:
		return 1
	case bearish:
		return -1
	default:
		return 0
	}
}
