package capital

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/johnmagusrecords/tradebot/market"
)

// Trade directions as the broker expects them.
const (
	DirectionBuy  = "BUY"
	DirectionSell = "SELL"
	DirectionNone = "NONE" // used to flatten a position
)

// OrderRequest is the single validated order shape passed to PlaceOrder.
type OrderRequest struct {
	Epic      string  `json:"epic"`
	Direction string  `json:"direction"`
	Size      float64 `json:"size"`
	StopLevel float64 `json:"stopLevel,omitempty"`
	TPLevel   float64 `json:"profitLevel,omitempty"`
}

// Validate rejects malformed orders at the boundary.
func (r OrderRequest) Validate() error {
	if r.Epic == "" {
		return fmt.Errorf("capital: order epic is required")
	}
	if r.Direction != DirectionBuy && r.Direction != DirectionSell {
		return fmt.Errorf("capital: order direction must be BUY or SELL, got %q", r.Direction)
	}
	if r.Size <= 0 {
		return fmt.Errorf("capital: order size must be positive, got %v", r.Size)
	}
	return nil
}

// AccountInfo is a snapshot of the account's balance figures.
type AccountInfo struct {
	AccountID string  `json:"accountId"`
	Currency  string  `json:"currency"`
	Balance   float64 `json:"balance"`
	Available float64 `json:"available"`
}

type marketEntry struct {
	InstrumentName string  `json:"instrumentName"`
	Epic           string  `json:"epic"`
	MarketStatus   string  `json:"marketStatus"`
	MinDealSize    float64 `json:"minDealSize"`
}

type marketsResponse struct {
	Markets []marketEntry `json:"markets"`
}

// GetMarkets fetches the tradable instrument list, optionally filtered by a
// search term.
func (c *Client) GetMarkets(ctx context.Context, searchTerm string) ([]market.Instrument, error) {
	var params url.Values
	if searchTerm != "" {
		params = url.Values{"searchTerm": []string{searchTerm}}
	}

	raw, err := c.Request(ctx, http.MethodGet, "/markets", nil, params)
	if err != nil {
		return nil, err
	}

	var resp marketsResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode markets: %w", err)
	}

	instruments := make([]market.Instrument, 0, len(resp.Markets))
	for _, m := range resp.Markets {
		minSize := m.MinDealSize
		if minSize <= 0 {
			minSize = 0.001
		}
		instruments = append(instruments, market.Instrument{
			Name:        m.InstrumentName,
			Epic:        m.Epic,
			Status:      m.MarketStatus,
			MinDealSize: minSize,
		})
	}
	return instruments, nil
}

type apiPrice struct {
	Bid float64 `json:"bid"`
	Ask float64 `json:"ask"`
}

func (p apiPrice) mid() float64 { return (p.Bid + p.Ask) / 2 }

type apiBar struct {
	SnapshotTime string   `json:"snapshotTime"`
	OpenPrice    apiPrice `json:"openPrice"`
	HighPrice    apiPrice `json:"highPrice"`
	LowPrice     apiPrice `json:"lowPrice"`
	ClosePrice   apiPrice `json:"closePrice"`
	Volume       float64  `json:"lastTradedVolume"`
}

type pricesResponse struct {
	Prices []apiBar `json:"prices"`
}

// Timestamp layouts the broker has been observed to emit.
var snapshotLayouts = []string{"2006-01-02T15:04:05", time.RFC3339}

// GetHistoricalPrices fetches up to max bars of history for an epic at the
// given resolution (e.g. "HOUR", "DAY").
func (c *Client) GetHistoricalPrices(ctx context.Context, epic, resolution string, max int) (market.Series, error) {
	params := url.Values{
		"resolution": []string{resolution},
		"max":        []string{strconv.Itoa(max)},
	}

	raw, err := c.Request(ctx, http.MethodGet, "/prices/"+epic, nil, params)
	if err != nil {
		return nil, err
	}

	var resp pricesResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode prices: %w", err)
	}

	series := make(market.Series, 0, len(resp.Prices))
	for _, b := range resp.Prices {
		t, err := parseSnapshotTime(b.SnapshotTime)
		if err != nil {
			return nil, fmt.Errorf("parse time %s: %w", b.SnapshotTime, err)
		}
		series = append(series, market.Candle{
			Open:   b.OpenPrice.mid(),
			High:   b.HighPrice.mid(),
			Low:    b.LowPrice.mid(),
			Close:  b.ClosePrice.mid(),
			Time:   t,
			Volume: b.Volume,
		})
	}
	series.Sort()
	return series, nil
}

func parseSnapshotTime(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range snapshotLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

type accountsResponse struct {
	Accounts []AccountInfo `json:"accounts"`
}

// GetAccountInfo returns the first account's balance snapshot.
func (c *Client) GetAccountInfo(ctx context.Context) (*AccountInfo, error) {
	raw, err := c.Request(ctx, http.MethodGet, "/accounts", nil, nil)
	if err != nil {
		return nil, err
	}

	var resp accountsResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode accounts: %w", err)
	}
	if len(resp.Accounts) == 0 {
		return nil, fmt.Errorf("capital: no accounts in response")
	}
	return &resp.Accounts[0], nil
}

type dealResponse struct {
	DealReference string `json:"dealReference"`
}

// PlaceOrder opens a position and returns the broker deal reference.
func (c *Client) PlaceOrder(ctx context.Context, req OrderRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	raw, err := c.Request(ctx, http.MethodPost, "/positions", req, nil)
	if err != nil {
		return "", err
	}

	var resp dealResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("decode deal reference: %w", err)
	}
	return resp.DealReference, nil
}

// ClosePosition flattens an open position by deal id.
func (c *Client) ClosePosition(ctx context.Context, dealID string) error {
	body := map[string]string{"direction": DirectionNone}
	_, err := c.Request(ctx, http.MethodPost, "/positions/"+dealID, body, nil)
	return err
}

// UpdateStop moves a position's stop-loss level.
func (c *Client) UpdateStop(ctx context.Context, dealID string, level float64) error {
	body := map[string]float64{"stopLevel": level}
	_, err := c.Request(ctx, http.MethodPut, "/positions/"+dealID+"/stop-level", body, nil)
	return err
}

// UpdateLimit moves a position's take-profit level.
func (c *Client) UpdateLimit(ctx context.Context, dealID string, level float64) error {
	body := map[string]float64{"profitLevel": level}
	_, err := c.Request(ctx, http.MethodPut, "/positions/"+dealID+"/profit-level", body, nil)
	return err
}
