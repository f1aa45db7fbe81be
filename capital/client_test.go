package capital

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockBroker is an httptest server that issues session tokens and serves a
// configurable endpoint handler.
type mockBroker struct {
	*httptest.Server
	authCalls atomic.Int64
	handler   http.HandlerFunc
}

func newMockBroker(handler http.HandlerFunc) *mockBroker {
	b := &mockBroker{handler: handler}
	b.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/session" {
			b.authCalls.Add(1)
			w.Header().Set(headerCST, "cst-token")
			w.Header().Set(headerSecurityToken, "sec-token")
			w.WriteHeader(http.StatusOK)
			return
		}
		b.handler(w, r)
	}))
	return b
}

func newTestClient(baseURL string) *Client {
	c := NewClient(testCreds(baseURL), 100000, testLogger())
	c.transport.BaseDelay = time.Millisecond
	c.transport.MaxDelay = time.Millisecond
	c.session.authPolicy.BaseDelay = time.Millisecond
	c.session.authPolicy.MaxDelay = time.Millisecond
	return c
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestRequestSendsTokenHeaders(t *testing.T) {
	broker := newMockBroker(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get(headerAPIKey))
		assert.Equal(t, "cst-token", r.Header.Get(headerCST))
		assert.Equal(t, "sec-token", r.Header.Get(headerSecurityToken))
		writeJSON(t, w, map[string]string{"ok": "true"})
	})
	defer broker.Close()

	c := newTestClient(broker.URL)
	raw, err := c.Request(context.Background(), http.MethodGet, "/accounts", nil, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":"true"}`, string(raw))
	assert.EqualValues(t, 1, broker.authCalls.Load())
}

func TestRequestRetriesOnceOn401(t *testing.T) {
	var endpointCalls atomic.Int64
	broker := newMockBroker(func(w http.ResponseWriter, r *http.Request) {
		if endpointCalls.Add(1) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeJSON(t, w, map[string]string{"ok": "true"})
	})
	defer broker.Close()

	c := newTestClient(broker.URL)
	raw, err := c.Request(context.Background(), http.MethodGet, "/accounts", nil, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":"true"}`, string(raw))

	// Initial login plus exactly one re-authentication.
	assert.EqualValues(t, 2, broker.authCalls.Load())
	assert.EqualValues(t, 2, endpointCalls.Load())
}

func TestRequestDoesNotRetryTwiceOn401(t *testing.T) {
	broker := newMockBroker(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	defer broker.Close()

	c := newTestClient(broker.URL)
	_, err := c.Request(context.Background(), http.MethodGet, "/accounts", nil, nil)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.EqualValues(t, 2, broker.authCalls.Load())
}

func TestRequestRemoteError(t *testing.T) {
	broker := newMockBroker(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("bad epic"))
	})
	defer broker.Close()

	c := newTestClient(broker.URL)
	_, err := c.Request(context.Background(), http.MethodGet, "/markets", nil, nil)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "bad epic", apiErr.Body)
}

func TestRequestNonJSONSuccess(t *testing.T) {
	broker := newMockBroker(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("OK"))
	})
	defer broker.Close()

	c := newTestClient(broker.URL)
	raw, err := c.Request(context.Background(), http.MethodGet, "/ping", nil, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(raw))
}

func TestRequestUnauthenticatedFailFast(t *testing.T) {
	c := newTestClient("http://127.0.0.1:1")
	creds := testCreds("http://127.0.0.1:1")
	creds.APIKey = ""
	c.session = NewSessionManager(creds, nil, testLogger())

	_, err := c.Request(context.Background(), http.MethodGet, "/accounts", nil, nil)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestGetMarkets(t *testing.T) {
	broker := newMockBroker(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets", r.URL.Path)
		assert.Equal(t, "bitcoin", r.URL.Query().Get("searchTerm"))
		writeJSON(t, w, marketsResponse{Markets: []marketEntry{
			{InstrumentName: "Bitcoin/USD", Epic: "BTCUSD", MarketStatus: "TRADEABLE", MinDealSize: 0.01},
			{InstrumentName: "Ethereum/USD", Epic: "ETHUSD", MarketStatus: "CLOSED"},
		}})
	})
	defer broker.Close()

	c := newTestClient(broker.URL)
	instruments, err := c.GetMarkets(context.Background(), "bitcoin")
	require.NoError(t, err)
	require.Len(t, instruments, 2)

	assert.Equal(t, "BTCUSD", instruments[0].Epic)
	assert.Equal(t, 0.01, instruments[0].MinDealSize)
	assert.True(t, instruments[0].Tradeable())

	// Missing min size defaults to a positive floor.
	assert.Greater(t, instruments[1].MinDealSize, 0.0)
	assert.False(t, instruments[1].Tradeable())
}

func TestGetHistoricalPrices(t *testing.T) {
	broker := newMockBroker(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/prices/BTCUSD", r.URL.Path)
		assert.Equal(t, "HOUR", r.URL.Query().Get("resolution"))
		assert.Equal(t, "10", r.URL.Query().Get("max"))
		// Deliberately out of order; the client must sort ascending.
		writeJSON(t, w, pricesResponse{Prices: []apiBar{
			{
				SnapshotTime: "2025-06-01T11:00:00",
				OpenPrice:    apiPrice{Bid: 101, Ask: 103},
				HighPrice:    apiPrice{Bid: 104, Ask: 106},
				LowPrice:     apiPrice{Bid: 100, Ask: 102},
				ClosePrice:   apiPrice{Bid: 102, Ask: 104},
				Volume:       5,
			},
			{
				SnapshotTime: "2025-06-01T10:00:00",
				OpenPrice:    apiPrice{Bid: 99, Ask: 101},
				HighPrice:    apiPrice{Bid: 100, Ask: 102},
				LowPrice:     apiPrice{Bid: 98, Ask: 100},
				ClosePrice:   apiPrice{Bid: 100, Ask: 102},
				Volume:       3,
			},
		}})
	})
	defer broker.Close()

	c := newTestClient(broker.URL)
	series, err := c.GetHistoricalPrices(context.Background(), "BTCUSD", "HOUR", 10)
	require.NoError(t, err)
	require.Len(t, series, 2)

	assert.True(t, series[0].Time.Before(series[1].Time))
	assert.Equal(t, 101.0, series[0].Close) // mid of 100/102
	assert.Equal(t, 103.0, series[1].Close)
}

func TestGetAccountInfo(t *testing.T) {
	broker := newMockBroker(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, accountsResponse{Accounts: []AccountInfo{
			{AccountID: "A1", Currency: "USD", Balance: 10000, Available: 9500},
		}})
	})
	defer broker.Close()

	c := newTestClient(broker.URL)
	info, err := c.GetAccountInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "A1", info.AccountID)
	assert.Equal(t, 10000.0, info.Balance)
}

func TestPlaceOrder(t *testing.T) {
	broker := newMockBroker(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/positions", r.URL.Path)

		var req OrderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "BTCUSD", req.Epic)
		assert.Equal(t, DirectionBuy, req.Direction)

		writeJSON(t, w, dealResponse{DealReference: "DEAL-1"})
	})
	defer broker.Close()

	c := newTestClient(broker.URL)
	ref, err := c.PlaceOrder(context.Background(), OrderRequest{
		Epic:      "BTCUSD",
		Direction: DirectionBuy,
		Size:      0.5,
		StopLevel: 95,
		TPLevel:   110,
	})
	require.NoError(t, err)
	assert.Equal(t, "DEAL-1", ref)
}

func TestOrderRequestValidate(t *testing.T) {
	valid := OrderRequest{Epic: "BTCUSD", Direction: DirectionBuy, Size: 1}
	assert.NoError(t, valid.Validate())

	cases := map[string]OrderRequest{
		"missing epic":   {Direction: DirectionBuy, Size: 1},
		"bad direction":  {Epic: "BTCUSD", Direction: "LONG", Size: 1},
		"none direction": {Epic: "BTCUSD", Direction: DirectionNone, Size: 1},
		"zero size":      {Epic: "BTCUSD", Direction: DirectionSell},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, req.Validate())
		})
	}
}

func TestUpdateStopAndLimit(t *testing.T) {
	var paths []string
	broker := newMockBroker(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path)
		writeJSON(t, w, map[string]string{"status": "ok"})
	})
	defer broker.Close()

	c := newTestClient(broker.URL)
	require.NoError(t, c.UpdateStop(context.Background(), "DEAL-1", 99.5))
	require.NoError(t, c.UpdateLimit(context.Background(), "DEAL-1", 120))
	require.NoError(t, c.ClosePosition(context.Background(), "DEAL-1"))

	assert.Equal(t, []string{
		"PUT /positions/DEAL-1/stop-level",
		"PUT /positions/DEAL-1/profit-level",
		"POST /positions/DEAL-1",
	}, paths)
}
