package notify

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnmagusrecords/tradebot/events"
)

func TestConsumePostsAlerts(t *testing.T) {
	var mu sync.Mutex
	var bodies []map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		var body map[string]any
		require.NoError(t, json.Unmarshal(data, &body))
		mu.Lock()
		bodies = append(bodies, body)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ch := make(chan events.Event, 4)
	ch <- events.New(events.KindPositionOpened, events.PositionOpened{
		Symbol: "Gold", Direction: "BUY", Size: 2, EntryPrice: 2000, StopLoss: 1975, TakeProfit: 2050,
	})
	ch <- events.New(events.KindSignalEvaluated, events.SignalEvaluated{Symbol: "Gold", Action: "HOLD"})
	ch <- events.New(events.KindPositionClosed, events.PositionClosed{
		Symbol: "Gold", Reason: "TakeProfit", RealizedPL: 100, Result: "WIN",
	})
	close(ch)

	n.Consume(ch)

	// The HOLD evaluation is chatter and gets filtered.
	require.Len(t, bodies, 2)
	embeds := bodies[0]["embeds"].([]any)
	first := embeds[0].(map[string]any)
	assert.Equal(t, "Opened BUY Gold", first["title"])
}

func TestDisabledNotifierSendsNothing(t *testing.T) {
	n := NewWebhookNotifier("", slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.NoError(t, n.SendAlert("title", "message", colorGray))
}

func TestSendAlertReportsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, n.SendAlert("title", "message", colorRed))
}

func TestRenderDailyLimit(t *testing.T) {
	title, message, color, ok := render(events.New(events.KindDailyLimitReached, events.DailyLimitReached{
		Kind: "LOSS", Realized: -512.5,
	}))
	require.True(t, ok)
	assert.Equal(t, "Daily limit reached", title)
	assert.Contains(t, message, "-512.50")
	assert.Equal(t, colorOrange, color)
}
