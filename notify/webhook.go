// Package notify forwards bus events to an outbound webhook. Delivery is
// fire and forget: a failed or slow webhook never blocks trading.
package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/johnmagusrecords/tradebot/events"
)

// Embed colors for the alert cards.
const (
	colorGreen  = 0x2ecc71
	colorRed    = 0xe74c3c
	colorOrange = 0xe67e22
	colorGray   = 0x95a5a6
)

// WebhookNotifier sends alerts to a Discord-compatible webhook
type WebhookNotifier struct {
	webhookURL string
	enabled    bool
	client     *http.Client
	log        *slog.Logger
}

func NewWebhookNotifier(webhookURL string, log *slog.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		webhookURL: webhookURL,
		enabled:    webhookURL != "",
		client:     &http.Client{Timeout: 10 * time.Second},
		log:        log,
	}
}

// Consume drains the event channel, posting an alert per event worth
// telling a human about. Returns when the channel closes.
func (w *WebhookNotifier) Consume(ch <-chan events.Event) {
	for e := range ch {
		title, message, color, ok := render(e)
		if !ok {
			continue
		}
		if err := w.SendAlert(title, message, color); err != nil {
			w.log.Warn("webhook delivery failed", "kind", string(e.Kind), "err", err)
		}
	}
}

// render maps an event to an alert card. ok=false filters out chatter
// not worth a notification.
func render(e events.Event) (title, message string, color int, ok bool) {
	switch p := e.Payload.(type) {
	case events.PositionOpened:
		return fmt.Sprintf("Opened %s %s", p.Direction, p.Symbol),
			fmt.Sprintf("size %.2f @ %.5f, stop %.5f, target %.5f", p.Size, p.EntryPrice, p.StopLoss, p.TakeProfit),
			colorGreen, true
	case events.PositionClosed:
		color := colorGreen
		if p.RealizedPL < 0 {
			color = colorRed
		}
		return fmt.Sprintf("Closed %s (%s)", p.Symbol, p.Reason),
			fmt.Sprintf("realized %+.2f, %s", p.RealizedPL, p.Result),
			color, true
	case events.DailyLimitReached:
		return "Daily limit reached",
			fmt.Sprintf("%s limit crossed at %+.2f, trading suspended until tomorrow", p.Kind, p.Realized),
			colorOrange, true
	case events.AuthFailure:
		return "Authentication failure", p.Err, colorRed, true
	default:
		return "", "", colorGray, false
	}
}

func (w *WebhookNotifier) SendAlert(title, message string, color int) error {
	if !w.enabled {
		return nil
	}

	payload := map[string]interface{}{
		"embeds": []map[string]interface{}{
			{
				"title":       title,
				"description": message,
				"color":       color,
				"footer": map[string]string{
					"text": "tradebot",
				},
				"timestamp": time.Now().Format(time.RFC3339),
			},
		},
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	resp, err := w.client.Post(w.webhookURL, "application/json", bytes.NewBuffer(data))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status: %d", resp.StatusCode)
	}

	return nil
}
