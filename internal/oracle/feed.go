package oracle

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/gorilla/websocket"
)

// Feed subscribes to an oracle relay's websocket stream and emits
// decoded quotes as they are published. Deployments that poll on an
// interval can ignore it; it exists for sub-interval price updates.
type Feed struct {
	url        string
	publicKey  string
	priceScale int64
}

// NewFeed creates a websocket quote feed.
func NewFeed(url, publicKey string, priceScale int64) *Feed {
	return &Feed{url: url, publicKey: publicKey, priceScale: priceScale}
}

// Subscribe dials the relay and returns a channel of decoded quotes.
// The channel closes when the context is cancelled or the connection
// drops; reconnecting is the caller's decision.
func (f *Feed) Subscribe(ctx context.Context) (<-chan Quote, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing oracle feed: %w", err)
	}

	sub := map[string]string{"action": "subscribe", "publicKey": f.publicKey}
	if err := conn.WriteJSON(sub); err != nil {
		conn.Close()
		return nil, fmt.Errorf("subscribing to oracle feed: %w", err)
	}

	quotes := make(chan Quote)

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	go func() {
		defer close(quotes)
		defer conn.Close()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				if ctx.Err() == nil {
					slog.Warn("oracle feed closed", "error", err)
				}
				return
			}

			var msg relayMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				slog.Warn("oracle feed: unparseable frame", "error", err)
				continue
			}
			payload, err := hex.DecodeString(msg.Message)
			if err != nil {
				slog.Warn("oracle feed: message is not hex", "error", err)
				continue
			}
			q, err := Decode(payload, f.priceScale)
			if err != nil {
				slog.Warn("oracle feed: undecodable payload", "error", err)
				continue
			}

			select {
			case quotes <- q:
			case <-ctx.Done():
				return
			}
		}
	}()

	return quotes, nil
}
