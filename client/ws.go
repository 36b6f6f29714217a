package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"

	"stopbot/logger"
)

const DefaultMarketWSURL = "wss://ws-subscriptions-clob.polymarket.com/ws/market"

// MarketStreamCallbacks receives push updates from the market channel.
// Only the book-shaped events matter to the engine; both are re-derived
// into quotes by the caller.
type MarketStreamCallbacks struct {
	OnBook       func(BookMessage)
	OnBestBidAsk func(BestBidAskMessage)
}

// MarketStream maintains a websocket subscription to the market channel,
// reconnecting with exponential backoff when the connection drops.
type MarketStream struct {
	url          string
	assetIDs     []string
	callbacks    MarketStreamCallbacks
	log          *logger.Logger
	pingInterval time.Duration

	mu   sync.Mutex
	conn *websocket.Conn
}

func NewMarketStream(url string, assetIDs []string, callbacks MarketStreamCallbacks, log *logger.Logger) *MarketStream {
	if url == "" {
		url = DefaultMarketWSURL
	}
	return &MarketStream{
		url:          url,
		assetIDs:     assetIDs,
		callbacks:    callbacks,
		log:          log,
		pingInterval: 50 * time.Second,
	}
}

func (ms *MarketStream) connect() error {
	conn, resp, err := websocket.DefaultDialer.Dial(ms.url, http.Header{})
	if err != nil {
		if resp != nil {
			ms.log.Error("ws_connect_failed", "status", resp.Status, "err", err)
		}
		return err
	}

	subMsg := WSSubscribeMessage{
		Type:   "subscribe",
		Assets: ms.assetIDs,
	}
	if err := conn.WriteJSON(subMsg); err != nil {
		conn.Close()
		return fmt.Errorf("failed to send subscribe message: %w", err)
	}

	ms.mu.Lock()
	ms.conn = conn
	ms.mu.Unlock()

	ms.log.Info("ws_connected", "url", ms.url, "assets", len(ms.assetIDs))
	return nil
}

// Run connects and dispatches messages until ctx is cancelled. Dropped
// connections are re-dialed on an exponential backoff schedule; a successful
// session resets the schedule.
func (ms *MarketStream) Run(ctx context.Context) error {
	for {
		policy := backoff.WithContext(backoff.NewExponentialBackOff(), ctx)
		if err := backoff.Retry(ms.connect, policy); err != nil {
			return err
		}

		err := ms.listen(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		ms.log.Warn("ws_disconnected", "err", err)
	}
}

func (ms *MarketStream) listen(ctx context.Context) error {
	conn := ms.current()
	defer conn.Close()

	stopPing := make(chan struct{})
	defer close(stopPing)
	go ms.startPinger(conn, stopPing)

	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stopPing:
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		// The channel delivers either a single event or an array of them.
		if len(message) > 0 && message[0] == '[' {
			var arr []json.RawMessage
			if err := json.Unmarshal(message, &arr); err != nil {
				continue
			}
			for _, elem := range arr {
				ms.dispatchOne(elem)
			}
			continue
		}

		ms.dispatchOne(message)
	}
}

func (ms *MarketStream) dispatchOne(message []byte) {
	var msgType WSMessage
	if err := json.Unmarshal(message, &msgType); err != nil {
		return
	}

	switch msgType.EventType {
	case "book":
		if ms.callbacks.OnBook != nil {
			var m BookMessage
			if err := json.Unmarshal(message, &m); err == nil {
				ms.callbacks.OnBook(m)
			}
		}
	case "best_bid_ask":
		if ms.callbacks.OnBestBidAsk != nil {
			var m BestBidAskMessage
			if err := json.Unmarshal(message, &m); err == nil {
				ms.callbacks.OnBestBidAsk(m)
			}
		}
	}
}

func (ms *MarketStream) startPinger(conn *websocket.Conn, stop chan struct{}) {
	ticker := time.NewTicker(ms.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.TextMessage, []byte("PING")); err != nil {
				ms.log.Error("ping_failed", "err", err)
				return
			}
		}
	}
}

func (ms *MarketStream) current() *websocket.Conn {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.conn
}
