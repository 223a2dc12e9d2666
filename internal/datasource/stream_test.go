package datasource

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/graphtrader/internal/models"
)

func TestKlineStreamReconnectsAndResubscribes(t *testing.T) {
	upgrader := websocket.Upgrader{}
	var mu sync.Mutex
	connections := 0
	subscriptions := 0

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stream", r.URL.Path)
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var sub map[string]interface{}
		if err := conn.ReadJSON(&sub); err != nil {
			return
		}
		assert.Equal(t, "subscribe", sub["op"])

		mu.Lock()
		connections++
		subscriptions++
		n := connections
		mu.Unlock()

		// drop the first connection right after the subscribe arrives
		if n == 1 {
			return
		}

		assert.NoError(t, conn.WriteJSON(map[string]interface{}{
			"symbol": "EURUSD",
			"kline": map[string]interface{}{
				"t": time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC).UnixMilli(),
				"o": "1.1000",
				"h": "1.1050",
				"l": "1.0990",
				"c": "1.1020",
				"v": "150",
				"x": true,
			},
		}))
		// hold the connection open until the client closes it
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	client := NewKlineStreamClient(wsURL, "", testLogger())
	client.SetReconnectConfig(ReconnectConfig{
		MaxRetries:        5,
		InitialBackoff:    10 * time.Millisecond,
		MaxBackoff:        50 * time.Millisecond,
		BackoffMultiplier: 1.5,
	})

	received := make(chan models.Bar, 1)
	client.AddHandler(func(symbol string, bar models.Bar) error {
		assert.Equal(t, "EURUSD", symbol)
		received <- bar
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, client.Connect(ctx))
	defer client.Close()
	require.NoError(t, client.Subscribe(ctx, []string{"EURUSD"}, "1h"))

	select {
	case bar := <-received:
		assert.InDelta(t, 1.1020, bar.Close, 1e-9)
	case <-time.After(5 * time.Second):
		t.Fatal("no bar delivered after reconnect")
	}
	assert.False(t, client.IsClosed())

	mu.Lock()
	defer mu.Unlock()
	assert.GreaterOrEqual(t, connections, 2, "client should have redialed")
	assert.GreaterOrEqual(t, subscriptions, 2, "subscription should be replayed")
}

func TestKlineStreamGivesUpAfterMaxRetries(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn.Close()
	}))

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	client := NewKlineStreamClient(wsURL, "", testLogger())
	client.SetReconnectConfig(ReconnectConfig{
		MaxRetries:        2,
		InitialBackoff:    5 * time.Millisecond,
		MaxBackoff:        10 * time.Millisecond,
		BackoffMultiplier: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, client.Connect(ctx))
	defer client.Close()

	// every redial lands on a dead server, so the client must close itself
	srv.Close()
	require.Eventually(t, client.IsClosed, 3*time.Second, 20*time.Millisecond)
}
