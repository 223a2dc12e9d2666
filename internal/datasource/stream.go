package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/graphtrader/internal/models"
)

// BarHandler is called for every closed bar received from the stream
type BarHandler func(symbol string, bar models.Bar) error

// KlineStreamClient handles the WebSocket kline stream. Only closed candles
// are forwarded to handlers; in-progress updates are ignored. A dropped
// connection is redialed with backoff and the subscription replayed; the
// client only stays down after Close or once retries are exhausted.
type KlineStreamClient struct {
	baseURL string
	apiKey  string

	mu              sync.RWMutex
	conn            *websocket.Conn
	isConnected     bool
	closed          bool
	handlers        []BarHandler
	lastMessageTime time.Time
	subSymbols      []string
	subTimeframe    string

	reconnectConfig ReconnectConfig
	log             *logrus.Logger
}

// ReconnectConfig controls reconnection behavior
type ReconnectConfig struct {
	MaxRetries        int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}

// DefaultReconnectConfig returns default reconnection configuration
func DefaultReconnectConfig() ReconnectConfig {
	return ReconnectConfig{
		MaxRetries:        10,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 1.5,
	}
}

// klineEvent is one stream payload
type klineEvent struct {
	Symbol string       `json:"symbol"`
	Kline  klineMessage `json:"kline"`
}

type klineMessage struct {
	OpenTime int64           `json:"t"`
	Open     json.RawMessage `json:"o"`
	High     json.RawMessage `json:"h"`
	Low      json.RawMessage `json:"l"`
	Close    json.RawMessage `json:"c"`
	Volume   json.RawMessage `json:"v"`
	Closed   bool            `json:"x"`
}

// NewKlineStreamClient creates a new kline stream client
func NewKlineStreamClient(baseURL, apiKey string, log *logrus.Logger) *KlineStreamClient {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &KlineStreamClient{
		baseURL:         baseURL,
		apiKey:          apiKey,
		handlers:        make([]BarHandler, 0),
		reconnectConfig: DefaultReconnectConfig(),
		log:             log,
	}
}

// SetReconnectConfig overrides the reconnect behavior. Must be called
// before Connect.
func (s *KlineStreamClient) SetReconnectConfig(cfg ReconnectConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reconnectConfig = cfg
}

// Connect establishes the WebSocket connection and starts the read loop
func (s *KlineStreamClient) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.isConnected {
		s.mu.Unlock()
		return fmt.Errorf("already connected")
	}
	s.closed = false
	s.mu.Unlock()

	s.log.WithField("url", s.baseURL).Info("Connecting to kline stream")
	if err := s.dial(ctx); err != nil {
		return fmt.Errorf("failed to connect to stream: %w", err)
	}

	go s.run(ctx)
	return nil
}

func (s *KlineStreamClient) dial(ctx context.Context) error {
	wsURL := fmt.Sprintf("%s/stream", s.baseURL)
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	conn, _, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.conn = conn
	s.isConnected = true
	s.lastMessageTime = time.Now()
	s.mu.Unlock()
	return nil
}

// run owns the connection lifecycle: it drains the read loop and redials
// with backoff when the connection drops, replaying the subscription on
// success. It exits on Close, context cancellation, or exhausted retries.
func (s *KlineStreamClient) run(ctx context.Context) {
	for {
		s.readMessages()
		if s.IsClosed() || ctx.Err() != nil {
			return
		}
		if err := s.reconnect(ctx); err != nil {
			s.log.WithError(err).Error("Kline stream reconnect gave up")
			s.Close()
			return
		}
	}
}

func (s *KlineStreamClient) reconnect(ctx context.Context) error {
	backoff := s.reconnectConfig.InitialBackoff
	for attempt := 1; attempt <= s.reconnectConfig.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		if err := s.dial(ctx); err != nil {
			s.log.WithError(err).WithField("attempt", attempt).Warn("Kline stream reconnect failed")
			backoff = time.Duration(float64(backoff) * s.reconnectConfig.BackoffMultiplier)
			if backoff > s.reconnectConfig.MaxBackoff {
				backoff = s.reconnectConfig.MaxBackoff
			}
			continue
		}

		s.log.WithField("attempt", attempt).Info("Kline stream reconnected")
		return s.resubscribe()
	}
	return fmt.Errorf("reconnect failed after %d attempts", s.reconnectConfig.MaxRetries)
}

// Subscribe requests closed-candle updates for the given symbols. The
// subscription is remembered and replayed after a reconnect.
func (s *KlineStreamClient) Subscribe(ctx context.Context, symbols []string, timeframe string) error {
	s.mu.Lock()
	s.subSymbols = append([]string(nil), symbols...)
	s.subTimeframe = timeframe
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{
		"symbols":   len(symbols),
		"timeframe": timeframe,
	}).Info("Subscribing to kline stream")
	return s.sendMessage(s.subscribeMessage(symbols, timeframe))
}

func (s *KlineStreamClient) resubscribe() error {
	s.mu.RLock()
	symbols := s.subSymbols
	timeframe := s.subTimeframe
	s.mu.RUnlock()

	if len(symbols) == 0 {
		return nil
	}
	return s.sendMessage(s.subscribeMessage(symbols, timeframe))
}

func (s *KlineStreamClient) subscribeMessage(symbols []string, timeframe string) map[string]interface{} {
	sub := map[string]interface{}{
		"op":        "subscribe",
		"symbols":   symbols,
		"timeframe": timeframe,
	}
	if s.apiKey != "" {
		sub["apiKey"] = s.apiKey
	}
	return sub
}

// AddHandler registers a closed-bar handler
func (s *KlineStreamClient) AddHandler(handler BarHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = append(s.handlers, handler)
}

// IsConnected returns whether the stream is connected. It reads false
// while a reconnect is in flight.
func (s *KlineStreamClient) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isConnected
}

// IsClosed reports whether the client has shut down for good, either via
// Close or after exhausting reconnect attempts.
func (s *KlineStreamClient) IsClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// LastMessageTime returns the time of the last received message
func (s *KlineStreamClient) LastMessageTime() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastMessageTime
}

// Close terminates the connection and disables reconnection
func (s *KlineStreamClient) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.isConnected = false
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

func (s *KlineStreamClient) readMessages() {
	for {
		s.mu.RLock()
		conn := s.conn
		s.mu.RUnlock()
		if conn == nil {
			return
		}

		var event klineEvent
		if err := conn.ReadJSON(&event); err != nil {
			s.mu.Lock()
			if !s.closed {
				s.log.WithError(err).Warn("Stream read failed")
			}
			s.isConnected = false
			conn.Close()
			s.mu.Unlock()
			return
		}

		s.mu.Lock()
		s.lastMessageTime = time.Now()
		handlers := s.handlers
		s.mu.Unlock()

		if !event.Kline.Closed {
			continue
		}
		bar, err := event.Kline.toBar()
		if err != nil {
			s.log.WithError(err).WithField("symbol", event.Symbol).Warn("Dropping malformed kline")
			continue
		}
		for _, handler := range handlers {
			if err := handler(event.Symbol, bar); err != nil {
				s.log.WithError(err).WithField("symbol", event.Symbol).Warn("Bar handler failed")
			}
		}
	}
}

func (s *KlineStreamClient) sendMessage(msg interface{}) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.isConnected || s.conn == nil {
		return fmt.Errorf("not connected")
	}
	return s.conn.WriteJSON(msg)
}

func (m klineMessage) toBar() (models.Bar, error) {
	names := []string{"open", "high", "low", "close", "volume"}
	raws := []json.RawMessage{m.Open, m.High, m.Low, m.Close, m.Volume}
	values := make([]float64, 5)
	for i, raw := range raws {
		d, err := parseDecimalField(raw)
		if err != nil {
			return models.Bar{}, fmt.Errorf("invalid %s: %w", names[i], err)
		}
		values[i] = d.InexactFloat64()
	}
	bar := models.Bar{
		Time:   time.UnixMilli(m.OpenTime).UTC(),
		Open:   values[0],
		High:   values[1],
		Low:    values[2],
		Close:  values[3],
		Volume: values[4],
	}
	if err := bar.Validate(); err != nil {
		return models.Bar{}, err
	}
	return bar, nil
}
