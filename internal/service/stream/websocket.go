package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"TradeGate/internal/domain/models"
	drepo "TradeGate/internal/domain/repository"
	applogger "TradeGate/pkg/logger"
)

// WSBarStream implements BarStream over a WebSocket bar feed. Frames that
// are not completed bars are ignored; out-of-order bars are dropped so the
// stream stays strictly increasing in time.
type WSBarStream struct {
	url            string
	symbol         string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	logger         *applogger.Logger

	conn      *websocket.Conn
	connected bool
	lastTS    int64
}

// New creates a WebSocket bar stream for one symbol.
func New(url, symbol string, reconnectDelay, pingInterval time.Duration, l *applogger.Logger) drepo.BarStream {
	return &WSBarStream{
		url:            url,
		symbol:         symbol,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		logger:         l,
	}
}

// Connect establishes the WebSocket connection.
func (s *WSBarStream) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("bar stream connect: %w", err)
	}
	s.conn = conn
	s.connected = true
	s.logger.Info("bar stream connected", applogger.String("url", s.url))
	return nil
}

// Subscribe subscribes to the configured symbol's base-timeframe bars.
func (s *WSBarStream) Subscribe(ctx context.Context) error {
	if s.conn == nil || !s.connected {
		return fmt.Errorf("bar stream not connected")
	}
	msg := map[string]string{"type": "subscribe", "channel": "bars", "symbol": s.symbol}
	if err := s.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("subscribe %s: %w", s.symbol, err)
	}
	s.logger.Info("bar stream subscribed", applogger.String("symbol", s.symbol))
	return nil
}

type wsBar struct {
	S  string  `json:"s"`
	T  int64   `json:"t"` // ms
	O  float64 `json:"o"`
	H  float64 `json:"h"`
	L  float64 `json:"l"`
	C  float64 `json:"c"`
	V  float64 `json:"v"`
	F  float64 `json:"f"`
	Sp float64 `json:"spread_bps"`
	RV float64 `json:"rv"`
}

type wsMessage struct {
	Type string  `json:"type"`
	Data []wsBar `json:"data"`
}

// Read streams completed base bars and errors.
func (s *WSBarStream) Read(ctx context.Context) (<-chan *models.Bar, <-chan error) {
	bars := make(chan *models.Bar, 256)
	errs := make(chan error, 1)

	go func() {
		ticker := time.NewTicker(s.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if s.conn != nil {
					_ = s.conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	go func() {
		defer close(bars)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if s.conn == nil {
					errs <- fmt.Errorf("bar stream conn nil")
					return
				}
				_, b, err := s.conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("bar stream read: %w", err)
					return
				}
				var m wsMessage
				if err := json.Unmarshal(b, &m); err != nil {
					continue
				}
				if m.Type != "bar" {
					continue
				}
				for _, d := range m.Data {
					if d.S != s.symbol {
						continue
					}
					if d.T <= s.lastTS {
						// strictly increasing; drop replays
						continue
					}
					s.lastTS = d.T
					bar := models.Bar{
						Timestamp:   time.UnixMilli(d.T).UTC(),
						Symbol:      d.S,
						Open:        d.O,
						High:        d.H,
						Low:         d.L,
						Close:       d.C,
						Volume:      d.V,
						FundingRate: d.F,
						SpreadBps:   d.Sp,
						RealizedVol: d.RV,
					}
					bar = bar.Sanitized()
					select {
					case bars <- &bar:
					default:
						// drop on backpressure; the next bar supersedes
					}
				}
			}
		}
	}()

	return bars, errs
}

// Reconnect closes and re-establishes the connection.
func (s *WSBarStream) Reconnect(ctx context.Context) error {
	_ = s.Close()
	select {
	case <-time.After(s.reconnectDelay):
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := s.Connect(ctx); err != nil {
		return err
	}
	return s.Subscribe(ctx)
}

// Close closes the connection.
func (s *WSBarStream) Close() error {
	s.connected = false
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// IsConnected indicates status.
func (s *WSBarStream) IsConnected() bool { return s.connected }
