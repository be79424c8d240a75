package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"TradeGate/internal/domain/models"
	drepo "TradeGate/internal/domain/repository"
	applogger "TradeGate/pkg/logger"
)

// KafkaConfig parameterizes the Kafka-backed bar stream.
type KafkaConfig struct {
	Brokers  []string
	Topic    string
	GroupID  string
	Symbol   string
	MinBytes int
	MaxBytes int
}

// KafkaBarStream implements BarStream on a Kafka topic for deployments
// where an upstream collector already lands bars on the broker.
type KafkaBarStream struct {
	cfg    KafkaConfig
	logger *applogger.Logger

	reader    *kafka.Reader
	connected bool
	lastTS    int64
}

// NewKafka creates a Kafka-backed bar stream for one symbol.
func NewKafka(cfg KafkaConfig, l *applogger.Logger) drepo.BarStream {
	if cfg.MinBytes <= 0 {
		cfg.MinBytes = 1
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 1 << 20
	}
	return &KafkaBarStream{cfg: cfg, logger: l}
}

// Connect builds the reader; Kafka dials lazily on first fetch.
func (s *KafkaBarStream) Connect(_ context.Context) error {
	if len(s.cfg.Brokers) == 0 {
		return fmt.Errorf("kafka bar stream: brokers required")
	}
	s.reader = kafka.NewReader(kafka.ReaderConfig{
		Brokers:  s.cfg.Brokers,
		Topic:    s.cfg.Topic,
		GroupID:  s.cfg.GroupID,
		MinBytes: s.cfg.MinBytes,
		MaxBytes: s.cfg.MaxBytes,
		MaxWait:  time.Second,
	})
	s.connected = true
	s.logger.Info("kafka bar stream ready", applogger.String("topic", s.cfg.Topic))
	return nil
}

// Subscribe is implicit in the consumer group membership.
func (s *KafkaBarStream) Subscribe(_ context.Context) error {
	if s.reader == nil {
		return fmt.Errorf("kafka bar stream not connected")
	}
	return nil
}

type kafkaBar struct {
	Symbol      string  `json:"symbol"`
	Timestamp   int64   `json:"timestamp"` // ms
	Open        float64 `json:"open"`
	High        float64 `json:"high"`
	Low         float64 `json:"low"`
	Close       float64 `json:"close"`
	Volume      float64 `json:"volume"`
	FundingRate float64 `json:"funding_rate"`
	SpreadBps   float64 `json:"spread_bps"`
	RealizedVol float64 `json:"realized_vol"`
}

// Read streams bars from the topic.
func (s *KafkaBarStream) Read(ctx context.Context) (<-chan *models.Bar, <-chan error) {
	bars := make(chan *models.Bar, 256)
	errs := make(chan error, 1)

	go func() {
		defer close(bars)
		defer close(errs)
		for {
			msg, err := s.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				errs <- fmt.Errorf("kafka bar read: %w", err)
				return
			}
			var kb kafkaBar
			if err := json.Unmarshal(msg.Value, &kb); err != nil {
				s.logger.Warn("malformed bar message dropped", applogger.Error(err))
				continue
			}
			if kb.Symbol != s.cfg.Symbol || kb.Timestamp <= s.lastTS {
				continue
			}
			s.lastTS = kb.Timestamp
			bar := models.Bar{
				Timestamp:   time.UnixMilli(kb.Timestamp).UTC(),
				Symbol:      kb.Symbol,
				Open:        kb.Open,
				High:        kb.High,
				Low:         kb.Low,
				Close:       kb.Close,
				Volume:      kb.Volume,
				FundingRate: kb.FundingRate,
				SpreadBps:   kb.SpreadBps,
				RealizedVol: kb.RealizedVol,
			}
			bar = bar.Sanitized()
			select {
			case bars <- &bar:
			case <-ctx.Done():
				return
			}
		}
	}()

	return bars, errs
}

// Reconnect rebuilds the reader.
func (s *KafkaBarStream) Reconnect(ctx context.Context) error {
	_ = s.Close()
	return s.Connect(ctx)
}

// Close shuts the reader down.
func (s *KafkaBarStream) Close() error {
	s.connected = false
	if s.reader != nil {
		return s.reader.Close()
	}
	return nil
}

// IsConnected indicates status.
func (s *KafkaBarStream) IsConnected() bool { return s.connected }
