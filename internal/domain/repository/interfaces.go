package repository

import (
	"context"
	"time"

	"TradeGate/internal/domain/models"
)

// BarStream delivers base-timeframe bars, strictly increasing in time.
type BarStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.Bar, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// ModelFeed supplies calibrated per-bar predictions per timeframe from the
// external model provider.
type ModelFeed interface {
	Predict(ctx context.Context, symbol string, tf Timeframe, bar models.Bar) (models.SourcePrediction, error)
}

// CohortFeed supplies per-bar order-flow cohort scores.
type CohortFeed interface {
	Fetch(ctx context.Context, symbol string) (models.CohortSignal, error)
}

// SignalStateStore persists the last-known cohort signal across restarts.
// Load must treat records older than the configured staleness ceiling as
// absent, never as current.
type SignalStateStore interface {
	Save(ctx context.Context, sig models.CohortSignal) error
	Load(ctx context.Context, symbol string) (models.CohortSignal, bool, error)
}

// AuditSink records one Decision per evaluated bar and one OrderIntent per
// approved Decision for offline reconstruction of every gate's state.
type AuditSink interface {
	RecordDecision(ctx context.Context, d models.Decision) error
	RecordIntent(ctx context.Context, oi models.OrderIntent) error
	Close() error
}

// AuditStore provides read access to recorded decisions.
type AuditStore interface {
	Decisions(ctx context.Context, symbol string, from, to time.Time, limit int) ([]models.Decision, error)
	LatestDecision(ctx context.Context, symbol string) (models.Decision, error)
}

// Metrics abstracts operational counters so use cases stay transport-free.
type Metrics interface {
	RecordDecision(symbol string, direction int, vetoReason string)
	RecordIntent(symbol, side string)
	RecordCycleSkip(symbol, cause string)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
}
