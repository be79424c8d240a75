package usecase

import (
	"context"
	"time"

	"TradeGate/internal/domain/models"
	drepo "TradeGate/internal/domain/repository"
	applogger "TradeGate/pkg/logger"
)

// BarCollector consumes the base-timeframe bar stream and drives the
// evaluator one bar at a time.
type BarCollector struct {
	stream  drepo.BarStream
	eval    *Evaluator
	metrics drepo.Metrics
	l       *applogger.Logger
}

// NewBarCollector creates a new BarCollector instance.
func NewBarCollector(stream drepo.BarStream, eval *Evaluator, metrics drepo.Metrics) *BarCollector {
	return &BarCollector{stream: stream, eval: eval, metrics: metrics}
}

// SetLogger injects a structured logger.
func (c *BarCollector) SetLogger(l *applogger.Logger) { c.l = l }

// IsConnected returns true if the bar stream is connected.
func (c *BarCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

func (c *BarCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	barCh, errCh := c.stream.Read(ctx)
	go c.consume(ctx, barCh, errCh)
	return nil
}

func (c *BarCollector) consume(ctx context.Context, barCh <-chan *models.Bar, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errCh:
			if !ok {
				// Stream goroutine exited without reporting; reopen.
				err = nil
			}
			if err != nil {
				c.metrics.RecordError("stream")
				if c.l != nil {
					c.l.Warn("bar stream error, reconnecting", applogger.Error(err))
				}
			}
			barCh, errCh = c.reopen(ctx)
			if barCh == nil {
				return
			}
		case b, ok := <-barCh:
			if !ok {
				// Drained after the stream goroutine exited; wait on errCh.
				barCh = nil
				continue
			}
			if b == nil {
				continue
			}
			if err := c.eval.OnBar(ctx, b); err != nil {
				c.metrics.RecordError("evaluate")
				if c.l != nil {
					c.l.Error("bar evaluation failed", applogger.Error(err))
				}
			}
		}
	}
}

// reopen re-establishes the stream and returns fresh read channels. The
// old channels are closed by the stream's read goroutine and must not be
// selected on again. Returns nil channels only when ctx is done.
func (c *BarCollector) reopen(ctx context.Context) (<-chan *models.Bar, <-chan error) {
	for {
		if ctx.Err() != nil {
			return nil, nil
		}
		if err := c.stream.Reconnect(ctx); err != nil {
			c.metrics.RecordError("stream")
			if c.l != nil {
				c.l.Warn("bar stream reconnect failed", applogger.Error(err))
			}
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return nil, nil
			}
			continue
		}
		barCh, errCh := c.stream.Read(ctx)
		return barCh, errCh
	}
}

// Shutdown closes the stream; in-flight evaluation finishes on its own.
func (c *BarCollector) Shutdown(ctx context.Context) error {
	return c.stream.Close()
}
