package cohort

import (
	"context"
	"fmt"

	"TradeGate/internal/domain/models"
	domrepo "TradeGate/internal/domain/repository"
	applogger "TradeGate/pkg/logger"
)

// CachedFeed wraps a live cohort feed with a persisted last-known-signal
// store. Successful fetches are persisted; when the live fetch fails after
// its retry budget, the persisted record is served only while it is inside
// the staleness ceiling. Older records read as absent and the error
// surfaces so the caller skips the cycle instead of trading on stale data.
type CachedFeed struct {
	live    domrepo.CohortFeed
	store   domrepo.SignalStateStore
	metrics domrepo.Metrics
	l       *applogger.Logger
}

func NewCachedFeed(live domrepo.CohortFeed, store domrepo.SignalStateStore) *CachedFeed {
	return &CachedFeed{live: live, store: store}
}

// SetLogger injects a structured logger.
func (c *CachedFeed) SetLogger(l *applogger.Logger) { c.l = l }

// SetMetrics injects the metrics recorder.
func (c *CachedFeed) SetMetrics(m domrepo.Metrics) { c.metrics = m }

// Fetch returns the signal and whether it came from the persisted cache.
func (c *CachedFeed) FetchCached(ctx context.Context, symbol string) (models.CohortSignal, bool, error) {
	sig, err := c.live.Fetch(ctx, symbol)
	if err == nil {
		if c.store != nil {
			// Persistence failure degrades restart behavior but must not
			// block the current cycle.
			if saveErr := c.store.Save(ctx, sig); saveErr != nil {
				if c.metrics != nil {
					c.metrics.RecordError("state")
				}
				if c.l != nil {
					c.l.Warn("cohort state save failed", applogger.Error(saveErr))
				}
			}
		}
		return sig, false, nil
	}

	if c.store != nil {
		cached, ok, loadErr := c.store.Load(ctx, symbol)
		if loadErr == nil && ok {
			return cached, true, nil
		}
	}
	return models.CohortSignal{}, false, fmt.Errorf("cohort feed unavailable: %w", err)
}

// Fetch satisfies CohortFeed for callers that do not care about the
// cached/live distinction.
func (c *CachedFeed) Fetch(ctx context.Context, symbol string) (models.CohortSignal, error) {
	sig, _, err := c.FetchCached(ctx, symbol)
	return sig, err
}

var _ domrepo.CohortFeed = (*CachedFeed)(nil)
