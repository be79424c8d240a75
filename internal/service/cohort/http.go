package cohort

import (
	"context"
	"fmt"
	"time"

	"TradeGate/internal/domain/models"
	domrepo "TradeGate/internal/domain/repository"
	"TradeGate/internal/service/feed"
	"TradeGate/pkg/config"
)

// HTTPCohortFeed fetches per-bar pros/amateurs/mood order-flow scores
// from the external cohort analytics service.
type HTTPCohortFeed struct {
	base *feed.HTTPBase
}

func New(cfg *config.Config) *HTTPCohortFeed {
	return &HTTPCohortFeed{
		base: feed.NewHTTPBase(cfg.Cohort.URL, cfg.Cohort.Timeout, feed.Retry{
			MaxAttempts: cfg.Cohort.Retry.MaxAttempts,
			Min:         cfg.Cohort.Retry.BackoffMin,
			Max:         cfg.Cohort.Retry.BackoffMax,
			MaxElapsed:  cfg.Cohort.Retry.MaxElapsed,
		}),
	}
}

type cohortReq struct {
	Symbol string `json:"symbol"`
}

type cohortResp struct {
	Pros     float64 `json:"pros"`
	Amateurs float64 `json:"amateurs"`
	Mood     float64 `json:"mood"`
}

// Fetch retrieves the current cohort scores for symbol.
func (f *HTTPCohortFeed) Fetch(ctx context.Context, symbol string) (models.CohortSignal, error) {
	var cr cohortResp
	if err := f.base.PostJSON(ctx, "/cohorts", cohortReq{Symbol: symbol}, &cr); err != nil {
		return models.CohortSignal{}, fmt.Errorf("cohort fetch: %w", err)
	}
	sig := models.CohortSignal{
		Symbol:    symbol,
		Timestamp: time.Now().UTC(),
		Pros:      cr.Pros,
		Amateurs:  cr.Amateurs,
		Mood:      cr.Mood,
	}
	return sig.Sanitized(), nil
}

var _ domrepo.CohortFeed = (*HTTPCohortFeed)(nil)
