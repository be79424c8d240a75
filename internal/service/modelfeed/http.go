package modelfeed

import (
	"context"
	"fmt"
	"time"

	"TradeGate/internal/domain/models"
	domrepo "TradeGate/internal/domain/repository"
	"TradeGate/internal/service/feed"
	"TradeGate/pkg/config"
)

// HTTPModelFeed talks to the external model provider that serves
// calibrated probability triples per bar per timeframe. Model training
// lives entirely on that side; this client only consumes predictions.
type HTTPModelFeed struct {
	base *feed.HTTPBase
}

func New(cfg *config.Config) *HTTPModelFeed {
	return &HTTPModelFeed{
		base: feed.NewHTTPBase(cfg.ModelProvider.URL, cfg.ModelProvider.Timeout, feed.Retry{
			MaxAttempts: cfg.ModelProvider.Retry.MaxAttempts,
			Min:         cfg.ModelProvider.Retry.BackoffMin,
			Max:         cfg.ModelProvider.Retry.BackoffMax,
			MaxElapsed:  cfg.ModelProvider.Retry.MaxElapsed,
		}),
	}
}

type predictReq struct {
	Symbol    string  `json:"symbol"`
	Timeframe string  `json:"timeframe"`
	Timestamp int64   `json:"timestamp"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

type predictResp struct {
	ProbaUp      float64 `json:"proba_up"`
	ProbaDown    float64 `json:"proba_down"`
	ProbaNeutral float64 `json:"proba_neutral"`
	Alpha        float64 `json:"alpha"`
	Confidence   float64 `json:"confidence"`
}

// Predict fetches one prediction. The probability triple collapses to a
// signed signal (proba_up - proba_down); non-finite fields come back
// coerced to the neutral defaults rather than surfacing as errors.
func (f *HTTPModelFeed) Predict(ctx context.Context, symbol string, tf domrepo.Timeframe, bar models.Bar) (models.SourcePrediction, error) {
	var pr predictResp
	req := predictReq{
		Symbol:    symbol,
		Timeframe: string(tf),
		Timestamp: bar.Timestamp.Unix(),
		Close:     bar.Close,
		Volume:    bar.Volume,
	}
	if err := f.base.PostJSON(ctx, "/predict", req, &pr); err != nil {
		return models.SourcePrediction{}, fmt.Errorf("model predict: %w", err)
	}

	p := models.SourcePrediction{
		Source:     "model",
		Timeframe:  string(tf),
		Timestamp:  time.Now().UTC(),
		Signal:     models.Finite(pr.ProbaUp, 0) - models.Finite(pr.ProbaDown, 0),
		Alpha:      pr.Alpha,
		Confidence: pr.Confidence,
	}
	return p.Sanitized(), nil
}

var _ domrepo.ModelFeed = (*HTTPModelFeed)(nil)
