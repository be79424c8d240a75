package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"TradeGate/internal/domain/models"
	drepo "TradeGate/internal/domain/repository"
	"TradeGate/internal/engine"
	"TradeGate/internal/ensemble"
	"TradeGate/internal/guard"
	"TradeGate/internal/rollup"
	applogger "TradeGate/pkg/logger"
)

// Cycle skip causes recorded in metrics.
const (
	SkipWarmup     = "warmup"
	SkipModelFeed  = "model_feed"
	SkipCohortFeed = "cohort_feed"
)

// CohortSource is a cohort feed that also reports whether the returned
// signal came from the persisted cache rather than a live fetch.
type CohortSource interface {
	FetchCached(ctx context.Context, symbol string) (models.CohortSignal, bool, error)
}

// EvaluatorConfig holds the per-instance evaluation parameters.
type EvaluatorConfig struct {
	Symbol          string
	Specs           []drepo.TimeframeSpec
	EnsembleEnabled bool
	// BarsPerDay scales per-bar notional into a daily-volume estimate for
	// the impact guard. 1440 for a 1-minute base timeframe.
	BarsPerDay int
	// ADVBars is the lookback, in base bars, of the volume EWMA.
	ADVBars int
}

// Evaluator runs the full per-bar pipeline for one symbol: rollup, model
// predictions per ready timeframe, cohort fetch with cached fallback,
// decision gates, then the risk guard for approved decisions. One instance
// serves exactly one symbol and shares no state with other instances.
type Evaluator struct {
	cfg     EvaluatorConfig
	rollup  *rollup.Manager
	model   drepo.ModelFeed
	cohort  CohortSource
	tracker *ensemble.SkillTracker
	engine  *engine.Engine
	guard   *guard.Guard
	sink    drepo.AuditSink
	metrics drepo.Metrics
	l       *applogger.Logger

	mu        sync.Mutex
	preds     map[drepo.Timeframe]models.SourcePrediction
	position  float64
	prevClose float64
	advPerBar float64
}

func NewEvaluator(
	cfg EvaluatorConfig,
	rm *rollup.Manager,
	model drepo.ModelFeed,
	cohortSrc CohortSource,
	tracker *ensemble.SkillTracker,
	eng *engine.Engine,
	g *guard.Guard,
	sink drepo.AuditSink,
	metrics drepo.Metrics,
) *Evaluator {
	if cfg.BarsPerDay <= 0 {
		cfg.BarsPerDay = 1440
	}
	if cfg.ADVBars <= 0 {
		cfg.ADVBars = 1440
	}
	return &Evaluator{
		cfg:     cfg,
		rollup:  rm,
		model:   model,
		cohort:  cohortSrc,
		tracker: tracker,
		engine:  eng,
		guard:   g,
		sink:    sink,
		metrics: metrics,
		preds:   make(map[drepo.Timeframe]models.SourcePrediction, len(cfg.Specs)),
	}
}

// SetLogger injects a structured logger.
func (e *Evaluator) SetLogger(l *applogger.Logger) { e.l = l }

// Position returns the current simulated position in base units.
func (e *Evaluator) Position() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.position
}

// OnBar runs one evaluation cycle. A feed failure skips the cycle without
// emitting a decision; the position is left untouched.
func (e *Evaluator) OnBar(ctx context.Context, base *models.Bar) error {
	if base == nil {
		return fmt.Errorf("bar is nil")
	}
	start := time.Now()
	b := base.Sanitized()

	e.mu.Lock()
	defer e.mu.Unlock()

	e.metrics.RecordLastPrice(b.Symbol, b.Close)
	e.realizeOutcome(b.Close)
	e.updateADV(b)

	emitted := e.rollup.AddBar(b)
	if err := e.refreshPredictions(ctx, b, emitted); err != nil {
		e.metrics.RecordCycleSkip(e.cfg.Symbol, SkipModelFeed)
		if e.l != nil {
			e.l.Warn("cycle skipped: model feed",
				applogger.String("symbol", e.cfg.Symbol),
				applogger.Error(err),
			)
		}
		return nil
	}

	preds, tfNames := e.currentPredictions()
	if len(preds) == 0 {
		e.metrics.RecordCycleSkip(e.cfg.Symbol, SkipWarmup)
		return nil
	}

	cohortSig, fromCache, err := e.cohort.FetchCached(ctx, e.cfg.Symbol)
	if err != nil {
		e.metrics.RecordCycleSkip(e.cfg.Symbol, SkipCohortFeed)
		if e.l != nil {
			e.l.Warn("cycle skipped: cohort feed",
				applogger.String("symbol", e.cfg.Symbol),
				applogger.Error(err),
			)
		}
		return nil
	}

	// Skill weights when the tracker is warm; otherwise the configured
	// per-timeframe weights, normalized, so the static blend still honors
	// the operator's timeframe weighting.
	var weights []float64
	if len(preds) > 1 {
		if e.cfg.EnsembleEnabled && e.tracker != nil {
			weights = e.weightsFor(tfNames)
		}
		if weights == nil {
			weights = e.staticWeights(tfNames)
		}
	}

	d := e.engine.Evaluate(engine.Input{
		Symbol:       e.cfg.Symbol,
		Timestamp:    b.Timestamp,
		Predictions:  preds,
		Weights:      weights,
		Cohort:       cohortSig,
		CohortCached: fromCache,
	})

	e.metrics.RecordDecision(d.Symbol, d.Direction, d.VetoReason)
	if err := e.sink.RecordDecision(ctx, d); err != nil {
		e.metrics.RecordError("audit")
		if e.l != nil {
			e.l.Error("audit decision failed", applogger.Error(err))
		}
	}

	if d.Approved() {
		e.applyGuard(ctx, d, b)
	}

	e.metrics.RecordLatency("evaluate", time.Since(start).Seconds())
	return nil
}

func (e *Evaluator) applyGuard(ctx context.Context, d models.Decision, b models.Bar) {
	oi := e.guard.Evaluate(d, guard.MarketState{
		LastPrice:       b.Close,
		AvgDailyVolume:  e.advPerBar * float64(e.cfg.BarsPerDay),
		CurrentPosition: e.position,
	})
	if err := e.sink.RecordIntent(ctx, oi); err != nil {
		e.metrics.RecordError("audit")
		if e.l != nil {
			e.l.Error("audit intent failed", applogger.Error(err))
		}
	}
	if oi.Vetoed() || oi.NoOp() {
		return
	}
	e.metrics.RecordIntent(oi.Symbol, oi.Side)
	e.position += oi.Quantity
	if e.l != nil {
		e.l.Info("order intent emitted",
			applogger.String("symbol", oi.Symbol),
			applogger.String("side", oi.Side),
			applogger.Any("quantity", oi.Quantity),
			applogger.Any("position", e.position),
		)
	}
}

// refreshPredictions fetches a fresh model prediction for each timeframe
// that just completed a window and has enough history. A fetch failure
// aborts the refresh so the cycle can be skipped with the caches intact.
func (e *Evaluator) refreshPredictions(ctx context.Context, b models.Bar, emitted map[drepo.Timeframe]*models.Bar) error {
	for _, spec := range e.cfg.Specs {
		rolled := emitted[spec.Name]
		if rolled == nil || !e.rollup.IsReady(spec.Name, spec.MinBars) {
			continue
		}
		p, err := e.model.Predict(ctx, e.cfg.Symbol, spec.Name, *rolled)
		if err != nil {
			return fmt.Errorf("predict %s: %w", spec.Name, err)
		}
		e.preds[spec.Name] = p
		if e.tracker != nil {
			e.tracker.Observe(string(spec.Name), p.Signal)
		}
	}
	return nil
}

// currentPredictions returns the cached prediction of every warm timeframe
// in configuration order. Higher timeframes keep contributing their most
// recent window's prediction between completions.
func (e *Evaluator) currentPredictions() ([]models.SourcePrediction, []string) {
	preds := make([]models.SourcePrediction, 0, len(e.cfg.Specs))
	names := make([]string, 0, len(e.cfg.Specs))
	for _, spec := range e.cfg.Specs {
		p, ok := e.preds[spec.Name]
		if !ok {
			continue
		}
		preds = append(preds, p)
		names = append(names, string(spec.Name))
	}
	return preds, names
}

func (e *Evaluator) weightsFor(tfNames []string) []float64 {
	bySource := make(map[string]float64, len(tfNames))
	ws := e.tracker.Weights()
	for i, src := range e.tracker.Sources() {
		if i < len(ws) {
			bySource[src] = ws[i]
		}
	}
	out := make([]float64, len(tfNames))
	for i, name := range tfNames {
		w, ok := bySource[name]
		if !ok {
			return nil
		}
		out[i] = w
	}
	return out
}

// staticWeights normalizes the configured timeframe weights over the warm
// timeframes. Returns nil when the weights carry no information, leaving
// the engine to its uniform blend.
func (e *Evaluator) staticWeights(tfNames []string) []float64 {
	byName := make(map[string]float64, len(e.cfg.Specs))
	for _, spec := range e.cfg.Specs {
		byName[string(spec.Name)] = spec.Weight
	}
	out := make([]float64, len(tfNames))
	sum := 0.0
	for i, name := range tfNames {
		w := byName[name]
		if w < 0 {
			w = 0
		}
		out[i] = w
		sum += w
	}
	if sum <= 0 {
		return nil
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

func (e *Evaluator) realizeOutcome(close float64) {
	if e.tracker != nil && e.prevClose > 0 {
		e.tracker.Realize((close - e.prevClose) / e.prevClose)
	}
	e.prevClose = close
}

func (e *Evaluator) updateADV(b models.Bar) {
	notional := b.Close * b.Volume
	if e.advPerBar == 0 {
		e.advPerBar = notional
		return
	}
	alpha := 2.0 / (float64(e.cfg.ADVBars) + 1.0)
	e.advPerBar += alpha * (notional - e.advPerBar)
}
