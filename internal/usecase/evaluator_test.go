package usecase

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"TradeGate/internal/domain/models"
	drepo "TradeGate/internal/domain/repository"
	"TradeGate/internal/engine"
	"TradeGate/internal/guard"
	"TradeGate/internal/rollup"
)

type stubModel struct {
	signal float64
	alpha  float64
	conf   float64
	err    error
	calls  int
}

func (m *stubModel) Predict(_ context.Context, symbol string, tf drepo.Timeframe, bar models.Bar) (models.SourcePrediction, error) {
	m.calls++
	if m.err != nil {
		return models.SourcePrediction{}, m.err
	}
	return models.SourcePrediction{
		Source:     "model",
		Timeframe:  string(tf),
		Timestamp:  bar.Timestamp,
		Signal:     m.signal,
		Alpha:      m.alpha,
		Confidence: m.conf,
	}, nil
}

type stubCohort struct {
	mood   float64
	cached bool
	err    error
}

func (c *stubCohort) FetchCached(_ context.Context, symbol string) (models.CohortSignal, bool, error) {
	if c.err != nil {
		return models.CohortSignal{}, false, c.err
	}
	return models.CohortSignal{Symbol: symbol, Mood: c.mood}, c.cached, nil
}

type captureSink struct {
	mu        sync.Mutex
	decisions []models.Decision
	intents   []models.OrderIntent
}

func (s *captureSink) RecordDecision(_ context.Context, d models.Decision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decisions = append(s.decisions, d)
	return nil
}

func (s *captureSink) RecordIntent(_ context.Context, oi models.OrderIntent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.intents = append(s.intents, oi)
	return nil
}

func (s *captureSink) Close() error { return nil }

func (s *captureSink) decisionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.decisions)
}

type countMetrics struct {
	mu        sync.Mutex
	skips     map[string]int
	errs      map[string]int
	decisions int
	intents   int
}

func newCountMetrics() *countMetrics {
	return &countMetrics{skips: make(map[string]int), errs: make(map[string]int)}
}

func (m *countMetrics) RecordDecision(string, int, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decisions++
}

func (m *countMetrics) RecordIntent(string, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.intents++
}

func (m *countMetrics) RecordCycleSkip(_ string, cause string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.skips[cause]++
}

func (m *countMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[kind]++
}

func (m *countMetrics) RecordLastPrice(string, float64) {}
func (m *countMetrics) RecordLatency(string, float64)   {}

func (m *countMetrics) errCount(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errs[kind]
}

func testThresholds() engine.Thresholds {
	return engine.Thresholds{
		SMin:                          0.10,
		MMin:                          0.10,
		ConfMin:                       0.60,
		AlphaMin:                      0.10,
		RequireConsensus:              true,
		AllowModelOnlyWhenMoodNeutral: true,
	}
}

func testLimits() guard.Limits {
	return guard.Limits{
		EdgeScaleBps:  100,
		TakerFeeBps:   2,
		SlippageBps:   3,
		BufferBps:     2,
		ImpactK:       10_000,
		MaxImpactBps:  10,
		HardImpactBps: 25,
		BaseNotional:  100_000,
		MaxPosition:   10,
	}
}

func newTestEvaluator(specs []drepo.TimeframeSpec, model *stubModel, ch *stubCohort, sink *captureSink, m *countMetrics) *Evaluator {
	return NewEvaluator(
		EvaluatorConfig{Symbol: "BTCUSDT", Specs: specs, BarsPerDay: 1440, ADVBars: 1440},
		rollup.NewManager(specs, 500),
		model,
		ch,
		nil,
		engine.New(testThresholds()),
		guard.New(testLimits()),
		sink,
		m,
	)
}

func baseBar(seq int, close, volume float64) *models.Bar {
	return &models.Bar{
		Timestamp: time.Unix(int64(1_700_000_000+60*seq), 0).UTC(),
		Symbol:    "BTCUSDT",
		Open:      close,
		High:      close,
		Low:       close,
		Close:     close,
		Volume:    volume,
	}
}

func singleSpec() []drepo.TimeframeSpec {
	return []drepo.TimeframeSpec{{Name: "1m", Window: 1, MinBars: 1, Weight: 1}}
}

func TestEvaluatorEmitsDecisionAndIntent(t *testing.T) {
	model := &stubModel{signal: 0.40, alpha: 0.15, conf: 0.70}
	sink := &captureSink{}
	m := newCountMetrics()
	ev := newTestEvaluator(singleSpec(), model, &stubCohort{mood: 0}, sink, m)

	if err := ev.OnBar(context.Background(), baseBar(0, 100, 10)); err != nil {
		t.Fatalf("OnBar: %v", err)
	}

	if len(sink.decisions) != 1 {
		t.Fatalf("decisions = %d, want 1", len(sink.decisions))
	}
	d := sink.decisions[0]
	if !d.Approved() || d.Direction != 1 {
		t.Fatalf("decision not approved long: %+v", d)
	}
	if !d.Reasons[models.ReasonModelOnly] {
		t.Fatalf("neutral mood should take the model-only path: %+v", d.Reasons)
	}

	if len(sink.intents) != 1 {
		t.Fatalf("intents = %d, want 1", len(sink.intents))
	}
	oi := sink.intents[0]
	if oi.Vetoed() {
		t.Fatalf("intent vetoed: %s", oi.VetoReason)
	}
	if oi.Side != models.SideBuy {
		t.Fatalf("side = %q, want buy", oi.Side)
	}
	// alpha*base/price = 150 units, clamped to max position 10.
	if oi.Quantity != 10 {
		t.Fatalf("quantity = %v, want 10", oi.Quantity)
	}
	if ev.Position() != 10 {
		t.Fatalf("position = %v, want 10", ev.Position())
	}
}

func TestEvaluatorSecondBarAtTargetIsNoOp(t *testing.T) {
	model := &stubModel{signal: 0.40, alpha: 0.15, conf: 0.70}
	sink := &captureSink{}
	m := newCountMetrics()
	ev := newTestEvaluator(singleSpec(), model, &stubCohort{mood: 0}, sink, m)

	ctx := context.Background()
	if err := ev.OnBar(ctx, baseBar(0, 100, 10)); err != nil {
		t.Fatalf("OnBar 1: %v", err)
	}
	if err := ev.OnBar(ctx, baseBar(1, 100, 10)); err != nil {
		t.Fatalf("OnBar 2: %v", err)
	}

	if len(sink.intents) != 2 {
		t.Fatalf("intents = %d, want 2", len(sink.intents))
	}
	second := sink.intents[1]
	if !second.NoOp() {
		t.Fatalf("second intent should be a no-op, got %+v", second)
	}
	if ev.Position() != 10 {
		t.Fatalf("position drifted: %v", ev.Position())
	}
	if m.intents != 1 {
		t.Fatalf("executed intents = %d, want 1", m.intents)
	}
}

func TestEvaluatorSkipsCycleOnModelFailure(t *testing.T) {
	model := &stubModel{err: errors.New("provider down")}
	sink := &captureSink{}
	m := newCountMetrics()
	ev := newTestEvaluator(singleSpec(), model, &stubCohort{}, sink, m)

	if err := ev.OnBar(context.Background(), baseBar(0, 100, 10)); err != nil {
		t.Fatalf("OnBar: %v", err)
	}
	if len(sink.decisions) != 0 {
		t.Fatalf("cycle should be skipped, got %d decisions", len(sink.decisions))
	}
	if m.skips[SkipModelFeed] != 1 {
		t.Fatalf("model feed skip not recorded: %v", m.skips)
	}
	if ev.Position() != 0 {
		t.Fatalf("position must be untouched on skip: %v", ev.Position())
	}
}

func TestEvaluatorSkipsCycleOnCohortFailure(t *testing.T) {
	model := &stubModel{signal: 0.40, alpha: 0.15, conf: 0.70}
	sink := &captureSink{}
	m := newCountMetrics()
	ev := newTestEvaluator(singleSpec(), model, &stubCohort{err: errors.New("cohort down")}, sink, m)

	if err := ev.OnBar(context.Background(), baseBar(0, 100, 10)); err != nil {
		t.Fatalf("OnBar: %v", err)
	}
	if len(sink.decisions) != 0 {
		t.Fatalf("cycle should be skipped, got %d decisions", len(sink.decisions))
	}
	if m.skips[SkipCohortFeed] != 1 {
		t.Fatalf("cohort feed skip not recorded: %v", m.skips)
	}
}

func TestEvaluatorWarmupSkipUntilMinBars(t *testing.T) {
	specs := []drepo.TimeframeSpec{{Name: "1m", Window: 1, MinBars: 3, Weight: 1}}
	model := &stubModel{signal: 0.40, alpha: 0.15, conf: 0.70}
	sink := &captureSink{}
	m := newCountMetrics()
	ev := newTestEvaluator(specs, model, &stubCohort{mood: 0}, sink, m)

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := ev.OnBar(ctx, baseBar(i, 100, 10)); err != nil {
			t.Fatalf("OnBar %d: %v", i, err)
		}
	}
	if m.skips[SkipWarmup] != 2 || len(sink.decisions) != 0 {
		t.Fatalf("first two bars must skip as warmup: skips=%v decisions=%d", m.skips, len(sink.decisions))
	}

	if err := ev.OnBar(ctx, baseBar(2, 100, 10)); err != nil {
		t.Fatalf("OnBar 3: %v", err)
	}
	if len(sink.decisions) != 1 {
		t.Fatalf("third bar should decide, got %d decisions", len(sink.decisions))
	}
}

func TestEvaluatorHigherTimeframePredictionPersists(t *testing.T) {
	specs := []drepo.TimeframeSpec{
		{Name: "1m", Window: 1, MinBars: 1, Weight: 1},
		{Name: "5m", Window: 5, MinBars: 1, Weight: 1},
	}
	model := &stubModel{signal: 0.40, alpha: 0.15, conf: 0.70}
	sink := &captureSink{}
	m := newCountMetrics()
	ev := newTestEvaluator(specs, model, &stubCohort{mood: 0}, sink, m)

	ctx := context.Background()
	for i := 0; i < 6; i++ {
		if err := ev.OnBar(ctx, baseBar(i, 100, 10)); err != nil {
			t.Fatalf("OnBar %d: %v", i, err)
		}
	}

	// Bars 1-4 carry only the 1m prediction; bar 5 completes the first 5m
	// window, and bar 6 reuses its cached prediction.
	if len(sink.decisions) != 6 {
		t.Fatalf("decisions = %d, want 6", len(sink.decisions))
	}
	if got := len(sink.decisions[3].Timeframes); got != 1 {
		t.Fatalf("bar 4 timeframes = %d, want 1", got)
	}
	if got := len(sink.decisions[4].Timeframes); got != 2 {
		t.Fatalf("bar 5 timeframes = %d, want 2", got)
	}
	if got := len(sink.decisions[5].Timeframes); got != 2 {
		t.Fatalf("bar 6 should reuse the 5m prediction, timeframes = %d", got)
	}
	// 1m predicts every bar, 5m once.
	if model.calls != 7 {
		t.Fatalf("model calls = %d, want 7", model.calls)
	}
}

// tfModel returns a distinct prediction per timeframe.
type tfModel struct {
	preds map[drepo.Timeframe]models.SourcePrediction
}

func (m *tfModel) Predict(_ context.Context, _ string, tf drepo.Timeframe, bar models.Bar) (models.SourcePrediction, error) {
	p := m.preds[tf]
	p.Timeframe = string(tf)
	p.Timestamp = bar.Timestamp
	return p, nil
}

func TestEvaluatorUsesConfiguredWeightsWithoutTracker(t *testing.T) {
	specs := []drepo.TimeframeSpec{
		{Name: "1m", Window: 1, MinBars: 1, Weight: 1},
		{Name: "5m", Window: 5, MinBars: 1, Weight: 3},
	}
	model := &tfModel{preds: map[drepo.Timeframe]models.SourcePrediction{
		"1m": {Source: "model", Signal: 0.40, Alpha: 0.08, Confidence: 0.70},
		"5m": {Source: "model", Signal: 0.40, Alpha: 0.24, Confidence: 0.70},
	}}
	sink := &captureSink{}
	ev := NewEvaluator(
		EvaluatorConfig{Symbol: "BTCUSDT", Specs: specs, BarsPerDay: 1440, ADVBars: 1440},
		rollup.NewManager(specs, 500),
		model,
		&stubCohort{mood: 0},
		nil,
		engine.New(testThresholds()),
		guard.New(testLimits()),
		sink,
		newCountMetrics(),
	)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := ev.OnBar(ctx, baseBar(i, 100, 10)); err != nil {
			t.Fatalf("OnBar %d: %v", i, err)
		}
	}

	// Bar 5 blends both timeframes at the configured 1:3 weighting.
	d := sink.decisions[4]
	if d.AlignmentRule != engine.RuleWeightedBlend {
		t.Fatalf("rule = %q, want %q", d.AlignmentRule, engine.RuleWeightedBlend)
	}
	want := 0.25*0.08 + 0.75*0.24
	if math.Abs(d.Alpha-want) > 1e-9 {
		t.Fatalf("blended alpha = %v, want %v", d.Alpha, want)
	}
}

func TestEvaluatorMarksCachedCohort(t *testing.T) {
	model := &stubModel{signal: 0.40, alpha: 0.15, conf: 0.70}
	sink := &captureSink{}
	m := newCountMetrics()
	ev := newTestEvaluator(singleSpec(), model, &stubCohort{mood: 0, cached: true}, sink, m)

	if err := ev.OnBar(context.Background(), baseBar(0, 100, 10)); err != nil {
		t.Fatalf("OnBar: %v", err)
	}
	if len(sink.decisions) != 1 {
		t.Fatalf("decisions = %d, want 1", len(sink.decisions))
	}
	if !sink.decisions[0].Reasons[models.ReasonCohortCached] {
		t.Fatalf("cached cohort not flagged: %+v", sink.decisions[0].Reasons)
	}
}

func TestEvaluatorDeterministicForIdenticalInput(t *testing.T) {
	run := func() models.Decision {
		model := &stubModel{signal: 0.40, alpha: 0.15, conf: 0.70}
		sink := &captureSink{}
		ev := newTestEvaluator(singleSpec(), model, &stubCohort{mood: 0}, sink, newCountMetrics())
		if err := ev.OnBar(context.Background(), baseBar(0, 100, 10)); err != nil {
			t.Fatalf("OnBar: %v", err)
		}
		return sink.decisions[0]
	}

	a, b := run(), run()
	if a.Direction != b.Direction || a.VetoReason != b.VetoReason || a.Alpha != b.Alpha {
		t.Fatalf("identical inputs diverged: %+v vs %+v", a, b)
	}
}
