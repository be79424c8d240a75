package engine

import (
	"reflect"
	"testing"
	"time"

	"TradeGate/internal/domain/models"
)

func baseThresholds() Thresholds {
	return Thresholds{
		SMin:                          0.12,
		MMin:                          0.12,
		ConfMin:                       0.60,
		AlphaMin:                      0.10,
		RequireConsensus:              true,
		AllowModelOnlyWhenMoodNeutral: true,
	}
}

func pred(tf string, signal, alpha, conf float64) models.SourcePrediction {
	return models.SourcePrediction{
		Source:     "model",
		Timeframe:  tf,
		Timestamp:  time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		Signal:     signal,
		Alpha:      alpha,
		Confidence: conf,
	}
}

func cohort(mood float64) models.CohortSignal {
	return models.CohortSignal{Symbol: "BTCUSD", Mood: mood, Pros: mood, Amateurs: -mood}
}

// Scenario A: flipped model goes long on the model-only path.
func TestScenarioAModelOnlyLong(t *testing.T) {
	th := baseThresholds()
	th.FlipModel = true

	d := New(th).Evaluate(Input{
		Symbol:      "BTCUSD",
		Predictions: []models.SourcePrediction{pred("1m", -0.20, -0.15, 0.65)},
		Cohort:      cohort(-0.05),
	})

	if d.Direction != 1 {
		t.Fatalf("direction: got %d want 1 (veto=%q)", d.Direction, d.VetoReason)
	}
	if d.VetoReason != "" {
		t.Fatalf("unexpected veto %q", d.VetoReason)
	}
	if !d.Reasons[models.ReasonModelOnly] {
		t.Fatalf("expected model-only path, reasons=%v", d.Reasons)
	}
	for _, g := range []string{models.GateAlignment, models.GateMagnitude, models.GateConfidence, models.GateAlpha, models.GateConsensus} {
		if !d.Reasons[g] {
			t.Fatalf("gate %s must pass: %v", g, d.Reasons)
		}
	}
}

// Scenario B: a non-neutral mood flipped against the model forces a
// symmetric consensus veto even though every other gate passes.
func TestScenarioBConsensusConflict(t *testing.T) {
	th := baseThresholds()
	th.FlipModel = true
	th.FlipMood = true

	d := New(th).Evaluate(Input{
		Symbol:      "BTCUSD",
		Predictions: []models.SourcePrediction{pred("1m", -0.20, -0.15, 0.65)},
		Cohort:      cohort(0.15), // flips to -0.15, opposite the model's +0.20
	})

	if d.Direction != 0 {
		t.Fatalf("direction: got %d want 0", d.Direction)
	}
	if d.VetoReason != models.VetoConsensus {
		t.Fatalf("veto: got %q want %q", d.VetoReason, models.VetoConsensus)
	}
	if d.Reasons[models.GateConsensus] {
		t.Fatalf("consensus gate must be recorded as failed")
	}
	if !d.Reasons[models.GateMagnitude] || !d.Reasons[models.GateConfidence] || !d.Reasons[models.GateAlpha] {
		t.Fatalf("earlier gates must still be recorded as passing: %v", d.Reasons)
	}
}

// Symmetry: the consensus veto fires for the mirrored direction too.
func TestConsensusVetoSymmetric(t *testing.T) {
	th := baseThresholds()
	d := New(th).Evaluate(Input{
		Predictions: []models.SourcePrediction{pred("1m", -0.20, -0.15, 0.65)},
		Cohort:      cohort(0.15),
	})
	if d.VetoReason != models.VetoConsensus || d.Direction != 0 {
		t.Fatalf("short side must veto identically: dir=%d veto=%q", d.Direction, d.VetoReason)
	}
}

// Scenario C: fixed gate priority, alpha fails before consensus could.
func TestScenarioCAlphaGatePriority(t *testing.T) {
	th := baseThresholds()
	d := New(th).Evaluate(Input{
		Predictions: []models.SourcePrediction{pred("1m", 0.20, 0.05, 0.65)},
		Cohort:      cohort(0.20),
	})
	if d.Direction != 0 {
		t.Fatalf("direction: got %d want 0", d.Direction)
	}
	if d.VetoReason != models.VetoAlpha {
		t.Fatalf("primary veto: got %q want %q", d.VetoReason, models.VetoAlpha)
	}
}

func TestMagnitudeGateWithoutWaiver(t *testing.T) {
	th := baseThresholds()
	th.AllowModelOnlyWhenMoodNeutral = false
	d := New(th).Evaluate(Input{
		Predictions: []models.SourcePrediction{pred("1m", 0.20, 0.15, 0.65)},
		Cohort:      cohort(0.05),
	})
	if d.VetoReason != models.VetoMagnitude {
		t.Fatalf("quiet mood without waiver must veto on magnitude, got %q", d.VetoReason)
	}
}

func TestConfidenceGate(t *testing.T) {
	th := baseThresholds()
	d := New(th).Evaluate(Input{
		Predictions: []models.SourcePrediction{pred("1m", 0.20, 0.15, 0.40)},
		Cohort:      cohort(0.20),
	})
	if d.VetoReason != models.VetoConfidence {
		t.Fatalf("veto: got %q want %q", d.VetoReason, models.VetoConfidence)
	}
}

func TestTimeframeConflict(t *testing.T) {
	th := baseThresholds()
	d := New(th).Evaluate(Input{
		Predictions: []models.SourcePrediction{
			pred("1m", 0.30, 0.15, 0.70),
			pred("5m", -0.30, -0.15, 0.70),
		},
		Cohort: cohort(0.20),
	})
	if d.VetoReason != models.VetoTimeframeConflict {
		t.Fatalf("veto: got %q want %q", d.VetoReason, models.VetoTimeframeConflict)
	}
	if d.Direction != 0 {
		t.Fatalf("direction: got %d want 0", d.Direction)
	}
}

func TestNeutralHigherTimeframeDoesNotBlock(t *testing.T) {
	th := baseThresholds()
	d := New(th).Evaluate(Input{
		Predictions: []models.SourcePrediction{
			pred("1m", 0.30, 0.15, 0.70),
			pred("1h", 0.01, 0.01, 0.70), // inside the neutral band
		},
		Weights: []float64{0.9, 0.1},
		Cohort:  cohort(0.20),
	})
	if !d.Reasons[models.GateAlignment] {
		t.Fatalf("neutral higher timeframe must not fail alignment: %v", d.Reasons)
	}
	if d.Direction != 1 {
		t.Fatalf("direction: got %d want 1 (veto=%q)", d.Direction, d.VetoReason)
	}
	if d.AlignmentRule != RuleWeightedBlend {
		t.Fatalf("alignment rule: got %q", d.AlignmentRule)
	}
}

// Applying a flip twice must be equivalent to not flipping at all.
func TestFlipIdempotence(t *testing.T) {
	in := Input{
		Predictions: []models.SourcePrediction{pred("1m", 0.20, 0.15, 0.65)},
		Cohort:      cohort(0.20),
	}
	plain := New(baseThresholds()).Evaluate(in)

	flipped := in
	flipped.Predictions = []models.SourcePrediction{pred("1m", -0.20, -0.15, 0.65)}
	flipped.Cohort = cohort(-0.20)
	th := baseThresholds()
	th.FlipModel = true
	th.FlipMood = true
	double := New(th).Evaluate(flipped)

	if plain.Direction != double.Direction || plain.VetoReason != double.VetoReason {
		t.Fatalf("flip of a flipped input diverged: %+v vs %+v", plain, double)
	}
	if plain.ModelSignal != double.ModelSignal || plain.MoodSignal != double.MoodSignal {
		t.Fatalf("signals diverged: %v/%v vs %v/%v", plain.ModelSignal, plain.MoodSignal, double.ModelSignal, double.MoodSignal)
	}
}

func TestDeterminism(t *testing.T) {
	th := baseThresholds()
	in := Input{
		Symbol: "BTCUSD",
		Predictions: []models.SourcePrediction{
			pred("1m", 0.30, 0.15, 0.70),
			pred("5m", 0.20, 0.12, 0.66),
		},
		Weights: []float64{0.6, 0.4},
		Cohort:  cohort(0.20),
	}
	a := New(th).Evaluate(in)
	b := New(th).Evaluate(in)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("identical inputs produced different decisions:\n%+v\n%+v", a, b)
	}
	if a.Direction < -1 || a.Direction > 1 {
		t.Fatalf("direction out of range: %d", a.Direction)
	}
}

// A zero direction with no veto is only legal when the inputs were
// genuinely neutral, and that must be visible in the reason map.
func TestAllNeutralCarriesReason(t *testing.T) {
	th := Thresholds{SMin: 0, MMin: 0, ConfMin: 0, AlphaMin: 0}
	d := New(th).Evaluate(Input{
		Predictions: []models.SourcePrediction{pred("1m", 0, 0, 0.5)},
		Cohort:      cohort(0),
	})
	if d.Direction != 0 || d.VetoReason != "" {
		t.Fatalf("expected clean neutral decision, got %+v", d)
	}
	if !d.Reasons[models.ReasonAllNeutral] {
		t.Fatalf("neutral decision must carry %s: %v", models.ReasonAllNeutral, d.Reasons)
	}
}
