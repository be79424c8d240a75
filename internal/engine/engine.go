package engine

import (
	"math"
	"time"

	"TradeGate/internal/domain/models"
)

// Thresholds is the engine's immutable configuration slice, loaded once at
// startup and shared read-only across instances.
type Thresholds struct {
	SMin     float64
	MMin     float64
	ConfMin  float64
	AlphaMin float64

	FlipModel bool
	FlipMood  bool

	RequireConsensus              bool
	AllowModelOnlyWhenMoodNeutral bool

	// NeutralBand is the timeframe-alignment band; a post-flip signal with
	// magnitude below it counts as neutral. Zero means "use SMin".
	NeutralBand float64
}

func (t Thresholds) neutralBand() float64 {
	if t.NeutralBand > 0 {
		return t.NeutralBand
	}
	return t.SMin
}

// Alignment rule labels recorded on the Decision.
const (
	RuleSingle        = "single"
	RuleUniformBlend  = "uniform_blend"
	RuleWeightedBlend = "weighted_blend"
)

// Input is everything one evaluation needs. The engine holds no state of
// its own: identical inputs always yield an identical Decision.
type Input struct {
	Symbol      string
	Timestamp   time.Time
	Predictions []models.SourcePrediction
	// Weights optionally blends Predictions; must align with Predictions
	// when present.
	Weights      []float64
	Cohort       models.CohortSignal
	CohortCached bool
}

// Engine applies flip normalization, timeframe alignment and the fixed
// gate sequence to produce one auditable Decision per bar.
type Engine struct {
	th Thresholds
}

func New(th Thresholds) *Engine {
	return &Engine{th: th}
}

// Evaluate runs the gate sequence. Every gate outcome lands in the reason
// map; the first failing gate becomes the primary veto reason.
func (e *Engine) Evaluate(in Input) models.Decision {
	th := e.th
	reasons := make(map[string]bool, 8)

	preds := make([]models.SourcePrediction, 0, len(in.Predictions))
	tfs := make([]string, 0, len(in.Predictions))
	for _, p := range in.Predictions {
		p = p.Sanitized()
		if th.FlipModel {
			p.Signal = -p.Signal
			p.Alpha = -p.Alpha
		}
		preds = append(preds, p)
		tfs = append(tfs, p.Timeframe)
	}

	mood := in.Cohort.Sanitized().Mood
	if th.FlipMood {
		mood = -mood
	}

	reasons[models.ReasonFlipModel] = th.FlipModel
	reasons[models.ReasonFlipMood] = th.FlipMood
	if in.CohortCached {
		reasons[models.ReasonCohortCached] = true
	}

	signal, alpha, conf, rule := blend(preds, in.Weights)

	d := models.Decision{
		Symbol:        in.Symbol,
		Timestamp:     in.Timestamp,
		Alpha:         alpha,
		Confidence:    conf,
		ModelSignal:   signal,
		MoodSignal:    mood,
		Timeframes:    tfs,
		AlignmentRule: rule,
		Reasons:       reasons,
	}

	// Gate 0: timeframe alignment. A neutral higher timeframe never blocks
	// a directional lower one; two opposed non-neutral directions do.
	aligned := alignedDirections(preds, th.neutralBand())
	reasons[models.GateAlignment] = aligned

	// Gate 1: magnitude, with the model-only waiver for a quiet mood.
	moodQuiet := math.Abs(mood) < th.MMin
	modelOnly := th.AllowModelOnlyWhenMoodNeutral && moodQuiet
	reasons[models.ReasonModelOnly] = modelOnly
	magnitudeOK := math.Abs(signal) >= th.SMin && (!moodQuiet || modelOnly)
	reasons[models.GateMagnitude] = magnitudeOK

	// Gate 2: confidence.
	confOK := conf >= th.ConfMin
	reasons[models.GateConfidence] = confOK

	// Gate 3: alpha.
	alphaOK := math.Abs(alpha) >= th.AlphaMin
	reasons[models.GateAlpha] = alphaOK

	// Gate 4: consensus, symmetric in both directions. Vacuously satisfied
	// when the mood is treated as neutral on the model-only path.
	consensusOK := true
	if th.RequireConsensus && !modelOnly {
		md := models.Sign(signal)
		cd := models.Sign(mood)
		consensusOK = md == 0 || cd == 0 || md == cd
	}
	reasons[models.GateConsensus] = consensusOK

	switch {
	case !aligned:
		d.VetoReason = models.VetoTimeframeConflict
	case !magnitudeOK:
		d.VetoReason = models.VetoMagnitude
	case !confOK:
		d.VetoReason = models.VetoConfidence
	case !alphaOK:
		d.VetoReason = models.VetoAlpha
	case !consensusOK:
		d.VetoReason = models.VetoConsensus
	default:
		d.Direction = models.Sign(signal)
		if d.Direction == 0 {
			reasons[models.ReasonAllNeutral] = true
		}
	}
	return d
}

// blend reduces per-timeframe predictions to one signal/alpha/confidence
// triple. With weights it is the weight-vector dot product; without, a
// plain average. Inputs are already sanitized and flipped.
func blend(preds []models.SourcePrediction, weights []float64) (signal, alpha, conf float64, rule string) {
	switch {
	case len(preds) == 0:
		return 0, 0, 0.5, RuleSingle
	case len(preds) == 1:
		return preds[0].Signal, preds[0].Alpha, preds[0].Confidence, RuleSingle
	}

	if len(weights) == len(preds) {
		for i, p := range preds {
			signal += weights[i] * p.Signal
			alpha += weights[i] * p.Alpha
			conf += weights[i] * p.Confidence
		}
		return models.Finite(signal, 0), models.Finite(alpha, 0), models.Finite(conf, 0.5), RuleWeightedBlend
	}

	n := float64(len(preds))
	for _, p := range preds {
		signal += p.Signal
		alpha += p.Alpha
		conf += p.Confidence
	}
	return signal / n, alpha / n, conf / n, RuleUniformBlend
}

func alignedDirections(preds []models.SourcePrediction, band float64) bool {
	have := 0
	for _, p := range preds {
		if math.Abs(p.Signal) < band {
			continue
		}
		dir := models.Sign(p.Signal)
		if have != 0 && dir != have {
			return false
		}
		have = dir
	}
	return true
}
