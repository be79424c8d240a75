package models

import "time"

// Gate names, in evaluation priority order. The first failing gate becomes
// the primary veto reason and is reproducible for identical inputs.
const (
	GateAlignment  = "alignment"
	GateMagnitude  = "magnitude"
	GateConfidence = "confidence"
	GateAlpha      = "alpha"
	GateConsensus  = "consensus"
)

// Veto reason codes carried on Decision.VetoReason.
const (
	VetoTimeframeConflict = "timeframe_conflict"
	VetoMagnitude         = "magnitude_insufficient"
	VetoConfidence        = "confidence_insufficient"
	VetoAlpha             = "alpha_insufficient"
	VetoConsensus         = "consensus_conflict"
)

// Reason map keys that are informational rather than gates.
const (
	ReasonAllNeutral    = "all_neutral"
	ReasonModelOnly     = "model_only_path"
	ReasonCohortCached  = "cohort_cached"
	ReasonFlipModel     = "flip_model"
	ReasonFlipMood      = "flip_mood"
)

// Decision is the engine's per-bar output. Constructed fresh each bar and
// never mutated afterwards.
type Decision struct {
	Symbol        string          `json:"symbol"`
	Timestamp     time.Time       `json:"timestamp"`
	Direction     int             `json:"direction"`
	Alpha         float64         `json:"alpha"`
	Confidence    float64         `json:"confidence"`
	ModelSignal   float64         `json:"model_signal"`
	MoodSignal    float64         `json:"mood_signal"`
	Timeframes    []string        `json:"timeframes"`
	AlignmentRule string          `json:"alignment_rule"`
	VetoReason    string          `json:"veto_reason,omitempty"`
	Reasons       map[string]bool `json:"reasons"`
}

// Vetoed reports whether the decision carries a veto.
func (d Decision) Vetoed() bool { return d.VetoReason != "" }

// Approved reports whether the decision may be handed to the execution
// guard. A zero direction without a veto means all upstream signals were
// genuinely neutral; there is nothing to size either way.
func (d Decision) Approved() bool { return d.Direction != 0 && d.VetoReason == "" }
