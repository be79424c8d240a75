package models

import "time"

// SourcePrediction is one model source's call for one bar on one timeframe.
// Signal is the signed edge (e.g. proba_up - proba_down), Alpha the signed
// edge magnitude used for sizing, Confidence in [0,1].
type SourcePrediction struct {
	Source     string
	Timeframe  string
	Timestamp  time.Time
	Signal     float64
	Alpha      float64
	Confidence float64
}

// Direction reduces the signed signal to {-1, 0, 1}.
func (p SourcePrediction) Direction() int {
	return Sign(p.Signal)
}

// Sanitized coerces non-finite fields to their documented neutral defaults:
// 0 for signals, 0.5 for confidence.
func (p SourcePrediction) Sanitized() SourcePrediction {
	p.Signal = Finite(p.Signal, 0)
	p.Alpha = Finite(p.Alpha, 0)
	p.Confidence = Finite(p.Confidence, 0.5)
	return p
}

// CohortSignal carries net order-flow imbalance per participant cohort,
// normalized by a volume baseline. Zero means "no signal", not neutral
// conviction.
type CohortSignal struct {
	Symbol    string    `json:"symbol"`
	Timestamp time.Time `json:"timestamp"`
	Pros      float64   `json:"pros"`
	Amateurs  float64   `json:"amateurs"`
	Mood      float64   `json:"mood"`
}

// Sanitized coerces non-finite scores to zero.
func (c CohortSignal) Sanitized() CohortSignal {
	c.Pros = Finite(c.Pros, 0)
	c.Amateurs = Finite(c.Amateurs, 0)
	c.Mood = Finite(c.Mood, 0)
	return c
}

// Sign returns -1, 0 or 1 for v.
func Sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
