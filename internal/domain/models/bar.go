package models

import (
	"math"
	"time"
)

// Bar is one OHLCV record on some timeframe. Immutable once appended to a
// rollup history.
type Bar struct {
	Timestamp   time.Time
	Symbol      string
	Open        float64
	High        float64
	Low         float64
	Close       float64
	Volume      float64
	FundingRate float64
	SpreadBps   float64
	RealizedVol float64
}

// Finite returns v when it is a finite number and fallback otherwise.
func Finite(v, fallback float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return v
}

// Sanitized returns a copy of the bar with every non-finite numeric field
// coerced to zero, so a malformed upstream bar never propagates NaN/Inf
// into a rollup.
func (b Bar) Sanitized() Bar {
	b.Open = Finite(b.Open, 0)
	b.High = Finite(b.High, 0)
	b.Low = Finite(b.Low, 0)
	b.Close = Finite(b.Close, 0)
	b.Volume = Finite(b.Volume, 0)
	b.FundingRate = Finite(b.FundingRate, 0)
	b.SpreadBps = Finite(b.SpreadBps, 0)
	b.RealizedVol = Finite(b.RealizedVol, 0)
	return b
}
