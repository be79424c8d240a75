package repository

// Timeframe identifies a bar aggregation level ("1m", "5m", "1h", ...).
type Timeframe string

const (
	TF1m Timeframe = "1m"
	TF5m Timeframe = "5m"
	TF1h Timeframe = "1h"
)

// TimeframeSpec is the configuration-time description of one timeframe:
// how many base bars roll up into one bar of this timeframe and how many
// completed bars it needs before it is considered ready.
type TimeframeSpec struct {
	Name    Timeframe
	Window  int
	MinBars int
	Weight  float64
}

// DefaultTimeframe returns the base timeframe.
func DefaultTimeframe() Timeframe { return TF1m }

// NormalizeTimeframe converts a raw string to a Timeframe, falling back to
// the default for empty input.
func NormalizeTimeframe(s string) Timeframe {
	if s == "" {
		return DefaultTimeframe()
	}
	return Timeframe(s)
}
