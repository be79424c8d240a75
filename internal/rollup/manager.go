package rollup

import (
	"TradeGate/internal/domain/models"
	domrepo "TradeGate/internal/domain/repository"
)

// DefaultCapacity bounds each per-timeframe history when the caller does
// not configure one.
const DefaultCapacity = 1000

// Manager synthesizes higher-timeframe bars from a base-timeframe stream
// and reports readiness per timeframe. Purely in-memory, bounded state;
// owned by a single trading instance and never shared.
type Manager struct {
	specs    []domrepo.TimeframeSpec
	capacity int

	histories map[domrepo.Timeframe][]models.Bar
	pending   map[domrepo.Timeframe][]models.Bar
}

// NewManager creates a rollup manager for the given timeframe specs. The
// first spec is treated as the base timeframe (window 1).
func NewManager(specs []domrepo.TimeframeSpec, capacity int) *Manager {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	m := &Manager{
		specs:     specs,
		capacity:  capacity,
		histories: make(map[domrepo.Timeframe][]models.Bar, len(specs)),
		pending:   make(map[domrepo.Timeframe][]models.Bar, len(specs)),
	}
	return m
}

// AddBar appends a base bar and returns, for each configured timeframe, the
// completed bar that this base bar closed, if any. A partial window emits
// nothing for that timeframe; that is not an error.
func (m *Manager) AddBar(base models.Bar) map[domrepo.Timeframe]*models.Bar {
	base = base.Sanitized()
	out := make(map[domrepo.Timeframe]*models.Bar, len(m.specs))

	for _, spec := range m.specs {
		if spec.Window <= 1 {
			m.append(spec.Name, base)
			b := base
			out[spec.Name] = &b
			continue
		}

		m.pending[spec.Name] = append(m.pending[spec.Name], base)
		if len(m.pending[spec.Name]) < spec.Window {
			continue
		}
		rolled := Aggregate(m.pending[spec.Name])
		m.pending[spec.Name] = m.pending[spec.Name][:0]
		m.append(spec.Name, rolled)
		out[spec.Name] = &rolled
	}
	return out
}

func (m *Manager) append(tf domrepo.Timeframe, b models.Bar) {
	h := append(m.histories[tf], b)
	if len(h) > m.capacity {
		h = h[len(h)-m.capacity:]
	}
	m.histories[tf] = h
}

// IsReady reports whether a timeframe has accumulated at least minBars
// completed bars.
func (m *Manager) IsReady(tf domrepo.Timeframe, minBars int) bool {
	return len(m.histories[tf]) >= minBars
}

// History returns the bounded completed-bar history for a timeframe. The
// returned slice is owned by the manager; callers must not mutate it.
func (m *Manager) History(tf domrepo.Timeframe) []models.Bar {
	return m.histories[tf]
}

// Last returns the most recent completed bar for a timeframe.
func (m *Manager) Last(tf domrepo.Timeframe) (models.Bar, bool) {
	h := m.histories[tf]
	if len(h) == 0 {
		return models.Bar{}, false
	}
	return h[len(h)-1], true
}

// Aggregate deterministically rolls a full window of base bars into one
// higher-timeframe bar: open from the first bar, close from the last, max
// high, min low, summed volume, arithmetic mean for the averaged fields.
// Inputs are sanitized so undefined values never propagate.
func Aggregate(window []models.Bar) models.Bar {
	if len(window) == 0 {
		return models.Bar{}
	}
	first := window[0].Sanitized()
	out := models.Bar{
		Timestamp: window[len(window)-1].Timestamp,
		Symbol:    first.Symbol,
		Open:      first.Open,
		High:      first.High,
		Low:       first.Low,
	}
	var funding, spread, rvol float64
	for i := range window {
		b := window[i].Sanitized()
		if b.High > out.High {
			out.High = b.High
		}
		if b.Low < out.Low {
			out.Low = b.Low
		}
		out.Volume += b.Volume
		funding += b.FundingRate
		spread += b.SpreadBps
		rvol += b.RealizedVol
	}
	last := window[len(window)-1].Sanitized()
	out.Close = last.Close
	n := float64(len(window))
	out.FundingRate = funding / n
	out.SpreadBps = spread / n
	out.RealizedVol = rvol / n
	return out
}
