package guard

import (
	"math"

	"TradeGate/internal/domain/models"
)

// Limits is the guard's immutable economic configuration.
type Limits struct {
	EdgeScaleBps float64 // converts |alpha| into an estimated edge in bps
	TakerFeeBps  float64
	SlippageBps  float64
	BufferBps    float64

	ImpactK         float64
	MaxImpactBps    float64 // soft ceiling, may be overridden
	HardImpactBps   float64 // always enforced
	AllowSoftImpact bool    // operator override of the soft ceiling

	BaseNotional float64
	MaxPosition  float64 // absolute clamp on target position, base units
}

// MarketState is the per-bar snapshot the guard sizes against.
type MarketState struct {
	LastPrice       float64
	AvgDailyVolume  float64 // notional ADV used for impact normalization
	CurrentPosition float64 // signed, base units
}

// Guard turns an approved Decision into a bounded, cost-justified
// OrderIntent or vetoes it. Guards run in a fixed priority order so the
// primary veto reason is reproducible: net edge, then impact, then sizing.
type Guard struct {
	lim Limits
}

func New(lim Limits) *Guard {
	return &Guard{lim: lim}
}

// Evaluate sizes the decision. It must only be called for approved
// decisions; an OrderIntent is never constructed from a vetoed one.
func (g *Guard) Evaluate(d models.Decision, mkt MarketState) models.OrderIntent {
	lim := g.lim
	reasons := make(map[string]bool, 4)

	oi := models.OrderIntent{
		Symbol:    d.Symbol,
		Timestamp: d.Timestamp,
		Side:      models.SideNone,
		Reasons:   reasons,
	}

	price := models.Finite(mkt.LastPrice, 0)
	adv := models.Finite(mkt.AvgDailyVolume, 0)
	alpha := math.Abs(models.Finite(d.Alpha, 0))

	// Net-edge guard: the estimated edge must clear round-trip costs.
	edgeBps := alpha * lim.EdgeScaleBps
	costBps := lim.TakerFeeBps + lim.SlippageBps + lim.BufferBps
	oi.EdgeBps = edgeBps
	edgeOK := edgeBps > costBps
	reasons[models.GuardNetEdge] = edgeOK

	// Target position and its notional, clamped before impact accounting
	// so the impact estimate reflects what would actually be sent.
	target := float64(d.Direction) * alpha * lim.BaseNotional
	if price > 0 {
		target /= price
	} else {
		target = 0
	}
	if target > lim.MaxPosition {
		target = lim.MaxPosition
	}
	if target < -lim.MaxPosition {
		target = -lim.MaxPosition
	}
	targetNotional := math.Abs(target) * price

	// Impact guard: soft ceiling unless overridden, hard ceiling always.
	impactBps := 0.0
	if adv > 0 {
		impactBps = lim.ImpactK * targetNotional / adv
	}
	oi.ImpactBps = models.Finite(impactBps, 0)
	softOK := lim.AllowSoftImpact || oi.ImpactBps <= lim.MaxImpactBps
	hardOK := oi.ImpactBps <= lim.HardImpactBps
	reasons[models.GuardImpactSoft] = softOK
	reasons[models.GuardImpactHard] = hardOK

	qty := target - mkt.CurrentPosition
	sizedOK := price > 0
	reasons[models.GuardPosition] = sizedOK

	oi.RiskScore = riskScore(edgeBps, costBps, oi.ImpactBps, lim.HardImpactBps)

	switch {
	case !edgeOK:
		oi.VetoReason = models.VetoNetEdge
		return oi
	case !softOK || !hardOK:
		oi.VetoReason = models.VetoImpact
		return oi
	case !sizedOK:
		oi.VetoReason = models.VetoUnpriceable
		return oi
	}

	if qty == 0 {
		// Already at target: deliberate no-op, not an error.
		return oi
	}

	oi.Quantity = qty
	oi.Notional = math.Abs(qty) * price
	if qty > 0 {
		oi.Side = models.SideBuy
	} else {
		oi.Side = models.SideSell
	}
	return oi
}

// riskScore folds cost coverage and impact headroom into [0,1]; higher
// means closer to a veto boundary.
func riskScore(edgeBps, costBps, impactBps, hardBps float64) float64 {
	s := 0.0
	if edgeBps > 0 {
		s = costBps / edgeBps
	} else {
		s = 1.0
	}
	if hardBps > 0 {
		u := impactBps / hardBps
		if u > s {
			s = u
		}
	}
	if s > 1 {
		s = 1
	}
	if s < 0 || math.IsNaN(s) {
		s = 0
	}
	return s
}
