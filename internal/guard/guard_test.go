package guard

import (
	"math"
	"testing"
	"time"

	"TradeGate/internal/domain/models"
)

func limits() Limits {
	return Limits{
		EdgeScaleBps:  100, // alpha 0.15 -> 15 bps edge
		TakerFeeBps:   4,
		SlippageBps:   3,
		BufferBps:     2,
		ImpactK:       10,
		MaxImpactBps:  5,
		HardImpactBps: 20,
		BaseNotional:  100_000,
		MaxPosition:   10,
	}
}

func approved(alpha float64, dir int) models.Decision {
	return models.Decision{
		Symbol:    "BTCUSD",
		Timestamp: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		Direction: dir,
		Alpha:     alpha,
		Reasons:   map[string]bool{},
	}
}

func market() MarketState {
	return MarketState{LastPrice: 50_000, AvgDailyVolume: 500_000}
}

func TestApprovedDecisionSized(t *testing.T) {
	oi := New(limits()).Evaluate(approved(0.15, 1), market())
	if oi.VetoReason != "" {
		t.Fatalf("unexpected veto %q (reasons=%v)", oi.VetoReason, oi.Reasons)
	}
	if oi.Side != models.SideBuy {
		t.Fatalf("side: got %q want BUY", oi.Side)
	}
	// target = 0.15 * 100000 / 50000 = 0.3 units
	if math.Abs(oi.Quantity-0.3) > 1e-9 {
		t.Fatalf("quantity: got %v want 0.3", oi.Quantity)
	}
	if math.Abs(oi.Notional-15_000) > 1e-6 {
		t.Fatalf("notional: got %v want 15000", oi.Notional)
	}
	if oi.RiskScore < 0 || oi.RiskScore > 1 {
		t.Fatalf("risk score out of range: %v", oi.RiskScore)
	}
}

func TestNetEdgeVeto(t *testing.T) {
	// edge 5 bps vs costs 9 bps
	oi := New(limits()).Evaluate(approved(0.05, 1), market())
	if oi.VetoReason != models.VetoNetEdge {
		t.Fatalf("veto: got %q want %q", oi.VetoReason, models.VetoNetEdge)
	}
	if oi.Quantity != 0 || oi.Side != models.SideNone {
		t.Fatalf("vetoed intent must not be sized: %+v", oi)
	}
	if oi.Reasons[models.GuardNetEdge] {
		t.Fatalf("net edge guard must be recorded as failed")
	}
}

func TestSoftImpactVeto(t *testing.T) {
	lim := limits()
	mkt := market()
	mkt.AvgDailyVolume = 20_000 // impact = 10*15000/20000 = 7.5 bps > soft 5
	oi := New(lim).Evaluate(approved(0.15, 1), mkt)
	if oi.VetoReason != models.VetoImpact {
		t.Fatalf("veto: got %q want %q", oi.VetoReason, models.VetoImpact)
	}
	if oi.Reasons[models.GuardImpactHard] != true {
		t.Fatalf("hard guard should still pass at 7.5 bps: %v", oi.Reasons)
	}
}

func TestHardImpactEnforcedDespiteOverride(t *testing.T) {
	lim := limits()
	lim.AllowSoftImpact = true
	mkt := market()
	mkt.AvgDailyVolume = 5_000 // impact = 10*15000/5000 = 30 bps > hard 20
	oi := New(lim).Evaluate(approved(0.15, 1), mkt)
	if oi.VetoReason != models.VetoImpact {
		t.Fatalf("hard ceiling must veto regardless of override, got %q", oi.VetoReason)
	}
	if oi.Reasons[models.GuardImpactSoft] != true {
		t.Fatalf("soft guard is overridden and should read as passing: %v", oi.Reasons)
	}
}

// Once notional crosses the impact ceiling the guard flips to veto and
// stays vetoed for every larger notional.
func TestImpactGuardMonotonic(t *testing.T) {
	lim := limits()
	mkt := market()
	mkt.AvgDailyVolume = 50_000 // impact = 20*alpha bps, crosses soft 5 near alpha 0.25
	vetoed := false
	for alpha := 0.10; alpha <= 1.0; alpha += 0.01 {
		oi := New(lim).Evaluate(approved(alpha, 1), mkt)
		if oi.VetoReason == models.VetoImpact {
			vetoed = true
		} else if vetoed {
			t.Fatalf("impact guard flipped back to pass at alpha=%v", alpha)
		}
	}
	if !vetoed {
		t.Fatalf("expected the sweep to eventually breach the impact ceiling")
	}
}

func TestZeroDeltaIsNoOp(t *testing.T) {
	mkt := market()
	mkt.CurrentPosition = 0.3 // already at target for alpha 0.15 long
	oi := New(limits()).Evaluate(approved(0.15, 1), mkt)
	if oi.VetoReason != "" {
		t.Fatalf("no-op must not be a veto: %q", oi.VetoReason)
	}
	if !oi.NoOp() {
		t.Fatalf("expected no-op intent, got %+v", oi)
	}
}

func TestSellDelta(t *testing.T) {
	mkt := market()
	mkt.CurrentPosition = 1.0
	oi := New(limits()).Evaluate(approved(0.15, 1), mkt)
	if oi.Side != models.SideSell {
		t.Fatalf("reducing toward target must sell: %+v", oi)
	}
	if math.Abs(oi.Quantity-(-0.7)) > 1e-9 {
		t.Fatalf("quantity: got %v want -0.7", oi.Quantity)
	}
}

func TestPositionClamp(t *testing.T) {
	lim := limits()
	lim.MaxPosition = 0.2
	lim.MaxImpactBps = 1000
	lim.HardImpactBps = 10000
	oi := New(lim).Evaluate(approved(0.9, 1), market())
	if math.Abs(oi.Quantity-0.2) > 1e-9 {
		t.Fatalf("clamped quantity: got %v want 0.2", oi.Quantity)
	}
}

func TestZeroPriceVetoesAsUnpriceable(t *testing.T) {
	mkt := market()
	mkt.LastPrice = 0
	oi := New(limits()).Evaluate(approved(0.15, 1), mkt)
	if oi.VetoReason != models.VetoUnpriceable {
		t.Fatalf("veto: got %q want %q", oi.VetoReason, models.VetoUnpriceable)
	}
	if oi.Reasons[models.GuardPosition] {
		t.Fatalf("position guard must be recorded as failed: %v", oi.Reasons)
	}
}
