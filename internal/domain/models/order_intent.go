package models

import "time"

// Guard names, in evaluation priority order.
const (
	GuardNetEdge    = "net_edge"
	GuardImpactSoft = "impact_soft"
	GuardImpactHard = "impact_hard"
	GuardPosition   = "position"
)

// Veto reason codes carried on OrderIntent.VetoReason.
const (
	VetoNetEdge     = "net_edge_insufficient"
	VetoImpact      = "impact_guard"
	VetoUnpriceable = "unpriceable"
)

// Order sides.
const (
	SideBuy  = "BUY"
	SideSell = "SELL"
	SideNone = "NONE"
)

// OrderIntent is a sized, cost- and impact-checked order produced from an
// approved Decision and consumed by an external execution collaborator.
// A zero Quantity with an empty VetoReason is a deliberate no-op.
type OrderIntent struct {
	Symbol      string          `json:"symbol"`
	Timestamp   time.Time       `json:"timestamp"`
	Side        string          `json:"side"`
	Quantity    float64         `json:"quantity"`
	Notional    float64         `json:"notional"`
	EdgeBps     float64         `json:"edge_bps"`
	ImpactBps   float64         `json:"impact_bps"`
	RiskScore   float64         `json:"risk_score"`
	VetoReason  string          `json:"veto_reason,omitempty"`
	Reasons     map[string]bool `json:"reasons"`
}

// Vetoed reports whether the intent was vetoed on economic grounds.
func (o OrderIntent) Vetoed() bool { return o.VetoReason != "" }

// NoOp reports whether the intent carries nothing to execute.
func (o OrderIntent) NoOp() bool { return o.VetoReason == "" && o.Quantity == 0 }
