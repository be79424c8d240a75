package models

// DecisionsRequest filters the decision audit listing.
type DecisionsRequest struct {
	Symbol string `query:"symbol"`
	From   string `query:"from"`
	To     string `query:"to"`
	Limit  int    `query:"limit" default:"100" validate:"gte=1,lte=1000"`
}

// LatestDecisionRequest fetches the most recent decision for a symbol.
type LatestDecisionRequest struct {
	Symbol string `query:"symbol"`
}

// HealthResponse reports instance liveness and the simulated position.
type HealthResponse struct {
	Status    string  `json:"status"`
	Symbol    string  `json:"symbol"`
	Connected bool    `json:"connected"`
	Position  float64 `json:"position"`
}
