package domain

// RouteKind discriminates route shapes by hop count.
type RouteKind string

const (
	RouteDirect   RouteKind = "direct"
	RouteTwoHop   RouteKind = "2hop"
	RouteThreeHop RouteKind = "3hop"
)

// RouteLeg is a single swap within a route.
type RouteLeg struct {
	TokenIn  TokenInfo `json:"tokenIn"`
	TokenOut TokenInfo `json:"tokenOut"`
	Pool     *Pool     `json:"pool"`
	// EstimatedOutput is the leg's output in tokenOut units for the leg input.
	EstimatedOutput float64 `json:"estimatedOutput"`
	// PriceImpactPct is the leg's estimated price impact in percent.
	PriceImpactPct float64 `json:"priceImpactPct"`
	// FeePct is the leg pool's fee in percent.
	FeePct float64 `json:"feePct"`
}

// Route is a planned path between two tokens.
type Route struct {
	Kind RouteKind   `json:"kind"`
	Path []TokenInfo `json:"path"`
	Legs []RouteLeg  `json:"legs"`
	// EstimatedOutput is the final output in tokenOut units.
	EstimatedOutput float64 `json:"estimatedOutput"`
	// PriceImpactPct is the summed leg impact in percent. Legs are treated
	// as independent, so this is an approximation, not exact composition.
	PriceImpactPct float64 `json:"priceImpactPct"`
	// TotalFeesPct is the summed leg fees in percent.
	TotalFeesPct float64 `json:"totalFeesPct"`
	Score        float64 `json:"score"`
}

// RoutePlan is the router's answer: the best route plus alternatives.
type RoutePlan struct {
	TokenIn      TokenInfo `json:"tokenIn"`
	TokenOut     TokenInfo `json:"tokenOut"`
	AmountIn     float64   `json:"amountIn"`
	Best         *Route    `json:"best"`
	Alternatives []*Route  `json:"alternatives,omitempty"`
}

// SplitAllocation is one pool's slice of a split trade.
type SplitAllocation struct {
	Pool      *Pool   `json:"pool"`
	AmountUSD float64 `json:"amountUSD"`
	SharePct  float64 `json:"sharePct"`
	// LiquidityConsumptionPct is amountUSD relative to the pool's liquidity.
	LiquidityConsumptionPct float64 `json:"liquidityConsumptionPct"`
}

// SplitTradePlan is the greedy multi-pool allocation for a large trade.
// It caps any pool at 50% of the total and at 5% of the pool's own
// liquidity; it is a heuristic, not a proven optimum.
type SplitTradePlan struct {
	TotalUSD     float64           `json:"totalUSD"`
	AllocatedUSD float64           `json:"allocatedUSD"`
	Unallocated  float64           `json:"unallocatedUSD"`
	Allocations  []SplitAllocation `json:"allocations"`
}
