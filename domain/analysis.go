package domain

// TradeSizeClass buckets a trade by its USD size.
type TradeSizeClass string

const (
	TradeSizeMicro  TradeSizeClass = "MICRO"
	TradeSizeSmall  TradeSizeClass = "SMALL"
	TradeSizeMedium TradeSizeClass = "MEDIUM"
	TradeSizeLarge  TradeSizeClass = "LARGE"
	TradeSizeWhale  TradeSizeClass = "WHALE"
)

// ClassifyTradeSize maps a USD trade size to its class.
func ClassifyTradeSize(tradeUSD float64) TradeSizeClass {
	switch {
	case tradeUSD < 100:
		return TradeSizeMicro
	case tradeUSD < 1_000:
		return TradeSizeSmall
	case tradeUSD < 10_000:
		return TradeSizeMedium
	case tradeUSD < 100_000:
		return TradeSizeLarge
	default:
		return TradeSizeWhale
	}
}

// RiskLevel grades a pool or route for a given trade.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// WarningSeverity orders user-facing warnings.
type WarningSeverity string

const (
	SeverityLow      WarningSeverity = "LOW"
	SeverityMedium   WarningSeverity = "MEDIUM"
	SeverityHigh     WarningSeverity = "HIGH"
	SeverityCritical WarningSeverity = "CRITICAL"
)

// severityRank is used to sort warnings CRITICAL first.
var severityRank = map[WarningSeverity]int{
	SeverityCritical: 0,
	SeverityHigh:     1,
	SeverityMedium:   2,
	SeverityLow:      3,
}

// SeverityRank returns the sort rank of a severity, CRITICAL first.
func SeverityRank(s WarningSeverity) int {
	rank, ok := severityRank[s]
	if !ok {
		return len(severityRank)
	}
	return rank
}

// Warning is a user-facing advisory attached to an analysis.
type Warning struct {
	Code     string          `json:"code"`
	Severity WarningSeverity `json:"severity"`
	Message  string          `json:"message"`
}

// TradeCosts is the estimated cost breakdown of executing a trade on a pool.
type TradeCosts struct {
	FeePct       float64 `json:"feePct"`
	SlippagePct  float64 `json:"slippagePct"`
	TotalCostPct float64 `json:"totalCostPct"`
	FeeUSD       float64 `json:"feeUSD"`
	SlippageUSD  float64 `json:"slippageUSD"`
	TotalCostUSD float64 `json:"totalCostUSD"`
}

// SafetyReport accumulates the scorer's safety checks for one pool.
type SafetyReport struct {
	// Score starts at 100 and is reduced by each failed check.
	Score float64 `json:"score"`
	// Warnings are the check codes that fired.
	Warnings []string `json:"warnings"`
	// SandwichRisk is NONE, MEDIUM, HIGH or CRITICAL.
	SandwichRisk string `json:"sandwichRisk"`
	// IsUntradeable is set by hard failures (rug, V3 out of range).
	IsUntradeable bool `json:"isUntradeable"`
	// OutOfRange is set for V3 pools with no active liquidity.
	OutOfRange bool `json:"outOfRange"`
}

// PoolScore is the trade-aware evaluation of a single pool.
type PoolScore struct {
	Pool      *Pool          `json:"pool"`
	Score     float64        `json:"score"`
	Costs     TradeCosts     `json:"costs"`
	Tradeable bool           `json:"tradeable"`
	RiskLevel RiskLevel      `json:"riskLevel"`
	Safety    SafetyReport   `json:"safety"`
	TradeSize TradeSizeClass `json:"tradeSize"`
	Reason    string         `json:"reason,omitempty"`
}

// BestPools holds the per-criterion winners of an analysis.
type BestPools struct {
	ByLiquidity   *Pool `json:"byLiquidity,omitempty"`
	ByPriceUSD    *Pool `json:"byPriceUSD,omitempty"`
	ByPriceNative *Pool `json:"byPriceNative,omitempty"`
	ByFee         *Pool `json:"byFee,omitempty"`
	// ByProtocol maps protocol kind to its best-by-liquidity pool.
	ByProtocol map[ProtocolKind]*Pool `json:"byProtocol,omitempty"`
	// Recommended is the scorer's pick for the default trade size.
	Recommended *PoolScore `json:"recommended,omitempty"`
}

// AggregatePrice is the outlier-filtered, liquidity-weighted price summary.
type AggregatePrice struct {
	AvgPriceUSD    float64 `json:"avgPriceUSD"`
	AvgPriceNative float64 `json:"avgPriceNative"`
	MedianUSD      float64 `json:"medianUSD"`
	MedianNative   float64 `json:"medianNative"`
	MinPriceUSD    float64 `json:"minPriceUSD"`
	MaxPriceUSD    float64 `json:"maxPriceUSD"`
	// PricesByPair groups individual pool USD prices by pair-token symbol.
	PricesByPair map[string][]float64 `json:"pricesByPair,omitempty"`
	// SampleCount is the number of pools that passed the outlier filter.
	SampleCount int `json:"sampleCount"`
}

// ProtocolStatus records the fetch outcome for one protocol family.
type ProtocolStatus struct {
	// Status is success, failed or skipped.
	Status string `json:"status"`
	// Pools is the number of candidates submitted to the fetcher.
	Pools int `json:"pools"`
	// Returned is the number of pools reconstructed.
	Returned int `json:"returned"`
	Error    string `json:"error,omitempty"`
}

const (
	ProtocolFetchSuccess = "success"
	ProtocolFetchFailed  = "failed"
	ProtocolFetchSkipped = "skipped"
)

// AnalysisMeta carries caching and freshness information for a result.
type AnalysisMeta struct {
	Timestamp      int64                           `json:"timestamp"`
	Cached         bool                            `json:"cached"`
	CacheAgeMs     int64                           `json:"cacheAgeMs,omitempty"`
	Deduplicated   bool                            `json:"deduplicated,omitempty"`
	PricesStale    bool                            `json:"pricesStale,omitempty"`
	PartialResults bool                            `json:"partialResults,omitempty"`
	ProtocolStatus map[ProtocolKind]ProtocolStatus `json:"protocolStatus,omitempty"`
}

// AnalysisPerformance captures timing of a single analysis.
type AnalysisPerformance struct {
	TotalMs int64 `json:"totalMs"`
	// Grade is A+ (<500ms), A (<1000ms), B (<2000ms) or C.
	Grade string `json:"grade"`
}

// PerformanceGrade maps a total duration in milliseconds to a letter grade.
func PerformanceGrade(totalMs int64) string {
	switch {
	case totalMs < 500:
		return "A+"
	case totalMs < 1000:
		return "A"
	case totalMs < 2000:
		return "B"
	default:
		return "C"
	}
}

// LiquidityDistribution summarizes how liquidity spreads across pools.
type LiquidityDistribution struct {
	TotalUSD float64 `json:"totalUSD"`
	// ByProtocol maps protocol kind to its share of the total, in percent.
	ByProtocol map[ProtocolKind]float64 `json:"byProtocol"`
	// TopPoolSharePct is the largest single pool's share of the total.
	TopPoolSharePct float64 `json:"topPoolSharePct"`
	ActivePools     int     `json:"activePools"`
}

// AnalysisSummary is the headline view of an analysis.
type AnalysisSummary struct {
	TotalPools        int     `json:"totalPools"`
	ActivePools       int     `json:"activePools"`
	RuggedPools       int     `json:"ruggedPools"`
	TotalLiquidityUSD float64 `json:"totalLiquidityUSD"`
	PriceUSD          float64 `json:"priceUSD"`
	PriceNative       float64 `json:"priceNative"`
}

// AnalyzeOptions controls a single analysis request.
type AnalyzeOptions struct {
	// ForceRefresh bypasses and invalidates the cached analysis.
	ForceRefresh bool
	// Fast restricts discovery to the highest-liquidity bases.
	Fast bool
}

// TradeScenario is one row of the trade-size ladder.
type TradeScenario struct {
	TradeUSD    float64        `json:"tradeUSD"`
	SizeClass   TradeSizeClass `json:"sizeClass"`
	Recommended *PoolScore     `json:"recommended,omitempty"`
}

// AnalysisResult is the full output of AnalyzeToken.
type AnalysisResult struct {
	Token   TokenInfo       `json:"token"`
	Summary AnalysisSummary `json:"summary"`

	BestPools BestPools `json:"bestPools"`
	Pools     []*Pool   `json:"pools"`

	Pricing      AggregatePrice        `json:"pricing"`
	Distribution LiquidityDistribution `json:"distribution"`

	Performance AnalysisPerformance `json:"performance"`
	Meta        AnalysisMeta        `json:"meta"`
	Warnings    []Warning           `json:"warnings"`
}

// ActivePools returns the pools whose status admits trading
// (ACTIVE or WARNING_LIQUIDITY).
func (r *AnalysisResult) ActivePools() []*Pool {
	active := make([]*Pool, 0, len(r.Pools))
	for _, pool := range r.Pools {
		if pool.Liquidity.Status == StatusActive || pool.Liquidity.Status == StatusWarningLiquidity {
			active = append(active, pool)
		}
	}
	return active
}
