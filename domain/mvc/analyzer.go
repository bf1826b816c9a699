package mvc

import (
	"context"

	"github.com/dexlens/dexlens/domain"
)

// AnalyzerUsecase orchestrates the full pool analysis pipeline for a token.
type AnalyzerUsecase interface {
	// AnalyzeToken discovers, fetches, prices and scores every pool trading
	// the token against the base set. Results are cached; concurrent calls
	// for the same (token, forceRefresh) share one in-flight analysis.
	AnalyzeToken(ctx context.Context, address string, opts domain.AnalyzeOptions) (*domain.AnalysisResult, error)

	// GetCachedAnalysis returns the cached result without triggering work.
	// Used by the synchronous cache-only endpoints.
	GetCachedAnalysis(address string) (*domain.AnalysisResult, bool)

	// ScorePools re-scores the pools of an analysis for a custom trade size,
	// tradeable pools first in ascending total-cost order.
	ScorePools(result *domain.AnalysisResult, tradeUSD float64) []domain.PoolScore

	// TradeScenarios scores the analysis across a ladder of trade sizes.
	TradeScenarios(result *domain.AnalysisResult, sizesUSD []float64) []domain.TradeScenario

	// SplitTrade allocates a large trade across tradeable pools with a
	// greedy heuristic capping each pool's share and liquidity consumption.
	SplitTrade(result *domain.AnalysisResult, totalUSD float64) (*domain.SplitTradePlan, error)
}
