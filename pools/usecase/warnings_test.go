package usecase

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dexlens/dexlens/domain"
)

func warningCodes(warnings []domain.Warning) []string {
	codes := make([]string, 0, len(warnings))
	for _, w := range warnings {
		codes = append(codes, w.Code)
	}
	return codes
}

func TestGenerateWarningsNoActivePools(t *testing.T) {
	rugged := activeV2Pool("0xbbb1", 0, testUSDTToken)
	rugged.Liquidity.Status = domain.StatusRugged

	result := &domain.AnalysisResult{
		Pools: []*domain.Pool{rugged},
	}

	warnings := generateWarnings(result, testTargetAddress)

	require.Contains(t, warningCodes(warnings), warnNoActivePools)
	require.Equal(t, domain.SeverityCritical, warnings[0].Severity)
}

func TestGenerateWarningsSinglePool(t *testing.T) {
	pool := activeV2Pool("0xbbb2", 500_000, testUSDTToken)
	scores := scoreAllPools([]*domain.Pool{pool}, testTargetAddress, 1_000, 1.0)

	result := &domain.AnalysisResult{
		Pools:     []*domain.Pool{pool},
		BestPools: domain.BestPools{Recommended: selectRecommended(scores)},
	}

	codes := warningCodes(generateWarnings(result, testTargetAddress))

	require.Contains(t, codes, warnSinglePool)
	require.NotContains(t, codes, warnNoActivePools)
}

func TestGenerateWarningsLiquidityAndSlippageLadder(t *testing.T) {
	tests := []struct {
		name         string
		liquidityUSD float64
		tradeUSD     float64
		wantCodes    []string
	}{
		{
			name:         "extremely low liquidity",
			liquidityUSD: 500,
			tradeUSD:     100,
			wantCodes:    []string{warnExtremelyLowLiq, warnExtremeSlippage},
		},
		{
			name:         "low liquidity",
			liquidityUSD: 5_000,
			tradeUSD:     150,
			wantCodes:    []string{warnLowLiquidity, warnModerateSlippage},
		},
		{
			name:         "moderate liquidity",
			liquidityUSD: 30_000,
			tradeUSD:     100,
			wantCodes:    []string{warnModerateLiquidity},
		},
		{
			name:         "deep pool",
			liquidityUSD: 500_000,
			tradeUSD:     100,
			wantCodes:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool := activeV2Pool("0xbbb3", tt.liquidityUSD, testUSDTToken)
			other := activeV2Pool("0xbbb4", tt.liquidityUSD, testWBNBToken)
			scores := scoreAllPools([]*domain.Pool{pool, other}, testTargetAddress, tt.tradeUSD, 1.0)

			result := &domain.AnalysisResult{
				Pools:     []*domain.Pool{pool, other},
				BestPools: domain.BestPools{Recommended: selectRecommended(scores)},
			}

			codes := warningCodes(generateWarnings(result, testTargetAddress))

			for _, want := range tt.wantCodes {
				require.Contains(t, codes, want)
			}
			if tt.wantCodes == nil {
				require.Empty(t, codes)
			}
		})
	}
}

func TestGenerateWarningsPriceSpread(t *testing.T) {
	pool := activeV2Pool("0xbbb5", 500_000, testUSDTToken)
	other := activeV2Pool("0xbbb6", 500_000, testWBNBToken)

	result := &domain.AnalysisResult{
		Pools: []*domain.Pool{pool, other},
		BestPools: domain.BestPools{
			Recommended: &domain.PoolScore{Pool: pool},
		},
		Pricing: domain.AggregatePrice{
			AvgPriceUSD: 1.0,
			MinPriceUSD: 0.95,
			MaxPriceUSD: 1.10,
		},
	}

	codes := warningCodes(generateWarnings(result, testTargetAddress))
	require.Contains(t, codes, warnPriceSpreadHigh)

	result.Pricing.MaxPriceUSD = 1.02
	codes = warningCodes(generateWarnings(result, testTargetAddress))
	require.Contains(t, codes, warnPriceSpreadModerate)
	require.NotContains(t, codes, warnPriceSpreadHigh)
}

func TestGenerateWarningsMetaDriven(t *testing.T) {
	pool := activeV2Pool("0xbbb7", 500_000, testUSDTToken)
	other := activeV2Pool("0xbbb8", 500_000, testWBNBToken)

	result := &domain.AnalysisResult{
		Pools: []*domain.Pool{pool, other},
		BestPools: domain.BestPools{
			Recommended: &domain.PoolScore{Pool: pool},
		},
		Meta: domain.AnalysisMeta{
			PricesStale: true,
			ProtocolStatus: map[domain.ProtocolKind]domain.ProtocolStatus{
				domain.ProtocolV3: {Status: domain.ProtocolFetchFailed, Error: "rpc timeout"},
			},
		},
		Performance: domain.AnalysisPerformance{TotalMs: 2_500},
	}

	codes := warningCodes(generateWarnings(result, testTargetAddress))

	require.Contains(t, codes, warnPartialResults)
	require.Contains(t, codes, warnStalePrices)
	require.Contains(t, codes, warnSlowResponse)
}

func TestGenerateWarningsSortedBySeverity(t *testing.T) {
	rugged := activeV2Pool("0xbbb9", 0, testUSDTToken)
	rugged.Liquidity.Status = domain.StatusRugged
	rugged.Kind = domain.ProtocolV3

	result := &domain.AnalysisResult{
		Pools:       []*domain.Pool{rugged},
		Performance: domain.AnalysisPerformance{TotalMs: 3_000},
	}

	warnings := generateWarnings(result, testTargetAddress)
	require.NotEmpty(t, warnings)

	for i := 1; i < len(warnings); i++ {
		require.LessOrEqual(t,
			domain.SeverityRank(warnings[i-1].Severity),
			domain.SeverityRank(warnings[i].Severity))
	}
	require.Equal(t, domain.SeverityCritical, warnings[0].Severity)
	require.Equal(t, domain.SeverityLow, warnings[len(warnings)-1].Severity)
}
