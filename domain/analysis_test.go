package domain_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dexlens/dexlens/domain"
)

func TestClassifyTradeSize(t *testing.T) {
	tests := []struct {
		tradeUSD float64
		want     domain.TradeSizeClass
	}{
		{50, domain.TradeSizeMicro},
		{100, domain.TradeSizeSmall},
		{999, domain.TradeSizeSmall},
		{1_000, domain.TradeSizeMedium},
		{10_000, domain.TradeSizeLarge},
		{100_000, domain.TradeSizeWhale},
		{5_000_000, domain.TradeSizeWhale},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, domain.ClassifyTradeSize(tt.tradeUSD), "tradeUSD=%v", tt.tradeUSD)
	}
}

func TestPerformanceGrade(t *testing.T) {
	require.Equal(t, "A+", domain.PerformanceGrade(499))
	require.Equal(t, "A", domain.PerformanceGrade(500))
	require.Equal(t, "A", domain.PerformanceGrade(999))
	require.Equal(t, "B", domain.PerformanceGrade(1_000))
	require.Equal(t, "B", domain.PerformanceGrade(1_999))
	require.Equal(t, "C", domain.PerformanceGrade(2_000))
}

func TestSeverityRank(t *testing.T) {
	require.Less(t, domain.SeverityRank(domain.SeverityCritical), domain.SeverityRank(domain.SeverityHigh))
	require.Less(t, domain.SeverityRank(domain.SeverityHigh), domain.SeverityRank(domain.SeverityMedium))
	require.Less(t, domain.SeverityRank(domain.SeverityMedium), domain.SeverityRank(domain.SeverityLow))
	require.Greater(t, domain.SeverityRank("UNKNOWN"), domain.SeverityRank(domain.SeverityLow))
}

func TestPoolFeePercent(t *testing.T) {
	pool := &domain.Pool{Fee: 3000}
	require.InDelta(t, 0.3, pool.FeePercent(), 1e-12)

	pool.Fee = domain.V2DefaultFee
	require.InDelta(t, 0.25, pool.FeePercent(), 1e-12)
}

func TestPoolPairTokenOrientation(t *testing.T) {
	target := domain.TokenInfo{Address: "0x1111111111111111111111111111111111111111", Symbol: "TKN"}
	wbnb := domain.KnownTokens[domain.WrapperAddress]

	pool := &domain.Pool{Token0: target, Token1: wbnb}
	require.True(t, pool.TargetIsToken0(target.Address))
	require.Equal(t, "WBNB", pool.PairToken(target.Address).Symbol)

	flipped := &domain.Pool{Token0: wbnb, Token1: target}
	require.False(t, flipped.TargetIsToken0(target.Address))
	require.Equal(t, "WBNB", flipped.PairToken(target.Address).Symbol)
}

func TestParseAddress(t *testing.T) {
	addr, err := domain.ParseAddress(domain.WrapperAddress)
	require.NoError(t, err)
	require.Equal(t, domain.WrapperAddress, domain.LowerAddress(addr))

	_, err = domain.ParseAddress("0x123")
	require.ErrorAs(t, err, &domain.InvalidAddressError{})
}

func TestActivePools(t *testing.T) {
	result := &domain.AnalysisResult{
		Pools: []*domain.Pool{
			{Address: "a", Liquidity: domain.LiquidityInfo{Status: domain.StatusActive}},
			{Address: "b", Liquidity: domain.LiquidityInfo{Status: domain.StatusWarningLiquidity}},
			{Address: "c", Liquidity: domain.LiquidityInfo{Status: domain.StatusRugged}},
			{Address: "d", Liquidity: domain.LiquidityInfo{Status: domain.StatusEmpty}},
		},
	}

	active := result.ActivePools()
	require.Len(t, active, 2)
	require.Equal(t, "a", active[0].Address)
	require.Equal(t, "b", active[1].Address)
}
