package usecase

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/dexlens/dexlens/domain"
)

const testTargetAddress = "0x1111111111111111111111111111111111111111"

var (
	testTargetToken = domain.TokenInfo{
		Address:  common.HexToAddress(testTargetAddress).Hex(),
		Symbol:   "TKN",
		Name:     "Test Token",
		Decimals: 18,
	}
	testUSDTToken = domain.KnownTokens[domain.USDTAddress]
	testWBNBToken = domain.KnownTokens[domain.WrapperAddress]
)

func activeV3Pool(address string, fee uint32, liquidityUSD float64, pair domain.TokenInfo) *domain.Pool {
	return &domain.Pool{
		Address:  address,
		Kind:     domain.ProtocolV3,
		Protocol: v3ProtocolName,
		Token0:   testTargetToken,
		Token1:   pair,
		Fee:      fee,
		V3: &domain.V3State{
			SqrtPriceX96: new(big.Int).Lsh(big.NewInt(1), 96),
			Liquidity:    big.NewInt(1_000_000),
		},
		Liquidity: domain.LiquidityInfo{
			TotalUSD:     liquidityUSD,
			Token0Amount: liquidityUSD / 2,
			Token1Amount: liquidityUSD / 2,
			Status:       domain.StatusActive,
		},
		Price: domain.PriceInfo{InUSD: 1.0},
	}
}

func activeV2Pool(address string, liquidityUSD float64, pair domain.TokenInfo) *domain.Pool {
	return &domain.Pool{
		Address:  address,
		Kind:     domain.ProtocolV2,
		Protocol: v2ProtocolName,
		Token0:   testTargetToken,
		Token1:   pair,
		Fee:      domain.V2DefaultFee,
		V2: &domain.V2State{
			Reserve0: big.NewInt(1_000_000),
			Reserve1: big.NewInt(1_000_000),
		},
		Liquidity: domain.LiquidityInfo{
			TotalUSD:     liquidityUSD,
			Token0Amount: liquidityUSD / 2,
			Token1Amount: liquidityUSD / 2,
			Status:       domain.StatusActive,
		},
		Price: domain.PriceInfo{InUSD: 1.0},
	}
}

func TestScorePoolHealthyPool(t *testing.T) {
	pool := activeV2Pool("0xaaa1", 500_000, testUSDTToken)

	score := scorePool(pool, testTargetAddress, 1_000, 1.0)

	require.True(t, score.Tradeable)
	require.Equal(t, float64(100), score.Safety.Score)
	require.Empty(t, score.Safety.Warnings)
	require.Equal(t, domain.RiskLow, score.RiskLevel)

	// fee 0.25% + slippage (1000/500000)*50 = 0.1%
	require.InDelta(t, 0.25, score.Costs.FeePct, 1e-9)
	require.InDelta(t, 0.1, score.Costs.SlippagePct, 1e-9)
	require.InDelta(t, 3.5, score.Costs.TotalCostUSD, 1e-9)

	// liquidity ratio 500 > 50 earns the depth bonus
	require.InDelta(t, (100-0.35*10+10), score.Score, 1e-9)
}

func TestScorePoolEmptyPool(t *testing.T) {
	pool := &domain.Pool{
		Address:  "0xaaa2",
		Kind:     domain.ProtocolV2,
		Protocol: v2ProtocolName,
		Token0:   testTargetToken,
		Token1:   testUSDTToken,
		Fee:      domain.V2DefaultFee,
		V2:       &domain.V2State{Reserve0: big.NewInt(0), Reserve1: big.NewInt(0)},
		Liquidity: domain.LiquidityInfo{
			Status: domain.StatusEmpty,
		},
	}

	score := scorePool(pool, testTargetAddress, 1_000, 0)

	require.False(t, score.Tradeable)
	require.Zero(t, score.Score)
	require.Contains(t, score.Safety.Warnings, checkLiquidityExtremelyLow)
	require.Contains(t, score.Safety.Warnings, checkPoolInactive)
	// no liquidity means the slippage estimate saturates
	require.InDelta(t, float64(outOfRangeSlippagePct), score.Costs.SlippagePct, 1e-9)
}

func TestScorePoolRugPull(t *testing.T) {
	// Pair side drained to dust while the token side still holds supply.
	pool := activeV2Pool("0xaaa3", 120, testWBNBToken)
	pool.Liquidity.Token0Amount = 1_000_000
	pool.Liquidity.Token1Amount = 1e-8
	pool.Liquidity.Status = domain.StatusLowLiquidity

	score := scorePool(pool, testTargetAddress, 1_000, 1.0)

	require.False(t, score.Tradeable)
	require.True(t, score.Safety.IsUntradeable)
	require.Zero(t, score.Safety.Score)
	require.Contains(t, score.Safety.Warnings, checkRugPull)
	require.Equal(t, domain.RiskCritical, score.RiskLevel)
}

func TestScorePoolRugPullThresholdPerPairClass(t *testing.T) {
	tests := []struct {
		name       string
		pair       domain.TokenInfo
		pairAmount float64
		wantRugged bool
	}{
		{"wrapper above minimum", testWBNBToken, 0.01, false},
		{"wrapper below minimum", testWBNBToken, 0.0001, true},
		{"stable above minimum", testUSDTToken, 50, false},
		{"stable below minimum", testUSDTToken, 5, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool := activeV2Pool("0xaaa4", 10_000, tt.pair)
			pool.Liquidity.Token0Amount = 1_000
			pool.Liquidity.Token1Amount = tt.pairAmount

			require.Equal(t, tt.wantRugged, rugPullDetected(pool, testTargetAddress))
		})
	}
}

func TestEvaluateSafetyV3OutOfRange(t *testing.T) {
	pool := activeV3Pool("0xaaa5", 500, 0, testUSDTToken)
	pool.V3.Liquidity = big.NewInt(0)
	pool.Liquidity.Status = domain.StatusRugged

	report := evaluateSafety(pool, testTargetAddress, 1_000, 0)

	require.True(t, report.IsUntradeable)
	require.True(t, report.OutOfRange)
	require.Contains(t, report.Warnings, checkV3NoLiquidityInRange)
	require.Zero(t, report.Score)

	score := scorePool(pool, testTargetAddress, 1_000, 0)
	require.InDelta(t, float64(outOfRangeSlippagePct), score.Costs.SlippagePct, 1e-9)
}

func TestEvaluateSafetyPriceDeviation(t *testing.T) {
	tests := []struct {
		name      string
		poolPrice float64
		wantCode  string
		wantScore float64
	}{
		{"manipulation", 1.2, checkPriceManipulation, 60},
		{"high deviation", 1.06, checkPriceDeviationHigh, 80},
		{"moderate deviation", 1.03, checkPriceDeviationMod, 95},
		{"within band", 1.01, "", 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool := activeV2Pool("0xaaa6", 500_000, testUSDTToken)
			pool.Price.InUSD = tt.poolPrice

			report := evaluateSafety(pool, testTargetAddress, 1_000, 1.0)

			require.Equal(t, tt.wantScore, report.Score)
			if tt.wantCode != "" {
				require.Contains(t, report.Warnings, tt.wantCode)
			} else {
				require.Empty(t, report.Warnings)
			}
		})
	}
}

func TestEvaluateSafetySandwichGrades(t *testing.T) {
	tests := []struct {
		name      string
		tradeUSD  float64
		wantGrade string
		wantScore float64
	}{
		{"negligible", 1_000, sandwichNone, 100},
		{"medium", 20_000, sandwichMedium, 100},
		{"high", 70_000, sandwichHigh, 85},
		{"critical", 200_000, sandwichCritical, 70},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool := activeV2Pool("0xaaa7", 1_000_000, testUSDTToken)

			report := evaluateSafety(pool, testTargetAddress, tt.tradeUSD, 1.0)

			require.Equal(t, tt.wantGrade, report.SandwichRisk)
			require.Equal(t, tt.wantScore, report.Score)
		})
	}
}

func TestEvaluateSafetyVolatilePairLargeTrade(t *testing.T) {
	cake := domain.KnownTokens[domain.EcosystemAddress]
	pool := activeV2Pool("0xaaa8", 10_000_000, cake)

	report := evaluateSafety(pool, testTargetAddress, 20_000, 1.0)

	require.Contains(t, report.Warnings, checkVolatilePair)
	require.Equal(t, float64(90), report.Score)

	// the same trade against a stable pair raises no flag
	stablePool := activeV2Pool("0xaaa9", 10_000_000, testUSDTToken)
	report = evaluateSafety(stablePool, testTargetAddress, 20_000, 1.0)
	require.NotContains(t, report.Warnings, checkVolatilePair)
}

func TestEvaluateSafetyUnusualFee(t *testing.T) {
	pool := activeV3Pool("0xaab0", 50_000, 1_000_000, testUSDTToken)

	report := evaluateSafety(pool, testTargetAddress, 1_000, 1.0)

	require.Contains(t, report.Warnings, checkUnusuallyHighFee)
	require.Equal(t, float64(85), report.Score)
}

func TestScoreAllPoolsTradeSizeFlip(t *testing.T) {
	// A cheap-fee shallow pool and an expensive-fee deep pool swap ranks as
	// the trade grows.
	shallow := activeV3Pool("0xpoolA", 500, 20_000, testUSDTToken)
	deep := activeV3Pool("0xpoolB", 3000, 5_000_000, testUSDTToken)

	small := scoreAllPools([]*domain.Pool{shallow, deep}, testTargetAddress, 100, 1.0)
	require.Equal(t, "0xpoolA", small[0].Pool.Address)
	require.True(t, small[0].Tradeable)
	require.True(t, small[1].Tradeable)

	large := scoreAllPools([]*domain.Pool{shallow, deep}, testTargetAddress, 100_000, 1.0)
	require.Equal(t, "0xpoolB", large[0].Pool.Address)
	require.True(t, large[0].Tradeable)

	// the shallow pool takes a critical sandwich grade at this size
	var shallowScore domain.PoolScore
	for _, s := range large {
		if s.Pool.Address == "0xpoolA" {
			shallowScore = s
		}
	}
	require.Equal(t, sandwichCritical, shallowScore.Safety.SandwichRisk)
	require.Equal(t, domain.RiskCritical, shallowScore.RiskLevel)
}

func TestScoreBoundsInvariant(t *testing.T) {
	pools := []*domain.Pool{
		activeV2Pool("0xaab1", 50, testUSDTToken),
		activeV2Pool("0xaab2", 5_000, testWBNBToken),
		activeV3Pool("0xaab3", 10000, 100_000_000, testUSDTToken),
		activeV3Pool("0xaab4", 100, 0, testUSDTToken),
	}

	for _, tradeUSD := range []float64{1, 100, 10_000, 1_000_000} {
		for _, score := range scoreAllPools(pools, testTargetAddress, tradeUSD, 1.0) {
			require.GreaterOrEqual(t, score.Score, float64(0))
			require.LessOrEqual(t, score.Score, float64(110))
			require.GreaterOrEqual(t, score.Safety.Score, float64(0))
			require.LessOrEqual(t, score.Safety.Score, float64(100))
			if score.Safety.IsUntradeable {
				require.False(t, score.Tradeable)
			}
		}
	}
}

func TestSelectRecommendedFallback(t *testing.T) {
	pool := activeV2Pool("0xaab5", 10, testUSDTToken)
	scores := scoreAllPools([]*domain.Pool{pool}, testTargetAddress, 10_000, 1.0)

	rec := selectRecommended(scores)

	require.NotNil(t, rec)
	require.False(t, rec.Tradeable)
	require.Zero(t, rec.Score)
	require.Equal(t, "No optimal pool found", rec.Reason)
}

func TestSelectRecommendedEmpty(t *testing.T) {
	require.Nil(t, selectRecommended(nil))
}

func TestBuildBestPoolsExcludesRugged(t *testing.T) {
	rugged := activeV2Pool("0xaab6", 9_000_000, testWBNBToken)
	rugged.Liquidity.Status = domain.StatusRugged

	healthy := activeV2Pool("0xaab7", 400_000, testUSDTToken)
	healthy.Fee = 3000

	scores := scoreAllPools([]*domain.Pool{rugged, healthy}, testTargetAddress, 1_000, 1.0)
	rec := selectRecommended(scores)

	best := buildBestPools([]*domain.Pool{rugged, healthy}, rec)

	require.Equal(t, "0xaab7", best.ByLiquidity.Address)
	require.Equal(t, "0xaab7", best.ByFee.Address)
	require.NotContains(t, best.ByProtocol, domain.ProtocolV3)
	require.Equal(t, "0xaab7", best.ByProtocol[domain.ProtocolV2].Address)
}

func TestBuildBestPoolsNilsRuggedRecommended(t *testing.T) {
	rugged := activeV2Pool("0xaab8", 9_000_000, testWBNBToken)
	rugged.Liquidity.Status = domain.StatusRugged

	rec := &domain.PoolScore{Pool: rugged}
	best := buildBestPools([]*domain.Pool{rugged}, rec)

	require.Nil(t, best.Recommended)
	require.Nil(t, best.ByLiquidity)
}

func TestRiskLevelFor(t *testing.T) {
	tests := []struct {
		name           string
		liquidityRatio float64
		safetyScore    float64
		sandwich       string
		tradeUSD       float64
		want           domain.RiskLevel
	}{
		{"deep and safe", 100, 100, sandwichNone, 1_000, domain.RiskLow},
		{"thin liquidity", 3, 100, sandwichNone, 1_000, domain.RiskHigh},
		{"moderate liquidity", 10, 100, sandwichNone, 1_000, domain.RiskMedium},
		{"low safety", 100, 40, sandwichNone, 1_000, domain.RiskCritical},
		{"critical sandwich", 100, 100, sandwichCritical, 1_000, domain.RiskCritical},
		{"mid safety", 100, 60, sandwichNone, 1_000, domain.RiskHigh},
		{"soft safety", 100, 80, sandwichNone, 1_000, domain.RiskMedium},
		{"whale trade", 100, 100, sandwichNone, 60_000, domain.RiskMedium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := riskLevelFor(tt.liquidityRatio, tt.safetyScore, tt.sandwich, tt.tradeUSD)
			require.Equal(t, tt.want, got)
		})
	}
}
