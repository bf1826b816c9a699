package usecase

import (
	"sort"

	"github.com/dexlens/dexlens/domain"
)

// Safety check codes attached to a pool's SafetyReport.
const (
	checkV3NoLiquidityInRange  = "V3_NO_LIQUIDITY_IN_RANGE"
	checkPriceManipulation     = "PRICE_MANIPULATION_RISK"
	checkPriceDeviationHigh    = "PRICE_DEVIATION_HIGH"
	checkPriceDeviationMod     = "PRICE_DEVIATION_MODERATE"
	checkSandwichRisk          = "SANDWICH_RISK"
	checkLiquidityExtremelyLow = "LIQUIDITY_EXTREMELY_LOW"
	checkLiquidityLow          = "LIQUIDITY_LOW"
	checkRugPull               = "RUG_PULL_DETECTED"
	checkPoolInactive          = "POOL_INACTIVE"
	checkVolatilePair          = "VOLATILE_PAIR_FOR_LARGE_TRADE"
	checkUnusuallyHighFee      = "UNUSUALLY_HIGH_FEE"
)

// Sandwich risk grades.
const (
	sandwichNone     = "NONE"
	sandwichMedium   = "MEDIUM"
	sandwichHigh     = "HIGH"
	sandwichCritical = "CRITICAL"
)

const (
	// v2SlippageFactor scales trade-to-liquidity ratio into a slippage
	// percentage for constant-product pools.
	v2SlippageFactor = 50
	// v3EfficiencyFactor discounts concentrated-liquidity slippage.
	v3EfficiencyFactor = 5
	// outOfRangeSlippagePct is assigned when a V3 pool has no liquidity in
	// range, making it effectively untradeable.
	outOfRangeSlippagePct = 50
)

// Pair-side minimum reserves; below these with a non-zero target side the
// pool is treated as rugged.
const (
	minReserveWrapper   = 0.001
	minReserveStable    = 10
	minReserveEcosystem = 5
	minReserveOther     = 10
)

// scorePool evaluates one pool for a trade of tradeUSD against the
// aggregate USD price of the analysis.
func scorePool(pool *domain.Pool, targetLower string, tradeUSD, aggregateUSD float64) domain.PoolScore {
	safety := evaluateSafety(pool, targetLower, tradeUSD, aggregateUSD)

	liquidityUSD := pool.Liquidity.TotalUSD
	slippagePct := estimateSlippagePct(pool, tradeUSD, safety.OutOfRange)
	feePct := pool.FeePercent()
	totalCostPct := feePct + slippagePct

	costs := domain.TradeCosts{
		FeePct:       feePct,
		SlippagePct:  slippagePct,
		TotalCostPct: totalCostPct,
		FeeUSD:       tradeUSD * feePct / 100,
		SlippageUSD:  tradeUSD * slippagePct / 100,
		TotalCostUSD: tradeUSD * totalCostPct / 100,
	}

	tradeable := !safety.IsUntradeable &&
		liquidityUSD >= 0.1*tradeUSD &&
		safety.Score >= 30

	var liquidityRatio float64
	if tradeUSD > 0 {
		liquidityRatio = liquidityUSD / tradeUSD
	}

	base := 100 - totalCostPct*10
	if liquidityRatio > 50 {
		base += 10
	}
	if base < 0 {
		base = 0
	}
	score := base * safety.Score / 100

	return domain.PoolScore{
		Pool:      pool,
		Score:     score,
		Costs:     costs,
		Tradeable: tradeable,
		RiskLevel: riskLevelFor(liquidityRatio, safety.Score, safety.SandwichRisk, tradeUSD),
		Safety:    safety,
		TradeSize: domain.ClassifyTradeSize(tradeUSD),
	}
}

func estimateSlippagePct(pool *domain.Pool, tradeUSD float64, outOfRange bool) float64 {
	if outOfRange {
		return outOfRangeSlippagePct
	}

	liquidityUSD := pool.Liquidity.TotalUSD
	if liquidityUSD <= 0 {
		return outOfRangeSlippagePct
	}

	slippage := tradeUSD / liquidityUSD * v2SlippageFactor
	if pool.Kind == domain.ProtocolV3 {
		slippage /= v3EfficiencyFactor
	}
	return slippage
}

// evaluateSafety runs the eight safety checks, deducting from a 100-point
// score and accumulating the codes that fired.
func evaluateSafety(pool *domain.Pool, targetLower string, tradeUSD, aggregateUSD float64) domain.SafetyReport {
	report := domain.SafetyReport{
		Score:        100,
		SandwichRisk: sandwichNone,
	}
	liquidityUSD := pool.Liquidity.TotalUSD

	// 1. V3 with no active liquidity is untradeable outright.
	if pool.Kind == domain.ProtocolV3 &&
		(pool.V3 == nil || pool.V3.Liquidity == nil || pool.V3.Liquidity.Sign() == 0 ||
			pool.Liquidity.Status == domain.StatusRugged) {
		report.Warnings = append(report.Warnings, checkV3NoLiquidityInRange)
		report.Score -= 50
		report.IsUntradeable = true
		report.OutOfRange = true
	}

	// 2. Deviation from the aggregate price.
	if aggregateUSD > 0 && pool.Price.InUSD > 0 {
		deviation := pool.Price.InUSD - aggregateUSD
		if deviation < 0 {
			deviation = -deviation
		}
		deviationPct := deviation / aggregateUSD * 100

		switch {
		case deviationPct > 10:
			report.Warnings = append(report.Warnings, checkPriceManipulation)
			report.Score -= 40
		case deviationPct > 5:
			report.Warnings = append(report.Warnings, checkPriceDeviationHigh)
			report.Score -= 20
		case deviationPct > 2:
			report.Warnings = append(report.Warnings, checkPriceDeviationMod)
			report.Score -= 5
		}
	}

	// 3. Sandwich exposure by trade-to-liquidity ratio.
	if liquidityUSD > 0 {
		ratio := tradeUSD / liquidityUSD
		switch {
		case ratio > 0.10:
			report.SandwichRisk = sandwichCritical
			report.Warnings = append(report.Warnings, checkSandwichRisk)
			report.Score -= 30
		case ratio > 0.05:
			report.SandwichRisk = sandwichHigh
			report.Warnings = append(report.Warnings, checkSandwichRisk)
			report.Score -= 15
		case ratio > 0.01:
			report.SandwichRisk = sandwichMedium
		}
	}

	// 4. Absolute liquidity depth.
	switch {
	case liquidityUSD < 1_000:
		report.Warnings = append(report.Warnings, checkLiquidityExtremelyLow)
		report.Score -= 30
	case liquidityUSD < 10_000:
		report.Warnings = append(report.Warnings, checkLiquidityLow)
		report.Score -= 15
	}

	// 5. Rug-pull: pair-side reserves drained while the target side remains.
	if rugPullDetected(pool, targetLower) {
		report.Warnings = append(report.Warnings, checkRugPull)
		report.Score = 0
		report.IsUntradeable = true
	}

	// 6. Non-active liquidity status.
	if pool.Liquidity.Status != domain.StatusActive {
		report.Warnings = append(report.Warnings, checkPoolInactive)
		report.Score -= 20
	}

	// 7. Large trades against a volatile pair token.
	pair := pool.PairToken(targetLower)
	pairLower := domain.LowerHex(pair.Address)
	if tradeUSD > 10_000 && !domain.IsStable(pairLower) && !domain.IsWrapper(pairLower) {
		report.Warnings = append(report.Warnings, checkVolatilePair)
		report.Score -= 10
	}

	// 8. Fee above every known tier.
	if pool.Fee > 10_000 {
		report.Warnings = append(report.Warnings, checkUnusuallyHighFee)
		report.Score -= 15
	}

	if report.Score < 0 {
		report.Score = 0
	}
	return report
}

// rugPullDetected checks the pair-side reserve against its per-class
// minimum while the target side still holds tokens.
func rugPullDetected(pool *domain.Pool, targetLower string) bool {
	var targetAmount, pairAmount float64
	if pool.TargetIsToken0(targetLower) {
		targetAmount = pool.Liquidity.Token0Amount
		pairAmount = pool.Liquidity.Token1Amount
	} else {
		targetAmount = pool.Liquidity.Token1Amount
		pairAmount = pool.Liquidity.Token0Amount
	}

	return targetAmount > 0 && pairAmount < pairMinimumReserve(pool.PairToken(targetLower))
}

func pairMinimumReserve(pair domain.TokenInfo) float64 {
	lower := domain.LowerHex(pair.Address)
	switch {
	case domain.IsWrapper(lower):
		return minReserveWrapper
	case domain.IsStable(lower):
		return minReserveStable
	case domain.IsEcosystem(lower):
		return minReserveEcosystem
	default:
		return minReserveOther
	}
}

// riskLevelFor starts from the liquidity ratio and upgrades by safety score,
// sandwich grade and absolute trade size.
func riskLevelFor(liquidityRatio, safetyScore float64, sandwichRisk string, tradeUSD float64) domain.RiskLevel {
	level := domain.RiskLow
	switch {
	case liquidityRatio < 5:
		level = domain.RiskHigh
	case liquidityRatio < 20:
		level = domain.RiskMedium
	}

	switch {
	case safetyScore < 50 || sandwichRisk == sandwichCritical:
		return domain.RiskCritical
	case safetyScore < 70 || sandwichRisk == sandwichHigh:
		if level != domain.RiskCritical {
			level = domain.RiskHigh
		}
	case safetyScore < 85 && level == domain.RiskLow:
		level = domain.RiskMedium
	}

	if tradeUSD > 50_000 && level == domain.RiskLow {
		level = domain.RiskMedium
	}
	return level
}

// scoreAllPools evaluates every pool, tradeable pools first in ascending
// total-cost order with descending liquidity as the tie-break.
func scoreAllPools(pools []*domain.Pool, targetLower string, tradeUSD, aggregateUSD float64) []domain.PoolScore {
	scores := make([]domain.PoolScore, 0, len(pools))
	for _, pool := range pools {
		scores = append(scores, scorePool(pool, targetLower, tradeUSD, aggregateUSD))
	}

	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].Tradeable != scores[j].Tradeable {
			return scores[i].Tradeable
		}
		if scores[i].Costs.TotalCostPct != scores[j].Costs.TotalCostPct {
			return scores[i].Costs.TotalCostPct < scores[j].Costs.TotalCostPct
		}
		return scores[i].Pool.Liquidity.TotalUSD > scores[j].Pool.Liquidity.TotalUSD
	})
	return scores
}

// selectRecommended picks the cheapest tradeable pool. With no tradeable
// pool the first candidate is returned zero-scored so callers still see
// what was evaluated.
func selectRecommended(scores []domain.PoolScore) *domain.PoolScore {
	if len(scores) == 0 {
		return nil
	}

	if scores[0].Tradeable {
		best := scores[0]
		return &best
	}

	fallback := scores[0]
	fallback.Score = 0
	fallback.Reason = "No optimal pool found"
	return &fallback
}

// buildBestPools computes the per-criterion winners. Rugged pools never
// appear in any slot.
func buildBestPools(pools []*domain.Pool, recommended *domain.PoolScore) domain.BestPools {
	best := domain.BestPools{
		ByProtocol:  make(map[domain.ProtocolKind]*domain.Pool),
		Recommended: recommended,
	}

	deeper := func(a, b *domain.Pool) bool {
		if a.Liquidity.TotalUSD != b.Liquidity.TotalUSD {
			return a.Liquidity.TotalUSD > b.Liquidity.TotalUSD
		}
		// All-zero USD analyses fall back to raw token amounts.
		return a.Liquidity.Token0Amount+a.Liquidity.Token1Amount >
			b.Liquidity.Token0Amount+b.Liquidity.Token1Amount
	}

	for _, pool := range pools {
		if pool.Liquidity.Status == domain.StatusRugged {
			continue
		}

		if best.ByLiquidity == nil || deeper(pool, best.ByLiquidity) {
			best.ByLiquidity = pool
		}
		if pool.Price.InUSD > 0 && (best.ByPriceUSD == nil || pool.Price.InUSD > best.ByPriceUSD.Price.InUSD) {
			best.ByPriceUSD = pool
		}
		if pool.Price.InNative > 0 && (best.ByPriceNative == nil || pool.Price.InNative > best.ByPriceNative.Price.InNative) {
			best.ByPriceNative = pool
		}
		if best.ByFee == nil || pool.Fee < best.ByFee.Fee {
			best.ByFee = pool
		}
		if current, ok := best.ByProtocol[pool.Kind]; !ok || deeper(pool, current) {
			best.ByProtocol[pool.Kind] = pool
		}
	}

	if recommended != nil && recommended.Pool != nil &&
		recommended.Pool.Liquidity.Status == domain.StatusRugged {
		best.Recommended = nil
	}
	return best
}
