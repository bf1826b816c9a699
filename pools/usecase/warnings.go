package usecase

import (
	"fmt"
	"sort"

	"github.com/dexlens/dexlens/domain"
)

// Analysis-level warning codes.
const (
	warnPartialResults      = "PARTIAL_RESULTS"
	warnStalePrices         = "STALE_PRICES"
	warnSlowResponse        = "SLOW_RESPONSE"
	warnNoActivePools       = "NO_ACTIVE_POOLS"
	warnRugPullDetected     = "RUG_PULL_DETECTED"
	warnV3RuggedPools       = "V3_RUGGED_POOLS"
	warnExtremelyLowLiq     = "EXTREMELY_LOW_LIQUIDITY"
	warnLowLiquidity        = "LOW_LIQUIDITY"
	warnModerateLiquidity   = "MODERATE_LIQUIDITY"
	warnExtremeSlippage     = "EXTREME_SLIPPAGE"
	warnHighSlippage        = "HIGH_SLIPPAGE"
	warnModerateSlippage    = "MODERATE_SLIPPAGE"
	warnPriceSpreadHigh     = "PRICE_SPREAD_HIGH"
	warnPriceSpreadModerate = "PRICE_SPREAD_MODERATE"
	warnSinglePool          = "SINGLE_POOL"
)

// generateWarnings walks a formed result and emits the advisory list,
// sorted CRITICAL first.
func generateWarnings(result *domain.AnalysisResult, targetLower string) []domain.Warning {
	var warnings []domain.Warning
	add := func(code string, severity domain.WarningSeverity, message string) {
		warnings = append(warnings, domain.Warning{Code: code, Severity: severity, Message: message})
	}

	for kind, st := range result.Meta.ProtocolStatus {
		if st.Status == domain.ProtocolFetchFailed {
			add(warnPartialResults, domain.SeverityMedium,
				fmt.Sprintf("%s fetch failed: %s", kind, st.Error))
			break
		}
	}

	if result.Meta.PricesStale {
		add(warnStalePrices, domain.SeverityMedium, "oracle prices were stale at fetch time")
	}

	if result.Performance.TotalMs > 2000 {
		add(warnSlowResponse, domain.SeverityLow,
			fmt.Sprintf("analysis took %dms", result.Performance.TotalMs))
	}

	active := result.ActivePools()
	if len(active) == 0 {
		add(warnNoActivePools, domain.SeverityCritical, "no pool has tradeable liquidity")
	}
	if len(active) == 1 {
		add(warnSinglePool, domain.SeverityMedium, "only one active pool; no price competition")
	}

	ruggedV3 := 0
	rugPull := false
	for _, pool := range result.Pools {
		if pool.Kind == domain.ProtocolV3 && pool.Liquidity.Status == domain.StatusRugged {
			ruggedV3++
		}
		if pool.Liquidity.Status != domain.StatusRugged && rugPullDetected(pool, targetLower) {
			rugPull = true
		}
	}
	if rugPull {
		add(warnRugPullDetected, domain.SeverityCritical,
			"a pool's pair-side reserves are drained while the token side remains")
	}
	if ruggedV3 > 0 {
		add(warnV3RuggedPools, domain.SeverityCritical,
			fmt.Sprintf("%d concentrated-liquidity pool(s) appear abandoned", ruggedV3))
	}

	if rec := result.BestPools.Recommended; rec != nil && rec.Pool != nil {
		liq := rec.Pool.Liquidity.TotalUSD
		switch {
		case liq < 1_000:
			add(warnExtremelyLowLiq, domain.SeverityCritical,
				fmt.Sprintf("best pool holds only $%.0f", liq))
		case liq < 10_000:
			add(warnLowLiquidity, domain.SeverityHigh,
				fmt.Sprintf("best pool holds only $%.0f", liq))
		case liq < 50_000:
			add(warnModerateLiquidity, domain.SeverityMedium,
				fmt.Sprintf("best pool holds $%.0f", liq))
		}

		slippage := rec.Costs.SlippagePct
		switch {
		case slippage > 5:
			add(warnExtremeSlippage, domain.SeverityCritical,
				fmt.Sprintf("estimated slippage %.2f%%", slippage))
		case slippage > 2:
			add(warnHighSlippage, domain.SeverityHigh,
				fmt.Sprintf("estimated slippage %.2f%%", slippage))
		case slippage > 1:
			add(warnModerateSlippage, domain.SeverityMedium,
				fmt.Sprintf("estimated slippage %.2f%%", slippage))
		}
	}

	if result.Pricing.AvgPriceUSD > 0 {
		spreadPct := (result.Pricing.MaxPriceUSD - result.Pricing.MinPriceUSD) /
			result.Pricing.AvgPriceUSD * 100
		switch {
		case spreadPct > 10:
			add(warnPriceSpreadHigh, domain.SeverityHigh,
				fmt.Sprintf("cross-pool price spread %.1f%%", spreadPct))
		case spreadPct > 5:
			add(warnPriceSpreadModerate, domain.SeverityMedium,
				fmt.Sprintf("cross-pool price spread %.1f%%", spreadPct))
		}
	}

	sort.SliceStable(warnings, func(i, j int) bool {
		return domain.SeverityRank(warnings[i].Severity) < domain.SeverityRank(warnings[j].Severity)
	})
	return warnings
}
