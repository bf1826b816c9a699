package mvc

import (
	"context"
	"math/big"
)

// PriceOracle maintains USD prices for the base-token set and derives
// pool values from them.
type PriceOracle interface {
	// GetNativePriceUSD returns the wrapper token's USD price.
	GetNativePriceUSD() float64

	// GetPriceUSD returns the USD price for a lowercased token address.
	GetPriceUSD(addressLower string) (float64, bool)

	// SetPriceUSD overrides a token's USD price. Used by the admin surface.
	SetPriceUSD(addressLower string, priceUSD float64)

	// Snapshot returns a copy of the current price map.
	Snapshot() map[string]float64

	// AreStale reports whether the last successful refresh is older than
	// the staleness threshold.
	AreStale() bool

	// RefreshFromChain re-derives the wrapper and ecosystem prices from the
	// two oracle pools. Concurrent callers share a single in-flight refresh.
	RefreshFromChain(ctx context.Context) error

	// CalcPoolValueUSD computes a pool's USD TVL from its two raw amounts,
	// deriving the unknown side from the pool price ratio when only one
	// side has a known USD price. Returns 0 when neither side is known.
	CalcPoolValueUSD(token0Lower, token1Lower string, amount0, amount1 *big.Int, decimals0, decimals1 uint8, poolPriceRatio float64) float64
}
