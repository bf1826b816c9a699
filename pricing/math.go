package pricing

import (
	"math/big"
	"sort"

	"github.com/dexlens/dexlens/domain"
)

var (
	// q96 is the V3 fixed-point denominator, 2^96.
	q96 = new(big.Int).Lsh(big.NewInt(1), 96)
	// q96Squared is (2^96)^2, the denominator of sqrtPriceX96^2.
	q96Squared = new(big.Int).Mul(q96, q96)

	ten = big.NewInt(10)
	e18 = new(big.Int).Exp(ten, big.NewInt(18), nil)
)

// pow10 returns 10^exp as a fresh big.Int.
func pow10(exp int64) *big.Int {
	return new(big.Int).Exp(ten, big.NewInt(exp), nil)
}

// CalcV2Price converts constant-product reserves to the prices of each side
// in the other, scaled to account for the tokens' decimals. The
// multiply-before-divide path runs entirely in big integers so that
// 112-bit reserves cannot overflow. Zero input yields zeros.
func CalcV2Price(reserve0, reserve1 *big.Int, decimals0, decimals1 uint8) (token0Price, token1Price float64) {
	if reserve0 == nil || reserve1 == nil || reserve0.Sign() <= 0 || reserve1.Sign() <= 0 {
		return 0, 0
	}

	diff := int64(decimals0) - int64(decimals1)

	// p01 = reserve1 * 1e18 * 10^max(0,diff) / (reserve0 * 10^max(0,-diff)),
	// an 18-decimal fixed-point price of token0 in token1.
	numerator := new(big.Int).Mul(reserve1, e18)
	denominator := new(big.Int).Set(reserve0)
	if diff >= 0 {
		numerator.Mul(numerator, pow10(diff))
	} else {
		denominator.Mul(denominator, pow10(-diff))
	}

	scaled := new(big.Int).Div(numerator, denominator)

	price, _ := new(big.Float).Quo(
		new(big.Float).SetInt(scaled),
		new(big.Float).SetInt(e18),
	).Float64()

	if price <= 0 {
		return 0, 0
	}
	return price, 1 / price
}

// CalcSqrtPriceToPrice converts a Q64.96 square-root price to the price of
// token0 in token1, adjusted for decimals. The squaring and scaling happen
// in 256-bit integer arithmetic; only the final 18-decimal ratio is divided
// in floating point. Returns 0 for zero input.
func CalcSqrtPriceToPrice(sqrtPriceX96 *big.Int, decimals0, decimals1 uint8) float64 {
	if sqrtPriceX96 == nil || sqrtPriceX96.Sign() <= 0 {
		return 0
	}

	numerator := new(big.Int).Mul(sqrtPriceX96, sqrtPriceX96)
	numerator.Mul(numerator, e18)

	diff := int64(decimals0) - int64(decimals1)
	if diff > 0 {
		numerator.Mul(numerator, pow10(diff))
	}

	denominator := new(big.Int).Set(q96Squared)
	if diff < 0 {
		denominator.Mul(denominator, pow10(-diff))
	}

	scaled := new(big.Int).Div(numerator, denominator)

	price, _ := new(big.Float).Quo(
		new(big.Float).SetInt(scaled),
		new(big.Float).SetInt(e18),
	).Float64()

	return price
}

// RawToFloat converts a raw token amount to a float in whole-token units.
func RawToFloat(raw *big.Int, decimals uint8) float64 {
	if raw == nil || raw.Sign() == 0 {
		return 0
	}

	value, _ := new(big.Float).Quo(
		new(big.Float).SetInt(raw),
		new(big.Float).SetInt(pow10(int64(decimals))),
	).Float64()
	return value
}

// PriceSample is one pool's contribution to the aggregate price.
type PriceSample struct {
	PriceUSD        float64
	PriceNative     float64
	LiquidityUSD    float64
	LiquidityNative float64
	PairSymbol      string
}

const (
	// outlierLowerFactor and outlierUpperFactor bound the accepted band
	// around the median price.
	outlierLowerFactor = 0.1
	outlierUpperFactor = 10
)

// CalcAggregatePrice computes the liquidity-weighted average price over the
// samples, excluding pools whose USD price falls outside
// [median*0.1, median*10]. Min and max are left as observed over all
// samples with a positive price.
func CalcAggregatePrice(samples []PriceSample) domain.AggregatePrice {
	agg := domain.AggregatePrice{
		PricesByPair: make(map[string][]float64),
	}

	var usdPrices, nativePrices []float64
	for _, s := range samples {
		if s.PriceUSD > 0 {
			usdPrices = append(usdPrices, s.PriceUSD)
			if agg.MinPriceUSD == 0 || s.PriceUSD < agg.MinPriceUSD {
				agg.MinPriceUSD = s.PriceUSD
			}
			if s.PriceUSD > agg.MaxPriceUSD {
				agg.MaxPriceUSD = s.PriceUSD
			}
			agg.PricesByPair[s.PairSymbol] = append(agg.PricesByPair[s.PairSymbol], s.PriceUSD)
		}
		if s.PriceNative > 0 {
			nativePrices = append(nativePrices, s.PriceNative)
		}
	}

	agg.MedianUSD = median(usdPrices)
	agg.MedianNative = median(nativePrices)

	var (
		usdWeightedSum, usdWeight       float64
		nativeWeightedSum, nativeWeight float64
	)
	for _, s := range samples {
		if s.PriceUSD > 0 && withinOutlierBand(s.PriceUSD, agg.MedianUSD) && s.LiquidityUSD > 0 {
			usdWeightedSum += s.PriceUSD * s.LiquidityUSD
			usdWeight += s.LiquidityUSD
			agg.SampleCount++
		}
		if s.PriceNative > 0 && withinOutlierBand(s.PriceNative, agg.MedianNative) && s.LiquidityNative > 0 {
			nativeWeightedSum += s.PriceNative * s.LiquidityNative
			nativeWeight += s.LiquidityNative
		}
	}

	if usdWeight > 0 {
		agg.AvgPriceUSD = usdWeightedSum / usdWeight
	}
	if nativeWeight > 0 {
		agg.AvgPriceNative = nativeWeightedSum / nativeWeight
	}

	return agg
}

func withinOutlierBand(price, med float64) bool {
	if med <= 0 {
		return false
	}
	return price >= med*outlierLowerFactor && price <= med*outlierUpperFactor
}

// median returns the middle value of the samples, averaging the two middle
// values for even counts. Returns 0 for empty input.
func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
