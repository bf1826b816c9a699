package pricing

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/dexlens/dexlens/chain"
	"github.com/dexlens/dexlens/domain"
	"github.com/dexlens/dexlens/domain/mvc"
	"github.com/dexlens/dexlens/log"
)

var (
	oracleRefreshCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dexlens_oracle_refreshes_total",
			Help: "The total number of on-chain oracle price refreshes.",
		},
	)
	oracleRejectedCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dexlens_oracle_rejected_prices_total",
			Help: "The total number of oracle prices rejected by the sanity bands.",
		},
	)
)

func init() {
	prometheus.MustRegister(oracleRefreshCounter)
	prometheus.MustRegister(oracleRejectedCounter)
}

const (
	// priceStaleness is how long the last successful refresh stays fresh.
	priceStaleness = 30 * time.Second

	// Sanity bands for oracle-derived prices. A refresh outside the band
	// keeps the previous value.
	wrapperPriceFloor   = 100
	wrapperPriceCeiling = 2000

	ecosystemPriceFloor   = 0.1
	ecosystemPriceCeiling = 100

	// Fallback seeds used before the first successful refresh.
	defaultWrapperPriceUSD   = 600
	defaultEcosystemPriceUSD = 2.5
)

type priceOracle struct {
	batch  *chain.BatchCaller
	logger log.Logger

	wrapperStablePool    common.Address
	ecosystemWrapperPool common.Address

	mu          sync.RWMutex
	prices      map[string]float64
	lastRefresh time.Time

	refreshing atomic.Bool
}

var _ mvc.PriceOracle = &priceOracle{}

// NewPriceOracle seeds the price map with the known stables at 1.00 and
// conservative wrapper and ecosystem defaults. Prices stay at the seeds
// until the first RefreshFromChain succeeds.
func NewPriceOracle(batch *chain.BatchCaller, chainConfig *domain.ChainConfig, logger log.Logger) mvc.PriceOracle {
	prices := map[string]float64{
		domain.USDTAddress:      1.0,
		domain.USDCAddress:      1.0,
		domain.BUSDAddress:      1.0,
		domain.DAIAddress:       1.0,
		domain.WrapperAddress:   defaultWrapperPriceUSD,
		domain.EcosystemAddress: defaultEcosystemPriceUSD,
	}

	return &priceOracle{
		batch:                batch,
		logger:               logger.Named("oracle"),
		wrapperStablePool:    common.HexToAddress(chainConfig.WrapperStablePool),
		ecosystemWrapperPool: common.HexToAddress(chainConfig.EcosystemWrapperPool),
		prices:               prices,
	}
}

// GetNativePriceUSD implements mvc.PriceOracle.
func (o *priceOracle) GetNativePriceUSD() float64 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.prices[domain.WrapperAddress]
}

// GetPriceUSD implements mvc.PriceOracle.
func (o *priceOracle) GetPriceUSD(addressLower string) (float64, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	price, ok := o.prices[addressLower]
	return price, ok
}

// SetPriceUSD implements mvc.PriceOracle.
func (o *priceOracle) SetPriceUSD(addressLower string, priceUSD float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.prices[addressLower] = priceUSD
}

// Snapshot implements mvc.PriceOracle.
func (o *priceOracle) Snapshot() map[string]float64 {
	o.mu.RLock()
	defer o.mu.RUnlock()

	snapshot := make(map[string]float64, len(o.prices))
	for address, price := range o.prices {
		snapshot[address] = price
	}
	return snapshot
}

// AreStale implements mvc.PriceOracle.
func (o *priceOracle) AreStale() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return time.Since(o.lastRefresh) > priceStaleness
}

// RefreshFromChain implements mvc.PriceOracle. One aggregated read covers
// slot0 and token0 of both oracle pools. A refresh already in flight makes
// subsequent callers return immediately with the cached values.
func (o *priceOracle) RefreshFromChain(ctx context.Context) error {
	if !o.refreshing.CompareAndSwap(false, true) {
		return nil
	}
	defer o.refreshing.Store(false)

	calls := make([]chain.Call, 0, 4)
	for _, pool := range []common.Address{o.wrapperStablePool, o.ecosystemWrapperPool} {
		for _, method := range []string{"slot0", "token0"} {
			call, err := chain.NewCall(pool, chain.V3PoolABI, method)
			if err != nil {
				return err
			}
			calls = append(calls, call)
		}
	}

	results, err := o.batch.Aggregate(ctx, calls)
	if err != nil {
		return err
	}

	wrapperUSD, err := o.deriveWrapperPrice(results[0], results[1])
	if err != nil {
		return err
	}

	// The ecosystem leg is best-effort; a failed decode keeps the cached value.
	ecosystemUSD, ecoErr := o.deriveEcosystemPrice(results[2], results[3], wrapperUSD)
	if ecoErr != nil {
		o.logger.Warn("ecosystem oracle pool read failed, keeping cached price", zap.Error(ecoErr))
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if wrapperUSD > wrapperPriceFloor && wrapperUSD < wrapperPriceCeiling {
		o.prices[domain.WrapperAddress] = wrapperUSD
	} else {
		oracleRejectedCounter.Inc()
		o.logger.Warn("wrapper price outside sanity band, keeping cached value",
			zap.Float64("derived", wrapperUSD))
	}

	if ecoErr == nil {
		if ecosystemUSD > ecosystemPriceFloor && ecosystemUSD < ecosystemPriceCeiling {
			o.prices[domain.EcosystemAddress] = ecosystemUSD
		} else {
			oracleRejectedCounter.Inc()
			o.logger.Warn("ecosystem price outside sanity band, keeping cached value",
				zap.Float64("derived", ecosystemUSD))
		}
	}

	o.lastRefresh = time.Now()
	oracleRefreshCounter.Inc()

	o.logger.Debug("oracle prices refreshed",
		zap.Float64("wrapper_usd", o.prices[domain.WrapperAddress]),
		zap.Float64("ecosystem_usd", o.prices[domain.EcosystemAddress]))

	return nil
}

// deriveWrapperPrice turns the wrapper/stable pool's slot0 into the wrapper
// USD price, orienting by the pool's token0.
func (o *priceOracle) deriveWrapperPrice(slot0Res, token0Res chain.Result) (float64, error) {
	sqrtPrice, err := unpackSqrtPrice(slot0Res)
	if err != nil {
		return 0, fmt.Errorf("wrapper oracle pool: %w", err)
	}

	token0, ok := chain.UnpackAddress(token0Res)
	if !ok {
		return 0, fmt.Errorf("wrapper oracle pool: token0 read failed")
	}

	// Both sides are 18-decimal on this chain.
	price01 := CalcSqrtPriceToPrice(sqrtPrice, domain.DefaultDecimals, domain.DefaultDecimals)
	if price01 <= 0 {
		return 0, fmt.Errorf("wrapper oracle pool: zero price")
	}

	if domain.IsWrapper(domain.LowerAddress(token0)) {
		// price01 is stable per wrapper, already USD.
		return price01, nil
	}
	return 1 / price01, nil
}

// deriveEcosystemPrice turns the ecosystem/wrapper pool's slot0 into the
// ecosystem token's USD price via the freshly derived wrapper price.
func (o *priceOracle) deriveEcosystemPrice(slot0Res, token0Res chain.Result, wrapperUSD float64) (float64, error) {
	sqrtPrice, err := unpackSqrtPrice(slot0Res)
	if err != nil {
		return 0, fmt.Errorf("ecosystem oracle pool: %w", err)
	}

	token0, ok := chain.UnpackAddress(token0Res)
	if !ok {
		return 0, fmt.Errorf("ecosystem oracle pool: token0 read failed")
	}

	price01 := CalcSqrtPriceToPrice(sqrtPrice, domain.DefaultDecimals, domain.DefaultDecimals)
	if price01 <= 0 {
		return 0, fmt.Errorf("ecosystem oracle pool: zero price")
	}

	inWrapper := price01
	if !domain.IsEcosystem(domain.LowerAddress(token0)) {
		inWrapper = 1 / price01
	}
	return inWrapper * wrapperUSD, nil
}

// unpackSqrtPrice decodes the sqrtPriceX96 field of a slot0 read.
func unpackSqrtPrice(res chain.Result) (*big.Int, error) {
	if !res.Success || len(res.ReturnData) == 0 {
		return nil, fmt.Errorf("slot0 read failed")
	}

	out, err := chain.V3PoolABI.Unpack("slot0", res.ReturnData)
	if err != nil || len(out) == 0 {
		return nil, fmt.Errorf("slot0 decode failed: %w", err)
	}

	sqrtPrice, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("slot0 decode failed: unexpected sqrtPriceX96 type")
	}
	return sqrtPrice, nil
}

// CalcPoolValueUSD implements mvc.PriceOracle. poolPriceRatio is the pool's
// price of token0 in token1. When only one side has a known USD price, the
// other side is derived through the ratio, falling back to the amount ratio
// when the pool price is unusable.
func (o *priceOracle) CalcPoolValueUSD(token0Lower, token1Lower string, amount0, amount1 *big.Int, decimals0, decimals1 uint8, poolPriceRatio float64) float64 {
	a0 := RawToFloat(amount0, decimals0)
	a1 := RawToFloat(amount1, decimals1)

	p0, has0 := o.GetPriceUSD(token0Lower)
	p1, has1 := o.GetPriceUSD(token1Lower)

	switch {
	case has0 && has1:
		return a0*p0 + a1*p1
	case has0:
		return a0*p0 + a1*deriveCounterpartPrice(p0, poolPriceRatio, a0, a1, false)
	case has1:
		return a0*deriveCounterpartPrice(p1, poolPriceRatio, a0, a1, true) + a1*p1
	default:
		return 0
	}
}

// deriveCounterpartPrice computes the unknown side's USD price from the
// known side and the pool ratio (price of token0 in token1). forToken0
// selects which side is being derived. When the ratio is unusable the
// amount ratio stands in for it.
func deriveCounterpartPrice(knownUSD, poolPriceRatio, a0, a1 float64, forToken0 bool) float64 {
	ratio := poolPriceRatio
	if ratio <= 0 {
		if a0 <= 0 || a1 <= 0 {
			return 0
		}
		ratio = a1 / a0
	}

	if forToken0 {
		// knownUSD is token1's price; token0 is worth ratio units of token1.
		return knownUSD * ratio
	}
	return knownUSD / ratio
}
