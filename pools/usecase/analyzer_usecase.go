package usecase

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/dexlens/dexlens/chain"
	"github.com/dexlens/dexlens/domain"
	"github.com/dexlens/dexlens/domain/cache"
	"github.com/dexlens/dexlens/domain/mvc"
	"github.com/dexlens/dexlens/log"
	"github.com/dexlens/dexlens/pricing"
)

var analysisCounter = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "dexlens_analyses_total",
		Help: "The total number of token analyses by outcome.",
	},
	[]string{"outcome"},
)

func init() {
	prometheus.MustRegister(analysisCounter)
}

// defaultScenarioSizes is the trade ladder used when the caller supplies none.
var defaultScenarioSizes = []float64{100, 1_000, 10_000, 100_000}

const (
	// splitMaxSharePct caps any single pool's share of a split trade.
	splitMaxShare = 0.5
	// splitMaxLiquidityConsumption caps a split slice relative to the pool's
	// own liquidity.
	splitMaxLiquidityConsumption = 0.05
)

// inflightAnalysis is one in-progress analysis shared by concurrent callers.
type inflightAnalysis struct {
	done   chan struct{}
	result *domain.AnalysisResult
	err    error
}

type analyzerUsecase struct {
	discoverer *discoverer
	fetcher    *poolFetcher
	tokens     mvc.TokensUsecase
	oracle     mvc.PriceOracle
	cache      *cache.Cache

	defaultTradeUSD float64
	analysisTTL     time.Duration
	logger          log.Logger

	inflightMu sync.Mutex
	inflight   map[string]*inflightAnalysis
}

var _ mvc.AnalyzerUsecase = &analyzerUsecase{}

// NewAnalyzerUsecase wires the discovery, fetch, pricing and scoring
// pipeline behind the analysis cache.
func NewAnalyzerUsecase(
	batch *chain.BatchCaller,
	tokens mvc.TokensUsecase,
	oracle mvc.PriceOracle,
	c *cache.Cache,
	config *domain.Config,
	logger log.Logger,
) mvc.AnalyzerUsecase {
	return &analyzerUsecase{
		discoverer:      newDiscoverer(batch, config.Chain, config.Analyzer.FastModeBases, logger),
		fetcher:         newPoolFetcher(batch, tokens, oracle, config.Analyzer.SequentialChunkSize, logger),
		tokens:          tokens,
		oracle:          oracle,
		cache:           c,
		defaultTradeUSD: config.Analyzer.DefaultTradeUSD,
		analysisTTL:     time.Duration(config.Cache.PoolTTLSeconds) * time.Second,
		logger:          logger.Named("analyzer"),
		inflight:        make(map[string]*inflightAnalysis),
	}
}

// AnalyzeToken implements mvc.AnalyzerUsecase.
func (a *analyzerUsecase) AnalyzeToken(ctx context.Context, address string, opts domain.AnalyzeOptions) (*domain.AnalysisResult, error) {
	if !common.IsHexAddress(address) {
		return nil, domain.InvalidAddressError{Input: address}
	}
	addr := common.HexToAddress(address)
	lower := domain.LowerAddress(addr)

	if !opts.ForceRefresh {
		if cached, ok := a.cachedResult(lower); ok {
			analysisCounter.WithLabelValues("cached").Inc()
			return cached, nil
		}
	}

	// Concurrent callers for the same (token, forceRefresh) share one
	// in-flight analysis; the waiters' copies are marked deduplicated.
	dedupKey := lower + "_" + strconv.FormatBool(opts.ForceRefresh)

	a.inflightMu.Lock()
	if in, ok := a.inflight[dedupKey]; ok {
		a.inflightMu.Unlock()

		select {
		case <-in.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if in.err != nil {
			return nil, in.err
		}

		clone := *in.result
		clone.Meta.Deduplicated = true
		analysisCounter.WithLabelValues("deduplicated").Inc()
		return &clone, nil
	}

	in := &inflightAnalysis{done: make(chan struct{})}
	a.inflight[dedupKey] = in
	a.inflightMu.Unlock()

	defer func() {
		a.inflightMu.Lock()
		delete(a.inflight, dedupKey)
		a.inflightMu.Unlock()
		close(in.done)
	}()

	if opts.ForceRefresh {
		a.cache.ClearTokenAnalysis(lower)
	}

	result, err := a.runAnalysis(ctx, addr, lower, opts.Fast)
	in.result, in.err = result, err
	if err != nil {
		analysisCounter.WithLabelValues("failed").Inc()
		return nil, err
	}

	a.cache.Pools().Set(cache.AnalysisKeyPrefix+lower, result, a.analysisTTL)
	analysisCounter.WithLabelValues("fresh").Inc()
	return result, nil
}

// cachedResult returns a copy of the cached analysis annotated with its age.
func (a *analyzerUsecase) cachedResult(lower string) (*domain.AnalysisResult, bool) {
	v, age, ok := a.cache.Pools().GetWithAge(cache.AnalysisKeyPrefix + lower)
	if !ok {
		return nil, false
	}

	cached, ok := v.(*domain.AnalysisResult)
	if !ok {
		return nil, false
	}

	clone := *cached
	clone.Meta.Cached = true
	clone.Meta.CacheAgeMs = age.Milliseconds()
	return &clone, true
}

// GetCachedAnalysis implements mvc.AnalyzerUsecase.
func (a *analyzerUsecase) GetCachedAnalysis(address string) (*domain.AnalysisResult, bool) {
	if !common.IsHexAddress(address) {
		return nil, false
	}
	return a.cachedResult(domain.LowerAddress(common.HexToAddress(address)))
}

// runAnalysis executes the full pipeline: metadata + price refresh,
// discovery, fetch, aggregation, scoring, warnings.
func (a *analyzerUsecase) runAnalysis(ctx context.Context, addr common.Address, lower string, fast bool) (*domain.AnalysisResult, error) {
	started := time.Now()

	// Token metadata and, when needed, the oracle refresh run concurrently.
	var wg sync.WaitGroup
	if a.oracle.AreStale() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := a.oracle.RefreshFromChain(ctx); err != nil {
				a.logger.Warn("price refresh failed, reusing cached prices", zap.Error(err))
			}
		}()
	}

	tokenInfo, err := a.tokens.GetTokenInfo(ctx, addr)
	if err != nil {
		wg.Wait()
		return nil, err
	}
	wg.Wait()

	pricesStale := a.oracle.AreStale()

	candidates, err := a.discoverer.Discover(ctx, addr, fast)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, domain.NoPoolsFoundError{Token: addr.Hex()}
	}

	outcome := a.fetcher.Fetch(ctx, lower, candidates)

	aggregate := aggregatePricing(outcome.pools)
	scores := scoreAllPools(outcome.pools, lower, a.defaultTradeUSD, aggregate.AvgPriceUSD)
	recommended := selectRecommended(scores)
	bestPools := buildBestPools(outcome.pools, recommended)
	distribution := buildDistribution(outcome.pools)

	totalMs := time.Since(started).Milliseconds()

	result := &domain.AnalysisResult{
		Token:        tokenInfo,
		Pools:        outcome.pools,
		BestPools:    bestPools,
		Pricing:      aggregate,
		Distribution: distribution,
		Performance: domain.AnalysisPerformance{
			TotalMs: totalMs,
			Grade:   domain.PerformanceGrade(totalMs),
		},
		Meta: domain.AnalysisMeta{
			Timestamp:      time.Now().UnixMilli(),
			PricesStale:    pricesStale,
			PartialResults: outcome.partial(),
			ProtocolStatus: outcome.status,
		},
	}
	result.Summary = buildSummary(result)
	result.Warnings = generateWarnings(result, lower)

	a.logger.Info("token analysis complete",
		zap.String("token", lower),
		zap.Int("pools", len(result.Pools)),
		zap.Int64("total_ms", totalMs),
		zap.Bool("partial", result.Meta.PartialResults))

	return result, nil
}

// aggregatePricing feeds every priced pool into the outlier-filtered
// liquidity-weighted aggregation.
func aggregatePricing(pools []*domain.Pool) domain.AggregatePrice {
	samples := make([]pricing.PriceSample, 0, len(pools))
	for _, pool := range pools {
		if pool.Liquidity.Status == domain.StatusRugged {
			continue
		}
		samples = append(samples, pricing.PriceSample{
			PriceUSD:        pool.Price.InUSD,
			PriceNative:     pool.Price.InNative,
			LiquidityUSD:    pool.Liquidity.TotalUSD,
			LiquidityNative: pool.Liquidity.TotalNative,
			PairSymbol:      pool.Price.PairTokenSymbol,
		})
	}
	return pricing.CalcAggregatePrice(samples)
}

func buildDistribution(pools []*domain.Pool) domain.LiquidityDistribution {
	dist := domain.LiquidityDistribution{
		ByProtocol: make(map[domain.ProtocolKind]float64),
	}

	var topUSD float64
	byProtocolUSD := make(map[domain.ProtocolKind]float64)
	for _, pool := range pools {
		status := pool.Liquidity.Status
		if status != domain.StatusActive && status != domain.StatusWarningLiquidity {
			continue
		}

		usd := pool.Liquidity.TotalUSD
		dist.TotalUSD += usd
		dist.ActivePools++
		byProtocolUSD[pool.Kind] += usd
		if usd > topUSD {
			topUSD = usd
		}
	}

	if dist.TotalUSD > 0 {
		for kind, usd := range byProtocolUSD {
			dist.ByProtocol[kind] = usd / dist.TotalUSD * 100
		}
		dist.TopPoolSharePct = topUSD / dist.TotalUSD * 100
	}
	return dist
}

func buildSummary(result *domain.AnalysisResult) domain.AnalysisSummary {
	rugged := 0
	for _, pool := range result.Pools {
		if pool.Liquidity.Status == domain.StatusRugged {
			rugged++
		}
	}

	return domain.AnalysisSummary{
		TotalPools:        len(result.Pools),
		ActivePools:       result.Distribution.ActivePools,
		RuggedPools:       rugged,
		TotalLiquidityUSD: result.Distribution.TotalUSD,
		PriceUSD:          result.Pricing.AvgPriceUSD,
		PriceNative:       result.Pricing.AvgPriceNative,
	}
}

// ScorePools implements mvc.AnalyzerUsecase.
func (a *analyzerUsecase) ScorePools(result *domain.AnalysisResult, tradeUSD float64) []domain.PoolScore {
	if tradeUSD <= 0 {
		tradeUSD = a.defaultTradeUSD
	}
	targetLower := domain.LowerHex(result.Token.Address)
	return scoreAllPools(result.Pools, targetLower, tradeUSD, result.Pricing.AvgPriceUSD)
}

// TradeScenarios implements mvc.AnalyzerUsecase.
func (a *analyzerUsecase) TradeScenarios(result *domain.AnalysisResult, sizesUSD []float64) []domain.TradeScenario {
	if len(sizesUSD) == 0 {
		sizesUSD = defaultScenarioSizes
	}

	scenarios := make([]domain.TradeScenario, 0, len(sizesUSD))
	for _, size := range sizesUSD {
		scores := a.ScorePools(result, size)
		scenarios = append(scenarios, domain.TradeScenario{
			TradeUSD:    size,
			SizeClass:   domain.ClassifyTradeSize(size),
			Recommended: selectRecommended(scores),
		})
	}
	return scenarios
}

// SplitTrade implements mvc.AnalyzerUsecase. Greedy allocation over the
// deepest tradeable pools; each slice is capped at half the total and at
// 5% of the pool's own liquidity. The residual stays unallocated.
func (a *analyzerUsecase) SplitTrade(result *domain.AnalysisResult, totalUSD float64) (*domain.SplitTradePlan, error) {
	if totalUSD <= 0 {
		return nil, domain.InvalidAmountError{Input: strconv.FormatFloat(totalUSD, 'f', -1, 64)}
	}

	scores := a.ScorePools(result, totalUSD)
	var candidates []*domain.Pool
	for _, s := range scores {
		if s.Tradeable {
			candidates = append(candidates, s.Pool)
		}
	}
	if len(candidates) == 0 {
		return nil, domain.NoTradeablePoolError{Token: result.Token.Address, TradeUSD: totalUSD}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Liquidity.TotalUSD > candidates[j].Liquidity.TotalUSD
	})

	plan := &domain.SplitTradePlan{TotalUSD: totalUSD}
	remaining := totalUSD
	for _, pool := range candidates {
		if remaining <= 0 {
			break
		}

		slice := remaining
		if limit := totalUSD * splitMaxShare; slice > limit {
			slice = limit
		}
		if limit := pool.Liquidity.TotalUSD * splitMaxLiquidityConsumption; slice > limit {
			slice = limit
		}
		if slice <= 0 {
			continue
		}

		plan.Allocations = append(plan.Allocations, domain.SplitAllocation{
			Pool:                    pool,
			AmountUSD:               slice,
			SharePct:                slice / totalUSD * 100,
			LiquidityConsumptionPct: slice / pool.Liquidity.TotalUSD * 100,
		})
		plan.AllocatedUSD += slice
		remaining -= slice
	}

	plan.Unallocated = remaining
	return plan, nil
}
