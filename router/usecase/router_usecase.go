package usecase

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/dexlens/dexlens/domain"
	"github.com/dexlens/dexlens/domain/cache"
	"github.com/dexlens/dexlens/domain/mvc"
	"github.com/dexlens/dexlens/log"
)

// primaryBases are the high-liquidity intermediates tried first; the
// secondary set extends 3-hop search.
var (
	primaryBases   = []string{domain.WrapperAddress, domain.USDTAddress, domain.USDCAddress}
	secondaryBases = []string{domain.EcosystemAddress}
)

const (
	// maxAlternatives bounds the alternatives list in a RoutePlan.
	maxAlternatives = 3

	// threeHopTrigger is the best-route score below which 3-hop search runs.
	threeHopTrigger = 50

	// maxPriceImpactFrac caps a single leg's modeled impact.
	maxPriceImpactFrac = 0.5

	// legTieBreakUSD is the liquidity band within which the cheaper-fee
	// pool wins leg selection.
	legTieBreakUSD = 1000

	routeKeyPrefix = "route_"
)

type routerUsecase struct {
	analyzer mvc.AnalyzerUsecase
	oracle   mvc.PriceOracle
	cache    *cache.Cache
	routeTTL time.Duration
	logger   log.Logger
}

var _ mvc.RouterUsecase = &routerUsecase{}

// NewRouterUsecase creates the route planner on top of the analyzer.
func NewRouterUsecase(analyzer mvc.AnalyzerUsecase, oracle mvc.PriceOracle, c *cache.Cache, config *domain.RouterConfig, logger log.Logger) mvc.RouterUsecase {
	return &routerUsecase{
		analyzer: analyzer,
		oracle:   oracle,
		cache:    c,
		routeTTL: time.Duration(config.RouteCacheExpirySeconds) * time.Second,
		logger:   logger.Named("router"),
	}
}

// FindBestRoute implements mvc.RouterUsecase.
func (r *routerUsecase) FindBestRoute(ctx context.Context, tokenIn, tokenOut string, amountIn float64) (*domain.RoutePlan, error) {
	if !common.IsHexAddress(tokenIn) {
		return nil, domain.InvalidAddressError{Input: tokenIn}
	}
	if !common.IsHexAddress(tokenOut) {
		return nil, domain.InvalidAddressError{Input: tokenOut}
	}
	if amountIn <= 0 {
		return nil, domain.InvalidAmountError{Input: strconv.FormatFloat(amountIn, 'f', -1, 64)}
	}

	inLower := domain.LowerAddress(common.HexToAddress(tokenIn))
	outLower := domain.LowerAddress(common.HexToAddress(tokenOut))
	if inLower == outLower {
		return nil, domain.InvalidAddressError{Input: tokenOut}
	}

	cacheKey := routeKeyPrefix + inLower + "_" + outLower
	if v, ok := r.cache.Pools().Get(cacheKey); ok {
		if plan, ok := v.(*domain.RoutePlan); ok {
			rescaled := r.rescalePlan(plan, amountIn)
			return rescaled, nil
		}
	}

	plan, err := r.buildPlan(ctx, inLower, outLower, amountIn)
	if err != nil {
		return nil, err
	}

	r.cache.Pools().Set(cacheKey, plan, r.routeTTL)
	return plan, nil
}

// rescalePlan re-estimates a cached plan's outputs for a different input
// amount. The route shapes are kept; only amounts change.
func (r *routerUsecase) rescalePlan(plan *domain.RoutePlan, amountIn float64) *domain.RoutePlan {
	if plan.AmountIn == amountIn {
		return plan
	}

	clone := *plan
	clone.AmountIn = amountIn
	if plan.Best != nil {
		clone.Best = r.estimateRoute(plan.Best.Kind, plan.Best.Path, routePools(plan.Best), amountIn)
	}
	clone.Alternatives = make([]*domain.Route, 0, len(plan.Alternatives))
	for _, alt := range plan.Alternatives {
		clone.Alternatives = append(clone.Alternatives, r.estimateRoute(alt.Kind, alt.Path, routePools(alt), amountIn))
	}
	return &clone
}

func routePools(route *domain.Route) []*domain.Pool {
	pools := make([]*domain.Pool, 0, len(route.Legs))
	for _, leg := range route.Legs {
		pools = append(pools, leg.Pool)
	}
	return pools
}

func (r *routerUsecase) buildPlan(ctx context.Context, inLower, outLower string, amountIn float64) (*domain.RoutePlan, error) {
	analyses := r.analyzePair(ctx, inLower, outLower)

	analysisIn, okIn := analyses[inLower]
	analysisOut, okOut := analyses[outLower]
	if !okIn && !okOut {
		return nil, domain.NoRouteFoundError{TokenIn: inLower, TokenOut: outLower}
	}

	var routes []*domain.Route

	// Direct: the deepest active pool pairing both tokens.
	if okIn {
		if pool := bestPoolAgainst(analysisIn, outLower); pool != nil {
			path := []domain.TokenInfo{analysisIn.Token, pool.PairToken(inLower)}
			routes = appendRoute(routes, r.estimateRoute(domain.RouteDirect, path, []*domain.Pool{pool}, amountIn))
		}
	}

	// 2-hop through every candidate base.
	if okIn && okOut {
		for _, base := range allBases() {
			if base == inLower || base == outLower {
				continue
			}

			first := bestPoolAgainst(analysisIn, base)
			second := bestPoolAgainst(analysisOut, base)
			if first == nil || second == nil {
				continue
			}

			path := []domain.TokenInfo{
				analysisIn.Token,
				first.PairToken(inLower),
				analysisOut.Token,
			}
			routes = appendRoute(routes, r.estimateRoute(domain.RouteTwoHop, path, []*domain.Pool{first, second}, amountIn))
		}
	}

	// 3-hop fallback when nothing above is good enough.
	if bestScore(routes) < threeHopTrigger && okIn && okOut {
		routes = append(routes, r.threeHopRoutes(ctx, analysisIn, analysisOut, inLower, outLower, amountIn)...)
	}

	if len(routes) == 0 {
		return nil, domain.NoRouteFoundError{TokenIn: inLower, TokenOut: outLower}
	}

	sort.SliceStable(routes, func(i, j int) bool {
		return routes[i].Score > routes[j].Score
	})

	alternatives := routes[1:]
	if len(alternatives) > maxAlternatives {
		alternatives = alternatives[:maxAlternatives]
	}

	plan := &domain.RoutePlan{
		TokenIn:      routes[0].Path[0],
		TokenOut:     routes[0].Path[len(routes[0].Path)-1],
		AmountIn:     amountIn,
		Best:         routes[0],
		Alternatives: alternatives,
	}

	r.logger.Debug("route search complete",
		zap.String("token_in", inLower),
		zap.String("token_out", outLower),
		zap.Int("routes", len(routes)),
		zap.Float64("best_score", routes[0].Score))

	return plan, nil
}

// analyzePair analyzes both endpoints in parallel, dropping a side whose
// analysis fails.
func (r *routerUsecase) analyzePair(ctx context.Context, tokens ...string) map[string]*domain.AnalysisResult {
	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		analyses = make(map[string]*domain.AnalysisResult, len(tokens))
	)
	for _, token := range tokens {
		wg.Add(1)
		go func(token string) {
			defer wg.Done()
			result, err := r.analyzer.AnalyzeToken(ctx, token, domain.AnalyzeOptions{})
			if err != nil {
				r.logger.Warn("route endpoint analysis failed", zap.String("token", token), zap.Error(err))
				return
			}
			mu.Lock()
			analyses[token] = result
			mu.Unlock()
		}(token)
	}
	wg.Wait()
	return analyses
}

func (r *routerUsecase) threeHopRoutes(ctx context.Context, analysisIn, analysisOut *domain.AnalysisResult, inLower, outLower string, amountIn float64) []*domain.Route {
	var routes []*domain.Route
	for _, secondary := range secondaryBases {
		if secondary == inLower || secondary == outLower {
			continue
		}

		analysisMid, err := r.analyzer.AnalyzeToken(ctx, secondary, domain.AnalyzeOptions{})
		if err != nil {
			r.logger.Warn("intermediate analysis failed", zap.String("token", secondary), zap.Error(err))
			continue
		}

		for _, primary := range primaryBases {
			if primary == inLower || primary == outLower || primary == secondary {
				continue
			}

			first := bestPoolAgainst(analysisIn, primary)
			second := bestPoolAgainst(analysisMid, primary)
			third := bestPoolAgainst(analysisOut, secondary)
			if first == nil || second == nil || third == nil {
				continue
			}

			path := []domain.TokenInfo{
				analysisIn.Token,
				first.PairToken(inLower),
				analysisMid.Token,
				analysisOut.Token,
			}
			routes = appendRoute(routes, r.estimateRoute(domain.RouteThreeHop, path, []*domain.Pool{first, second, third}, amountIn))
		}
	}
	return routes
}

func appendRoute(routes []*domain.Route, route *domain.Route) []*domain.Route {
	if route == nil {
		return routes
	}
	return append(routes, route)
}

func bestScore(routes []*domain.Route) float64 {
	best := 0.0
	for _, route := range routes {
		if route.Score > best {
			best = route.Score
		}
	}
	return best
}

func allBases() []string {
	bases := make([]string, 0, len(primaryBases)+len(secondaryBases))
	bases = append(bases, primaryBases...)
	bases = append(bases, secondaryBases...)
	return bases
}

// bestPoolAgainst returns the deepest active pool pairing the analysis
// target with other; within $1000 of liquidity the cheaper fee wins.
func bestPoolAgainst(analysis *domain.AnalysisResult, otherLower string) *domain.Pool {
	targetLower := domain.LowerHex(analysis.Token.Address)

	var best *domain.Pool
	for _, pool := range analysis.Pools {
		if pool.Liquidity.Status != domain.StatusActive {
			continue
		}
		if domain.LowerHex(pool.PairToken(targetLower).Address) != otherLower {
			continue
		}

		if best == nil {
			best = pool
			continue
		}

		diff := pool.Liquidity.TotalUSD - best.Liquidity.TotalUSD
		switch {
		case diff > legTieBreakUSD:
			best = pool
		case diff >= -legTieBreakUSD && pool.Fee < best.Fee:
			best = pool
		}
	}
	return best
}

// estimateRoute walks the legs with the independent-legs approximation:
// out = in × price × (1 − fee) × (1 − impact) per leg, impacts summed.
// Returns nil when any leg cannot be priced.
func (r *routerUsecase) estimateRoute(kind domain.RouteKind, path []domain.TokenInfo, pools []*domain.Pool, amountIn float64) *domain.Route {
	if len(pools) == 0 || len(path) != len(pools)+1 {
		return nil
	}

	route := &domain.Route{Kind: kind, Path: path}

	amount := amountIn
	minLegLiquidity := -1.0
	for i, pool := range pools {
		legIn, legOut := path[i], path[i+1]

		price := legPrice(pool, domain.LowerHex(legIn.Address))
		if price <= 0 {
			return nil
		}

		liquidityUSD := pool.Liquidity.TotalUSD
		swapUSD := amount * r.tokenPriceUSD(legIn, pool)

		impactFrac := 0.0
		if liquidityUSD > 0 {
			impactFrac = swapUSD / liquidityUSD
			if impactFrac > maxPriceImpactFrac {
				impactFrac = maxPriceImpactFrac
			}
		} else {
			impactFrac = maxPriceImpactFrac
		}

		feeFrac := pool.FeePercent() / 100
		output := amount * price * (1 - feeFrac) * (1 - impactFrac)

		route.Legs = append(route.Legs, domain.RouteLeg{
			TokenIn:         legIn,
			TokenOut:        legOut,
			Pool:            pool,
			EstimatedOutput: output,
			PriceImpactPct:  impactFrac * 100,
			FeePct:          pool.FeePercent(),
		})
		route.PriceImpactPct += impactFrac * 100
		route.TotalFeesPct += pool.FeePercent()

		if minLegLiquidity < 0 || liquidityUSD < minLegLiquidity {
			minLegLiquidity = liquidityUSD
		}
		amount = output
	}

	route.EstimatedOutput = amount
	route.Score = scoreRoute(kind, minLegLiquidity, route.TotalFeesPct, route.PriceImpactPct)
	return route
}

// legPrice returns the pool's price of legIn in the opposite token.
func legPrice(pool *domain.Pool, legInLower string) float64 {
	if pool.TargetIsToken0(legInLower) {
		return pool.Price.Token0Price
	}
	return pool.Price.Token1Price
}

// tokenPriceUSD values a leg input, preferring the oracle for base tokens
// and falling back to the pool's own derived price.
func (r *routerUsecase) tokenPriceUSD(token domain.TokenInfo, pool *domain.Pool) float64 {
	if usd, ok := r.oracle.GetPriceUSD(domain.LowerHex(token.Address)); ok {
		return usd
	}
	return pool.Price.InUSD
}

// scoreRoute grades a route: liquidity depth of the weakest leg, total
// fees, and accumulated impact. Direct routes get a flat bonus; 3-hop
// routes grade on a reduced scale.
func scoreRoute(kind domain.RouteKind, minLegLiquidityUSD, totalFeesPct, totalImpactPct float64) float64 {
	var score float64

	if kind == domain.RouteThreeHop {
		score = 70
		switch {
		case minLegLiquidityUSD >= 1_000_000:
			score += 25
		case minLegLiquidityUSD >= 100_000:
			score += 15
		default:
			score += 5
		}
		switch {
		case totalFeesPct <= 0.9:
			score += 15
		default:
			score += 5
		}
		score -= 7 * totalImpactPct
	} else {
		score = 100
		switch {
		case minLegLiquidityUSD >= 1_000_000:
			score += 50
		case minLegLiquidityUSD >= 100_000:
			score += 35
		case minLegLiquidityUSD >= 10_000:
			score += 20
		default:
			score += 10
		}
		switch {
		case totalFeesPct <= 0.3:
			score += 20
		case totalFeesPct <= 0.6:
			score += 10
		default:
			score += 5
		}
		score -= 5 * totalImpactPct

		if kind == domain.RouteDirect {
			score += 40
		}
	}

	if score < 0 {
		score = 0
	}
	return score
}
