package usecase

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/dexlens/dexlens/domain"
	"github.com/dexlens/dexlens/domain/cache"
	"github.com/dexlens/dexlens/domain/mocks"
	"github.com/dexlens/dexlens/log"
)

const (
	routeTokenIn  = "0x3333333333333333333333333333333333333333"
	routeTokenOut = "0x4444444444444444444444444444444444444444"
)

var (
	routeInInfo = domain.TokenInfo{
		Address: common.HexToAddress(routeTokenIn).Hex(), Symbol: "AAA", Decimals: 18,
	}
	routeOutInfo = domain.TokenInfo{
		Address: common.HexToAddress(routeTokenOut).Hex(), Symbol: "BBB", Decimals: 18,
	}
	wbnbInfo = domain.KnownTokens[domain.WrapperAddress]
)

// pairPool builds an active pool between two tokens with token0=a.
func pairPool(address string, a, b domain.TokenInfo, fee uint32, liquidityUSD, price01 float64) *domain.Pool {
	return &domain.Pool{
		Address: address,
		Kind:    domain.ProtocolV2,
		Token0:  a,
		Token1:  b,
		Fee:     fee,
		Liquidity: domain.LiquidityInfo{
			TotalUSD: liquidityUSD,
			Status:   domain.StatusActive,
		},
		Price: domain.PriceInfo{
			Token0Price: price01,
			Token1Price: 1 / price01,
			InUSD:       1.0,
		},
	}
}

func newTestRouter(analyzer *mocks.AnalyzerUsecaseMock) *routerUsecase {
	oracle := &mocks.PriceOracleMock{
		GetPriceUSDFunc: func(addressLower string) (float64, bool) { return 1.0, true },
	}
	return &routerUsecase{
		analyzer: analyzer,
		oracle:   oracle,
		cache:    cache.New(),
		routeTTL: time.Minute,
		logger:   log.NewNopLogger(),
	}
}

func TestEstimateRouteSingleLeg(t *testing.T) {
	pool := pairPool("0xccc1", routeInInfo, wbnbInfo, 2500, 100_000, 0.002)
	r := newTestRouter(&mocks.AnalyzerUsecaseMock{})

	route := r.estimateRoute(domain.RouteDirect,
		[]domain.TokenInfo{routeInInfo, wbnbInfo},
		[]*domain.Pool{pool}, 1_000)

	require.NotNil(t, route)
	require.Len(t, route.Legs, 1)

	// in 1000 ($1000), impact 1000/100000 = 1%, fee 0.25%
	require.InDelta(t, 1.0, route.PriceImpactPct, 1e-9)
	require.InDelta(t, 0.25, route.TotalFeesPct, 1e-9)
	require.InDelta(t, 1_000*0.002*0.9975*0.99, route.EstimatedOutput, 1e-9)
}

func TestEstimateRouteTwoLegsCompound(t *testing.T) {
	first := pairPool("0xccc2", routeInInfo, wbnbInfo, 2500, 1_000_000, 0.002)
	second := pairPool("0xccc3", routeOutInfo, wbnbInfo, 2500, 1_000_000, 0.004)
	r := newTestRouter(&mocks.AnalyzerUsecaseMock{})

	route := r.estimateRoute(domain.RouteTwoHop,
		[]domain.TokenInfo{routeInInfo, wbnbInfo, routeOutInfo},
		[]*domain.Pool{first, second}, 1_000)

	require.NotNil(t, route)
	require.Len(t, route.Legs, 2)

	// leg 1 sells AAA for WBNB via token0Price; leg 2 sells WBNB for BBB via
	// token1Price of the BBB/WBNB pool
	legOne := route.Legs[0].EstimatedOutput
	require.InDelta(t, 1_000*0.002*0.9975*(1-1_000/1_000_000.0), legOne, 1e-9)
	require.Greater(t, route.EstimatedOutput, 0.0)
	require.Equal(t, route.Legs[1].EstimatedOutput, route.EstimatedOutput)
	require.InDelta(t, 0.5, route.TotalFeesPct, 1e-9)
}

func TestEstimateRouteUnpriceableLeg(t *testing.T) {
	pool := pairPool("0xccc4", routeInInfo, wbnbInfo, 2500, 100_000, 0.002)
	pool.Price.Token0Price = 0
	r := newTestRouter(&mocks.AnalyzerUsecaseMock{})

	route := r.estimateRoute(domain.RouteDirect,
		[]domain.TokenInfo{routeInInfo, wbnbInfo},
		[]*domain.Pool{pool}, 1_000)

	require.Nil(t, route)
}

func TestEstimateRouteImpactClamped(t *testing.T) {
	pool := pairPool("0xccc5", routeInInfo, wbnbInfo, 2500, 100, 0.002)
	r := newTestRouter(&mocks.AnalyzerUsecaseMock{})

	route := r.estimateRoute(domain.RouteDirect,
		[]domain.TokenInfo{routeInInfo, wbnbInfo},
		[]*domain.Pool{pool}, 1_000_000)

	require.NotNil(t, route)
	require.InDelta(t, maxPriceImpactFrac*100, route.PriceImpactPct, 1e-9)
}

func TestScoreRoute(t *testing.T) {
	tests := []struct {
		name        string
		kind        domain.RouteKind
		minLegLiq   float64
		totalFees   float64
		totalImpact float64
		want        float64
	}{
		{"direct deep cheap", domain.RouteDirect, 2_000_000, 0.25, 0, 210},
		{"direct mid tier", domain.RouteDirect, 50_000, 0.5, 1, 165},
		{"two hop deep", domain.RouteTwoHop, 2_000_000, 0.5, 0, 160},
		{"two hop shallow", domain.RouteTwoHop, 5_000, 0.8, 2, 105},
		{"three hop deep", domain.RouteThreeHop, 2_000_000, 0.75, 0, 110},
		{"three hop weak", domain.RouteThreeHop, 50_000, 1.2, 1, 73},
		{"impact floors at zero", domain.RouteTwoHop, 5_000, 0.8, 100, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scoreRoute(tt.kind, tt.minLegLiq, tt.totalFees, tt.totalImpact)
			require.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestBestPoolAgainst(t *testing.T) {
	deep := pairPool("0xccc6", routeInInfo, wbnbInfo, 3000, 500_000, 0.002)
	shallow := pairPool("0xccc7", routeInInfo, wbnbInfo, 500, 100_000, 0.002)
	closeCheaper := pairPool("0xccc8", routeInInfo, wbnbInfo, 500, 499_500, 0.002)
	inactive := pairPool("0xccc9", routeInInfo, wbnbInfo, 100, 9_000_000, 0.002)
	inactive.Liquidity.Status = domain.StatusLowLiquidity
	otherPair := pairPool("0xccca", routeInInfo, routeOutInfo, 100, 9_000_000, 2.0)

	analysis := &domain.AnalysisResult{
		Token: routeInInfo,
		Pools: []*domain.Pool{deep, shallow, closeCheaper, inactive, otherPair},
	}

	best := bestPoolAgainst(analysis, domain.WrapperAddress)
	require.NotNil(t, best)
	// closeCheaper is within the tie-break band of deep and carries a lower fee
	require.Equal(t, "0xccc8", best.Address)

	require.Nil(t, bestPoolAgainst(analysis, domain.USDTAddress))
}

func routeAnalyses(t *testing.T) map[string]*domain.AnalysisResult {
	t.Helper()

	direct := pairPool("0xddd1", routeInInfo, routeOutInfo, 2500, 1_000_000, 2.0)
	inWBNB := pairPool("0xddd2", routeInInfo, wbnbInfo, 2500, 200_000, 0.002)
	outWBNB := pairPool("0xddd3", routeOutInfo, wbnbInfo, 2500, 200_000, 0.001)

	return map[string]*domain.AnalysisResult{
		domain.LowerHex(routeTokenIn): {
			Token: routeInInfo,
			Pools: []*domain.Pool{direct, inWBNB},
		},
		domain.LowerHex(routeTokenOut): {
			Token: routeOutInfo,
			Pools: []*domain.Pool{direct, outWBNB},
		},
	}
}

func TestFindBestRoutePrefersDirect(t *testing.T) {
	analyses := routeAnalyses(t)
	analyzer := &mocks.AnalyzerUsecaseMock{
		AnalyzeTokenFunc: func(ctx context.Context, address string, opts domain.AnalyzeOptions) (*domain.AnalysisResult, error) {
			result, ok := analyses[domain.LowerHex(address)]
			if !ok {
				return nil, domain.NoPoolsFoundError{Token: address}
			}
			return result, nil
		},
	}
	r := newTestRouter(analyzer)

	plan, err := r.FindBestRoute(context.Background(), routeTokenIn, routeTokenOut, 1_000)

	require.NoError(t, err)
	require.NotNil(t, plan.Best)
	require.Equal(t, domain.RouteDirect, plan.Best.Kind)
	require.Len(t, plan.Best.Legs, 1)
	require.Equal(t, "0xddd1", plan.Best.Legs[0].Pool.Address)

	// the 2-hop through WBNB survives as an alternative
	require.NotEmpty(t, plan.Alternatives)
	require.Equal(t, domain.RouteTwoHop, plan.Alternatives[0].Kind)
	require.Greater(t, plan.Best.Score, plan.Alternatives[0].Score)
}

func TestFindBestRouteUsesCachedShape(t *testing.T) {
	analyses := routeAnalyses(t)
	var analyzeCalls atomic.Int32
	analyzer := &mocks.AnalyzerUsecaseMock{
		AnalyzeTokenFunc: func(ctx context.Context, address string, opts domain.AnalyzeOptions) (*domain.AnalysisResult, error) {
			analyzeCalls.Add(1)
			return analyses[domain.LowerHex(address)], nil
		},
	}
	r := newTestRouter(analyzer)

	first, err := r.FindBestRoute(context.Background(), routeTokenIn, routeTokenOut, 1_000)
	require.NoError(t, err)
	callsAfterFirst := analyzeCalls.Load()

	second, err := r.FindBestRoute(context.Background(), routeTokenIn, routeTokenOut, 5_000)
	require.NoError(t, err)

	require.Equal(t, callsAfterFirst, analyzeCalls.Load())
	require.Equal(t, 5_000.0, second.AmountIn)
	require.Equal(t, first.Best.Kind, second.Best.Kind)
	require.Greater(t, second.Best.EstimatedOutput, first.Best.EstimatedOutput)
}

func TestFindBestRouteValidation(t *testing.T) {
	r := newTestRouter(&mocks.AnalyzerUsecaseMock{})
	ctx := context.Background()

	_, err := r.FindBestRoute(ctx, "nonsense", routeTokenOut, 1)
	require.ErrorAs(t, err, &domain.InvalidAddressError{})

	_, err = r.FindBestRoute(ctx, routeTokenIn, routeTokenOut, 0)
	require.ErrorAs(t, err, &domain.InvalidAmountError{})

	_, err = r.FindBestRoute(ctx, routeTokenIn, routeTokenIn, 1)
	require.ErrorAs(t, err, &domain.InvalidAddressError{})
}

func TestFindBestRouteNoRoute(t *testing.T) {
	analyzer := &mocks.AnalyzerUsecaseMock{
		AnalyzeTokenFunc: func(ctx context.Context, address string, opts domain.AnalyzeOptions) (*domain.AnalysisResult, error) {
			return nil, domain.NoPoolsFoundError{Token: address}
		},
	}
	r := newTestRouter(analyzer)

	_, err := r.FindBestRoute(context.Background(), routeTokenIn, routeTokenOut, 1)
	require.ErrorAs(t, err, &domain.NoRouteFoundError{})
}

func TestPrecacherRunCycle(t *testing.T) {
	var analyzeCalls, routeCalls atomic.Int32
	analyzer := &mocks.AnalyzerUsecaseMock{
		AnalyzeTokenFunc: func(ctx context.Context, address string, opts domain.AnalyzeOptions) (*domain.AnalysisResult, error) {
			analyzeCalls.Add(1)
			return &domain.AnalysisResult{}, nil
		},
	}
	router := &mocks.RouterUsecaseMock{
		FindBestRouteFunc: func(ctx context.Context, tokenIn, tokenOut string, amountIn float64) (*domain.RoutePlan, error) {
			routeCalls.Add(1)
			return &domain.RoutePlan{}, nil
		},
	}

	p := NewPrecacher(router, analyzer, &domain.RouterConfig{
		PrecacheIntervalSeconds: 600,
		PrecachePairs:           []string{domain.WrapperAddress, domain.USDTAddress},
	}, log.NewNopLogger())

	p.RunCycle(context.Background())

	require.Equal(t, int32(2), analyzeCalls.Load())
	// two tokens yield two ordered pairs
	require.Equal(t, int32(2), routeCalls.Load())
}
