package http

import (
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/dexlens/dexlens/domain"
	"github.com/dexlens/dexlens/domain/mvc"
)

// PoolsHandler serves the analysis endpoints.
type PoolsHandler struct {
	AUsecase mvc.AnalyzerUsecase
	Oracle   mvc.PriceOracle
}

const (
	defaultPoolsLimit  = 20
	fastPoolsLimit     = 5
	defaultSlippagePct = 0.5
)

// NewPoolsHandler registers the analysis routes.
func NewPoolsHandler(e *echo.Echo, analyzer mvc.AnalyzerUsecase, oracle mvc.PriceOracle) {
	handler := &PoolsHandler{AUsecase: analyzer, Oracle: oracle}

	e.GET("/analyze/:token", handler.Analyze)
	e.GET("/best-pool/:token", handler.BestPool)
	e.GET("/pools/:token", handler.Pools)
	e.GET("/pair/:tokenA/:tokenB", handler.Pair)
	e.POST("/quote", handler.Quote)
	e.GET("/swap-pool/:token", handler.SwapPool)
	e.GET("/smart-recommend/:token", handler.SmartRecommend)
	e.GET("/trade-scenarios/:token", handler.TradeScenarios)
	e.GET("/split-trade/:token", handler.SplitTrade)
}

// Analyze returns the full analysis. refresh=true bypasses the cache,
// fast=true trims the projection to the top pools, minLiquidity filters.
func (h *PoolsHandler) Analyze(c echo.Context) error {
	ctx := c.Request().Context()

	opts := domain.AnalyzeOptions{
		ForceRefresh: c.QueryParam("refresh") == "true",
		Fast:         c.QueryParam("fast") == "true",
	}

	result, err := h.AUsecase.AnalyzeToken(ctx, c.Param("token"), opts)
	if err != nil {
		return respondError(c, err)
	}

	if minLiq, ok := parseFloatParam(c.QueryParam("minLiquidity")); ok {
		result = filterByLiquidity(result, minLiq)
	}
	if opts.Fast {
		result = trimPools(result, fastPoolsLimit)
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "analysis": result})
}

// BestPool returns one pool selected by the requested criteria.
func (h *PoolsHandler) BestPool(c echo.Context) error {
	ctx := c.Request().Context()

	result, err := h.AUsecase.AnalyzeToken(ctx, c.Param("token"), domain.AnalyzeOptions{})
	if err != nil {
		return respondError(c, err)
	}

	criteria := c.QueryParam("criteria")
	if criteria == "" {
		criteria = "recommended"
	}

	pools := result.Pools
	if basePair := c.QueryParam("basePair"); basePair != "" {
		pools = filterByBasePair(result, basePair)
	}

	pool, score, err := pickBestPool(result, pools, criteria, c.QueryParam("priceDirection"))
	if err != nil {
		return respondError(c, err)
	}

	resp := echo.Map{"success": true, "criteria": criteria, "pool": pool}
	if score != nil {
		resp["score"] = score
	}
	return c.JSON(http.StatusOK, resp)
}

// Pools lists the token's pools with optional type/liquidity filters.
func (h *PoolsHandler) Pools(c echo.Context) error {
	ctx := c.Request().Context()

	result, err := h.AUsecase.AnalyzeToken(ctx, c.Param("token"), domain.AnalyzeOptions{})
	if err != nil {
		return respondError(c, err)
	}

	pools := result.Pools
	if kind := c.QueryParam("type"); kind != "" {
		filtered := pools[:0:0]
		for _, pool := range pools {
			if string(pool.Kind) == strings.ToLower(kind) {
				filtered = append(filtered, pool)
			}
		}
		pools = filtered
	}
	if minLiq, ok := parseFloatParam(c.QueryParam("minLiquidity")); ok {
		filtered := pools[:0:0]
		for _, pool := range pools {
			if pool.Liquidity.TotalUSD >= minLiq {
				filtered = append(filtered, pool)
			}
		}
		pools = filtered
	}

	// sort a copy; with no filter applied the slice aliases the cached analysis
	sorted := make([]*domain.Pool, len(pools))
	copy(sorted, pools)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Liquidity.TotalUSD > sorted[j].Liquidity.TotalUSD
	})
	pools = sorted

	limit := defaultPoolsLimit
	if n, ok := parseIntParam(c.QueryParam("limit")); ok && n > 0 {
		limit = n
	}
	if len(pools) > limit {
		pools = pools[:limit]
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"token":   result.Token,
		"count":   len(pools),
		"pools":   pools,
	})
}

// Pair returns the pools trading both tokens.
func (h *PoolsHandler) Pair(c echo.Context) error {
	ctx := c.Request().Context()

	result, err := h.AUsecase.AnalyzeToken(ctx, c.Param("tokenA"), domain.AnalyzeOptions{})
	if err != nil {
		return respondError(c, err)
	}

	tokenB := strings.ToLower(c.Param("tokenB"))
	targetLower := domain.LowerHex(result.Token.Address)

	var pools []*domain.Pool
	for _, pool := range result.Pools {
		if domain.LowerHex(pool.PairToken(targetLower).Address) == tokenB {
			pools = append(pools, pool)
		}
	}
	if len(pools) == 0 {
		return respondError(c, domain.NoPoolsFoundError{Token: c.Param("tokenA")})
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "count": len(pools), "pools": pools})
}

// quoteRequest is the POST /quote body.
type quoteRequest struct {
	TokenIn     string  `json:"tokenIn"`
	TokenOut    string  `json:"tokenOut"`
	AmountIn    string  `json:"amountIn"`
	SlippagePct float64 `json:"slippage"`
}

// Quote prices a direct swap on the deepest active pool pairing the two
// tokens and computes minAmountOut under the requested slippage tolerance.
func (h *PoolsHandler) Quote(c echo.Context) error {
	ctx := c.Request().Context()

	var req quoteRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, domain.ErrBadParamInput)
	}

	amountIn, err := decimal.NewFromString(req.AmountIn)
	if err != nil || !amountIn.IsPositive() {
		return respondError(c, domain.InvalidAmountError{Input: req.AmountIn})
	}
	slippage := req.SlippagePct
	if slippage <= 0 {
		slippage = defaultSlippagePct
	}

	result, err := h.AUsecase.AnalyzeToken(ctx, req.TokenIn, domain.AnalyzeOptions{})
	if err != nil {
		return respondError(c, err)
	}

	inLower := domain.LowerHex(result.Token.Address)
	outLower := strings.ToLower(req.TokenOut)
	pool := deepestActivePoolAgainst(result, outLower)
	if pool == nil {
		return respondError(c, domain.NoPoolsFoundError{Token: req.TokenOut})
	}

	price := pool.Price.Token0Price
	if !pool.TargetIsToken0(inLower) {
		price = pool.Price.Token1Price
	}
	if price <= 0 {
		return respondError(c, domain.NoTradeablePoolError{Token: req.TokenIn})
	}

	amountInFloat, _ := amountIn.Float64()
	swapUSD := amountInFloat * result.Pricing.AvgPriceUSD
	impactFrac := 0.0
	if pool.Liquidity.TotalUSD > 0 {
		impactFrac = swapUSD / pool.Liquidity.TotalUSD
		if impactFrac > 0.5 {
			impactFrac = 0.5
		}
	}
	feeFrac := pool.FeePercent() / 100

	expectedOut := amountIn.
		Mul(decimal.NewFromFloat(price)).
		Mul(decimal.NewFromFloat(1 - feeFrac)).
		Mul(decimal.NewFromFloat(1 - impactFrac))
	minAmountOut := expectedOut.Mul(decimal.NewFromFloat(1 - slippage/100))

	return c.JSON(http.StatusOK, echo.Map{
		"success":        true,
		"pool":           pool,
		"amountIn":       amountIn.String(),
		"expectedOut":    expectedOut.String(),
		"minAmountOut":   minAmountOut.String(),
		"priceImpactPct": impactFrac * 100,
		"feePct":         pool.FeePercent(),
		"slippagePct":    slippage,
	})
}

// SwapPool answers synchronously from the cache only; an uncached token
// yields 428 so the caller can trigger a full analysis first.
func (h *PoolsHandler) SwapPool(c echo.Context) error {
	result, ok := h.AUsecase.GetCachedAnalysis(c.Param("token"))
	if !ok {
		return respondError(c, domain.ErrTokenNotCached)
	}

	tradeUSD := 0.0
	if native, ok := parseFloatParam(c.QueryParam("eth")); ok {
		tradeUSD = native * h.Oracle.GetNativePriceUSD()
	}

	scores := h.AUsecase.ScorePools(result, tradeUSD)
	if len(scores) == 0 {
		return respondError(c, domain.NoPoolsFoundError{Token: c.Param("token")})
	}

	best := scores[0]
	if best.RiskLevel == domain.RiskCritical || best.Safety.Score < 30 {
		return respondError(c, domain.SwapBlockedError{
			Token:       c.Param("token"),
			RiskLevel:   best.RiskLevel,
			SafetyScore: best.Safety.Score,
		})
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "recommendation": best})
}

// SmartRecommend scores the pools for the requested trade size.
func (h *PoolsHandler) SmartRecommend(c echo.Context) error {
	ctx := c.Request().Context()

	result, err := h.AUsecase.AnalyzeToken(ctx, c.Param("token"), domain.AnalyzeOptions{})
	if err != nil {
		return respondError(c, err)
	}

	tradeUSD, _ := parseFloatParam(c.QueryParam("amount"))
	scores := h.AUsecase.ScorePools(result, tradeUSD)
	if len(scores) == 0 {
		return respondError(c, domain.NoPoolsFoundError{Token: c.Param("token")})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success":     true,
		"recommended": scores[0],
		"ranking":     scores,
	})
}

// TradeScenarios scores the analysis across a ladder of trade sizes.
func (h *PoolsHandler) TradeScenarios(c echo.Context) error {
	ctx := c.Request().Context()

	result, err := h.AUsecase.AnalyzeToken(ctx, c.Param("token"), domain.AnalyzeOptions{})
	if err != nil {
		return respondError(c, err)
	}

	var sizes []float64
	if raw := c.QueryParam("sizes"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			size, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
			if err != nil || size <= 0 {
				return respondError(c, domain.InvalidAmountError{Input: part})
			}
			sizes = append(sizes, size)
		}
	}

	scenarios := h.AUsecase.TradeScenarios(result, sizes)
	return c.JSON(http.StatusOK, echo.Map{"success": true, "scenarios": scenarios})
}

// SplitTrade returns the greedy multi-pool allocation for a large trade.
func (h *PoolsHandler) SplitTrade(c echo.Context) error {
	ctx := c.Request().Context()

	amount, ok := parseFloatParam(c.QueryParam("amount"))
	if !ok {
		return respondError(c, domain.InvalidAmountError{Input: c.QueryParam("amount")})
	}

	result, err := h.AUsecase.AnalyzeToken(ctx, c.Param("token"), domain.AnalyzeOptions{})
	if err != nil {
		return respondError(c, err)
	}

	plan, err := h.AUsecase.SplitTrade(result, amount)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "plan": plan})
}

// pickBestPool resolves the best-pool criteria against a formed analysis.
func pickBestPool(result *domain.AnalysisResult, pools []*domain.Pool, criteria, priceDirection string) (*domain.Pool, *domain.PoolScore, error) {
	best := result.BestPools

	switch criteria {
	case "recommended", "balanced":
		if best.Recommended != nil {
			return best.Recommended.Pool, best.Recommended, nil
		}
		return nil, nil, domain.NoTradeablePoolError{Token: result.Token.Address}
	case "liquidity":
		return requirePool(bestByLiquidity(pools), result)
	case "price":
		return requirePool(bestByPrice(pools, priceDirection), result)
	case "fee":
		return requirePool(bestByFee(pools), result)
	case "v2":
		return requirePool(bestOfKind(pools, domain.ProtocolV2), result)
	case "v3":
		return requirePool(bestOfKind(pools, domain.ProtocolV3), result)
	default:
		return nil, nil, domain.InvalidCriteriaError{Criteria: criteria}
	}
}

func requirePool(pool *domain.Pool, result *domain.AnalysisResult) (*domain.Pool, *domain.PoolScore, error) {
	if pool == nil {
		return nil, nil, domain.NoPoolsFoundError{Token: result.Token.Address}
	}
	return pool, nil, nil
}

func bestByLiquidity(pools []*domain.Pool) *domain.Pool {
	var best *domain.Pool
	for _, pool := range pools {
		if pool.Liquidity.Status == domain.StatusRugged {
			continue
		}
		if best == nil || pool.Liquidity.TotalUSD > best.Liquidity.TotalUSD {
			best = pool
		}
	}
	return best
}

// bestByPrice selects for direction: a buyer wants the lowest price, a
// seller the highest.
func bestByPrice(pools []*domain.Pool, direction string) *domain.Pool {
	var best *domain.Pool
	for _, pool := range pools {
		if pool.Liquidity.Status == domain.StatusRugged || pool.Price.InUSD <= 0 {
			continue
		}
		if best == nil {
			best = pool
			continue
		}
		if direction == "buy" {
			if pool.Price.InUSD < best.Price.InUSD {
				best = pool
			}
		} else if pool.Price.InUSD > best.Price.InUSD {
			best = pool
		}
	}
	return best
}

func bestByFee(pools []*domain.Pool) *domain.Pool {
	var best *domain.Pool
	for _, pool := range pools {
		if pool.Liquidity.Status == domain.StatusRugged {
			continue
		}
		if best == nil || pool.Fee < best.Fee {
			best = pool
		}
	}
	return best
}

func bestOfKind(pools []*domain.Pool, kind domain.ProtocolKind) *domain.Pool {
	var best *domain.Pool
	for _, pool := range pools {
		if pool.Kind != kind || pool.Liquidity.Status == domain.StatusRugged {
			continue
		}
		if best == nil || pool.Liquidity.TotalUSD > best.Liquidity.TotalUSD {
			best = pool
		}
	}
	return best
}

func filterByBasePair(result *domain.AnalysisResult, basePair string) []*domain.Pool {
	targetLower := domain.LowerHex(result.Token.Address)
	want := strings.ToLower(basePair)

	var pools []*domain.Pool
	for _, pool := range result.Pools {
		pair := pool.PairToken(targetLower)
		if strings.ToLower(pair.Symbol) == want || domain.LowerHex(pair.Address) == want {
			pools = append(pools, pool)
		}
	}
	return pools
}

func deepestActivePoolAgainst(result *domain.AnalysisResult, otherLower string) *domain.Pool {
	targetLower := domain.LowerHex(result.Token.Address)

	var best *domain.Pool
	for _, pool := range result.Pools {
		if pool.Liquidity.Status != domain.StatusActive {
			continue
		}
		if domain.LowerHex(pool.PairToken(targetLower).Address) != otherLower {
			continue
		}
		if best == nil || pool.Liquidity.TotalUSD > best.Liquidity.TotalUSD {
			best = pool
		}
	}
	return best
}

func filterByLiquidity(result *domain.AnalysisResult, minLiquidityUSD float64) *domain.AnalysisResult {
	clone := *result
	clone.Pools = make([]*domain.Pool, 0, len(result.Pools))
	for _, pool := range result.Pools {
		if pool.Liquidity.TotalUSD >= minLiquidityUSD {
			clone.Pools = append(clone.Pools, pool)
		}
	}
	return &clone
}

func trimPools(result *domain.AnalysisResult, limit int) *domain.AnalysisResult {
	if len(result.Pools) <= limit {
		return result
	}

	clone := *result
	clone.Pools = make([]*domain.Pool, len(result.Pools))
	copy(clone.Pools, result.Pools)
	sort.SliceStable(clone.Pools, func(i, j int) bool {
		return clone.Pools[i].Liquidity.TotalUSD > clone.Pools[j].Liquidity.TotalUSD
	})
	clone.Pools = clone.Pools[:limit]
	return &clone
}

func parseFloatParam(raw string) (float64, bool) {
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseIntParam(raw string) (int, bool) {
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

// respondError maps a usecase error to its HTTP status and envelope.
func respondError(c echo.Context, err error) error {
	return c.JSON(getStatusCode(err), domain.ResponseError{Success: false, Message: err.Error()})
}

func getStatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}
	logrus.Error(err)
	return domain.GetStatusCode(err)
}
