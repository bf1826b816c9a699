package usecase

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/dexlens/dexlens/chain"
	"github.com/dexlens/dexlens/domain"
	"github.com/dexlens/dexlens/domain/mvc"
	"github.com/dexlens/dexlens/log"
	"github.com/dexlens/dexlens/pricing"
)

const (
	// activeLiquidityUSD and warningLiquidityUSD are the status thresholds.
	activeLiquidityUSD  = 1000
	warningLiquidityUSD = 100

	// defaultSequentialChunk bounds the per-pool fallback fetch.
	defaultSequentialChunk = 8
)

// fetchedPool is a pool whose raw on-chain state has been read but whose
// token metadata and derived views are not yet attached.
type fetchedPool struct {
	cand   domain.PoolCandidate
	token0 common.Address
	token1 common.Address
	fee    uint32
	v2     *domain.V2State
	v3     *domain.V3State
}

// fetchOutcome carries the reconstructed pools plus the per-protocol status.
type fetchOutcome struct {
	pools  []*domain.Pool
	status map[domain.ProtocolKind]domain.ProtocolStatus
}

func (o *fetchOutcome) partial() bool {
	for _, st := range o.status {
		if st.Status == domain.ProtocolFetchFailed {
			return true
		}
	}
	return false
}

// poolFetcher reconstructs pool state from candidates with per-kind batches,
// tolerating the failure of one protocol family.
type poolFetcher struct {
	batch     *chain.BatchCaller
	tokens    mvc.TokensUsecase
	oracle    mvc.PriceOracle
	chunkSize int
	logger    log.Logger
}

func newPoolFetcher(batch *chain.BatchCaller, tokens mvc.TokensUsecase, oracle mvc.PriceOracle, chunkSize int, logger log.Logger) *poolFetcher {
	if chunkSize <= 0 {
		chunkSize = defaultSequentialChunk
	}
	return &poolFetcher{
		batch:     batch,
		tokens:    tokens,
		oracle:    oracle,
		chunkSize: chunkSize,
		logger:    logger.Named("fetcher"),
	}
}

// Fetch reads state for all candidates. The V2 and V3 batches run
// concurrently; a failure in one records a failed protocol status without
// failing the other. When both batches fail, state is re-read sequentially
// in bounded chunks.
func (f *poolFetcher) Fetch(ctx context.Context, targetLower string, candidates []domain.PoolCandidate) *fetchOutcome {
	var v2Cands, v3Cands []domain.PoolCandidate
	for _, cand := range candidates {
		if cand.Kind == domain.ProtocolV2 {
			v2Cands = append(v2Cands, cand)
		} else {
			v3Cands = append(v3Cands, cand)
		}
	}

	outcome := &fetchOutcome{
		status: map[domain.ProtocolKind]domain.ProtocolStatus{
			domain.ProtocolV2: {Status: domain.ProtocolFetchSkipped},
			domain.ProtocolV3: {Status: domain.ProtocolFetchSkipped},
		},
	}

	var (
		wg           sync.WaitGroup
		v2Raw, v3Raw []fetchedPool
		v2Err, v3Err error
	)
	if len(v2Cands) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v2Raw, v2Err = f.fetchV2Batch(ctx, v2Cands)
		}()
	}
	if len(v3Cands) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v3Raw, v3Err = f.fetchV3Batch(ctx, v3Cands)
		}()
	}
	wg.Wait()

	bothFailed := len(v2Cands) > 0 && len(v3Cands) > 0 && v2Err != nil && v3Err != nil
	if bothFailed {
		f.logger.Warn("both protocol batches failed, falling back to sequential fetch",
			zap.Error(v2Err), zap.Error(v3Err))
		v2Raw, v2Err = f.fetchSequential(ctx, v2Cands, f.fetchV2Batch)
		v3Raw, v3Err = f.fetchSequential(ctx, v3Cands, f.fetchV3Batch)
	}

	recordStatus(outcome.status, domain.ProtocolV2, len(v2Cands), len(v2Raw), v2Err)
	recordStatus(outcome.status, domain.ProtocolV3, len(v3Cands), len(v3Raw), v3Err)

	raw := append(v2Raw, v3Raw...)
	if len(raw) == 0 {
		return outcome
	}

	outcome.pools = f.enrich(ctx, targetLower, raw)
	return outcome
}

func recordStatus(status map[domain.ProtocolKind]domain.ProtocolStatus, kind domain.ProtocolKind, submitted, returned int, err error) {
	if submitted == 0 {
		return
	}
	st := domain.ProtocolStatus{Pools: submitted, Returned: returned}
	if err != nil {
		st.Status = domain.ProtocolFetchFailed
		st.Error = err.Error()
	} else {
		st.Status = domain.ProtocolFetchSuccess
	}
	status[kind] = st
}

// fetchSequential re-reads candidates in bounded chunks, swallowing chunk
// errors. Returns an error only when every chunk failed.
func (f *poolFetcher) fetchSequential(ctx context.Context, cands []domain.PoolCandidate, fetch func(context.Context, []domain.PoolCandidate) ([]fetchedPool, error)) ([]fetchedPool, error) {
	var (
		all     []fetchedPool
		lastErr error
		anyOK   bool
	)
	for start := 0; start < len(cands); start += f.chunkSize {
		end := start + f.chunkSize
		if end > len(cands) {
			end = len(cands)
		}

		chunk, err := fetch(ctx, cands[start:end])
		if err != nil {
			lastErr = err
			f.logger.Warn("sequential chunk fetch failed", zap.Error(err))
			continue
		}
		anyOK = true
		all = append(all, chunk...)
	}

	if !anyOK && lastErr != nil {
		return nil, lastErr
	}
	return all, nil
}

// fetchV2Batch reads {token0, token1, getReserves} for every candidate in
// one aggregated call. Candidates with any failed sub-call are dropped.
func (f *poolFetcher) fetchV2Batch(ctx context.Context, cands []domain.PoolCandidate) ([]fetchedPool, error) {
	calls := make([]chain.Call, 0, len(cands)*3)
	for _, cand := range cands {
		for _, method := range []string{"token0", "token1", "getReserves"} {
			call, err := chain.NewCall(cand.Address, chain.V2PairABI, method)
			if err != nil {
				return nil, err
			}
			calls = append(calls, call)
		}
	}

	results, err := f.batch.Aggregate(ctx, calls)
	if err != nil {
		return nil, err
	}

	pools := make([]fetchedPool, 0, len(cands))
	for i, cand := range cands {
		token0, ok0 := chain.UnpackAddress(results[i*3])
		token1, ok1 := chain.UnpackAddress(results[i*3+1])
		state, okRes := unpackReserves(results[i*3+2])
		if !ok0 || !ok1 || !okRes {
			continue
		}

		pools = append(pools, fetchedPool{
			cand:   cand,
			token0: token0,
			token1: token1,
			fee:    domain.V2DefaultFee,
			v2:     state,
		})
	}
	return pools, nil
}

// fetchV3Batch reads {token0, token1, fee, liquidity, slot0} per candidate,
// then the pool's actual token balances in a second batch.
func (f *poolFetcher) fetchV3Batch(ctx context.Context, cands []domain.PoolCandidate) ([]fetchedPool, error) {
	calls := make([]chain.Call, 0, len(cands)*5)
	for _, cand := range cands {
		for _, method := range []string{"token0", "token1", "fee", "liquidity", "slot0"} {
			call, err := chain.NewCall(cand.Address, chain.V3PoolABI, method)
			if err != nil {
				return nil, err
			}
			calls = append(calls, call)
		}
	}

	results, err := f.batch.Aggregate(ctx, calls)
	if err != nil {
		return nil, err
	}

	pools := make([]fetchedPool, 0, len(cands))
	for i, cand := range cands {
		token0, ok0 := chain.UnpackAddress(results[i*5])
		token1, ok1 := chain.UnpackAddress(results[i*5+1])
		if !ok0 || !ok1 {
			continue
		}

		fee := cand.Fee
		if decoded, ok := unpackFee(results[i*5+2]); ok {
			fee = decoded
		}

		liquidity, okLiq := unpackBigInt(chain.V3PoolABI, "liquidity", results[i*5+3])
		state, okSlot := unpackSlot0(results[i*5+4])
		if !okLiq || !okSlot {
			continue
		}
		state.Liquidity = liquidity

		pools = append(pools, fetchedPool{
			cand:   cand,
			token0: token0,
			token1: token1,
			fee:    fee,
			v3:     state,
		})
	}

	if len(pools) == 0 {
		return pools, nil
	}

	// Second batch: the pools' actual ERC-20 balances. slot0 liquidity is
	// virtual; TVL needs the held amounts.
	balanceCalls := make([]chain.Call, 0, len(pools)*2)
	for _, p := range pools {
		for _, token := range []common.Address{p.token0, p.token1} {
			call, err := chain.NewCall(token, chain.ERC20ABI, "balanceOf", p.cand.Address)
			if err != nil {
				return nil, err
			}
			balanceCalls = append(balanceCalls, call)
		}
	}

	balances, err := f.batch.Aggregate(ctx, balanceCalls)
	if err != nil {
		return nil, err
	}

	for i := range pools {
		if bal, ok := unpackBigInt(chain.ERC20ABI, "balanceOf", balances[i*2]); ok {
			pools[i].v3.ActualBalance0 = bal
		} else {
			pools[i].v3.ActualBalance0 = new(big.Int)
		}
		if bal, ok := unpackBigInt(chain.ERC20ABI, "balanceOf", balances[i*2+1]); ok {
			pools[i].v3.ActualBalance1 = bal
		} else {
			pools[i].v3.ActualBalance1 = new(big.Int)
		}
	}

	return pools, nil
}

// enrich attaches token metadata and the derived liquidity and price views.
func (f *poolFetcher) enrich(ctx context.Context, targetLower string, raw []fetchedPool) []*domain.Pool {
	unique := make(map[common.Address]struct{}, len(raw)*2)
	var addresses []common.Address
	for _, p := range raw {
		for _, token := range []common.Address{p.token0, p.token1} {
			if _, ok := unique[token]; !ok {
				unique[token] = struct{}{}
				addresses = append(addresses, token)
			}
		}
	}

	metadata, err := f.tokens.GetMany(ctx, addresses)
	if err != nil {
		f.logger.Warn("token metadata fetch failed, using defaults", zap.Error(err))
		metadata = map[string]domain.TokenInfo{}
	}

	tokenInfo := func(address common.Address) domain.TokenInfo {
		if info, ok := metadata[domain.LowerAddress(address)]; ok {
			return info
		}
		return domain.UnknownToken(address)
	}

	pools := make([]*domain.Pool, 0, len(raw))
	for _, p := range raw {
		pool := &domain.Pool{
			Address:     p.cand.Address.Hex(),
			Kind:        p.cand.Kind,
			Protocol:    p.cand.Protocol,
			Token0:      tokenInfo(p.token0),
			Token1:      tokenInfo(p.token1),
			Fee:         p.fee,
			V2:          p.v2,
			V3:          p.v3,
			LastUpdated: time.Now(),
		}

		switch pool.Kind {
		case domain.ProtocolV2:
			f.enrichV2(pool, targetLower)
		case domain.ProtocolV3:
			f.enrichV3(pool, targetLower)
		}

		pools = append(pools, pool)
	}
	return pools
}

func (f *poolFetcher) enrichV2(pool *domain.Pool, targetLower string) {
	dec0, dec1 := pool.Token0.Decimals, pool.Token1.Decimals

	token0Price, token1Price := pricing.CalcV2Price(pool.V2.Reserve0, pool.V2.Reserve1, dec0, dec1)
	amount0 := pricing.RawToFloat(pool.V2.Reserve0, dec0)
	amount1 := pricing.RawToFloat(pool.V2.Reserve1, dec1)

	totalUSD := f.oracle.CalcPoolValueUSD(
		domain.LowerHex(pool.Token0.Address), domain.LowerHex(pool.Token1.Address),
		pool.V2.Reserve0, pool.V2.Reserve1, dec0, dec1, token0Price)

	pool.Liquidity = domain.LiquidityInfo{
		TotalUSD:     totalUSD,
		TotalNative:  usdToNative(totalUSD, f.oracle.GetNativePriceUSD()),
		Token0Amount: amount0,
		Token1Amount: amount1,
		Status:       liquidityStatus(totalUSD, pool.HasState()),
	}

	f.attachPrice(pool, targetLower, token0Price, token1Price)
}

func (f *poolFetcher) enrichV3(pool *domain.Pool, targetLower string) {
	if reason, rugged := v3RugReason(pool.V3); rugged {
		pool.Liquidity = domain.LiquidityInfo{
			Status:       domain.StatusRugged,
			StatusReason: reason,
		}
		return
	}

	dec0, dec1 := pool.Token0.Decimals, pool.Token1.Decimals

	token0Price := pricing.CalcSqrtPriceToPrice(pool.V3.SqrtPriceX96, dec0, dec1)
	var token1Price float64
	if token0Price > 0 {
		token1Price = 1 / token0Price
	}

	amount0 := pricing.RawToFloat(pool.V3.ActualBalance0, dec0)
	amount1 := pricing.RawToFloat(pool.V3.ActualBalance1, dec1)

	totalUSD := f.oracle.CalcPoolValueUSD(
		domain.LowerHex(pool.Token0.Address), domain.LowerHex(pool.Token1.Address),
		pool.V3.ActualBalance0, pool.V3.ActualBalance1, dec0, dec1, token0Price)

	pool.Liquidity = domain.LiquidityInfo{
		TotalUSD:     totalUSD,
		TotalNative:  usdToNative(totalUSD, f.oracle.GetNativePriceUSD()),
		Token0Amount: amount0,
		Token1Amount: amount1,
		Status:       liquidityStatus(totalUSD, pool.HasState()),
	}

	f.attachPrice(pool, targetLower, token0Price, token1Price)
}

// attachPrice orients the pool price around the target token and derives
// its USD and native values through the oracle.
func (f *poolFetcher) attachPrice(pool *domain.Pool, targetLower string, token0Price, token1Price float64) {
	priceInPair := token0Price
	if !pool.TargetIsToken0(targetLower) {
		priceInPair = token1Price
	}

	pair := pool.PairToken(targetLower)

	var inUSD float64
	if pairUSD, ok := f.oracle.GetPriceUSD(domain.LowerHex(pair.Address)); ok {
		inUSD = priceInPair * pairUSD
	}

	pool.Price = domain.PriceInfo{
		Token0Price:     token0Price,
		Token1Price:     token1Price,
		PriceRatio:      token0Price,
		InUSD:           inUSD,
		InNative:        usdToNative(inUSD, f.oracle.GetNativePriceUSD()),
		PairTokenSymbol: pair.Symbol,
		DisplayPrice:    formatDisplayPrice(inUSD),
		Source:          pool.Protocol,
	}
}

// v3RugReason flags abandoned pools: zero active liquidity or the price
// parked within 100 ticks of either extreme.
func v3RugReason(state *domain.V3State) (string, bool) {
	if state.Liquidity == nil || state.Liquidity.Sign() == 0 {
		return "no active liquidity", true
	}
	if state.Tick >= domain.MaxTick-domain.RuggedTickProximity {
		return "tick at upper range extreme", true
	}
	if state.Tick <= domain.MinTick+domain.RuggedTickProximity {
		return "tick at lower range extreme", true
	}
	return "", false
}

func liquidityStatus(totalUSD float64, hasState bool) domain.LiquidityStatus {
	switch {
	case !hasState:
		return domain.StatusEmpty
	case totalUSD >= activeLiquidityUSD:
		return domain.StatusActive
	case totalUSD >= warningLiquidityUSD:
		return domain.StatusWarningLiquidity
	default:
		return domain.StatusLowLiquidity
	}
}

func usdToNative(usd, nativeUSD float64) float64 {
	if nativeUSD <= 0 {
		return 0
	}
	return usd / nativeUSD
}

// formatDisplayPrice renders a USD price with magnitude-aware precision.
func formatDisplayPrice(usd float64) string {
	switch {
	case usd <= 0:
		return "N/A"
	case usd >= 1:
		return fmt.Sprintf("$%.4f", usd)
	case usd >= 0.0001:
		return fmt.Sprintf("$%.6f", usd)
	default:
		return fmt.Sprintf("$%.12f", usd)
	}
}

func unpackReserves(res chain.Result) (*domain.V2State, bool) {
	if !res.Success || len(res.ReturnData) == 0 {
		return nil, false
	}

	out, err := chain.V2PairABI.Unpack("getReserves", res.ReturnData)
	if err != nil || len(out) != 3 {
		return nil, false
	}

	reserve0, ok0 := out[0].(*big.Int)
	reserve1, ok1 := out[1].(*big.Int)
	timestamp, okTS := out[2].(uint32)
	if !ok0 || !ok1 || !okTS {
		return nil, false
	}

	return &domain.V2State{
		Reserve0:       reserve0,
		Reserve1:       reserve1,
		BlockTimestamp: timestamp,
	}, true
}

func unpackFee(res chain.Result) (uint32, bool) {
	if !res.Success || len(res.ReturnData) == 0 {
		return 0, false
	}

	out, err := chain.V3PoolABI.Unpack("fee", res.ReturnData)
	if err != nil || len(out) != 1 {
		return 0, false
	}

	fee, ok := out[0].(*big.Int)
	if !ok || !fee.IsUint64() {
		return 0, false
	}
	return uint32(fee.Uint64()), true
}

func unpackSlot0(res chain.Result) (*domain.V3State, bool) {
	if !res.Success || len(res.ReturnData) == 0 {
		return nil, false
	}

	out, err := chain.V3PoolABI.Unpack("slot0", res.ReturnData)
	if err != nil || len(out) < 2 {
		return nil, false
	}

	sqrtPrice, okSqrt := out[0].(*big.Int)
	tick, okTick := out[1].(*big.Int)
	if !okSqrt || !okTick {
		return nil, false
	}

	return &domain.V3State{
		SqrtPriceX96: sqrtPrice,
		Tick:         tick.Int64(),
	}, true
}

func unpackBigInt(contractABI abi.ABI, method string, res chain.Result) (*big.Int, bool) {
	if !res.Success || len(res.ReturnData) == 0 {
		return nil, false
	}

	out, err := contractABI.Unpack(method, res.ReturnData)
	if err != nil || len(out) != 1 {
		return nil, false
	}

	value, ok := out[0].(*big.Int)
	return value, ok
}
