package usecase

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/dexlens/dexlens/chain"
	"github.com/dexlens/dexlens/domain"
	"github.com/dexlens/dexlens/domain/mvc"
	"github.com/dexlens/dexlens/log"
)

const (
	// tokenCacheSize bounds the hot-path metadata cache.
	tokenCacheSize = 4096

	// maxDecimals is the upper bound accepted from a decimals() read.
	maxDecimals = 36
)

type tokensUsecase struct {
	batch  *chain.BatchCaller
	cache  *lru.LRU[string, domain.TokenInfo]
	logger log.Logger
}

var _ mvc.TokensUsecase = &tokensUsecase{}

// NewTokensUsecase creates the token registry. tokenTTL should be at least
// one hour; metadata is immutable in practice.
func NewTokensUsecase(batch *chain.BatchCaller, tokenTTL time.Duration, logger log.Logger) mvc.TokensUsecase {
	return &tokensUsecase{
		batch:  batch,
		cache:  lru.NewLRU[string, domain.TokenInfo](tokenCacheSize, nil, tokenTTL),
		logger: logger.Named("tokens"),
	}
}

// GetTokenInfo implements mvc.TokensUsecase.
func (t *tokensUsecase) GetTokenInfo(ctx context.Context, address common.Address) (domain.TokenInfo, error) {
	infos, err := t.GetMany(ctx, []common.Address{address})
	if err != nil {
		return domain.TokenInfo{}, err
	}

	info, ok := infos[domain.LowerAddress(address)]
	if !ok {
		return domain.UnknownToken(address), nil
	}
	return info, nil
}

// GetMany implements mvc.TokensUsecase.
func (t *tokensUsecase) GetMany(ctx context.Context, addresses []common.Address) (map[string]domain.TokenInfo, error) {
	result := make(map[string]domain.TokenInfo, len(addresses))
	var uncached []common.Address

	for _, address := range addresses {
		lower := domain.LowerAddress(address)
		if _, seen := result[lower]; seen {
			continue
		}

		if known, ok := domain.KnownTokens[lower]; ok {
			result[lower] = known
			continue
		}

		if cached, ok := t.cache.Get(lower); ok {
			result[lower] = cached
			continue
		}

		uncached = append(uncached, address)
	}

	if len(uncached) == 0 {
		return result, nil
	}

	fetched, err := t.fetchBatch(ctx, uncached)
	if err != nil {
		return nil, err
	}

	for lower, info := range fetched {
		t.cache.Add(lower, info)
		result[lower] = info
	}

	return result, nil
}

// fetchBatch reads {name, symbol, decimals} for all addresses in one
// aggregated call. Any per-field decode failure falls back to the UNKNOWN
// defaults for that field; the batch itself only fails on transport errors.
func (t *tokensUsecase) fetchBatch(ctx context.Context, addresses []common.Address) (map[string]domain.TokenInfo, error) {
	calls := make([]chain.Call, 0, len(addresses)*3)
	for _, address := range addresses {
		for _, method := range []string{"name", "symbol", "decimals"} {
			call, err := chain.NewCall(address, chain.ERC20ABI, method)
			if err != nil {
				return nil, err
			}
			calls = append(calls, call)
		}
	}

	results, err := t.batch.Aggregate(ctx, calls)
	if err != nil {
		return nil, err
	}

	infos := make(map[string]domain.TokenInfo, len(addresses))
	for i, address := range addresses {
		info := domain.UnknownToken(address)

		if name, ok := unpackString(results[i*3], "name"); ok {
			info.Name = name
		}
		if symbol, ok := unpackString(results[i*3+1], "symbol"); ok {
			info.Symbol = symbol
		}
		if decimals, ok := unpackDecimals(results[i*3+2]); ok {
			info.Decimals = decimals
		}

		if info.Symbol == domain.UnknownSymbol {
			t.logger.Debug("token metadata unresolved, using defaults",
				zap.String("address", address.Hex()))
		}

		infos[domain.LowerAddress(address)] = info
	}

	return infos, nil
}

// unpackString decodes a string return value. Some legacy tokens return
// bytes32 instead of string; those decode as a trimmed byte string.
func unpackString(res chain.Result, method string) (string, bool) {
	if !res.Success || len(res.ReturnData) == 0 {
		return "", false
	}

	out, err := chain.ERC20ABI.Unpack(method, res.ReturnData)
	if err == nil && len(out) == 1 {
		if s, ok := out[0].(string); ok && s != "" {
			return s, true
		}
	}

	// bytes32 fallback: strip trailing zero padding.
	if len(res.ReturnData) == 32 {
		trimmed := make([]byte, 0, 32)
		for _, b := range res.ReturnData {
			if b == 0 {
				break
			}
			trimmed = append(trimmed, b)
		}
		if len(trimmed) > 0 {
			return string(trimmed), true
		}
	}

	return "", false
}

// unpackDecimals decodes a uint8 decimals value, rejecting out-of-range reads.
func unpackDecimals(res chain.Result) (uint8, bool) {
	if !res.Success || len(res.ReturnData) == 0 {
		return 0, false
	}

	out, err := chain.ERC20ABI.Unpack("decimals", res.ReturnData)
	if err != nil || len(out) != 1 {
		return 0, false
	}

	decimals, ok := out[0].(uint8)
	if !ok || decimals > maxDecimals {
		return 0, false
	}
	return decimals, true
}
