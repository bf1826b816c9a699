package mvc

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/dexlens/dexlens/domain"
)

// TokensUsecase resolves ERC-20 metadata for token addresses.
type TokensUsecase interface {
	// GetTokenInfo resolves a single token. Resolution order is the
	// hardcoded well-known table, the cache, then one batched chain read.
	// Decode failures fall back to the UNKNOWN token, never an error.
	GetTokenInfo(ctx context.Context, address common.Address) (domain.TokenInfo, error)

	// GetMany resolves a set of tokens, batching the uncached tail into a
	// single aggregated read. The result map is keyed by lowercased address.
	GetMany(ctx context.Context, addresses []common.Address) (map[string]domain.TokenInfo, error)
}
