package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ProtocolKind discriminates the two supported AMM families.
type ProtocolKind string

const (
	// ProtocolV2 is a constant-product pair with a single fixed fee.
	ProtocolV2 ProtocolKind = "v2"
	// ProtocolV3 is a concentrated-liquidity pool with a per-pool fee tier.
	ProtocolV3 ProtocolKind = "v3"
)

const (
	// V2DefaultFee is the fee assumed for all V2 pairs, in hundredths of a
	// basis point (2500 = 0.25%).
	V2DefaultFee uint32 = 2500

	// MinTick and MaxTick bound the V3 tick range.
	MinTick int64 = -887272
	MaxTick int64 = 887272

	// RuggedTickProximity is the distance from the tick extremes within which
	// a V3 pool is treated as abandoned.
	RuggedTickProximity int64 = 100
)

// V3FeeTiers is the closed set of V3 fee tiers probed during discovery,
// in hundredths of a basis point.
var V3FeeTiers = []uint32{100, 500, 2500, 3000, 10000}

// V2State is the on-chain state of a constant-product pair.
type V2State struct {
	Reserve0       *big.Int `json:"reserve0"`
	Reserve1       *big.Int `json:"reserve1"`
	BlockTimestamp uint32   `json:"blockTimestamp"`
}

// V3State is the on-chain state of a concentrated-liquidity pool.
type V3State struct {
	// SqrtPriceX96 is the Q64.96 fixed-point square-root price from slot0.
	SqrtPriceX96 *big.Int `json:"sqrtPriceX96"`
	// Tick is the current tick, in [MinTick, MaxTick].
	Tick int64 `json:"tick"`
	// Liquidity is the active-range virtual liquidity.
	Liquidity *big.Int `json:"liquidity"`
	// ActualBalance0 and ActualBalance1 are the raw ERC-20 balances held by
	// the pool contract, read separately from slot0.
	ActualBalance0 *big.Int `json:"actualBalance0"`
	ActualBalance1 *big.Int `json:"actualBalance1"`
}

// LiquidityStatus classifies a pool by its USD depth.
type LiquidityStatus string

const (
	StatusActive           LiquidityStatus = "ACTIVE"
	StatusWarningLiquidity LiquidityStatus = "WARNING_LIQUIDITY"
	StatusLowLiquidity     LiquidityStatus = "LOW_LIQUIDITY"
	StatusEmpty            LiquidityStatus = "EMPTY"
	StatusRugged           LiquidityStatus = "RUGGED"
)

// LiquidityInfo is the derived value-locked view of a pool.
type LiquidityInfo struct {
	TotalUSD     float64         `json:"totalUSD"`
	TotalNative  float64         `json:"totalNative"`
	Token0Amount float64         `json:"token0Amount"`
	Token1Amount float64         `json:"token1Amount"`
	Status       LiquidityStatus `json:"status"`
	// StatusReason carries the rug reason when Status is RUGGED.
	StatusReason string `json:"statusReason,omitempty"`
}

// PriceInfo is the derived price view of a pool, oriented around the
// analysis target token.
type PriceInfo struct {
	// Token0Price is the price of token0 denominated in token1.
	Token0Price float64 `json:"token0Price"`
	// Token1Price is the price of token1 denominated in token0.
	Token1Price float64 `json:"token1Price"`
	// PriceRatio is the raw token0-in-token1 ratio used for TVL derivation.
	PriceRatio float64 `json:"priceRatio"`
	// InUSD is the target-token price in USD, zero when underivable.
	InUSD float64 `json:"inUSD"`
	// InNative is the target-token price in the native-wrapped token.
	InNative float64 `json:"inNative"`
	// PairTokenSymbol names the non-target side of the pool.
	PairTokenSymbol string `json:"pairTokenSymbol"`
	// DisplayPrice is a human-oriented rendering of InUSD.
	DisplayPrice string `json:"displayPrice"`
	// Source names the protocol that produced the price.
	Source string `json:"source"`
}

// Pool is a fully reconstructed AMM pool.
// Exactly one of V2 and V3 is set, matching Kind.
type Pool struct {
	// Address is the checksummed pool address.
	Address string `json:"address"`
	// Kind discriminates which state variant is populated.
	Kind ProtocolKind `json:"kind"`
	// Protocol is the human protocol label, e.g. "PancakeSwap V3".
	Protocol string `json:"protocol"`

	Token0 TokenInfo `json:"token0"`
	Token1 TokenInfo `json:"token1"`

	// Fee is the pool fee in hundredths of a basis point (3000 = 0.3%).
	Fee uint32 `json:"fee"`

	V2 *V2State `json:"v2,omitempty"`
	V3 *V3State `json:"v3,omitempty"`

	Liquidity LiquidityInfo `json:"liquidity"`
	Price     PriceInfo     `json:"price"`

	LastUpdated time.Time `json:"lastUpdated"`
}

// FeePercent converts the pool fee to a percentage (3000 -> 0.3).
func (p *Pool) FeePercent() float64 {
	return float64(p.Fee) / 10000
}

// PairToken returns the side of the pool that is not the target token.
// targetLower must be the lowercased target address.
func (p *Pool) PairToken(targetLower string) TokenInfo {
	if LowerHex(p.Token0.Address) == targetLower {
		return p.Token1
	}
	return p.Token0
}

// TargetIsToken0 reports whether the target token is token0 of the pool.
func (p *Pool) TargetIsToken0(targetLower string) bool {
	return LowerHex(p.Token0.Address) == targetLower
}

// HasState reports whether the pool has non-zero state of its kind:
// both reserves positive for V2, positive sqrt price and liquidity for V3.
func (p *Pool) HasState() bool {
	switch p.Kind {
	case ProtocolV2:
		return p.V2 != nil && p.V2.Reserve0 != nil && p.V2.Reserve1 != nil &&
			p.V2.Reserve0.Sign() > 0 && p.V2.Reserve1.Sign() > 0
	case ProtocolV3:
		return p.V3 != nil && p.V3.SqrtPriceX96 != nil && p.V3.Liquidity != nil &&
			p.V3.SqrtPriceX96.Sign() > 0 && p.V3.Liquidity.Sign() > 0
	default:
		return false
	}
}

// PoolCandidate is a discovered but not yet fetched pool.
type PoolCandidate struct {
	Address common.Address
	Kind    ProtocolKind
	// Protocol is the human protocol label.
	Protocol string
	// OtherToken is the lowercased address of the base token the target is
	// paired against.
	OtherToken string
	// Fee is set for V3 candidates only.
	Fee uint32
}
