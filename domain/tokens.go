package domain

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// TokenInfo is the resolved ERC-20 metadata for a token.
// It is immutable once resolved.
type TokenInfo struct {
	// Address is the checksummed token address.
	Address string `json:"address"`
	// Symbol is the token symbol, UNKNOWN when it could not be resolved.
	Symbol string `json:"symbol"`
	// Name is the token name, Unknown when it could not be resolved.
	Name string `json:"name"`
	// Decimals is the ERC-20 decimals, in [0, 36]. Defaults to 18.
	Decimals uint8 `json:"decimals"`
}

const (
	// UnknownSymbol is the symbol assigned to tokens whose metadata failed to resolve.
	UnknownSymbol = "UNKNOWN"
	// UnknownName is the name assigned to tokens whose metadata failed to resolve.
	UnknownName = "Unknown"
	// DefaultDecimals is assumed when the decimals call fails to decode.
	DefaultDecimals = 18
)

// UnknownToken returns the fallback token info for the given address.
func UnknownToken(address common.Address) TokenInfo {
	return TokenInfo{
		Address:  address.Hex(),
		Symbol:   UnknownSymbol,
		Name:     UnknownName,
		Decimals: DefaultDecimals,
	}
}

// Well-known token addresses for the configured chain (BNB Smart Chain).
// Keys of KnownTokens are lowercased hex addresses.
const (
	WrapperAddress   = "0xbb4cdb9cbd36b01bd1cbaef60af814a3f6f0ee75" // WBNB
	USDTAddress      = "0x55d398326f99059ff775485246999027b3197955"
	USDCAddress      = "0x8ac76a51cc950d9822d68b83fe1ad97b32cd580d"
	BUSDAddress      = "0xe9e7cea3dedca5984780bafc599bd69add087d56"
	DAIAddress       = "0x1af3f329e8be154074d8769d1ffa4ee058b1dbc3"
	EcosystemAddress = "0x0e09fabb73bd3ade0a17ecc321fd13a19e81ce82" // CAKE
)

// KnownTokens is the compile-time table of well-known tokens.
// The token registry consults it before hitting the cache or the chain.
var KnownTokens = map[string]TokenInfo{
	WrapperAddress:   {Address: common.HexToAddress(WrapperAddress).Hex(), Symbol: "WBNB", Name: "Wrapped BNB", Decimals: 18},
	USDTAddress:      {Address: common.HexToAddress(USDTAddress).Hex(), Symbol: "USDT", Name: "Tether USD", Decimals: 18},
	USDCAddress:      {Address: common.HexToAddress(USDCAddress).Hex(), Symbol: "USDC", Name: "USD Coin", Decimals: 18},
	BUSDAddress:      {Address: common.HexToAddress(BUSDAddress).Hex(), Symbol: "BUSD", Name: "BUSD Token", Decimals: 18},
	DAIAddress:       {Address: common.HexToAddress(DAIAddress).Hex(), Symbol: "DAI", Name: "Dai Stablecoin", Decimals: 18},
	EcosystemAddress: {Address: common.HexToAddress(EcosystemAddress).Hex(), Symbol: "CAKE", Name: "PancakeSwap Token", Decimals: 18},
}

// BaseTokenAddresses is the ordered base-token set used for pool discovery.
// The first three are the highest-liquidity bases used by fast mode.
var BaseTokenAddresses = []string{
	WrapperAddress,
	USDTAddress,
	USDCAddress,
	BUSDAddress,
	EcosystemAddress,
}

// stableAddresses is the set of USD-pegged tokens, seeded at 1.00 in the oracle.
var stableAddresses = map[string]struct{}{
	USDTAddress: {},
	USDCAddress: {},
	BUSDAddress: {},
	DAIAddress:  {},
}

// IsStable returns true if the address belongs to a USD-pegged base token.
func IsStable(address string) bool {
	_, ok := stableAddresses[strings.ToLower(address)]
	return ok
}

// IsWrapper returns true if the address is the native-wrapped token.
func IsWrapper(address string) bool {
	return strings.ToLower(address) == WrapperAddress
}

// IsEcosystem returns true if the address is the ecosystem token.
func IsEcosystem(address string) bool {
	return strings.ToLower(address) == EcosystemAddress
}

// ParseAddress validates and parses a user-supplied hex address.
func ParseAddress(input string) (common.Address, error) {
	if !common.IsHexAddress(input) {
		return common.Address{}, InvalidAddressError{Input: input}
	}
	return common.HexToAddress(input), nil
}

// LowerAddress returns the canonical lowercased form used for cache keys.
func LowerAddress(address common.Address) string {
	return strings.ToLower(address.Hex())
}

// LowerHex lowercases a hex address string without re-deriving the checksum.
func LowerHex(address string) string {
	return strings.ToLower(address)
}
