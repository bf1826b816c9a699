package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/dexlens/dexlens/chain"
	"github.com/dexlens/dexlens/domain"
	"github.com/dexlens/dexlens/log"
)

func TestGetManyKnownTokensSkipChain(t *testing.T) {
	// Well-known tokens resolve from the static table; no batch caller is
	// needed at all.
	registry := NewTokensUsecase(nil, time.Hour, log.NewNopLogger())

	infos, err := registry.GetMany(context.Background(), []common.Address{
		common.HexToAddress(domain.WrapperAddress),
		common.HexToAddress(domain.USDTAddress),
	})

	require.NoError(t, err)
	require.Len(t, infos, 2)
	require.Equal(t, "WBNB", infos[domain.WrapperAddress].Symbol)
	require.Equal(t, "USDT", infos[domain.USDTAddress].Symbol)
	require.EqualValues(t, 18, infos[domain.WrapperAddress].Decimals)
}

func TestGetTokenInfoKnownToken(t *testing.T) {
	registry := NewTokensUsecase(nil, time.Hour, log.NewNopLogger())

	info, err := registry.GetTokenInfo(context.Background(), common.HexToAddress(domain.EcosystemAddress))

	require.NoError(t, err)
	require.Equal(t, "CAKE", info.Symbol)
}

func TestGetManyDeduplicatesInput(t *testing.T) {
	registry := NewTokensUsecase(nil, time.Hour, log.NewNopLogger())

	infos, err := registry.GetMany(context.Background(), []common.Address{
		common.HexToAddress(domain.WrapperAddress),
		common.HexToAddress(domain.WrapperAddress),
	})

	require.NoError(t, err)
	require.Len(t, infos, 1)
}

func TestUnpackStringStandard(t *testing.T) {
	data, err := chain.ERC20ABI.Methods["symbol"].Outputs.Pack("CAKE")
	require.NoError(t, err)

	symbol, ok := unpackString(chain.Result{Success: true, ReturnData: data}, "symbol")
	require.True(t, ok)
	require.Equal(t, "CAKE", symbol)
}

func TestUnpackStringBytes32Fallback(t *testing.T) {
	// Legacy tokens return right-padded bytes32 instead of an ABI string.
	var raw [32]byte
	copy(raw[:], "MKR")

	symbol, ok := unpackString(chain.Result{Success: true, ReturnData: raw[:]}, "symbol")
	require.True(t, ok)
	require.Equal(t, "MKR", symbol)
}

func TestUnpackStringFailure(t *testing.T) {
	_, ok := unpackString(chain.Result{Success: false}, "symbol")
	require.False(t, ok)

	_, ok = unpackString(chain.Result{Success: true, ReturnData: nil}, "symbol")
	require.False(t, ok)

	var zeros [32]byte
	_, ok = unpackString(chain.Result{Success: true, ReturnData: zeros[:]}, "symbol")
	require.False(t, ok)
}

func TestUnpackDecimals(t *testing.T) {
	data, err := chain.ERC20ABI.Methods["decimals"].Outputs.Pack(uint8(18))
	require.NoError(t, err)

	decimals, ok := unpackDecimals(chain.Result{Success: true, ReturnData: data})
	require.True(t, ok)
	require.EqualValues(t, 18, decimals)
}

func TestUnpackDecimalsRejectsOutOfRange(t *testing.T) {
	data, err := chain.ERC20ABI.Methods["decimals"].Outputs.Pack(uint8(77))
	require.NoError(t, err)

	_, ok := unpackDecimals(chain.Result{Success: true, ReturnData: data})
	require.False(t, ok)

	_, ok = unpackDecimals(chain.Result{Success: false})
	require.False(t, ok)
}
