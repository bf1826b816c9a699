package usecase

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/dexlens/dexlens/chain"
	"github.com/dexlens/dexlens/domain"
	"github.com/dexlens/dexlens/domain/mocks"
	"github.com/dexlens/dexlens/log"
)

func TestV3RugReason(t *testing.T) {
	tests := []struct {
		name       string
		state      *domain.V3State
		wantRugged bool
	}{
		{"healthy", &domain.V3State{Liquidity: big.NewInt(1_000), Tick: 0}, false},
		{"nil liquidity", &domain.V3State{Tick: 0}, true},
		{"zero liquidity", &domain.V3State{Liquidity: new(big.Int), Tick: 0}, true},
		{"tick at upper extreme", &domain.V3State{Liquidity: big.NewInt(1), Tick: domain.MaxTick - 50}, true},
		{"tick at lower extreme", &domain.V3State{Liquidity: big.NewInt(1), Tick: domain.MinTick + 50}, true},
		{"tick just inside upper bound", &domain.V3State{Liquidity: big.NewInt(1), Tick: domain.MaxTick - 101}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason, rugged := v3RugReason(tt.state)
			require.Equal(t, tt.wantRugged, rugged)
			if rugged {
				require.NotEmpty(t, reason)
			}
		})
	}
}

func TestLiquidityStatus(t *testing.T) {
	require.Equal(t, domain.StatusEmpty, liquidityStatus(5_000, false))
	require.Equal(t, domain.StatusActive, liquidityStatus(1_000, true))
	require.Equal(t, domain.StatusWarningLiquidity, liquidityStatus(500, true))
	require.Equal(t, domain.StatusLowLiquidity, liquidityStatus(50, true))
}

func TestFormatDisplayPrice(t *testing.T) {
	require.Equal(t, "N/A", formatDisplayPrice(0))
	require.Equal(t, "$612.5000", formatDisplayPrice(612.5))
	require.Equal(t, "$0.002500", formatDisplayPrice(0.0025))
	require.Equal(t, "$0.000000000012", formatDisplayPrice(1.2e-11))
}

func TestUsdToNative(t *testing.T) {
	require.InDelta(t, 2.0, usdToNative(1_200, 600), 1e-9)
	require.Zero(t, usdToNative(1_200, 0))
}

func TestUnpackReserves(t *testing.T) {
	data, err := chain.V2PairABI.Methods["getReserves"].Outputs.Pack(
		big.NewInt(1_000), big.NewInt(2_000), uint32(1_700_000_000),
	)
	require.NoError(t, err)

	state, ok := unpackReserves(chain.Result{Success: true, ReturnData: data})
	require.True(t, ok)
	require.Equal(t, int64(1_000), state.Reserve0.Int64())
	require.Equal(t, int64(2_000), state.Reserve1.Int64())
	require.Equal(t, uint32(1_700_000_000), state.BlockTimestamp)

	_, ok = unpackReserves(chain.Result{Success: false, ReturnData: data})
	require.False(t, ok)

	_, ok = unpackReserves(chain.Result{Success: true, ReturnData: []byte{0x01, 0x02}})
	require.False(t, ok)
}

func TestUnpackFee(t *testing.T) {
	data, err := chain.V3PoolABI.Methods["fee"].Outputs.Pack(big.NewInt(2500))
	require.NoError(t, err)

	fee, ok := unpackFee(chain.Result{Success: true, ReturnData: data})
	require.True(t, ok)
	require.Equal(t, uint32(2500), fee)

	_, ok = unpackFee(chain.Result{Success: true})
	require.False(t, ok)
}

func TestUnpackSlot0State(t *testing.T) {
	data, err := chain.V3PoolABI.Methods["slot0"].Outputs.Pack(
		big.NewInt(12345), big.NewInt(-100), uint16(0), uint16(0), uint16(0), uint8(0), true,
	)
	require.NoError(t, err)

	state, ok := unpackSlot0(chain.Result{Success: true, ReturnData: data})
	require.True(t, ok)
	require.Equal(t, int64(12345), state.SqrtPriceX96.Int64())
	require.Equal(t, int64(-100), state.Tick)

	_, ok = unpackSlot0(chain.Result{Success: false})
	require.False(t, ok)
}

func TestRecordStatus(t *testing.T) {
	status := map[domain.ProtocolKind]domain.ProtocolStatus{
		domain.ProtocolV2: {Status: domain.ProtocolFetchSkipped},
		domain.ProtocolV3: {Status: domain.ProtocolFetchSkipped},
	}

	recordStatus(status, domain.ProtocolV2, 3, 2, nil)
	require.Equal(t, domain.ProtocolFetchSuccess, status[domain.ProtocolV2].Status)
	require.Equal(t, 3, status[domain.ProtocolV2].Pools)
	require.Equal(t, 2, status[domain.ProtocolV2].Returned)

	recordStatus(status, domain.ProtocolV3, 0, 0, nil)
	require.Equal(t, domain.ProtocolFetchSkipped, status[domain.ProtocolV3].Status)

	outcome := &fetchOutcome{status: status}
	require.False(t, outcome.partial())

	recordStatus(status, domain.ProtocolV3, 2, 0, context.DeadlineExceeded)
	require.Equal(t, domain.ProtocolFetchFailed, status[domain.ProtocolV3].Status)
	require.NotEmpty(t, status[domain.ProtocolV3].Error)
	require.True(t, outcome.partial())
}

func TestEnrichV2OrientsPriceAroundTarget(t *testing.T) {
	oracle := &mocks.PriceOracleMock{
		GetNativePriceUSDFunc: func() float64 { return 600 },
		GetPriceUSDFunc: func(addressLower string) (float64, bool) {
			if addressLower == domain.USDTAddress {
				return 1.0, true
			}
			return 0, false
		},
		CalcPoolValueUSDFunc: func(_, _ string, _, _ *big.Int, _, _ uint8, _ float64) float64 {
			return 400_000
		},
	}

	f := newPoolFetcher(nil, nil, oracle, 0, log.NewNopLogger())

	wei := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	reserve := func(units int64) *big.Int {
		return new(big.Int).Mul(big.NewInt(units), wei)
	}

	// 1M target tokens against 2k USDT puts the target at $0.002
	pool := &domain.Pool{
		Address: "0xbbb1",
		Kind:    domain.ProtocolV2,
		Token0:  testTargetToken,
		Token1:  testUSDTToken,
		V2: &domain.V2State{
			Reserve0: reserve(1_000_000),
			Reserve1: reserve(2_000),
		},
	}

	f.enrichV2(pool, testTargetAddress)

	require.Equal(t, domain.StatusActive, pool.Liquidity.Status)
	require.InDelta(t, 400_000, pool.Liquidity.TotalUSD, 1e-9)
	require.InDelta(t, 400_000.0/600, pool.Liquidity.TotalNative, 1e-9)

	require.InDelta(t, 0.002, pool.Price.Token0Price, 1e-12)
	require.InDelta(t, 500, pool.Price.Token1Price, 1e-9)
	require.InDelta(t, 0.002, pool.Price.InUSD, 1e-12)
	require.Equal(t, "USDT", pool.Price.PairTokenSymbol)
	require.Equal(t, "$0.002000", pool.Price.DisplayPrice)
}

func TestEnrichV3FlagsRuggedBeforePricing(t *testing.T) {
	f := newPoolFetcher(nil, nil, &mocks.PriceOracleMock{}, 0, log.NewNopLogger())

	pool := &domain.Pool{
		Address: "0xbbb2",
		Kind:    domain.ProtocolV3,
		Token0:  testTargetToken,
		Token1:  testUSDTToken,
		V3:      &domain.V3State{Liquidity: new(big.Int), Tick: 0},
	}

	f.enrichV3(pool, testTargetAddress)

	require.Equal(t, domain.StatusRugged, pool.Liquidity.Status)
	require.Equal(t, "no active liquidity", pool.Liquidity.StatusReason)
	require.Zero(t, pool.Price.InUSD)
}

func TestAttachPriceUnknownPair(t *testing.T) {
	f := newPoolFetcher(nil, nil, &mocks.PriceOracleMock{}, 0, log.NewNopLogger())

	pool := &domain.Pool{
		Address: "0xbbb3",
		Kind:    domain.ProtocolV2,
		Token0:  testTargetToken,
		Token1:  domain.UnknownToken(common.HexToAddress("0x9999999999999999999999999999999999999999")),
	}

	f.attachPrice(pool, testTargetAddress, 0.5, 2.0)

	require.Zero(t, pool.Price.InUSD)
	require.Equal(t, "N/A", pool.Price.DisplayPrice)
	require.InDelta(t, 0.5, pool.Price.Token0Price, 1e-12)
}
