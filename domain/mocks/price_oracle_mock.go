package mocks

import (
	"context"
	"math/big"

	"github.com/dexlens/dexlens/domain/mvc"
)

// PriceOracleMock is a mock implementation of the PriceOracle interface
type PriceOracleMock struct {
	GetNativePriceUSDFunc func() float64
	GetPriceUSDFunc       func(addressLower string) (float64, bool)
	SetPriceUSDFunc       func(addressLower string, priceUSD float64)
	SnapshotFunc          func() map[string]float64
	AreStaleFunc          func() bool
	RefreshFromChainFunc  func(ctx context.Context) error
	CalcPoolValueUSDFunc  func(token0Lower, token1Lower string, amount0, amount1 *big.Int, decimals0, decimals1 uint8, poolPriceRatio float64) float64
}

var _ mvc.PriceOracle = &PriceOracleMock{}

func (m *PriceOracleMock) GetNativePriceUSD() float64 {
	if m.GetNativePriceUSDFunc != nil {
		return m.GetNativePriceUSDFunc()
	}
	return 0
}

func (m *PriceOracleMock) GetPriceUSD(addressLower string) (float64, bool) {
	if m.GetPriceUSDFunc != nil {
		return m.GetPriceUSDFunc(addressLower)
	}
	return 0, false
}

func (m *PriceOracleMock) SetPriceUSD(addressLower string, priceUSD float64) {
	if m.SetPriceUSDFunc != nil {
		m.SetPriceUSDFunc(addressLower, priceUSD)
	}
}

func (m *PriceOracleMock) Snapshot() map[string]float64 {
	if m.SnapshotFunc != nil {
		return m.SnapshotFunc()
	}
	return nil
}

func (m *PriceOracleMock) AreStale() bool {
	if m.AreStaleFunc != nil {
		return m.AreStaleFunc()
	}
	return false
}

func (m *PriceOracleMock) RefreshFromChain(ctx context.Context) error {
	if m.RefreshFromChainFunc != nil {
		return m.RefreshFromChainFunc(ctx)
	}
	return nil
}

func (m *PriceOracleMock) CalcPoolValueUSD(token0Lower, token1Lower string, amount0, amount1 *big.Int, decimals0, decimals1 uint8, poolPriceRatio float64) float64 {
	if m.CalcPoolValueUSDFunc != nil {
		return m.CalcPoolValueUSDFunc(token0Lower, token1Lower, amount0, amount1, decimals0, decimals1, poolPriceRatio)
	}
	return 0
}
