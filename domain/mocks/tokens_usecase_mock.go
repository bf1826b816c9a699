package mocks

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/dexlens/dexlens/domain"
	"github.com/dexlens/dexlens/domain/mvc"
)

// TokensUsecaseMock is a mock implementation of the TokensUsecase interface
type TokensUsecaseMock struct {
	GetTokenInfoFunc func(ctx context.Context, address common.Address) (domain.TokenInfo, error)
	GetManyFunc      func(ctx context.Context, addresses []common.Address) (map[string]domain.TokenInfo, error)
}

var _ mvc.TokensUsecase = &TokensUsecaseMock{}

func (m *TokensUsecaseMock) GetTokenInfo(ctx context.Context, address common.Address) (domain.TokenInfo, error) {
	if m.GetTokenInfoFunc != nil {
		return m.GetTokenInfoFunc(ctx, address)
	}
	return domain.UnknownToken(address), nil
}

func (m *TokensUsecaseMock) GetMany(ctx context.Context, addresses []common.Address) (map[string]domain.TokenInfo, error) {
	if m.GetManyFunc != nil {
		return m.GetManyFunc(ctx, addresses)
	}
	return map[string]domain.TokenInfo{}, nil
}
