package mocks

import (
	"context"

	"github.com/dexlens/dexlens/domain"
	"github.com/dexlens/dexlens/domain/mvc"
)

// RouterUsecaseMock is a mock implementation of the RouterUsecase interface
type RouterUsecaseMock struct {
	FindBestRouteFunc func(ctx context.Context, tokenIn, tokenOut string, amountIn float64) (*domain.RoutePlan, error)
	GraphDOTFunc      func(ctx context.Context, tokenIn, tokenOut string) (string, error)
}

var _ mvc.RouterUsecase = &RouterUsecaseMock{}

func (m *RouterUsecaseMock) FindBestRoute(ctx context.Context, tokenIn, tokenOut string, amountIn float64) (*domain.RoutePlan, error) {
	if m.FindBestRouteFunc != nil {
		return m.FindBestRouteFunc(ctx, tokenIn, tokenOut, amountIn)
	}
	return nil, nil
}

func (m *RouterUsecaseMock) GraphDOT(ctx context.Context, tokenIn, tokenOut string) (string, error) {
	if m.GraphDOTFunc != nil {
		return m.GraphDOTFunc(ctx, tokenIn, tokenOut)
	}
	return "", nil
}
