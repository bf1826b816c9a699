package mocks

import (
	"context"

	"github.com/dexlens/dexlens/domain"
	"github.com/dexlens/dexlens/domain/mvc"
)

// AnalyzerUsecaseMock is a mock implementation of the AnalyzerUsecase interface
type AnalyzerUsecaseMock struct {
	AnalyzeTokenFunc      func(ctx context.Context, address string, opts domain.AnalyzeOptions) (*domain.AnalysisResult, error)
	GetCachedAnalysisFunc func(address string) (*domain.AnalysisResult, bool)
	ScorePoolsFunc        func(result *domain.AnalysisResult, tradeUSD float64) []domain.PoolScore
	TradeScenariosFunc    func(result *domain.AnalysisResult, sizesUSD []float64) []domain.TradeScenario
	SplitTradeFunc        func(result *domain.AnalysisResult, totalUSD float64) (*domain.SplitTradePlan, error)
}

var _ mvc.AnalyzerUsecase = &AnalyzerUsecaseMock{}

func (m *AnalyzerUsecaseMock) AnalyzeToken(ctx context.Context, address string, opts domain.AnalyzeOptions) (*domain.AnalysisResult, error) {
	if m.AnalyzeTokenFunc != nil {
		return m.AnalyzeTokenFunc(ctx, address, opts)
	}
	return nil, nil
}

func (m *AnalyzerUsecaseMock) GetCachedAnalysis(address string) (*domain.AnalysisResult, bool) {
	if m.GetCachedAnalysisFunc != nil {
		return m.GetCachedAnalysisFunc(address)
	}
	return nil, false
}

func (m *AnalyzerUsecaseMock) ScorePools(result *domain.AnalysisResult, tradeUSD float64) []domain.PoolScore {
	if m.ScorePoolsFunc != nil {
		return m.ScorePoolsFunc(result, tradeUSD)
	}
	return nil
}

func (m *AnalyzerUsecaseMock) TradeScenarios(result *domain.AnalysisResult, sizesUSD []float64) []domain.TradeScenario {
	if m.TradeScenariosFunc != nil {
		return m.TradeScenariosFunc(result, sizesUSD)
	}
	return nil
}

func (m *AnalyzerUsecaseMock) SplitTrade(result *domain.AnalysisResult, totalUSD float64) (*domain.SplitTradePlan, error) {
	if m.SplitTradeFunc != nil {
		return m.SplitTradeFunc(result, totalUSD)
	}
	return nil, nil
}
