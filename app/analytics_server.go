package main

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/dexlens/dexlens/chain"
	"github.com/dexlens/dexlens/domain"
	"github.com/dexlens/dexlens/domain/cache"
	"github.com/dexlens/dexlens/domain/mvc"
	"github.com/dexlens/dexlens/log"
	"github.com/dexlens/dexlens/middleware"
	poolshttp "github.com/dexlens/dexlens/pools/delivery/http"
	poolsusecase "github.com/dexlens/dexlens/pools/usecase"
	"github.com/dexlens/dexlens/pricing"
	routerhttp "github.com/dexlens/dexlens/router/delivery/http"
	routerusecase "github.com/dexlens/dexlens/router/usecase"
	systemhttp "github.com/dexlens/dexlens/system/delivery/http"
	tokensusecase "github.com/dexlens/dexlens/tokens/usecase"
)

// AnalyticsServer runs the pool analytics HTTP service.
type AnalyticsServer interface {
	GetLogger() log.Logger
	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

type analyticsServer struct {
	e       *echo.Echo
	address string

	tokens    mvc.TokensUsecase
	oracle    mvc.PriceOracle
	analyzer  mvc.AnalyzerUsecase
	precacher *routerusecase.Precacher

	config domain.Config
	logger log.Logger
}

// NewAnalyticsServer wires every usecase and handler from the config.
func NewAnalyticsServer(config domain.Config, logger log.Logger) (AnalyticsServer, error) {
	gateway, err := chain.NewGateway(config.Chain, logger)
	if err != nil {
		return nil, err
	}

	batch := chain.NewBatchCaller(gateway, config.Chain.MulticallAddress)

	appCache := cache.NewWithTTLs(
		time.Duration(config.Cache.PoolTTLSeconds)*time.Second,
		time.Duration(config.Cache.PriceTTLSeconds)*time.Second,
		time.Duration(config.Cache.TokenTTLSeconds)*time.Second,
	)

	tokensUsecase := tokensusecase.NewTokensUsecase(batch, time.Duration(config.Cache.TokenTTLSeconds)*time.Second, logger)
	oracle := pricing.NewPriceOracle(batch, config.Chain, logger)
	analyzerUsecase := poolsusecase.NewAnalyzerUsecase(batch, tokensUsecase, oracle, appCache, &config, logger)
	routerUsecase := routerusecase.NewRouterUsecase(analyzerUsecase, oracle, appCache, config.Router, logger)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	mw := middleware.InitMiddleware(config.CORS)
	e.Use(mw.CORS)
	e.Use(mw.InstrumentMiddleware)
	e.Use(mw.TraceWithParamsMiddleware("dexlens"))

	poolshttp.NewPoolsHandler(e, analyzerUsecase, oracle)
	routerhttp.NewRouterHandler(e, routerUsecase)
	systemhttp.NewSystemHandler(e, gateway, appCache, oracle)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	var precacher *routerusecase.Precacher
	if config.Router.PrecacheEnabled {
		precacher = routerusecase.NewPrecacher(routerUsecase, analyzerUsecase, config.Router, logger)
	}

	return &analyticsServer{
		e:         e,
		address:   config.ServerAddress,
		tokens:    tokensUsecase,
		oracle:    oracle,
		analyzer:  analyzerUsecase,
		precacher: precacher,
		config:    config,
		logger:    logger,
	}, nil
}

// GetLogger implements AnalyticsServer.
func (s *analyticsServer) GetLogger() log.Logger {
	return s.logger
}

// Start warms the caches and serves HTTP until the context ends.
func (s *analyticsServer) Start(ctx context.Context) error {
	s.warmUp(ctx)

	if s.precacher != nil {
		s.precacher.Start(ctx)
	}

	s.logger.Info("starting pool analytics server", zap.String("address", s.address))
	return s.e.Start(s.address)
}

// Shutdown stops the precache loop and drains the HTTP server.
func (s *analyticsServer) Shutdown(ctx context.Context) error {
	if s.precacher != nil {
		s.precacher.Stop()
	}
	return s.e.Shutdown(ctx)
}

// warmUp prefetches base-token metadata and one oracle refresh, then
// optionally pre-analyzes the base set sequentially.
func (s *analyticsServer) warmUp(ctx context.Context) {
	if !s.config.Cache.PrewarmBaseTokens {
		return
	}

	addresses := make([]common.Address, 0, len(domain.BaseTokenAddresses))
	for _, base := range domain.BaseTokenAddresses {
		addresses = append(addresses, common.HexToAddress(base))
	}
	if _, err := s.tokens.GetMany(ctx, addresses); err != nil {
		s.logger.Warn("base token prewarm failed", zap.Error(err))
	}

	if err := s.oracle.RefreshFromChain(ctx); err != nil {
		s.logger.Warn("initial price refresh failed", zap.Error(err))
	}

	if s.config.Cache.PreAnalyzeBaseTokens {
		for _, base := range domain.BaseTokenAddresses {
			if _, err := s.analyzer.AnalyzeToken(ctx, base, domain.AnalyzeOptions{}); err != nil {
				s.logger.Warn("base token pre-analysis failed",
					zap.String("token", base), zap.Error(err))
			}
		}
	}
}
