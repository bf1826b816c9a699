package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/dexlens/dexlens/domain"
	"github.com/dexlens/dexlens/domain/mvc"
	"github.com/dexlens/dexlens/log"
)

// Precacher keeps routes between a curated pair set warm with a periodic
// background refresh. Cycles are single-flight: an overlapping trigger is
// a no-op.
type Precacher struct {
	router   mvc.RouterUsecase
	analyzer mvc.AnalyzerUsecase
	pairs    []string
	interval time.Duration
	logger   log.Logger

	refreshing atomic.Bool
	stopOnce   sync.Once
	stop       chan struct{}
}

// NewPrecacher creates the pre-warmer. pairs is the curated token set whose
// ordered pairs are refreshed each cycle.
func NewPrecacher(router mvc.RouterUsecase, analyzer mvc.AnalyzerUsecase, config *domain.RouterConfig, logger log.Logger) *Precacher {
	return &Precacher{
		router:   router,
		analyzer: analyzer,
		pairs:    config.PrecachePairs,
		interval: time.Duration(config.PrecacheIntervalSeconds) * time.Second,
		logger:   logger.Named("route-precache"),
		stop:     make(chan struct{}),
	}
}

// Start launches the refresh loop. The first cycle runs immediately.
func (p *Precacher) Start(ctx context.Context) {
	go func() {
		p.RunCycle(ctx)

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				p.RunCycle(ctx)
			case <-p.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop terminates the refresh loop. Safe to call more than once.
func (p *Precacher) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
}

// RunCycle refreshes every ordered pair once. Each unique token is analyzed
// in parallel first so the pair walk hits warm analyses.
func (p *Precacher) RunCycle(ctx context.Context) {
	if !p.refreshing.CompareAndSwap(false, true) {
		return
	}
	defer p.refreshing.Store(false)

	started := time.Now()

	var wg sync.WaitGroup
	for _, token := range p.pairs {
		wg.Add(1)
		go func(token string) {
			defer wg.Done()
			if _, err := p.analyzer.AnalyzeToken(ctx, token, domain.AnalyzeOptions{}); err != nil {
				p.logger.Warn("precache analysis failed", zap.String("token", token), zap.Error(err))
			}
		}(token)
	}
	wg.Wait()

	refreshed := 0
	for _, in := range p.pairs {
		for _, out := range p.pairs {
			if in == out {
				continue
			}
			if _, err := p.router.FindBestRoute(ctx, in, out, 1); err != nil {
				p.logger.Warn("precache route failed",
					zap.String("token_in", in), zap.String("token_out", out), zap.Error(err))
				continue
			}
			refreshed++
		}
	}

	p.logger.Info("route precache cycle complete",
		zap.Int("routes", refreshed),
		zap.Duration("took", time.Since(started)))
}
