package chain

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/dexlens/dexlens/domain"
	"github.com/dexlens/dexlens/log"
)

const (
	// failureSkipThreshold is the failure count beyond which an endpoint is
	// skipped for failureSkipWindow.
	failureSkipThreshold = 2
	failureSkipWindow    = 60 * time.Second
)

var (
	rpcFailovers = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dexlens_rpc_failovers_total",
			Help: "Total number of per-endpoint RPC failures that triggered failover.",
		},
		[]string{"endpoint"},
	)
	rpcPassesExhausted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dexlens_rpc_passes_exhausted_total",
			Help: "Total number of full endpoint passes that failed.",
		},
	)
)

func init() {
	prometheus.MustRegister(rpcFailovers)
	prometheus.MustRegister(rpcPassesExhausted)
}

// Operation is a read executed against a single endpoint handle.
type Operation func(ctx context.Context, client *rpc.Client) error

// endpoint is one chain RPC endpoint with failure accounting.
type endpoint struct {
	url    string
	masked string
	client *rpc.Client

	failureCount  int
	lastFailureAt time.Time
}

// skipped reports whether the endpoint is in its cool-off window.
func (e *endpoint) skipped(now time.Time) bool {
	return e.failureCount > failureSkipThreshold && now.Sub(e.lastFailureAt) < failureSkipWindow
}

// Gateway is an ordered set of chain endpoints with failover.
// It iterates endpoints round-robin from a rotating start; a successful
// endpoint becomes the new start.
type Gateway struct {
	mu        sync.Mutex
	endpoints []*endpoint
	start     int

	timeout    time.Duration
	maxRetries int
	backoff    time.Duration

	logger log.Logger
}

// NewGateway dials the configured endpoints. Endpoints that fail to dial are
// still registered; they accrue failures on first use.
func NewGateway(cfg *domain.ChainConfig, logger log.Logger) (*Gateway, error) {
	if len(cfg.RPCEndpoints) == 0 {
		return nil, errors.New("at least one RPC endpoint is required")
	}

	endpoints := make([]*endpoint, 0, len(cfg.RPCEndpoints))
	for _, rawURL := range cfg.RPCEndpoints {
		client, err := rpc.Dial(rawURL)
		if err != nil {
			return nil, err
		}
		endpoints = append(endpoints, &endpoint{
			url:    rawURL,
			masked: MaskEndpointURL(rawURL),
			client: client,
		})
	}

	return &Gateway{
		endpoints:  endpoints,
		timeout:    time.Duration(cfg.RPCTimeoutMs) * time.Millisecond,
		maxRetries: cfg.MaxRetries,
		backoff:    time.Duration(cfg.RetryBackoffMs) * time.Millisecond,
		logger:     logger.Named("gateway"),
	}, nil
}

// Execute runs op against the endpoint set, failing over on error.
// After all endpoints fail in one pass it sleeps a linear backoff and retries
// up to the configured number of passes, then returns AllProvidersFailedError.
func (g *Gateway) Execute(ctx context.Context, op Operation) error {
	var lastErr error

	maxRetries := g.maxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}

	for attempt := 1; attempt <= maxRetries; attempt++ {
		if err := g.executePass(ctx, op); err != nil {
			lastErr = err
		} else {
			return nil
		}

		rpcPassesExhausted.Inc()

		if attempt < maxRetries {
			backoff := g.backoff * time.Duration(attempt)
			g.logger.Warn("all endpoints failed, backing off",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.Error(lastErr))

			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return domain.AllProvidersFailedError{Attempts: maxRetries, LastError: lastErr}
}

// executePass tries every non-skipped endpoint once, starting at the
// rotating start index.
func (g *Gateway) executePass(ctx context.Context, op Operation) error {
	g.mu.Lock()
	start := g.start
	count := len(g.endpoints)
	g.mu.Unlock()

	now := time.Now()
	var lastErr error

	for i := 0; i < count; i++ {
		idx := (start + i) % count
		ep := g.endpoints[idx]

		g.mu.Lock()
		skip := ep.skipped(now)
		g.mu.Unlock()
		if skip {
			continue
		}

		callCtx := ctx
		var cancel context.CancelFunc
		if g.timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, g.timeout)
		}

		err := op(callCtx, ep.client)
		if cancel != nil {
			cancel()
		}

		if err == nil {
			g.mu.Lock()
			ep.failureCount = 0
			ep.lastFailureAt = time.Time{}
			g.start = idx
			g.mu.Unlock()
			return nil
		}

		lastErr = err
		rpcFailovers.WithLabelValues(ep.masked).Inc()

		g.mu.Lock()
		ep.failureCount++
		ep.lastFailureAt = time.Now()
		g.mu.Unlock()

		g.logger.Warn("endpoint call failed, failing over",
			zap.String("endpoint", ep.masked),
			zap.Error(err))

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	if lastErr == nil {
		lastErr = errors.New("all endpoints skipped by failure accounting")
	}
	return lastErr
}

// EndpointCount returns the number of configured endpoints.
func (g *Gateway) EndpointCount() int {
	return len(g.endpoints)
}

// EndpointSummary is the health view of one endpoint, URL masked.
type EndpointSummary struct {
	URL          string `json:"url"`
	FailureCount int    `json:"failureCount"`
	Skipped      bool   `json:"skipped"`
}

// EndpointSummaries reports the failure accounting of every endpoint.
func (g *Gateway) EndpointSummaries() []EndpointSummary {
	now := time.Now()

	g.mu.Lock()
	defer g.mu.Unlock()

	summaries := make([]EndpointSummary, 0, len(g.endpoints))
	for _, ep := range g.endpoints {
		summaries = append(summaries, EndpointSummary{
			URL:          ep.masked,
			FailureCount: ep.failureCount,
			Skipped:      ep.skipped(now),
		})
	}
	return summaries
}

// MaskEndpointURL hides path segments that commonly embed API keys,
// preserving the scheme and host for logs.
func MaskEndpointURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return "***"
	}
	masked := parsed.Scheme + "://" + parsed.Host
	if parsed.Path != "" && parsed.Path != "/" {
		masked += "/***"
	}
	return masked
}
