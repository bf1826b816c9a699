package domain

// Config defines the config for the pool analytics service.
type Config struct {
	// Defines the web server configuration.
	ServerAddress string `mapstructure:"server-address"`

	// Defines the logger configuration.
	LoggerFilename     string `mapstructure:"logger-filename"`
	LoggerIsProduction bool   `mapstructure:"logger-is-production"`
	LoggerLevel        string `mapstructure:"logger-level"`

	Chain    *ChainConfig    `mapstructure:"chain"`
	Cache    *CacheConfig    `mapstructure:"cache"`
	Analyzer *AnalyzerConfig `mapstructure:"analyzer"`
	Router   *RouterConfig   `mapstructure:"router"`

	CORS *CORSConfig `mapstructure:"cors"`
	OTEL *OTELConfig `mapstructure:"otel"`
}

// CORSConfig defines the headers returned on every response.
type CORSConfig struct {
	AllowedHeaders string `mapstructure:"allowed-headers"`
	AllowedMethods string `mapstructure:"allowed-methods"`
	AllowedOrigin  string `mapstructure:"allowed-origin"`
}

// ChainConfig defines the chain access configuration.
type ChainConfig struct {
	// RPCEndpoints is the ordered list of JSON-RPC endpoints. The gateway
	// fails over across them in order, rotating the start on success.
	RPCEndpoints []string `mapstructure:"rpc-endpoints"`
	// RPCTimeoutMs is the per-call timeout in milliseconds.
	RPCTimeoutMs int `mapstructure:"rpc-timeout-ms"`
	// MaxRetries is the number of full passes over the endpoint set.
	MaxRetries int `mapstructure:"max-retries"`
	// RetryBackoffMs is the linear backoff base between passes.
	RetryBackoffMs int `mapstructure:"retry-backoff-ms"`

	// MulticallAddress is the chain's aggregation contract.
	MulticallAddress string `mapstructure:"multicall-address"`
	// V2FactoryAddress is the constant-product factory.
	V2FactoryAddress string `mapstructure:"v2-factory-address"`
	// V3FactoryAddress is the concentrated-liquidity factory.
	V3FactoryAddress string `mapstructure:"v3-factory-address"`

	// WrapperStablePool is the V3 pool used to derive the wrapper USD price.
	WrapperStablePool string `mapstructure:"wrapper-stable-pool"`
	// EcosystemWrapperPool is the V3 pool used to derive the ecosystem
	// token USD price.
	EcosystemWrapperPool string `mapstructure:"ecosystem-wrapper-pool"`
}

// CacheConfig defines TTLs and warmers for the in-memory cache.
type CacheConfig struct {
	// PoolTTLSeconds applies to pool entries and full analysis entries.
	PoolTTLSeconds int `mapstructure:"pool-ttl-seconds"`
	// PriceTTLSeconds applies to per-token price entries.
	PriceTTLSeconds int `mapstructure:"price-ttl-seconds"`
	// TokenTTLSeconds applies to token metadata entries.
	TokenTTLSeconds int `mapstructure:"token-ttl-seconds"`

	// PrewarmBaseTokens prefetches base token metadata and one oracle
	// refresh at startup.
	PrewarmBaseTokens bool `mapstructure:"prewarm-base-tokens"`
	// PreAnalyzeBaseTokens additionally runs a sequential AnalyzeToken over
	// the base set at startup.
	PreAnalyzeBaseTokens bool `mapstructure:"pre-analyze-base-tokens"`
}

// AnalyzerConfig defines analysis behavior.
type AnalyzerConfig struct {
	// DefaultTradeUSD is the trade size assumed for scoring when the caller
	// does not provide one.
	DefaultTradeUSD float64 `mapstructure:"default-trade-usd"`
	// FastModeBases limits discovery to the top-N bases in fast mode.
	FastModeBases int `mapstructure:"fast-mode-bases"`
	// SequentialChunkSize bounds the per-pool fallback fetch.
	SequentialChunkSize int `mapstructure:"sequential-chunk-size"`
}

// RouterConfig defines route search and pre-warm behavior.
type RouterConfig struct {
	// PrecacheEnabled turns on the background route pre-warmer.
	PrecacheEnabled bool `mapstructure:"precache-enabled"`
	// PrecacheIntervalSeconds is the refresh loop interval.
	PrecacheIntervalSeconds int `mapstructure:"precache-interval-seconds"`
	// RouteCacheExpirySeconds is the TTL of cached route plans.
	RouteCacheExpirySeconds int `mapstructure:"route-cache-expiry-seconds"`
	// PrecachePairs is the curated set of token addresses whose ordered
	// pairs are refreshed by the pre-warmer.
	PrecachePairs []string `mapstructure:"precache-pairs"`
}

// OTELConfig defines the tracing and error-reporting configuration.
type OTELConfig struct {
	DSN                string  `mapstructure:"dsn"`
	SampleRate         float64 `mapstructure:"sample-rate"`
	EnableTracing      bool    `mapstructure:"enable-tracing"`
	ProfilesSampleRate float64 `mapstructure:"profiles-sample-rate"`
	Environment        string  `mapstructure:"environment"`
}

// DefaultConfig returns the BNB Smart Chain defaults.
func DefaultConfig() Config {
	return Config{
		ServerAddress:      ":9092",
		LoggerIsProduction: true,
		LoggerLevel:        "info",
		Chain: &ChainConfig{
			RPCEndpoints: []string{
				"https://bsc-dataseed.binance.org",
				"https://bsc-dataseed1.defibit.io",
				"https://rpc.ankr.com/bsc",
			},
			RPCTimeoutMs:   5000,
			MaxRetries:     3,
			RetryBackoffMs: 500,

			MulticallAddress: "0xcA11bde05977b3631167028862bE2a173976CA11",
			V2FactoryAddress: "0xcA143Ce32Fe78f1f7019d7d551a6402fC5350c73",
			V3FactoryAddress: "0x0BFbCF9fa4f9C56B0F40a671Ad40E0805A091865",

			WrapperStablePool:    "0x36696169C63e42cd08ce11f5deeBbCeBae652050",
			EcosystemWrapperPool: "0x133B3D95bAD5405d14d53473671200e9342896BF",
		},
		Cache: &CacheConfig{
			PoolTTLSeconds:    300,
			PriceTTLSeconds:   30,
			TokenTTLSeconds:   3600,
			PrewarmBaseTokens: true,
		},
		Analyzer: &AnalyzerConfig{
			DefaultTradeUSD:     1000,
			FastModeBases:       3,
			SequentialChunkSize: 8,
		},
		CORS: &CORSConfig{
			AllowedHeaders: "Origin, Accept, Content-Type, X-Requested-With",
			AllowedMethods: "GET, POST, OPTIONS",
			AllowedOrigin:  "*",
		},
		Router: &RouterConfig{
			PrecacheEnabled:         true,
			PrecacheIntervalSeconds: 600,
			RouteCacheExpirySeconds: 600,
			PrecachePairs: []string{
				WrapperAddress,
				USDTAddress,
				EcosystemAddress,
			},
		},
	}
}
