package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryotel "github.com/getsentry/sentry-go/otel"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.uber.org/zap"

	"github.com/dexlens/dexlens/domain"
	"github.com/dexlens/dexlens/log"
)

// sampledRoutes are the endpoints whose spans are forwarded when tracing
// is enabled.
var sampledRoutes = map[string]bool{
	"/analyze/:token":                  true,
	"/best-pool/:token":                true,
	"/route":                           true,
	"/route/:tokenIn/:tokenOut":        true,
	"/swap-pool/:token":                true,
	"/smart-recommend/:token":          true,
	"/trade-scenarios/:token":          true,
	"/split-trade/:token":              true,
	"/pair/:tokenA/:tokenB":            true,
	"/pools/:token":                    true,
	"/quote":                           true,
	"/router/graph/:tokenIn/:tokenOut": true,
}

func main() {
	configPath := flag.String("config", "config.json", "config file location")
	hostName := flag.String("host", "dexlens", "the name of the host")
	debug := flag.Bool("debug", false, "debug mode")
	flag.Parse()

	viper.SetConfigFile(*configPath)
	if err := viper.ReadInConfig(); err != nil {
		panic(err)
	}

	config := domain.DefaultConfig()
	if err := viper.Unmarshal(&config); err != nil {
		panic(err)
	}
	if *debug {
		config.LoggerLevel = "debug"
		config.LoggerIsProduction = false
	}

	// Handle SIGINT and SIGTERM signals to initiate shutdown
	exitChan := make(chan os.Signal, 1)
	signal.Notify(exitChan, os.Interrupt, syscall.SIGTERM)

	defer func() {
		if err := recover(); err != nil {
			fmt.Println("panic during startup:", err)
			// give the logger and sentry a moment to flush
			time.Sleep(1 * time.Second)
			exitChan <- syscall.SIGTERM
		}
	}()

	if config.OTEL != nil && config.OTEL.DSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:                config.OTEL.DSN,
			SampleRate:         config.OTEL.SampleRate,
			EnableTracing:      config.OTEL.EnableTracing,
			ProfilesSampleRate: config.OTEL.ProfilesSampleRate,
			Environment:        config.OTEL.Environment,
			TracesSampler: sentry.TracesSampler(func(ctx sentry.SamplingContext) float64 {
				if sampledRoutes[ctx.Span.Name] {
					return 1.0
				}
				return 0.0
			}),
		})
		if err != nil {
			panic(err)
		}
		defer sentry.Flush(2 * time.Second)

		initOTELTracer(*hostName)
	}

	logger, err := log.NewLogger(config.LoggerIsProduction, config.LoggerFilename, config.LoggerLevel)
	if err != nil {
		panic(fmt.Errorf("error while creating logger: %w", err))
	}
	logger.Info("starting pool analytics service")

	server, err := NewAnalyticsServer(config, logger)
	if err != nil {
		panic(err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		<-exitChan
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", zap.Error(err))
			os.Exit(1)
		}
		os.Exit(0)
	}()

	if err := server.Start(ctx); err != nil {
		logger.Error("server stopped", zap.Error(err))
		// delay so log sinks flush before the process exits
		time.Sleep(1 * time.Second)
		os.Exit(1)
	}
}

// initOTELTracer installs a tracer provider that prints spans to stdout and
// forwards them to sentry.
func initOTELTracer(hostName string) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		panic(err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(hostName),
		),
	)
	if err != nil {
		panic(err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(sentryotel.NewSentrySpanProcessor()),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(sentryotel.NewSentryPropagator())
}
