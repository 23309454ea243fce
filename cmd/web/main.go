package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oklog/run"

	"github.com/bewie03/bubblemap/holders"
	lookupconfig "github.com/bewie03/bubblemap/holders/config"
	"github.com/bewie03/bubblemap/pkg/blockfrost"
	"github.com/bewie03/bubblemap/pkg/httpkit"
	"github.com/bewie03/bubblemap/pkg/logger"
	"github.com/bewie03/bubblemap/pkg/metrics"
	"github.com/bewie03/bubblemap/web/config"
	"github.com/bewie03/bubblemap/web/handler"
)

var (
	version = "dev"
	date    = "unknown"
)

func main() {
	// Load configuration
	cfg := config.New()
	lookupCfg := lookupconfig.New()

	// Initialize logger and set as default
	log := logger.NewFromConfig(logger.Config{
		LogLevel:         cfg.LogLevel,
		LogHumanFriendly: cfg.LogHumanFriendly,
		Service:          "bubblemap-web",
		Version:          version,
	})
	slog.SetDefault(log)

	// Prepare context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.InfoContext(ctx, "Bubblemap Web API Service starting",
		slog.String("version", version),
		slog.String("date", date),
	)

	m := metrics.New()

	// HTTP client & blockfrost client
	httpClient := &http.Client{Timeout: lookupCfg.BlockfrostHTTPTimeout}
	bf, err := blockfrost.NewClient(httpClient, lookupCfg.BlockfrostAPIURL, lookupCfg.BlockfrostProjectID,
		blockfrost.WithRequestObserver(m.ObserveRequest),
	)
	if err != nil {
		log.ErrorContext(ctx, "Failed to create Blockfrost client", slog.Any("error", err))
		os.Exit(1)
	}

	// Create lookup service
	service := holders.NewService(bf,
		holders.WithLogger(log),
		holders.WithRateLimit(lookupCfg.RateLimitRPS, lookupCfg.RateLimitBurst),
		holders.WithWaitObserver(m.ObserveWait),
		holders.WithPageSize(lookupCfg.PageSize),
		holders.WithMaxHolders(lookupCfg.MaxHolders),
		holders.WithMaxAssets(lookupCfg.MaxAssets),
		holders.WithBatchSize(lookupCfg.RelationBatchSize),
		holders.WithBatchDelay(lookupCfg.RelationBatchDelay),
		holders.WithCacheSize(lookupCfg.RelationCacheSize),
		holders.WithBatchObserver(func(s holders.BatchStats) {
			m.RecordRelationBatch(s.Failed)
		}),
	)
	finder := newMeteredFinder(service, m, cfg.LookupTimeout)

	// Create HTTP server
	mux := http.NewServeMux()
	handler.NewHolders(finder, log, cfg.AllowedOrigins...).AddRoutes(mux)
	handler.NewSystem(version, m.Handler()).AddRoutes(mux)

	// Wrap with CORS and logging middleware
	loggedMux := logger.NewMiddleware(log)(httpkit.CORS(cfg.AllowedOrigins...)(mux))

	addr := net.JoinHostPort(cfg.HTTPHost, cfg.HTTPPort)
	server := &http.Server{
		Addr:              addr,
		Handler:           loggedMux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	var g run.Group

	// HTTP server
	g.Add(func() error {
		log.InfoContext(ctx, "Server started", slog.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen on %s: %w", addr, err)
		}
		return nil
	}, func(error) {
		log.InfoContext(ctx, "Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.ErrorContext(ctx, "Server forced to shutdown", slog.Any("error", err))
		}
	})

	// Signals
	g.Add(func() error {
		<-ctx.Done()
		return ctx.Err()
	}, func(error) {
		stop()
	})

	if err := g.Run(); err != nil && !errors.Is(err, context.Canceled) {
		log.ErrorContext(ctx, "Server failed", slog.Any("error", err))
		os.Exit(1)
	}

	log.InfoContext(ctx, "Server exited gracefully")
}
