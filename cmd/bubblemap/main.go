package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/bewie03/bubblemap/holders"
	"github.com/bewie03/bubblemap/holders/config"
	"github.com/bewie03/bubblemap/pkg/blockfrost"
	"github.com/bewie03/bubblemap/pkg/logger"
)

// These values are overridden at build time using -ldflags
var (
	version = "dev"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	assetID := flag.String("asset", "", "asset id to inspect within a collection")
	noRelations := flag.Bool("no-relations", false, "skip related wallet resolution")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: bubblemap [flags] <policyID>\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Printf("bubblemap %s (%s)\n", version, date)
		return 0
	}
	if flag.NArg() != 1 {
		flag.Usage()
		return 2
	}

	// Load configuration
	cfg := config.New()

	// Logs go to stderr, the result to stdout
	log := logger.NewFromConfig(logger.Config{
		LogLevel:         cfg.LogLevel,
		LogHumanFriendly: true,
		Output:           os.Stderr,
		Service:          "bubblemap",
	})
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpClient := &http.Client{Timeout: cfg.BlockfrostHTTPTimeout}
	bf, err := blockfrost.NewClient(httpClient, cfg.BlockfrostAPIURL, cfg.BlockfrostProjectID)
	if err != nil {
		log.ErrorContext(ctx, holders.UserMessage(err), slog.Any("error", err))
		return 1
	}

	events := make(chan holders.Event, 16)
	subCloser := setupEventLogging(ctx, events, log)

	service := holders.NewService(bf,
		holders.WithLogger(log),
		holders.WithEvents(events),
		holders.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
		holders.WithPageSize(cfg.PageSize),
		holders.WithMaxHolders(cfg.MaxHolders),
		holders.WithMaxAssets(cfg.MaxAssets),
		holders.WithBatchSize(cfg.RelationBatchSize),
		holders.WithBatchDelay(cfg.RelationBatchDelay),
		holders.WithCacheSize(cfg.RelationCacheSize),
		holders.WithRelations(!*noRelations),
	)

	result, err := service.Lookup(ctx, holders.Request{PolicyID: flag.Arg(0), AssetID: *assetID})
	close(events)
	subCloser()

	if err != nil {
		log.ErrorContext(ctx, holders.UserMessage(err), slog.Any("error", err))
		return 1
	}

	if err := writeResult(os.Stdout, result); err != nil {
		log.ErrorContext(ctx, "Failed to write result", slog.Any("error", err))
		return 1
	}

	return 0
}

// writeResult prints the lookup result as indented JSON
func writeResult(w io.Writer, result *holders.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// setupEventLogging configures event handlers using slog directly
func setupEventLogging(ctx context.Context, events <-chan holders.Event, log *slog.Logger) func() {
	return holders.NewSubscriber(events,
		holders.OnLookupStarted(func(event holders.LookupStarted) {
			log.InfoContext(ctx, "Lookup started",
				slog.String("sessionID", event.SessionID.String()),
				slog.String("policyID", event.PolicyID),
			)
		}),
		holders.OnAssetsFetched(func(event holders.AssetsFetched) {
			log.InfoContext(ctx, "Assets fetched",
				slog.Int("count", event.Count),
				slog.String("mode", string(event.Mode)),
			)
		}),
		holders.OnHoldersAggregated(func(event holders.HoldersAggregated) {
			log.InfoContext(ctx, "Holders aggregated",
				slog.Int("holders", event.Holders),
				slog.String("totalSupply", event.TotalSupply),
			)
		}),
		holders.OnRelationBatchCompleted(func(event holders.RelationBatchCompleted) {
			log.InfoContext(ctx, "Related wallets batch completed",
				slog.Int("batch", event.Batch),
				slog.Int("batches", event.Batches),
				slog.Int("failed", event.Failed),
			)
		}),
		holders.OnLookupDone(func(event holders.LookupDone) {
			log.InfoContext(ctx, "Lookup completed",
				slog.Int("holders", event.Holders),
				slog.Int("links", event.Links),
				slog.Bool("relationsIncomplete", event.RelationsIncomplete),
				slog.Duration("duration", event.Duration),
			)
		}),
		holders.OnLookupFailed(func(event holders.LookupFailed) {
			log.DebugContext(ctx, "Lookup failed", slog.Any("error", event.Err))
		}),
	)
}
