package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tc.com/price-oracle/pkg/config"
	"tc.com/price-oracle/pkg/logging"
	"tc.com/price-oracle/pkg/metrics"
	"tc.com/price-oracle/pkg/server/aggregator"
	"tc.com/price-oracle/pkg/server/api"
	"tc.com/price-oracle/pkg/server/sources"
	"tc.com/price-oracle/pkg/version"
)

var (
	configFile = flag.String("config", "config/config.yaml", "Path to configuration file")
	showVer    = flag.Bool("version", false, "Show version and exit")
)

func main() {
	flag.Parse()

	if *showVer {
		fmt.Printf("price-oracle version %s\n", version.Version)
		os.Exit(0)
	}

	// Load configuration
	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Validate configuration
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logging
	logger, err := logging.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetGlobal(logger)

	logger.Info("Starting price-oracle", "version", version.Version)

	// Initialize metrics
	if cfg.Metrics.Enabled {
		metrics.Init()
		go func() {
			logger.Info("Starting metrics server", "addr", cfg.Metrics.Addr)
			if err := metrics.ServeHTTP(cfg.Metrics.Addr); err != nil {
				logger.Error("Metrics server failed", "error", err)
			}
		}()
	}

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- runServer(ctx, cfg, logger)
	}()

	// Wait for shutdown signal or error
	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", "signal", sig.String())
		cancel()
	case err := <-errChan:
		if err != nil {
			logger.Error("Server failed", "error", err)
			cancel()
		}
	}

	logger.Info("Shutdown complete")
}

func runServer(ctx context.Context, cfg *config.Config, logger *logging.Logger) error {
	// The feed hub backs every adapter; publishers push into it through the
	// ingestion API.
	feed := sources.NewMemFeed()

	registry := aggregator.NewRegistry()
	cache := aggregator.NewCache()

	order := make([]sources.SourceID, 0, len(cfg.PriorityOrder))
	for _, entry := range cfg.PriorityOrder {
		order = append(order, sources.SourceID(entry))
	}
	priority := aggregator.NewPriorityList(order)

	// Wire adapters: one instance per (adapter, source) pair, stored under an
	// opaque reference that the registry resolves at query time.
	adapters := make(map[string]sources.Adapter)
	for _, instrument := range cfg.Instruments {
		for _, entry := range instrument.Sources {
			source := sources.SourceID(entry.Source)
			ref := entry.Adapter + ":" + entry.Source

			if _, ok := adapters[ref]; !ok {
				adapterCfg := map[string]interface{}{
					"logger": logger,
					"source": source,
				}
				switch entry.Adapter {
				case "direct":
					adapterCfg["feed"] = feed.DirectView(source)
				case "registry":
					adapterCfg["feed"] = feed.RoundView(source)
				case "synthetic":
					adapterCfg["provider"] = cache
				}

				adapter, err := sources.Create(entry.Adapter, adapterCfg)
				if err != nil {
					return fmt.Errorf("failed to create adapter %s: %w", ref, err)
				}
				adapters[ref] = adapter
				logger.Info("Created adapter", "ref", ref)
			}

			if err := registry.Configure(instrument.Symbol, source, ref, entry.WeightBPS, entry.MaxStaleness.ToDuration()); err != nil {
				return fmt.Errorf("failed to configure %s/%s: %w", instrument.Symbol, source, err)
			}
			logger.Info("Configured source",
				"instrument", instrument.Symbol, "source", source,
				"weight_bps", entry.WeightBPS, "max_staleness", entry.MaxStaleness.ToDuration())
		}
	}

	params := aggregator.Params{
		MinSources:       cfg.Aggregation.MinSources,
		DefaultStaleness: cfg.Aggregation.DefaultStaleness.ToDuration(),
		QueryTimeout:     cfg.Aggregation.QueryTimeout.ToDuration(),
	}

	engine := aggregator.NewEngine(registry, priority, cache, adapters, params, logger)

	var acl aggregator.AccessController
	if len(cfg.Access.Admins) > 0 || len(cfg.Access.Operators) > 0 {
		acl = aggregator.NewStaticACL(cfg.Access.Admins, cfg.Access.Operators)
	} else {
		logger.Warn("No access lists configured, all callers are allowed")
		acl = aggregator.AllowAll{}
	}

	service := aggregator.NewService(engine, registry, priority, acl, params, logger)

	// Start HTTP server
	server := api.NewServer(cfg.Server.HTTP.Addr, service, feed, logger)

	// Start WebSocket server if enabled
	var wsServer *api.WebSocketServer
	if cfg.Server.WebSocket.Enabled {
		wsServer = api.NewWebSocketServer(cfg.Server.WebSocket.Addr, logger)
		server.SetWebSocketServer(wsServer)

		go func() {
			if err := wsServer.Start(ctx); err != nil {
				logger.Error("WebSocket server error", "error", err)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Stop(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "error", err)
		}
		if wsServer != nil {
			wsServer.Stop()
		}
	}()

	return server.Start()
}
