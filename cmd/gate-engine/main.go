package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/miradorstack/mirador-gate/internal/api"
	"github.com/miradorstack/mirador-gate/internal/cache"
	"github.com/miradorstack/mirador-gate/internal/config"
	"github.com/miradorstack/mirador-gate/internal/engine"
	"github.com/miradorstack/mirador-gate/internal/history"
	"github.com/miradorstack/mirador-gate/internal/metrics"
	"github.com/miradorstack/mirador-gate/internal/models"
	"github.com/miradorstack/mirador-gate/internal/patterns"
	"github.com/miradorstack/mirador-gate/internal/policy"
	"github.com/miradorstack/mirador-gate/internal/repo"
	"github.com/miradorstack/mirador-gate/internal/services"
	"github.com/miradorstack/mirador-gate/internal/utils"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	logger.Info("starting mirador-gate",
		slog.String("grpc_address", cfg.Server.Address),
		slog.String("http_address", cfg.Server.HTTPAddress),
	)

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var cacheProvider cache.Provider = cache.NewMemoryProvider()
	if cfg.Cache.Enabled {
		provider, err := cache.NewRedisProvider(cache.RedisConfig{
			Addr:         cfg.Cache.Addr,
			Username:     cfg.Cache.Username,
			Password:     cfg.Cache.Password,
			DB:           cfg.Cache.DB,
			DialTimeout:  cfg.Cache.DialTimeout,
			ReadTimeout:  cfg.Cache.ReadTimeout,
			WriteTimeout: cfg.Cache.WriteTimeout,
			MaxRetries:   cfg.Cache.MaxRetries,
			TLS:          cfg.Cache.TLS,
		})
		if err != nil {
			logger.Warn("redis cache unavailable, using in-process cache", slog.Any("error", err))
		} else {
			cacheProvider = provider
		}
	}
	defer cacheProvider.Close()

	policyStore, err := policy.NewStore(cfg.Policy.Path, utils.Component(logger, "policy"))
	if err != nil {
		logger.Error("failed to load policy", slog.String("path", cfg.Policy.Path), slog.Any("error", err))
		os.Exit(1)
	}
	if cfg.Policy.Watch && cfg.Policy.Path != "" {
		watcher := policy.NewWatcher(policyStore, cfg.Policy.Debounce, utils.Component(logger, "policy.watcher"))
		go func() {
			if err := watcher.Run(ctx); err != nil {
				logger.Warn("policy watcher stopped", slog.Any("error", err))
			}
		}()
	}

	// Interface-typed so a disabled component stays a true nil.
	var registry engine.Registry
	if cfg.Clients.Registry.BaseURL != "" {
		registry = repo.NewRegistryClient(
			cfg.Clients.Registry.BaseURL,
			cfg.Clients.Registry.UnitsPath,
			cfg.Clients.Registry.ReportsPath,
			cfg.Clients.Registry.Timeout,
			cacheProvider,
			cfg.Cache.UnitsTTL,
			utils.Component(logger, "registry"),
		)
	} else {
		logger.Warn("registry base URL not configured; requests must carry report and units")
	}

	var (
		recorder    engine.Recorder
		historyRepo services.HistoryRepo
	)
	if cfg.History.Enabled {
		store, err := history.NewSQLiteStore(cfg.History.Path, utils.Component(logger, "history"))
		if err != nil {
			logger.Error("failed to open decision history", slog.String("path", cfg.History.Path), slog.Any("error", err))
			os.Exit(1)
		}
		defer store.Close()
		recorder, historyRepo = store, store

		scheduler := history.NewScheduler(store, cfg.History.PruneSchedule, cfg.History.Retention, logger)
		if err := scheduler.Start(ctx); err != nil {
			logger.Error("failed to start retention scheduler", slog.Any("error", err))
			os.Exit(1)
		}
		defer scheduler.Stop()
	}

	gate := engine.NewGate(
		utils.Component(logger, "gate"),
		policyStore,
		registry,
		recorder,
		cacheProvider,
		cfg.Cache.DecisionTTL,
	)

	miner := patterns.NewMiner(logger, patterns.StoreFunc(func(ctx context.Context, tenantID string, mined []models.BlockingPattern) error {
		for _, p := range mined {
			metrics.ObserveUnitDenyRate(tenantID, p.Unit, p.DenyRate)
		}
		return nil
	}))

	gateService := services.NewGateService(logger, gate, policyStore, historyRepo, miner, cfg.History.HotspotSample)

	var grpcServer *api.Server
	if cfg.Server.Address != "" {
		grpcServer, err = api.NewServer(cfg.Server, services.NewGateServer(gateService, logger))
		if err != nil {
			logger.Error("failed to create gRPC server", slog.Any("error", err))
			os.Exit(1)
		}
		go func() {
			logger.Info("gRPC server listening", slog.String("address", grpcServer.Address()))
			if serveErr := grpcServer.Start(); serveErr != nil {
				logger.Error("gRPC server exited", slog.Any("error", serveErr))
				stop()
			}
		}()
	}

	var httpServer *http.Server
	if cfg.Server.HTTPAddress != "" {
		httpServer = api.NewHTTPServer(cfg.Server.HTTPAddress, api.NewRouter(gateService, utils.Component(logger, "http")))
		go func() {
			logger.Info("HTTP server listening", slog.String("address", cfg.Server.HTTPAddress))
			if err := api.ServeHTTP(httpServer); err != nil {
				logger.Error("HTTP server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := api.ServeHTTP(metricsServer); err != nil {
				logger.Error("metrics server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()

	if grpcServer != nil {
		grpcServer.Shutdown(shutdownCtx)
	}
	for _, srv := range []*http.Server{httpServer, metricsServer} {
		if srv == nil {
			continue
		}
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("http shutdown", slog.String("address", srv.Addr), slog.Any("error", err))
		}
	}

	logger.Info("mirador-gate stopped")
}
