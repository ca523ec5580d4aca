package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/metasearch/internal/config"
	dbRedis "github.com/kailas-cloud/metasearch/internal/db/redis"
	"github.com/kailas-cloud/metasearch/internal/domain/engine"
	logpkg "github.com/kailas-cloud/metasearch/internal/logger"
	"github.com/kailas-cloud/metasearch/internal/metrics"
	"github.com/kailas-cloud/metasearch/internal/repository/snapshot"
	chiTransport "github.com/kailas-cloud/metasearch/internal/transport/chi"
	"github.com/kailas-cloud/metasearch/internal/transport/httpengine"
	"github.com/kailas-cloud/metasearch/internal/usecase/aggregate"
	"github.com/kailas-cloud/metasearch/internal/usecase/filter"
	healthuc "github.com/kailas-cloud/metasearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/metasearch/internal/usecase/search"
	"github.com/kailas-cloud/metasearch/internal/version"
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting metasearch API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Bool("cache_enabled", cfg.Cache.Enabled),
	)

	metrics.RegisterSearchMetrics()

	registry, backends, err := buildEngines(cfg.Engines, logger)
	if err != nil {
		logger.Fatal("Failed to create engines", zap.Error(err))
	}
	logger.Info("Engines configured", zap.Strings("engines", registry.Names()))

	// Optional components stay untyped nil when off.
	var resultFilter aggregate.Filter
	if len(cfg.Filters.BlockedHosts) > 0 {
		hosts, err := filter.NewHostnames(cfg.Filters.BlockedHosts)
		if err != nil {
			logger.Fatal("Invalid host filter", zap.Error(err))
		}
		resultFilter = hosts.Accept
	}

	var (
		cache     searchuc.Cache
		cachePing healthuc.CachePinger
	)
	if cfg.Cache.Enabled {
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Username: cfg.Cache.Username,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
		})
		if err != nil {
			logger.Fatal("Failed to create cache store", zap.Error(err))
		}
		defer store.Close()

		readiness := time.Duration(cfg.Cache.ReadinessTimeout) * time.Second
		if err := store.WaitForReady(context.Background(), readiness); err != nil {
			logger.Fatal("Cache not ready", zap.Error(err))
		}
		logger.Info("Connected to cache", zap.Strings("addrs", cfg.Cache.Addrs))

		cache = snapshot.New(store, cfg.Cache.KeyPrefix, time.Duration(cfg.Cache.TTLSec)*time.Second, logger)
		cachePing = store
	}

	searchSvc := searchuc.New(
		searchuc.Config{
			EngineTimeout: time.Duration(cfg.Search.EngineTimeoutMs) * time.Millisecond,
			MaxParallel:   cfg.Search.MaxParallel,
			Breaker: searchuc.BreakerConfig{
				MaxFailures: cfg.Breaker.MaxFailures,
				Timeout:     time.Duration(cfg.Breaker.OpenTimeoutSec) * time.Second,
				Interval:    time.Duration(cfg.Breaker.IntervalSec) * time.Second,
			},
		},
		registry, backends, resultFilter, metrics.Search{}, cache, logger,
	)
	healthSvc := healthuc.New(searchSvc, cachePing)

	server := chiTransport.NewServer(searchSvc, healthSvc, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      chiTransport.NewRouter(server, cfg.Auth.APIKeys, logger),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildEngines turns the enabled engine configs into descriptors and HTTP backends.
func buildEngines(cfgs []config.EngineConfig, logger *zap.Logger) (*engine.Registry, []searchuc.Backend, error) {
	client := &http.Client{
		Transport: &http.Transport{
			MaxIdleConnsPerHost: 16,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	var (
		descriptors []engine.Engine
		backends    []searchuc.Backend
	)
	for _, ec := range cfgs {
		if ec.Disabled {
			continue
		}
		descriptors = append(descriptors, engine.Engine{
			Name:                 ec.Name,
			Weight:               ec.Weight,
			Categories:           ec.Categories,
			Paging:               ec.Paging,
			DisplayErrorMessages: ec.ShowsErrors(),
		})

		b, err := httpengine.New(&httpengine.Config{
			Name:        ec.Name,
			SearchURL:   ec.SearchURL,
			Headers:     ec.Headers,
			HTMLContent: ec.HTMLContent,
			HTTPClient:  client,
			Logger:      logger.Named(ec.Name),
		})
		if err != nil {
			return nil, nil, fmt.Errorf("engine %s: %w", ec.Name, err)
		}
		backends = append(backends, b)
	}
	return engine.NewRegistry(descriptors...), backends, nil
}
