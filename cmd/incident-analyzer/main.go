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

	"github.com/opsvista/incident-analyzer/internal/api"
	"github.com/opsvista/incident-analyzer/internal/cache"
	"github.com/opsvista/incident-analyzer/internal/config"
	"github.com/opsvista/incident-analyzer/internal/engine"
	"github.com/opsvista/incident-analyzer/internal/enrich"
	"github.com/opsvista/incident-analyzer/internal/llm"
	"github.com/opsvista/incident-analyzer/internal/metrics"
	"github.com/opsvista/incident-analyzer/internal/service"
	"github.com/opsvista/incident-analyzer/internal/utils"
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

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	logger.Info("starting incident-analyzer", slog.String("address", cfg.Server.Address))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	var cacheProvider cache.Provider = cache.NoopProvider{}
	var redisCloser cache.Provider
	if cfg.Cache.Enabled && cfg.Cache.Addr != "" {
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
			logger.Warn("redis cache unavailable", slog.Any("error", err))
		} else {
			cacheProvider = provider
			redisCloser = provider
		}
	}
	if redisCloser != nil {
		defer redisCloser.Close()
	}

	modelClient := llm.NewHTTPClient(cfg.Model.BaseURL, cfg.Model.APIKey, cfg.Model.Model, cfg.Model.Timeout)

	var searcher enrich.Searcher
	if cfg.Enrichment.Endpoint != "" {
		searcher = enrich.NewHTTPClient(cfg.Enrichment.Endpoint, cfg.Enrichment.APIKey, cfg.Enrichment.Timeout, cacheProvider, cfg.Enrichment.TTL)
	}

	runbookEngine, err := engine.NewRunbookEngine(cfg.Runbook.Path, logger)
	if err != nil {
		logger.Error("failed to load runbook rule pack", slog.Any("error", err))
		os.Exit(1)
	}

	pipeline := engine.NewPipeline(logger, modelClient, searcher, runbookEngine)
	trigger := engine.NewTrigger(nil, logger)
	analyzerService := service.NewAnalyzerService(logger, pipeline, trigger)

	handlers := api.NewHandlers(logger, analyzerService)
	server, err := api.NewServer(cfg.Server, handlers.Routes())
	if err != nil {
		logger.Error("failed to create HTTP server", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	go func() {
		if serveErr := server.Start(); serveErr != nil {
			logger.Error("HTTP server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	server.Shutdown(shutdownCtx)

	if metricsServer != nil {
		metricsCtx, cancelMetrics := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(metricsCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
		cancelMetrics()
	}

	// Give remaining goroutines time to finish logging
	time.Sleep(100 * time.Millisecond)
	logger.Info("incident-analyzer stopped")
}
