package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	httpadapter "github.com/couchcryptid/agalert-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/agalert-service/internal/adapter/kafka"
	"github.com/couchcryptid/agalert-service/internal/adapter/openai"
	"github.com/couchcryptid/agalert-service/internal/adapter/openmeteo"
	"github.com/couchcryptid/agalert-service/internal/catalog"
	"github.com/couchcryptid/agalert-service/internal/config"
	"github.com/couchcryptid/agalert-service/internal/domain"
	"github.com/couchcryptid/agalert-service/internal/observability"
	"github.com/couchcryptid/agalert-service/internal/pipeline"
	"github.com/couchcryptid/agalert-service/internal/render"
	"github.com/couchcryptid/agalert-service/internal/scheduler"
)

// readiness is ready when every checker is.
type readiness []sharedobs.ReadinessChecker

func (r readiness) CheckReadiness(ctx context.Context) error {
	for _, c := range r {
		if err := c.CheckReadiness(ctx); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	cat, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		logger.Error("failed to load catalog", "error", err)
		os.Exit(1)
	}
	logger.Info("catalog loaded", "districts", len(cat.ListDistricts()), "crops", len(cat.CropIDs()))

	client := openmeteo.NewClient(cfg.ForecastBaseURL, cfg.ForecastTimeout, metrics, logger)
	fetcher := openmeteo.NewCachedFetcher(client, cfg.ForecastCacheSize, cfg.ForecastCacheTTL, metrics)

	// Narrative enhancement is feature-flagged via AI_ENABLED / OPENAI_API_KEY.
	var enhancer domain.Enhancer
	if cfg.AIEnabled {
		enhancer = openai.NewEnhancer(openai.Config{
			APIKey:        cfg.OpenAIKey,
			Model:         cfg.OpenAIModel,
			BaseURL:       cfg.OpenAIBaseURL,
			RatePerSecond: cfg.AIRateLimit,
		}, metrics, logger)
		metrics.EnhancementEnabled.Set(1)
		logger.Info("ai enhancement enabled", "model", cfg.OpenAIModel, "timeout", cfg.AITimeout)
	} else {
		logger.Info("ai enhancement disabled")
	}

	svc, err := pipeline.NewService(cat, fetcher, render.New(render.DefaultLimits()), pipeline.ServiceConfig{
		Enhancer:    enhancer,
		DefaultDays: cfg.ForecastDays,
		AITimeout:   cfg.AITimeout,
	}, metrics, logger)
	if err != nil {
		logger.Error("failed to build alert service", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	var closers []func() error
	ready := readiness{svc}
	var loader pipeline.BatchLoader = pipeline.LogLoader{Logger: logger}

	if cfg.KafkaEnabled {
		reader := kafkaadapter.NewReader(cfg, logger)
		writer := kafkaadapter.NewWriter(cfg, logger)
		closers = append(closers, reader.Close, writer.Close)
		loader = writer

		p := pipeline.New(reader, pipeline.NewTransformer(svc), writer, logger, metrics, cfg.BatchSize)
		ready = append(ready, p)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := p.Run(ctx); err != nil {
				logger.Error("pipeline error", "error", err)
			}
		}()
	} else {
		logger.Info("kafka pipeline disabled")
	}

	if cfg.BroadcastSchedule != "" {
		b := pipeline.NewBroadcaster(svc, loader, cat.ListDistricts(), pipeline.BroadcastConfig{
			Districts: cfg.BroadcastDistricts,
			Channels:  cfg.BroadcastChannels,
			Days:      cfg.ForecastDays,
		}, metrics, logger)

		sched := scheduler.New(cfg.BroadcastTimeout, logger)
		if err := sched.Register("district-broadcast", cfg.BroadcastSchedule, func(ctx context.Context) error {
			_, err := b.Run(ctx)
			return err
		}); err != nil {
			logger.Error("failed to schedule broadcast", "error", err)
			os.Exit(1)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = sched.Run(ctx)
		}()
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, svc, ready, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	wg.Wait()
	for _, c := range closers {
		if err := c(); err != nil {
			logger.Error("kafka close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default()
	}
	c, err := catalog.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}
