package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/agalert-service/internal/domain"
	"github.com/couchcryptid/agalert-service/internal/observability"
)

const broadcastConcurrency = 4

// BroadcastConfig selects what a scheduled broadcast covers.
type BroadcastConfig struct {
	// Districts to alert; empty means every district in the catalog.
	Districts []string
	Channels  []string
	Days      int
}

// BroadcastReport summarizes one broadcast run.
type BroadcastReport struct {
	Published int
	Failed    map[string]error
}

// Broadcaster generates district-wide alerts for many districts and publishes
// them in one batch.
type Broadcaster struct {
	generator AlertGenerator
	loader    BatchLoader
	districts []string
	channels  []string
	days      int
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// NewBroadcaster creates a Broadcaster. allDistricts is used when cfg names none.
func NewBroadcaster(generator AlertGenerator, loader BatchLoader, allDistricts []string, cfg BroadcastConfig, metrics *observability.Metrics, logger *slog.Logger) *Broadcaster {
	districts := cfg.Districts
	if len(districts) == 0 {
		districts = allDistricts
	}
	return &Broadcaster{
		generator: generator,
		loader:    loader,
		districts: append([]string(nil), districts...),
		channels:  append([]string(nil), cfg.Channels...),
		days:      cfg.Days,
		metrics:   metrics,
		logger:    logger,
	}
}

// Run generates an alert per district and publishes the successes. A district
// that fails is reported and skipped. Run returns an error only when nothing
// could be published.
func (b *Broadcaster) Run(ctx context.Context) (BroadcastReport, error) {
	var (
		mu     sync.Mutex
		events []domain.OutputEvent
		report = BroadcastReport{Failed: make(map[string]error)}
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(broadcastConcurrency)
	for _, district := range b.districts {
		g.Go(func() error {
			ev, err := b.one(gctx, district)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed[district] = err
				return nil
			}
			events = append(events, ev)
			return nil
		})
	}
	_ = g.Wait()

	if len(events) == 0 {
		b.metrics.BroadcastRuns.WithLabelValues("error").Inc()
		return report, fmt.Errorf("broadcast: no alerts generated for %d districts", len(b.districts))
	}
	if err := b.loader.LoadBatch(ctx, events); err != nil {
		b.metrics.BroadcastRuns.WithLabelValues("error").Inc()
		return report, fmt.Errorf("broadcast: publish: %w", err)
	}
	report.Published = len(events)

	outcome := "success"
	if len(report.Failed) > 0 {
		outcome = "partial"
	}
	b.metrics.BroadcastRuns.WithLabelValues(outcome).Inc()
	b.logger.Info("broadcast completed",
		"published", report.Published,
		"failed", len(report.Failed),
	)
	return report, nil
}

func (b *Broadcaster) one(ctx context.Context, district string) (domain.OutputEvent, error) {
	result, err := b.generator.GenerateAlert(ctx, AlertRequest{
		District: district,
		Days:     b.days,
		Channels: b.channels,
	})
	if err != nil {
		b.logger.Warn("broadcast alert failed", "district", district, "error", err)
		return domain.OutputEvent{}, err
	}
	return EncodeResult(result)
}

// LogLoader is a BatchLoader that only logs what it would publish. It stands
// in for the Kafka writer when Kafka is disabled.
type LogLoader struct {
	Logger *slog.Logger
}

func (l LogLoader) LoadBatch(ctx context.Context, events []domain.OutputEvent) error {
	if l.Logger == nil {
		return errors.New("log loader has no logger")
	}
	for _, ev := range events {
		l.Logger.InfoContext(ctx, "alert ready",
			"alert_id", ev.Headers["alert_id"],
			"district", ev.Headers["district"],
			"severity", ev.Headers["severity"],
			"bytes", len(ev.Value),
		)
	}
	return nil
}
