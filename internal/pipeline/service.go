package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/agalert-service/internal/domain"
	"github.com/couchcryptid/agalert-service/internal/observability"
	"github.com/couchcryptid/agalert-service/internal/render"
)

// ErrForecastUnavailable marks a forecast that could not be fetched. Callers
// map it to an upstream failure rather than a bad request.
var ErrForecastUnavailable = errors.New("forecast unavailable")

// Catalog is the reference data the service reads. *catalog.Catalog satisfies it.
type Catalog interface {
	domain.Catalog
	ListDistricts() []string
	Districts() []domain.District
	DistrictCrops(name string) (domain.DistrictCrops, error)
	CropCalendar(name string, planting, on time.Time) (domain.CropCalendar, error)
}

// AlertRequest asks for an alert for a district and, optionally, one crop.
type AlertRequest struct {
	District     string   `json:"district"`
	Crop         string   `json:"crop,omitempty"`
	Days         int      `json:"days,omitempty"`
	PlantingDate string   `json:"planting_date,omitempty"`
	IncludeAI    bool     `json:"include_ai,omitempty"`
	Channels     []string `json:"channels,omitempty"`
}

// Result is a composed alert with its rendered messages. Warnings describe
// best-effort steps that were skipped, such as AI enhancement.
type Result struct {
	Alert    domain.Alert                             `json:"alert"`
	Messages map[render.Channel]render.ChannelMessage `json:"messages,omitempty"`
	Warnings []string                                 `json:"warnings,omitempty"`
}

// ServiceConfig holds the optional collaborators and tunables of a Service.
type ServiceConfig struct {
	// Enhancer is nil when AI enhancement is disabled.
	Enhancer    domain.Enhancer
	DefaultDays int
	AITimeout   time.Duration
}

// Service generates alerts from live forecasts. It is safe for concurrent use.
type Service struct {
	catalog     Catalog
	engine      *domain.Engine
	fetcher     domain.ForecastFetcher
	enhancer    domain.Enhancer
	renderer    *render.Renderer
	metrics     *observability.Metrics
	logger      *slog.Logger
	defaultDays int
	aiTimeout   time.Duration
}

// NewService wires a Service over the catalog, forecast source and renderer.
func NewService(cat Catalog, fetcher domain.ForecastFetcher, renderer *render.Renderer, cfg ServiceConfig, metrics *observability.Metrics, logger *slog.Logger) (*Service, error) {
	engine, err := domain.NewEngine(cat, nil)
	if err != nil {
		return nil, err
	}
	days := cfg.DefaultDays
	if days == 0 {
		days = 3
	}
	if err := domain.ValidateForecastHorizon(days); err != nil {
		return nil, fmt.Errorf("default forecast days: %w", err)
	}
	return &Service{
		catalog:     cat,
		engine:      engine,
		fetcher:     fetcher,
		enhancer:    cfg.Enhancer,
		renderer:    renderer,
		metrics:     metrics,
		logger:      logger,
		defaultDays: days,
		aiTimeout:   cfg.AITimeout,
	}, nil
}

// GenerateAlert validates req, fetches the district forecast, composes the
// alert and renders it for the requested channels. Enhancement failures are
// reported as warnings and never fail the request.
func (s *Service) GenerateAlert(ctx context.Context, req AlertRequest) (Result, error) {
	days := req.Days
	if days == 0 {
		days = s.defaultDays
	}
	if err := domain.ValidateForecastHorizon(days); err != nil {
		return s.fail(err, "horizon")
	}
	district, crop, err := s.engine.Resolve(req.District, req.Crop)
	if err != nil {
		return s.fail(err, "lookup")
	}
	channels, err := render.ParseChannels(req.Channels)
	if err != nil {
		return s.fail(err, "channel")
	}
	var planting time.Time
	if req.PlantingDate != "" {
		if planting, err = domain.ParseDate(req.PlantingDate); err != nil {
			return s.fail(err, "planting_date")
		}
	}

	raw, err := s.fetcher.FetchForecast(ctx, district.Lat, district.Lon, days)
	if err != nil {
		return s.fail(fmt.Errorf("%w: %s: %w", ErrForecastUnavailable, district.Name, err), "forecast")
	}
	obs, err := domain.NormalizeForecast(raw, days)
	if err != nil {
		return s.fail(err, "forecast_data")
	}

	compose := domain.ComposeRequest{District: district.Name, PlantingDate: planting, Observations: obs}
	if crop != nil {
		compose.Crop = crop.ID
	}
	alert, err := s.engine.Compose(compose)
	if err != nil {
		return s.fail(err, "compose")
	}
	s.recordAlert(alert)

	var result Result
	if req.IncludeAI {
		alert, result.Warnings = s.enhance(ctx, alert)
	}
	result.Alert = alert

	if len(channels) > 0 {
		// Rendering is local work; finish it even when the caller gave up
		// during enhancement so the computed alert is still returned whole.
		msgs, err := s.renderMessages(context.WithoutCancel(ctx), alert, channels)
		if err != nil {
			return result, err
		}
		result.Messages = msgs
	}

	s.logger.Info("alert generated",
		"alert_id", alert.ID,
		"district", alert.District,
		"crop", alert.Crop,
		"severity", alert.Severity.String(),
		"recommendations", len(alert.Recommendations),
		"channels", len(channels),
	)
	return result, nil
}

// RenderMessages renders an existing alert for the named channels.
func (s *Service) RenderMessages(ctx context.Context, alert domain.Alert, names []string) (map[render.Channel]render.ChannelMessage, error) {
	channels, err := render.ParseChannels(names)
	if err != nil {
		s.metrics.AlertErrors.WithLabelValues("channel").Inc()
		return nil, err
	}
	return s.renderMessages(ctx, alert, channels)
}

// ListDistricts returns every district name in alphabetical order.
func (s *Service) ListDistricts() []string {
	return s.catalog.ListDistricts()
}

// DistrictCrops returns the crop breakdown of a district.
func (s *Service) DistrictCrops(name string) (domain.DistrictCrops, error) {
	return s.catalog.DistrictCrops(name)
}

// CropCalendar returns the dated stages of a crop planted on planting. A zero
// planting date selects the nominal sowing date nearest to on.
func (s *Service) CropCalendar(name string, planting, on time.Time) (domain.CropCalendar, error) {
	return s.catalog.CropCalendar(name, planting, on)
}

// HelpTopics returns the usage guide keyed by topic name.
func (s *Service) HelpTopics() map[string]string {
	topics := domain.HelpTopics()
	out := make(map[string]string, len(topics))
	for _, t := range topics {
		out[t.Name] = t.Body
	}
	return out
}

// CheckReadiness reports whether reference data is loaded.
func (s *Service) CheckReadiness(_ context.Context) error {
	if len(s.catalog.ListDistricts()) == 0 {
		return errors.New("catalog has no districts")
	}
	return nil
}

func (s *Service) enhance(ctx context.Context, alert domain.Alert) (domain.Alert, []string) {
	if s.enhancer == nil {
		s.metrics.Enhancements.WithLabelValues("disabled").Inc()
	}
	enhanced, err := domain.EnhanceAlert(ctx, alert, s.enhancer, s.aiTimeout)
	if err != nil {
		s.logger.Warn("alert enhancement skipped", "alert_id", alert.ID, "error", err)
		return alert, []string{err.Error()}
	}
	return enhanced, nil
}

func (s *Service) renderMessages(ctx context.Context, alert domain.Alert, channels []render.Channel) (map[render.Channel]render.ChannelMessage, error) {
	msgs, err := s.renderer.Render(ctx, alert, channels...)
	if err != nil {
		return nil, fmt.Errorf("render alert %s: %w", alert.ID, err)
	}
	for ch, msg := range msgs {
		s.metrics.MessagesRendered.WithLabelValues(string(ch)).Inc()
		if msg.Truncated {
			s.metrics.MessagesTruncated.WithLabelValues(string(ch)).Inc()
		}
	}
	return msgs, nil
}

func (s *Service) recordAlert(alert domain.Alert) {
	s.metrics.AlertsGenerated.WithLabelValues(alert.Severity.String()).Inc()
	counted := make(map[string]bool)
	for _, r := range alert.Recommendations {
		if r.RuleID == "" || counted[r.RuleID] {
			continue
		}
		counted[r.RuleID] = true
		s.metrics.RuleMatches.WithLabelValues(r.RuleID).Inc()
	}
}

func (s *Service) fail(err error, reason string) (Result, error) {
	s.metrics.AlertErrors.WithLabelValues(reason).Inc()
	return Result{}, err
}
