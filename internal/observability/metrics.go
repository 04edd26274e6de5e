package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "agalert"

// Metrics holds the Prometheus counters, histograms, and gauges for the alert service.
type Metrics struct {
	// Kafka request pipeline.
	MessagesConsumed        prometheus.Counter
	MessagesProduced        prometheus.Counter
	TransformErrors         prometheus.Counter
	PipelineRunning         prometheus.Gauge
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Alert composition.
	AlertsGenerated *prometheus.CounterVec // labels: severity
	RuleMatches     *prometheus.CounterVec // labels: rule
	AlertErrors     *prometheus.CounterVec // labels: reason

	// Narrative enhancement.
	Enhancements        *prometheus.CounterVec // labels: outcome={success,error,rate_limited,disabled}
	EnhancementDuration prometheus.Histogram
	EnhancementEnabled  prometheus.Gauge

	// Channel rendering.
	MessagesRendered  *prometheus.CounterVec // labels: channel
	MessagesTruncated *prometheus.CounterVec // labels: channel

	// Forecast source.
	ForecastRequests    *prometheus.CounterVec // labels: outcome={success,error}
	ForecastCache       *prometheus.CounterVec // labels: result={hit,miss,expired}
	ForecastAPIDuration prometheus.Histogram

	// Scheduled broadcasts.
	BroadcastRuns *prometheus.CounterVec // labels: outcome={success,partial,error}
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, so tests can
// build as many as they like.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		MessagesConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_consumed_total",
			Help:      "Total alert requests read from the source topic.",
		}),
		MessagesProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_produced_total",
			Help:      "Total alert results written to the sink topic.",
		}),
		TransformErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transform_errors_total",
			Help:      "Total alert requests that could not be processed.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the Kafka pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of requests per batch extracted from Kafka.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch extract-transform-load cycle.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		AlertsGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_generated_total",
			Help:      "Alerts composed, by severity.",
		}, []string{"severity"}),
		RuleMatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rule_matches_total",
			Help:      "Recommendations emitted, by rule.",
		}, []string{"rule"}),
		AlertErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alert_errors_total",
			Help:      "Alert requests rejected, by reason.",
		}, []string{"reason"}),
		Enhancements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enhancements_total",
			Help:      "Narrative enhancement attempts by outcome.",
		}, []string{"outcome"}),
		EnhancementDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "enhancement_duration_seconds",
			Help:      "Narrative enhancement call duration in seconds.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16},
		}),
		EnhancementEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "enhancement_enabled",
			Help:      "1 when narrative enhancement is configured, 0 otherwise.",
		}),
		MessagesRendered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_rendered_total",
			Help:      "Channel messages rendered, by channel.",
		}, []string{"channel"}),
		MessagesTruncated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_truncated_total",
			Help:      "Channel messages shortened to fit the channel limit, by channel.",
		}, []string{"channel"}),
		ForecastRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forecast_requests_total",
			Help:      "Forecast API requests by outcome.",
		}, []string{"outcome"}),
		ForecastCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forecast_cache_total",
			Help:      "Forecast cache lookups by result.",
		}, []string{"result"}),
		ForecastAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "forecast_api_duration_seconds",
			Help:      "Open-Meteo API request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		BroadcastRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_runs_total",
			Help:      "Scheduled district broadcast runs by outcome.",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.MessagesConsumed,
		m.MessagesProduced,
		m.TransformErrors,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.AlertsGenerated,
		m.RuleMatches,
		m.AlertErrors,
		m.Enhancements,
		m.EnhancementDuration,
		m.EnhancementEnabled,
		m.MessagesRendered,
		m.MessagesTruncated,
		m.ForecastRequests,
		m.ForecastCache,
		m.ForecastAPIDuration,
		m.BroadcastRuns,
	}
}
