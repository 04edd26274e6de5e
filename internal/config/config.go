package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	LogFile         string
	ShutdownTimeout time.Duration

	// CatalogPath overrides the embedded reference data when set.
	CatalogPath string

	// Open-Meteo forecast source.
	ForecastBaseURL   string
	ForecastTimeout   time.Duration
	ForecastCacheSize int
	ForecastCacheTTL  time.Duration
	ForecastDays      int

	// OpenAI narrative enhancement.
	OpenAIKey     string
	OpenAIModel   string
	OpenAIBaseURL string
	AIEnabled     bool
	AITimeout     time.Duration
	AIRateLimit   float64

	KafkaEnabled     bool
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string

	BatchSize          int
	BatchFlushInterval time.Duration

	// Scheduled district broadcasts. An empty schedule disables them.
	BroadcastSchedule  string
	BroadcastDistricts []string
	BroadcastChannels  []string
	BroadcastTimeout   time.Duration
}

// Load reads configuration from environment variables, applying defaults where
// unset. A .env file in the working directory is loaded first when present;
// variables already in the environment win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}
	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}
	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	forecastTimeout, err := parseDuration("FORECAST_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	forecastCacheTTL, err := parseDuration("FORECAST_CACHE_TTL", "30m")
	if err != nil {
		return nil, err
	}
	forecastCacheSize, err := parsePositiveInt("FORECAST_CACHE_SIZE", 256)
	if err != nil {
		return nil, err
	}
	forecastDays, err := parsePositiveInt("FORECAST_DAYS", 3)
	if err != nil {
		return nil, err
	}
	if forecastDays > 7 {
		return nil, fmt.Errorf("invalid FORECAST_DAYS %d: must be between 1 and 7", forecastDays)
	}

	aiTimeout, err := parseDuration("AI_TIMEOUT", "8s")
	if err != nil {
		return nil, err
	}
	aiRateLimit, err := parsePositiveFloat("AI_RATE_LIMIT", 1)
	if err != nil {
		return nil, err
	}

	broadcastTimeout, err := parseDuration("BROADCAST_TIMEOUT", "10m")
	if err != nil {
		return nil, err
	}

	openAIKey := os.Getenv("OPENAI_API_KEY")
	aiEnabled := openAIKey != ""
	if v := os.Getenv("AI_ENABLED"); v != "" {
		aiEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		LogFile:         os.Getenv("LOG_FILE"),
		ShutdownTimeout: shutdownTimeout,

		CatalogPath: os.Getenv("CATALOG_PATH"),

		ForecastBaseURL:   sharedcfg.EnvOrDefault("FORECAST_BASE_URL", "https://api.open-meteo.com/v1/forecast"),
		ForecastTimeout:   forecastTimeout,
		ForecastCacheSize: forecastCacheSize,
		ForecastCacheTTL:  forecastCacheTTL,
		ForecastDays:      forecastDays,

		OpenAIKey:     openAIKey,
		OpenAIModel:   sharedcfg.EnvOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL: os.Getenv("OPENAI_BASE_URL"),
		AIEnabled:     aiEnabled,
		AITimeout:     aiTimeout,
		AIRateLimit:   aiRateLimit,

		KafkaEnabled:     os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:     sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic: sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "agalert-requests"),
		KafkaSinkTopic:   sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "agalert-messages"),
		KafkaGroupID:     sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "agalert"),

		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		BroadcastSchedule:  os.Getenv("BROADCAST_SCHEDULE"),
		BroadcastDistricts: splitList(os.Getenv("BROADCAST_DISTRICTS")),
		BroadcastChannels:  splitList(sharedcfg.EnvOrDefault("BROADCAST_CHANNELS", "sms,whatsapp")),
		BroadcastTimeout:   broadcastTimeout,
	}

	if cfg.AIEnabled && cfg.OpenAIKey == "" {
		return nil, errors.New("AI_ENABLED is true but OPENAI_API_KEY is not set")
	}
	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required")
		}
		if cfg.KafkaSourceTopic == "" {
			return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
		}
		if cfg.KafkaSinkTopic == "" {
			return nil, errors.New("KAFKA_SINK_TOPIC is required")
		}
	}
	if cfg.BroadcastSchedule != "" {
		if _, err := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor).Parse(cfg.BroadcastSchedule); err != nil {
			return nil, fmt.Errorf("invalid BROADCAST_SCHEDULE %q: %w", cfg.BroadcastSchedule, err)
		}
		if len(cfg.BroadcastChannels) == 0 {
			return nil, errors.New("BROADCAST_CHANNELS is required when BROADCAST_SCHEDULE is set")
		}
	}

	return cfg, nil
}

func parseDuration(key, def string) (time.Duration, error) {
	s := sharedcfg.EnvOrDefault(key, def)
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive duration", key, s)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive integer", key, s)
	}
	return n, nil
}

func parsePositiveFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive number", key, s)
	}
	return f, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
