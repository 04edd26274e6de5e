package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testOpenAIKey = "sk-test-key"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Empty(t, cfg.LogFile)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Empty(t, cfg.CatalogPath)

	assert.Equal(t, "https://api.open-meteo.com/v1/forecast", cfg.ForecastBaseURL)
	assert.Equal(t, 5*time.Second, cfg.ForecastTimeout)
	assert.Equal(t, 256, cfg.ForecastCacheSize)
	assert.Equal(t, 30*time.Minute, cfg.ForecastCacheTTL)
	assert.Equal(t, 3, cfg.ForecastDays)

	assert.False(t, cfg.AIEnabled)
	assert.Empty(t, cfg.OpenAIKey)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAIModel)
	assert.Equal(t, 8*time.Second, cfg.AITimeout)
	assert.InDelta(t, 1.0, cfg.AIRateLimit, 1e-9)

	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "agalert-requests", cfg.KafkaSourceTopic)
	assert.Equal(t, "agalert-messages", cfg.KafkaSinkTopic)
	assert.Equal(t, "agalert", cfg.KafkaGroupID)
	assert.Equal(t, 50, cfg.BatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.BatchFlushInterval)

	assert.Empty(t, cfg.BroadcastSchedule)
	assert.Empty(t, cfg.BroadcastDistricts)
	assert.Equal(t, []string{"sms", "whatsapp"}, cfg.BroadcastChannels)
	assert.Equal(t, 10*time.Minute, cfg.BroadcastTimeout)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("LOG_FILE", "/var/log/agalert.log")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("CATALOG_PATH", "/etc/agalert/bihar.yaml")
	t.Setenv("FORECAST_BASE_URL", "http://meteo.local/v1/forecast")
	t.Setenv("FORECAST_TIMEOUT", "2s")
	t.Setenv("FORECAST_CACHE_SIZE", "64")
	t.Setenv("FORECAST_CACHE_TTL", "1h")
	t.Setenv("FORECAST_DAYS", "7")
	t.Setenv("OPENAI_API_KEY", testOpenAIKey)
	t.Setenv("OPENAI_MODEL", "gpt-4o")
	t.Setenv("OPENAI_BASE_URL", "http://llm.local/v1")
	t.Setenv("AI_TIMEOUT", "3s")
	t.Setenv("AI_RATE_LIMIT", "0.5")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_SOURCE_TOPIC", "custom-source")
	t.Setenv("KAFKA_SINK_TOPIC", "custom-sink")
	t.Setenv("KAFKA_GROUP_ID", "custom-group")
	t.Setenv("BATCH_SIZE", "100")
	t.Setenv("BATCH_FLUSH_INTERVAL", "1s")
	t.Setenv("BROADCAST_SCHEDULE", "0 0 6 * * *")
	t.Setenv("BROADCAST_DISTRICTS", "Patna, Gaya ,,Nalanda")
	t.Setenv("BROADCAST_CHANNELS", "sms,ivr")
	t.Setenv("BROADCAST_TIMEOUT", "90s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "/var/log/agalert.log", cfg.LogFile)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "/etc/agalert/bihar.yaml", cfg.CatalogPath)
	assert.Equal(t, "http://meteo.local/v1/forecast", cfg.ForecastBaseURL)
	assert.Equal(t, 2*time.Second, cfg.ForecastTimeout)
	assert.Equal(t, 64, cfg.ForecastCacheSize)
	assert.Equal(t, time.Hour, cfg.ForecastCacheTTL)
	assert.Equal(t, 7, cfg.ForecastDays)
	assert.True(t, cfg.AIEnabled)
	assert.Equal(t, testOpenAIKey, cfg.OpenAIKey)
	assert.Equal(t, "gpt-4o", cfg.OpenAIModel)
	assert.Equal(t, "http://llm.local/v1", cfg.OpenAIBaseURL)
	assert.Equal(t, 3*time.Second, cfg.AITimeout)
	assert.InDelta(t, 0.5, cfg.AIRateLimit, 1e-9)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-source", cfg.KafkaSourceTopic)
	assert.Equal(t, "custom-sink", cfg.KafkaSinkTopic)
	assert.Equal(t, "custom-group", cfg.KafkaGroupID)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, time.Second, cfg.BatchFlushInterval)
	assert.Equal(t, "0 0 6 * * *", cfg.BroadcastSchedule)
	assert.Equal(t, []string{"Patna", "Gaya", "Nalanda"}, cfg.BroadcastDistricts)
	assert.Equal(t, []string{"sms", "ivr"}, cfg.BroadcastChannels)
	assert.Equal(t, 90*time.Second, cfg.BroadcastTimeout)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"SHUTDOWN_TIMEOUT", "not-a-duration"},
		{"SHUTDOWN_TIMEOUT", "-1s"},
		{"BATCH_SIZE", "0"},
		{"BATCH_SIZE", "9999"},
		{"BATCH_FLUSH_INTERVAL", "not-a-duration"},
		{"FORECAST_TIMEOUT", "bad"},
		{"FORECAST_CACHE_TTL", "0s"},
		{"FORECAST_CACHE_SIZE", "-4"},
		{"FORECAST_DAYS", "0"},
		{"FORECAST_DAYS", "8"},
		{"AI_TIMEOUT", "soon"},
		{"AI_RATE_LIMIT", "zero"},
		{"BROADCAST_SCHEDULE", "every morning"},
		{"BROADCAST_SCHEDULE", "0 6 * * *"},
		{"BROADCAST_TIMEOUT", "later"},
		{"BROADCAST_TIMEOUT", "-5m"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoad_AIEnabledWithoutKey(t *testing.T) {
	t.Setenv("AI_ENABLED", "true")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
}

func TestLoad_AIExplicitlyDisabled(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", testOpenAIKey)
	t.Setenv("AI_ENABLED", "false")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.AIEnabled)
}

func TestLoad_BroadcastRequiresChannels(t *testing.T) {
	t.Setenv("BROADCAST_SCHEDULE", "@hourly")
	t.Setenv("BROADCAST_CHANNELS", " , ")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BROADCAST_CHANNELS")
}
