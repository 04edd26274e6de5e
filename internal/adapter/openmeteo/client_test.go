package openmeteo

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/agalert-service/internal/domain"
	"github.com/couchcryptid/agalert-service/internal/observability"
)

const (
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
	fixturePath       = "../../../data/mock/open_meteo_patna_monsoon.json"
)

func testClient(baseURL string) *Client {
	return NewClient(baseURL, 5*time.Second, observability.NewMetricsForTesting(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func serveFixture(t *testing.T) *httptest.Server {
	t.Helper()
	body, err := os.ReadFile(fixturePath)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "25.6100", q.Get("latitude"))
		assert.Equal(t, "85.1400", q.Get("longitude"))
		assert.Equal(t, "Asia/Kolkata", q.Get("timezone"))
		assert.Equal(t, "3", q.Get("forecast_days"))
		assert.Contains(t, q.Get("daily"), "precipitation_sum")
		assert.Contains(t, q.Get("daily"), "weather_code")

		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_FetchForecast_Success(t *testing.T) {
	srv := serveFixture(t)

	raw, err := testClient(srv.URL).FetchForecast(context.Background(), 25.61, 85.14, 3)
	require.NoError(t, err)

	assert.Equal(t, "open-meteo", raw.Source)
	assert.Equal(t, domain.RawUnits{Temperature: "°C", Precipitation: "mm", WindSpeed: "km/h"}, raw.Units)
	require.Len(t, raw.Records, 7)

	day2 := raw.Records[1]
	assert.Equal(t, "2024-07-21", day2.Date)
	assert.InDelta(t, 29.4, day2.TempMax, 1e-9)
	assert.InDelta(t, 68.5, day2.PrecipSum, 1e-9)
	assert.InDelta(t, 96, day2.PrecipProbability, 1e-9)
	assert.Equal(t, 65, day2.WeatherCode)
}

func TestClient_FetchForecast_NormalizesEndToEnd(t *testing.T) {
	srv := serveFixture(t)

	raw, err := testClient(srv.URL).FetchForecast(context.Background(), 25.61, 85.14, 3)
	require.NoError(t, err)

	obs, err := domain.NormalizeForecast(raw, 3)
	require.NoError(t, err)
	require.Len(t, obs, 3)
	assert.Equal(t, domain.ConditionHeavyRain, obs[1].Condition)
	assert.InDelta(t, 68.5, obs[1].PrecipMM, 1e-9)
}

func TestClient_FetchForecast_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":true,"reason":"Latitude must be in range of -90 to 90°."}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).FetchForecast(context.Background(), 125, 85, 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.Contains(t, err.Error(), "Latitude must be in range")
}

func TestClient_FetchForecast_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`{"daily": [`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).FetchForecast(context.Background(), 25.61, 85.14, 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")
}

func TestClient_FetchForecast_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := testClient(srv.URL).FetchForecast(ctx, 25.61, 85.14, 3)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestDecodeForecast_NullsBecomeMissing(t *testing.T) {
	body := `{
		"daily_units": {"temperature_2m_max": "°F", "precipitation_sum": "inch", "wind_speed_10m_max": "mph"},
		"daily": {
			"time": ["2024-01-10", "2024-01-11"],
			"temperature_2m_max": [60.0, null],
			"temperature_2m_min": [40.0, 38.5],
			"precipitation_sum": [0.1, 0.0],
			"weather_code": [null, 3]
		}
	}`

	raw, err := DecodeForecast(strings.NewReader(body))
	require.NoError(t, err)
	require.Len(t, raw.Records, 2)

	assert.Equal(t, domain.RawUnits{Temperature: "°F", Precipitation: "inch", WindSpeed: "mph"}, raw.Units)
	assert.Equal(t, -1, raw.Records[0].WeatherCode)
	assert.True(t, math.IsNaN(raw.Records[0].Humidity), "absent column is missing")
	assert.True(t, math.IsNaN(raw.Records[1].TempMax), "null is missing")
	assert.Equal(t, 3, raw.Records[1].WeatherCode)
}

func TestNewClient_DefaultBaseURL(t *testing.T) {
	c := NewClient("", time.Second, observability.NewMetricsForTesting(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Equal(t, DefaultBaseURL, c.baseURL)
}
