// Package openmeteo fetches daily forecasts from the Open-Meteo API.
package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/agalert-service/internal/domain"
	"github.com/couchcryptid/agalert-service/internal/observability"
)

// DefaultBaseURL is the public Open-Meteo forecast endpoint.
const DefaultBaseURL = "https://api.open-meteo.com/v1/forecast"

const source = "open-meteo"

var dailyFields = "temperature_2m_max,temperature_2m_min,precipitation_sum," +
	"precipitation_probability_max,relative_humidity_2m_mean,wind_speed_10m_max,weather_code"

// Client implements domain.ForecastFetcher using the Open-Meteo forecast API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	timezone   string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an Open-Meteo client. An empty baseURL uses DefaultBaseURL.
func NewClient(baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:  baseURL,
		timezone: "Asia/Kolkata",
		metrics:  metrics,
		logger:   logger,
	}
}

// FetchForecast requests days of daily aggregates for a coordinate.
func (c *Client) FetchForecast(ctx context.Context, lat, lon float64, days int) (domain.RawForecast, error) {
	params := url.Values{
		"latitude":      {strconv.FormatFloat(lat, 'f', 4, 64)},
		"longitude":     {strconv.FormatFloat(lon, 'f', 4, 64)},
		"daily":         {dailyFields},
		"timezone":      {c.timezone},
		"forecast_days": {strconv.Itoa(days)},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return domain.RawForecast{}, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.ForecastAPIDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.ForecastRequests.WithLabelValues("error").Inc()
		return domain.RawForecast{}, fmt.Errorf("forecast request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.ForecastRequests.WithLabelValues("error").Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return domain.RawForecast{}, fmt.Errorf("open-meteo API error: status %d: %s", resp.StatusCode, body)
	}

	raw, err := DecodeForecast(resp.Body)
	if err != nil {
		c.metrics.ForecastRequests.WithLabelValues("error").Inc()
		return domain.RawForecast{}, err
	}
	c.metrics.ForecastRequests.WithLabelValues("success").Inc()
	c.logger.Debug("forecast fetched", "lat", lat, "lon", lon, "days", len(raw.Records))
	return raw, nil
}

// DecodeForecast parses an Open-Meteo daily forecast response body. Null
// values become NaN so the normalizer can report them.
func DecodeForecast(r io.Reader) (domain.RawForecast, error) {
	var body response
	if err := json.NewDecoder(r).Decode(&body); err != nil {
		return domain.RawForecast{}, fmt.Errorf("decode response: %w", err)
	}

	d := body.Daily
	records := make([]domain.RawDailyRecord, len(d.Time))
	for i, date := range d.Time {
		records[i] = domain.RawDailyRecord{
			Date:              date,
			TempMax:           at(d.TempMax, i),
			TempMin:           at(d.TempMin, i),
			PrecipSum:         at(d.PrecipSum, i),
			PrecipProbability: at(d.PrecipProbability, i),
			Humidity:          at(d.Humidity, i),
			WindSpeedMax:      at(d.WindSpeedMax, i),
			WeatherCode:       code(d.WeatherCode, i),
		}
	}

	return domain.RawForecast{
		Source: source,
		Units: domain.RawUnits{
			Temperature:   body.Units.TempMax,
			Precipitation: body.Units.PrecipSum,
			WindSpeed:     body.Units.WindSpeedMax,
		},
		Records: records,
	}, nil
}

func at(values []*float64, i int) float64 {
	if i >= len(values) || values[i] == nil {
		return math.NaN()
	}
	return *values[i]
}

func code(values []*float64, i int) int {
	v := at(values, i)
	if math.IsNaN(v) {
		return -1
	}
	return int(v)
}

// Open-Meteo API response types. Daily values are parallel arrays indexed by
// the time column.

type response struct {
	Latitude  float64    `json:"latitude"`
	Longitude float64    `json:"longitude"`
	Timezone  string     `json:"timezone"`
	Units     dailyUnits `json:"daily_units"`
	Daily     daily      `json:"daily"`
}

type dailyUnits struct {
	TempMax      string `json:"temperature_2m_max"`
	PrecipSum    string `json:"precipitation_sum"`
	WindSpeedMax string `json:"wind_speed_10m_max"`
}

type daily struct {
	Time              []string   `json:"time"`
	TempMax           []*float64 `json:"temperature_2m_max"`
	TempMin           []*float64 `json:"temperature_2m_min"`
	PrecipSum         []*float64 `json:"precipitation_sum"`
	PrecipProbability []*float64 `json:"precipitation_probability_max"`
	Humidity          []*float64 `json:"relative_humidity_2m_mean"`
	WindSpeedMax      []*float64 `json:"wind_speed_10m_max"`
	WeatherCode       []*float64 `json:"weather_code"`
}
