package pipeline_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/agalert-service/internal/adapter/openmeteo"
	"github.com/couchcryptid/agalert-service/internal/catalog"
	"github.com/couchcryptid/agalert-service/internal/domain"
	"github.com/couchcryptid/agalert-service/internal/observability"
	"github.com/couchcryptid/agalert-service/internal/pipeline"
	"github.com/couchcryptid/agalert-service/internal/render"
)

const patnaFixture = "../../data/mock/open_meteo_patna_monsoon.json"

var generatedAt = time.Date(2024, time.July, 20, 6, 0, 0, 0, time.UTC)

// fixtureFetcher serves the recorded Patna monsoon forecast for every location.
type fixtureFetcher struct {
	raw domain.RawForecast
	err error

	mu    sync.Mutex
	calls []fetchCall
}

type fetchCall struct {
	lat, lon float64
	days     int
}

func newFixtureFetcher(t *testing.T) *fixtureFetcher {
	t.Helper()
	f, err := os.Open(patnaFixture)
	require.NoError(t, err)
	defer f.Close()
	raw, err := openmeteo.DecodeForecast(f)
	require.NoError(t, err)
	return &fixtureFetcher{raw: raw}
}

func (f *fixtureFetcher) FetchForecast(_ context.Context, lat, lon float64, days int) (domain.RawForecast, error) {
	f.mu.Lock()
	f.calls = append(f.calls, fetchCall{lat: lat, lon: lon, days: days})
	f.mu.Unlock()
	if f.err != nil {
		return domain.RawForecast{}, f.err
	}
	return f.raw, nil
}

type stubEnhancer struct {
	narrative domain.Narrative
	err       error
	block     bool
}

func (s stubEnhancer) Enhance(ctx context.Context, _ domain.Alert) (domain.Narrative, error) {
	if s.block {
		<-ctx.Done()
		return domain.Narrative{}, ctx.Err()
	}
	return s.narrative, s.err
}

func newTestService(t *testing.T, fetcher domain.ForecastFetcher, enhancer domain.Enhancer) (*pipeline.Service, *observability.Metrics) {
	t.Helper()
	domain.SetClock(clockwork.NewFakeClockAt(generatedAt))
	t.Cleanup(func() { domain.SetClock(nil) })

	cat, err := catalog.Default()
	require.NoError(t, err)
	metrics := observability.NewMetricsForTesting()
	svc, err := pipeline.NewService(cat, fetcher, render.New(render.DefaultLimits()), pipeline.ServiceConfig{
		Enhancer:    enhancer,
		DefaultDays: 3,
		AITimeout:   100 * time.Millisecond,
	}, metrics, discardLogger())
	require.NoError(t, err)
	return svc, metrics
}

func TestGenerateAlert_PatnaDistrictWide(t *testing.T) {
	fetcher := newFixtureFetcher(t)
	svc, metrics := newTestService(t, fetcher, nil)

	res, err := svc.GenerateAlert(context.Background(), pipeline.AlertRequest{
		District: "patna",
		Channels: []string{"sms", "whatsapp"},
	})
	require.NoError(t, err)

	a := res.Alert
	assert.Equal(t, "Patna", a.District)
	assert.Empty(t, a.Crop)
	assert.Equal(t, domain.SeasonKharif, a.Season)
	assert.Equal(t, domain.SeverityWarning, a.Severity)
	assert.Len(t, a.Observations, 3)
	assert.Equal(t, generatedAt, a.GeneratedAt)

	require.Len(t, fetcher.calls, 1)
	assert.Equal(t, 3, fetcher.calls[0].days)
	assert.InDelta(t, 25.59, fetcher.calls[0].lat, 1e-9)

	require.Len(t, res.Messages, 2)
	assert.Contains(t, res.Messages[render.SMS].Body, "[WARNING] Patna")
	assert.Empty(t, res.Warnings)

	assert.InDelta(t, 1, testutil.ToFloat64(metrics.AlertsGenerated.WithLabelValues("warning")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.RuleMatches.WithLabelValues("heavy-rain")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.MessagesRendered.WithLabelValues("sms")), 1e-9)
}

func TestGenerateAlert_CropWithPlantingDate(t *testing.T) {
	svc, _ := newTestService(t, newFixtureFetcher(t), nil)

	res, err := svc.GenerateAlert(context.Background(), pipeline.AlertRequest{
		District:     "Patna",
		Crop:         "Rice",
		Days:         5,
		PlantingDate: "2024-06-15",
	})
	require.NoError(t, err)
	assert.Equal(t, "rice", res.Alert.Crop)
	assert.NotEmpty(t, res.Alert.Stage)
	assert.Len(t, res.Alert.Observations, 5)
	assert.GreaterOrEqual(t, res.Alert.Severity, domain.SeverityWarning)
	assert.Nil(t, res.Messages)
}

func TestGenerateAlert_ValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		req    pipeline.AlertRequest
		target error
		reason string
	}{
		{name: "unknown district", req: pipeline.AlertRequest{District: "Atlantis"}, target: domain.ErrUnknownDistrict, reason: "lookup"},
		{name: "unknown crop", req: pipeline.AlertRequest{District: "Patna", Crop: "coffee"}, target: domain.ErrUnknownCrop, reason: "lookup"},
		{name: "horizon too long", req: pipeline.AlertRequest{District: "Patna", Days: 8}, target: domain.ErrInvalidForecastHorizon, reason: "horizon"},
		{name: "negative horizon", req: pipeline.AlertRequest{District: "Patna", Days: -1}, target: domain.ErrInvalidForecastHorizon, reason: "horizon"},
		{name: "bad channel", req: pipeline.AlertRequest{District: "Patna", Channels: []string{"fax"}}, target: domain.ErrUnsupportedChannel, reason: "channel"},
		{name: "bad planting date", req: pipeline.AlertRequest{District: "Patna", Crop: "rice", PlantingDate: "15/06/2024"}, target: domain.ErrInvalidDate, reason: "planting_date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := newFixtureFetcher(t)
			svc, metrics := newTestService(t, fetcher, nil)

			_, err := svc.GenerateAlert(context.Background(), tt.req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.target), "got %v", err)

			var verr *domain.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.NotEmpty(t, verr.Value)
			assert.Empty(t, fetcher.calls, "invalid requests must not reach the forecast source")
			assert.InDelta(t, 1, testutil.ToFloat64(metrics.AlertErrors.WithLabelValues(tt.reason)), 1e-9)
		})
	}
}

func TestGenerateAlert_ForecastFailure(t *testing.T) {
	fetcher := newFixtureFetcher(t)
	fetcher.err = errors.New("open-meteo API error: status 503")
	svc, _ := newTestService(t, fetcher, nil)

	_, err := svc.GenerateAlert(context.Background(), pipeline.AlertRequest{District: "Gaya"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, pipeline.ErrForecastUnavailable))
	assert.Contains(t, err.Error(), "Gaya")
}

func TestGenerateAlert_ShortForecastIsIncomplete(t *testing.T) {
	fetcher := newFixtureFetcher(t)
	fetcher.raw.Records = fetcher.raw.Records[:2]
	svc, _ := newTestService(t, fetcher, nil)

	_, err := svc.GenerateAlert(context.Background(), pipeline.AlertRequest{District: "Patna", Days: 3})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrIncompleteForecastData))
}

func TestGenerateAlert_Enhancement(t *testing.T) {
	narrative := domain.Narrative{Summary: "Heavy rain on Sunday.", Advice: "Open drains."}

	tests := []struct {
		name         string
		enhancer     domain.Enhancer
		wantNarr     bool
		wantWarnings int
	}{
		{name: "success", enhancer: stubEnhancer{narrative: narrative}, wantNarr: true},
		{name: "provider error", enhancer: stubEnhancer{err: errors.New("quota exceeded")}, wantWarnings: 1},
		{name: "timeout", enhancer: stubEnhancer{block: true}, wantWarnings: 1},
		{name: "not configured", enhancer: nil, wantWarnings: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t, newFixtureFetcher(t), tt.enhancer)

			res, err := svc.GenerateAlert(context.Background(), pipeline.AlertRequest{
				District:  "Patna",
				IncludeAI: true,
				Channels:  []string{"telegram"},
			})
			require.NoError(t, err)
			assert.Len(t, res.Warnings, tt.wantWarnings)
			assert.Equal(t, tt.wantNarr, res.Alert.Narrative != nil)
			assert.Equal(t, domain.SeverityWarning, res.Alert.Severity)
			assert.NotEmpty(t, res.Messages[render.Telegram].Body)
		})
	}
}

func TestGenerateAlert_CancelledDuringEnhancementKeepsAlert(t *testing.T) {
	svc, _ := newTestService(t, newFixtureFetcher(t), stubEnhancer{block: true})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	res, err := svc.GenerateAlert(ctx, pipeline.AlertRequest{
		District:  "Patna",
		IncludeAI: true,
		Channels:  []string{"sms"},
	})
	require.NoError(t, err)
	assert.Nil(t, res.Alert.Narrative)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "enhancement unavailable")
	assert.NotEmpty(t, res.Messages[render.SMS].Body)
}

func TestRenderMessages(t *testing.T) {
	svc, metrics := newTestService(t, newFixtureFetcher(t), nil)
	res, err := svc.GenerateAlert(context.Background(), pipeline.AlertRequest{District: "Patna", Crop: "rice"})
	require.NoError(t, err)

	msgs, err := svc.RenderMessages(context.Background(), res.Alert, []string{"USSD", "ivr", "ussd"})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[render.USSD].Body, "CON ")
	assert.NotEmpty(t, msgs[render.IVR].Script)

	_, err = svc.RenderMessages(context.Background(), res.Alert, []string{"pager"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnsupportedChannel))
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.AlertErrors.WithLabelValues("channel")), 1e-9)
}

func TestListDistrictsAndHelp(t *testing.T) {
	svc, _ := newTestService(t, newFixtureFetcher(t), nil)

	districts := svc.ListDistricts()
	assert.Len(t, districts, 38)
	assert.Equal(t, "Araria", districts[0])

	topics := svc.HelpTopics()
	for _, name := range []string{"overview", "districts", "crops", "weather", "alerts", "examples"} {
		assert.NotEmpty(t, topics[name], name)
	}
	require.NoError(t, svc.CheckReadiness(context.Background()))
}

func TestNewService_RejectsBadDefaultDays(t *testing.T) {
	cat, err := catalog.Default()
	require.NoError(t, err)
	_, err = pipeline.NewService(cat, &fixtureFetcher{}, render.New(render.DefaultLimits()),
		pipeline.ServiceConfig{DefaultDays: 9}, observability.NewMetricsForTesting(), discardLogger())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidForecastHorizon))
}
