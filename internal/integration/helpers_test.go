//go:build integration

package integration_test

import (
	"context"
	"io"
	"log/slog"
	"net"
	"os"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/agalert-service/internal/adapter/openmeteo"
	"github.com/couchcryptid/agalert-service/internal/catalog"
	"github.com/couchcryptid/agalert-service/internal/domain"
	"github.com/couchcryptid/agalert-service/internal/observability"
	"github.com/couchcryptid/agalert-service/internal/pipeline"
	"github.com/couchcryptid/agalert-service/internal/render"
)

const kafkaImage = "confluentinc/confluent-local:7.5.0"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node Kafka and returns its bootstrap address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, kafkaImage, tckafka.WithClusterID("agalert-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     3,
		ReplicationFactor: 1,
	}))
}

// fixtureFetcher serves the recorded Patna monsoon forecast for every district.
type fixtureFetcher struct {
	raw domain.RawForecast
}

func (f fixtureFetcher) FetchForecast(context.Context, float64, float64, int) (domain.RawForecast, error) {
	return f.raw, nil
}

// newService builds the alert service over the embedded catalog and the
// forecast fixture, so only Kafka is real.
func newService(t *testing.T) *pipeline.Service {
	t.Helper()
	f, err := os.Open("../../data/mock/open_meteo_patna_monsoon.json")
	require.NoError(t, err)
	defer f.Close()
	raw, err := openmeteo.DecodeForecast(f)
	require.NoError(t, err)

	cat, err := catalog.Default()
	require.NoError(t, err)
	svc, err := pipeline.NewService(cat, fixtureFetcher{raw: raw}, render.New(render.DefaultLimits()),
		pipeline.ServiceConfig{DefaultDays: 3, AITimeout: time.Second},
		observability.NewMetricsForTesting(), discardLogger())
	require.NoError(t, err)
	return svc
}
