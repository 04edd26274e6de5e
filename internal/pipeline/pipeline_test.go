package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/agalert-service/internal/domain"
	"github.com/couchcryptid/agalert-service/internal/observability"
	"github.com/couchcryptid/agalert-service/internal/pipeline"
)

// --- mocks ---

type mockExtractor struct {
	batches [][]domain.RawEvent
	index   atomic.Int64
	err     error
}

func (m *mockExtractor) ExtractBatch(ctx context.Context, _ int) ([]domain.RawEvent, error) {
	if m.err != nil {
		return nil, m.err
	}
	i := int(m.index.Add(1) - 1)
	if i >= len(m.batches) {
		// block until context cancelled to simulate waiting for messages
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return m.batches[i], nil
}

type mockTransformer struct {
	failKeys map[string]bool
}

func (m *mockTransformer) Transform(_ context.Context, raw domain.RawEvent) (domain.OutputEvent, error) {
	if m.failKeys[string(raw.Key)] {
		return domain.OutputEvent{}, errors.New("unknown district")
	}
	return domain.OutputEvent{Key: raw.Key, Value: raw.Value}, nil
}

type mockLoader struct {
	mu       sync.Mutex
	loaded   []domain.OutputEvent
	failures int
	calls    int
}

func (m *mockLoader) LoadBatch(_ context.Context, events []domain.OutputEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.calls <= m.failures {
		return errors.New("broker unavailable")
	}
	m.loaded = append(m.loaded, events...)
	return nil
}

func (m *mockLoader) snapshot() []domain.OutputEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.OutputEvent(nil), m.loaded...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func rawRequest(key, value string, committed *atomic.Int32) domain.RawEvent {
	raw := domain.RawEvent{Key: []byte(key), Value: []byte(value), Topic: "agalert-requests"}
	if committed != nil {
		raw.Commit = func(context.Context) error {
			committed.Add(1)
			return nil
		}
	}
	return raw
}

// --- tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	var committed atomic.Int32
	ext := &mockExtractor{batches: [][]domain.RawEvent{{
		rawRequest("patna", `{"district":"Patna"}`, &committed),
		rawRequest("gaya", `{"district":"Gaya"}`, &committed),
	}}}
	ldr := &mockLoader{}
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(ext, &mockTransformer{}, ldr, discardLogger(), metrics, 10)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	loaded := ldr.snapshot()
	require.Len(t, loaded, 2)
	assert.Equal(t, []byte("patna"), loaded[0].Key)
	assert.Equal(t, int32(2), committed.Load())
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.MessagesConsumed), 1e-9)
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.MessagesProduced), 1e-9)
	assert.InDelta(t, 0, testutil.ToFloat64(metrics.PipelineRunning), 1e-9)
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	ldr := &mockLoader{}
	p := pipeline.New(&mockExtractor{}, &mockTransformer{}, ldr, discardLogger(), observability.NewMetricsForTesting(), 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, p.Run(ctx))
	assert.Empty(t, ldr.snapshot())
}

func TestPipeline_Run_SkipsAndCommitsBadRequests(t *testing.T) {
	var committed atomic.Int32
	ext := &mockExtractor{batches: [][]domain.RawEvent{{
		rawRequest("atlantis", `{"district":"Atlantis"}`, &committed),
		rawRequest("patna", `{"district":"Patna"}`, &committed),
	}}}
	ldr := &mockLoader{}
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(ext, &mockTransformer{failKeys: map[string]bool{"atlantis": true}}, ldr, discardLogger(), metrics, 10)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	loaded := ldr.snapshot()
	require.Len(t, loaded, 1)
	assert.Equal(t, []byte("patna"), loaded[0].Key)
	assert.Equal(t, int32(2), committed.Load(), "poison message must be committed too")
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.TransformErrors), 1e-9)
}

func TestPipeline_Run_RetriesLoadWithoutCommitting(t *testing.T) {
	var committed atomic.Int32
	ext := &mockExtractor{batches: [][]domain.RawEvent{
		{rawRequest("patna", `{"district":"Patna"}`, &committed)},
		{rawRequest("patna", `{"district":"Patna"}`, &committed)},
	}}
	ldr := &mockLoader{failures: 1}

	p := pipeline.New(ext, &mockTransformer{}, ldr, discardLogger(), observability.NewMetricsForTesting(), 10)

	ctx, cancel := context.WithTimeout(context.Background(), 800*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	assert.Len(t, ldr.snapshot(), 1)
	assert.Equal(t, int32(1), committed.Load(), "failed load must leave the offset uncommitted")
}

func TestPipeline_CheckReadiness(t *testing.T) {
	p := pipeline.New(&mockExtractor{}, &mockTransformer{}, &mockLoader{}, discardLogger(), observability.NewMetricsForTesting(), 10)
	require.Error(t, p.CheckReadiness(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = p.Run(ctx)
	}()

	assert.Eventually(t, func() bool {
		return p.CheckReadiness(context.Background()) == nil
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_ExtractErrorBacksOff(t *testing.T) {
	ext := &mockExtractor{err: errors.New("broker down")}
	p := pipeline.New(ext, &mockTransformer{}, &mockLoader{}, discardLogger(), observability.NewMetricsForTesting(), 10)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	require.NoError(t, p.Run(ctx))
	assert.Less(t, time.Since(start), time.Second)
}
