//go:build openai

package openai

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/agalert-service/internal/observability"
)

// These tests call the real OpenAI API and require OPENAI_API_KEY.
// Run with: go test -tags=openai ./internal/adapter/openai/ -v -count=1

func TestSmoke_Enhance(t *testing.T) {
	key := os.Getenv("OPENAI_API_KEY")
	if key == "" {
		t.Fatal("OPENAI_API_KEY must be set to run smoke tests")
	}
	e := NewEnhancer(Config{APIKey: key, RatePerSecond: 1}, observability.NewMetricsForTesting(), slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	n, err := e.Enhance(ctx, testAlert())
	require.NoError(t, err)
	assert.NotEmpty(t, n.Summary)
}
