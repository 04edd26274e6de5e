package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/couchcryptid/agalert-service/internal/domain"
)

// AlertGenerator produces an alert result for a request. *Service implements it.
type AlertGenerator interface {
	GenerateAlert(ctx context.Context, req AlertRequest) (Result, error)
}

// AlertTransformer implements Transformer by decoding an AlertRequest from the
// message value and encoding the generated Result.
type AlertTransformer struct {
	generator AlertGenerator
}

// NewTransformer creates an AlertTransformer backed by generator.
func NewTransformer(generator AlertGenerator) *AlertTransformer {
	return &AlertTransformer{generator: generator}
}

func (t *AlertTransformer) Transform(ctx context.Context, raw domain.RawEvent) (domain.OutputEvent, error) {
	req, err := decodeRequest(raw.Value)
	if err != nil {
		return domain.OutputEvent{}, err
	}
	result, err := t.generator.GenerateAlert(ctx, req)
	if err != nil {
		return domain.OutputEvent{}, fmt.Errorf("generate alert for %q: %w", req.District, err)
	}
	return EncodeResult(result)
}

// EncodeResult serializes a result into an output event keyed by district so
// a district's alerts stay on one partition.
func EncodeResult(result Result) (domain.OutputEvent, error) {
	value, err := json.Marshal(result)
	if err != nil {
		return domain.OutputEvent{}, fmt.Errorf("encode result: %w", err)
	}
	a := result.Alert
	return domain.OutputEvent{
		Key:   []byte(strings.ToLower(a.District)),
		Value: value,
		Headers: map[string]string{
			"alert_id":     a.ID,
			"district":     a.District,
			"severity":     a.Severity.String(),
			"generated_at": a.GeneratedAt.UTC().Format(time.RFC3339),
		},
	}, nil
}

func decodeRequest(value []byte) (AlertRequest, error) {
	var req AlertRequest
	dec := json.NewDecoder(bytes.NewReader(value))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return AlertRequest{}, fmt.Errorf("decode alert request: %w", err)
	}
	if strings.TrimSpace(req.District) == "" {
		return AlertRequest{}, fmt.Errorf("decode alert request: district is required")
	}
	return req, nil
}
