// Package openai produces alert narratives with an OpenAI chat model.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/couchcryptid/agalert-service/internal/domain"
	"github.com/couchcryptid/agalert-service/internal/observability"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4o-mini"

const systemPrompt = "You are an agricultural extension assistant for farmers in Bihar, India. " +
	"You explain weather alerts in plain, practical language."

// Config configures an Enhancer.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	// RatePerSecond caps requests to the API. Zero or less disables the limit.
	RatePerSecond float64
}

// Enhancer implements domain.Enhancer with the chat completions API.
type Enhancer struct {
	client  *goopenai.Client
	model   string
	limiter *rate.Limiter
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewEnhancer creates an OpenAI-backed enhancer.
func NewEnhancer(cfg Config, metrics *observability.Metrics, logger *slog.Logger) *Enhancer {
	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	return &Enhancer{
		client:  goopenai.NewClientWithConfig(clientCfg),
		model:   model,
		limiter: rate.NewLimiter(limit, 1),
		metrics: metrics,
		logger:  logger,
	}
}

// Enhance asks the model for a narrative of the alert. It waits for the rate
// limiter, so a cancelled or expiring ctx fails fast.
func (e *Enhancer) Enhance(ctx context.Context, alert domain.Alert) (domain.Narrative, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		e.metrics.Enhancements.WithLabelValues("rate_limited").Inc()
		return domain.Narrative{}, fmt.Errorf("rate limit: %w", err)
	}

	prompt, err := buildPrompt(alert)
	if err != nil {
		return domain.Narrative{}, err
	}

	start := time.Now()
	resp, err := e.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: e.model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: goopenai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &goopenai.ChatCompletionResponseFormat{Type: goopenai.ChatCompletionResponseFormatTypeJSONObject},
		Temperature:    0.3,
	})
	e.metrics.EnhancementDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		e.metrics.Enhancements.WithLabelValues("error").Inc()
		return domain.Narrative{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		e.metrics.Enhancements.WithLabelValues("error").Inc()
		return domain.Narrative{}, errors.New("chat completion returned no choices")
	}

	n, err := parseNarrative(resp.Choices[0].Message.Content)
	if err != nil {
		e.metrics.Enhancements.WithLabelValues("error").Inc()
		return domain.Narrative{}, err
	}
	e.metrics.Enhancements.WithLabelValues("success").Inc()
	e.logger.Debug("narrative generated", "alert_id", alert.ID, "model", e.model, "tokens", resp.Usage.TotalTokens)
	return n, nil
}

// reply is the JSON object the model is asked to return.
type reply struct {
	Alert           string `json:"alert"`
	Impact          string `json:"impact"`
	Recommendations string `json:"recommendations"`
}

func parseNarrative(content string) (domain.Narrative, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimSuffix(strings.TrimPrefix(content, "```"), "```")

	var r reply
	if err := json.Unmarshal([]byte(content), &r); err != nil {
		return domain.Narrative{}, fmt.Errorf("decode narrative: %w", err)
	}
	n := domain.Narrative{
		Summary: strings.TrimSpace(r.Alert),
		Impact:  strings.TrimSpace(r.Impact),
		Advice:  strings.TrimSpace(r.Recommendations),
	}
	if n.Summary == "" {
		return domain.Narrative{}, errors.New("decode narrative: empty alert field")
	}
	return n, nil
}

// promptAlert is the subset of an alert the model sees.
type promptAlert struct {
	District        string                      `json:"district"`
	Crop            string                      `json:"crop,omitempty"`
	Stage           string                      `json:"growth_stage,omitempty"`
	Season          domain.Season               `json:"season"`
	Severity        domain.Severity             `json:"severity"`
	Recommendations []string                    `json:"rule_recommendations"`
	Forecast        []domain.WeatherObservation `json:"forecast"`
}

func buildPrompt(alert domain.Alert) (string, error) {
	recs := make([]string, len(alert.Recommendations))
	for i, r := range alert.Recommendations {
		if r.Day > 0 {
			recs[i] = fmt.Sprintf("Day %d: %s", r.Day, r.Text)
			continue
		}
		recs[i] = r.Text
	}
	payload, err := json.Marshal(promptAlert{
		District:        alert.District,
		Crop:            alert.Crop,
		Stage:           alert.Stage,
		Season:          alert.Season,
		Severity:        alert.Severity,
		Recommendations: recs,
		Forecast:        alert.Observations,
	})
	if err != nil {
		return "", fmt.Errorf("encode prompt: %w", err)
	}

	var b strings.Builder
	b.WriteString("A rule engine produced this weather alert for farmers in Bihar:\n")
	b.Write(payload)
	b.WriteString("\n\nExplain it for the farmer. Keep the severity unchanged and do not invent new hazards. ")
	b.WriteString("Respond with only a JSON object of the form ")
	b.WriteString(`{"alert": "one-sentence summary", "impact": "likely effect on the crop", "recommendations": "what to do, in order"}`)
	b.WriteString(". Use plain sentences without markdown.")
	return b.String(), nil
}
