// Package openai talks to a local OpenAI-compatible inference server
// (Ollama's /v1, llama.cpp server, vLLM) for chat completions.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/nutrisolve/nutrichat/internal/domain"
	"github.com/nutrisolve/nutrichat/internal/metrics"
)

// Compile-time check: Generator implements domain.Generator.
var _ domain.Generator = (*Generator)(nil)

// Generator produces chat completions via the OpenAI-compatible API.
type Generator struct {
	client      *openai.Client
	model       string
	maxTokens   int
	instruction string
	logger      *zap.Logger
}

// Config holds the inference service settings.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Instruction string
	Logger      *zap.Logger
}

// NewGenerator creates an OpenAI-compatible generation client.
func NewGenerator(cfg *Config) *Generator {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = "none" // local servers ignore the key but the client requires one
	}
	clientCfg := openai.DefaultConfig(apiKey)
	clientCfg.BaseURL = cfg.BaseURL

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Generator{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		instruction: cfg.Instruction,
		logger:      logger,
	}
}

// Generate implements domain.Generator. Issues one chat completion with the
// fixed system instruction and the composed prompt (retrieval context plus
// the user message), requesting a bounded-length completion.
func (g *Generator) Generate(ctx context.Context, message, contextText string) (domain.GenerationResult, error) {
	req := openai.ChatCompletionRequest{
		Model:     g.model,
		MaxTokens: g.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: g.instruction},
			{Role: openai.ChatMessageRoleUser, Content: composePrompt(message, contextText)},
		},
	}

	start := time.Now()

	resp, err := g.client.CreateChatCompletion(ctx, req)

	duration := time.Since(start)

	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues(g.model, "error").Inc()
		return domain.GenerationResult{}, parseAPIError(err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		metrics.GenerationRequestsTotal.WithLabelValues(g.model, "error").Inc()
		return domain.GenerationResult{}, fmt.Errorf("empty completion: %w", domain.ErrGenerationUpstream)
	}

	metrics.GenerationRequestsTotal.WithLabelValues(g.model, "success").Inc()
	metrics.GenerationRequestDuration.WithLabelValues(g.model).Observe(duration.Seconds())

	usage := resp.Usage
	if usage.TotalTokens > 0 {
		metrics.GenerationTokensTotal.WithLabelValues(g.model, "prompt").Add(float64(usage.PromptTokens))
		metrics.GenerationTokensTotal.WithLabelValues(g.model, "completion").Add(float64(usage.CompletionTokens))
		metrics.GenerationTokensTotal.WithLabelValues(g.model, "total").Add(float64(usage.TotalTokens))
	}

	return domain.GenerationResult{
		Text:             resp.Choices[0].Message.Content,
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		TotalTokens:      usage.TotalTokens,
	}, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (g *Generator) HealthCheck(ctx context.Context) error {
	if _, err := g.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// composePrompt puts the retrieval context ahead of the user question.
func composePrompt(message, contextText string) string {
	if strings.TrimSpace(contextText) == "" {
		return message
	}
	return "Relevant foods from the nutrition database:\n" + contextText + "\n\nQuestion: " + message
}

// parseAPIError extracts a human-readable error from the API response.
// All errors are wrapped with domain.ErrGenerationUpstream for correct 502 mapping.
func parseAPIError(err error) error {
	wrap := domain.ErrGenerationUpstream

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail != "" {
			return fmt.Errorf("inference API error %d: %s: %w",
				reqErr.HTTPStatusCode, detail, wrap)
		}
		return fmt.Errorf("inference API error %d: %s: %w",
			reqErr.HTTPStatusCode, string(reqErr.Body), wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("inference API error %d: %s: %w",
			apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	return fmt.Errorf("inference request failed: %w", wrap)
}

// extractDetail extracts the "error" field from a JSON error body (Ollama error format).
func extractDetail(body []byte) string {
	var parsed struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Error != "" {
		return parsed.Error
	}
	return ""
}
