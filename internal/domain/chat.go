package domain

import (
	"context"
	"time"
)

// ChatResult is the outcome of one chat pipeline run.
type ChatResult struct {
	Text      string
	FromCache bool
	Elapsed   time.Duration
}

// GenerationResult is a completed inference call.
type GenerationResult struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Generator produces an answer for a user message given retrieved
// food context.
type Generator interface {
	Generate(ctx context.Context, message, contextText string) (GenerationResult, error)
}
