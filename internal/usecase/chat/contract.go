package chat

import (
	"context"

	"github.com/nutrisolve/nutrichat/internal/domain"
	"github.com/nutrisolve/nutrichat/internal/index"
)

// Searcher ranks food records by relevance to a query.
type Searcher interface {
	Search(query string, topN int) []index.Match
}

// Cache is the response cache contract the orchestrator consumes.
type Cache interface {
	Get(ctx context.Context, key string) (response string, ok bool)
	Set(ctx context.Context, key, response string)
}

// Generator produces a completion for a message given retrieval context.
type Generator interface {
	Generate(ctx context.Context, message, contextText string) (domain.GenerationResult, error)
}

// Runner serializes access to the generation slot.
type Runner interface {
	Do(ctx context.Context, task func() error) error
}
