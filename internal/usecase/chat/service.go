// Package chat orchestrates the request pipeline: retrieval, response cache,
// limiter-guarded generation with a wall-clock budget.
package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nutrisolve/nutrichat/internal/cache"
	"github.com/nutrisolve/nutrichat/internal/domain"
	"github.com/nutrisolve/nutrichat/internal/index"
)

const (
	defaultTopN    = 3
	defaultTimeout = 45 * time.Second
)

// Service handles one chat message end to end.
type Service struct {
	search     Searcher
	cache      Cache
	gen        Generator
	limiter    Runner
	topN       int
	timeout    time.Duration
	cacheTotal *prometheus.CounterVec
}

// New creates a chat service.
func New(search Searcher, c Cache, gen Generator, limiter Runner) *Service {
	return &Service{
		search:  search,
		cache:   c,
		gen:     gen,
		limiter: limiter,
		topN:    defaultTopN,
		timeout: defaultTimeout,
	}
}

// WithRetrieval overrides how many records feed the prompt context.
func (s *Service) WithRetrieval(topN int) *Service {
	if topN > 0 {
		s.topN = topN
	}
	return s
}

// WithTimeout overrides the generation wall-clock budget.
func (s *Service) WithTimeout(d time.Duration) *Service {
	if d > 0 {
		s.timeout = d
	}
	return s
}

// WithCacheCounter publishes cache hits/misses to a counter vec with label
// "result" ("hit"/"miss"), passed explicitly.
func (s *Service) WithCacheCounter(cv *prometheus.CounterVec) *Service {
	s.cacheTotal = cv
	return s
}

// Chat answers one user message. Blank messages fail with ErrEmptyMessage
// before any cache or limiter interaction. On a cache miss the generation
// task runs under the limiter and races a wall-clock timer: if the timer
// wins, the call fails with ErrGenerationTimeout and the task is abandoned,
// not cancelled: it keeps the slot until the inference call settles, and
// its eventual result is discarded. Elapsed is set on both success and
// failure.
func (s *Service) Chat(ctx context.Context, message string) (domain.ChatResult, error) {
	start := time.Now()

	if strings.TrimSpace(message) == "" {
		return domain.ChatResult{}, domain.ErrEmptyMessage
	}

	matches := s.search.Search(message, s.topN)
	contextText := SerializeContext(matches)

	key := cache.Fingerprint(message, contextText)
	if resp, ok := s.cache.Get(ctx, key); ok {
		s.incCache("hit")
		return domain.ChatResult{Text: resp, FromCache: true, Elapsed: time.Since(start)}, nil
	}
	s.incCache("miss")

	type genOut struct {
		text string
		err  error
	}
	resultCh := make(chan genOut, 1) // buffered: the loser of the race must not leak the goroutine

	// The task outlives a timed-out request, so it runs on a context that
	// survives request cancellation.
	genCtx := context.WithoutCancel(ctx)
	go func() {
		var out genOut
		out.err = s.limiter.Do(genCtx, func() error {
			res, err := s.gen.Generate(genCtx, message, contextText)
			if err != nil {
				return err
			}
			out.text = res.Text
			return nil
		})
		resultCh <- out
	}()

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	select {
	case out := <-resultCh:
		if out.err != nil {
			return domain.ChatResult{Elapsed: time.Since(start)}, out.err
		}
		s.cache.Set(ctx, key, out.text)
		return domain.ChatResult{Text: out.text, FromCache: false, Elapsed: time.Since(start)}, nil
	case <-timer.C:
		return domain.ChatResult{Elapsed: time.Since(start)},
			fmt.Errorf("no response within %s: %w", s.timeout, domain.ErrGenerationTimeout)
	case <-ctx.Done():
		return domain.ChatResult{Elapsed: time.Since(start)}, ctx.Err()
	}
}

// SerializeContext renders retrieval matches into the prompt context block.
// Deterministic for a given match sequence: the cache fingerprint depends on it.
func SerializeContext(matches []index.Match) string {
	if len(matches) == 0 {
		return ""
	}
	var b strings.Builder
	for _, m := range matches {
		rec := m.Record
		b.WriteString("- ")
		b.WriteString(rec.Description)
		if rec.Category != "" {
			b.WriteString(" (")
			b.WriteString(rec.Category)
			b.WriteString(")")
		}
		n := rec.Nutrients
		if n.Calories > 0 || n.ProteinG > 0 {
			fmt.Fprintf(&b, ": %.0f kcal, %.1fg protein, %.1fg carbs, %.1fg fat",
				n.Calories, n.ProteinG, n.CarbsG, n.FatG)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (s *Service) incCache(result string) {
	if s.cacheTotal != nil {
		s.cacheTotal.WithLabelValues(result).Inc()
	}
}
