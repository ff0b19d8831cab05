package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nutrisolve/nutrichat/internal/domain"
	"github.com/nutrisolve/nutrichat/internal/index"
)

// --- Mocks ---

type mockSearcher struct {
	matches []index.Match
	called  bool
}

func (m *mockSearcher) Search(_ string, _ int) []index.Match {
	m.called = true
	return m.matches
}

type mockCache struct {
	mu      sync.Mutex
	store   map[string]string
	gets    int
	sets    int
	lastKey string
}

func newMockCache() *mockCache {
	return &mockCache{store: make(map[string]string)}
}

func (m *mockCache) Get(_ context.Context, key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	m.lastKey = key
	v, ok := m.store[key]
	return v, ok
}

func (m *mockCache) Set(_ context.Context, key, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	m.store[key] = response
}

type mockGenerator struct {
	mu     sync.Mutex
	text   string
	err    error
	delay  time.Duration
	calls  int
	gotMsg string
	gotCtx string
}

func (m *mockGenerator) Generate(_ context.Context, message, contextText string) (domain.GenerationResult, error) {
	m.mu.Lock()
	m.calls++
	m.gotMsg = message
	m.gotCtx = contextText
	delay := m.delay
	m.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
	if m.err != nil {
		return domain.GenerationResult{}, m.err
	}
	return domain.GenerationResult{Text: m.text, TotalTokens: 10}, nil
}

func (m *mockGenerator) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// passthroughRunner runs the task inline.
type passthroughRunner struct{ calls int }

func (r *passthroughRunner) Do(_ context.Context, task func() error) error {
	r.calls++
	return task()
}

func testMatches() []index.Match {
	return []index.Match{
		{Record: domain.FoodRecord{Description: "Chicken breast, grilled", Category: "proteins",
			Nutrients: domain.Nutrients{Calories: 165, ProteinG: 31}}, Score: 0.9},
		{Record: domain.FoodRecord{Description: "Lentils, cooked", Category: "legumes",
			Nutrients: domain.Nutrients{Calories: 116, ProteinG: 9, CarbsG: 20}}, Score: 0.5},
	}
}

func newTestService(search *mockSearcher, c *mockCache, gen *mockGenerator) *Service {
	return New(search, c, gen, &passthroughRunner{})
}

// --- Tests ---

func TestChat_EmptyMessageRejectedBeforePipeline(t *testing.T) {
	search := &mockSearcher{}
	c := newMockCache()
	gen := &mockGenerator{text: "x"}
	svc := newTestService(search, c, gen)

	for _, msg := range []string{"", "   ", "\n\t"} {
		_, err := svc.Chat(context.Background(), msg)
		if !errors.Is(err, domain.ErrEmptyMessage) {
			t.Fatalf("Chat(%q) err = %v, want ErrEmptyMessage", msg, err)
		}
	}

	if search.called {
		t.Error("retrieval must not run for an empty message")
	}
	if c.gets != 0 {
		t.Error("cache must not be touched for an empty message")
	}
	if gen.callCount() != 0 {
		t.Error("generator must not run for an empty message")
	}
}

func TestChat_MissThenHit(t *testing.T) {
	search := &mockSearcher{matches: testMatches()}
	c := newMockCache()
	gen := &mockGenerator{text: "Eat more lentils."}
	svc := newTestService(search, c, gen)

	first, err := svc.Chat(context.Background(), "high protein breakfast")
	if err != nil {
		t.Fatalf("first Chat: %v", err)
	}
	if first.FromCache {
		t.Error("first call must be a miss")
	}
	if first.Text != "Eat more lentils." {
		t.Errorf("first text = %q", first.Text)
	}

	second, err := svc.Chat(context.Background(), "high protein breakfast")
	if err != nil {
		t.Fatalf("second Chat: %v", err)
	}
	if !second.FromCache {
		t.Error("second identical call must hit the cache")
	}
	if second.Text != first.Text {
		t.Errorf("cached text = %q, want %q", second.Text, first.Text)
	}
	if gen.callCount() != 1 {
		t.Errorf("generator calls = %d, want 1", gen.callCount())
	}
}

func TestChat_ContextFeedsPromptAndKey(t *testing.T) {
	search := &mockSearcher{matches: testMatches()}
	c := newMockCache()
	gen := &mockGenerator{text: "ok"}
	svc := newTestService(search, c, gen)

	if _, err := svc.Chat(context.Background(), "dinner ideas"); err != nil {
		t.Fatalf("Chat: %v", err)
	}

	if !strings.Contains(gen.gotCtx, "Chicken breast, grilled (proteins)") {
		t.Errorf("generator context missing record: %q", gen.gotCtx)
	}
	if gen.gotMsg != "dinner ideas" {
		t.Errorf("generator message = %q", gen.gotMsg)
	}

	// A different retrieval result must produce a different cache key.
	firstKey := c.lastKey
	search.matches = nil
	if _, err := svc.Chat(context.Background(), "dinner ideas"); err != nil {
		t.Fatalf("Chat with changed dataset: %v", err)
	}
	if c.lastKey == firstKey {
		t.Error("cache key must change when retrieval context changes")
	}
}

func TestChat_GenerationErrorSurfaced(t *testing.T) {
	search := &mockSearcher{}
	c := newMockCache()
	gen := &mockGenerator{err: domain.ErrGenerationUpstream}
	svc := newTestService(search, c, gen)

	res, err := svc.Chat(context.Background(), "anything")
	if !errors.Is(err, domain.ErrGenerationUpstream) {
		t.Fatalf("err = %v, want ErrGenerationUpstream", err)
	}
	if res.Elapsed <= 0 {
		t.Error("elapsed must be reported on failure")
	}
	if c.sets != 0 {
		t.Error("failed generation must not populate the cache")
	}

	// The failure is isolated: the next request goes through cleanly.
	gen.err = nil
	gen.text = "recovered"
	if out, err := svc.Chat(context.Background(), "anything"); err != nil || out.Text != "recovered" {
		t.Fatalf("follow-up Chat = (%+v, %v)", out, err)
	}
}

func TestChat_TimeoutWinsRace(t *testing.T) {
	search := &mockSearcher{}
	c := newMockCache()
	gen := &mockGenerator{text: "slow answer", delay: 200 * time.Millisecond}
	svc := newTestService(search, c, gen).WithTimeout(20 * time.Millisecond)

	start := time.Now()
	_, err := svc.Chat(context.Background(), "anything")
	if !errors.Is(err, domain.ErrGenerationTimeout) {
		t.Fatalf("err = %v, want ErrGenerationTimeout", err)
	}
	if time.Since(start) > 150*time.Millisecond {
		t.Error("timeout did not fire near the budget")
	}

	// The abandoned task's late result is discarded: no cache write.
	time.Sleep(300 * time.Millisecond)
	if c.sets != 0 {
		t.Error("late completion of a timed-out task must have no effect")
	}
}

func TestChat_RunsUnderLimiter(t *testing.T) {
	search := &mockSearcher{}
	c := newMockCache()
	gen := &mockGenerator{text: "ok"}
	runner := &passthroughRunner{}
	svc := New(search, c, gen, runner)

	if _, err := svc.Chat(context.Background(), "anything"); err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if runner.calls != 1 {
		t.Errorf("limiter runs = %d, want 1", runner.calls)
	}

	// Hits skip the limiter entirely.
	if _, err := svc.Chat(context.Background(), "anything"); err != nil {
		t.Fatalf("cached Chat: %v", err)
	}
	if runner.calls != 1 {
		t.Errorf("limiter runs after hit = %d, want still 1", runner.calls)
	}
}

func TestSerializeContext_Empty(t *testing.T) {
	if got := SerializeContext(nil); got != "" {
		t.Errorf("SerializeContext(nil) = %q, want empty", got)
	}
}

func TestSerializeContext_Deterministic(t *testing.T) {
	a := SerializeContext(testMatches())
	b := SerializeContext(testMatches())
	if a != b {
		t.Error("context serialization must be deterministic")
	}
	if !strings.Contains(a, "165 kcal") {
		t.Errorf("serialized context missing nutrients: %q", a)
	}
}
