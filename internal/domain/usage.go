package domain

import (
	"context"
	"sync"
)

type usageKey struct{}

// Usage collects token usage for a single HTTP request.
// The handler puts a mutable pointer into the context before calling the service;
// decorators write after each provider call; the handler reads it for response headers.
// Batches may run concurrently, so writes are locked.
type Usage struct {
	mu               sync.Mutex
	promptTokens     int
	completionTokens int
	embeddingTokens  int
	calls            int
}

// NewContextWithUsage returns a context with an embedded usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *Usage) {
	u := &Usage{}
	return context.WithValue(ctx, usageKey{}, u), u
}

// UsageFromContext extracts the usage collector from context. Returns nil if not set.
func UsageFromContext(ctx context.Context) *Usage {
	u, _ := ctx.Value(usageKey{}).(*Usage)
	return u
}

// AddCompletion records one completion call.
func (u *Usage) AddCompletion(prompt, completion int) {
	if u == nil {
		return
	}
	u.mu.Lock()
	u.promptTokens += prompt
	u.completionTokens += completion
	u.calls++
	u.mu.Unlock()
}

// AddEmbedding records embedding tokens. Cache hits record zero.
func (u *Usage) AddEmbedding(n int) {
	if u == nil {
		return
	}
	u.mu.Lock()
	u.embeddingTokens += n
	u.mu.Unlock()
}

// UsageSnapshot is a point-in-time copy of Usage.
type UsageSnapshot struct {
	PromptTokens     int
	CompletionTokens int
	EmbeddingTokens  int
	Calls            int
}

// Total sums every token kind.
func (s UsageSnapshot) Total() int {
	return s.PromptTokens + s.CompletionTokens + s.EmbeddingTokens
}

// Snapshot returns the counters collected so far.
func (u *Usage) Snapshot() UsageSnapshot {
	if u == nil {
		return UsageSnapshot{}
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return UsageSnapshot{
		PromptTokens:     u.promptTokens,
		CompletionTokens: u.completionTokens,
		EmbeddingTokens:  u.embeddingTokens,
		Calls:            u.calls,
	}
}
