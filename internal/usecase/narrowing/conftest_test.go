package narrowing

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/statutefinder/internal/usecase/batch"
	"github.com/kailas-cloud/statutefinder/internal/usecase/ranker"
	"github.com/kailas-cloud/statutefinder/internal/usecase/selector"
)

// wordCounter counts whitespace-separated words as tokens.
type wordCounter struct{}

func (wordCounter) TokenCount(s string) int { return len(strings.Fields(s)) }

// fakeSelector answers with scripted functions and records every request.
type fakeSelector struct {
	mu       sync.Mutex
	many     func(req selector.Request) ([]string, error)
	one      func(req selector.Request) (string, error)
	sections func(req selector.SectionRequest) ([]string, error)

	manyCalls    []selector.Request
	oneCalls     []selector.Request
	sectionCalls []selector.SectionRequest
}

func (f *fakeSelector) PickMany(_ context.Context, req selector.Request) ([]string, error) {
	f.mu.Lock()
	f.manyCalls = append(f.manyCalls, req)
	f.mu.Unlock()
	return f.many(req)
}

func (f *fakeSelector) PickOne(_ context.Context, req selector.Request) (string, error) {
	f.mu.Lock()
	f.oneCalls = append(f.oneCalls, req)
	f.mu.Unlock()
	return f.one(req)
}

func (f *fakeSelector) PickSections(_ context.Context, req selector.SectionRequest) ([]string, error) {
	f.mu.Lock()
	f.sectionCalls = append(f.sectionCalls, req)
	f.mu.Unlock()
	return f.sections(req)
}

// fakeRanker scores texts from a fixed table.
type fakeRanker struct {
	scores map[string]float64
	calls  int
}

func (f *fakeRanker) RankCorpus(_ context.Context, _, _ string, corpus []string, topN int) ([]ranker.Scored, error) {
	f.calls++
	out := make([]ranker.Scored, 0, len(corpus))
	for _, t := range corpus {
		out = append(out, ranker.Scored{Text: t, Score: f.scores[t]})
	}
	slices.SortStableFunc(out, func(a, b ranker.Scored) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})
	if topN > 0 && topN < len(out) {
		out = out[:topN]
	}
	return out, nil
}

func newTestService(sel *fakeSelector, rank Ranker) *Service {
	return New(sel, batch.New(wordCounter{}), rank, zap.NewNop())
}

// testOptions gives deterministic batches of four one-word statutes.
func testOptions() Options {
	opts := DefaultOptions()
	opts.BatchTokenSize = 4
	opts.RandomizeOrder = false
	return opts
}

func statutes(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("s%02d", i)
	}
	return out
}
