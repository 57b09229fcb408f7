package embcache

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/statutefinder/internal/db"
	"github.com/kailas-cloud/statutefinder/internal/domain"
)

// fakeEmbedder returns vec for every text and records each batch it receives.
type fakeEmbedder struct {
	vec     []float32
	tokens  int
	err     error
	batches [][]string
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	f.batches = append(f.batches, []string{text})
	if f.err != nil {
		return domain.EmbeddingResult{}, f.err
	}
	return domain.EmbeddingResult{Embedding: f.vec, PromptTokens: f.tokens, TotalTokens: f.tokens}, nil
}

func (f *fakeEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	f.batches = append(f.batches, append([]string(nil), texts...))
	if f.err != nil {
		return domain.BatchEmbeddingResult{}, f.err
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = f.vec
	}
	n := f.tokens * len(texts)
	return domain.BatchEmbeddingResult{Embeddings: out, PromptTokens: n, TotalTokens: n}, nil
}

// memStore is an in-memory store. getErr and setErr fail every call.
type memStore struct {
	data   map[string][]byte
	items  []db.Item
	getErr error
	setErr error
}

func newMemStore() *memStore {
	return &memStore{data: map[string][]byte{}}
}

func (m *memStore) GetMulti(_ context.Context, keys []string) ([][]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	out := make([][]byte, len(keys))
	for i, k := range keys {
		out[i] = m.data[k]
	}
	return out, nil
}

func (m *memStore) SetMulti(_ context.Context, items []db.Item) error {
	if m.setErr != nil {
		return m.setErr
	}
	for _, it := range items {
		m.data[it.Key] = it.Value
		m.items = append(m.items, it)
	}
	return nil
}

func newCounter() *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_cache_total"}, []string{"result"})
}

func newTestCache(t *testing.T, inner domain.Embedder) (*CachedEmbedder, *memStore, *prometheus.CounterVec) {
	t.Helper()
	ms := newMemStore()
	counter := newCounter()
	return New(inner, ms, "text-embedding-3-small", counter, zap.NewNop()), ms, counter
}
