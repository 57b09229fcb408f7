package ranker

import (
	"context"
	"sync"

	"github.com/kailas-cloud/statutefinder/internal/domain"
)

// mockEmbedder returns fixed vectors per text and records batch sizes.
type mockEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float32
	batches []int
	singles int
	err     error
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.singles++
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vectors[text], TotalTokens: 1}, nil
}

func (m *mockEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = append(m.batches, len(texts))
	if m.err != nil {
		return domain.BatchEmbeddingResult{}, m.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.vectors[t]
	}
	return domain.BatchEmbeddingResult{Embeddings: out, TotalTokens: len(texts)}, nil
}

func (m *mockEmbedder) batchCalls() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.batches...)
}

// memTables is an in-memory TableStore.
type memTables struct {
	mu     sync.Mutex
	tables map[string]domain.EmbeddingTable
	saves  int
}

func newMemTables() *memTables {
	return &memTables{tables: make(map[string]domain.EmbeddingTable)}
}

func (m *memTables) Load(_ context.Context, corpusID string) (domain.EmbeddingTable, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[corpusID]
	return t, ok, nil
}

func (m *memTables) Save(_ context.Context, t domain.EmbeddingTable) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[t.CorpusID] = t
	m.saves++
	return nil
}
