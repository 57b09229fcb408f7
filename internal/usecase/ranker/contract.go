package ranker

import (
	"context"

	"github.com/kailas-cloud/statutefinder/internal/domain"
)

// Embedder vectorizes queries and corpus texts.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// TableStore persists embedding tables per corpus.
type TableStore interface {
	Load(ctx context.Context, corpusID string) (domain.EmbeddingTable, bool, error)
	Save(ctx context.Context, table domain.EmbeddingTable) error
}
