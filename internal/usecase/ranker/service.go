// Package ranker orders a corpus by embedding similarity to a query.
package ranker

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/statutefinder/internal/domain"
)

// DefaultBuildBatchSize is how many corpus texts go into one embedding request.
const DefaultBuildBatchSize = 5

// Scored is one corpus entry with its similarity to the query.
type Scored struct {
	Text  string
	Score float64
}

// Service ranks corpora against queries using stored embedding tables.
type Service struct {
	embed     Embedder
	tables    TableStore
	batchSize int
	logger    *zap.Logger

	group singleflight.Group
	mu    sync.RWMutex
	cache map[string]domain.EmbeddingTable
}

// New creates a ranker.
func New(embed Embedder, tables TableStore, logger *zap.Logger) *Service {
	return &Service{
		embed:     embed,
		tables:    tables,
		batchSize: DefaultBuildBatchSize,
		logger:    logger,
		cache:     make(map[string]domain.EmbeddingTable),
	}
}

// WithBuildBatchSize configures the embedding request size used when building tables.
func (s *Service) WithBuildBatchSize(n int) *Service {
	if n > 0 {
		s.batchSize = n
	}
	return s
}

// EnsureTable returns the table for corpusID, building it when it is missing or
// no longer matches corpus. Concurrent callers for the same corpus share one build.
func (s *Service) EnsureTable(ctx context.Context, corpusID string, corpus []string) (domain.EmbeddingTable, error) {
	if t, ok := s.cached(corpusID); ok && t.Covers(corpus) {
		return t, nil
	}

	v, err, shared := s.group.Do(corpusID, func() (any, error) {
		t, ok, err := s.tables.Load(ctx, corpusID)
		if err != nil {
			s.logger.Warn("Unreadable embedding table, rebuilding", zap.String("corpus", corpusID), zap.Error(err))
		}
		if ok && t.Covers(corpus) {
			s.store(t)
			return t, nil
		}
		if ok {
			s.logger.Info("Embedding table is stale, rebuilding",
				zap.String("corpus", corpusID),
				zap.Int("stored_rows", t.Len()),
				zap.Int("corpus_rows", len(corpus)),
			)
		}

		t, err = s.build(ctx, corpusID, corpus)
		if err != nil {
			return domain.EmbeddingTable{}, err
		}
		if err := s.tables.Save(ctx, t); err != nil {
			return domain.EmbeddingTable{}, fmt.Errorf("save table: %w", err)
		}
		s.store(t)
		return t, nil
	})
	if err != nil {
		return domain.EmbeddingTable{}, fmt.Errorf("ensure table %s: %w", corpusID, err)
	}
	if shared {
		s.logger.Debug("Shared embedding table build", zap.String("corpus", corpusID))
	}
	return v.(domain.EmbeddingTable), nil
}

// Rank scores the stored table for corpusID against query and returns the
// topN best entries (all when topN <= 0). Ties keep corpus order.
func (s *Service) Rank(ctx context.Context, query, corpusID string, topN int) ([]Scored, error) {
	t, ok := s.cached(corpusID)
	if !ok {
		var err error
		t, ok, err = s.tables.Load(ctx, corpusID)
		if err != nil {
			return nil, fmt.Errorf("load table %s: %w", corpusID, err)
		}
		if !ok {
			return nil, fmt.Errorf("corpus %s: %w", corpusID, domain.ErrTableNotFound)
		}
		s.store(t)
	}
	return s.rank(ctx, t, query, topN)
}

// RankCorpus ensures the table exists for corpus and ranks it.
func (s *Service) RankCorpus(ctx context.Context, query, corpusID string, corpus []string, topN int) ([]Scored, error) {
	t, err := s.EnsureTable(ctx, corpusID, corpus)
	if err != nil {
		return nil, err
	}
	return s.rank(ctx, t, query, topN)
}

func (s *Service) rank(ctx context.Context, t domain.EmbeddingTable, query string, topN int) ([]Scored, error) {
	if query == "" {
		return nil, fmt.Errorf("empty query: %w", domain.ErrInvalidInput)
	}
	q, err := s.embed.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	scored := make([]Scored, len(t.Rows))
	for i, r := range t.Rows {
		scored[i] = Scored{Text: r.Text, Score: Cosine(q.Embedding, r.Vector)}
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

	if topN > 0 && topN < len(scored) {
		scored = scored[:topN]
	}
	return scored, nil
}

// build embeds corpus in fixed-size requests, preserving order.
func (s *Service) build(ctx context.Context, corpusID string, corpus []string) (domain.EmbeddingTable, error) {
	if len(corpus) == 0 {
		return domain.EmbeddingTable{}, fmt.Errorf("corpus %s: %w", corpusID, domain.ErrEmptyCandidates)
	}
	rows := make([]domain.EmbeddingRow, 0, len(corpus))
	tokens := 0
	for start := 0; start < len(corpus); start += s.batchSize {
		end := min(start+s.batchSize, len(corpus))
		res, err := domain.EmbedMany(ctx, s.embed, corpus[start:end])
		if err != nil {
			return domain.EmbeddingTable{}, fmt.Errorf("embed rows %d-%d: %w", start, end-1, err)
		}
		for i, vec := range res.Embeddings {
			rows = append(rows, domain.EmbeddingRow{Text: corpus[start+i], Vector: vec})
		}
		tokens += res.TotalTokens
	}
	s.logger.Info("Embedding table built",
		zap.String("corpus", corpusID),
		zap.Int("rows", len(rows)),
		zap.Int("tokens", tokens),
	)
	return domain.EmbeddingTable{CorpusID: corpusID, Rows: rows}, nil
}

func (s *Service) cached(corpusID string) (domain.EmbeddingTable, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.cache[corpusID]
	return t, ok
}

func (s *Service) store(t domain.EmbeddingTable) {
	s.mu.Lock()
	s.cache[t.CorpusID] = t
	s.mu.Unlock()
}
