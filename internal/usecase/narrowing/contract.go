package narrowing

import (
	"context"

	"github.com/kailas-cloud/statutefinder/internal/domain"
	"github.com/kailas-cloud/statutefinder/internal/usecase/batch"
	"github.com/kailas-cloud/statutefinder/internal/usecase/ranker"
	"github.com/kailas-cloud/statutefinder/internal/usecase/selector"
)

// Selector makes constrained picks over one batch.
type Selector interface {
	PickOne(ctx context.Context, req selector.Request) (string, error)
	PickMany(ctx context.Context, req selector.Request) ([]string, error)
	PickSections(ctx context.Context, req selector.SectionRequest) ([]string, error)
}

// Partitioner splits a corpus into token-bounded batches.
type Partitioner interface {
	Partition(items []string, opts batch.Options) ([]domain.Batch, error)
}

// Ranker orders a corpus by embedding similarity.
type Ranker interface {
	RankCorpus(ctx context.Context, query, corpusID string, corpus []string, topN int) ([]ranker.Scored, error)
}
