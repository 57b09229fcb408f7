package session

import (
	"context"

	"github.com/kailas-cloud/statutefinder/internal/domain"
	"github.com/kailas-cloud/statutefinder/internal/usecase/narrowing"
	"github.com/kailas-cloud/statutefinder/internal/usecase/ranker"
	"github.com/kailas-cloud/statutefinder/internal/usecase/selector"
)

// OptionSource retrieves statute names by similarity to a query.
type OptionSource interface {
	Rank(ctx context.Context, query, corpusID string, topN int) ([]ranker.Scored, error)
}

// Reranker reorders a shortlist by relevance.
type Reranker interface {
	Rerank(ctx context.Context, query string, shortlist []string, opts narrowing.Options) ([]string, error)
}

// Picker recommends one option.
type Picker interface {
	PickOne(ctx context.Context, req selector.Request) (string, error)
}

// Catalog resolves statute names to citations.
type Catalog interface {
	Citations(name string) ([]string, bool)
}

// ContentsSource returns the section listing of a statute.
type ContentsSource interface {
	Contents(ctx context.Context, name, citation string) (domain.ActContents, error)
}

// SectionRanker orders the sections of one act for a query.
type SectionRanker interface {
	HybridSections(ctx context.Context, req narrowing.HybridRequest) ([]narrowing.SectionScore, error)
}
