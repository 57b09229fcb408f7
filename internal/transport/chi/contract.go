package chi

import (
	"context"

	"github.com/kailas-cloud/statutefinder/internal/catalog"
	domusage "github.com/kailas-cloud/statutefinder/internal/domain/usage"
	healthuc "github.com/kailas-cloud/statutefinder/internal/usecase/health"
	"github.com/kailas-cloud/statutefinder/internal/usecase/narrowing"
	"github.com/kailas-cloud/statutefinder/internal/usecase/ranker"
	"github.com/kailas-cloud/statutefinder/internal/usecase/session"
)

// Narrower runs the narrowing strategies.
type Narrower interface {
	Run(ctx context.Context, strategy narrowing.Strategy, query string, corpus []string, opts narrowing.Options) (narrowing.Result, error)
	Rerank(ctx context.Context, query string, shortlist []string, opts narrowing.Options) ([]string, error)
	MultiThenOne(ctx context.Context, query string, candidates []string, opts narrowing.Options) (string, error)
	HybridSections(ctx context.Context, req narrowing.HybridRequest) ([]narrowing.SectionScore, error)
}

// OptionRanker scores the statute name table against a query.
type OptionRanker interface {
	Rank(ctx context.Context, query, corpusID string, topN int) ([]ranker.Scored, error)
}

// Sessions manages interactive statute searches.
type Sessions interface {
	Start(ctx context.Context, query string) (session.Session, error)
	Get(id string) (session.Session, bool)
	End(id string) bool
	Dispatch(ctx context.Context, id string, cmd session.Command) (session.Reply, error)
}

// StatuteCatalog lists and resolves statutes.
type StatuteCatalog interface {
	Names() []string
	Lookup(name string) ([]catalog.Statute, bool)
}

// UsageReporter reads budget usage per scope.
type UsageReporter interface {
	GetReports(ctx context.Context, period domusage.Period) []domusage.Report
	GetReport(ctx context.Context, scope string, period domusage.Period) (domusage.Report, bool)
}

// HealthChecker aggregates component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}
