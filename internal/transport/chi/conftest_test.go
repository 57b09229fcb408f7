package chi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/statutefinder/internal/catalog"
	"github.com/kailas-cloud/statutefinder/internal/domain"
	domusage "github.com/kailas-cloud/statutefinder/internal/domain/usage"
	healthuc "github.com/kailas-cloud/statutefinder/internal/usecase/health"
	"github.com/kailas-cloud/statutefinder/internal/usecase/narrowing"
	"github.com/kailas-cloud/statutefinder/internal/usecase/ranker"
	"github.com/kailas-cloud/statutefinder/internal/usecase/session"
)

type mockNarrower struct {
	runFn    func(ctx context.Context, strategy narrowing.Strategy, query string, corpus []string, opts narrowing.Options) (narrowing.Result, error)
	rerankFn func(ctx context.Context, query string, shortlist []string, opts narrowing.Options) ([]string, error)
	chooseFn func(ctx context.Context, query string, candidates []string, opts narrowing.Options) (string, error)
	hybridFn func(ctx context.Context, req narrowing.HybridRequest) ([]narrowing.SectionScore, error)
}

func (m *mockNarrower) Run(ctx context.Context, strategy narrowing.Strategy, query string, corpus []string, opts narrowing.Options) (narrowing.Result, error) {
	return m.runFn(ctx, strategy, query, corpus, opts)
}

func (m *mockNarrower) Rerank(ctx context.Context, query string, shortlist []string, opts narrowing.Options) ([]string, error) {
	return m.rerankFn(ctx, query, shortlist, opts)
}

func (m *mockNarrower) MultiThenOne(ctx context.Context, query string, candidates []string, opts narrowing.Options) (string, error) {
	return m.chooseFn(ctx, query, candidates, opts)
}

func (m *mockNarrower) HybridSections(ctx context.Context, req narrowing.HybridRequest) ([]narrowing.SectionScore, error) {
	return m.hybridFn(ctx, req)
}

type mockRanker struct {
	scored []ranker.Scored
	err    error
	corpus string
	topN   int
}

func (m *mockRanker) Rank(_ context.Context, _, corpusID string, topN int) ([]ranker.Scored, error) {
	m.corpus, m.topN = corpusID, topN
	return m.scored, m.err
}

type mockSessions struct {
	sessions map[string]session.Session
	reply    session.Reply
	err      error
	last     session.Command
}

func (m *mockSessions) Start(_ context.Context, query string) (session.Session, error) {
	s := session.Session{ID: "sess-1", Query: query}
	m.sessions[s.ID] = s
	return s, nil
}

func (m *mockSessions) Get(id string) (session.Session, bool) {
	s, ok := m.sessions[id]
	return s, ok
}

func (m *mockSessions) End(id string) bool {
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	return ok
}

func (m *mockSessions) Dispatch(_ context.Context, id string, cmd session.Command) (session.Reply, error) {
	m.last = cmd
	if _, ok := m.sessions[id]; !ok {
		return session.Reply{}, domain.ErrSessionNotFound
	}
	return m.reply, m.err
}

type mockCatalog struct {
	rows map[string][]catalog.Statute
}

func (m *mockCatalog) Names() []string {
	return []string{"Residential Tenancy Act", "Family Law Act", "Motor Vehicle Act"}
}

func (m *mockCatalog) Lookup(name string) ([]catalog.Statute, bool) {
	rows, ok := m.rows[name]
	return rows, ok
}

type mockUsage struct {
	reports map[string]domusage.Report
}

func (m *mockUsage) GetReports(_ context.Context, _ domusage.Period) []domusage.Report {
	out := make([]domusage.Report, 0, len(m.reports))
	for _, scope := range []string{"completion", "embedding"} {
		if r, ok := m.reports[scope]; ok {
			out = append(out, r)
		}
	}
	return out
}

func (m *mockUsage) GetReport(_ context.Context, scope string, _ domusage.Period) (domusage.Report, bool) {
	r, ok := m.reports[scope]
	return r, ok
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(_ context.Context) healthuc.Report { return m.report }

type fixture struct {
	narrower *mockNarrower
	ranker   *mockRanker
	sessions *mockSessions
	usage    *mockUsage
	health   *mockHealth
	deps     Deps
}

func newFixture() *fixture {
	f := &fixture{
		narrower: &mockNarrower{},
		ranker:   &mockRanker{},
		sessions: &mockSessions{sessions: map[string]session.Session{}},
		usage:    &mockUsage{reports: map[string]domusage.Report{}},
		health: &mockHealth{report: healthuc.Report{
			Status: healthuc.Healthy,
			Checks: map[string]healthuc.CheckResult{"completion": healthuc.CheckOK},
		}},
	}
	f.deps = Deps{
		Narrowing: narrowing.DefaultOptions(),
		CorpusID:  "statute_names",
		Narrower:  f.narrower,
		Ranker:    f.ranker,
		Sessions:  f.sessions,
		Catalog: &mockCatalog{rows: map[string][]catalog.Statute{
			"Evidence Act": {
				{Name: "Evidence Act", Citation: "RSBC 1996, c. 124"},
			},
		}},
		Usage:  f.usage,
		Health: f.health,
	}
	return f
}

func (f *fixture) handler() http.Handler {
	return NewServer(f.deps, zap.NewNop()).Handler()
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.handler().ServeHTTP(rec, req)
	return rec
}

func stringReader(s string) *strings.Reader { return strings.NewReader(s) }
