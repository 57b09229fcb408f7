package session

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/statutefinder/internal/domain"
	"github.com/kailas-cloud/statutefinder/internal/usecase/narrowing"
	"github.com/kailas-cloud/statutefinder/internal/usecase/ranker"
	"github.com/kailas-cloud/statutefinder/internal/usecase/selector"
)

// mockOptions returns the first topN names in fixed order.
type mockOptions struct {
	names []string
	topNs []int
	err   error
}

func (m *mockOptions) Rank(_ context.Context, _, _ string, topN int) ([]ranker.Scored, error) {
	m.topNs = append(m.topNs, topN)
	if m.err != nil {
		return nil, m.err
	}
	n := min(topN, len(m.names))
	out := make([]ranker.Scored, n)
	for i := range n {
		out[i] = ranker.Scored{Text: m.names[i], Score: 1 - float64(i)/10}
	}
	return out, nil
}

// mockReranker reverses the shortlist, or lists nothing when empty is set.
type mockReranker struct {
	calls int
	empty bool
}

func (m *mockReranker) Rerank(_ context.Context, _ string, shortlist []string, _ narrowing.Options) ([]string, error) {
	m.calls++
	if m.empty {
		return []string{}, nil
	}
	out := make([]string, len(shortlist))
	for i, s := range shortlist {
		out[len(shortlist)-1-i] = s
	}
	return out, nil
}

// mockPicker picks the last candidate.
type mockPicker struct {
	last selector.Request
}

func (m *mockPicker) PickOne(_ context.Context, req selector.Request) (string, error) {
	m.last = req
	return req.Candidates[len(req.Candidates)-1], nil
}

type mockCatalog map[string][]string

func (m mockCatalog) Citations(name string) ([]string, bool) {
	c, ok := m[name]
	return c, ok
}

// mockContents serves fixed listings keyed by statute name.
type mockContents map[string]domain.ActContents

func (m mockContents) Contents(_ context.Context, name, _ string) (domain.ActContents, error) {
	c, ok := m[name]
	if !ok {
		return domain.ActContents{}, domain.ErrActNotFound
	}
	return c, nil
}

// mockSectionRanker reverses the sections with descending scores.
type mockSectionRanker struct {
	reqs []narrowing.HybridRequest
}

func (m *mockSectionRanker) HybridSections(_ context.Context, req narrowing.HybridRequest) ([]narrowing.SectionScore, error) {
	m.reqs = append(m.reqs, req)
	n := len(req.Sections)
	out := make([]narrowing.SectionScore, n)
	for i, text := range req.Sections {
		out[n-1-i] = narrowing.SectionScore{Text: text, Weighted: float64(i+1) / float64(n)}
	}
	return out, nil
}

var testSections = []string{
	"1 Definitions",
	"2 What this Act applies to",
	"15 Landlord prohibitions respecting deposits",
	"17 Limits on amount of deposits",
	"38 Return of security deposit and pet damage deposit",
}

var testNames = []string{
	"Residential Tenancy Act",
	"Strata Property Act",
	"Land Title Act",
	"Property Law Act",
	"Manufactured Home Park Tenancy Act",
	"Family Law Act",
	"Wills, Estates and Succession Act",
	"Motor Vehicle Act",
	"Employment Standards Act",
	"Limitation Act",
	"Builders Lien Act",
	"Civil Resolution Tribunal Act",
}

type fixture struct {
	mgr     *Manager
	options *mockOptions
	rerank  *mockReranker
	picker  *mockPicker
	ranker  *mockSectionRanker
	clock   *time.Time
}

func newFixture(cfg Config) fixture {
	f := fixture{
		options: &mockOptions{names: testNames},
		rerank:  &mockReranker{},
		picker:  &mockPicker{},
		ranker:  &mockSectionRanker{},
	}
	catalog := mockCatalog{
		"Residential Tenancy Act": {"SBC 2002, c. 78"},
		"Strata Property Act":     {"SBC 1998, c. 43"},
		"Evidence Act":            {"RSBC 1996, c. 124", "RSBC 1979, c. 116"},
	}
	contents := mockContents{
		"Residential Tenancy Act": {Title: "Residential Tenancy Act", CorpusID: "act_02078_01", Sections: testSections},
	}
	f.mgr = NewManager(f.options, f.rerank, f.picker, catalog, cfg, zap.NewNop()).
		WithSections(contents, f.ranker)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f.clock = &now
	f.mgr.now = func() time.Time { return *f.clock }
	return f
}
