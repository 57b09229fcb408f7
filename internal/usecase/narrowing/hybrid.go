package narrowing

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/kailas-cloud/statutefinder/internal/domain"
	"github.com/kailas-cloud/statutefinder/internal/usecase/selector"
)

const (
	// DefaultHybridWeight is the share of embedding similarity in the hybrid score.
	DefaultHybridWeight = 0.1
	// DefaultHybridTopN is how many sections similarity passes to the model.
	DefaultHybridTopN = 20
)

// HybridRequest ranks the sections of one act by similarity and model relevance.
type HybridRequest struct {
	ActName  string
	CorpusID string
	Query    string
	// Sections are table-of-contents lines of the act, section entries only.
	Sections    []string
	TopN        int
	Weight      float64
	Model       string
	Temperature *float32
}

// SectionScore is one section with its component and blended scores.
type SectionScore struct {
	Text        string
	Relatedness float64
	Relevance   float64
	Weighted    float64
}

// HybridSections blends min-max scaled cosine similarity with the model's ranked order.
// Sections the model does not list get zero relevance.
func (s *Service) HybridSections(ctx context.Context, req HybridRequest) ([]SectionScore, error) {
	if s.rank == nil {
		return nil, fmt.Errorf("hybrid ranking needs an embedder: %w", domain.ErrInvalidInput)
	}
	if len(req.Sections) == 0 {
		return nil, domain.ErrEmptyCandidates
	}
	topN := req.TopN
	if topN <= 0 {
		topN = DefaultHybridTopN
	}
	weight := req.Weight
	if weight <= 0 || weight > 1 {
		weight = DefaultHybridWeight
	}

	scored, err := s.rank.RankCorpus(ctx, req.Query, req.CorpusID, req.Sections, topN)
	if err != nil {
		return nil, fmt.Errorf("similarity: %w", err)
	}

	// Least similar first, so the model reads the strongest candidates last.
	texts := make([]string, len(scored))
	sims := make([]float64, len(scored))
	for i, sc := range scored {
		j := len(scored) - 1 - i
		texts[j] = sc.Text
		sims[j] = sc.Score
	}

	order, err := s.sel.PickSections(ctx, selector.SectionRequest{
		ActName:     req.ActName,
		Query:       req.Query,
		Contents:    texts,
		Limit:       2 * len(texts),
		Model:       req.Model,
		Temperature: req.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("relevance: %w", err)
	}

	relevance := make(map[string]float64, len(order))
	for i, text := range order {
		if _, dup := relevance[text]; dup {
			continue
		}
		relevance[text] = rankScore(i, len(order))
	}

	related := minMax(sims)
	out := make([]SectionScore, len(texts))
	for i, text := range texts {
		rel := relevance[text]
		out[i] = SectionScore{
			Text:        text,
			Relatedness: related[i],
			Relevance:   rel,
			Weighted:    weight*related[i] + (1-weight)*rel,
		}
	}
	slices.SortStableFunc(out, func(a, b SectionScore) int {
		switch {
		case a.Weighted > b.Weighted:
			return -1
		case a.Weighted < b.Weighted:
			return 1
		default:
			return 0
		}
	})

	s.logger.Debug("hybrid sections ranked",
		zap.String("act", req.ActName),
		zap.Int("candidates", len(texts)),
		zap.Int("listed", len(order)),
	)
	return out, nil
}

// rankScore maps position i of n to 1 for the first and 0 for the last.
func rankScore(i, n int) float64 {
	if n <= 1 {
		return 1
	}
	return 1 - float64(i)/float64(n-1)
}

// minMax scales values into [0,1]. Constant input scales to zero.
func minMax(vals []float64) []float64 {
	out := make([]float64, len(vals))
	if len(vals) == 0 {
		return out
	}
	lo, hi := slices.Min(vals), slices.Max(vals)
	if hi == lo {
		return out
	}
	for i, v := range vals {
		out[i] = (v - lo) / (hi - lo)
	}
	return out
}
