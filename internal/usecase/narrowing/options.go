package narrowing

import (
	"fmt"

	"github.com/kailas-cloud/statutefinder/internal/domain"
	"github.com/kailas-cloud/statutefinder/internal/usecase/batch"
)

// Strategy names a narrowing algorithm.
type Strategy string

const (
	// VoteThenRefine multi-picks per batch, unions, then multi-picks again.
	VoteThenRefine Strategy = "vote_then_refine"
	// OverlapConsensus single-picks per overlapping batch, then picks among distinct winners.
	OverlapConsensus Strategy = "overlap_consensus"
	// ExhaustiveSweep single-picks per batch, then picks among all winners.
	ExhaustiveSweep Strategy = "exhaustive_sweep"
)

// ParseStrategy validates a strategy name. Empty means VoteThenRefine.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case "", VoteThenRefine:
		return VoteThenRefine, nil
	case OverlapConsensus, ExhaustiveSweep:
		return Strategy(s), nil
	default:
		return "", fmt.Errorf("%q: %w", s, domain.ErrInvalidStrategy)
	}
}

// Options tunes one narrowing run.
type Options struct {
	Model               string
	Temperature         *float32
	InitialResultsRatio float64
	FinalResultsRatio   float64
	BatchTokenSize      int
	BatchOverlap        bool
	RandomizeOrder      bool
	// Concurrency bounds parallel batch calls. 1 is strictly sequential.
	Concurrency int
	// PrefilterTopN, when positive, narrows only the top N entries by similarity.
	PrefilterTopN int
	// CorpusID names the embedding table used by the prefilter.
	CorpusID string
}

// DefaultOptions returns settings that typically leave about five statutes.
func DefaultOptions() Options {
	return Options{
		InitialResultsRatio: 0.2,
		FinalResultsRatio:   0.2,
		BatchTokenSize:      batch.DefaultTokenLimit,
		BatchOverlap:        false,
		RandomizeOrder:      true,
		Concurrency:         1,
	}
}

func (o Options) batchOptions(overlap bool) batch.Options {
	return batch.Options{TokenLimit: o.BatchTokenSize, Randomize: o.RandomizeOrder, Overlap: overlap, Model: o.Model}
}

func (o Options) concurrency() int {
	if o.Concurrency < 1 {
		return 1
	}
	return o.Concurrency
}
