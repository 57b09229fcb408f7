package narrowing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/statutefinder/internal/domain"
	"github.com/kailas-cloud/statutefinder/internal/metrics"
	"github.com/kailas-cloud/statutefinder/internal/usecase/selector"
)

// Round records one stage of a narrowing run.
type Round struct {
	Name     string
	Batches  int
	Skipped  int
	Duration time.Duration
}

// Result is the outcome of a narrowing run.
// Choice is set by strategies that end in a single pick.
type Result struct {
	Strategy   Strategy
	Candidates []string
	Choice     string
	Rounds     []Round
	Total      time.Duration
}

// Service orchestrates batched selection over corpora larger than one call can address.
type Service struct {
	sel    Selector
	parts  Partitioner
	rank   Ranker
	logger *zap.Logger
	now    func() time.Time
}

// New creates a narrowing service. rank may be nil when no prefilter is configured.
func New(sel Selector, parts Partitioner, rank Ranker, logger *zap.Logger) *Service {
	return &Service{sel: sel, parts: parts, rank: rank, logger: logger, now: time.Now}
}

// Run dispatches to the strategy's algorithm.
func (s *Service) Run(ctx context.Context, strategy Strategy, query string, corpus []string, opts Options) (Result, error) {
	corpus, err := s.prefilter(ctx, query, corpus, opts)
	if err != nil {
		return Result{}, err
	}

	var res Result
	switch strategy {
	case VoteThenRefine, "":
		res, err = s.NarrowDown(ctx, query, corpus, opts)
	case OverlapConsensus:
		res, err = s.OverlapConsensus(ctx, query, corpus, opts)
	case ExhaustiveSweep:
		res, err = s.ExhaustiveSweep(ctx, query, corpus, opts)
	default:
		return Result{}, fmt.Errorf("%q: %w", strategy, domain.ErrInvalidStrategy)
	}
	return res, err
}

// NarrowDown multi-picks in every batch, unions the picks and multi-picks again over the union.
func (s *Service) NarrowDown(ctx context.Context, query string, corpus []string, opts Options) (Result, error) {
	start := s.now()
	res := Result{Strategy: VoteThenRefine}

	batches, err := s.parts.Partition(corpus, opts.batchOptions(opts.BatchOverlap))
	if err != nil {
		return s.fail(res, err)
	}

	interim, round, err := runBatches(ctx, s, VoteThenRefine, "interim", batches, opts.concurrency(),
		func(ctx context.Context, b domain.Batch) ([]string, error) {
			return s.sel.PickMany(ctx, selector.Request{
				Query:        query,
				Candidates:   b,
				Model:        opts.Model,
				Temperature:  opts.Temperature,
				ResultsRatio: opts.InitialResultsRatio,
			})
		})
	res.Rounds = append(res.Rounds, round)
	if err != nil {
		return s.fail(res, err)
	}

	union := unionInOrder(interim)
	if len(union) > domain.MaxMultiCandidates {
		return s.fail(res, fmt.Errorf("%d statutes after interim round: %w", len(union), domain.ErrNarrowedSetTooLarge))
	}
	if len(union) == 0 {
		s.logger.Warn("interim round picked nothing", zap.Int("batches", len(batches)))
		return s.done(res, start), nil
	}

	finalStart := s.now()
	final, err := s.sel.PickMany(ctx, selector.Request{
		Query:        query,
		Candidates:   union,
		Model:        opts.Model,
		Temperature:  opts.Temperature,
		ResultsRatio: opts.FinalResultsRatio,
	})
	res.Rounds = append(res.Rounds, s.round(VoteThenRefine, "final", 1, 0, finalStart))
	if err != nil {
		return s.fail(res, fmt.Errorf("final round: %w", err))
	}

	res.Candidates = unionInOrder([][]string{final})
	return s.done(res, start), nil
}

// OverlapConsensus picks one statute per overlapping batch and then one among the distinct winners.
func (s *Service) OverlapConsensus(ctx context.Context, query string, corpus []string, opts Options) (Result, error) {
	return s.sweep(ctx, OverlapConsensus, query, corpus, opts, true, true)
}

// ExhaustiveSweep picks one statute per batch and then one among all winners, duplicates kept.
func (s *Service) ExhaustiveSweep(ctx context.Context, query string, corpus []string, opts Options) (Result, error) {
	return s.sweep(ctx, ExhaustiveSweep, query, corpus, opts, false, false)
}

func (s *Service) sweep(
	ctx context.Context, strategy Strategy, query string, corpus []string, opts Options, overlap, distinct bool,
) (Result, error) {
	start := s.now()
	res := Result{Strategy: strategy}

	batches, err := s.parts.Partition(corpus, opts.batchOptions(overlap))
	if err != nil {
		return s.fail(res, err)
	}

	winners, round, err := runBatches(ctx, s, strategy, "interim", batches, opts.concurrency(),
		func(ctx context.Context, b domain.Batch) (string, error) {
			return s.sel.PickOne(ctx, selector.Request{
				Query:       query,
				Candidates:  b,
				Model:       opts.Model,
				Temperature: opts.Temperature,
			})
		})
	res.Rounds = append(res.Rounds, round)
	if err != nil {
		return s.fail(res, err)
	}

	if distinct {
		winners = unionInOrder([][]string{winners})
	}
	res.Candidates = winners
	if len(winners) == 0 {
		return s.done(res, start), nil
	}

	finalStart := s.now()
	choice, err := s.sel.PickOne(ctx, selector.Request{
		Query:       query,
		Candidates:  winners,
		Model:       opts.Model,
		Temperature: opts.Temperature,
	})
	res.Rounds = append(res.Rounds, s.round(strategy, "final", 1, 0, finalStart))
	if err != nil {
		return s.fail(res, fmt.Errorf("final round: %w", err))
	}
	res.Choice = choice
	return s.done(res, start), nil
}

// Rerank reorders a shortlist by relevance. Options the model leaves out are dropped.
func (s *Service) Rerank(ctx context.Context, query string, shortlist []string, opts Options) ([]string, error) {
	picked, err := s.sel.PickMany(ctx, selector.Request{
		Query:        query,
		Candidates:   shortlist,
		Prompt:       selector.StatuteRerank,
		Model:        opts.Model,
		Temperature:  opts.Temperature,
		ResultsRatio: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("rerank: %w", err)
	}
	return picked, nil
}

// MultiThenOne multi-picks over one batch and then picks a single answer among the picks.
func (s *Service) MultiThenOne(ctx context.Context, query string, candidates []string, opts Options) (string, error) {
	ratio := opts.InitialResultsRatio
	if ratio <= 0 {
		ratio = DefaultOptions().InitialResultsRatio
	}
	picked, err := s.sel.PickMany(ctx, selector.Request{
		Query:        query,
		Candidates:   candidates,
		Model:        opts.Model,
		Temperature:  opts.Temperature,
		ResultsRatio: ratio,
	})
	if err != nil {
		return "", fmt.Errorf("multi pick: %w", err)
	}
	if len(picked) == 0 {
		return "", fmt.Errorf("multi pick returned nothing: %w", domain.ErrDecode)
	}
	if len(picked) == 1 {
		return picked[0], nil
	}
	choice, err := s.sel.PickOne(ctx, selector.Request{
		Query:       query,
		Candidates:  picked,
		Model:       opts.Model,
		Temperature: opts.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("single pick: %w", err)
	}
	return choice, nil
}

func (s *Service) prefilter(ctx context.Context, query string, corpus []string, opts Options) ([]string, error) {
	if opts.PrefilterTopN <= 0 || opts.PrefilterTopN >= len(corpus) {
		return corpus, nil
	}
	if s.rank == nil {
		return corpus, nil
	}
	scored, err := s.rank.RankCorpus(ctx, query, opts.CorpusID, corpus, opts.PrefilterTopN)
	if err != nil {
		return nil, fmt.Errorf("prefilter: %w", err)
	}
	out := make([]string, len(scored))
	for i, sc := range scored {
		out[i] = sc.Text
	}
	s.logger.Debug("prefiltered corpus",
		zap.Int("corpus", len(corpus)),
		zap.Int("kept", len(out)),
	)
	return out, nil
}

func (s *Service) round(strategy Strategy, name string, batches, skipped int, start time.Time) Round {
	d := s.now().Sub(start)
	metrics.NarrowingRoundDuration.WithLabelValues(string(strategy), name).Observe(d.Seconds())
	return Round{Name: name, Batches: batches, Skipped: skipped, Duration: d}
}

func (s *Service) done(res Result, start time.Time) Result {
	res.Total = s.now().Sub(start)
	metrics.NarrowingRunsTotal.WithLabelValues(string(res.Strategy), "ok").Inc()
	s.logger.Info("narrowing finished",
		zap.String("strategy", string(res.Strategy)),
		zap.Int("candidates", len(res.Candidates)),
		zap.Bool("choice", res.Choice != ""),
		zap.Duration("took", res.Total),
	)
	return res
}

func (s *Service) fail(res Result, err error) (Result, error) {
	metrics.NarrowingRunsTotal.WithLabelValues(string(res.Strategy), "error").Inc()
	return res, err
}

// runBatches calls fn for every batch with at most limit calls in flight.
// Results keep batch order. A batch whose provider stays unavailable or whose
// answer cannot be decoded is skipped; any other error aborts the round.
func runBatches[T any](
	ctx context.Context,
	s *Service,
	strategy Strategy,
	name string,
	batches []domain.Batch,
	limit int,
	fn func(context.Context, domain.Batch) (T, error),
) ([]T, Round, error) {
	start := s.now()
	metrics.NarrowingBatches.WithLabelValues(string(strategy)).Observe(float64(len(batches)))

	values := make([]T, len(batches))
	failed := make([]error, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, b := range batches {
		g.Go(func() error {
			v, err := fn(gctx, b)
			if err == nil {
				values[i] = v
				return nil
			}
			if skippable(err) && gctx.Err() == nil {
				failed[i] = err
				return nil
			}
			return fmt.Errorf("batch %d: %w", i, err)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, s.round(strategy, name, len(batches), 0, start), err
	}

	out := make([]T, 0, len(batches))
	var skipped int
	var lastErr error
	for i := range batches {
		if failed[i] != nil {
			skipped++
			lastErr = failed[i]
			s.logger.Warn("batch skipped",
				zap.String("strategy", string(strategy)),
				zap.Int("batch", i),
				zap.Int("size", len(batches[i])),
				zap.Error(failed[i]),
			)
			continue
		}
		out = append(out, values[i])
	}
	if skipped > 0 {
		metrics.NarrowingSkippedBatchesTotal.WithLabelValues(string(strategy)).Add(float64(skipped))
	}

	round := s.round(strategy, name, len(batches), skipped, start)
	if len(batches) > 0 && skipped == len(batches) {
		return nil, round, fmt.Errorf("all %d batches failed: %w", skipped, lastErr)
	}
	return out, round, nil
}

func skippable(err error) bool {
	return errors.Is(err, domain.ErrProviderUnavailable) || errors.Is(err, domain.ErrDecode)
}

// unionInOrder flattens groups and drops repeats, keeping first occurrence.
func unionInOrder(groups [][]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, g := range groups {
		for _, item := range g {
			if _, ok := seen[item]; ok {
				continue
			}
			seen[item] = struct{}{}
			out = append(out, item)
		}
	}
	return out
}
