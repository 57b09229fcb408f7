package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/statutefinder/internal/domain"
	"github.com/kailas-cloud/statutefinder/internal/usecase/narrowing"
)

var narrowFlags struct {
	strategy    string
	prefilter   int
	concurrency int
	overlap     bool
	noShuffle   bool
	choose      bool
	asJSON      bool
}

var narrowCmd = &cobra.Command{
	Use:   "narrow <query>",
	Short: "Narrow the statute catalog down to the applicable acts",
	Long: `Run a narrowing strategy over every statute name in the catalog.

Strategies:
  vote_then_refine   - multi-pick per batch, then multi-pick over the union (default)
  overlap_consensus  - single-pick per overlapping batch, then pick among distinct winners
  exhaustive_sweep   - single-pick per batch, then pick among all winners

Example:
  statutefinder narrow "can my employer cut my wages without notice" --concurrency 4
  statutefinder narrow "dog bit my neighbour" --strategy exhaustive_sweep --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		strategy, err := narrowing.ParseStrategy(narrowFlags.strategy)
		if err != nil {
			return err
		}

		cfg, logger, err := setup("cli")
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		a, err := newApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		opts := a.options
		if cmd.Flags().Changed("prefilter") {
			opts.PrefilterTopN = narrowFlags.prefilter
		}
		if cmd.Flags().Changed("concurrency") {
			opts.Concurrency = narrowFlags.concurrency
		}
		if cmd.Flags().Changed("overlap") {
			opts.BatchOverlap = narrowFlags.overlap
		}
		if narrowFlags.noShuffle {
			opts.RandomizeOrder = false
		}

		query := strings.Join(args, " ")
		ctx, usage := domain.NewContextWithUsage(cmd.Context())
		res, err := a.narrowing.Run(ctx, strategy, query, a.catalog.Names(), opts)
		if err != nil {
			return fmt.Errorf("narrow: %w", err)
		}
		if narrowFlags.choose && res.Choice == "" && len(res.Candidates) > 0 {
			res.Choice, err = a.narrowing.MultiThenOne(ctx, query, res.Candidates, opts)
			if err != nil {
				return fmt.Errorf("choose: %w", err)
			}
		}

		out := cmd.OutOrStdout()
		if narrowFlags.asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}

		for _, c := range res.Candidates {
			fmt.Fprintln(out, c)
		}
		if res.Choice != "" {
			fmt.Fprintf(out, "\nbest match: %s\n", res.Choice)
		}
		snap := usage.Snapshot()
		fmt.Fprintf(cmd.ErrOrStderr(), "%d model calls, %d tokens, %s\n", snap.Calls, snap.Total(), res.Total.Round(time.Millisecond))
		return nil
	},
}

func init() {
	f := narrowCmd.Flags()
	f.StringVarP(&narrowFlags.strategy, "strategy", "s", "", "narrowing strategy (default vote_then_refine)")
	f.IntVar(&narrowFlags.prefilter, "prefilter", 0, "narrow only the top N names by similarity")
	f.IntVar(&narrowFlags.concurrency, "concurrency", 1, "parallel batch calls")
	f.BoolVar(&narrowFlags.overlap, "overlap", false, "bridge adjacent batches with their boundary item")
	f.BoolVar(&narrowFlags.noShuffle, "no-shuffle", false, "keep catalog order instead of shuffling")
	f.BoolVar(&narrowFlags.choose, "choose", false, "pick a single best statute from the result")
	f.BoolVar(&narrowFlags.asJSON, "json", false, "print the full result as JSON")
}
