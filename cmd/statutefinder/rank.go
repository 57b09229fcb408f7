package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var rankTopN int

var rankCmd = &cobra.Command{
	Use:   "rank <query>",
	Short: "List statutes by similarity to a query",
	Long: `Rank the statute name table against a query by cosine similarity.
Run "statutefinder embed" first to build the table.

Example:
  statutefinder rank "my landlord will not return my damage deposit" --top 5`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
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

		scored, err := a.ranker.Rank(cmd.Context(), strings.Join(args, " "), statuteCorpusID, rankTopN)
		if err != nil {
			return fmt.Errorf("rank: %w", err)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, s := range scored {
			fmt.Fprintf(w, "%.4f\t%s\n", s.Score, s.Text)
		}
		return w.Flush()
	},
}

func init() {
	rankCmd.Flags().IntVarP(&rankTopN, "top", "n", 10, "number of statutes to list")
}
