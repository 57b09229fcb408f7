package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/statutefinder/internal/document"
	"github.com/kailas-cloud/statutefinder/internal/domain"
	"github.com/kailas-cloud/statutefinder/internal/usecase/narrowing"
)

// definitionsBudget bounds the printed definitions, in characters.
const definitionsBudget = 4000

var sectionsFlags struct {
	act         string
	topN        int
	weight      float64
	definitions bool
}

var sectionsCmd = &cobra.Command{
	Use:   "sections <query>",
	Short: "Rank the sections of one act for a query",
	Long: `Parse an act in BC Laws XML, build its table of contents and rank the
sections by a blend of embedding similarity and model relevance.

Example:
  statutefinder sections --act data/acts/rta.xml "when must a landlord return a deposit"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if sectionsFlags.act == "" {
			return fmt.Errorf("--act is required")
		}
		doc, err := loadAct(sectionsFlags.act)
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

		title := doc.Title()
		scores, err := a.narrowing.HybridSections(cmd.Context(), narrowing.HybridRequest{
			ActName:     title,
			CorpusID:    "act_" + strings.TrimSuffix(filepath.Base(sectionsFlags.act), filepath.Ext(sectionsFlags.act)),
			Query:       strings.Join(args, " "),
			Sections:    domain.SectionsOnly(doc.Contents()),
			TopN:        sectionsFlags.topN,
			Weight:      sectionsFlags.weight,
			Temperature: a.options.Temperature,
		})
		if err != nil {
			return fmt.Errorf("rank sections: %w", err)
		}

		ranked := make([]string, len(scores))
		for i, s := range scores {
			ranked[i] = s.Text
		}
		show := make(map[string]bool)
		for _, h := range domain.SelectHeadings(ranked) {
			show[h] = true
		}

		ids := doc.Index(document.KindSection)
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, title)
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		for _, s := range scores {
			if !show[s.Text] {
				continue
			}
			e, _ := domain.ParseContentsLine(s.Text)
			id, _ := ids.Lookup(e.Number)
			fmt.Fprintf(w, "%.3f\t%s\t%s\n", s.Weighted, s.Text, id)
		}
		if err := w.Flush(); err != nil {
			return err
		}

		if sectionsFlags.definitions {
			defs := doc.Definitions()
			lines := make([]string, len(defs))
			for i, d := range defs {
				lines[i] = d.Text
			}
			fmt.Fprintf(out, "\nDefinitions (s. %s):\n\n", definitionSections(defs))
			fmt.Fprint(out, domain.JoinWithinBudget(lines, definitionsBudget))
		}
		return nil
	},
}

func init() {
	f := sectionsCmd.Flags()
	f.StringVar(&sectionsFlags.act, "act", "", "path to the act XML")
	f.IntVarP(&sectionsFlags.topN, "top", "n", narrowing.DefaultHybridTopN, "sections passed from similarity to the model")
	f.Float64Var(&sectionsFlags.weight, "weight", narrowing.DefaultHybridWeight, "share of similarity in the blended score")
	f.BoolVar(&sectionsFlags.definitions, "definitions", false, "print the act's defined terms")
}

func loadAct(path string) (*document.Document, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open act: %w", err)
	}
	defer func() { _ = f.Close() }()

	doc, err := document.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse act %s: %w", path, err)
	}
	return doc, nil
}

func definitionSections(defs []document.Definition) string {
	var nums []string
	seen := make(map[string]bool)
	for _, d := range defs {
		if !seen[d.Section] {
			seen[d.Section] = true
			nums = append(nums, d.Section)
		}
	}
	return strings.Join(nums, ", ")
}
