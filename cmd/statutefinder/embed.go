package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var embedCmd = &cobra.Command{
	Use:   "embed",
	Short: "Build the statute name embedding table",
	Long: `Embed every statute name in the newest catalog snapshot and store the table
under embedding.table_dir. An existing table for the same names is reused.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
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

		names := a.catalog.Names()
		table, err := a.ranker.EnsureTable(cmd.Context(), statuteCorpusID, names)
		if err != nil {
			return fmt.Errorf("build table: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d names embedded\n", statuteCorpusID, table.Len())
		return nil
	},
}
