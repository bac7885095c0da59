package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/japaniel/collodrill/pkg/analyze"
	"github.com/japaniel/collodrill/pkg/catalog"
	"github.com/japaniel/collodrill/pkg/ingest"
)

func newImportCmd(a *app) *cobra.Command {
	var vocabPath, collocPath string
	var noReadings bool

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import the vocabulary and collocation catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			fmt.Fprintf(out, "Loading catalog from %s and %s...\n", vocabPath, collocPath)
			cat, err := catalog.LoadFiles(vocabPath, collocPath)
			if err != nil {
				return fmt.Errorf("load catalog: %w", err)
			}

			im := ingest.NewImporter(a.store.DB(), nil)
			if !noReadings {
				an, err := analyze.NewAnalyzer()
				if err != nil {
					return fmt.Errorf("create analyzer: %w", err)
				}
				im.Readings = an
			}
			im.Workers = a.cfg.Import.Workers
			im.BatchSize = a.cfg.Import.BatchSize
			im.Logger = a.log
			im.OnProgress = func(current, total int) {
				fmt.Fprintf(cmd.ErrOrStderr(), "\rImported %d/%d records", current, total)
				if current == total {
					fmt.Fprintln(cmd.ErrOrStderr())
				}
			}

			res, err := im.Import(ctx, cat)
			if err != nil {
				return fmt.Errorf("import catalog: %w", err)
			}
			if a.jsonOutput() {
				return printJSON(out, res)
			}
			fmt.Fprintf(out, "Imported %d vocabulary items and %d collocation entries (%d pairs, %d derived readings).\n",
				res.Vocabulary, res.Entries, res.Pairs, res.DerivedReadings)
			return nil
		},
	}
	cmd.Flags().StringVar(&vocabPath, "vocab", "", "Vocabulary JSON file")
	cmd.Flags().StringVar(&collocPath, "collocations", "", "Collocation JSON file")
	cmd.Flags().BoolVar(&noReadings, "no-readings", false, "Do not derive missing readings with the morphological analyzer")
	cmd.MarkFlagRequired("vocab")
	cmd.MarkFlagRequired("collocations")
	return cmd
}
