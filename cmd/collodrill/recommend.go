package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/japaniel/collodrill/pkg/rank"
	"github.com/japaniel/collodrill/pkg/session"
)

func newRecommendCmd(a *app) *cobra.Command {
	var nouns bool
	var count int
	var listName string

	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Rank the words to practice next",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			tr, err := a.trainer(ctx, session.Config{})
			if err != nil {
				return err
			}
			scope, name, err := a.scope(ctx, listName)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("count") {
				count = a.cfg.Recommend.Count
			}

			var cs []rank.Candidate
			if nouns {
				cs, err = tr.RecommendNouns(ctx, scope, count)
			} else {
				cs, err = tr.Recommend(ctx, scope, count)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if a.jsonOutput() {
				return printJSON(out, cs)
			}
			if len(cs) == 0 {
				fmt.Fprintln(out, "Nothing to recommend.")
				return nil
			}
			if name != "" {
				fmt.Fprintf(out, "Study list: %s\n", name)
			}
			if err := writeCandidates(out, cs); err != nil {
				return err
			}
			writeBreakdown(out, rank.Breakdown(cs))
			return nil
		},
	}
	cmd.Flags().BoolVar(&nouns, "nouns", false, "Rank nouns for reverse drills")
	cmd.Flags().IntVarP(&count, "count", "n", 10, "Number of words to show (0 shows all)")
	cmd.Flags().StringVarP(&listName, "list", "l", "", "Limit partners to a study list")
	return cmd
}

func writeCandidates(w io.Writer, cs []rank.Candidate) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tWORD\tREADING\tCLASS\tSTATUS\tPARTNERS\tAFFINITY\tMEANING")
	for i, c := range cs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d/%d\t%d\t%s\n",
			i+1, c.Token, c.Reading, c.Class, c.Category, c.MatchCount, c.TotalMatches, c.AffinitySum, c.Gloss)
	}
	return tw.Flush()
}

func writeBreakdown(w io.Writer, counts map[rank.Category]int) {
	var parts []string
	for _, c := range rank.Categories() {
		if n := counts[c]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, c))
		}
	}
	fmt.Fprintf(w, "\n%s\n", strings.Join(parts, ", "))
}
