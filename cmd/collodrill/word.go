package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/japaniel/collodrill/pkg/session"
)

func newWordCmd(a *app) *cobra.Command {
	var minScore int

	cmd := &cobra.Command{
		Use:   "word <word>",
		Short: "Show the partners of a word and how well each pair is known",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			tr, err := a.trainer(ctx, session.Config{})
			if err != nil {
				return err
			}
			rep, err := tr.Lookup(ctx, args[0])
			if err != nil {
				return err
			}
			if a.jsonOutput() {
				return printJSON(cmd.OutOrStdout(), rep)
			}
			return writeWord(cmd.OutOrStdout(), rep, minScore, a.now)
		},
	}
	cmd.Flags().IntVar(&minScore, "min-score", 1, "Only show partners with at least this affinity (1-3)")
	return cmd
}

func writeWord(w io.Writer, rep session.WordReport, minScore int, now func() time.Time) error {
	e := rep.Entry
	fmt.Fprintf(w, "%s (%s) %s [%s]\n", e.Token, e.Reading, glossOf(e.Gloss), e.Class)
	st := rep.Stats
	fmt.Fprintf(w, "%d partners: %d very common, %d common, %d possible\n",
		st.TotalMatches, st.VeryCommon, st.Common, st.Possible)
	if p := rep.Progress; p != nil {
		fmt.Fprintf(w, "Level %.1f (%s), interval %d days, %d/%d correct, next review %s\n",
			p.Level, p.Mastery(), p.Interval, p.CorrectCount, p.ReviewCount, p.NextReviewAt.Local().Format("2006-01-02"))
		if p.IsDue(now()) {
			fmt.Fprintln(w, "Due for review.")
		}
	} else {
		fmt.Fprintln(w, "Not drilled yet.")
	}

	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PARTNER\tREADING\tCLASS\tAFFINITY\tSTRENGTH\tCORRECT\tINCORRECT")
	for _, m := range e.MatchesByScore(minScore) {
		p, ok := rep.Pairs[m.Token]
		if !ok {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t-\t-\t-\n", m.Token, m.Reading, m.Class, m.Score)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\n", m.Token, m.Reading, m.Class, m.Score, p.Strength, p.Correct, p.Incorrect)
	}
	return tw.Flush()
}
