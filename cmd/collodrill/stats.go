package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/japaniel/collodrill/pkg/catalog"
	"github.com/japaniel/collodrill/pkg/session"
)

type statsOutput struct {
	session.Report
	StudyList string              `json:"study_list,omitempty"`
	Levels    session.LevelReport `json:"levels"`
}

func newStatsCmd(a *app) *cobra.Command {
	var listName string
	var recent int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show learning statistics",
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
			rep, err := tr.Stats(ctx, recent)
			if err != nil {
				return err
			}
			lv, err := tr.LevelStats(ctx, scope)
			if err != nil {
				return err
			}

			res := statsOutput{Report: rep, StudyList: name, Levels: lv}
			if a.jsonOutput() {
				return printJSON(cmd.OutOrStdout(), res)
			}
			return writeStats(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVarP(&listName, "list", "l", "", "Report progress over a study list")
	cmd.Flags().IntVar(&recent, "recent", 5, "Number of recent drills to show")
	return cmd
}

func writeStats(w io.Writer, s statsOutput) error {
	st := s.Statistics
	fmt.Fprintf(w, "Reviews: %d (%d correct, %d incorrect)\n", st.TotalReviews, st.CorrectAnswers, st.IncorrectAnswers)
	fmt.Fprintf(w, "Streak: %d (longest %d), %d study days\n", st.Streak, st.LongestStreak, st.StudyDays)

	l := s.Learning
	fmt.Fprintf(w, "Reviewed words: %d, due today: %d, average accuracy %.0f%%\n", l.TotalWords, l.DueToday, l.AverageAccuracy)

	scope := "catalog"
	if s.StudyList != "" {
		scope = "study list " + s.StudyList
	}
	lv := s.Levels
	fmt.Fprintf(w, "\nProgress over %s: %d/%d practiced (%d%%), %d%% mastered\n",
		scope, lv.Practiced, lv.Total, lv.PracticedPercentage, lv.MasteryPercentage)
	fmt.Fprintf(w, "  new %d, learning %d, young %d, mature %d, mastered %d\n",
		lv.New, lv.Learning, lv.Young, lv.Mature, lv.Mastered)
	for _, c := range []catalog.WordClass{catalog.Verb, catalog.Adjective, catalog.Noun} {
		if cc, ok := lv.ByClass[c]; ok {
			fmt.Fprintf(w, "  %s: %d/%d\n", c, cc.Practiced, cc.Total)
		}
	}

	if len(s.Recent) == 0 {
		return nil
	}
	fmt.Fprintln(w, "\nRecent drills:")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tWORD\tDIRECTION\tFOUND\tSCORE\tGRADE")
	for _, r := range s.Recent {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d/%d\t%d\t%s\n",
			r.FinishedAt.Local().Format("2006-01-02 15:04"), r.Subject, r.Direction, r.Found, r.TargetTotal, r.Score, r.Grade)
	}
	return tw.Flush()
}
