package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/japaniel/collodrill/pkg/analyze"
	"github.com/japaniel/collodrill/pkg/rank"
	"github.com/japaniel/collodrill/pkg/resolve"
	"github.com/japaniel/collodrill/pkg/session"
)

func newDrillCmd(a *app) *cobra.Command {
	var reverse, noLemma, static bool
	var direction, listName string

	cmd := &cobra.Command{
		Use:   "drill [word]",
		Short: "Drill the partners of a word",
		Long: `Drill the partners of a word, or of the top recommendation when no word is given.

Type a partner per line. ":skip <word>" gives up on one target and ":quit" ends the drill.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if reverse {
				direction = string(session.Reverse)
			}
			dir, err := session.ParseDirection(direction)
			if err != nil {
				return err
			}
			var lem resolve.Lemmatizer
			if !noLemma {
				an, err := analyze.NewAnalyzer()
				if err != nil {
					return fmt.Errorf("create analyzer: %w", err)
				}
				lem = an
			}
			tr, err := a.trainer(ctx, session.Config{Lemmatizer: lem, StaticLimit: static})
			if err != nil {
				return err
			}
			scope, _, err := a.scope(ctx, listName)
			if err != nil {
				return err
			}

			subject := ""
			if len(args) == 1 {
				subject = args[0]
			} else if subject, err = topRecommendation(ctx, tr, dir, scope); err != nil {
				return err
			}

			d, err := tr.Start(ctx, subject, dir, scope)
			if err != nil {
				return err
			}
			if err := playDrill(ctx, tr, d, cmd.InOrStdin(), cmd.OutOrStdout()); err != nil {
				return err
			}

			// An interrupted drill is still recorded.
			sum, err := tr.Finish(context.WithoutCancel(ctx), d)
			if err != nil {
				return fmt.Errorf("save drill: %w", err)
			}
			if a.jsonOutput() {
				return printJSON(cmd.OutOrStdout(), sum)
			}
			writeSummary(cmd.OutOrStdout(), d, sum)
			return nil
		},
	}
	cmd.Flags().StringVar(&direction, "direction", string(session.Forward), "Drill direction: forward (verb or adjective to nouns) or reverse (noun to verbs and adjectives)")
	cmd.Flags().BoolVarP(&reverse, "reverse", "r", false, "Shorthand for --direction reverse")
	cmd.Flags().BoolVar(&noLemma, "no-lemma", false, "Match answers by surface form and reading only")
	cmd.Flags().BoolVar(&static, "static", false, "Pick targets by affinity alone, ignoring pair progress")
	cmd.Flags().StringVarP(&listName, "list", "l", "", "Prefer partners from a study list")
	return cmd
}

func topRecommendation(ctx context.Context, tr *session.Trainer, dir session.Direction, scope rank.Scope) (string, error) {
	var cs []rank.Candidate
	var err error
	if dir == session.Reverse {
		cs, err = tr.RecommendNouns(ctx, scope, 1)
	} else {
		cs, err = tr.Recommend(ctx, scope, 1)
	}
	if err != nil {
		return "", err
	}
	if len(cs) == 0 {
		return "", fmt.Errorf("nothing to drill")
	}
	return cs[0].Token, nil
}

// playDrill reads answers until the drill finishes, input ends or ctx is
// cancelled. The last two give up.
func playDrill(ctx context.Context, tr *session.Trainer, d *session.Drill, in io.Reader, out io.Writer) error {
	partners := "nouns"
	if d.Direction == session.Reverse {
		partners = "verbs or adjectives"
	}
	fmt.Fprintf(out, "%s (%s) %s\n", d.Subject, d.Reading, glossOf(d.Gloss))
	fmt.Fprintf(out, "Name %d %s that pair with %s.\n", len(d.Targets), partners, d.Subject)

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for d.State() == session.Playing {
		fmt.Fprint(out, "> ")
		var line string
		var ok bool
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			d.GiveUp()
			return nil
		case line, ok = <-lines:
		}
		if !ok {
			fmt.Fprintln(out)
			d.GiveUp()
			return nil
		}

		line = strings.TrimSpace(line)
		switch {
		case line == "":
		case line == ":quit" || line == ":q":
			d.GiveUp()
		case line == ":skip" || strings.HasPrefix(line, ":skip "):
			token := strings.TrimSpace(strings.TrimPrefix(line, ":skip"))
			err := tr.Skip(ctx, d, token)
			if errors.Is(err, session.ErrUnknownTarget) {
				fmt.Fprintf(out, "  %s is not a remaining target\n", token)
				continue
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "  skipped %s (%d left)\n", token, len(d.Remaining()))
		default:
			ans, err := tr.Answer(ctx, d, line)
			if err != nil {
				return err
			}
			writeAnswer(out, d, ans)
		}
	}
	return nil
}

func writeAnswer(w io.Writer, d *session.Drill, ans session.Answer) {
	m := ans.Match
	switch {
	case !ans.Matched:
		fmt.Fprintf(w, "  ✗ %s does not pair with %s\n", ans.Input, d.Subject)
	case ans.IsDuplicate:
		fmt.Fprintf(w, "  already have %s\n", m.Token)
	case ans.IsBonus:
		fmt.Fprintf(w, "  ☆ %s (%s) pairs with %s too\n", m.Token, m.Reading, d.Subject)
	default:
		fmt.Fprintf(w, "  ✓ %s (%s) %s +%d (%d left)\n", m.Token, m.Reading, glossOf(m.Gloss), m.Score, len(d.Remaining()))
	}
}

func writeSummary(w io.Writer, d *session.Drill, sum session.Summary) {
	rec := sum.Record
	fmt.Fprintf(w, "Found %d/%d, %d bonus, score %d. Grade: %s.\n",
		rec.Found, rec.TargetTotal, rec.BonusFound, rec.Score, rec.Grade)
	if missed := d.Remaining(); len(missed) > 0 {
		parts := make([]string, len(missed))
		for i, m := range missed {
			parts[i] = fmt.Sprintf("%s (%s)", m.Token, m.Reading)
		}
		fmt.Fprintf(w, "Missed: %s\n", strings.Join(parts, ", "))
	}
	fmt.Fprintf(w, "Next review of %s: %s\n", d.Subject, sum.Progress.NextReviewAt.Local().Format("2006-01-02"))
}
