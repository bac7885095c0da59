package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/japaniel/collodrill/pkg/catalog"
	"github.com/japaniel/collodrill/pkg/srs"
	"github.com/japaniel/collodrill/pkg/store"
	"github.com/japaniel/collodrill/pkg/studylist"
)

type fakeLemmas map[string]string

func (f fakeLemmas) Lemma(text string) string { return f[text] }

func setupTrainer(t *testing.T, cfg Config) (*Trainer, *store.SQLiteStore) {
	t.Helper()
	ctx := context.Background()
	s, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	dir := filepath.Join("..", "catalog", "testdata")
	src, err := catalog.LoadFiles(filepath.Join(dir, "vocabulary.json"), filepath.Join(dir, "collocations.json"))
	if err != nil {
		t.Fatal(err)
	}
	err = s.WithTx(ctx, func(tx *sql.Tx) error {
		for _, v := range src.Vocabulary() {
			if err := store.UpsertVocabulary(ctx, tx, v); err != nil {
				return err
			}
		}
		for _, e := range src.Entries() {
			if err := store.UpsertCollocationEntry(ctx, tx, e); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed catalog: %v", err)
	}
	cat, err := store.LoadCatalog(ctx, s)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Now == nil {
		cfg.Now = func() time.Time { return testNow }
	}
	tr, err := NewTrainer(s, cat, cfg)
	if err != nil {
		t.Fatalf("NewTrainer: %v", err)
	}
	return tr, s
}

func pair(t *testing.T, s *store.SQLiteStore, id string) srs.PairProgress {
	t.Helper()
	p, ok, err := s.GetPairProgress(context.Background(), id)
	if err != nil || !ok {
		t.Fatalf("pair %s: ok=%v err=%v", id, ok, err)
	}
	return p
}

func TestTrainerForwardDrill(t *testing.T) {
	ctx := context.Background()
	tr, s := setupTrainer(t, Config{MaxSize: 1, NewTarget: 1})

	d, err := tr.Start(ctx, "飲む", Forward, nil)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if len(d.Targets) != 1 || d.Targets[0].Token != "水" || len(d.Bonus) != 1 || d.Bonus[0].Token != "薬" {
		t.Fatalf("targets %+v, bonus %+v", d.Targets, d.Bonus)
	}

	if ans, err := tr.Answer(ctx, d, "くすり"); err != nil || !ans.IsBonus {
		t.Fatalf("bonus answer = %+v, %v", ans, err)
	}
	if _, err := tr.Answer(ctx, d, "ジュース"); err != nil {
		t.Fatal(err)
	}
	if _, err := tr.Answer(ctx, d, "a|b"); err != nil {
		t.Fatalf("unrecordable answer: %v", err)
	}
	ans, err := tr.Answer(ctx, d, "みず")
	if err != nil || !ans.NewTarget() || ans.State != Finished {
		t.Fatalf("target answer = %+v, %v", ans, err)
	}

	if p := pair(t, s, "飲む|水"); p.Correct != 1 || p.Incorrect != 0 {
		t.Fatalf("飲む|水 = %+v", p)
	}
	if p := pair(t, s, "飲む|薬"); p.Correct != 1 {
		t.Fatalf("飲む|薬 = %+v", p)
	}
	if p := pair(t, s, "飲む|ジュース"); p.Incorrect != 1 || p.Strength != 0 {
		t.Fatalf("飲む|ジュース = %+v", p)
	}

	sum, err := tr.Finish(ctx, d)
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if sum.Record.Grade != srs.Easy || sum.Record.Found != 1 || sum.Record.BonusFound != 1 || sum.Record.Score != 3 {
		t.Fatalf("record = %+v", sum.Record)
	}
	if sum.Progress.Interval != 7 || sum.Progress.ReviewCount != 1 {
		t.Fatalf("progress = %+v", sum.Progress)
	}
	if _, err := tr.Finish(ctx, d); !errors.Is(err, ErrSessionFinished) {
		t.Fatalf("second Finish = %v", err)
	}

	st, err := s.GetStatistics(ctx)
	if err != nil || st.TotalReviews != 1 || st.CorrectAnswers != 1 || st.Streak != 1 {
		t.Fatalf("statistics = %+v, %v", st, err)
	}
	recs, err := s.ListSessions(ctx, 0)
	if err != nil || len(recs) != 1 || recs[0].ID != d.ID || recs[0].Direction != "forward" {
		t.Fatalf("sessions = %+v, %v", recs, err)
	}
}

func TestTrainerRecommend(t *testing.T) {
	ctx := context.Background()
	tr, _ := setupTrainer(t, Config{})

	cs, err := tr.Recommend(ctx, nil, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(cs) != 3 || cs[0].Token != "飲む" || cs[1].Token != "高い" || cs[2].Token != "食べる" {
		t.Fatalf("fresh ranking = %+v", cs)
	}

	d, err := tr.Start(ctx, "高い", Forward, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, in := range []string{"山", "薬"} {
		if _, err := tr.Answer(ctx, d, in); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := tr.Finish(ctx, d); err != nil {
		t.Fatal(err)
	}

	cs, err = tr.Recommend(ctx, nil, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(cs) != 2 || cs[0].Token != "飲む" || cs[1].Token != "食べる" {
		t.Fatalf("ranking after review = %+v", cs)
	}

	nouns, err := tr.RecommendNouns(ctx, studylist.New("hike", []string{"高い"}, testNow), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(nouns) != 2 || nouns[0].Token != "山" || nouns[1].Token != "薬" {
		t.Fatalf("scoped noun ranking = %+v", nouns)
	}
}

func TestTrainerReverseDrill(t *testing.T) {
	ctx := context.Background()
	tr, s := setupTrainer(t, Config{Lemmatizer: fakeLemmas{"食べた": "食べる"}})

	d, err := tr.Start(ctx, "薬", Reverse, nil)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if len(d.Targets) != 3 || d.Reading != "くすり" {
		t.Fatalf("drill = %+v", d)
	}
	for _, in := range []string{"のむ", "食べた"} {
		ans, err := tr.Answer(ctx, d, in)
		if err != nil || !ans.NewTarget() {
			t.Fatalf("Answer(%q) = %+v, %v", in, ans, err)
		}
	}
	if p := pair(t, s, "飲む|薬"); p.Correct != 1 {
		t.Fatalf("飲む|薬 = %+v", p)
	}
	if p := pair(t, s, "食べる|薬"); p.Correct != 1 {
		t.Fatalf("食べる|薬 = %+v", p)
	}

	sum, err := tr.Finish(ctx, d)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Record.Grade != srs.Hard || sum.Record.Direction != "reverse" || sum.Record.SubjectClass != catalog.Noun {
		t.Fatalf("record = %+v", sum.Record)
	}
}

func TestTrainerScopeFallback(t *testing.T) {
	ctx := context.Background()
	tr, _ := setupTrainer(t, Config{})

	d, err := tr.Start(ctx, "飲む", Forward, studylist.New("meds", []string{"薬"}, testNow))
	if err != nil {
		t.Fatal(err)
	}
	if len(d.Targets) != 1 || d.Targets[0].Token != "薬" || len(d.Bonus) != 1 {
		t.Fatalf("scoped drill targets %+v, bonus %+v", d.Targets, d.Bonus)
	}

	d, err = tr.Start(ctx, "飲む", Forward, studylist.New("hike", []string{"山"}, testNow))
	if err != nil {
		t.Fatal(err)
	}
	if len(d.Targets) != 2 {
		t.Fatalf("out-of-scope drill should use every partner, got %+v", d.Targets)
	}
}

func TestTrainerSkipRecordsIncorrect(t *testing.T) {
	ctx := context.Background()
	tr, s := setupTrainer(t, Config{})

	d, err := tr.Start(ctx, "食べる", Forward, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := tr.Skip(ctx, d, "パン"); err != nil {
		t.Fatal(err)
	}
	if err := tr.Skip(ctx, d, "パン"); !errors.Is(err, ErrUnknownTarget) {
		t.Fatalf("second skip = %v", err)
	}
	if p := pair(t, s, "食べる|パン"); p.Incorrect != 1 {
		t.Fatalf("食べる|パン = %+v", p)
	}
}

func TestTrainerUnknownSubject(t *testing.T) {
	tr, _ := setupTrainer(t, Config{})
	if _, err := tr.Start(context.Background(), "存在しない", Forward, nil); !errors.Is(err, ErrUnknownSubject) {
		t.Fatalf("Start = %v", err)
	}
	if _, err := tr.Start(context.Background(), "水", Forward, nil); !errors.Is(err, ErrUnknownSubject) {
		t.Fatalf("noun as forward subject = %v", err)
	}
}

func TestTrainerStatsAndLevels(t *testing.T) {
	ctx := context.Background()
	tr, _ := setupTrainer(t, Config{MaxSize: 1, NewTarget: 1})

	d, err := tr.Start(ctx, "飲む", Forward, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, in := range []string{"くすり", "ジュース", "水"} {
		if _, err := tr.Answer(ctx, d, in); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := tr.Finish(ctx, d); err != nil {
		t.Fatal(err)
	}

	rep, err := tr.Stats(ctx, 5)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Statistics.TotalReviews != 1 || rep.Learning.TotalWords != 1 || len(rep.Recent) != 1 {
		t.Fatalf("report = %+v", rep)
	}

	lv, err := tr.LevelStats(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if lv.Total != 7 || lv.Practiced != 3 || lv.New != 4 || lv.Learning != 3 {
		t.Fatalf("levels = %+v", lv)
	}
	if lv.ByClass[catalog.Verb] != (ClassCount{Total: 2, Practiced: 1}) || lv.ByClass[catalog.Noun] != (ClassCount{Total: 4, Practiced: 2}) {
		t.Fatalf("by class = %+v", lv.ByClass)
	}
	if lv.PracticedPercentage != 43 || lv.MasteryPercentage != 0 {
		t.Fatalf("percentages = %d / %d", lv.PracticedPercentage, lv.MasteryPercentage)
	}

	scoped, err := tr.LevelStats(ctx, studylist.New("n5", []string{"水", "山"}, testNow))
	if err != nil {
		t.Fatal(err)
	}
	if scoped.Total != 2 || scoped.Practiced != 1 {
		t.Fatalf("scoped levels = %+v", scoped)
	}

	if err := tr.Reset(ctx); err != nil {
		t.Fatal(err)
	}
	rep, err = tr.Stats(ctx, 5)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Statistics.TotalReviews != 0 || rep.Learning.TotalWords != 0 || len(rep.Recent) != 0 {
		t.Fatalf("report after reset = %+v", rep)
	}
	cs, err := tr.Recommend(ctx, nil, 0)
	if err != nil || len(cs) != 3 || cs[2].Category != "new" {
		t.Fatalf("ranking after reset = %+v, %v", cs, err)
	}
}

func TestTrainerLookup(t *testing.T) {
	ctx := context.Background()
	tr, _ := setupTrainer(t, Config{})

	d, err := tr.Start(ctx, "飲む", Forward, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, in := range []string{"みず", "ジュース", "くすり"} {
		if _, err := tr.Answer(ctx, d, in); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := tr.Finish(ctx, d); err != nil {
		t.Fatal(err)
	}

	verb, err := tr.Lookup(ctx, "飲む")
	if err != nil {
		t.Fatal(err)
	}
	if verb.Direction != Forward || verb.Progress == nil || verb.Stats.VeryCommon != 2 {
		t.Fatalf("verb report = %+v", verb)
	}
	if len(verb.Pairs) != 2 || verb.Pairs["水"].Correct != 1 {
		t.Fatalf("verb pairs = %+v", verb.Pairs)
	}

	noun, err := tr.Lookup(ctx, "薬")
	if err != nil {
		t.Fatal(err)
	}
	want := catalog.EntryStats{TotalMatches: 3, VeryCommon: 1, Common: 1, Possible: 1}
	if noun.Direction != Reverse || noun.Progress != nil || noun.Stats != want {
		t.Fatalf("noun report = %+v", noun)
	}
	if len(noun.Pairs) != 1 || noun.Pairs["飲む"].Correct != 1 {
		t.Fatalf("noun pairs = %+v", noun.Pairs)
	}

	if _, err := tr.Lookup(ctx, "ジュース"); !errors.Is(err, ErrUnknownSubject) {
		t.Fatalf("Lookup of unknown word = %v", err)
	}
}

func TestTrainerStaticLimit(t *testing.T) {
	ctx := context.Background()
	tr, _ := setupTrainer(t, Config{MaxSize: 1, StaticLimit: true})

	// Short partner lists are drilled whole regardless of MaxSize.
	d, err := tr.Start(ctx, "飲む", Forward, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(d.Targets) != 2 || len(d.Bonus) != 0 {
		t.Fatalf("targets %+v, bonus %+v", d.Targets, d.Bonus)
	}
}

// setupWideTrainer drills 見る against twenty nouns. n00-n04 are unseen and
// n05-n19 have one correct attempt each.
func setupWideTrainer(t *testing.T, cfg Config) *Trainer {
	t.Helper()
	ctx := context.Background()
	s, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	var nouns []catalog.Match
	for i := 0; i < 20; i++ {
		tok := fmt.Sprintf("n%02d", i)
		nouns = append(nouns, catalog.Match{Token: tok, Reading: tok, Class: catalog.Noun, Score: 2})
		if i < 5 {
			continue
		}
		p := srs.RecordOutcome(srs.NewPairProgress(srs.PairID("見る", tok)), srs.Correct, testNow)
		if err := s.PutPairProgress(ctx, p); err != nil {
			t.Fatal(err)
		}
	}
	cat, err := catalog.New(nil, []catalog.CollocationEntry{{
		Token:   "見る",
		Class:   catalog.Verb,
		Reading: "みる",
		Matches: map[catalog.WordClass][]catalog.Match{catalog.Noun: nouns},
	}})
	if err != nil {
		t.Fatal(err)
	}
	cfg.Now = func() time.Time { return testNow }
	tr, err := NewTrainer(s, cat, cfg)
	if err != nil {
		t.Fatalf("NewTrainer: %v", err)
	}
	return tr
}

func unseenTargets(d *Drill) int {
	n := 0
	for _, m := range d.Targets {
		if m.Token < "n05" {
			n++
		}
	}
	return n
}

func TestTrainerDrillSetComposition(t *testing.T) {
	tests := []struct {
		name       string
		cfg        Config
		wantUnseen int
	}{
		{"review only", Config{MaxSize: 10, NewTarget: 0}, 0},
		{"default new target", Config{MaxSize: 10, NewTarget: -1}, 3},
		{"cache smaller than pool", Config{MaxSize: 10, NewTarget: 3, CacheSize: 4}, 3},
		{"cache smaller than pool, review only", Config{MaxSize: 10, NewTarget: 0, CacheSize: 4}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := setupWideTrainer(t, tt.cfg)
			d, err := tr.Start(context.Background(), "見る", Forward, nil)
			if err != nil {
				t.Fatalf("Start: %v", err)
			}
			if len(d.Targets) != 10 || len(d.Bonus) != 10 {
				t.Fatalf("targets %d, bonus %d", len(d.Targets), len(d.Bonus))
			}
			if got := unseenTargets(d); got != tt.wantUnseen {
				t.Fatalf("unseen targets = %d, want %d: %+v", got, tt.wantUnseen, d.Targets)
			}
		})
	}
}

type flakyStore struct {
	store.Store
	fails int
}

func (f *flakyStore) RecordDrill(ctx context.Context, p srs.ItemProgress, update func(srs.Statistics) srs.Statistics, rec store.SessionRecord) error {
	if f.fails > 0 {
		f.fails--
		return errors.New("disk full")
	}
	return f.Store.RecordDrill(ctx, p, update, rec)
}

func TestTrainerFinishRetry(t *testing.T) {
	ctx := context.Background()
	base, s := setupTrainer(t, Config{})
	tr, err := NewTrainer(&flakyStore{Store: s, fails: 1}, base.Catalog(), Config{Now: func() time.Time { return testNow }})
	if err != nil {
		t.Fatal(err)
	}

	d, err := tr.Start(ctx, "飲む", Forward, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tr.Answer(ctx, d, "みず"); err != nil {
		t.Fatal(err)
	}
	if _, err := tr.Finish(ctx, d); err == nil {
		t.Fatal("expected first Finish to fail")
	}
	sum, err := tr.Finish(ctx, d)
	if err != nil {
		t.Fatalf("retried Finish: %v", err)
	}
	if sum.Progress.ReviewCount != 1 {
		t.Fatalf("progress = %+v", sum.Progress)
	}
	p, ok, err := s.GetItemProgress(ctx, "飲む")
	if err != nil || !ok || p.ReviewCount != 1 {
		t.Fatalf("stored progress = %+v, ok=%v err=%v", p, ok, err)
	}
	if st, _ := s.GetStatistics(ctx); st.TotalReviews != 1 {
		t.Fatalf("statistics = %+v", st)
	}
	if _, err := tr.Finish(ctx, d); !errors.Is(err, ErrSessionFinished) {
		t.Fatalf("third Finish = %v", err)
	}
}
