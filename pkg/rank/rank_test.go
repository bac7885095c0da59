package rank

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/japaniel/collodrill/pkg/catalog"
	"github.com/japaniel/collodrill/pkg/srs"
)

var testNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

type tokenSet map[string]bool

func (s tokenSet) Contains(token string) bool { return s[token] }

func loadCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	dir := filepath.Join("..", "catalog", "testdata")
	c, err := catalog.LoadFiles(filepath.Join(dir, "vocabulary.json"), filepath.Join(dir, "collocations.json"))
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	return c
}

func tokens(cs []Candidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Token
	}
	return out
}

func equalTokens(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		p        *srs.ItemProgress
		want     Category
		priority float64
	}{
		{"never reviewed", nil, CategoryNew, 20004},
		{"failed", &srs.ItemProgress{Interval: 0, IncorrectCount: 1}, CategoryFailed, 10004},
		{"learning", &srs.ItemProgress{Level: 1, Interval: 3, CorrectCount: 1}, CategoryLearning, 7004},
		{"short interval", &srs.ItemProgress{Level: 3, Interval: 2, CorrectCount: 5}, CategoryLearning, 5004},
		{"overdue two days", &srs.ItemProgress{Level: 3, Interval: 5, CorrectCount: 4, NextReviewAt: testNow.Add(-48 * time.Hour)}, CategoryDue, 2204},
		{"young", &srs.ItemProgress{Level: 3, Interval: 8, CorrectCount: 4, NextReviewAt: testNow.AddDate(0, 0, 2)}, CategoryYoung, 504},
		{"mature", &srs.ItemProgress{Level: 9, Interval: 40, CorrectCount: 12, NextReviewAt: testNow.AddDate(0, 0, 9)}, CategoryMature, 104},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat, pri := Classify(tt.p, 4, testNow)
			if cat != tt.want {
				t.Fatalf("category = %s, want %s", cat, tt.want)
			}
			if pri != tt.priority {
				t.Fatalf("priority = %v, want %v", pri, tt.priority)
			}
		})
	}
}

func TestWordsAllNew(t *testing.T) {
	r := New(loadCatalog(t))
	got := r.RankWords(nil, Options{Now: testNow})
	want := []string{"飲む", "高い", "食べる"}
	if !equalTokens(tokens(got), want) {
		t.Fatalf("order = %v, want %v", tokens(got), want)
	}
	if got[0].AffinitySum != 6 || got[0].MatchCount != 2 || got[0].Progress != nil {
		t.Fatalf("top candidate = %+v", got[0])
	}
}

func TestNewOutranksMature(t *testing.T) {
	r := New(loadCatalog(t))
	progress := ProgressMap{
		"飲む": {Token: "飲む", Level: 9, EaseFactor: 3, Interval: 40, CorrectCount: 12, ReviewCount: 12, NextReviewAt: testNow.AddDate(0, 0, 10)},
		"高い": {Token: "高い", Level: 1, Interval: 1, CorrectCount: 1, ReviewCount: 2, IncorrectCount: 1, NextReviewAt: testNow},
	}
	got := r.RankWords(progress, Options{Now: testNow})
	want := []string{"食べる", "高い", "飲む"}
	if !equalTokens(tokens(got), want) {
		t.Fatalf("order = %v, want %v", tokens(got), want)
	}
	if got[2].Category != CategoryMature || got[1].Category != CategoryLearning {
		t.Fatalf("categories = %s, %s", got[1].Category, got[2].Category)
	}
}

func TestBandsDoNotOverlap(t *testing.T) {
	r := New(loadCatalog(t))
	// 食べる is a year overdue; its priority exceeds the learning base but it
	// must still rank below the learning item.
	progress := ProgressMap{
		"食べる": {Level: 3, Interval: 5, CorrectCount: 4, NextReviewAt: testNow.AddDate(-1, 0, 0)},
		"飲む":  {Level: 1, Interval: 3, CorrectCount: 2, NextReviewAt: testNow.AddDate(0, 0, 1)},
		"高い":  {Level: 4, Interval: 10, CorrectCount: 5, NextReviewAt: testNow.AddDate(0, 0, 3)},
	}
	got := r.RankWords(progress, Options{Now: testNow})
	want := []string{"飲む", "食べる", "高い"}
	if !equalTokens(tokens(got), want) {
		t.Fatalf("order = %v, want %v", tokens(got), want)
	}
	if got[1].Priority <= got[0].Priority {
		t.Fatalf("overdue priority %v should exceed learning priority %v", got[1].Priority, got[0].Priority)
	}
}

func TestWordsScopeAndCount(t *testing.T) {
	r := New(loadCatalog(t))

	got := r.RankWords(nil, Options{Now: testNow, Scope: tokenSet{"水": true}})
	if !equalTokens(tokens(got), []string{"飲む"}) {
		t.Fatalf("scoped = %v, want [飲む]", tokens(got))
	}
	if got[0].AffinitySum != 3 || got[0].TotalMatches != 2 || got[0].MatchCount != 1 {
		t.Fatalf("scoped candidate = %+v", got[0])
	}

	got = r.RankWords(nil, Options{Now: testNow, Scope: tokenSet{"猫": true}})
	if len(got) != 0 {
		t.Fatalf("expected no candidates, got %v", tokens(got))
	}

	got = r.RankWords(nil, Options{Now: testNow, Count: 2, Classes: []catalog.WordClass{catalog.Verb}})
	if !equalTokens(tokens(got), []string{"飲む", "食べる"}) {
		t.Fatalf("verbs = %v", tokens(got))
	}
}

func TestNouns(t *testing.T) {
	r := New(loadCatalog(t))
	got := r.RankNouns(nil, Options{Now: testNow})
	// 薬 has the highest affinity sum; the rest tie and fall back to frequency rank.
	want := []string{"薬", "水", "山", "パン"}
	if !equalTokens(tokens(got), want) {
		t.Fatalf("order = %v, want %v", tokens(got), want)
	}
	if got[0].VerbMatches != 2 || got[0].AdjMatches != 1 || got[0].AffinitySum != 6 {
		t.Fatalf("薬 = %+v", got[0])
	}

	got = r.RankNouns(nil, Options{Now: testNow, Scope: tokenSet{"高い": true}})
	if !equalTokens(tokens(got), []string{"山", "薬"}) {
		t.Fatalf("scoped nouns = %v", tokens(got))
	}
}

func TestBreakdown(t *testing.T) {
	cs := []Candidate{{Category: CategoryNew}, {Category: CategoryNew}, {Category: CategoryDue}}
	b := Breakdown(cs)
	if b[CategoryNew] != 2 || b[CategoryDue] != 1 || b[CategoryMature] != 0 {
		t.Fatalf("breakdown = %v", b)
	}
}

func TestCategoriesFollowBandOrder(t *testing.T) {
	cats := Categories()
	if len(cats) != len(bandOrder) {
		t.Fatalf("got %d categories, want %d", len(cats), len(bandOrder))
	}
	for i, c := range cats {
		if bandOrder[c] != i {
			t.Errorf("%s at %d, band order %d", c, i, bandOrder[c])
		}
	}
}
