// Package rank orders practice candidates so that new and struggling words
// come first.
package rank

import (
	"sort"
	"time"

	"github.com/japaniel/collodrill/pkg/catalog"
	"github.com/japaniel/collodrill/pkg/srs"
)

// Category is the scheduling band of a candidate.
type Category string

const (
	CategoryNew      Category = "new"
	CategoryFailed   Category = "failed"
	CategoryLearning Category = "learning"
	CategoryDue      Category = "due"
	CategoryYoung    Category = "young"
	CategoryMature   Category = "mature"
)

// Band bases. Within a band the affinity sum (and for learning and due items
// the struggle or overdue term) orders candidates.
const (
	baseNew      = 20000
	baseFailed   = 10000
	baseLearning = 5000
	baseDue      = 2000
	baseYoung    = 500
	baseMature   = 100
)

var bandOrder = map[Category]int{
	CategoryNew:      0,
	CategoryFailed:   1,
	CategoryLearning: 2,
	CategoryDue:      3,
	CategoryYoung:    4,
	CategoryMature:   5,
}

// Categories returns the bands from highest to lowest priority.
func Categories() []Category {
	return []Category{CategoryNew, CategoryFailed, CategoryLearning, CategoryDue, CategoryYoung, CategoryMature}
}

// Scope limits which partner tokens count toward a candidate. A nil Scope
// admits every token.
type Scope interface {
	Contains(token string) bool
}

// ProgressMap is the item progress snapshot keyed by token.
type ProgressMap map[string]srs.ItemProgress

// Candidate is one ranked word.
type Candidate struct {
	Token         string            `json:"token"`
	Reading       string            `json:"reading"`
	Gloss         string            `json:"gloss"`
	Class         catalog.WordClass `json:"class"`
	Category      Category          `json:"category"`
	Priority      float64           `json:"priority"`
	FrequencyRank int               `json:"frequency_rank"`
	AffinitySum   int               `json:"affinity_sum"`
	MatchCount    int               `json:"match_count"` // partners in scope
	TotalMatches  int               `json:"total_matches"`
	VerbMatches   int               `json:"verb_matches,omitempty"`
	AdjMatches    int               `json:"adjective_matches,omitempty"`
	Progress      *srs.ItemProgress `json:"progress,omitempty"`
	Partners      []catalog.Match   `json:"-"`
}

// Options control a ranking pass.
type Options struct {
	Now     time.Time
	Count   int   // 0 returns every candidate
	Scope   Scope // nil admits every partner
	Classes []catalog.WordClass
}

// Ranker ranks catalog words against a progress snapshot.
type Ranker struct {
	cat *catalog.Catalog
}

// New returns a Ranker over the catalog.
func New(cat *catalog.Catalog) *Ranker {
	return &Ranker{cat: cat}
}

// Classify returns the band and priority of a word with the given progress
// and in-scope affinity sum. A nil progress is a never-reviewed word.
func Classify(p *srs.ItemProgress, affinity int, now time.Time) (Category, float64) {
	aff := float64(affinity)
	if p == nil {
		return CategoryNew, baseNew + aff
	}
	switch {
	case p.Interval == 0 || p.CorrectCount == 0:
		return CategoryFailed, baseFailed + aff
	case p.CorrectCount < 3 || p.Interval < 3:
		struggle := max(0, 3-p.CorrectCount)
		return CategoryLearning, baseLearning + float64(struggle*1000) + aff
	case p.IsDue(now):
		daysOverdue := now.Sub(p.NextReviewAt).Hours() / 24
		return CategoryDue, baseDue + daysOverdue*100 + aff
	case p.Level < 5:
		return CategoryYoung, baseYoung + aff
	default:
		return CategoryMature, baseMature + aff
	}
}

// RankWords ranks the collocation entries (verbs and adjectives practiced against
// their noun partners).
func (r *Ranker) RankWords(progress ProgressMap, opts Options) []Candidate {
	var out []Candidate
	for _, e := range r.cat.Entries() {
		if !classAllowed(e.Class, opts.Classes) {
			continue
		}
		all := e.NounMatches()
		eligible := inScope(all, opts.Scope)
		if len(eligible) == 0 {
			continue
		}
		c := Candidate{
			Token:         e.Token,
			Reading:       e.Reading,
			Gloss:         e.Gloss,
			Class:         e.Class,
			FrequencyRank: r.cat.FrequencyRank(e.Token),
			AffinitySum:   affinitySum(eligible),
			MatchCount:    len(eligible),
			TotalMatches:  len(all),
			Partners:      eligible,
		}
		r.score(&c, progress, opts.Now)
		out = append(out, c)
	}
	return finish(out, opts.Count)
}

// RankNouns ranks nouns for reverse practice against the verbs and adjectives
// that list them.
func (r *Ranker) RankNouns(progress ProgressMap, opts Options) []Candidate {
	var out []Candidate
	for _, v := range r.cat.ItemsOfClass(catalog.Noun) {
		all := r.cat.PartnersOfNoun(v.Token)
		eligible := inScope(all, opts.Scope)
		if len(eligible) == 0 {
			continue
		}
		c := Candidate{
			Token:         v.Token,
			Reading:       v.Reading,
			Gloss:         v.Gloss,
			Class:         catalog.Noun,
			FrequencyRank: r.cat.FrequencyRank(v.Token),
			AffinitySum:   affinitySum(eligible),
			MatchCount:    len(eligible),
			TotalMatches:  len(all),
			Partners:      eligible,
		}
		for _, m := range eligible {
			switch m.Class {
			case catalog.Verb:
				c.VerbMatches++
			case catalog.Adjective:
				c.AdjMatches++
			}
		}
		r.score(&c, progress, opts.Now)
		out = append(out, c)
	}
	return finish(out, opts.Count)
}

func (r *Ranker) score(c *Candidate, progress ProgressMap, now time.Time) {
	var p *srs.ItemProgress
	if rec, ok := progress[c.Token]; ok {
		p = &rec
	}
	c.Progress = p
	c.Category, c.Priority = Classify(p, c.AffinitySum, now)
}

// Sort orders candidates by band, then priority descending, then frequency
// rank ascending, then token.
func Sort(cs []Candidate) {
	sort.SliceStable(cs, func(i, j int) bool {
		a, b := cs[i], cs[j]
		if bandOrder[a.Category] != bandOrder[b.Category] {
			return bandOrder[a.Category] < bandOrder[b.Category]
		}
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if a.FrequencyRank != b.FrequencyRank {
			return a.FrequencyRank < b.FrequencyRank
		}
		return a.Token < b.Token
	})
}

// Breakdown counts candidates per band.
func Breakdown(cs []Candidate) map[Category]int {
	out := make(map[Category]int, len(bandOrder))
	for _, c := range cs {
		out[c.Category]++
	}
	return out
}

func finish(cs []Candidate, count int) []Candidate {
	Sort(cs)
	if count > 0 && len(cs) > count {
		cs = cs[:count]
	}
	return cs
}

func inScope(ms []catalog.Match, scope Scope) []catalog.Match {
	if scope == nil {
		return ms
	}
	var out []catalog.Match
	for _, m := range ms {
		if scope.Contains(m.Token) {
			out = append(out, m)
		}
	}
	return out
}

func affinitySum(ms []catalog.Match) int {
	sum := 0
	for _, m := range ms {
		sum += m.Score
	}
	return sum
}

func classAllowed(c catalog.WordClass, allowed []catalog.WordClass) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == c {
			return true
		}
	}
	return false
}
