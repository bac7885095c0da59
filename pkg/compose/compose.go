// Package compose selects the bounded set of partners practiced in one drill.
package compose

import (
	"sort"

	"github.com/japaniel/collodrill/pkg/catalog"
	"github.com/japaniel/collodrill/pkg/srs"
)

// Defaults used when a caller passes a non-positive size or target.
const (
	DefaultMaxSize   = 15
	DefaultNewTarget = 3
)

// PairLookup returns the progress of the pair formed by the drill subject and
// partner. Absent records report false.
type PairLookup func(partner string) (srs.PairProgress, bool)

type scored struct {
	m        catalog.Match
	strength int
}

// SelectDrillSet picks at most maxSize partners from matches: up to newTarget
// unseen partners with the highest affinity, then the weakest reviewed
// partners, then any remaining partners in input order. When matches already
// fit, they are returned unchanged.
func SelectDrillSet(matches []catalog.Match, lookup PairLookup, maxSize, newTarget int) []catalog.Match {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if newTarget < 0 {
		newTarget = 0
	}
	if len(matches) <= maxSize {
		return matches
	}

	var fresh, review []scored
	for _, m := range matches {
		var p srs.PairProgress
		var ok bool
		if lookup != nil {
			p, ok = lookup(m.Token)
		}
		if !ok || p.IsNew() {
			fresh = append(fresh, scored{m: m})
		} else {
			review = append(review, scored{m: m, strength: p.Strength})
		}
	}

	sort.SliceStable(fresh, func(i, j int) bool {
		return byAffinity(fresh[i].m, fresh[j].m)
	})
	sort.SliceStable(review, func(i, j int) bool {
		if review[i].strength != review[j].strength {
			return review[i].strength < review[j].strength
		}
		return byAffinity(review[i].m, review[j].m)
	})

	out := make([]catalog.Match, 0, maxSize)
	picked := make(map[string]bool, maxSize)
	take := func(m catalog.Match) {
		if len(out) < maxSize && !picked[m.Token] {
			picked[m.Token] = true
			out = append(out, m)
		}
	}

	for i := 0; i < len(fresh) && i < newTarget; i++ {
		take(fresh[i].m)
	}
	for _, s := range review {
		take(s.m)
	}
	for _, m := range matches {
		take(m)
	}
	return out
}

// StaticLimit trims long partner lists without consulting progress: 30 or
// more partners keep the best 15, 20 to 29 keep the best 20.
func StaticLimit(matches []catalog.Match) []catalog.Match {
	var limit int
	switch n := len(matches); {
	case n >= 30:
		limit = 15
	case n >= 20:
		limit = 20
	default:
		return matches
	}
	best := make([]catalog.Match, len(matches))
	copy(best, matches)
	sort.SliceStable(best, func(i, j int) bool { return byAffinity(best[i], best[j]) })
	return best[:limit]
}

func byAffinity(a, b catalog.Match) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.Token < b.Token
}
