// Package catalog holds the immutable reference data: vocabulary items and
// their collocation partners.
package catalog

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/japaniel/collodrill/pkg/srs"
)

// ErrInvalidToken is returned for empty tokens or tokens containing the pair
// separator.
var ErrInvalidToken = errors.New("catalog: invalid token")

// UnrankedFrequency is the rank of tokens missing from the vocabulary list.
const UnrankedFrequency = math.MaxInt32

// WordClass is the grammatical class of a vocabulary item.
type WordClass string

const (
	Noun      WordClass = "noun"
	Verb      WordClass = "verb"
	Adjective WordClass = "adjective"
)

// IsValid reports whether c is one of the supported classes.
func (c WordClass) IsValid() bool {
	return c == Noun || c == Verb || c == Adjective
}

// ParseWordClass parses a class name.
func ParseWordClass(s string) (WordClass, error) {
	c := WordClass(strings.ToLower(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", fmt.Errorf("catalog: unknown word class %q", s)
	}
	return c, nil
}

// VocabularyItem is one word of the catalog.
type VocabularyItem struct {
	ID            string    `json:"id"`
	Token         string    `json:"token"`
	Reading       string    `json:"reading"`
	Gloss         string    `json:"gloss"`
	Class         WordClass `json:"class"`
	Frequency     float64   `json:"frequency"`      // zipf-style score, higher is more common
	FrequencyRank int       `json:"frequency_rank"` // 1 is the most common
}

// Match is a collocation partner of an entry.
type Match struct {
	Token   string    `json:"token"`
	Reading string    `json:"reading"`
	Gloss   string    `json:"gloss"`
	Class   WordClass `json:"class"`
	Score   int       `json:"score"` // affinity 1..3, 3 is a very common pairing
}

// CollocationEntry is a source word together with its partners grouped by
// the partner's class.
type CollocationEntry struct {
	Token   string                `json:"token"`
	Class   WordClass             `json:"class"`
	Reading string                `json:"reading"`
	Gloss   string                `json:"gloss"`
	Matches map[WordClass][]Match `json:"matches"`
}

// Partners returns the matches of the given partner class.
func (e CollocationEntry) Partners(class WordClass) []Match {
	return e.Matches[class]
}

// NounMatches returns the noun partners of a verb or adjective entry.
func (e CollocationEntry) NounMatches() []Match { return e.Matches[Noun] }

// VerbMatches returns the verb partners of a reverse (noun) entry.
func (e CollocationEntry) VerbMatches() []Match { return e.Matches[Verb] }

// AdjectiveMatches returns the adjective partners of a reverse (noun) entry.
func (e CollocationEntry) AdjectiveMatches() []Match { return e.Matches[Adjective] }

// AllPartners returns every match, nouns first, then verbs, then adjectives.
func (e CollocationEntry) AllPartners() []Match {
	var out []Match
	for _, c := range []WordClass{Noun, Verb, Adjective} {
		out = append(out, e.Matches[c]...)
	}
	return out
}

// MatchesByScore returns the partners with an affinity of at least minScore.
func (e CollocationEntry) MatchesByScore(minScore int) []Match {
	var out []Match
	for _, m := range e.AllPartners() {
		if m.Score >= minScore {
			out = append(out, m)
		}
	}
	return out
}

// MatchScore returns the affinity of the partner token, or 0 when it is not a
// partner of e.
func (e CollocationEntry) MatchScore(token string) int {
	for _, m := range e.AllPartners() {
		if m.Token == token {
			return m.Score
		}
	}
	return 0
}

// IsValidMatch reports whether token is a partner of e.
func (e CollocationEntry) IsValidMatch(token string) bool {
	return e.MatchScore(token) > 0
}

// EntryStats counts partners per affinity score.
type EntryStats struct {
	TotalMatches int `json:"total_matches"`
	VeryCommon   int `json:"very_common"`
	Common       int `json:"common"`
	Possible     int `json:"possible"`
}

// Stats counts the partners of e per affinity.
func (e CollocationEntry) Stats() EntryStats {
	var st EntryStats
	for _, m := range e.AllPartners() {
		st.TotalMatches++
		switch m.Score {
		case 3:
			st.VeryCommon++
		case 2:
			st.Common++
		case 1:
			st.Possible++
		}
	}
	return st
}

// ValidateToken rejects tokens that cannot be used in a pair identifier.
func ValidateToken(token string) error {
	if strings.TrimSpace(token) == "" || strings.Contains(token, srs.PairSeparator) {
		return fmt.Errorf("%w: %q", ErrInvalidToken, token)
	}
	return nil
}

type itemKey struct {
	class WordClass
	token string
}

// Catalog indexes vocabulary and collocation entries for lookup. It is safe
// for concurrent readers.
type Catalog struct {
	vocab   []VocabularyItem
	entries []CollocationEntry

	itemIdx  map[itemKey]int
	tokenIdx map[string]int
	entryIdx map[string]int

	// reverse maps a noun to the verbs and adjectives listing it as partner.
	// Built on first use.
	mu      sync.Mutex
	reverse map[string][]Match
}

// New validates the reference data and builds the lookup indexes.
// Entries keep the order they are given in.
func New(vocab []VocabularyItem, entries []CollocationEntry) (*Catalog, error) {
	c := &Catalog{
		vocab:    vocab,
		entries:  entries,
		itemIdx:  make(map[itemKey]int, len(vocab)),
		tokenIdx: make(map[string]int, len(vocab)),
		entryIdx: make(map[string]int, len(entries)),
	}
	for i, v := range vocab {
		if err := ValidateToken(v.Token); err != nil {
			return nil, err
		}
		if !v.Class.IsValid() {
			return nil, fmt.Errorf("catalog: vocabulary %q has class %q", v.Token, v.Class)
		}
		c.itemIdx[itemKey{v.Class, v.Token}] = i
		if _, ok := c.tokenIdx[v.Token]; !ok {
			c.tokenIdx[v.Token] = i
		}
	}
	for i, e := range entries {
		if err := ValidateToken(e.Token); err != nil {
			return nil, err
		}
		for _, m := range e.AllPartners() {
			if err := ValidateToken(m.Token); err != nil {
				return nil, fmt.Errorf("entry %q: %w", e.Token, err)
			}
			if m.Score < 1 || m.Score > 3 {
				return nil, fmt.Errorf("catalog: entry %q partner %q has score %d", e.Token, m.Token, m.Score)
			}
		}
		if _, dup := c.entryIdx[e.Token]; dup {
			return nil, fmt.Errorf("catalog: duplicate entry %q", e.Token)
		}
		c.entryIdx[e.Token] = i
	}
	return c, nil
}

// Vocabulary returns all vocabulary items in load order.
func (c *Catalog) Vocabulary() []VocabularyItem { return c.vocab }

// Entries returns all collocation entries in load order.
func (c *Catalog) Entries() []CollocationEntry { return c.entries }

// Entry returns the collocation entry of a source token.
func (c *Catalog) Entry(token string) (CollocationEntry, bool) {
	i, ok := c.entryIdx[token]
	if !ok {
		return CollocationEntry{}, false
	}
	return c.entries[i], true
}

// Item returns the vocabulary item with the token, preferring the given class.
// An empty class matches any.
func (c *Catalog) Item(token string, class WordClass) (VocabularyItem, bool) {
	if class != "" {
		if i, ok := c.itemIdx[itemKey{class, token}]; ok {
			return c.vocab[i], true
		}
	}
	i, ok := c.tokenIdx[token]
	if !ok {
		return VocabularyItem{}, false
	}
	return c.vocab[i], true
}

// Contains reports whether token is a vocabulary item or an entry.
func (c *Catalog) Contains(token string) bool {
	if _, ok := c.tokenIdx[token]; ok {
		return true
	}
	_, ok := c.entryIdx[token]
	return ok
}

// FrequencyRank returns the rank of token, or UnrankedFrequency.
func (c *Catalog) FrequencyRank(token string) int {
	if v, ok := c.Item(token, ""); ok && v.FrequencyRank > 0 {
		return v.FrequencyRank
	}
	return UnrankedFrequency
}

// ItemsOfClass returns the vocabulary items of one class in load order.
func (c *Catalog) ItemsOfClass(class WordClass) []VocabularyItem {
	var out []VocabularyItem
	for _, v := range c.vocab {
		if v.Class == class {
			out = append(out, v)
		}
	}
	return out
}

// PartnersOfNoun returns the verbs and adjectives that list noun as a partner,
// sorted by affinity descending, then token.
func (c *Catalog) PartnersOfNoun(noun string) []Match {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.reverse == nil {
		c.reverse = c.buildReverse()
	}
	return c.reverse[noun]
}

func (c *Catalog) buildReverse() map[string][]Match {
	rev := make(map[string][]Match)
	for _, e := range c.entries {
		if e.Class != Verb && e.Class != Adjective {
			continue
		}
		for _, m := range e.NounMatches() {
			rev[m.Token] = append(rev[m.Token], Match{
				Token:   e.Token,
				Reading: e.Reading,
				Gloss:   e.Gloss,
				Class:   e.Class,
				Score:   m.Score,
			})
		}
	}
	for _, ms := range rev {
		SortByAffinity(ms)
	}
	return rev
}

// ReverseEntry builds the noun-to-verb/adjective entry used for reverse
// practice. It reports false when no entry lists the noun.
func (c *Catalog) ReverseEntry(noun string) (CollocationEntry, bool) {
	partners := c.PartnersOfNoun(noun)
	if len(partners) == 0 {
		return CollocationEntry{}, false
	}
	e := CollocationEntry{
		Token:   noun,
		Class:   Noun,
		Matches: make(map[WordClass][]Match, 2),
	}
	if v, ok := c.Item(noun, Noun); ok {
		e.Reading, e.Gloss = v.Reading, v.Gloss
	} else if fwd, ok := c.Entry(partners[0].Token); ok {
		for _, m := range fwd.NounMatches() {
			if m.Token == noun {
				e.Reading, e.Gloss = m.Reading, m.Gloss
				break
			}
		}
	}
	for _, m := range partners {
		e.Matches[m.Class] = append(e.Matches[m.Class], m)
	}
	return e, true
}

// SortByAffinity orders matches by score descending, then token ascending.
func SortByAffinity(ms []Match) {
	sort.SliceStable(ms, func(i, j int) bool {
		if ms[i].Score != ms[j].Score {
			return ms[i].Score > ms[j].Score
		}
		return ms[i].Token < ms[j].Token
	})
}

// Stats summarizes the catalog.
type Stats struct {
	Vocabulary   int               `json:"vocabulary"`
	Entries      int               `json:"entries"`
	TotalPairs   int               `json:"total_pairs"`
	ByClass      map[WordClass]int `json:"by_class"`
	EntryByClass map[WordClass]int `json:"entry_by_class"`
}

// Stats counts vocabulary per class and collocation pairs.
func (c *Catalog) Stats() Stats {
	st := Stats{
		Vocabulary:   len(c.vocab),
		Entries:      len(c.entries),
		ByClass:      make(map[WordClass]int),
		EntryByClass: make(map[WordClass]int),
	}
	for _, v := range c.vocab {
		st.ByClass[v.Class]++
	}
	for _, e := range c.entries {
		st.EntryByClass[e.Class]++
		st.TotalPairs += len(e.NounMatches())
	}
	return st
}
