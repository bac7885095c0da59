// Package resolve matches a typed answer against the partners of a drill.
package resolve

import (
	"strings"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"

	"github.com/japaniel/collodrill/pkg/analyze"
	"github.com/japaniel/collodrill/pkg/catalog"
)

// Lemmatizer reduces an inflected answer to its dictionary form. It returns
// "" when it cannot.
type Lemmatizer interface {
	Lemma(text string) string
}

// Found is the set of partner tokens already found in a drill.
type Found map[string]bool

// Result is a resolved answer.
type Result struct {
	Match       catalog.Match
	IsBonus     bool
	IsDuplicate bool
}

// Resolver matches answers. The zero value resolves without lemmatization.
type Resolver struct {
	lem Lemmatizer
}

// New returns a Resolver. lem may be nil.
func New(lem Lemmatizer) *Resolver {
	return &Resolver{lem: lem}
}

const trimSet = " 　。、.,!?！？「」"

// Normalize folds width variants, applies NFKC, lower-cases latin letters and
// trims surrounding whitespace and punctuation.
func Normalize(s string) string {
	s = width.Fold.String(s)
	s = norm.NFKC.String(s)
	s = strings.ToLower(s)
	return strings.Trim(s, trimSet)
}

// Kana normalizes s and converts katakana to hiragana, for comparing
// readings.
func Kana(s string) string {
	return analyze.ToHiragana(Normalize(s))
}

// Resolve matches input against target first and then against bonus. Within a
// set, an exact written form wins; otherwise a reading match is used,
// preferring a partner not yet found so that homophones stay reachable.
// It reports false when nothing matches.
func (r *Resolver) Resolve(input string, target, bonus []catalog.Match, foundTarget, foundBonus Found) (Result, bool) {
	forms := r.forms(input)
	if len(forms) == 0 {
		return Result{}, false
	}
	if m, ok := lookup(forms, target, foundTarget); ok {
		return Result{Match: m, IsDuplicate: foundTarget[m.Token]}, true
	}
	if m, ok := lookup(forms, bonus, foundBonus); ok {
		return Result{Match: m, IsBonus: true, IsDuplicate: foundBonus[m.Token]}, true
	}
	return Result{}, false
}

// forms returns the normalized answer followed by its lemma when that
// differs.
func (r *Resolver) forms(input string) []string {
	n := Normalize(input)
	if n == "" {
		return nil
	}
	forms := []string{n}
	if r != nil && r.lem != nil {
		if l := Normalize(r.lem.Lemma(n)); l != "" && l != n {
			forms = append(forms, l)
		}
	}
	return forms
}

func lookup(forms []string, set []catalog.Match, found Found) (catalog.Match, bool) {
	for _, f := range forms {
		for _, m := range set {
			if Normalize(m.Token) == f {
				return m, true
			}
		}
	}

	var dup *catalog.Match
	for _, f := range forms {
		k := analyze.ToHiragana(f)
		for i := range set {
			m := set[i]
			if m.Reading == "" || Kana(m.Reading) != k {
				continue
			}
			if !found[m.Token] {
				return m, true
			}
			if dup == nil {
				dup = &set[i]
			}
		}
	}
	if dup != nil {
		return *dup, true
	}
	return catalog.Match{}, false
}
