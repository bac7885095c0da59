package catalog

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

type rawVocabulary struct {
	ID        json.RawMessage `json:"id"`
	Japanese  string          `json:"japanese"`
	Reading   string          `json:"reading"`
	English   string          `json:"english"`
	Type      string          `json:"type"`
	Frequency float64         `json:"frequency"`
	Rank      int             `json:"rank"`
}

type rawMatch struct {
	Word    string `json:"word"`
	Reading string `json:"reading"`
	English string `json:"english"`
	Score   int    `json:"score"`
}

type rawEntry struct {
	Type    string                `json:"type"`
	Reading string                `json:"reading"`
	English string                `json:"english"`
	Matches map[string][]rawMatch `json:"matches"`
}

// matchKeys maps the plural keys of the collocation file to partner classes.
var matchKeys = map[string]WordClass{
	"nouns":      Noun,
	"verbs":      Verb,
	"adjectives": Adjective,
}

// ReadVocabulary parses a vocabulary file ({"vocabulary": [...]}) and assigns
// frequency ranks to items that do not carry one.
func ReadVocabulary(r io.Reader) ([]VocabularyItem, error) {
	var doc struct {
		Vocabulary []rawVocabulary `json:"vocabulary"`
	}
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode vocabulary: %w", err)
	}
	items := make([]VocabularyItem, 0, len(doc.Vocabulary))
	for i, rv := range doc.Vocabulary {
		class, err := ParseWordClass(rv.Type)
		if err != nil {
			return nil, fmt.Errorf("vocabulary %d (%s): %w", i, rv.Japanese, err)
		}
		token := strings.TrimSpace(rv.Japanese)
		if err := ValidateToken(token); err != nil {
			return nil, fmt.Errorf("vocabulary %d: %w", i, err)
		}
		items = append(items, VocabularyItem{
			ID:            rawID(rv.ID),
			Token:         token,
			Reading:       rv.Reading,
			Gloss:         rv.English,
			Class:         class,
			Frequency:     rv.Frequency,
			FrequencyRank: rv.Rank,
		})
	}
	AssignFrequencyRanks(items)
	return items, nil
}

// ReadCollocations parses a collocation file ({"words": {token: {...}}}).
// Entries are returned sorted by token; partner lists keep file order.
func ReadCollocations(r io.Reader) ([]CollocationEntry, error) {
	var doc struct {
		Words map[string]rawEntry `json:"words"`
	}
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode collocations: %w", err)
	}
	tokens := make([]string, 0, len(doc.Words))
	for tok := range doc.Words {
		tokens = append(tokens, tok)
	}
	sort.Strings(tokens)

	entries := make([]CollocationEntry, 0, len(tokens))
	for _, tok := range tokens {
		re := doc.Words[tok]
		class, err := ParseWordClass(re.Type)
		if err != nil {
			return nil, fmt.Errorf("collocation %s: %w", tok, err)
		}
		e := CollocationEntry{
			Token:   tok,
			Class:   class,
			Reading: re.Reading,
			Gloss:   re.English,
			Matches: make(map[WordClass][]Match, len(re.Matches)),
		}
		for key, ms := range re.Matches {
			pc, ok := matchKeys[key]
			if !ok {
				continue
			}
			for _, m := range ms {
				e.Matches[pc] = append(e.Matches[pc], Match{
					Token:   strings.TrimSpace(m.Word),
					Reading: m.Reading,
					Gloss:   m.English,
					Class:   pc,
					Score:   m.Score,
				})
			}
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// LoadFiles reads a vocabulary file and a collocation file and builds the
// catalog.
func LoadFiles(vocabPath, collocPath string) (*Catalog, error) {
	vf, err := os.Open(vocabPath)
	if err != nil {
		return nil, err
	}
	defer vf.Close()
	vocab, err := ReadVocabulary(vf)
	if err != nil {
		return nil, err
	}

	cf, err := os.Open(collocPath)
	if err != nil {
		return nil, err
	}
	defer cf.Close()
	entries, err := ReadCollocations(cf)
	if err != nil {
		return nil, err
	}
	return New(vocab, entries)
}

// AssignFrequencyRanks ranks items by frequency score descending, ties by
// token. Items that already carry a positive rank keep it.
func AssignFrequencyRanks(items []VocabularyItem) {
	order := make([]int, len(items))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ia, ib := items[order[a]], items[order[b]]
		if ia.Frequency != ib.Frequency {
			return ia.Frequency > ib.Frequency
		}
		return ia.Token < ib.Token
	})
	for rank, i := range order {
		if items[i].FrequencyRank <= 0 {
			items[i].FrequencyRank = rank + 1
		}
	}
}

func rawID(b json.RawMessage) string {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(b))
}
