// Package analyze wraps the morphological analyzer used to lemmatize answers,
// derive readings and tokenize study material.
package analyze

import (
	"regexp"
	"strings"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"
)

// Token represents a single analyzed unit of text.
type Token struct {
	Surface       string   // The text as it appears (e.g. "飲ん")
	BaseForm      string   // The dictionary form (e.g. "飲む")
	Reading       string   // katakana, e.g. "ノン"
	PartsOfSpeech []string // e.g. ["動詞", "自立", "*", "*"] (IPA POS labels)
	PrimaryPOS    string
}

// IsContent reports whether t is a noun, verb or adjective that carries
// meaning on its own.
func (t Token) IsContent() bool {
	sub := ""
	if len(t.PartsOfSpeech) > 1 {
		sub = t.PartsOfSpeech[1]
	}
	switch t.PrimaryPOS {
	case "名詞":
		return sub != "接尾" && sub != "非自立" && sub != "代名詞" && sub != "数"
	case "動詞", "形容詞":
		return sub != "非自立" && sub != "接尾"
	}
	return false
}

// Sentence represents a sentence containing tokens.
type Sentence struct {
	Text   string
	Tokens []Token
}

// Analyzer handles text segmentation.
type Analyzer struct {
	t *tokenizer.Tokenizer
}

// NewAnalyzer creates a new tokenizer instance.
func NewAnalyzer() (*Analyzer, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, err
	}
	return &Analyzer{t: t}, nil
}

// Analyze breaks text into tokens with readings and base forms.
func (a *Analyzer) Analyze(text string) ([]Token, error) {
	var result []Token
	for _, token := range a.t.Tokenize(text) {
		if token.Class == tokenizer.DUMMY {
			continue
		}
		if strings.TrimSpace(token.Surface) == "" {
			continue
		}

		// IPA features: POS, sub-POS 1..3, conjugation type and form, base
		// form, reading, pronunciation.
		features := token.Features()

		base := token.Surface
		if len(features) > 6 && features[6] != "*" {
			base = features[6]
		}
		reading := ""
		if len(features) > 7 && features[7] != "*" {
			reading = features[7]
		}
		primaryPOS := ""
		if len(features) > 0 {
			primaryPOS = features[0]
		}

		result = append(result, Token{
			Surface:       token.Surface,
			BaseForm:      base,
			Reading:       reading,
			PartsOfSpeech: features,
			PrimaryPOS:    primaryPOS,
		})
	}
	return result, nil
}

// AnalyzeDocument splits the text into sentences and tokenizes each sentence.
func (a *Analyzer) AnalyzeDocument(text string) ([]Sentence, error) {
	var result []Sentence
	for _, s := range splitSentences(text) {
		if strings.TrimSpace(s) == "" {
			continue
		}
		tokens, err := a.Analyze(s)
		if err != nil {
			return nil, err
		}
		result = append(result, Sentence{Text: s, Tokens: tokens})
	}
	return result, nil
}

// Lemma returns the dictionary form of a single-word answer such as "飲んだ".
// It returns "" when text holds no content word or more than one.
func (a *Analyzer) Lemma(text string) string {
	tokens, err := a.Analyze(text)
	if err != nil {
		return ""
	}
	lemma := ""
	for _, t := range tokens {
		if !t.IsContent() {
			continue
		}
		if lemma != "" {
			return ""
		}
		lemma = t.BaseForm
	}
	return lemma
}

// Lemmas returns the base forms of the content words of text in order of
// first appearance, without duplicates.
func (a *Analyzer) Lemmas(text string) ([]string, error) {
	sentences, err := a.AnalyzeDocument(text)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var out []string
	for _, s := range sentences {
		for _, t := range s.Tokens {
			if !t.IsContent() || seen[t.BaseForm] {
				continue
			}
			seen[t.BaseForm] = true
			out = append(out, t.BaseForm)
		}
	}
	return out, nil
}

// Reading returns the hiragana reading of text. Tokens without a known
// reading contribute their surface.
func (a *Analyzer) Reading(text string) string {
	tokens, err := a.Analyze(text)
	if err != nil {
		return ""
	}
	var b strings.Builder
	for _, t := range tokens {
		if t.Reading != "" {
			b.WriteString(t.Reading)
		} else {
			b.WriteString(t.Surface)
		}
	}
	return ToHiragana(b.String())
}

func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	for _, r := range text {
		current.WriteRune(r)
		// 。(3002), ！(FF01), ？(FF1F)
		if r == '。' || r == '！' || r == '？' || r == '\n' {
			sentences = append(sentences, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		sentences = append(sentences, current.String())
	}
	return sentences
}

// ToHiragana converts katakana to hiragana. Other runes pass through.
func ToHiragana(s string) string {
	runes := []rune(s)
	for i, r := range runes {
		if r >= 0x30A1 && r <= 0x30F6 {
			runes[i] = r - 0x60
		}
	}
	return string(runes)
}

var (
	reRT = regexp.MustCompile(`(?si)<rt\b[^>]*>.*?</rt>`)
	reRP = regexp.MustCompile(`(?si)<rp\b[^>]*>.*?</rp>`)
)

// SanitizeRuby removes ruby text (<rt>...</rt>) and ruby parentheses
// (<rp>...</rp>) from HTML so that furigana is not extracted twice
// ("漢字かんじ").
func SanitizeRuby(content []byte) []byte {
	cleaned := reRT.ReplaceAll(content, []byte{})
	return reRP.ReplaceAll(cleaned, []byte{})
}
