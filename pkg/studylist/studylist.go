// Package studylist builds the named token sets that scope recommendations and
// drills.
package studylist

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"

	"github.com/japaniel/collodrill/pkg/analyze"
	"github.com/japaniel/collodrill/pkg/catalog"
)

// StudyList is a named set of catalog tokens.
type StudyList struct {
	Name      string    `json:"name"`
	Title     string    `json:"title,omitempty"`
	SourceURL string    `json:"source_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Tokens    []string  `json:"tokens"`

	set map[string]bool
}

// New returns a list holding tokens in first-seen order without duplicates
// or blanks.
func New(name string, tokens []string, createdAt time.Time) *StudyList {
	l := &StudyList{
		Name:      strings.TrimSpace(name),
		CreatedAt: createdAt,
		set:       make(map[string]bool, len(tokens)),
	}
	for _, t := range tokens {
		t = strings.TrimSpace(t)
		if t == "" || l.set[t] {
			continue
		}
		l.set[t] = true
		l.Tokens = append(l.Tokens, t)
	}
	return l
}

// Contains reports whether token is in the list. A nil list contains every
// token.
func (l *StudyList) Contains(token string) bool {
	if l == nil {
		return true
	}
	if l.set == nil {
		l.set = make(map[string]bool, len(l.Tokens))
		for _, t := range l.Tokens {
			l.set[t] = true
		}
	}
	return l.set[token]
}

// Len returns the number of tokens.
func (l *StudyList) Len() int {
	if l == nil {
		return 0
	}
	return len(l.Tokens)
}

// FromTokens builds a list from explicit tokens. Tokens that cannot appear in
// a pair identifier are rejected.
func FromTokens(name string, tokens []string, now time.Time) (*StudyList, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("study list name must be non-empty")
	}
	for _, t := range tokens {
		if err := catalog.ValidateToken(t); err != nil {
			return nil, err
		}
	}
	return New(name, tokens, now), nil
}

// FromText keeps the base forms of the content words of text that are catalog
// tokens.
func FromText(name, text string, a *analyze.Analyzer, cat *catalog.Catalog, now time.Time) (*StudyList, error) {
	lemmas, err := a.Lemmas(text)
	if err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}
	var keep []string
	for _, l := range lemmas {
		if cat.Contains(l) {
			keep = append(keep, l)
		}
	}
	return FromTokens(name, keep, now)
}

// FromHTML extracts the article of an HTML page, strips furigana and builds
// the list from its text.
func FromHTML(name string, r io.Reader, pageURL string, a *analyze.Analyzer, cat *catalog.Catalog, now time.Time) (*StudyList, error) {
	body, err := io.ReadAll(io.LimitReader(r, MaxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("read html: %w", err)
	}
	if len(body) > MaxBodySize {
		return nil, fmt.Errorf("html exceeds maximum size of %d bytes", MaxBodySize)
	}
	body = analyze.SanitizeRuby(body)

	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	article, err := readability.FromReader(bytes.NewReader(body), parsedURL)
	if err != nil {
		return nil, fmt.Errorf("extract article: %w", err)
	}

	l, err := FromText(name, article.TextContent, a, cat, now)
	if err != nil {
		return nil, err
	}
	l.Title = article.Title
	l.SourceURL = pageURL
	return l, nil
}
