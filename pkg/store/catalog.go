package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/japaniel/collodrill/pkg/catalog"
)

// UpsertVocabulary inserts or updates a vocabulary item keyed by token and
// class. Empty readings and glosses do not overwrite stored ones.
func UpsertVocabulary(ctx context.Context, db DBExecutor, v catalog.VocabularyItem) error {
	if err := catalog.ValidateToken(v.Token); err != nil {
		return err
	}
	_, err := db.ExecContext(ctx, `INSERT INTO vocabulary (token, class, ext_id, reading, gloss, frequency, frequency_rank)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(token, class) DO UPDATE SET
		  ext_id = COALESCE(NULLIF(excluded.ext_id, ''), vocabulary.ext_id),
		  reading = COALESCE(NULLIF(excluded.reading, ''), vocabulary.reading),
		  gloss = COALESCE(NULLIF(excluded.gloss, ''), vocabulary.gloss),
		  frequency = excluded.frequency,
		  frequency_rank = excluded.frequency_rank`,
		v.Token, string(v.Class), v.ID, v.Reading, v.Gloss, v.Frequency, v.FrequencyRank)
	if err != nil {
		return fmt.Errorf("upsert vocabulary %s: %w", v.Token, err)
	}
	return nil
}

// UpsertCollocationEntry writes an entry and replaces its partner list.
func UpsertCollocationEntry(ctx context.Context, db DBExecutor, e catalog.CollocationEntry) error {
	if err := catalog.ValidateToken(e.Token); err != nil {
		return err
	}
	_, err := db.ExecContext(ctx, `INSERT INTO collocation_entries (token, class, reading, gloss)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(token) DO UPDATE SET
		  class = excluded.class,
		  reading = COALESCE(NULLIF(excluded.reading, ''), collocation_entries.reading),
		  gloss = COALESCE(NULLIF(excluded.gloss, ''), collocation_entries.gloss)`,
		e.Token, string(e.Class), e.Reading, e.Gloss)
	if err != nil {
		return fmt.Errorf("upsert entry %s: %w", e.Token, err)
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM collocation_matches WHERE entry_token = ?`, e.Token); err != nil {
		return fmt.Errorf("clear matches of %s: %w", e.Token, err)
	}
	for _, class := range []catalog.WordClass{catalog.Noun, catalog.Verb, catalog.Adjective} {
		for i, m := range e.Matches[class] {
			if err := catalog.ValidateToken(m.Token); err != nil {
				return fmt.Errorf("entry %s: %w", e.Token, err)
			}
			_, err := db.ExecContext(ctx, `INSERT INTO collocation_matches (entry_token, partner_class, position, token, reading, gloss, score)
				VALUES (?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(entry_token, partner_class, token) DO UPDATE SET
				  score = MAX(collocation_matches.score, excluded.score)`,
				e.Token, string(class), i, m.Token, m.Reading, m.Gloss, m.Score)
			if err != nil {
				return fmt.Errorf("insert match %s|%s: %w", e.Token, m.Token, err)
			}
		}
	}
	return nil
}

func (s *SQLiteStore) ListVocabulary(ctx context.Context) ([]catalog.VocabularyItem, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT token, class, ext_id, reading, gloss, frequency, frequency_rank
		FROM vocabulary ORDER BY frequency_rank, token`)
	if err != nil {
		return nil, fmt.Errorf("list vocabulary: %w", err)
	}
	defer rows.Close()
	var out []catalog.VocabularyItem
	for rows.Next() {
		var v catalog.VocabularyItem
		var class string
		var id, reading, gloss sql.NullString
		if err := rows.Scan(&v.Token, &class, &id, &reading, &gloss, &v.Frequency, &v.FrequencyRank); err != nil {
			return nil, err
		}
		v.Class = catalog.WordClass(class)
		v.ID, v.Reading, v.Gloss = nullString(id), nullString(reading), nullString(gloss)
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListCatalogEntries returns every entry sorted by token with partners in
// their stored order.
func (s *SQLiteStore) ListCatalogEntries(ctx context.Context) ([]catalog.CollocationEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT token, class, reading, gloss FROM collocation_entries ORDER BY token`)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	var out []catalog.CollocationEntry
	idx := make(map[string]int)
	for rows.Next() {
		var e catalog.CollocationEntry
		var class string
		var reading, gloss sql.NullString
		if err := rows.Scan(&e.Token, &class, &reading, &gloss); err != nil {
			rows.Close()
			return nil, err
		}
		e.Class = catalog.WordClass(class)
		e.Reading, e.Gloss = nullString(reading), nullString(gloss)
		e.Matches = make(map[catalog.WordClass][]catalog.Match)
		idx[e.Token] = len(out)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	mrows, err := s.db.QueryContext(ctx, `SELECT entry_token, partner_class, token, reading, gloss, score
		FROM collocation_matches ORDER BY entry_token, partner_class, position`)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	defer mrows.Close()
	for mrows.Next() {
		var entry, class string
		var m catalog.Match
		var reading, gloss sql.NullString
		if err := mrows.Scan(&entry, &class, &m.Token, &reading, &gloss, &m.Score); err != nil {
			return nil, err
		}
		i, ok := idx[entry]
		if !ok {
			continue
		}
		m.Class = catalog.WordClass(class)
		m.Reading, m.Gloss = nullString(reading), nullString(gloss)
		out[i].Matches[m.Class] = append(out[i].Matches[m.Class], m)
	}
	if err := mrows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// LoadCatalog builds a catalog from the stored reference data.
func LoadCatalog(ctx context.Context, s Store) (*catalog.Catalog, error) {
	vocab, err := s.ListVocabulary(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := s.ListCatalogEntries(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.New(vocab, entries)
}
