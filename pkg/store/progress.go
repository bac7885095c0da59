package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/japaniel/collodrill/pkg/srs"
)

const itemColumns = `token, level, ease_factor, interval_days, next_review_at, last_reviewed_at, review_count, correct_count, incorrect_count`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanItem(row scanner) (srs.ItemProgress, error) {
	var p srs.ItemProgress
	var next string
	var last sql.NullString
	if err := row.Scan(&p.Token, &p.Level, &p.EaseFactor, &p.Interval, &next, &last, &p.ReviewCount, &p.CorrectCount, &p.IncorrectCount); err != nil {
		return p, err
	}
	var err error
	if p.NextReviewAt, err = parseTime(next); err != nil {
		return p, err
	}
	if p.LastReviewedAt, err = parseTimePtr(last); err != nil {
		return p, err
	}
	return p, nil
}

// UpsertItemProgress writes p, replacing any existing record for its token.
func UpsertItemProgress(ctx context.Context, db DBExecutor, p srs.ItemProgress) error {
	if strings.TrimSpace(p.Token) == "" {
		return fmt.Errorf("item progress token must be non-empty")
	}
	_, err := db.ExecContext(ctx, `INSERT INTO item_progress (`+itemColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(token) DO UPDATE SET
		  level = excluded.level,
		  ease_factor = excluded.ease_factor,
		  interval_days = excluded.interval_days,
		  next_review_at = excluded.next_review_at,
		  last_reviewed_at = excluded.last_reviewed_at,
		  review_count = excluded.review_count,
		  correct_count = excluded.correct_count,
		  incorrect_count = excluded.incorrect_count`,
		p.Token, p.Level, p.EaseFactor, p.Interval, formatTime(p.NextReviewAt), formatTimePtr(p.LastReviewedAt),
		p.ReviewCount, p.CorrectCount, p.IncorrectCount)
	if err != nil {
		return fmt.Errorf("upsert item progress %s: %w", p.Token, err)
	}
	return nil
}

// UpsertPairProgress writes p, replacing any existing record for its pair id.
func UpsertPairProgress(ctx context.Context, db DBExecutor, p srs.PairProgress) error {
	if _, _, err := srs.ParsePairID(p.PairID); err != nil {
		return err
	}
	_, err := db.ExecContext(ctx, `INSERT INTO pair_progress (pair_id, correct, incorrect, last_seen_at, strength)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(pair_id) DO UPDATE SET
		  correct = excluded.correct,
		  incorrect = excluded.incorrect,
		  last_seen_at = excluded.last_seen_at,
		  strength = excluded.strength`,
		p.PairID, p.Correct, p.Incorrect, formatTimePtr(p.LastSeenAt), p.Strength)
	if err != nil {
		return fmt.Errorf("upsert pair progress %s: %w", p.PairID, err)
	}
	return nil
}

func (s *SQLiteStore) GetItemProgress(ctx context.Context, token string) (srs.ItemProgress, bool, error) {
	p, err := scanItem(s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM item_progress WHERE token = ?`, token))
	if errors.Is(err, sql.ErrNoRows) {
		return srs.ItemProgress{}, false, nil
	}
	if err != nil {
		return srs.ItemProgress{}, false, fmt.Errorf("get item progress %s: %w", token, err)
	}
	return p, true, nil
}

func (s *SQLiteStore) PutItemProgress(ctx context.Context, p srs.ItemProgress) error {
	return UpsertItemProgress(ctx, s.db, p)
}

func (s *SQLiteStore) ListAllItemProgress(ctx context.Context) ([]srs.ItemProgress, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+itemColumns+` FROM item_progress ORDER BY token`)
	if err != nil {
		return nil, fmt.Errorf("list item progress: %w", err)
	}
	defer rows.Close()
	var out []srs.ItemProgress
	for rows.Next() {
		p, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanPair(row scanner) (srs.PairProgress, error) {
	var p srs.PairProgress
	var last sql.NullString
	if err := row.Scan(&p.PairID, &p.Correct, &p.Incorrect, &last, &p.Strength); err != nil {
		return p, err
	}
	var err error
	p.LastSeenAt, err = parseTimePtr(last)
	return p, err
}

func (s *SQLiteStore) GetPairProgress(ctx context.Context, pairID string) (srs.PairProgress, bool, error) {
	p, err := scanPair(s.db.QueryRowContext(ctx, `SELECT pair_id, correct, incorrect, last_seen_at, strength FROM pair_progress WHERE pair_id = ?`, pairID))
	if errors.Is(err, sql.ErrNoRows) {
		return srs.PairProgress{}, false, nil
	}
	if err != nil {
		return srs.PairProgress{}, false, fmt.Errorf("get pair progress %s: %w", pairID, err)
	}
	return p, true, nil
}

func (s *SQLiteStore) PutPairProgress(ctx context.Context, p srs.PairProgress) error {
	return UpsertPairProgress(ctx, s.db, p)
}

func (s *SQLiteStore) ListAllPairProgress(ctx context.Context) ([]srs.PairProgress, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT pair_id, correct, incorrect, last_seen_at, strength FROM pair_progress ORDER BY pair_id`)
	if err != nil {
		return nil, fmt.Errorf("list pair progress: %w", err)
	}
	defer rows.Close()
	var out []srs.PairProgress
	for rows.Next() {
		p, err := scanPair(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListPairProgressBySource returns the pair records whose source is source.
func (s *SQLiteStore) ListPairProgressBySource(ctx context.Context, source string) ([]srs.PairProgress, error) {
	prefix := source + srs.PairSeparator
	rows, err := s.db.QueryContext(ctx, `SELECT pair_id, correct, incorrect, last_seen_at, strength FROM pair_progress
		WHERE instr(pair_id, ?) = 1 ORDER BY pair_id`, prefix)
	if err != nil {
		return nil, fmt.Errorf("list pair progress for %s: %w", source, err)
	}
	defer rows.Close()
	var out []srs.PairProgress
	for rows.Next() {
		p, err := scanPair(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
