package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/japaniel/collodrill/pkg/catalog"
	"github.com/japaniel/collodrill/pkg/srs"
	"github.com/japaniel/collodrill/pkg/studylist"
)

// GetStatistics returns the global counters; a fresh database reports zeros.
func (s *SQLiteStore) GetStatistics(ctx context.Context) (srs.Statistics, error) {
	return getStatistics(ctx, s.db)
}

func getStatistics(ctx context.Context, db DBExecutor) (srs.Statistics, error) {
	var st srs.Statistics
	var last sql.NullString
	err := db.QueryRowContext(ctx, `SELECT total_reviews, correct_answers, incorrect_answers, streak, longest_streak, study_days, last_study_day
		FROM statistics WHERE id = 1`).Scan(&st.TotalReviews, &st.CorrectAnswers, &st.IncorrectAnswers, &st.Streak, &st.LongestStreak, &st.StudyDays, &last)
	if errors.Is(err, sql.ErrNoRows) {
		return srs.Statistics{}, nil
	}
	if err != nil {
		return st, fmt.Errorf("get statistics: %w", err)
	}
	st.LastStudyDay = nullString(last)
	return st, nil
}

func (s *SQLiteStore) PutStatistics(ctx context.Context, st srs.Statistics) error {
	return putStatistics(ctx, s.db, st)
}

func putStatistics(ctx context.Context, db DBExecutor, st srs.Statistics) error {
	_, err := db.ExecContext(ctx, `INSERT INTO statistics (id, total_reviews, correct_answers, incorrect_answers, streak, longest_streak, study_days, last_study_day)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		  total_reviews = excluded.total_reviews,
		  correct_answers = excluded.correct_answers,
		  incorrect_answers = excluded.incorrect_answers,
		  streak = excluded.streak,
		  longest_streak = excluded.longest_streak,
		  study_days = excluded.study_days,
		  last_study_day = excluded.last_study_day`,
		st.TotalReviews, st.CorrectAnswers, st.IncorrectAnswers, st.Streak, st.LongestStreak, st.StudyDays, st.LastStudyDay)
	if err != nil {
		return fmt.Errorf("put statistics: %w", err)
	}
	return nil
}

func (s *SQLiteStore) RecordSession(ctx context.Context, rec SessionRecord) error {
	return insertSession(ctx, s.db, rec)
}

func insertSession(ctx context.Context, db DBExecutor, rec SessionRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("session id must be non-empty")
	}
	_, err := db.ExecContext(ctx, `INSERT INTO sessions (id, subject, subject_class, direction, started_at, finished_at, target_total, found, skipped, bonus_found, score, grade)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Subject, string(rec.SubjectClass), rec.Direction, formatTime(rec.StartedAt), formatTime(rec.FinishedAt),
		rec.TargetTotal, rec.Found, rec.Skipped, rec.BonusFound, rec.Score, rec.Grade.String())
	if err != nil {
		return fmt.Errorf("record session %s: %w", rec.ID, err)
	}
	return nil
}

// RecordDrill stores the outcome of a finished drill in one transaction: the
// subject's item progress, the statistics produced by update from the stored
// ones, and the session record. Nothing is written when any step fails.
func (s *SQLiteStore) RecordDrill(ctx context.Context, p srs.ItemProgress, update func(srs.Statistics) srs.Statistics, rec SessionRecord) error {
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		if err := UpsertItemProgress(ctx, tx, p); err != nil {
			return err
		}
		st, err := getStatistics(ctx, tx)
		if err != nil {
			return err
		}
		if err := putStatistics(ctx, tx, update(st)); err != nil {
			return err
		}
		return insertSession(ctx, tx, rec)
	})
}

// ListSessions returns the most recent sessions first. A non-positive limit
// returns all of them.
func (s *SQLiteStore) ListSessions(ctx context.Context, limit int) ([]SessionRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, subject, subject_class, direction, started_at, finished_at, target_total, found, skipped, bonus_found, score, grade
		FROM sessions ORDER BY finished_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()
	var out []SessionRecord
	for rows.Next() {
		var rec SessionRecord
		var class, started, finished, grade string
		if err := rows.Scan(&rec.ID, &rec.Subject, &class, &rec.Direction, &started, &finished,
			&rec.TargetTotal, &rec.Found, &rec.Skipped, &rec.BonusFound, &rec.Score, &grade); err != nil {
			return nil, err
		}
		rec.SubjectClass = catalog.WordClass(class)
		if rec.StartedAt, err = parseTime(started); err != nil {
			return nil, err
		}
		if rec.FinishedAt, err = parseTime(finished); err != nil {
			return nil, err
		}
		if rec.Grade, err = srs.ParseGrade(grade); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// PutStudyList stores l, replacing a list of the same name.
func (s *SQLiteStore) PutStudyList(ctx context.Context, l *studylist.StudyList) error {
	if l == nil || l.Name == "" {
		return fmt.Errorf("study list name must be non-empty")
	}
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO study_lists (name, title, source_url, created_at) VALUES (?, ?, ?, ?)
			ON CONFLICT(name) DO UPDATE SET title = excluded.title, source_url = excluded.source_url, created_at = excluded.created_at`,
			l.Name, l.Title, l.SourceURL, formatTime(l.CreatedAt))
		if err != nil {
			return fmt.Errorf("put study list %s: %w", l.Name, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM study_list_tokens WHERE list_name = ?`, l.Name); err != nil {
			return fmt.Errorf("clear study list %s: %w", l.Name, err)
		}
		for i, tok := range l.Tokens {
			if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO study_list_tokens (list_name, position, token) VALUES (?, ?, ?)`, l.Name, i, tok); err != nil {
				return fmt.Errorf("put study list token %s: %w", tok, err)
			}
		}
		return nil
	})
}

func (s *SQLiteStore) GetStudyList(ctx context.Context, name string) (*studylist.StudyList, bool, error) {
	var title, sourceURL sql.NullString
	var created string
	err := s.db.QueryRowContext(ctx, `SELECT title, source_url, created_at FROM study_lists WHERE name = ?`, name).Scan(&title, &sourceURL, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get study list %s: %w", name, err)
	}
	createdAt, err := parseTime(created)
	if err != nil {
		return nil, false, err
	}
	tokens, err := s.studyListTokens(ctx, name)
	if err != nil {
		return nil, false, err
	}
	l := studylist.New(name, tokens, createdAt)
	l.Title = nullString(title)
	l.SourceURL = nullString(sourceURL)
	return l, true, nil
}

func (s *SQLiteStore) studyListTokens(ctx context.Context, name string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT token FROM study_list_tokens WHERE list_name = ? ORDER BY position`, name)
	if err != nil {
		return nil, fmt.Errorf("list study list tokens: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var tok string
		if err := rows.Scan(&tok); err != nil {
			return nil, err
		}
		out = append(out, tok)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ListStudyLists(ctx context.Context) ([]*studylist.StudyList, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM study_lists ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list study lists: %w", err)
	}
	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			rows.Close()
			return nil, err
		}
		names = append(names, n)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	out := make([]*studylist.StudyList, 0, len(names))
	for _, n := range names {
		l, ok, err := s.GetStudyList(ctx, n)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, l)
		}
	}
	return out, nil
}

// ResetProgress deletes item and pair progress, statistics and session
// records in one transaction. Reference data and study lists survive.
func (s *SQLiteStore) ResetProgress(ctx context.Context) error {
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{"item_progress", "pair_progress", "statistics", "sessions"} {
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
				return fmt.Errorf("reset %s: %w", table, err)
			}
		}
		return nil
	})
}
