// Package store persists progress, reference data, statistics, session
// records and study lists in SQLite.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/japaniel/collodrill/pkg/catalog"
	"github.com/japaniel/collodrill/pkg/srs"
	"github.com/japaniel/collodrill/pkg/studylist"
)

//go:embed schema.sql
var migrationsSQL string

// Store is the persistence boundary of the trainer. Absent records are
// reported with ok == false and a nil error.
type Store interface {
	GetItemProgress(ctx context.Context, token string) (srs.ItemProgress, bool, error)
	PutItemProgress(ctx context.Context, p srs.ItemProgress) error
	GetPairProgress(ctx context.Context, pairID string) (srs.PairProgress, bool, error)
	PutPairProgress(ctx context.Context, p srs.PairProgress) error
	ListAllItemProgress(ctx context.Context) ([]srs.ItemProgress, error)
	ListAllPairProgress(ctx context.Context) ([]srs.PairProgress, error)
	ListPairProgressBySource(ctx context.Context, source string) ([]srs.PairProgress, error)
	ListCatalogEntries(ctx context.Context) ([]catalog.CollocationEntry, error)
	ListVocabulary(ctx context.Context) ([]catalog.VocabularyItem, error)

	GetStatistics(ctx context.Context) (srs.Statistics, error)
	PutStatistics(ctx context.Context, s srs.Statistics) error
	RecordSession(ctx context.Context, rec SessionRecord) error
	RecordDrill(ctx context.Context, p srs.ItemProgress, update func(srs.Statistics) srs.Statistics, rec SessionRecord) error
	ListSessions(ctx context.Context, limit int) ([]SessionRecord, error)

	PutStudyList(ctx context.Context, l *studylist.StudyList) error
	GetStudyList(ctx context.Context, name string) (*studylist.StudyList, bool, error)
	ListStudyLists(ctx context.Context) ([]*studylist.StudyList, error)

	ResetProgress(ctx context.Context) error
}

// DBExecutor is an interface that allows methods to accept either *sql.DB or *sql.Tx
type DBExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// InitDB runs migrations on the given DB connection using the embedded SQL.
func InitDB(db *sql.DB) error {
	stmts := strings.Split(migrationsSQL, ";")
	for _, s := range stmts {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// SQLiteStore implements Store on a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// Open opens or creates the database at path and runs migrations. The
// special path ":memory:" opens a private in-memory database.
func Open(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// A single writer; this also keeps ":memory:" on one connection.
	conn.SetMaxOpenConns(1)
	if err := InitDB(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SQLiteStore{db: conn}, nil
}

// New wraps an already migrated connection.
func New(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// DB returns the underlying connection.
func (s *SQLiteStore) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// WithTx runs fn in a transaction, committing when fn returns nil.
func (s *SQLiteStore) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

const timeLayout = time.RFC3339Nano

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}

func parseTimePtr(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}
