// Package ingest imports catalog reference data into the store using a
// worker pool for normalization and batched, ordered writes.
package ingest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/japaniel/collodrill/pkg/analyze"
	"github.com/japaniel/collodrill/pkg/catalog"
	"github.com/japaniel/collodrill/pkg/logger"
	"github.com/japaniel/collodrill/pkg/store"
)

// WorkerPoolInterface abstracts the worker pool so tests can inject failing implementations.
type WorkerPoolInterface interface {
	Start(ctx context.Context)
	Submit(Job) error
	// SubmitCtx attempts to enqueue a job but returns promptly if ctx is canceled.
	SubmitCtx(ctx context.Context, job Job) error
	Close()
}

// ReadingSource derives a hiragana reading for a written form.
// *analyze.Analyzer satisfies it.
type ReadingSource interface {
	Reading(text string) string
}

// Importer writes a catalog into the database.
type Importer struct {
	DB *sql.DB
	// Readings fills in missing readings. nil leaves them empty.
	Readings  ReadingSource
	BatchSize int
	Workers   int
	Logger    *logger.Logger
	// OnProgress is called after each committed batch with the number of
	// committed records and the total.
	OnProgress func(current, total int)

	// PoolFactory allows tests to inject custom worker pool implementations.
	PoolFactory func(workers, queue int) WorkerPoolInterface
}

// NewImporter creates an Importer with the default batch size and worker count.
func NewImporter(conn *sql.DB, readings ReadingSource) *Importer {
	return &Importer{
		DB:        conn,
		Readings:  readings,
		BatchSize: 50,
		Workers:   4,
	}
}

// Result counts what an import wrote.
type Result struct {
	Vocabulary      int `json:"vocabulary"`
	Entries         int `json:"entries"`
	Pairs           int `json:"pairs"`
	DerivedReadings int `json:"derived_readings"`
}

// record is one vocabulary item or one entry, in import order.
type record struct {
	index   int
	vocab   *catalog.VocabularyItem
	entry   *catalog.CollocationEntry
	derived int
	err     error
}

// Import normalizes and writes every vocabulary item and collocation entry of
// cat. Records are committed in catalog order; the first failure aborts the
// import and is returned.
func (im *Importer) Import(ctx context.Context, cat *catalog.Catalog) (Result, error) {
	log := logger.OrNop(im.Logger)
	if cat == nil {
		return Result{}, errors.New("import: nil catalog")
	}

	var records []record
	for _, v := range cat.Vocabulary() {
		records = append(records, record{index: len(records), vocab: &v})
	}
	for _, e := range cat.Entries() {
		records = append(records, record{index: len(records), entry: &e})
	}
	total := len(records)
	if total == 0 {
		return Result{}, nil
	}

	workers := im.Workers
	if workers <= 0 {
		workers = 1
	}
	batchSize := im.BatchSize
	if batchSize <= 0 {
		batchSize = 50
	}

	var wp WorkerPoolInterface
	if im.PoolFactory != nil {
		wp = im.PoolFactory(workers, workers*2)
	} else {
		wp = NewWorkerPool(workers, workers*2)
	}

	var res Result
	var vocabCount, entryCount, pairCount, derivedCount int64

	bw := NewBatchWriter(im.DB, batchSize, 100*time.Millisecond)
	if im.OnProgress != nil {
		bw.OnCommit = func(int) { im.OnProgress(bw.Committed(), total) }
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	bw.OnError = func(err error) {
		log.Error("import batch failed", "error", err)
		cancel()
	}

	resultCh := make(chan record, workers*2)
	doneCh := make(chan error, 1)

	wp.Start(ctx)

	go func() {
		defer close(doneCh)
		buffer := make(map[int]record)
		nextIdx := 0
		for r := range resultCh {
			if r.err != nil {
				cancel()
				doneCh <- r.err
				return
			}
			buffer[r.index] = r
			for {
				item, ok := buffer[nextIdx]
				if !ok {
					break
				}
				delete(buffer, nextIdx)
				if err := bw.Submit(im.write(item, &vocabCount, &entryCount, &pairCount, &derivedCount)); err != nil {
					cancel()
					doneCh <- err
					return
				}
				nextIdx++
			}
		}
		if nextIdx < total {
			doneCh <- ctx.Err()
			return
		}
		doneCh <- nil
	}()

	var submitErr error
Loop:
	for i := range records {
		select {
		case <-ctx.Done():
			break Loop
		default:
		}
		r := records[i]
		job := func(ctx context.Context) error {
			out := im.normalize(r)
			select {
			case resultCh <- out:
			case <-ctx.Done():
				return ctx.Err()
			}
			return out.err
		}
		if err := wp.SubmitCtx(ctx, job); err != nil {
			if errors.Is(err, ctx.Err()) || errors.Is(err, ErrPoolClosed) {
				break Loop
			}
			submitErr = fmt.Errorf("submit record %d: %w", i, err)
			cancel()
			break Loop
		}
	}

	// Close waits for the workers, so no job can send on resultCh afterwards.
	wp.Close()
	close(resultCh)
	consumerErr := <-doneCh
	closeErr := bw.Close()

	res.Vocabulary = int(atomic.LoadInt64(&vocabCount))
	res.Entries = int(atomic.LoadInt64(&entryCount))
	res.Pairs = int(atomic.LoadInt64(&pairCount))
	res.DerivedReadings = int(atomic.LoadInt64(&derivedCount))

	// Batch failures cancel ctx, so they are reported ahead of the
	// cancellation they caused.
	for _, err := range []error{submitErr, closeErr, consumerErr} {
		if err != nil {
			return res, err
		}
	}
	log.Info("catalog imported",
		"vocabulary", res.Vocabulary,
		"entries", res.Entries,
		"pairs", res.Pairs,
		"derived_readings", res.DerivedReadings)
	return res, nil
}

func (im *Importer) write(r record, vocab, entries, pairs, derived *int64) WriteFunc {
	return func(ctx context.Context, tx *sql.Tx) error {
		var db store.DBExecutor = tx
		if r.vocab != nil {
			if tx != nil {
				if err := store.UpsertVocabulary(ctx, db, *r.vocab); err != nil {
					return err
				}
			}
			atomic.AddInt64(vocab, 1)
		} else {
			if tx != nil {
				if err := store.UpsertCollocationEntry(ctx, db, *r.entry); err != nil {
					return err
				}
			}
			atomic.AddInt64(entries, 1)
			atomic.AddInt64(pairs, int64(len(r.entry.AllPartners())))
		}
		atomic.AddInt64(derived, int64(r.derived))
		return nil
	}
}

// normalize validates tokens and converts readings to hiragana, deriving
// readings that the catalog leaves empty.
func (im *Importer) normalize(r record) record {
	if r.vocab != nil {
		v := *r.vocab
		v.Token = strings.TrimSpace(v.Token)
		if err := catalog.ValidateToken(v.Token); err != nil {
			r.err = fmt.Errorf("vocabulary %d: %w", r.index, err)
			return r
		}
		v.Reading = im.reading(v.Token, v.Reading, &r.derived)
		r.vocab = &v
		return r
	}

	e := *r.entry
	e.Token = strings.TrimSpace(e.Token)
	if err := catalog.ValidateToken(e.Token); err != nil {
		r.err = fmt.Errorf("entry %d: %w", r.index, err)
		return r
	}
	e.Reading = im.reading(e.Token, e.Reading, &r.derived)
	matches := make(map[catalog.WordClass][]catalog.Match, len(e.Matches))
	for class, ms := range e.Matches {
		out := make([]catalog.Match, len(ms))
		for i, m := range ms {
			m.Token = strings.TrimSpace(m.Token)
			if err := catalog.ValidateToken(m.Token); err != nil {
				r.err = fmt.Errorf("entry %s: %w", e.Token, err)
				return r
			}
			if m.Score < 1 || m.Score > 3 {
				r.err = fmt.Errorf("entry %s: partner %s has score %d", e.Token, m.Token, m.Score)
				return r
			}
			m.Class = class
			m.Reading = im.reading(m.Token, m.Reading, &r.derived)
			out[i] = m
		}
		matches[class] = out
	}
	e.Matches = matches
	r.entry = &e
	return r
}

func (im *Importer) reading(token, reading string, derived *int) string {
	reading = strings.TrimSpace(reading)
	if reading != "" {
		return analyze.ToHiragana(reading)
	}
	if im.Readings == nil {
		return ""
	}
	if got := im.Readings.Reading(token); got != "" {
		*derived++
		return got
	}
	return ""
}
