package session

import (
	"context"
	"fmt"
	"io"
	"math"
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/japaniel/collodrill/pkg/catalog"
	"github.com/japaniel/collodrill/pkg/compose"
	"github.com/japaniel/collodrill/pkg/logger"
	"github.com/japaniel/collodrill/pkg/rank"
	"github.com/japaniel/collodrill/pkg/resolve"
	"github.com/japaniel/collodrill/pkg/srs"
	"github.com/japaniel/collodrill/pkg/store"
)

// Config tunes a Trainer. Zero values select the defaults, except NewTarget:
// 0 drills reviewed pairs only and a negative value selects the default.
type Config struct {
	MaxSize   int
	NewTarget int
	CacheSize int
	// StaticLimit picks drill sets by affinity alone, ignoring pair progress.
	StaticLimit bool
	// Lemmatizer lets inflected answers match; nil matches surface forms only.
	Lemmatizer resolve.Lemmatizer
	Logger     *logger.Logger
	Now        func() time.Time
}

// Trainer is the orchestration layer: it loads progress snapshots from the
// store, runs the pure ranking and selection code on them and writes the
// results back. It assumes a single writer and is not safe for concurrent
// use.
type Trainer struct {
	store     store.Store
	cat       *catalog.Catalog
	ranker    *rank.Ranker
	resolver  *resolve.Resolver
	pairs     *compose.PairCache
	maxSize   int
	newTarget int
	static    bool
	log       *logger.Logger
	now       func() time.Time
	entropy   io.Reader
}

// NewTrainer returns a Trainer over st and cat.
func NewTrainer(st store.Store, cat *catalog.Catalog, cfg Config) (*Trainer, error) {
	if st == nil || cat == nil {
		return nil, fmt.Errorf("session: trainer needs a store and a catalog")
	}
	pairs, err := compose.NewPairCache(cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("pair cache: %w", err)
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = compose.DefaultMaxSize
	}
	if cfg.NewTarget < 0 {
		cfg.NewTarget = compose.DefaultNewTarget
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Trainer{
		store:     st,
		cat:       cat,
		ranker:    rank.New(cat),
		resolver:  resolve.New(cfg.Lemmatizer),
		pairs:     pairs,
		maxSize:   cfg.MaxSize,
		newTarget: cfg.NewTarget,
		static:    cfg.StaticLimit,
		log:       logger.OrNop(cfg.Logger),
		now:       cfg.Now,
		entropy:   ulid.Monotonic(rand.New(rand.NewSource(cfg.Now().UnixNano())), 0),
	}, nil
}

// Catalog returns the reference data the trainer drills.
func (t *Trainer) Catalog() *catalog.Catalog { return t.cat }

// snapshot loads item and pair progress concurrently. Pair records warm the
// pair cache.
func (t *Trainer) snapshot(ctx context.Context) ([]srs.ItemProgress, []srs.PairProgress, error) {
	var items []srs.ItemProgress
	var pairs []srs.PairProgress
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = t.store.ListAllItemProgress(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		pairs, err = t.store.ListAllPairProgress(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("load progress: %w", err)
	}
	t.pairs.Fill(pairs)
	return items, pairs, nil
}

func progressMap(items []srs.ItemProgress) rank.ProgressMap {
	m := make(rank.ProgressMap, len(items))
	for _, p := range items {
		m[p.Token] = p
	}
	return m
}

// Recommend ranks verbs and adjectives for forward practice.
func (t *Trainer) Recommend(ctx context.Context, scope rank.Scope, count int) ([]rank.Candidate, error) {
	items, _, err := t.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return t.ranker.RankWords(progressMap(items), rank.Options{
		Now:     t.now(),
		Count:   count,
		Scope:   scope,
		Classes: []catalog.WordClass{catalog.Verb, catalog.Adjective},
	}), nil
}

// RecommendNouns ranks nouns for reverse practice.
func (t *Trainer) RecommendNouns(ctx context.Context, scope rank.Scope, count int) ([]rank.Candidate, error) {
	items, _, err := t.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return t.ranker.RankNouns(progressMap(items), rank.Options{
		Now:   t.now(),
		Count: count,
		Scope: scope,
	}), nil
}

// Start opens a drill of subject. The drill set is chosen from the in-scope
// partners, or from all partners when none is in scope; partners outside
// the set count as bonus answers.
func (t *Trainer) Start(ctx context.Context, subject string, dir Direction, scope rank.Scope) (*Drill, error) {
	var entry catalog.CollocationEntry
	var all []catalog.Match
	var ok bool
	switch dir {
	case Forward:
		entry, ok = t.cat.Entry(subject)
		all = entry.NounMatches()
	case Reverse:
		entry, ok = t.cat.ReverseEntry(subject)
		all = entry.AllPartners()
	default:
		return nil, fmt.Errorf("session: unknown direction %q", dir)
	}
	if !ok || len(all) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSubject, subject)
	}

	pool := all
	if scope != nil {
		var in []catalog.Match
		for _, m := range all {
			if scope.Contains(m.Token) {
				in = append(in, m)
			}
		}
		if len(in) > 0 {
			pool = in
		}
	}

	now := t.now()
	var targets []catalog.Match
	if t.static {
		targets = compose.StaticLimit(pool)
	} else {
		lookup, err := t.lookup(ctx, dir, entry.Token, pool)
		if err != nil {
			return nil, err
		}
		targets = compose.SelectDrillSet(pool, lookup, t.maxSize, t.newTarget)
	}

	inSet := make(map[string]bool, len(targets))
	for _, m := range targets {
		inSet[m.Token] = true
	}
	var bonus []catalog.Match
	for _, m := range all {
		if !inSet[m.Token] {
			bonus = append(bonus, m)
		}
	}

	d := NewDrill(NewID(now, t.entropy), entry, dir, targets, bonus, t.resolver, now)
	t.log.Debug("drill started",
		"id", d.ID,
		"subject", d.Subject,
		"direction", string(dir),
		"targets", len(targets),
		"bonus", len(bonus))
	return d, nil
}

// lookup resolves the pair records of pool from the cache, falling back to
// the store, and returns a lookup over exactly those records.
func (t *Trainer) lookup(ctx context.Context, dir Direction, subject string, pool []catalog.Match) (compose.PairLookup, error) {
	known := make(map[string]srs.PairProgress, len(pool))
	for _, m := range pool {
		id := pairID(dir, subject, m.Token)
		if p, ok := t.pairs.Get(id); ok {
			known[m.Token] = p
			continue
		}
		p, found, err := t.store.GetPairProgress(ctx, id)
		if err != nil {
			return nil, err
		}
		if found {
			known[m.Token] = p
			t.pairs.Put(p)
		}
	}
	return func(partner string) (srs.PairProgress, bool) {
		p, ok := known[partner]
		return p, ok
	}, nil
}

// Answer submits input to d and records the pair outcome. A new target or
// bonus partner counts as a correct pair; an unmatched answer counts as an
// incorrect pair against the raw input. Duplicates record nothing.
func (t *Trainer) Answer(ctx context.Context, d *Drill, input string) (Answer, error) {
	ans, err := d.Submit(input)
	if err != nil {
		return ans, err
	}
	now := t.now()
	switch {
	case ans.Matched && !ans.IsDuplicate:
		err = t.recordPair(ctx, d.PairID(ans.Match.Token), srs.Correct, now)
	case !ans.Matched:
		raw := resolve.Normalize(input)
		if catalog.ValidateToken(raw) != nil {
			t.log.Debug("unrecordable answer", "input", input)
			return ans, nil
		}
		err = t.recordPair(ctx, d.PairID(raw), srs.Incorrect, now)
	}
	return ans, err
}

// Skip marks token as skipped in d and records an incorrect pair outcome.
func (t *Trainer) Skip(ctx context.Context, d *Drill, token string) error {
	m, err := d.Skip(token)
	if err != nil {
		return err
	}
	return t.recordPair(ctx, d.PairID(m.Token), srs.Incorrect, t.now())
}

func (t *Trainer) recordPair(ctx context.Context, id string, o srs.Outcome, now time.Time) error {
	p, ok := t.pairs.Get(id)
	if !ok {
		var err error
		p, ok, err = t.store.GetPairProgress(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			p = srs.NewPairProgress(id)
		}
	}
	p = srs.RecordOutcome(p, o, now)
	if err := t.store.PutPairProgress(ctx, p); err != nil {
		t.pairs.Invalidate(id)
		return err
	}
	t.pairs.Put(p)
	return nil
}

// Summary is the result of a finished drill.
type Summary struct {
	Record   store.SessionRecord `json:"record"`
	Progress srs.ItemProgress    `json:"progress"`
}

// Finish ends d, grades its subject from the share of targets found and
// persists the item progress, statistics and session record together. A
// drill can be finished once; a failed Finish writes nothing and may be
// retried.
func (t *Trainer) Finish(ctx context.Context, d *Drill) (Summary, error) {
	if d.recorded {
		return Summary{}, ErrSessionFinished
	}
	d.GiveUp()
	now := t.now()
	grade := d.Grade()

	p, ok, err := t.store.GetItemProgress(ctx, d.Subject)
	if err != nil {
		return Summary{}, err
	}
	if !ok {
		p = srs.NewItemProgress(d.Subject, now)
	}
	p, err = srs.Advance(p, grade, now)
	if err != nil {
		return Summary{}, err
	}

	rec := d.Record(now)
	correct := grade.IsCorrect()
	err = t.store.RecordDrill(ctx, p, func(st srs.Statistics) srs.Statistics {
		return srs.RecordAnswer(st, correct, now)
	}, rec)
	if err != nil {
		return Summary{}, fmt.Errorf("record drill %s: %w", rec.ID, err)
	}
	d.recorded = true
	t.log.Info("drill finished",
		"id", rec.ID,
		"subject", rec.Subject,
		"found", rec.Found,
		"targets", rec.TargetTotal,
		"grade", grade.String(),
		"next_review", p.NextReviewAt)
	return Summary{Record: rec, Progress: p}, nil
}

// Report is the overall learning summary.
type Report struct {
	Statistics srs.Statistics        `json:"statistics"`
	Learning   srs.LearningStats     `json:"learning"`
	Catalog    catalog.Stats         `json:"catalog"`
	Recent     []store.SessionRecord `json:"recent"`
}

// Stats reports the global counters, the mastery breakdown and the most
// recent sessions.
func (t *Trainer) Stats(ctx context.Context, recent int) (Report, error) {
	r := Report{Catalog: t.cat.Stats()}
	var items []srs.ItemProgress
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		r.Statistics, err = t.store.GetStatistics(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		items, err = t.store.ListAllItemProgress(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		r.Recent, err = t.store.ListSessions(gctx, recent)
		return err
	})
	if err := g.Wait(); err != nil {
		return Report{}, err
	}
	r.Learning = srs.Summarize(items, t.now())
	return r, nil
}

// ClassCount counts the words of one class in a LevelReport.
type ClassCount struct {
	Total     int `json:"total"`
	Practiced int `json:"practiced"`
}

// LevelReport breaks a word list down by how often its words were answered
// correctly.
type LevelReport struct {
	Total               int                              `json:"total"`
	Practiced           int                              `json:"practiced"`
	New                 int                              `json:"new"`
	Learning            int                              `json:"learning"` // fewer than 3 correct
	Young               int                              `json:"young"`    // 3 to 5
	Mature              int                              `json:"mature"`   // 6 to 10
	Mastered            int                              `json:"mastered"` // more than 10
	ByClass             map[catalog.WordClass]ClassCount `json:"by_class"`
	PracticedPercentage int                              `json:"practiced_percentage"`
	MasteryPercentage   int                              `json:"mastery_percentage"`
}

// LevelStats reports progress over the vocabulary in scope; a nil scope
// covers the whole vocabulary. A word reviewed as a drill subject counts its
// own correct reviews; otherwise the correct answers of every pair it is
// part of count.
func (t *Trainer) LevelStats(ctx context.Context, scope rank.Scope) (LevelReport, error) {
	items, pairs, err := t.snapshot(ctx)
	if err != nil {
		return LevelReport{}, err
	}
	progress := progressMap(items)

	pairCorrect := make(map[string]int)
	for _, p := range pairs {
		if p.Attempts() == 0 {
			continue
		}
		src, partner, err := srs.ParsePairID(p.PairID)
		if err != nil {
			continue
		}
		pairCorrect[src] += p.Correct
		pairCorrect[partner] += p.Correct
	}

	r := LevelReport{ByClass: make(map[catalog.WordClass]ClassCount)}
	seen := make(map[string]bool)
	for _, v := range t.cat.Vocabulary() {
		if scope != nil && !scope.Contains(v.Token) {
			continue
		}
		if seen[v.Token] {
			continue
		}
		seen[v.Token] = true
		r.Total++
		cc := r.ByClass[v.Class]
		cc.Total++

		correct, practiced := 0, false
		if p, ok := progress[v.Token]; ok {
			practiced = true
			if p.ReviewCount > 0 {
				correct = p.CorrectCount
			} else {
				correct = pairCorrect[v.Token]
			}
		} else if n, ok := pairCorrect[v.Token]; ok {
			practiced = true
			correct = n
		}

		if !practiced {
			r.New++
			r.ByClass[v.Class] = cc
			continue
		}
		r.Practiced++
		cc.Practiced++
		r.ByClass[v.Class] = cc
		switch {
		case correct < 3:
			r.Learning++
		case correct <= 5:
			r.Young++
		case correct <= 10:
			r.Mature++
		default:
			r.Mastered++
		}
	}
	if r.Total > 0 {
		r.PracticedPercentage = int(math.Round(float64(r.Practiced) * 100 / float64(r.Total)))
		r.MasteryPercentage = int(math.Round(float64(r.Young+r.Mature+r.Mastered) * 100 / float64(r.Total)))
	}
	return r, nil
}

// WordReport describes a catalog word and the learner's record of it.
type WordReport struct {
	Entry     catalog.CollocationEntry    `json:"entry"`
	Direction Direction                   `json:"direction"`
	Stats     catalog.EntryStats          `json:"stats"`
	Progress  *srs.ItemProgress           `json:"progress,omitempty"`
	Pairs     map[string]srs.PairProgress `json:"pairs,omitempty"` // by partner token
}

// Lookup reports the partners of token with their pair records. Verbs and
// adjectives are described forward, nouns in reverse.
func (t *Trainer) Lookup(ctx context.Context, token string) (WordReport, error) {
	dir := Forward
	entry, ok := t.cat.Entry(token)
	if !ok {
		dir = Reverse
		entry, ok = t.cat.ReverseEntry(token)
	}
	if !ok {
		return WordReport{}, fmt.Errorf("%w: %s", ErrUnknownSubject, token)
	}
	r := WordReport{
		Entry:     entry,
		Direction: dir,
		Stats:     entry.Stats(),
		Pairs:     make(map[string]srs.PairProgress),
	}

	p, found, err := t.store.GetItemProgress(ctx, token)
	if err != nil {
		return WordReport{}, err
	}
	if found {
		r.Progress = &p
	}

	if dir == Forward {
		ps, err := t.store.ListPairProgressBySource(ctx, token)
		if err != nil {
			return WordReport{}, err
		}
		for _, p := range ps {
			_, partner, err := srs.ParsePairID(p.PairID)
			if err == nil && entry.IsValidMatch(partner) {
				r.Pairs[partner] = p
			}
		}
		return r, nil
	}
	for _, m := range entry.AllPartners() {
		p, found, err := t.store.GetPairProgress(ctx, pairID(Reverse, token, m.Token))
		if err != nil {
			return WordReport{}, err
		}
		if found {
			r.Pairs[m.Token] = p
		}
	}
	return r, nil
}

// Reset deletes all progress and drops cached pair records.
func (t *Trainer) Reset(ctx context.Context) error {
	if err := t.store.ResetProgress(ctx); err != nil {
		return err
	}
	t.pairs.Purge()
	t.log.Warn("progress reset")
	return nil
}
