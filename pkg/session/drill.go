// Package session runs collocation drills: the in-memory drill state machine
// and the Trainer that sequences ranking, selection and persistence around it.
package session

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/japaniel/collodrill/pkg/catalog"
	"github.com/japaniel/collodrill/pkg/resolve"
	"github.com/japaniel/collodrill/pkg/srs"
	"github.com/japaniel/collodrill/pkg/store"
)

var (
	ErrSessionFinished = errors.New("session: drill finished")
	ErrUnknownSubject  = errors.New("session: unknown subject")
	ErrUnknownTarget   = errors.New("session: not a remaining target")
)

// State is the lifecycle state of a drill.
type State int

const (
	Playing State = iota
	Finished
)

func (s State) String() string {
	switch s {
	case Playing:
		return "playing"
	case Finished:
		return "finished"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Direction is the way a drill pairs words.
type Direction string

const (
	// Forward drills a verb or adjective against its nouns.
	Forward Direction = "forward"
	// Reverse drills a noun against the verbs and adjectives it pairs with.
	Reverse Direction = "reverse"
)

// ParseDirection accepts "forward" or "reverse".
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(s); d {
	case Forward, Reverse:
		return d, nil
	}
	return "", fmt.Errorf("session: unknown direction %q", s)
}

// NewID returns a lexically sortable session id for a drill started at now.
func NewID(now time.Time, entropy io.Reader) string {
	return ulid.MustNew(ulid.Timestamp(now), entropy).String()
}

// Answer is the outcome of one submitted answer.
type Answer struct {
	Input       string        `json:"input"`
	Match       catalog.Match `json:"match"`
	Matched     bool          `json:"matched"`
	IsBonus     bool          `json:"is_bonus"`
	IsDuplicate bool          `json:"is_duplicate"`
	State       State         `json:"state"`
}

// NewTarget reports whether the answer found a target for the first time.
func (a Answer) NewTarget() bool {
	return a.Matched && !a.IsBonus && !a.IsDuplicate
}

// Drill is one practice round: the learner names partners of Subject until
// every target is found or skipped, or gives up. A Drill is not safe for
// concurrent use.
type Drill struct {
	ID           string
	Subject      string
	SubjectClass catalog.WordClass
	Reading      string
	Gloss        string
	Direction    Direction
	Targets      []catalog.Match
	Bonus        []catalog.Match
	StartedAt    time.Time

	resolver   *resolve.Resolver
	state      State
	found      resolve.Found
	foundBonus resolve.Found
	skipped    map[string]bool
	score      int
	answers    []Answer
	recorded   bool
}

// NewDrill starts a drill of subject over targets. bonus holds the valid
// partners outside the drill set. A drill without targets starts finished.
func NewDrill(id string, subject catalog.CollocationEntry, dir Direction, targets, bonus []catalog.Match, r *resolve.Resolver, now time.Time) *Drill {
	d := &Drill{
		ID:           id,
		Subject:      subject.Token,
		SubjectClass: subject.Class,
		Reading:      subject.Reading,
		Gloss:        subject.Gloss,
		Direction:    dir,
		Targets:      targets,
		Bonus:        bonus,
		StartedAt:    now,
		resolver:     r,
		found:        make(resolve.Found),
		foundBonus:   make(resolve.Found),
		skipped:      make(map[string]bool),
	}
	d.checkDone()
	return d
}

// PairID returns the pair identifier of the subject and partner. Pairs are
// always keyed verb-or-adjective first so both directions share progress.
func (d *Drill) PairID(partner string) string {
	return pairID(d.Direction, d.Subject, partner)
}

func pairID(dir Direction, subject, partner string) string {
	if dir == Reverse {
		return srs.PairID(partner, subject)
	}
	return srs.PairID(subject, partner)
}

func (d *Drill) State() State { return d.state }

// Submit resolves input against the drill. New targets add their affinity to
// the score; bonus partners and duplicates score nothing.
func (d *Drill) Submit(input string) (Answer, error) {
	if d.state == Finished {
		return Answer{}, ErrSessionFinished
	}
	ans := Answer{Input: input}
	res, ok := d.resolver.Resolve(input, d.Targets, d.Bonus, d.accounted(), d.foundBonus)
	if ok {
		ans.Match = res.Match
		ans.Matched = true
		ans.IsBonus = res.IsBonus
		ans.IsDuplicate = res.IsDuplicate
		switch {
		case res.IsDuplicate:
		case res.IsBonus:
			d.foundBonus[res.Match.Token] = true
		default:
			d.found[res.Match.Token] = true
			d.score += res.Match.Score
		}
	}
	d.checkDone()
	ans.State = d.state
	d.answers = append(d.answers, ans)
	return ans, nil
}

// Skip marks a remaining target as accounted for without finding it.
func (d *Drill) Skip(token string) (catalog.Match, error) {
	if d.state == Finished {
		return catalog.Match{}, ErrSessionFinished
	}
	for _, m := range d.Targets {
		if m.Token != token {
			continue
		}
		if d.found[token] || d.skipped[token] {
			break
		}
		d.skipped[token] = true
		d.checkDone()
		return m, nil
	}
	return catalog.Match{}, fmt.Errorf("%w: %s", ErrUnknownTarget, token)
}

// GiveUp ends the drill with the remaining targets unfound.
func (d *Drill) GiveUp() {
	d.state = Finished
}

func (d *Drill) checkDone() {
	if len(d.found)+len(d.skipped) >= len(d.Targets) {
		d.state = Finished
	}
}

// accounted is the set of targets that no longer count as unfound.
func (d *Drill) accounted() resolve.Found {
	if len(d.skipped) == 0 {
		return d.found
	}
	out := make(resolve.Found, len(d.found)+len(d.skipped))
	for k := range d.found {
		out[k] = true
	}
	for k := range d.skipped {
		out[k] = true
	}
	return out
}

// Found returns the targets found so far, in target order.
func (d *Drill) Found() []catalog.Match {
	var out []catalog.Match
	for _, m := range d.Targets {
		if d.found[m.Token] {
			out = append(out, m)
		}
	}
	return out
}

// Remaining returns the targets neither found nor skipped.
func (d *Drill) Remaining() []catalog.Match {
	var out []catalog.Match
	for _, m := range d.Targets {
		if !d.found[m.Token] && !d.skipped[m.Token] {
			out = append(out, m)
		}
	}
	return out
}

func (d *Drill) Score() int      { return d.score }
func (d *Drill) BonusFound() int { return len(d.foundBonus) }
func (d *Drill) Skipped() int    { return len(d.skipped) }

// Answers returns the submitted answers in order.
func (d *Drill) Answers() []Answer {
	return append([]Answer(nil), d.answers...)
}

// Grade converts the share of targets found into a grade for the subject.
func (d *Drill) Grade() srs.Grade {
	return srs.GradeForCoverage(len(d.found), len(d.Targets))
}

// Record summarizes the drill for the session log.
func (d *Drill) Record(finishedAt time.Time) store.SessionRecord {
	return store.SessionRecord{
		ID:           d.ID,
		Subject:      d.Subject,
		SubjectClass: d.SubjectClass,
		Direction:    string(d.Direction),
		StartedAt:    d.StartedAt,
		FinishedAt:   finishedAt,
		TargetTotal:  len(d.Targets),
		Found:        len(d.found),
		Skipped:      len(d.skipped),
		BonusFound:   len(d.foundBonus),
		Score:        d.score,
		Grade:        d.Grade(),
	}
}
