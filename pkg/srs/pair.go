package srs

import (
	"fmt"
	"strings"
	"time"
)

// PairSeparator joins the source and partner tokens of a pair identifier.
// Catalog tokens never contain it.
const PairSeparator = "|"

// Outcome is the result of one attempt at a collocation pair.
type Outcome int

const (
	Incorrect Outcome = iota
	Correct
)

func (o Outcome) String() string {
	if o == Correct {
		return "correct"
	}
	return "incorrect"
}

// PairProgress is the attempt history of one source/partner pairing.
// Strength is derived by RecordOutcome and never set directly.
type PairProgress struct {
	PairID     string     `json:"pair_id"`
	Correct    int        `json:"correct"`
	Incorrect  int        `json:"incorrect"`
	LastSeenAt *time.Time `json:"last_seen_at"`
	Strength   int        `json:"strength"` // 0..100
}

// PairID builds the identifier of the pair (source, partner).
func PairID(source, partner string) string {
	return source + PairSeparator + partner
}

// ParsePairID splits a pair identifier into its source and partner tokens.
func ParsePairID(id string) (source, partner string, err error) {
	source, partner, ok := strings.Cut(id, PairSeparator)
	if !ok || source == "" || partner == "" || strings.Contains(partner, PairSeparator) {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidPairID, id)
	}
	return source, partner, nil
}

// NewPairProgress returns an empty record for the pair.
func NewPairProgress(id string) PairProgress {
	return PairProgress{PairID: id}
}

// Attempts returns the total number of recorded attempts.
func (p PairProgress) Attempts() int {
	return p.Correct + p.Incorrect
}

// IsNew reports whether the pair has never been attempted.
func (p PairProgress) IsNew() bool {
	return p.Attempts() == 0
}

// Accuracy returns the share of correct attempts as a percentage.
func (p PairProgress) Accuracy() float64 {
	n := p.Attempts()
	if n == 0 {
		return 0
	}
	return float64(p.Correct) / float64(n) * 100
}

// RecordOutcome counts one attempt at time now and recomputes the strength.
// The input is not mutated.
func RecordOutcome(p PairProgress, o Outcome, now time.Time) PairProgress {
	next := p
	if o == Correct {
		next.Correct++
	} else {
		next.Incorrect++
	}
	seen := now
	next.LastSeenAt = &seen
	next.Strength = PairStrength(next.Correct, next.Incorrect)
	return next
}

// PairStrength maps cumulative counts to the 0..100 strength bands.
// Comparisons are done on integers so that 4 of 5 is exactly 80%. Below the
// banded levels strength is the accuracy percentage truncated toward zero,
// capped at 30.
func PairStrength(correct, incorrect int) int {
	attempts := correct + incorrect
	if attempts <= 0 {
		return 0
	}
	switch {
	case correct*100 >= 80*attempts && attempts >= 5:
		return 100
	case correct*100 >= 60*attempts && attempts >= 3:
		return 70
	case correct*100 >= 40*attempts && attempts >= 2:
		return 40
	default:
		return min(correct*100/attempts, 30)
	}
}
