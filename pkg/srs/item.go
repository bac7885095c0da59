package srs

import (
	"fmt"
	"math"
	"time"
)

// Scheduling constants for item reviews.
const (
	StartingEase = 2.5
	MinEase      = 1.3
	MaxEase      = 4.0
	MaxLevel     = 10.0

	initialInterval    = 1
	graduatingInterval = 3
	easyInterval       = 7

	easeBonus   = 0.15
	easePenalty = 0.20

	hardIntervalMultiplier = 1.2
	easyIntervalMultiplier = 3.0
)

// Mastery is the learning band derived from an item's level.
type Mastery string

const (
	MasteryNew      Mastery = "new"
	MasteryLearning Mastery = "learning"
	MasteryYoung    Mastery = "young"
	MasteryMature   Mastery = "mature"
)

// ItemProgress is the review state of one vocabulary item.
type ItemProgress struct {
	Token          string     `json:"token"`
	Level          float64    `json:"level"`       // 0..10
	EaseFactor     float64    `json:"ease_factor"` // 1.3..4.0
	Interval       int        `json:"interval"`    // days
	NextReviewAt   time.Time  `json:"next_review_at"`
	LastReviewedAt *time.Time `json:"last_reviewed_at"` // nil before first review.
	ReviewCount    int        `json:"review_count"`
	CorrectCount   int        `json:"correct_count"`
	IncorrectCount int        `json:"incorrect_count"`
}

// NewItemProgress returns the state of an item that has never been reviewed.
// It is due immediately.
func NewItemProgress(token string, now time.Time) ItemProgress {
	return ItemProgress{
		Token:        token,
		EaseFactor:   StartingEase,
		NextReviewAt: now,
	}
}

// Advance applies one review with the given grade at time now and returns the
// new state. The input is not mutated. Grades outside the enumeration return
// ErrInvalidGrade; callers treat that as a programming error.
func Advance(p ItemProgress, g Grade, now time.Time) (ItemProgress, error) {
	next := p
	firstGraduation := p.Level == 0

	switch g {
	case Again:
		next.IncorrectCount++
		next.Level = math.Max(0, p.Level-2)
		next.Interval = initialInterval
		next.EaseFactor = math.Max(MinEase, p.EaseFactor-easePenalty)

	case Hard:
		next.CorrectCount++
		next.Level = math.Min(MaxLevel, p.Level+0.5)
		next.Interval = max(initialInterval, int(math.Ceil(float64(p.Interval)*hardIntervalMultiplier)))
		next.EaseFactor = math.Max(MinEase, p.EaseFactor-easePenalty)

	case Good:
		next.CorrectCount++
		next.Level = math.Min(MaxLevel, p.Level+1)
		if firstGraduation {
			next.Interval = graduatingInterval
		} else {
			next.Interval = int(math.Ceil(float64(p.Interval) * p.EaseFactor))
		}

	case Easy:
		next.CorrectCount++
		next.Level = math.Min(MaxLevel, p.Level+2)
		if firstGraduation {
			next.Interval = easyInterval
		} else {
			next.Interval = int(math.Ceil(float64(p.Interval) * p.EaseFactor * easyIntervalMultiplier))
		}
		next.EaseFactor = math.Min(MaxEase, p.EaseFactor+easeBonus)

	default:
		return p, fmt.Errorf("%w: %d", ErrInvalidGrade, int(g))
	}

	// A non-zero level with a zero interval still schedules at least a day out.
	if next.Interval < initialInterval {
		next.Interval = initialInterval
	}

	reviewed := now
	next.ReviewCount++
	next.LastReviewedAt = &reviewed
	next.NextReviewAt = now.AddDate(0, 0, next.Interval)
	return next, nil
}

// Mastery classifies the item by level.
func (p ItemProgress) Mastery() Mastery {
	switch {
	case p.Level == 0:
		return MasteryNew
	case p.Level <= 2:
		return MasteryLearning
	case p.Level <= 5:
		return MasteryYoung
	default:
		return MasteryMature
	}
}

// IsMastered reports whether the item reached level 6.
func (p ItemProgress) IsMastered() bool {
	return p.Level >= 6
}

// IsDue reports whether the item should be reviewed at now.
func (p ItemProgress) IsDue(now time.Time) bool {
	return !p.NextReviewAt.After(now)
}

// Accuracy returns the share of correct reviews as a percentage.
func (p ItemProgress) Accuracy() float64 {
	if p.ReviewCount == 0 {
		return 0
	}
	return float64(p.CorrectCount) / float64(p.ReviewCount) * 100
}
