package store

import (
	"time"

	"github.com/japaniel/collodrill/pkg/catalog"
	"github.com/japaniel/collodrill/pkg/srs"
)

// SessionRecord summarizes one finished drill.
type SessionRecord struct {
	ID           string            `json:"id"`
	Subject      string            `json:"subject"`
	SubjectClass catalog.WordClass `json:"subject_class"`
	Direction    string            `json:"direction"` // "forward" or "reverse"
	StartedAt    time.Time         `json:"started_at"`
	FinishedAt   time.Time         `json:"finished_at"`
	TargetTotal  int               `json:"target_total"`
	Found        int               `json:"found"`
	Skipped      int               `json:"skipped"`
	BonusFound   int               `json:"bonus_found"`
	Score        int               `json:"score"`
	Grade        srs.Grade         `json:"grade"`
}
