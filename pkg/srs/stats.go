package srs

import "time"

const studyDayLayout = "2006-01-02"

// Statistics are the global review counters kept across sessions.
type Statistics struct {
	TotalReviews     int    `json:"total_reviews"`
	CorrectAnswers   int    `json:"correct_answers"`
	IncorrectAnswers int    `json:"incorrect_answers"`
	Streak           int    `json:"streak"`
	LongestStreak    int    `json:"longest_streak"`
	StudyDays        int    `json:"study_days"`
	LastStudyDay     string `json:"last_study_day"` // YYYY-MM-DD in the reviewer's local time.
}

// RecordAnswer folds one item review into the global statistics.
func RecordAnswer(s Statistics, correct bool, now time.Time) Statistics {
	next := s
	next.TotalReviews++
	if correct {
		next.CorrectAnswers++
		next.Streak++
		next.LongestStreak = max(next.LongestStreak, next.Streak)
	} else {
		next.IncorrectAnswers++
		next.Streak = 0
	}

	today := now.Format(studyDayLayout)
	if next.LastStudyDay != today {
		next.StudyDays++
		next.LastStudyDay = today
	}
	return next
}

// LearningStats summarizes a set of item records.
type LearningStats struct {
	TotalWords      int     `json:"total_words"`
	NewWords        int     `json:"new_words"`
	Learning        int     `json:"learning"`
	Young           int     `json:"young"`
	Mature          int     `json:"mature"`
	Mastered        int     `json:"mastered"`
	DueToday        int     `json:"due_today"`
	AverageAccuracy float64 `json:"average_accuracy"`
}

// Summarize counts items per mastery band at time now.
func Summarize(items []ItemProgress, now time.Time) LearningStats {
	st := LearningStats{TotalWords: len(items)}
	var totalAccuracy float64
	for _, p := range items {
		switch p.Mastery() {
		case MasteryNew:
			st.NewWords++
		case MasteryLearning:
			st.Learning++
		case MasteryYoung:
			st.Young++
		case MasteryMature:
			st.Mature++
		}
		if p.IsMastered() {
			st.Mastered++
		}
		if p.IsDue(now) {
			st.DueToday++
		}
		totalAccuracy += p.Accuracy()
	}
	if len(items) > 0 {
		st.AverageAccuracy = totalAccuracy / float64(len(items))
	}
	return st
}
