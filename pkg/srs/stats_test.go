package srs

import (
	"testing"
	"time"
)

func TestRecordAnswerStreaks(t *testing.T) {
	var s Statistics
	day1 := testNow
	s = RecordAnswer(s, true, day1)
	s = RecordAnswer(s, true, day1)
	s = RecordAnswer(s, false, day1)
	s = RecordAnswer(s, true, day1)

	if s.TotalReviews != 4 || s.CorrectAnswers != 3 || s.IncorrectAnswers != 1 {
		t.Fatalf("counters = %+v", s)
	}
	if s.Streak != 1 || s.LongestStreak != 2 {
		t.Fatalf("streak = %d, longest = %d, want 1, 2", s.Streak, s.LongestStreak)
	}
	if s.StudyDays != 1 || s.LastStudyDay != "2026-03-14" {
		t.Fatalf("study days = %d (%s)", s.StudyDays, s.LastStudyDay)
	}

	s = RecordAnswer(s, true, day1.Add(24*time.Hour))
	if s.StudyDays != 2 || s.LastStudyDay != "2026-03-15" {
		t.Fatalf("study days after next day = %d (%s)", s.StudyDays, s.LastStudyDay)
	}
}

func TestSummarize(t *testing.T) {
	items := []ItemProgress{
		{Token: "a", Level: 0, NextReviewAt: testNow},
		{Token: "b", Level: 1, ReviewCount: 2, CorrectCount: 1, NextReviewAt: testNow.Add(time.Hour)},
		{Token: "c", Level: 4, ReviewCount: 4, CorrectCount: 4, NextReviewAt: testNow.Add(-time.Hour)},
		{Token: "d", Level: 7, ReviewCount: 5, CorrectCount: 5, NextReviewAt: testNow.AddDate(0, 0, 9)},
	}
	st := Summarize(items, testNow)
	if st.TotalWords != 4 || st.NewWords != 1 || st.Learning != 1 || st.Young != 1 || st.Mature != 1 {
		t.Fatalf("bands = %+v", st)
	}
	if st.Mastered != 1 {
		t.Fatalf("mastered = %d, want 1", st.Mastered)
	}
	if st.DueToday != 2 {
		t.Fatalf("due = %d, want 2", st.DueToday)
	}
	if want := (0 + 50 + 100 + 100) / 4.0; st.AverageAccuracy != want {
		t.Fatalf("average accuracy = %v, want %v", st.AverageAccuracy, want)
	}

	if empty := Summarize(nil, testNow); empty != (LearningStats{}) {
		t.Fatalf("Summarize(nil) = %+v", empty)
	}
}
