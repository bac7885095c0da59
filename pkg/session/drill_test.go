package session

import (
	"errors"
	"testing"
	"time"

	"github.com/japaniel/collodrill/pkg/catalog"
	"github.com/japaniel/collodrill/pkg/resolve"
	"github.com/japaniel/collodrill/pkg/srs"
)

var testNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func drinkDrill() *Drill {
	subject := catalog.CollocationEntry{Token: "飲む", Class: catalog.Verb, Reading: "のむ"}
	targets := []catalog.Match{
		{Token: "水", Reading: "みず", Class: catalog.Noun, Score: 3},
		{Token: "薬", Reading: "くすり", Class: catalog.Noun, Score: 3},
	}
	bonus := []catalog.Match{{Token: "お茶", Reading: "おちゃ", Class: catalog.Noun, Score: 2}}
	return NewDrill("01TEST", subject, Forward, targets, bonus, resolve.New(nil), testNow)
}

func TestDrillAnswers(t *testing.T) {
	d := drinkDrill()

	tests := []struct {
		input     string
		matched   bool
		token     string
		bonus     bool
		duplicate bool
	}{
		{"ミズ", true, "水", false, false},
		{"水", true, "水", false, true},
		{"おちゃ", true, "お茶", true, false},
		{"お茶", true, "お茶", true, true},
		{"パン", false, "", false, false},
	}
	for _, tt := range tests {
		ans, err := d.Submit(tt.input)
		if err != nil {
			t.Fatalf("Submit(%q): %v", tt.input, err)
		}
		if ans.Matched != tt.matched || ans.Match.Token != tt.token || ans.IsBonus != tt.bonus || ans.IsDuplicate != tt.duplicate {
			t.Errorf("Submit(%q) = %+v", tt.input, ans)
		}
		if ans.State != Playing {
			t.Errorf("Submit(%q) state = %v", tt.input, ans.State)
		}
	}
	if d.Score() != 3 || d.BonusFound() != 1 || len(d.Found()) != 1 {
		t.Fatalf("score %d, bonus %d, found %v", d.Score(), d.BonusFound(), d.Found())
	}
	if len(d.Answers()) != len(tests) {
		t.Fatalf("answers = %d", len(d.Answers()))
	}

	ans, err := d.Submit("くすり")
	if err != nil {
		t.Fatal(err)
	}
	if !ans.NewTarget() || ans.State != Finished {
		t.Fatalf("last target: %+v", ans)
	}
	if _, err := d.Submit("水"); !errors.Is(err, ErrSessionFinished) {
		t.Fatalf("Submit after finish = %v", err)
	}
	if d.Grade() != srs.Easy {
		t.Fatalf("grade = %v, want easy", d.Grade())
	}
}

func TestDrillSkip(t *testing.T) {
	d := drinkDrill()
	if _, err := d.Submit("水"); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Skip("水"); !errors.Is(err, ErrUnknownTarget) {
		t.Fatalf("skipping a found target = %v", err)
	}
	if _, err := d.Skip("お茶"); !errors.Is(err, ErrUnknownTarget) {
		t.Fatalf("skipping a bonus partner = %v", err)
	}
	m, err := d.Skip("薬")
	if err != nil || m.Token != "薬" {
		t.Fatalf("Skip = %+v, %v", m, err)
	}
	if d.State() != Finished || len(d.Remaining()) != 0 {
		t.Fatalf("state %v, remaining %v", d.State(), d.Remaining())
	}
	if _, err := d.Skip("薬"); !errors.Is(err, ErrSessionFinished) {
		t.Fatalf("Skip after finish = %v", err)
	}

	rec := d.Record(testNow.Add(time.Minute))
	if rec.Found != 1 || rec.Skipped != 1 || rec.TargetTotal != 2 || rec.Score != 3 || rec.Grade != srs.Hard {
		t.Fatalf("record = %+v", rec)
	}
}

func TestDrillSkippedTargetIsNotFoundLater(t *testing.T) {
	d := drinkDrill()
	if _, err := d.Skip("薬"); err != nil {
		t.Fatal(err)
	}
	ans, err := d.Submit("薬")
	if err != nil {
		t.Fatal(err)
	}
	if !ans.IsDuplicate || d.Score() != 0 {
		t.Fatalf("answer after skip = %+v, score %d", ans, d.Score())
	}
}

func TestDrillGiveUp(t *testing.T) {
	d := drinkDrill()
	d.GiveUp()
	if d.State() != Finished || d.Grade() != srs.Again {
		t.Fatalf("state %v, grade %v", d.State(), d.Grade())
	}
	if len(d.Remaining()) != 2 {
		t.Fatalf("remaining = %v", d.Remaining())
	}
}

func TestDrillWithoutTargetsStartsFinished(t *testing.T) {
	d := NewDrill("x", catalog.CollocationEntry{Token: "飲む"}, Forward, nil, nil, nil, testNow)
	if d.State() != Finished {
		t.Fatalf("state = %v", d.State())
	}
}

func TestPairIDDirection(t *testing.T) {
	fwd := &Drill{Subject: "飲む", Direction: Forward}
	rev := &Drill{Subject: "水", Direction: Reverse}
	if fwd.PairID("水") != "飲む|水" || rev.PairID("飲む") != "飲む|水" {
		t.Fatalf("pair ids %s / %s", fwd.PairID("水"), rev.PairID("飲む"))
	}
}

func TestParseDirection(t *testing.T) {
	if d, err := ParseDirection("reverse"); err != nil || d != Reverse {
		t.Fatalf("ParseDirection = %v, %v", d, err)
	}
	if _, err := ParseDirection("sideways"); err == nil {
		t.Fatal("expected error")
	}
}
