package ics

import (
	"testing"
	"time"
)

func timedEvent(uid, summary string, start time.Time, dur time.Duration) Event {
	return Event{
		UID:     uid,
		BaseUID: uid,
		Summary: summary,
		Start:   start,
		End:     start.Add(dur),
	}
}

func TestDetectConflicts_PairwiseOverlap(t *testing.T) {
	day := time.Date(2024, 8, 5, 0, 0, 0, 0, time.UTC)
	a := timedEvent("a", "A", day.Add(10*time.Hour), time.Hour)
	b := timedEvent("b", "B", day.Add(10*time.Hour+30*time.Minute), time.Hour)
	c := timedEvent("c", "C", day.Add(12*time.Hour), time.Hour)

	conflicts := DetectConflicts([]Event{a, b, c})

	if got := conflicts.Summaries("a"); len(got) != 1 || got[0] != "B" {
		t.Fatalf("a conflicts: %v", got)
	}
	if got := conflicts.Summaries("b"); len(got) != 1 || got[0] != "A" {
		t.Fatalf("b conflicts: %v", got)
	}
	if got := conflicts.Summaries("c"); got != nil {
		t.Fatalf("c must not conflict: %v", got)
	}
}

func TestDetectConflicts_BackToBackDoNotConflict(t *testing.T) {
	day := time.Date(2024, 8, 5, 0, 0, 0, 0, time.UTC)
	a := timedEvent("a", "A", day.Add(10*time.Hour), time.Hour)
	b := timedEvent("b", "B", day.Add(11*time.Hour), time.Hour)

	conflicts := DetectConflicts([]Event{a, b})
	if len(conflicts) != 0 {
		t.Fatalf("touching endpoints must not conflict: %v", conflicts)
	}
}

func TestDetectConflicts_Symmetry(t *testing.T) {
	day := time.Date(2024, 8, 5, 0, 0, 0, 0, time.UTC)
	events := []Event{
		timedEvent("a", "A", day.Add(9*time.Hour), 2*time.Hour),
		timedEvent("b", "B", day.Add(10*time.Hour), 2*time.Hour),
		timedEvent("c", "C", day.Add(11*time.Hour), 2*time.Hour),
	}

	conflicts := DetectConflicts(events)

	pairs := map[string]string{"a": "b", "b": "c"}
	for x, y := range pairs {
		xs, ys := conflicts[x], conflicts[y]
		if xs == nil || ys == nil {
			t.Fatalf("expected both %s and %s to have conflicts", x, y)
		}
	}
	// a [9,11) and c [11,13) only touch.
	for _, s := range conflicts.Summaries("a") {
		if s == "C" {
			t.Fatal("a and c must not conflict")
		}
	}
}

func TestDetectConflicts_WeeklyRecurrenceForward(t *testing.T) {
	// A recurs weekly from Monday 2024-08-05; B occurs once a week later,
	// overlapping A's second occurrence only.
	start := time.Date(2024, 8, 5, 10, 0, 0, 0, time.UTC)
	a := timedEvent("a", "A", start, time.Hour)
	a.RRule = "FREQ=WEEKLY;COUNT=2;BYDAY=MO"
	b := timedEvent("b", "B", start.Add(7*24*time.Hour+30*time.Minute), time.Hour)

	conflicts := DetectConflicts([]Event{a, b})

	// Conflicts collapse onto the parent identity, not the #r1 copy.
	if got := conflicts.Summaries("a"); len(got) != 1 || got[0] != "B" {
		t.Fatalf("a conflicts: %v", got)
	}
	if got := conflicts.Summaries("b"); len(got) != 1 || got[0] != "A" {
		t.Fatalf("b conflicts: %v", got)
	}
	if _, ok := conflicts["a#r1"]; ok {
		t.Fatal("synthesized occurrence must not appear as its own key")
	}
}

func TestDetectConflicts_LowercaseRRuleStillExpands(t *testing.T) {
	start := time.Date(2024, 8, 5, 10, 0, 0, 0, time.UTC)
	a := timedEvent("a", "A", start, time.Hour)
	a.RRule = "freq=weekly"
	b := timedEvent("b", "B", start.Add(7*24*time.Hour), time.Hour)

	conflicts := DetectConflicts([]Event{a, b})
	if got := conflicts.Summaries("b"); len(got) != 1 || got[0] != "A" {
		t.Fatalf("expected fallback 7-day expansion to conflict with B: %v", got)
	}
}

func TestDetectConflicts_FirstOccurrencesApart(t *testing.T) {
	// Sanity: the two events' first occurrences never overlap.
	start := time.Date(2024, 8, 5, 10, 0, 0, 0, time.UTC)
	a := timedEvent("a", "A", start, time.Hour)
	b := timedEvent("b", "B", start.Add(7*24*time.Hour+30*time.Minute), time.Hour)

	conflicts := DetectConflicts([]Event{a, b})
	if len(conflicts) != 0 {
		t.Fatalf("without recurrence there is no overlap: %v", conflicts)
	}
}
