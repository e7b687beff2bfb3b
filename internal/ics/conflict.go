package ics

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	appLog "bilical/internal/log"
)

// ConflictMap records, per BaseUID, the summaries of every event whose
// interval overlaps that event's interval.
type ConflictMap map[string]map[string]struct{}

func (m ConflictMap) add(baseUID, summary string) {
	set, ok := m[baseUID]
	if !ok {
		set = make(map[string]struct{})
		m[baseUID] = set
	}
	set[summary] = struct{}{}
}

// Summaries returns the conflicting summaries for an event identity,
// sorted for deterministic output.
func (m ConflictMap) Summaries(baseUID string) []string {
	set, ok := m[baseUID]
	if !ok || len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// DetectConflicts expands weekly-recurring events one recurrence cycle
// forward and reports pairwise interval overlaps across the unified set.
// Overlap is strict half-open: events that only touch at an endpoint do
// not conflict. Keys are BaseUIDs so synthesized recurrence copies
// collapse onto their parent.
func DetectConflicts(events []Event) ConflictMap {
	expanded := expandWeekly(events)

	sort.Slice(expanded, func(i, j int) bool {
		return expanded[i].Start.Before(expanded[j].Start)
	})

	conflicts := make(ConflictMap)
	for i := 0; i < len(expanded); i++ {
		for j := i + 1; j < len(expanded); j++ {
			// Sorted by start, so once i ends at or before j starts no
			// later j can overlap i either.
			if !expanded[i].End.After(expanded[j].Start) {
				break
			}
			if overlaps(&expanded[i], &expanded[j]) {
				conflicts.add(expanded[i].BaseUID, expanded[j].Summary)
				conflicts.add(expanded[j].BaseUID, expanded[i].Summary)
			}
		}
	}
	return conflicts
}

func overlaps(a, b *Event) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// expandWeekly materializes recurrenceCount-1 further occurrences for
// every FREQ=WEEKLY event, covering the builder's COUNT contract without
// a general RRULE grammar. Copies share the parent's BaseUID.
func expandWeekly(events []Event) []Event {
	out := make([]Event, 0, len(events))
	for _, ev := range events {
		out = append(out, ev)

		if ev.Start.IsZero() || ev.End.IsZero() {
			continue
		}
		if !strings.Contains(strings.ToUpper(ev.RRule), "FREQ=WEEKLY") {
			continue
		}

		dur := ev.End.Sub(ev.Start)
		occ := weeklyOccurrences(ev, recurrenceCount-1)
		for k, start := range occ {
			c := ev
			c.UID = fmt.Sprintf("%s#r%d", ev.UID, k+1)
			c.Start = start
			c.End = start.Add(dur)
			c.RRule = ""
			out = append(out, c)
		}
	}
	return out
}

// weeklyOccurrences computes up to n occurrence starts after the event's
// own start, driven by the event's RRULE. An unparseable rule degrades to
// flat 7-day steps.
func weeklyOccurrences(ev Event, n int) []time.Time {
	out := make([]time.Time, 0, n)

	r, err := rrule.StrToRRule(ev.RRule)
	if err != nil {
		appLog.Debug("rrule parse failed, using 7-day steps", "uid", ev.UID, "rrule", ev.RRule, "err", err)
		for k := 1; k <= n; k++ {
			out = append(out, ev.Start.AddDate(0, 0, 7*k))
		}
		return out
	}
	r.DTStart(ev.Start)

	cursor := ev.Start
	for k := 0; k < n; k++ {
		next := r.After(cursor, false)
		if next.IsZero() {
			break
		}
		out = append(out, next)
		cursor = next
	}
	return out
}
