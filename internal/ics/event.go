// Package ics builds, parses and merges the iCalendar feeds served by this
// service. It handles only the subset of RFC 5545 actually produced or
// consumed here: VEVENT with DTSTART/DTEND, weekly RRULEs, VALUE=DATE
// all-day dates, TZID floating times and UTC times.
package ics

import "time"

const (
	// recurrenceCount is the COUNT emitted on weekly RRULEs. The conflict
	// detector materializes recurrenceCount-1 extra occurrences per
	// recurring event; the two must change in lockstep.
	recurrenceCount = 2

	// defaultEventDuration is assumed whenever a source provides a start
	// but no end, on both the build and parse sides, so conflict
	// detection stays symmetric.
	defaultEventDuration = time.Hour

	// SourceBilibili tags natively-built show events.
	SourceBilibili = "bilibili"

	tzShanghai = "Asia/Shanghai"
)

// Event is the unit both the builder and the parser produce and the
// conflict detector and assembler consume.
type Event struct {
	// UID is globally unique per source. Native events use
	// "<seasonID>@bilibili.com"; parsed events keep the source's UID or
	// get "<source>-<index>@merged.local".
	UID string

	// BaseUID is the event identity ignoring synthesized recurrence
	// suffixes; conflict reporting is keyed by it.
	BaseUID string

	Summary     string
	Description string

	Start time.Time
	End   time.Time

	AllDay bool

	// Source is SourceBilibili or the external calendar's label/URL.
	Source string

	URL string

	// RRule is the raw RRULE value, currently only FREQ=WEEKLY forms.
	RRule string

	// RawStart preserves the original ICS-encoded DTSTART token so merged
	// output can re-emit it without re-encoding drift.
	RawStart string

	// TZID is the DTSTART timezone parameter, when one applies.
	TZID string
}
