package ics

import (
	"strings"
	"time"
)

// The writer emits lines unfolded; values longer than 75 octets are
// tolerated by the calendar clients this feed targets.

func writeLine(b *strings.Builder, line string) {
	b.WriteString(line)
	b.WriteString("\r\n")
}

func writeCalendarHeader(b *strings.Builder, name string) {
	writeLine(b, "BEGIN:VCALENDAR")
	writeLine(b, "VERSION:2.0")
	writeLine(b, "PRODID:-//bilical//bilibili bangumi calendar//CN")
	writeLine(b, "CALSCALE:GREGORIAN")
	writeLine(b, "X-WR-CALNAME:"+EscapeText(name))
	writeLine(b, "X-WR-TIMEZONE:"+tzShanghai)
	writeLine(b, "BEGIN:VTIMEZONE")
	writeLine(b, "TZID:"+tzShanghai)
	writeLine(b, "BEGIN:STANDARD")
	writeLine(b, "TZOFFSETFROM:+0800")
	writeLine(b, "TZOFFSETTO:+0800")
	writeLine(b, "TZNAME:CST")
	writeLine(b, "DTSTART:19700101T000000")
	writeLine(b, "END:STANDARD")
	writeLine(b, "END:VTIMEZONE")
}

// writeEvent serializes one VEVENT. When conflicts is non-nil, any
// overlaps recorded for the event's BaseUID are appended to the
// description; withSource additionally emits the X-BC-SOURCE marker used
// by merged output.
func writeEvent(b *strings.Builder, ev *Event, now time.Time, conflicts ConflictMap, withSource bool) {
	writeLine(b, "BEGIN:VEVENT")
	writeLine(b, "UID:"+ev.UID)
	writeLine(b, "DTSTAMP:"+now.UTC().Format("20060102T150405Z"))
	writeDateTime(b, "DTSTART", ev, ev.Start, ev.RawStart)
	writeDateTime(b, "DTEND", ev, ev.End, "")
	if ev.RRule != "" {
		writeLine(b, "RRULE:"+ev.RRule)
	}
	writeLine(b, "SUMMARY:"+EscapeText(ev.Summary))

	desc := ev.Description
	if conflicts != nil {
		if names := conflicts.Summaries(ev.BaseUID); len(names) > 0 {
			if desc != "" {
				desc += "\n"
			}
			desc += "⚠️ 与 " + strings.Join(names, "、") + " 时间重叠"
		}
	}
	writeLine(b, "DESCRIPTION:"+EscapeText(desc))

	if ev.URL != "" {
		writeLine(b, "URL:"+ev.URL)
	}
	if withSource {
		writeLine(b, "X-BC-SOURCE:"+ev.Source)
	}
	writeLine(b, "END:VEVENT")
}

// writeDateTime emits DTSTART/DTEND, preferring the preserved raw token
// when one exists so parsed events round-trip without re-encoding drift.
func writeDateTime(b *strings.Builder, prop string, ev *Event, t time.Time, raw string) {
	switch {
	case raw != "" && ev.AllDay:
		writeLine(b, prop+";VALUE=DATE:"+raw)
	case raw != "" && ev.TZID != "":
		writeLine(b, prop+";TZID="+ev.TZID+":"+raw)
	case raw != "":
		writeLine(b, prop+":"+raw)
	case ev.AllDay:
		writeLine(b, prop+";VALUE=DATE:"+t.Format("20060102"))
	case ev.TZID != "":
		writeLine(b, prop+";TZID="+ev.TZID+":"+t.Format("20060102T150405"))
	default:
		writeLine(b, prop+":"+t.UTC().Format("20060102T150405Z"))
	}
}

// EmptyCalendar renders a placeholder document for the nothing-to-show
// case the HTTP layer maps the empty merge onto.
func EmptyCalendar(name string) string {
	var b strings.Builder
	writeCalendarHeader(&b, name)
	b.WriteString("END:VCALENDAR\r\n")
	return b.String()
}
