package ics

import (
	"strings"
	"testing"
	"time"

	"bilical/internal/schedule"
)

func icsDoc(eventLines ...string) []byte {
	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//test//EN",
	}
	lines = append(lines, eventLines...)
	lines = append(lines, "END:VCALENDAR", "")
	return []byte(strings.Join(lines, "\r\n"))
}

func TestParseICS_DatetimeForms(t *testing.T) {
	body := icsDoc(
		"BEGIN:VEVENT",
		"UID:utc-1",
		"SUMMARY:UTC Event",
		"DTSTART:20240801T100000Z",
		"DTEND:20240801T113000Z",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"SUMMARY:Floating",
		"DTSTART;TZID=Asia/Shanghai:20240802T090000",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:allday-1",
		"SUMMARY:All Day",
		"DTSTART;VALUE=DATE:20240803",
		"END:VEVENT",
	)

	events, err := ParseICS("test", body)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}

	utc := events[0]
	if utc.UID != "utc-1" || utc.BaseUID != "utc-1" {
		t.Fatalf("unexpected uid %q/%q", utc.UID, utc.BaseUID)
	}
	if !utc.Start.Equal(time.Date(2024, 8, 1, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected UTC start %v", utc.Start)
	}
	if !utc.End.Equal(time.Date(2024, 8, 1, 11, 30, 0, 0, time.UTC)) {
		t.Fatalf("unexpected UTC end %v", utc.End)
	}
	if utc.AllDay {
		t.Fatal("UTC event must not be all-day")
	}
	if utc.RawStart != "20240801T100000Z" {
		t.Fatalf("raw start not preserved: %q", utc.RawStart)
	}

	floating := events[1]
	if floating.UID != "test-1@merged.local" {
		t.Fatalf("missing UID not synthesized: %q", floating.UID)
	}
	wantStart := time.Date(2024, 8, 2, 9, 0, 0, 0, schedule.Shanghai)
	if !floating.Start.Equal(wantStart) {
		t.Fatalf("floating start %v, want %v", floating.Start, wantStart)
	}
	if !floating.End.Equal(wantStart.Add(time.Hour)) {
		t.Fatalf("missing DTEND must default to start+1h, got %v", floating.End)
	}
	if floating.TZID != "Asia/Shanghai" {
		t.Fatalf("tzid not captured: %q", floating.TZID)
	}

	allDay := events[2]
	if !allDay.AllDay {
		t.Fatal("date-only DTSTART must be all-day")
	}
	y, m, d := allDay.Start.Date()
	if y != 2024 || m != time.August || d != 3 {
		t.Fatalf("unexpected all-day date %v", allDay.Start)
	}
}

func TestParseICS_KeepsRRuleAndSource(t *testing.T) {
	body := icsDoc(
		"BEGIN:VEVENT",
		"UID:weekly-1",
		"SUMMARY:Weekly",
		"DTSTART:20240802T120000Z",
		"RRULE:FREQ=WEEKLY;BYDAY=FR",
		"URL:https://example.com/weekly",
		"END:VEVENT",
	)

	events, err := ParseICS("mycal", body)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	ev := events[0]
	if ev.RRule != "FREQ=WEEKLY;BYDAY=FR" {
		t.Fatalf("rrule not kept: %q", ev.RRule)
	}
	if ev.Source != "mycal" {
		t.Fatalf("source not tagged: %q", ev.Source)
	}
	if ev.URL != "https://example.com/weekly" {
		t.Fatalf("url not kept: %q", ev.URL)
	}
}

func TestParseICS_DropsEventsWithoutStart(t *testing.T) {
	body := icsDoc(
		"BEGIN:VEVENT",
		"UID:no-start",
		"SUMMARY:No start",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:ok",
		"SUMMARY:Fine",
		"DTSTART:20240801T100000Z",
		"END:VEVENT",
	)

	events, err := ParseICS("test", body)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(events) != 1 || events[0].UID != "ok" {
		t.Fatalf("expected only the started event, got %+v", events)
	}
}

func TestParseICS_RejectsBadInput(t *testing.T) {
	if _, err := ParseICS("test", nil); err == nil {
		t.Fatal("empty body must error")
	}
	if _, err := ParseICS("test", []byte("hello world\r\n")); err == nil {
		t.Fatal("non-ICS body must error")
	}
}
