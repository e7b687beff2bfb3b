package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "bilical/internal/log"
	"bilical/internal/schedule"
)

// ParseICS parses an external ICS payload into normalized events.
//
//   - Events without a usable DTSTART are dropped.
//   - A missing DTEND defaults to start+1h, matching the builder.
//   - A missing UID is synthesized from the source label and event index.
//
// The datetime rules are deliberately narrow: 8-digit dates are all-day, a
// trailing Z means UTC, and floating times resolve to UTC+8 for the known
// Chinese TZIDs and to the host zone otherwise. This is not a timezone
// database, just the shapes this merge actually sees.
func ParseICS(source string, body []byte) ([]Event, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	events := make([]Event, 0)
	for i, ve := range cal.Events() {
		ev, ok := parseVEvent(source, i, ve)
		if !ok {
			continue
		}
		events = append(events, ev)
	}

	appLog.Info("ics parse completed", "source", source, "event_count", len(events))
	return events, nil
}

func parseVEvent(source string, index int, ve *ical.VEvent) (Event, bool) {
	out := Event{Source: source}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil || dtStart.Value == "" {
		return out, false
	}

	out.TZID = propTZID(dtStart)
	start, allDay, err := decodeICSTime(dtStart.Value, out.TZID)
	if err != nil {
		appLog.Error("ics dtstart decode failed", err, "source", source, "value", dtStart.Value)
		return out, false
	}
	out.Start = start
	out.AllDay = allDay || hasDateValueParam(dtStart)
	out.RawStart = strings.TrimSpace(dtStart.Value)

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
		out.UID = p.Value
	}
	if p := ve.GetProperty(ical.ComponentProperty("URL")); p != nil {
		out.URL = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		out.RRule = p.Value
	}

	if dtEnd := ve.GetProperty(ical.ComponentPropertyDtEnd); dtEnd != nil && dtEnd.Value != "" {
		if end, _, endErr := decodeICSTime(dtEnd.Value, propTZID(dtEnd)); endErr == nil {
			out.End = end
		}
	}
	if out.End.IsZero() {
		out.End = out.Start.Add(defaultEventDuration)
	}

	if out.UID == "" {
		out.UID = fmt.Sprintf("%s-%d@merged.local", source, index)
	}
	out.BaseUID = out.UID

	return out, true
}

func propTZID(p *ical.IANAProperty) string {
	if p.ICalParameters == nil {
		return ""
	}
	if tzs, ok := p.ICalParameters["TZID"]; ok && len(tzs) > 0 {
		return tzs[0]
	}
	return ""
}

func hasDateValueParam(p *ical.IANAProperty) bool {
	if p.ICalParameters == nil {
		return false
	}
	vs, ok := p.ICalParameters["VALUE"]
	return ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE")
}

// decodeICSTime decodes a DTSTART/DTEND token. The bool result reports
// the all-day (date-only) form.
func decodeICSTime(value, tzid string) (time.Time, bool, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return time.Time{}, false, errors.New("empty time value")
	}

	// Date only, e.g. 20250101: all-day at midnight in the resolved zone.
	if !strings.Contains(v, "T") {
		t, err := time.ParseInLocation("20060102", v, locationFor(tzid))
		return t, true, err
	}

	// UTC instant, e.g. 20250101T090000Z.
	if strings.HasSuffix(v, "Z") {
		t, err := time.Parse("20060102T150405Z", v)
		return t, false, err
	}

	// Floating time: resolve via TZID, else host zone.
	t, err := time.ParseInLocation("20060102T150405", v, locationFor(tzid))
	return t, false, err
}

// locationFor resolves the small set of TZIDs this feed encounters. The
// mainland aliases share the fixed UTC+8 zone; anything else falls back
// to the host zone, a known approximation.
func locationFor(tzid string) *time.Location {
	switch tzid {
	case "Asia/Shanghai", "Asia/Chongqing", "Asia/Harbin":
		return schedule.Shanghai
	default:
		return time.Local
	}
}
