// Package schedule turns the free-form broadcast-time strings coming from
// the bilibili follow-list API into normalized weekly schedules, and
// computes concrete next-occurrence instants in the fixed UTC+8 zone.
package schedule

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Shanghai is the fixed UTC+8 zone all broadcast times are interpreted in.
// The target region has no DST, so a fixed offset is sufficient; keeping it
// behind one package variable means a real tz database could be swapped in
// without touching callers.
var Shanghai = time.FixedZone("Asia/Shanghai", 8*60*60)

// Info is a normalized weekly schedule. DayOfWeek uses the Sunday=0
// convention and always denotes the same weekday as RRuleWeekday.
type Info struct {
	DayOfWeek    int    // 0=Sunday .. 6=Saturday
	Time         string // "HH:MM"
	RRuleWeekday string // SU, MO, TU, WE, TH, FR, SA
}

// weekdayGlyphs maps the CJK weekday characters to Sunday=0 indices.
var weekdayGlyphs = map[string]int{
	"日": 0, "一": 1, "二": 2, "三": 3, "四": 4, "五": 5, "六": 6,
}

var rruleWeekdays = [7]string{"SU", "MO", "TU", "WE", "TH", "FR", "SA"}

// broadcastPatterns are tried in order against the free text; the first
// match wins. Patterns degrade from explicit "每周X HH:MM" down to a bare
// time with a Monday default.
var broadcastPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:(?:每周|周)([日一二三四五六]))?.*?(\d{1,2}:\d{2})`),
	regexp.MustCompile(`([日一二三四五六]).*?(\d{1,2}:\d{2})`),
	regexp.MustCompile(`(\d{1,2}:\d{2})`),
	regexp.MustCompile(`(?:.*?日起)?\s*(?:周([日一二三四五六]))?.*?(\d{1,2}:\d{2})`),
	regexp.MustCompile(`(?:.*?起)?\s*(?:周([日一二三四五六]))?.*?(\d{1,2}:\d{2})`),
}

// pubTimeExact matches the precise timestamp form the new-episode field
// sometimes carries, e.g. "2024-08-08 18:30:00".
var pubTimeExact = regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}$`)

// ParseBroadcastTime extracts a weekly schedule from free text such as
// "每周四 20:00更新". It returns nil when nothing usable is found; an
// unparseable schedule is not an error, callers fall back to the
// time-unknown path.
func ParseBroadcastTime(text string) *Info {
	if text == "" {
		return nil
	}
	for _, re := range broadcastPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		var day, clock string
		switch len(m) {
		case 2: // time-only pattern
			clock = m[1]
		case 3:
			day, clock = m[1], m[2]
		}
		hhmm, ok := normalizeClock(clock)
		if !ok {
			continue
		}
		if day != "" {
			if d, known := weekdayGlyphs[day]; known {
				return &Info{DayOfWeek: d, Time: hhmm, RRuleWeekday: rruleWeekdays[d]}
			}
			continue
		}
		// No weekday in the text: default to Monday.
		return &Info{DayOfWeek: 1, Time: hhmm, RRuleWeekday: rruleWeekdays[1]}
	}
	return nil
}

// ParseNewEpTime handles the new-episode publish-time field, which may be a
// precise "YYYY-MM-DD HH:MM:SS" timestamp. In that case the weekday comes
// from the calendar date itself, interpreted as UTC+8 wall clock. Anything
// else falls back to the lazy weekday+time pattern.
func ParseNewEpTime(text string) *Info {
	if text == "" {
		return nil
	}
	if pubTimeExact.MatchString(text) {
		t, err := time.ParseInLocation("2006-01-02 15:04:05", text, Shanghai)
		if err == nil {
			d := int(t.Weekday())
			return &Info{DayOfWeek: d, Time: t.Format("15:04"), RRuleWeekday: rruleWeekdays[d]}
		}
	}

	m := broadcastPatterns[3].FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	hhmm, ok := normalizeClock(m[2])
	if !ok {
		return nil
	}
	if m[1] != "" {
		if d, known := weekdayGlyphs[m[1]]; known {
			return &Info{DayOfWeek: d, Time: hhmm, RRuleWeekday: rruleWeekdays[d]}
		}
		return nil
	}
	return &Info{DayOfWeek: 1, Time: hhmm, RRuleWeekday: rruleWeekdays[1]}
}

// NextOccurrence computes the next wall-clock instant of the given weekday
// and "HH:MM" time in the Shanghai zone, never earlier than now. An
// occurrence falling exactly on now counts as passed and rolls one week
// forward.
func NextOccurrence(now time.Time, dayOfWeek int, hhmm string) time.Time {
	h, m := splitClock(hhmm)
	local := now.In(Shanghai)

	diff := (dayOfWeek - int(local.Weekday()) + 7) % 7
	if diff == 0 && (local.Hour() > h || (local.Hour() == h && local.Minute() >= m)) {
		diff = 7
	}

	return time.Date(local.Year(), local.Month(), local.Day()+diff, h, m, 0, 0, Shanghai)
}

// normalizeClock validates an "H:MM"/"HH:MM" token and zero-pads the hour.
func normalizeClock(clock string) (string, bool) {
	h, m, ok := parseClock(clock)
	if !ok {
		return "", false
	}
	return fmt.Sprintf("%02d:%02d", h, m), true
}

func splitClock(hhmm string) (int, int) {
	h, m, _ := parseClock(hhmm)
	return h, m
}

func parseClock(clock string) (int, int, bool) {
	parts := strings.SplitN(clock, ":", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	h, errH := strconv.Atoi(parts[0])
	m, errM := strconv.Atoi(parts[1])
	if errH != nil || errM != nil || h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, 0, false
	}
	return h, m, true
}
