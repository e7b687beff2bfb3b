package ics

import (
	"fmt"
	"strings"
	"time"

	"bilical/internal/bilibili"
	appLog "bilical/internal/log"
)

// ExternalCalendar is one already-fetched external ICS document. Label is
// the source name shown in X-BC-SOURCE; fetching lives in the Fetcher.
type ExternalCalendar struct {
	Label string
	Body  []byte
}

// GenerateMerged combines the subscriber's show events with parsed
// external calendars, annotates overlapping events, and serializes the
// unified set. A source that fails to parse is logged and skipped; the
// merge never aborts on one bad source. ok is false when the combined
// event set is empty.
func GenerateMerged(shows []bilibili.Show, vmid string, sources []ExternalCalendar, now time.Time) (string, bool) {
	events := BuildEvents(shows, now)

	merged := 0
	for _, src := range sources {
		parsed, err := ParseICS(src.Label, src.Body)
		if err != nil {
			appLog.Error("external ics parse failed, skipping source", err, "source", src.Label)
			continue
		}
		merged++
		events = append(events, parsed...)
	}

	if len(events) == 0 {
		return "", false
	}

	conflicts := DetectConflicts(events)

	var b strings.Builder
	writeCalendarHeader(&b, fmt.Sprintf("追番日历 %s (合并%d个外部日历)", vmid, merged))
	for i := range events {
		writeEvent(&b, &events[i], now, conflicts, true)
	}
	b.WriteString("END:VCALENDAR\r\n")
	return b.String(), true
}
