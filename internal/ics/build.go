package ics

import (
	"fmt"
	"strings"
	"time"

	"bilical/internal/bilibili"
	"bilical/internal/schedule"
)

const timeUnknownPrefix = "[时间未知] "

// BuildEvents maps followed shows onto calendar events. Shows missing a
// title or season id are skipped; shows whose schedule text cannot be
// parsed fall back to an all-day event on today's Shanghai date.
func BuildEvents(shows []bilibili.Show, now time.Time) []Event {
	events := make([]Event, 0, len(shows))
	for _, s := range shows {
		if s.Title == "" || s.SeasonID == "" {
			continue
		}
		events = append(events, buildShowEvent(s, now))
	}
	return events
}

func buildShowEvent(s bilibili.Show, now time.Time) Event {
	uid := string(s.SeasonID) + "@bilibili.com"
	ev := Event{
		UID:         uid,
		BaseUID:     uid,
		Summary:     buildSummary(s),
		Description: buildDescription(s),
		Source:      SourceBilibili,
		URL:         "https://www.bilibili.com/bangumi/play/ss" + string(s.SeasonID),
	}

	info := resolveSchedule(s)
	if info == nil {
		// Time unknown: all-day marker on today's date, no recurrence.
		day := now.In(schedule.Shanghai)
		start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, schedule.Shanghai)
		ev.Summary = timeUnknownPrefix + ev.Summary
		ev.Start = start
		ev.End = start.Add(24 * time.Hour)
		ev.AllDay = true
		return ev
	}

	ev.Start = schedule.NextOccurrence(now, info.DayOfWeek, info.Time)
	ev.End = ev.Start.Add(defaultEventDuration)
	ev.TZID = tzShanghai
	if !s.Finished() {
		ev.RRule = fmt.Sprintf("FREQ=WEEKLY;COUNT=%d;BYDAY=%s", recurrenceCount, info.RRuleWeekday)
	}
	return ev
}

// resolveSchedule tries the three schedule-bearing fields in fixed order;
// the first parse wins.
func resolveSchedule(s bilibili.Show) *schedule.Info {
	if info := schedule.ParseBroadcastTime(s.BroadcastIndex); info != nil {
		return info
	}
	if s.NewEp != nil {
		if info := schedule.ParseNewEpTime(s.NewEp.PubTime); info != nil {
			return info
		}
	}
	return schedule.ParseBroadcastTime(s.RenewalTime)
}

// buildSummary appends the season title unless it already occurs inside
// the title, avoiding "Show Show Season 2" duplication.
func buildSummary(s bilibili.Show) string {
	if s.SeasonTitle == "" || strings.Contains(s.Title, s.SeasonTitle) {
		return s.Title
	}
	return s.Title + " " + s.SeasonTitle
}

// buildDescription assembles the single-line description from the
// emoji-prefixed segments. Segments are space-joined, not newline-joined,
// so the value survives client-side line handling.
func buildDescription(s bilibili.Show) string {
	parts := make([]string, 0, 3)

	status := s.IndexShow
	if status == "" && s.NewEp != nil {
		status = s.NewEp.IndexShow
	}
	if status != "" {
		parts = append(parts, "🌟 更新状态: "+status)
	}

	state := "连载中"
	if s.Finished() {
		state = "已完结"
	}
	parts = append(parts, "➡️ 状态: "+state)

	synopsis := s.Evaluate
	if synopsis == "" {
		synopsis = "暂无简介"
	}
	parts = append(parts, "✨ 番剧简介: "+synopsis)

	return strings.Join(parts, " ")
}

// Generate renders the single-source calendar for a subscriber. The
// document is emitted even when every show was skipped; only the merged
// variant distinguishes the empty case.
func Generate(shows []bilibili.Show, vmid string, now time.Time) string {
	events := BuildEvents(shows, now)

	var b strings.Builder
	writeCalendarHeader(&b, "追番日历 "+vmid)
	for i := range events {
		writeEvent(&b, &events[i], now, nil, false)
	}
	b.WriteString("END:VCALENDAR\r\n")
	return b.String()
}
