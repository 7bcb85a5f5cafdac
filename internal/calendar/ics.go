// Package calendar exports tracked meetings as iCalendar (.ics) entries.
package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/pfrederiksen/seminar-watch/internal/meeting"
)

// defaultDuration is assumed when the source page gives only a start time.
const defaultDuration = time.Hour

// GenerateICS generates an iCalendar file for a meeting. Meetings with an
// unparseable date are scheduled a week out so the entry is still importable
// and visibly provisional.
func GenerateICS(m *meeting.Meeting, now time.Time) string {
	var ics strings.Builder

	ics.WriteString("BEGIN:VCALENDAR\r\n")
	ics.WriteString("VERSION:2.0\r\n")
	ics.WriteString("PRODID:-//seminar-watch//seminar-watch//EN\r\n")
	ics.WriteString("CALSCALE:GREGORIAN\r\n")
	ics.WriteString("METHOD:PUBLISH\r\n")
	ics.WriteString("BEGIN:VEVENT\r\n")

	ics.WriteString(fmt.Sprintf("UID:%s@seminar-watch\r\n", m.ID))
	ics.WriteString(fmt.Sprintf("DTSTAMP:%s\r\n", formatICSTime(now.UTC())))

	start := now.AddDate(0, 0, 7)
	if m.StartAt != nil {
		start = *m.StartAt
	}
	ics.WriteString(fmt.Sprintf("DTSTART:%s\r\n", formatICSTime(start)))
	ics.WriteString(fmt.Sprintf("DTEND:%s\r\n", formatICSTime(start.Add(defaultDuration))))

	summary := m.Title
	if m.Speaker != "" {
		summary = fmt.Sprintf("%s - %s", m.Title, m.Speaker)
	}
	ics.WriteString(fmt.Sprintf("SUMMARY:%s\r\n", escapeICS(summary)))

	var desc []string
	if m.Speaker != "" {
		desc = append(desc, "Speaker: "+m.Speaker)
	}
	if m.StartText != "" {
		desc = append(desc, "Time: "+m.StartText)
	}
	if m.Abstract != "" {
		desc = append(desc, m.Abstract)
	}
	if m.SourceURL != "" {
		desc = append(desc, "Source: "+m.SourceURL)
	}
	if len(desc) > 0 {
		ics.WriteString(fmt.Sprintf("DESCRIPTION:%s\r\n", escapeICS(strings.Join(desc, "\n"))))
	}

	location := m.Location
	if m.Mode == meeting.ModeOnline && m.OnlineLink != "" {
		location = m.OnlineLink
	}
	if location != "" {
		ics.WriteString(fmt.Sprintf("LOCATION:%s\r\n", escapeICS(location)))
	}

	if m.OnlineLink != "" {
		ics.WriteString(fmt.Sprintf("URL:%s\r\n", m.OnlineLink))
	} else if m.SourceURL != "" {
		ics.WriteString(fmt.Sprintf("URL:%s\r\n", m.SourceURL))
	}

	ics.WriteString("STATUS:CONFIRMED\r\n")
	ics.WriteString(fmt.Sprintf("SEQUENCE:%d\r\n", m.Version-1))
	ics.WriteString("TRANSP:OPAQUE\r\n")

	ics.WriteString("END:VEVENT\r\n")
	ics.WriteString("END:VCALENDAR\r\n")

	return ics.String()
}

// formatICSTime formats a time.Time as an iCalendar datetime string.
func formatICSTime(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

// escapeICS escapes special characters according to RFC 5545.
func escapeICS(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, ";", "\\;")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}
