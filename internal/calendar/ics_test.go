package calendar

import (
	"strings"
	"testing"
	"time"

	"github.com/pfrederiksen/seminar-watch/internal/meeting"
)

func timePtr(t time.Time) *time.Time { return &t }

func TestGenerateICS(t *testing.T) {
	now := time.Date(2026, time.June, 15, 9, 0, 0, 0, time.UTC)

	m := &meeting.Meeting{
		ID:        "abc123",
		SourceURL: "https://math.example.edu/talks/1",
		Title:     "Spectral Methods",
		Speaker:   "Dr. Wei Chen",
		StartText: "2026-07-01 14:00",
		StartAt:   timePtr(time.Date(2026, time.July, 1, 14, 0, 0, 0, time.UTC)),
		Location:  "Room 204, Science Building",
		Mode:      meeting.ModeInPerson,
		Abstract:  "We study spectra.",
		Version:   3,
	}

	ics := GenerateICS(m, now)

	checks := []string{
		"BEGIN:VCALENDAR",
		"BEGIN:VEVENT",
		"UID:abc123@seminar-watch",
		"DTSTART:20260701T140000Z",
		"DTEND:20260701T150000Z",
		"SUMMARY:Spectral Methods - Dr. Wei Chen",
		"LOCATION:Room 204\\, Science Building",
		"URL:https://math.example.edu/talks/1",
		"SEQUENCE:2",
		"END:VEVENT",
		"END:VCALENDAR",
	}
	for _, want := range checks {
		if !strings.Contains(ics, want) {
			t.Errorf("ICS output missing %q", want)
		}
	}

	if !strings.Contains(ics, "DESCRIPTION:Speaker: Dr. Wei Chen\\n") {
		t.Error("description should lead with the speaker")
	}
	if !strings.HasSuffix(ics, "END:VCALENDAR\r\n") {
		t.Error("output should use CRLF line endings")
	}
}

func TestGenerateICS_OnlineMeeting(t *testing.T) {
	now := time.Date(2026, time.June, 15, 9, 0, 0, 0, time.UTC)

	m := &meeting.Meeting{
		ID:         "def456",
		Title:      "Remote Colloquium",
		StartAt:    timePtr(time.Date(2026, time.July, 8, 15, 0, 0, 0, time.UTC)),
		Location:   "Hall B",
		Mode:       meeting.ModeOnline,
		OnlineLink: "https://zoom.example.com/j/123",
		Version:    1,
	}

	ics := GenerateICS(m, now)

	if !strings.Contains(ics, "LOCATION:https://zoom.example.com/j/123") {
		t.Error("online meetings should carry the join link as location")
	}
	if !strings.Contains(ics, "URL:https://zoom.example.com/j/123") {
		t.Error("online link should be the event URL")
	}
	if !strings.Contains(ics, "SEQUENCE:0") {
		t.Error("first version should map to sequence 0")
	}
}

func TestGenerateICS_UnparseableDate(t *testing.T) {
	now := time.Date(2026, time.June, 15, 9, 0, 0, 0, time.UTC)

	m := &meeting.Meeting{
		ID:        "ghi789",
		Title:     "Date To Be Announced",
		StartText: "TBD",
		Version:   1,
	}

	ics := GenerateICS(m, now)

	// Scheduled a week out so the entry still imports.
	if !strings.Contains(ics, "DTSTART:20260622T090000Z") {
		t.Errorf("expected provisional start a week from now, got:\n%s", ics)
	}
}

func TestEscapeICS(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"a,b", `a\,b`},
		{"a;b", `a\;b`},
		{"a\nb", `a\nb`},
		{`a\b`, `a\\b`},
		{"plain", "plain"},
	}

	for _, tt := range tests {
		if got := escapeICS(tt.in); got != tt.want {
			t.Errorf("escapeICS(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
