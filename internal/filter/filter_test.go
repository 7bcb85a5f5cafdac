package filter

import (
	"testing"
	"time"

	"github.com/pfrederiksen/seminar-watch/internal/meeting"
)

var testNow = time.Date(2026, time.June, 15, 10, 0, 0, 0, time.UTC)

func timePtr(t time.Time) *time.Time { return &t }

func sampleMeetings() []*meeting.Meeting {
	return []*meeting.Meeting{
		{
			Title:    "Spectral Methods",
			Speaker:  "Dr. Wei Chen",
			Location: "Room 204",
			Mode:     meeting.ModeInPerson,
			StartAt:  timePtr(time.Date(2026, time.July, 1, 14, 0, 0, 0, time.UTC)),
		},
		{
			Title:    "Quantum Error Correction",
			Speaker:  "Dr. Jane Park",
			Location: "Hall B",
			Mode:     meeting.ModeOnline,
			StartAt:  timePtr(time.Date(2026, time.August, 10, 15, 0, 0, 0, time.UTC)),
		},
		{
			Title:    "Winter Workshop",
			Speaker:  "Dr. Wei Chen",
			Location: "Room 204",
			Mode:     meeting.ModeHybrid,
			StartAt:  timePtr(time.Date(2026, time.January, 10, 9, 0, 0, 0, time.UTC)),
		},
		{
			Title:     "Date To Be Announced",
			Speaker:   "Dr. Kim",
			StartText: "TBD",
			Mode:      meeting.ModeUnknown,
		},
	}
}

func TestFilter_IsEmpty(t *testing.T) {
	if !New().IsEmpty() {
		t.Error("a fresh filter should be empty")
	}

	f := New()
	f.UpcomingOnly = true
	if f.IsEmpty() {
		t.Error("a filter with criteria is not empty")
	}
}

func TestFilter_Apply(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(*Filter)
		wantTitles []string
	}{
		{
			name:       "empty filter passes everything",
			setup:      func(f *Filter) {},
			wantTitles: []string{"Spectral Methods", "Quantum Error Correction", "Winter Workshop", "Date To Be Announced"},
		},
		{
			name:       "upcoming only drops past and undated",
			setup:      func(f *Filter) { f.UpcomingOnly = true },
			wantTitles: []string{"Spectral Methods", "Quantum Error Correction"},
		},
		{
			name:       "speaker substring match is case-insensitive",
			setup:      func(f *Filter) { f.Speakers = []string{"wei chen"} },
			wantTitles: []string{"Spectral Methods", "Winter Workshop"},
		},
		{
			name:       "location filter",
			setup:      func(f *Filter) { f.Locations = []string{"hall"} },
			wantTitles: []string{"Quantum Error Correction"},
		},
		{
			name:       "mode is exact match",
			setup:      func(f *Filter) { f.Modes = []string{"online"} },
			wantTitles: []string{"Quantum Error Correction"},
		},
		{
			name: "date range keeps undated meetings",
			setup: func(f *Filter) {
				f.DateFrom = timePtr(time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC))
				f.DateTo = timePtr(time.Date(2026, time.July, 31, 0, 0, 0, 0, time.UTC))
			},
			wantTitles: []string{"Spectral Methods", "Date To Be Announced"},
		},
		{
			name: "criteria combine with AND",
			setup: func(f *Filter) {
				f.UpcomingOnly = true
				f.Speakers = []string{"chen"}
			},
			wantTitles: []string{"Spectral Methods"},
		},
		{
			name:       "multiple values in one criterion OR together",
			setup:      func(f *Filter) { f.Modes = []string{"online", "hybrid"} },
			wantTitles: []string{"Quantum Error Correction", "Winter Workshop"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := New()
			tt.setup(f)

			got := f.Apply(sampleMeetings(), testNow)
			if len(got) != len(tt.wantTitles) {
				t.Fatalf("got %d meetings, want %d", len(got), len(tt.wantTitles))
			}
			for i, want := range tt.wantTitles {
				if got[i].Title != want {
					t.Errorf("meeting[%d].Title = %q, want %q", i, got[i].Title, want)
				}
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		got, err := ParseDate("2026-03-14")
		if err != nil {
			t.Fatalf("ParseDate() error: %v", err)
		}
		if got == nil || got.Year() != 2026 || got.Month() != time.March || got.Day() != 14 {
			t.Errorf("ParseDate() = %v", got)
		}
	})

	t.Run("empty means unset", func(t *testing.T) {
		got, err := ParseDate("  ")
		if err != nil {
			t.Fatalf("ParseDate() error: %v", err)
		}
		if got != nil {
			t.Errorf("ParseDate() = %v, want nil", got)
		}
	})

	t.Run("invalid format", func(t *testing.T) {
		if _, err := ParseDate("14/03/2026"); err == nil {
			t.Error("expected an error for non-ISO input")
		}
	})
}

func TestParseList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"a,b,c", []string{"a", "b", "c"}},
		{" a , b ", []string{"a", "b"}},
		{"a,,b", []string{"a", "b"}},
		{"", nil},
		{"  ", nil},
	}

	for _, tt := range tests {
		got := ParseList(tt.in)
		if len(got) != len(tt.want) {
			t.Errorf("ParseList(%q) = %v, want %v", tt.in, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("ParseList(%q)[%d] = %q, want %q", tt.in, i, got[i], tt.want[i])
			}
		}
	}
}
