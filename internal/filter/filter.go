// Package filter provides meeting filtering for list views.
//
// Filters narrow tracked meetings by date range, speaker, location, or
// mode, with an upcoming-only switch that drops meetings whose normalized
// date is missing or already past. An empty filter matches everything.
package filter

import (
	"strings"
	"time"

	"github.com/pfrederiksen/seminar-watch/internal/meeting"
)

// Filter represents meeting filtering criteria. String criteria use
// case-insensitive substring matching.
type Filter struct {
	DateFrom *time.Time `json:"date_from,omitempty"`
	DateTo   *time.Time `json:"date_to,omitempty"`

	Speakers  []string `json:"speakers,omitempty"`
	Locations []string `json:"locations,omitempty"`
	Modes     []string `json:"modes,omitempty"`

	// UpcomingOnly keeps only meetings whose normalized date is present
	// and not in the past.
	UpcomingOnly bool `json:"upcoming_only,omitempty"`
}

// New creates an empty filter matching all meetings.
func New() *Filter {
	return &Filter{}
}

// IsEmpty reports whether the filter has any active criteria.
func (f *Filter) IsEmpty() bool {
	return f.DateFrom == nil &&
		f.DateTo == nil &&
		len(f.Speakers) == 0 &&
		len(f.Locations) == 0 &&
		len(f.Modes) == 0 &&
		!f.UpcomingOnly
}

// Matches checks whether a meeting passes all active criteria. Date-range
// criteria only apply to meetings with a normalized date; a meeting with
// unparseable date text passes them (but never passes UpcomingOnly).
func (f *Filter) Matches(m *meeting.Meeting, now time.Time) bool {
	if f.UpcomingOnly && !m.IsUpcoming(now) {
		return false
	}

	if m.StartAt != nil {
		if f.DateFrom != nil && m.StartAt.Before(*f.DateFrom) {
			return false
		}
		if f.DateTo != nil && m.StartAt.After(*f.DateTo) {
			return false
		}
	}

	if len(f.Speakers) > 0 && !containsFold(m.Speaker, f.Speakers) {
		return false
	}
	if len(f.Locations) > 0 && !containsFold(m.Location, f.Locations) {
		return false
	}
	if len(f.Modes) > 0 && !equalsFold(string(m.Mode), f.Modes) {
		return false
	}

	return true
}

// Apply returns the meetings matching all criteria. An empty filter returns
// the input unchanged.
func (f *Filter) Apply(meetings []*meeting.Meeting, now time.Time) []*meeting.Meeting {
	if f.IsEmpty() {
		return meetings
	}
	matched := make([]*meeting.Meeting, 0, len(meetings))
	for _, m := range meetings {
		if f.Matches(m, now) {
			matched = append(matched, m)
		}
	}
	return matched
}

func containsFold(value string, needles []string) bool {
	lowered := strings.ToLower(value)
	for _, n := range needles {
		if strings.Contains(lowered, strings.ToLower(n)) {
			return true
		}
	}
	return false
}

func equalsFold(value string, needles []string) bool {
	for _, n := range needles {
		if strings.EqualFold(value, n) {
			return true
		}
	}
	return false
}
