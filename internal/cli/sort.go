package cli

import (
	"sort"
	"strings"

	"github.com/pfrederiksen/seminar-watch/internal/meeting"
)

// SortOrder represents the available sorting options.
type SortOrder string

const (
	SortByDate    SortOrder = "date"
	SortByTitle   SortOrder = "title"
	SortBySpeaker SortOrder = "speaker"
)

// sortMeetings sorts meetings in place based on the specified sort order.
func sortMeetings(meetings []*meeting.Meeting, order SortOrder) {
	switch order {
	case SortByTitle:
		sort.Slice(meetings, func(i, j int) bool {
			ti, tj := strings.ToLower(meetings[i].Title), strings.ToLower(meetings[j].Title)
			if ti != tj {
				return ti < tj
			}
			return compareByDate(meetings[i], meetings[j])
		})
	case SortBySpeaker:
		sort.Slice(meetings, func(i, j int) bool {
			si, sj := strings.ToLower(meetings[i].Speaker), strings.ToLower(meetings[j].Speaker)
			if si != sj {
				return si < sj
			}
			return compareByDate(meetings[i], meetings[j])
		})
	default:
		sort.Slice(meetings, func(i, j int) bool {
			return compareByDate(meetings[i], meetings[j])
		})
	}
}

// compareByDate orders meetings by normalized date, soonest first. Meetings
// without a parseable date sort last.
func compareByDate(i, j *meeting.Meeting) bool {
	switch {
	case i.StartAt == nil && j.StartAt == nil:
		return i.Title < j.Title
	case i.StartAt == nil:
		return false
	case j.StartAt == nil:
		return true
	default:
		return i.StartAt.Before(*j.StartAt)
	}
}
