package notifier

import (
	"github.com/pfrederiksen/seminar-watch/internal/meeting"
)

// Notifier defines the interface for posting meeting announcements.
type Notifier interface {
	// Notify posts announcements for the given meetings
	Notify(meetings []*meeting.Meeting) error
}
