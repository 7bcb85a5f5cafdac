package notifier

import (
	"fmt"

	"github.com/pfrederiksen/seminar-watch/internal/meeting"
)

// DryRunNotifier prints what would be posted without actually posting.
type DryRunNotifier struct{}

// NewDryRunNotifier creates a new dry-run notifier.
func NewDryRunNotifier() *DryRunNotifier {
	return &DryRunNotifier{}
}

// Notify prints the announcements that would be posted.
func (n *DryRunNotifier) Notify(meetings []*meeting.Meeting) error {
	for i, m := range meetings {
		post := formatPost(m)
		fmt.Printf("--- Post %d/%d ---\n", i+1, len(meetings))
		fmt.Println(post)
		fmt.Printf("\n(Length: %d characters)\n\n", len(post))
	}
	return nil
}
