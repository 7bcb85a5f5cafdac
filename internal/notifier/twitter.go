package notifier

import (
	"fmt"
	"os"
	"time"

	"github.com/dghubble/go-twitter/twitter" //nolint:staticcheck // Using stable v1.1 API
	"github.com/dghubble/oauth1"
	"github.com/pfrederiksen/seminar-watch/internal/meeting"
)

// TwitterNotifier posts meeting announcements to Twitter.
type TwitterNotifier struct {
	client *twitter.Client
}

// NewTwitterNotifier creates a new Twitter notifier using environment variables
// Required environment variables:
// - TWITTER_API_KEY
// - TWITTER_API_SECRET
// - TWITTER_ACCESS_TOKEN
// - TWITTER_ACCESS_SECRET
func NewTwitterNotifier() (*TwitterNotifier, error) {
	apiKey := os.Getenv("TWITTER_API_KEY")
	apiSecret := os.Getenv("TWITTER_API_SECRET")
	accessToken := os.Getenv("TWITTER_ACCESS_TOKEN")
	accessSecret := os.Getenv("TWITTER_ACCESS_SECRET")

	if apiKey == "" || apiSecret == "" || accessToken == "" || accessSecret == "" {
		return nil, fmt.Errorf("missing required Twitter credentials in environment variables")
	}

	config := oauth1.NewConfig(apiKey, apiSecret)
	token := oauth1.NewToken(accessToken, accessSecret)
	httpClient := config.Client(oauth1.NoContext, token)
	client := twitter.NewClient(httpClient)

	return &TwitterNotifier{client: client}, nil
}

// Notify posts one announcement per meeting.
func (n *TwitterNotifier) Notify(meetings []*meeting.Meeting) error {
	for i, m := range meetings {
		post := formatPost(m)

		_, _, err := n.client.Statuses.Update(post, nil)
		if err != nil {
			return fmt.Errorf("failed to post announcement for meeting %s: %w", m.ID, err)
		}

		// Rate limiting: wait between posts
		if i < len(meetings)-1 {
			time.Sleep(2 * time.Second)
		}
	}

	return nil
}

// formatPost formats a meeting as an announcement post.
func formatPost(m *meeting.Meeting) string {
	post := "New seminar: " + m.Title + "\n"

	if m.Speaker != "" {
		post += fmt.Sprintf("Speaker: %s\n", m.Speaker)
	}
	if m.StartText != "" {
		post += fmt.Sprintf("Time: %s\n", m.StartText)
	}
	if m.Location != "" {
		post += fmt.Sprintf("Location: %s\n", m.Location)
	}

	link := m.OnlineLink
	if link == "" {
		link = m.SourceURL
	}
	if link != "" {
		post += "\n" + link
	}

	// Twitter limit is 280 characters
	if len(post) > 280 {
		post = post[:277] + "..."
	}

	return post
}
