package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pfrederiksen/seminar-watch/internal/meeting"
	"github.com/pfrederiksen/seminar-watch/internal/monitor"
	"github.com/pfrederiksen/seminar-watch/internal/notifier"
	"github.com/pfrederiksen/seminar-watch/internal/store"
)

var (
	summaryFile = flag.String("summary-file", "", "Path to crawl summary JSON file (or read from stdin)")
	dbPath      = flag.String("db", "~/.local/share/seminar-watch/seminar-watch.db", "Path to the SQLite database")
	dryRun      = flag.Bool("dry-run", false, "Print posts without posting")
	maxPosts    = flag.Int("max-posts", 10, "Maximum number of posts")
)

// Reads the JSON summary emitted by `seminar-watch crawl --format json`,
// loads the newly discovered meetings, and announces them.
func main() {
	flag.Parse()

	var reader io.Reader
	if *summaryFile != "" {
		f, err := os.Open(*summaryFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening summary file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		reader = f
	} else {
		reader = os.Stdin
	}

	var summary monitor.Summary
	if err := json.NewDecoder(reader).Decode(&summary); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing JSON: %v\n", err)
		os.Exit(1)
	}

	if summary.New == 0 {
		fmt.Println("No new meetings to announce")
		os.Exit(0)
	}

	st, err := store.Open(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening store: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	// The summary only carries counts per page; announce meetings first
	// seen during this crawl cycle, up to the new-count.
	meetings, err := st.ListMeetings(context.Background(), false, summary.CrawledAt, 0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading meetings: %v\n", err)
		os.Exit(1)
	}

	fresh := make([]*meeting.Meeting, 0, summary.New)
	for _, m := range meetings {
		if m.Version == 1 && !m.FirstSeen.Before(summary.CrawledAt.Add(-time.Hour)) {
			fresh = append(fresh, m)
		}
	}
	if len(fresh) > summary.New {
		fresh = fresh[:summary.New]
	}
	if len(fresh) > *maxPosts {
		fresh = fresh[:*maxPosts]
	}

	if len(fresh) == 0 {
		fmt.Println("No meetings match criteria")
		os.Exit(0)
	}

	var n notifier.Notifier
	if *dryRun {
		n = notifier.NewDryRunNotifier()
		fmt.Printf("DRY RUN MODE - Would announce %d meetings:\n\n", len(fresh))
	} else {
		client, err := notifier.NewTwitterNotifier()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error initializing Twitter client: %v\n", err)
			os.Exit(1)
		}
		n = client
	}

	if err := n.Notify(fresh); err != nil {
		fmt.Fprintf(os.Stderr, "Error posting announcements: %v\n", err)
		os.Exit(1)
	}

	if !*dryRun {
		fmt.Printf("Successfully announced %d meetings\n", len(fresh))
	}
}
