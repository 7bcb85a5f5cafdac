package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/pfrederiksen/seminar-watch/internal/meeting"
	"github.com/pfrederiksen/seminar-watch/internal/monitor"
	"github.com/pfrederiksen/seminar-watch/internal/store"
)

// OutputFormat specifies the output format.
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// MeetingList contains data for the meetings listing output.
type MeetingList struct {
	ListedAt time.Time          `json:"listed_at"`
	ShowAll  bool               `json:"show_all"`
	Count    int                `json:"count"`
	Meetings []*meeting.Meeting `json:"meetings"`
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// WritePages writes the monitored-pages listing.
func WritePages(w io.Writer, pages []*store.Page, format OutputFormat) error {
	if format == FormatJSON {
		return writeJSON(w, pages)
	}

	if len(pages) == 0 {
		fmt.Fprintln(w, "No monitored pages. Add one with: seminar-watch add <url>")
		return nil
	}

	for _, p := range pages {
		fmt.Fprintf(w, "%4d  %s", p.ID, p.URL)
		if p.Kind != "" {
			fmt.Fprintf(w, "  [%s]", p.Kind)
		}
		if p.LastCheckedAt != nil {
			fmt.Fprintf(w, "  checked %s", p.LastCheckedAt.Format("2006-01-02 15:04"))
		}
		if p.LastError != nil {
			fmt.Fprintf(w, "  ERROR: %s", *p.LastError)
		}
		fmt.Fprintln(w)
	}
	return nil
}

// WriteSummary writes a crawl cycle summary.
func WriteSummary(w io.Writer, summary *monitor.Summary, format OutputFormat) error {
	if format == FormatJSON {
		return writeJSON(w, summary)
	}

	fmt.Fprintf(w, "Crawled %d page(s): %d new, %d updated, %d unchanged, %d failed\n",
		summary.Pages, summary.New, summary.Updated, summary.Unchanged, summary.Failed)

	for _, res := range summary.Results {
		switch {
		case res.Skipped:
			fmt.Fprintf(w, "  SKIP %s (crawl already in flight)\n", res.URL)
		case res.Error != "":
			fmt.Fprintf(w, "  FAIL %s: %s\n", res.URL, res.Error)
		default:
			fmt.Fprintf(w, "  OK   %s: %d new, %d updated, %d unchanged\n",
				res.URL, res.New, res.Updated, res.Unchanged)
		}
	}
	return nil
}

// WriteMeetings writes the meetings listing.
func WriteMeetings(w io.Writer, result *MeetingList, format OutputFormat, verbose bool) error {
	if format == FormatJSON {
		return writeJSON(w, result)
	}

	if result.Count == 0 {
		if result.ShowAll {
			fmt.Fprintln(w, "No meetings tracked.")
		} else {
			fmt.Fprintln(w, "No upcoming meetings. Use --all to include past and undated meetings.")
		}
		return nil
	}

	for _, m := range result.Meetings {
		date := "TBD"
		if m.StartAt != nil {
			date = m.StartAt.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s  %s", date, m.Title)
		if m.Speaker != "" {
			fmt.Fprintf(w, " (%s)", m.Speaker)
		}
		fmt.Fprintln(w)

		if verbose {
			if m.Location != "" {
				fmt.Fprintf(w, "    location: %s\n", m.Location)
			}
			if m.Mode != meeting.ModeUnknown {
				fmt.Fprintf(w, "    mode: %s\n", m.Mode)
			}
			if m.OnlineLink != "" {
				fmt.Fprintf(w, "    link: %s\n", m.OnlineLink)
			}
			fmt.Fprintf(w, "    id: %s\n", m.ID)
		}
	}
	fmt.Fprintf(w, "\n%d meeting(s)\n", result.Count)
	return nil
}

// historyOutput pairs a snapshot with its decoded prior state for JSON output.
type historyOutput struct {
	Meeting   *meeting.Meeting    `json:"meeting"`
	Snapshots []*snapshotWithPrev `json:"snapshots"`
}

type snapshotWithPrev struct {
	RecordedAt time.Time        `json:"recorded_at"`
	Prior      *meeting.Meeting `json:"prior"`
}

// WriteHistory writes a meeting's change history, newest snapshot first.
func WriteHistory(w io.Writer, m *meeting.Meeting, snapshots []*meeting.Snapshot, format OutputFormat) error {
	decoded := make([]*snapshotWithPrev, 0, len(snapshots))
	for _, s := range snapshots {
		prior, err := s.Meeting()
		if err != nil {
			return fmt.Errorf("decoding snapshot %d: %w", s.ID, err)
		}
		decoded = append(decoded, &snapshotWithPrev{RecordedAt: s.RecordedAt, Prior: prior})
	}

	if format == FormatJSON {
		return writeJSON(w, &historyOutput{Meeting: m, Snapshots: decoded})
	}

	fmt.Fprintf(w, "%s\n", m.Title)
	if m.Speaker != "" {
		fmt.Fprintf(w, "Speaker: %s\n", m.Speaker)
	}
	fmt.Fprintf(w, "Updated %d time(s)\n", len(decoded))

	for _, s := range decoded {
		fmt.Fprintf(w, "\n--- %s ---\n", s.RecordedAt.Format("2006-01-02 15:04:05"))
		fmt.Fprintf(w, "  time: %s\n", orTBD(s.Prior.StartText))
		fmt.Fprintf(w, "  location: %s\n", orTBD(s.Prior.Location))
		if s.Prior.Abstract != "" {
			fmt.Fprintf(w, "  abstract: %s\n", truncate(s.Prior.Abstract, 120))
		}
	}
	return nil
}

func orTBD(s string) string {
	if s == "" {
		return "TBD"
	}
	return s
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
