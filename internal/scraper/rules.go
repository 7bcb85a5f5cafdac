package scraper

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pfrederiksen/seminar-watch/internal/meeting"
)

// Field labels recognized on detail pages, in both the CJK and English
// forms the monitored sites use. Values adjacent to a label feed the
// corresponding candidate field.
var fieldLabels = map[string][]string{
	"start":    {"时间", "Date", "Time"},
	"location": {"地点", "Location", "Venue", "Room"},
	"speaker":  {"主讲人", "报告人", "Speaker", "Presenter"},
	"topic":    {"题目", "主题", "Title", "Topic"},
	"abstract": {"摘要", "Abstract"},
}

var (
	onlineKeywords  = []string{"online", "zoom", "webinar", "teams", "meeting link", "线上", "腾讯会议"}
	offlineKeywords = []string{"offline", "in person", "in-person", "线下", "现场"}
)

var (
	reURL          = regexp.MustCompile(`https?://[^\s)<>"']+`)
	reDateSnippet  = regexp.MustCompile(`20\d{2}[年./\-]\d{1,2}[月./\-]\d{1,2}日?`)
	reTimeSnippet  = regexp.MustCompile(`\d{1,2}:\d{2}`)
	reMonthSnippet = regexp.MustCompile(`(?i)(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\.?\s+\d{1,2}(?:st|nd|rd|th)?(?:,?\s+20\d{2})?`)
	reNumericDate  = regexp.MustCompile(`\d{1,2}[/.]\d{1,2}[/.]\d{2,4}`)
)

// page is the parsed view a rule operates on: the document itself plus the
// flattened text lines label rules scan.
type page struct {
	doc     *goquery.Document
	lines   []string
	joined  string
	lowered string
}

func newPage(doc *goquery.Document) *page {
	lines := buildLines(doc)
	joined := strings.Join(lines, " ")
	return &page{
		doc:     doc,
		lines:   lines,
		joined:  joined,
		lowered: strings.ToLower(joined),
	}
}

// Rule is one typed extraction step: a pure content -> field lookup plus
// the assignment into the candidate. Rules run in order; each is isolated
// so a site quirk can be tested and tuned per rule.
type Rule struct {
	Name    string
	Extract func(*page) *string
	Assign  func(*meeting.Candidate, *string)
}

var detailRules = []Rule{
	{
		Name:    "title",
		Extract: headingTitle,
		Assign:  func(c *meeting.Candidate, v *string) { c.Title = v },
	},
	{
		Name:    "topic",
		Extract: labelRule(fieldLabels["topic"]),
		Assign: func(c *meeting.Candidate, v *string) {
			// The topic label names the talk itself; prefer it over a page
			// heading, which on some sites is the series name.
			c.Title = v
		},
	},
	{
		Name:    "speaker",
		Extract: labelRule(fieldLabels["speaker"]),
		Assign:  func(c *meeting.Candidate, v *string) { c.Speaker = v },
	},
	{
		Name:    "start",
		Extract: startRule,
		Assign:  func(c *meeting.Candidate, v *string) { c.StartText = v },
	},
	{
		Name:    "location",
		Extract: labelRule(fieldLabels["location"]),
		Assign:  func(c *meeting.Candidate, v *string) { c.Location = v },
	},
	{
		Name:    "abstract",
		Extract: abstractRule,
		Assign:  func(c *meeting.Candidate, v *string) { c.Abstract = v },
	},
	{
		Name:    "mode",
		Extract: modeRule,
		Assign:  func(c *meeting.Candidate, v *string) { c.Mode = v },
	},
	{
		Name:    "online_link",
		Extract: linkRule,
		Assign:  func(c *meeting.Candidate, v *string) { c.OnlineLink = v },
	},
}

// buildLines flattens the document into normalized text lines, one per
// block-level element worth scanning for labels.
func buildLines(doc *goquery.Document) []string {
	var lines []string
	doc.Find("p, li, td, tr, div, h1, h2, h3, h4").Each(func(_ int, sel *goquery.Selection) {
		text := meeting.NormalizeText(sel.Text())
		if len(text) < 2 {
			return
		}
		lines = append(lines, text)
	})
	return lines
}

// headingTitle picks the first non-empty h1/h2/h3 text, falling back to the
// document title.
func headingTitle(p *page) *string {
	for _, tag := range []string{"h1", "h2", "h3"} {
		text := meeting.NormalizeText(p.doc.Find(tag).First().Text())
		if text != "" {
			return &text
		}
	}
	if text := meeting.NormalizeText(p.doc.Find("title").First().Text()); text != "" {
		return &text
	}
	return nil
}

// labelRule builds a proximity rule: the first line carrying one of the
// labels yields the text adjacent to it.
func labelRule(labels []string) func(*page) *string {
	return func(p *page) *string {
		for _, line := range p.lines {
			if value := splitLabelValue(line, labels); value != "" {
				return &value
			}
		}
		return nil
	}
}

// startRule finds the meeting time: the time label's adjacent text when
// present, otherwise the first date (and optional clock time) pattern
// anywhere on the page.
func startRule(p *page) *string {
	if v := labelRule(fieldLabels["start"])(p); v != nil {
		return v
	}
	if start := findDateText(p.joined); start != "" {
		return &start
	}
	return nil
}

// abstractRule matches the abstract label and collects text up to the next
// recognized label or section boundary.
func abstractRule(p *page) *string {
	labels := fieldLabels["abstract"]
	for idx, line := range p.lines {
		matched := ""
		for _, label := range labels {
			if strings.Contains(line, label) {
				matched = label
				break
			}
		}
		if matched == "" {
			continue
		}
		if value := splitLabelValue(line, labels); value != "" {
			return &value
		}
		if block := collectBlock(p.lines, idx, matched); block != "" {
			return &block
		}
	}
	return nil
}

// modeRule scans the page for online/offline hints. Both present means a
// hybrid meeting.
func modeRule(p *page) *string {
	online := containsAny(p.lowered, onlineKeywords)
	offline := containsAny(p.lowered, offlineKeywords)

	var mode string
	switch {
	case online && offline:
		mode = string(meeting.ModeHybrid)
	case online:
		mode = string(meeting.ModeOnline)
	case offline:
		mode = string(meeting.ModeInPerson)
	default:
		return nil
	}
	return &mode
}

// linkRule returns the first URL mentioned in the page text.
func linkRule(p *page) *string {
	if match := reURL.FindString(p.joined); match != "" {
		match = strings.TrimRight(match, ".,;")
		return &match
	}
	return nil
}

// splitLabelValue extracts the value adjacent to a label within a line:
// either the text after a colon separator or the remainder after a label
// prefix. Empty means no label matched or the label had no value.
func splitLabelValue(line string, labels []string) string {
	for _, label := range labels {
		if !strings.Contains(line, label) {
			continue
		}
		if idx := strings.IndexAny(line, ":："); idx >= 0 {
			head, tail := line[:idx], line[idx:]
			if strings.Contains(head, label) {
				if value := strings.TrimLeft(tail, ":： "); value != "" {
					return meeting.NormalizeText(value)
				}
			}
		}
		if strings.HasPrefix(line, label) {
			if value := strings.TrimLeft(line[len(label):], ":： "); value != "" {
				return meeting.NormalizeText(value)
			}
		}
	}
	return ""
}

// isLabelLine reports whether the line begins a new labeled section; it
// bounds abstract block collection.
func isLabelLine(line string) bool {
	lowered := strings.ToLower(line)
	for _, labels := range fieldLabels {
		for _, label := range labels {
			labelLower := strings.ToLower(label)
			if strings.HasPrefix(lowered, labelLower) ||
				strings.Contains(lowered, labelLower+":") ||
				strings.Contains(lowered, labelLower+"：") {
				return true
			}
		}
	}
	return false
}

// collectBlock gathers the text following a label line until the next
// labeled line.
func collectBlock(lines []string, start int, label string) string {
	var collected []string

	first := lines[start]
	if idx := strings.Index(first, label); idx >= 0 {
		remainder := strings.TrimLeft(first[idx+len(label):], ":： ")
		if remainder != "" {
			collected = append(collected, remainder)
		}
	}

	for _, line := range lines[start+1:] {
		if isLabelLine(line) {
			break
		}
		collected = append(collected, line)
	}

	return meeting.NormalizeText(strings.Join(collected, " "))
}

// findDateText pulls the first date-looking snippet out of free text,
// appending an adjacent clock time when one exists. Used both by the start
// rule fallback and by listing block extraction.
func findDateText(text string) string {
	date := reDateSnippet.FindString(text)
	if date == "" {
		date = reMonthSnippet.FindString(text)
	}
	if date == "" {
		date = reNumericDate.FindString(text)
	}
	if date == "" {
		return ""
	}
	if clock := reTimeSnippet.FindString(text); clock != "" {
		return date + " " + clock
	}
	return date
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
