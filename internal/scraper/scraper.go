package scraper

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pfrederiksen/seminar-watch/internal/meeting"
)

// PageKind distinguishes pages carrying many meetings from single-meeting pages.
type PageKind string

const (
	KindListing PageKind = "listing"
	KindDetail  PageKind = "detail"
)

// Listing pages link out to individual announcements; a page needs at least
// this many keyword-anchored links before we treat it as a listing.
const listingLinkThreshold = 2

// maxDetailLinks caps how many linked announcements one listing crawl follows.
const maxDetailLinks = 20

// seminarKeywords anchor both listing detection and link selection. CJK
// terms cover the university sites the original deployments monitor.
var seminarKeywords = []string{
	"seminar", "colloquium", "workshop", "conference", "lecture", "talk",
	"讲座", "报告", "学术", "论坛", "研讨",
}

// ExtractionError is a page-level failure to locate any candidate. It is
// non-fatal: the page simply yields zero meetings this cycle.
type ExtractionError struct {
	URL    string
	Reason string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extracting %s: %s", e.URL, e.Reason)
}

// Parse builds a goquery document from raw page content. html.Parse is
// lenient, so an error here means the content is not HTML at all.
func Parse(content string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(content))
}

// DetectKind classifies a page as listing or detail by counting
// keyword-anchored links. Pages with fewer than two are treated as a detail
// page describing a single meeting.
func DetectKind(doc *goquery.Document, baseURL string) PageKind {
	if len(candidateLinks(doc, baseURL)) >= listingLinkThreshold {
		return KindListing
	}
	return KindDetail
}

// ExtractListing produces one candidate per keyword-anchored block on a
// listing page. Each candidate carries the linked detail URL for deep
// extraction plus whatever fields the surrounding block text exposes.
func ExtractListing(doc *goquery.Document, pageURL, baseURL string) []*meeting.Candidate {
	links := candidateLinks(doc, baseURL)
	if len(links) > maxDetailLinks {
		links = links[:maxDetailLinks]
	}

	candidates := make([]*meeting.Candidate, 0, len(links))
	for i := range links {
		l := links[i]
		c := &meeting.Candidate{
			PageURL:   pageURL,
			SourceURL: l.href,
			DetailURL: &l.href,
		}
		if l.text != "" {
			c.Title = &l.text
		}
		if start := findDateText(l.blockText); start != "" {
			c.StartText = &start
		}
		candidates = append(candidates, c)
	}
	return candidates
}

// ExtractDetail extracts exactly one candidate from a detail page by running
// the ordered rule list. It fails with an ExtractionError only when no rule
// finds anything at all.
func ExtractDetail(doc *goquery.Document, pageURL, sourceURL string) (*meeting.Candidate, error) {
	p := newPage(doc)
	c := &meeting.Candidate{
		PageURL:   pageURL,
		SourceURL: sourceURL,
	}

	found := false
	for _, rule := range detailRules {
		if value := rule.Extract(p); value != nil {
			rule.Assign(c, value)
			found = true
		}
	}

	if !found {
		return nil, &ExtractionError{URL: sourceURL, Reason: "no recognizable meeting fields"}
	}
	return c, nil
}

// link is a keyword-anchored anchor found on a listing page.
type link struct {
	href      string
	text      string
	blockText string
}

// candidateLinks collects absolute, deduplicated links whose anchor text
// matches a seminar keyword.
func candidateLinks(doc *goquery.Document, baseURL string) []link {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}

	seen := make(map[string]bool)
	var links []link

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		text := meeting.NormalizeText(sel.Text())
		if text == "" || !matchesKeyword(text) {
			return
		}

		href := strings.TrimSpace(sel.AttrOr("href", ""))
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "mailto:") {
			return
		}

		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref)
		if abs.Scheme != "http" && abs.Scheme != "https" {
			return
		}
		absStr := abs.String()
		if seen[absStr] {
			return
		}
		seen[absStr] = true

		links = append(links, link{
			href:      absStr,
			text:      text,
			blockText: meeting.NormalizeText(sel.Parent().Text()),
		})
	})

	return links
}

func matchesKeyword(text string) bool {
	lowered := strings.ToLower(text)
	for _, kw := range seminarKeywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}
