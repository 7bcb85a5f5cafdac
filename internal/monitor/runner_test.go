package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pfrederiksen/seminar-watch/internal/enrich"
	"github.com/pfrederiksen/seminar-watch/internal/meeting"
	"github.com/pfrederiksen/seminar-watch/internal/store"
)

// fakeFetcher serves canned bodies by URL and records which URLs were hit.
type fakeFetcher struct {
	mu      sync.Mutex
	pages   map[string]string
	errs    map[string]error
	fetched []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (string, string, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, url)
	f.mu.Unlock()

	if err, ok := f.errs[url]; ok {
		return "", "", err
	}
	body, ok := f.pages[url]
	if !ok {
		return "", "", errors.New("unexpected fetch: " + url)
	}
	return body, url, nil
}

// fakeResolver returns a fixed intro for every speaker.
type fakeResolver struct {
	mu      sync.Mutex
	intro   *enrich.Intro
	err     error
	lookups []string
}

func (r *fakeResolver) Lookup(ctx context.Context, speaker, topic string) (*enrich.Intro, error) {
	r.mu.Lock()
	r.lookups = append(r.lookups, speaker)
	r.mu.Unlock()
	return r.intro, r.err
}

const detailPage = `<html><body>
<h1>Seminar: Spectral Methods</h1>
<p>Speaker: Dr. Wei Chen</p>
<p>Date: 2026-07-01 14:00</p>
<p>Location: Room 204</p>
<p>Abstract: We study spectra.</p>
</body></html>`

const (
	talkOneURL = "https://math.example.edu/talks/1"
	talkTwoURL = "https://math.example.edu/talks/2"
)

const listingPage = `<html><body>
<ul>
<li><a href="https://math.example.edu/talks/1">Seminar: Spectral Methods</a> 2026-07-01</li>
<li><a href="https://math.example.edu/talks/2">Colloquium: Quantum Errors</a> 2026-07-08</li>
</ul>
</body></html>`

const talkOne = `<html><body>
<h1>Seminar: Spectral Methods</h1>
<p>Speaker: Dr. Wei Chen</p>
<p>Date: 2026-07-01 14:00</p>
<p>Location: Room 204</p>
</body></html>`

const talkTwo = `<html><body>
<h1>Colloquium: Quantum Errors</h1>
<p>Speaker: Dr. Jane Park</p>
<p>Date: 2026-07-08 15:00</p>
<p>Location: Hall B</p>
</body></html>`

func testStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func fixedClock() time.Time {
	return time.Date(2026, time.June, 15, 9, 0, 0, 0, time.UTC)
}

func TestRunner_CrawlPage_Detail(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	pageURL := "https://math.example.edu/talks/1"
	page, err := s.CreatePage(ctx, pageURL, fixedClock())
	if err != nil {
		t.Fatalf("CreatePage() error: %v", err)
	}

	fetcher := &fakeFetcher{pages: map[string]string{pageURL: detailPage}}
	runner := New(fetcher, s, nil, fixedClock, 1)

	result := runner.CrawlPage(ctx, page)

	if result.Err != nil {
		t.Fatalf("CrawlPage() error: %v", result.Err)
	}
	if result.New != 1 || result.Updated != 0 || result.Unchanged != 0 {
		t.Errorf("result = %+v, want 1 new", result)
	}

	meetings, err := s.ListMeetings(ctx, false, fixedClock(), 0)
	if err != nil {
		t.Fatalf("ListMeetings() error: %v", err)
	}
	if len(meetings) != 1 {
		t.Fatalf("expected 1 tracked meeting, got %d", len(meetings))
	}
	m := meetings[0]
	if m.Speaker != "Dr. Wei Chen" {
		t.Errorf("Speaker = %q", m.Speaker)
	}
	if m.StartAt == nil {
		t.Error("expected the start text to normalize")
	}

	// Re-crawling the same content leaves the record unchanged.
	second := runner.CrawlPage(ctx, page)
	if second.Unchanged != 1 || second.New != 0 {
		t.Errorf("second crawl = %+v, want 1 unchanged", second)
	}

	// The page row records the outcome.
	checked, err := s.PageByID(ctx, page.ID)
	if err != nil {
		t.Fatalf("PageByID() error: %v", err)
	}
	if checked.Kind != "detail" {
		t.Errorf("Kind = %q, want detail", checked.Kind)
	}
	if checked.LastCheckedAt == nil {
		t.Error("LastCheckedAt should be set")
	}
	if checked.LastError != nil {
		t.Errorf("LastError = %v, want nil", checked.LastError)
	}
}

func TestRunner_CrawlPage_ListingDeepFetch(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	pageURL := "https://math.example.edu/events"
	page, err := s.CreatePage(ctx, pageURL, fixedClock())
	if err != nil {
		t.Fatalf("CreatePage() error: %v", err)
	}

	fetcher := &fakeFetcher{pages: map[string]string{
		pageURL:    listingPage,
		talkOneURL: talkOne,
		talkTwoURL: talkTwo,
	}}
	runner := New(fetcher, s, nil, fixedClock, 1)

	result := runner.CrawlPage(ctx, page)

	if result.Kind != "listing" {
		t.Errorf("Kind = %v, want listing", result.Kind)
	}
	if result.New != 2 {
		t.Fatalf("New = %d, want 2", result.New)
	}

	meetings, err := s.ListMeetings(ctx, false, fixedClock(), 0)
	if err != nil {
		t.Fatalf("ListMeetings() error: %v", err)
	}
	if len(meetings) != 2 {
		t.Fatalf("expected 2 meetings, got %d", len(meetings))
	}

	// Deep extraction filled fields the listing block does not carry.
	var foundDeep bool
	for _, m := range meetings {
		if m.Speaker == "Dr. Jane Park" && m.Location == "Hall B" {
			foundDeep = true
		}
		if m.DetailURL == "" {
			t.Error("each meeting should keep its detail link")
		}
	}
	if !foundDeep {
		t.Error("expected fields from the linked detail page")
	}
}

func TestRunner_CrawlPage_DetailFetchDegradesToListingFields(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	pageURL := "https://math.example.edu/events"
	page, err := s.CreatePage(ctx, pageURL, fixedClock())
	if err != nil {
		t.Fatalf("CreatePage() error: %v", err)
	}

	fetcher := &fakeFetcher{
		pages: map[string]string{
			pageURL:    listingPage,
			talkOneURL: talkOne,
		},
		errs: map[string]error{
			talkTwoURL: errors.New("timeout"),
		},
	}
	runner := New(fetcher, s, nil, fixedClock, 1)

	result := runner.CrawlPage(ctx, page)

	if result.New != 2 {
		t.Fatalf("New = %d, want both meetings tracked despite the failed detail fetch", result.New)
	}

	meetings, _ := s.ListMeetings(ctx, false, fixedClock(), 0)
	var shallow *meeting.Meeting
	for _, m := range meetings {
		if m.Title == "Colloquium: Quantum Errors" {
			shallow = m
		}
	}
	if shallow == nil {
		t.Fatal("expected the shallow candidate to be tracked")
	}
	if shallow.StartAt == nil {
		t.Error("the listing block date should still normalize")
	}
	if shallow.Speaker != "" {
		t.Errorf("Speaker = %q, the failed detail page cannot have contributed fields", shallow.Speaker)
	}
}

func TestRunner_CrawlPage_FetchFailureRecorded(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	pageURL := "https://broken.example.edu/seminars"
	page, err := s.CreatePage(ctx, pageURL, fixedClock())
	if err != nil {
		t.Fatalf("CreatePage() error: %v", err)
	}

	fetcher := &fakeFetcher{errs: map[string]error{pageURL: errors.New("connection refused")}}
	runner := New(fetcher, s, nil, fixedClock, 1)

	result := runner.CrawlPage(ctx, page)

	if result.Err == nil {
		t.Fatal("expected the fetch error on the result")
	}
	if result.Error == "" {
		t.Error("Error string should be set for JSON output")
	}

	checked, _ := s.PageByID(ctx, page.ID)
	if checked.LastError == nil {
		t.Error("the page row should record the crawl error")
	}
	if checked.LastCheckedAt == nil {
		t.Error("a failed crawl still counts as checked")
	}
}

func TestRunner_CrawlAll(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	good := "https://math.example.edu/talks/1"
	bad := "https://broken.example.edu/seminars"
	for _, url := range []string{good, bad} {
		if _, err := s.CreatePage(ctx, url, fixedClock()); err != nil {
			t.Fatalf("CreatePage() error: %v", err)
		}
	}

	fetcher := &fakeFetcher{
		pages: map[string]string{good: detailPage},
		errs:  map[string]error{bad: errors.New("unreachable")},
	}
	runner := New(fetcher, s, nil, fixedClock, 2)

	summary, err := runner.CrawlAll(ctx)
	if err != nil {
		t.Fatalf("CrawlAll() error: %v", err)
	}

	if summary.Pages != 2 {
		t.Errorf("Pages = %d, want 2", summary.Pages)
	}
	if summary.New != 1 {
		t.Errorf("New = %d, want 1", summary.New)
	}
	if len(summary.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(summary.Results))
	}

	// One page failed, one succeeded; a bad page never blocks the others.
	var failures int
	for _, res := range summary.Results {
		if res.Error != "" {
			failures++
		}
	}
	if failures != 1 {
		t.Errorf("failed results = %d, want 1", failures)
	}
	if !summary.CrawledAt.Equal(fixedClock()) {
		t.Errorf("CrawledAt = %v, want injected clock value", summary.CrawledAt)
	}
}

func TestRunner_Enrichment(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	pageURL := "https://math.example.edu/talks/1"
	page, err := s.CreatePage(ctx, pageURL, fixedClock())
	if err != nil {
		t.Fatalf("CreatePage() error: %v", err)
	}

	t.Run("new meeting gets an intro", func(t *testing.T) {
		fetcher := &fakeFetcher{pages: map[string]string{pageURL: detailPage}}
		resolver := &fakeResolver{intro: &enrich.Intro{
			Snippet: "Dr. Wei Chen is a professor of mathematics.",
			URL:     "https://example.org/bio",
		}}
		runner := New(fetcher, s, resolver, fixedClock, 1)

		result := runner.CrawlPage(ctx, page)
		if result.New != 1 {
			t.Fatalf("New = %d, want 1", result.New)
		}
		if len(resolver.lookups) != 1 || resolver.lookups[0] != "Dr. Wei Chen" {
			t.Errorf("lookups = %v", resolver.lookups)
		}

		meetings, _ := s.ListMeetings(ctx, false, fixedClock(), 0)
		if meetings[0].SpeakerIntro != "Dr. Wei Chen is a professor of mathematics." {
			t.Errorf("SpeakerIntro = %q", meetings[0].SpeakerIntro)
		}
		if meetings[0].SpeakerIntroURL != "https://example.org/bio" {
			t.Errorf("SpeakerIntroURL = %q", meetings[0].SpeakerIntroURL)
		}
	})

	t.Run("lookup failure does not fail the crawl", func(t *testing.T) {
		s2 := testStore(t)
		page2, err := s2.CreatePage(ctx, pageURL, fixedClock())
		if err != nil {
			t.Fatalf("CreatePage() error: %v", err)
		}

		fetcher := &fakeFetcher{pages: map[string]string{pageURL: detailPage}}
		resolver := &fakeResolver{err: errors.New("rate limited")}
		runner := New(fetcher, s2, resolver, fixedClock, 1)

		result := runner.CrawlPage(ctx, page2)
		if result.Err != nil {
			t.Fatalf("CrawlPage() error: %v", result.Err)
		}
		if result.New != 1 {
			t.Errorf("New = %d, the meeting must be tracked without enrichment", result.New)
		}

		meetings, _ := s2.ListMeetings(ctx, false, fixedClock(), 0)
		if meetings[0].SpeakerIntro != "" {
			t.Errorf("SpeakerIntro = %q, want empty after a failed lookup", meetings[0].SpeakerIntro)
		}
	})

	t.Run("stored intros are not re-resolved", func(t *testing.T) {
		fetcher := &fakeFetcher{pages: map[string]string{pageURL: detailPage}}
		resolver := &fakeResolver{}
		runner := New(fetcher, s, resolver, fixedClock, 1)

		result := runner.CrawlPage(ctx, page)
		if result.Unchanged != 1 {
			t.Fatalf("Unchanged = %d, want 1", result.Unchanged)
		}
		if len(resolver.lookups) != 0 {
			t.Errorf("lookups = %v, a stored intro must not trigger enrichment", resolver.lookups)
		}
	})

	t.Run("empty intro is re-attempted on a later cycle", func(t *testing.T) {
		s2 := testStore(t)
		page2, err := s2.CreatePage(ctx, pageURL, fixedClock())
		if err != nil {
			t.Fatalf("CreatePage() error: %v", err)
		}

		fetcher := &fakeFetcher{pages: map[string]string{pageURL: detailPage}}
		resolver := &fakeResolver{err: errors.New("rate limited")}
		runner := New(fetcher, s2, resolver, fixedClock, 1)

		if result := runner.CrawlPage(ctx, page2); result.New != 1 {
			t.Fatalf("New = %d, want 1", result.New)
		}
		if len(resolver.lookups) != 1 {
			t.Fatalf("lookups = %v, want one failed attempt", resolver.lookups)
		}

		// Identical content classifies unchanged, but the intro slot is
		// still empty, so the lookup runs again and resolves this time.
		resolver.err = nil
		resolver.intro = &enrich.Intro{
			Snippet: "Dr. Wei Chen is a professor of mathematics.",
			URL:     "https://example.org/bio",
		}

		result := runner.CrawlPage(ctx, page2)
		if result.Unchanged != 1 {
			t.Fatalf("Unchanged = %d, want 1", result.Unchanged)
		}
		if len(resolver.lookups) != 2 {
			t.Errorf("lookups = %v, an empty intro must be re-attempted", resolver.lookups)
		}

		meetings, _ := s2.ListMeetings(ctx, false, fixedClock(), 0)
		if meetings[0].SpeakerIntro != "Dr. Wei Chen is a professor of mathematics." {
			t.Errorf("SpeakerIntro = %q, want the second-cycle result", meetings[0].SpeakerIntro)
		}
	})
}

func TestRunner_InflightGuard(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	page, err := s.CreatePage(ctx, "https://math.example.edu/talks/1", fixedClock())
	if err != nil {
		t.Fatalf("CreatePage() error: %v", err)
	}

	runner := New(&fakeFetcher{}, s, nil, fixedClock, 1)

	if !runner.tryAcquire(page.ID) {
		t.Fatal("first acquire should succeed")
	}

	result := runner.CrawlPage(ctx, page)
	if !result.Skipped {
		t.Error("a page already in flight should be skipped")
	}

	runner.release(page.ID)
	if !runner.tryAcquire(page.ID) {
		t.Error("acquire should succeed after release")
	}
}
