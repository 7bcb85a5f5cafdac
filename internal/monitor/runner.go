package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pfrederiksen/seminar-watch/internal/enrich"
	"github.com/pfrederiksen/seminar-watch/internal/logger"
	"github.com/pfrederiksen/seminar-watch/internal/meeting"
	"github.com/pfrederiksen/seminar-watch/internal/scraper"
	"github.com/pfrederiksen/seminar-watch/internal/store"
)

const defaultWorkers = 4

// Fetcher retrieves raw page content for a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (body, finalURL string, err error)
}

// Resolver looks up speaker introductions. Implementations must treat all
// failures as non-fatal; the runner swallows any error it returns.
type Resolver interface {
	Lookup(ctx context.Context, speaker, topic string) (*enrich.Intro, error)
}

// Runner drives the fetch → extract → normalize → classify pipeline.
type Runner struct {
	fetcher  Fetcher
	store    *store.Store
	resolver Resolver // nil disables enrichment
	clock    func() time.Time
	workers  int

	mu       sync.Mutex
	inflight map[int64]bool
}

// New creates a Runner. A nil clock defaults to time.Now; workers <= 0
// defaults to a small bounded pool.
func New(fetcher Fetcher, st *store.Store, resolver Resolver, clock func() time.Time, workers int) *Runner {
	if clock == nil {
		clock = time.Now
	}
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Runner{
		fetcher:  fetcher,
		store:    st,
		resolver: resolver,
		clock:    clock,
		workers:  workers,
		inflight: make(map[int64]bool),
	}
}

// PageResult reports one page's crawl outcome.
type PageResult struct {
	PageID    int64            `json:"page_id"`
	URL       string           `json:"url"`
	Kind      scraper.PageKind `json:"kind,omitempty"`
	New       int              `json:"new"`
	Updated   int              `json:"updated"`
	Unchanged int              `json:"unchanged"`
	Failed    int              `json:"failed"`
	Skipped   bool             `json:"skipped,omitempty"` // already being crawled
	Err       error            `json:"-"`
	Error     string           `json:"error,omitempty"`
}

// Summary aggregates a full crawl cycle.
type Summary struct {
	CrawledAt time.Time     `json:"crawled_at"`
	Pages     int           `json:"pages"`
	New       int           `json:"new"`
	Updated   int           `json:"updated"`
	Unchanged int           `json:"unchanged"`
	Failed    int           `json:"failed"`
	Results   []*PageResult `json:"results"`
}

// CrawlAll processes every monitored page through the bounded worker pool.
// Page order in the summary matches the store listing; processing order is
// not guaranteed.
func (r *Runner) CrawlAll(ctx context.Context) (*Summary, error) {
	pages, err := r.store.ListPages(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]*PageResult, len(pages))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < r.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = r.CrawlPage(ctx, pages[i])
			}
		}()
	}
	for i := range pages {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	summary := &Summary{
		CrawledAt: r.clock().UTC(),
		Pages:     len(pages),
		Results:   results,
	}
	for _, res := range results {
		summary.New += res.New
		summary.Updated += res.Updated
		summary.Unchanged += res.Unchanged
		summary.Failed += res.Failed
	}

	logger.Info("crawl cycle finished", logger.Fields{
		"pages":     summary.Pages,
		"new":       summary.New,
		"updated":   summary.Updated,
		"unchanged": summary.Unchanged,
		"failed":    summary.Failed,
	})
	return summary, nil
}

// CrawlPage runs the pipeline for one page. Every failure mode is recorded
// on the result and on the page row; nothing propagates as a panic or
// cross-page error.
func (r *Runner) CrawlPage(ctx context.Context, page *store.Page) *PageResult {
	result := &PageResult{PageID: page.ID, URL: page.URL}

	if !r.tryAcquire(page.ID) {
		result.Skipped = true
		logger.Debug("page crawl already in flight", logger.Fields{"url": page.URL})
		return result
	}
	defer r.release(page.ID)

	started := r.clock()
	defer func() {
		logger.RecordTiming("crawl.page", time.Since(started))
	}()

	now := r.clock()
	body, finalURL, err := r.fetcher.Fetch(ctx, page.URL)
	if err != nil {
		r.finishPage(ctx, page, result, "", err)
		logger.IncrCounter("crawl.pages.failed")
		return result
	}

	doc, err := scraper.Parse(body)
	if err != nil {
		r.finishPage(ctx, page, result, "", &scraper.ExtractionError{URL: page.URL, Reason: err.Error()})
		logger.IncrCounter("crawl.pages.failed")
		return result
	}

	kind := scraper.DetectKind(doc, finalURL)
	result.Kind = kind

	var candidates []*meeting.Candidate
	switch kind {
	case scraper.KindListing:
		candidates = r.listingCandidates(ctx, doc, page.URL, finalURL)
	default:
		cand, extractErr := scraper.ExtractDetail(doc, page.URL, finalURL)
		if extractErr != nil {
			r.finishPage(ctx, page, result, string(kind), extractErr)
			logger.IncrCounter("crawl.pages.failed")
			return result
		}
		candidates = []*meeting.Candidate{cand}
	}

	var enrichQueue []*meeting.Meeting
	for _, cand := range candidates {
		applied, applyErr := r.applyCandidate(ctx, cand, now)
		if applyErr != nil {
			result.Failed++
			logger.Warn("candidate failed", logger.Fields{
				"page": page.URL, "source": cand.SourceURL,
			}, applyErr)
			continue
		}

		switch applied.Classification {
		case meeting.ClassNew:
			result.New++
			enrichQueue = append(enrichQueue, applied.Meeting)
		case meeting.ClassUpdated:
			result.Updated++
			enrichQueue = append(enrichQueue, applied.Meeting)
		default:
			result.Unchanged++
			// A lookup that failed on an earlier cycle left the intro
			// empty; keep re-attempting until one resolves.
			if applied.Meeting.SpeakerIntro == "" {
				enrichQueue = append(enrichQueue, applied.Meeting)
			}
		}
	}

	r.finishPage(ctx, page, result, string(kind), nil)

	// Enrichment runs after classification is complete so its outcome can
	// never affect what was persisted above.
	r.enrichMeetings(ctx, enrichQueue)

	logger.Info("page crawled", logger.Fields{
		"url":       page.URL,
		"kind":      string(kind),
		"new":       result.New,
		"updated":   result.Updated,
		"unchanged": result.Unchanged,
		"failed":    result.Failed,
	})
	return result
}

// listingCandidates extracts the listing blocks and deep-fetches each
// linked detail page. A failed detail fetch or extraction degrades to the
// shallow listing candidate rather than dropping the meeting.
func (r *Runner) listingCandidates(ctx context.Context, doc *goquery.Document, pageURL, finalURL string) []*meeting.Candidate {
	shallow := scraper.ExtractListing(doc, pageURL, finalURL)

	candidates := make([]*meeting.Candidate, 0, len(shallow))
	for _, cand := range shallow {
		if cand.DetailURL == nil {
			candidates = append(candidates, cand)
			continue
		}

		detailBody, detailFinal, err := r.fetcher.Fetch(ctx, *cand.DetailURL)
		if err != nil {
			logger.Debug("detail fetch failed, using listing fields", logger.Fields{
				"url": *cand.DetailURL, "error": err.Error(),
			})
			candidates = append(candidates, cand)
			continue
		}

		detailDoc, err := scraper.Parse(detailBody)
		if err != nil {
			candidates = append(candidates, cand)
			continue
		}

		deep, err := scraper.ExtractDetail(detailDoc, pageURL, detailFinal)
		if err != nil {
			candidates = append(candidates, cand)
			continue
		}

		// Keep the listing's link as the detail URL and fall back to the
		// anchor text when the detail page exposes no usable title.
		deep.DetailURL = cand.DetailURL
		if deep.Title == nil {
			deep.Title = cand.Title
		}
		if deep.StartText == nil {
			deep.StartText = cand.StartText
		}
		candidates = append(candidates, deep)
	}
	return candidates
}

func (r *Runner) applyCandidate(ctx context.Context, cand *meeting.Candidate, now time.Time) (*store.ApplyResult, error) {
	if cand.StartText != nil {
		if start, ok := meeting.ParseStart(*cand.StartText, now); ok {
			cand.StartAt = &start
		}
	}
	return r.store.Apply(ctx, cand, now)
}

// enrichMeetings resolves speaker intros for meetings whose intro is still
// empty. All failures are swallowed; a stored intro is never replaced.
func (r *Runner) enrichMeetings(ctx context.Context, meetings []*meeting.Meeting) {
	if r.resolver == nil {
		return
	}
	for _, m := range meetings {
		if m.Speaker == "" || m.SpeakerIntro != "" {
			continue
		}
		intro, err := r.resolver.Lookup(ctx, m.Speaker, m.Title)
		if err != nil {
			logger.Debug("speaker lookup failed", logger.Fields{"speaker": m.Speaker, "error": err.Error()})
			continue
		}
		if intro == nil {
			continue
		}
		if err := r.store.SetSpeakerIntro(ctx, m.ID, intro.Snippet, intro.URL); err != nil {
			logger.Warn("storing speaker intro failed", logger.Fields{"meeting": m.ID}, err)
		}
	}
}

// finishPage records the cycle outcome on the page row and the result.
func (r *Runner) finishPage(ctx context.Context, page *store.Page, result *PageResult, kind string, crawlErr error) {
	if crawlErr != nil {
		result.Err = crawlErr
		result.Error = crawlErr.Error()
	}
	if err := r.store.MarkPageChecked(ctx, page.ID, kind, r.clock(), crawlErr); err != nil {
		logger.Error("marking page checked failed", logger.Fields{"url": page.URL}, err)
	}
}

func (r *Runner) tryAcquire(pageID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.inflight[pageID] {
		return false
	}
	r.inflight[pageID] = true
	return true
}

func (r *Runner) release(pageID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.inflight, pageID)
}
