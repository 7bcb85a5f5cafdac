package enrich

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pfrederiksen/seminar-watch/internal/meeting"
)

const (
	defaultSearchURL = "https://duckduckgo.com/html/"
	searchTimeout    = 12 * time.Second
	minSpeakerLen    = 2
)

// Intro is a resolved speaker introduction snippet and its source.
type Intro struct {
	Snippet string `json:"snippet"`
	URL     string `json:"url"`
}

// Client queries the search collaborator for speaker introductions.
type Client struct {
	searchURL  string
	httpClient *http.Client
	cache      *Cache
}

// NewClient creates a Client with the default search endpoint and cache.
func NewClient() *Client {
	return &Client{
		searchURL: defaultSearchURL,
		httpClient: &http.Client{
			Timeout: searchTimeout,
		},
		cache: NewCache(),
	}
}

// NewClientWithSearchURL creates a Client against an alternate endpoint.
// Used by tests to point at a stub server.
func NewClientWithSearchURL(searchURL string) *Client {
	c := NewClient()
	c.searchURL = searchURL
	return c
}

// Cache returns the client's cache.
func (c *Client) Cache() *Cache {
	return c.cache
}

// Lookup resolves a speaker name (with the topic for disambiguation) to an
// introduction snippet. Returns (nil, nil) when the speaker has no usable
// result; a non-nil error indicates the search itself failed. Both misses
// and hits are cached.
func (c *Client) Lookup(ctx context.Context, speaker, topic string) (*Intro, error) {
	speaker = strings.TrimSpace(speaker)
	if len([]rune(speaker)) < minSpeakerLen {
		return nil, nil
	}

	if intro, ok := c.cache.Get(speaker, topic); ok {
		return intro, nil
	}

	intro, err := c.search(ctx, buildQuery(speaker, topic))
	if err != nil {
		return nil, err
	}

	c.cache.Set(speaker, topic, intro)
	return intro, nil
}

// search performs one query against the search collaborator and extracts
// the first result's snippet and link.
func (c *Client) search(ctx context.Context, query string) (*Intro, error) {
	params := url.Values{}
	params.Set("q", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.searchURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating search request: %w", err)
	}
	req.Header.Set("User-Agent", "seminar-watch/1.0 (github.com/pfrederiksen/seminar-watch)")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("searching: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing search results: %w", err)
	}

	snippet := meeting.NormalizeText(doc.Find(".result__snippet").First().Text())
	link, _ := doc.Find("a.result__a").First().Attr("href")

	if snippet == "" {
		return nil, nil
	}
	return &Intro{Snippet: snippet, URL: link}, nil
}

func buildQuery(speaker, topic string) string {
	if topic != "" {
		return speaker + " " + topic
	}
	return speaker + " 简介"
}
