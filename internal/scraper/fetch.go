package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

const (
	UserAgent      = "seminar-watch/1.0 (github.com/pfrederiksen/seminar-watch)"
	DefaultTimeout = 15 * time.Second
	maxBodyBytes   = 4 << 20 // 4 MiB, seminar pages are small
)

// FetchErrorKind classifies fetch failures.
type FetchErrorKind string

const (
	FetchTimeout FetchErrorKind = "timeout"
	FetchStatus  FetchErrorKind = "http_status"
	FetchNetwork FetchErrorKind = "network"
)

// FetchError is a typed failure retrieving a monitored page.
type FetchError struct {
	Kind   FetchErrorKind
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Kind == FetchStatus {
		return fmt.Sprintf("fetching %s: unexpected status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetching %s: %s: %v", e.URL, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Fetcher retrieves raw page content for a URL.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a Fetcher with the given per-request timeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Fetcher{
		client: &http.Client{Timeout: timeout},
	}
}

// Fetch retrieves the page at url and returns its body plus the final URL
// after redirects. All failures come back as *FetchError.
func (f *Fetcher) Fetch(ctx context.Context, url string) (body, finalURL string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", "", &FetchError{Kind: FetchNetwork, URL: url, Err: err}
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", "", &FetchError{Kind: classifyFetchErr(err), URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", &FetchError{Kind: FetchStatus, URL: url, Status: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", "", &FetchError{Kind: classifyFetchErr(err), URL: url, Err: err}
	}

	return string(data), resp.Request.URL.String(), nil
}

func classifyFetchErr(err error) FetchErrorKind {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return FetchTimeout
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return FetchTimeout
	}
	return FetchNetwork
}
