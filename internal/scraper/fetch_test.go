package scraper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestFetcher_Fetch(t *testing.T) {
	t.Run("returns body and final URL", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("User-Agent") != UserAgent {
				t.Errorf("User-Agent = %q, want %q", r.Header.Get("User-Agent"), UserAgent)
			}
			w.Write([]byte("<html><body>hello</body></html>"))
		}))
		defer server.Close()

		f := NewFetcher(5 * time.Second)
		body, finalURL, err := f.Fetch(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("Fetch() error: %v", err)
		}
		if body != "<html><body>hello</body></html>" {
			t.Errorf("unexpected body: %q", body)
		}
		if finalURL != server.URL {
			t.Errorf("finalURL = %q, want %q", finalURL, server.URL)
		}
	})

	t.Run("follows redirects", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/new", http.StatusMovedPermanently)
		})
		mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("moved"))
		})
		server := httptest.NewServer(mux)
		defer server.Close()

		f := NewFetcher(5 * time.Second)
		body, finalURL, err := f.Fetch(context.Background(), server.URL+"/old")
		if err != nil {
			t.Fatalf("Fetch() error: %v", err)
		}
		if body != "moved" {
			t.Errorf("unexpected body: %q", body)
		}
		if finalURL != server.URL+"/new" {
			t.Errorf("finalURL = %q, want redirect target", finalURL)
		}
	})

	t.Run("non-200 status is a typed error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}))
		defer server.Close()

		f := NewFetcher(5 * time.Second)
		_, _, err := f.Fetch(context.Background(), server.URL)

		var fetchErr *FetchError
		if !errors.As(err, &fetchErr) {
			t.Fatalf("expected *FetchError, got %T", err)
		}
		if fetchErr.Kind != FetchStatus {
			t.Errorf("Kind = %v, want %v", fetchErr.Kind, FetchStatus)
		}
		if fetchErr.Status != http.StatusNotFound {
			t.Errorf("Status = %d, want 404", fetchErr.Status)
		}
	})

	t.Run("slow server times out", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(500 * time.Millisecond)
		}))
		defer server.Close()

		f := NewFetcher(50 * time.Millisecond)
		_, _, err := f.Fetch(context.Background(), server.URL)

		var fetchErr *FetchError
		if !errors.As(err, &fetchErr) {
			t.Fatalf("expected *FetchError, got %T", err)
		}
		if fetchErr.Kind != FetchTimeout {
			t.Errorf("Kind = %v, want %v", fetchErr.Kind, FetchTimeout)
		}
	})

	t.Run("unreachable host is a network error", func(t *testing.T) {
		f := NewFetcher(2 * time.Second)
		_, _, err := f.Fetch(context.Background(), "http://127.0.0.1:1")

		var fetchErr *FetchError
		if !errors.As(err, &fetchErr) {
			t.Fatalf("expected *FetchError, got %T", err)
		}
		if fetchErr.Kind != FetchNetwork && fetchErr.Kind != FetchTimeout {
			t.Errorf("Kind = %v, want network or timeout", fetchErr.Kind)
		}
	})
}
