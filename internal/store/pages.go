package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Page is a monitored URL the crawler re-fetches every cycle.
type Page struct {
	ID            int64      `db:"id" json:"id"`
	URL           string     `db:"url" json:"url"`
	Kind          string     `db:"kind" json:"kind,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	LastCheckedAt *time.Time `db:"last_checked_at" json:"last_checked_at,omitempty"`
	LastError     *string    `db:"last_error" json:"last_error,omitempty"`
}

// ErrPageExists is returned when adding a URL that is already monitored.
var ErrPageExists = errors.New("page already monitored")

// CreatePage registers a new monitored page.
func (s *Store) CreatePage(ctx context.Context, url string, now time.Time) (*Page, error) {
	if existing, err := s.PageByURL(ctx, url); err == nil && existing != nil {
		return existing, ErrPageExists
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO monitored_pages (url, created_at) VALUES (?, ?)`,
		url, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("creating page: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading page id: %w", err)
	}
	return s.PageByID(ctx, id)
}

// PageByID retrieves a monitored page by its numeric id.
func (s *Store) PageByID(ctx context.Context, id int64) (*Page, error) {
	var page Page
	err := s.db.GetContext(ctx, &page,
		`SELECT * FROM monitored_pages WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("page not found: %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting page: %w", err)
	}
	return &page, nil
}

// PageByURL retrieves a monitored page by URL.
func (s *Store) PageByURL(ctx context.Context, url string) (*Page, error) {
	var page Page
	err := s.db.GetContext(ctx, &page,
		`SELECT * FROM monitored_pages WHERE url = ?`, url)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("page not found: %s", url)
	}
	if err != nil {
		return nil, fmt.Errorf("getting page: %w", err)
	}
	return &page, nil
}

// ListPages returns all monitored pages, newest first.
func (s *Store) ListPages(ctx context.Context) ([]*Page, error) {
	pages := []*Page{}
	err := s.db.SelectContext(ctx, &pages,
		`SELECT * FROM monitored_pages ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing pages: %w", err)
	}
	return pages, nil
}

// MarkPageChecked records the outcome of a crawl cycle: the check timestamp,
// the inferred page kind, and the fetch/extraction error if any. A nil
// crawlErr clears any previous error.
func (s *Store) MarkPageChecked(ctx context.Context, id int64, kind string, now time.Time, crawlErr error) error {
	var lastError *string
	if crawlErr != nil {
		msg := crawlErr.Error()
		lastError = &msg
	}

	_, err := s.db.ExecContext(ctx,
		`UPDATE monitored_pages SET last_checked_at = ?, kind = ?, last_error = ? WHERE id = ?`,
		now.UTC(), kind, lastError, id)
	if err != nil {
		return fmt.Errorf("marking page checked: %w", err)
	}
	return nil
}
