package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/pfrederiksen/seminar-watch/internal/meeting"
)

// ErrWriteConflict signals that another writer touched the same identity key
// between our prior-state read and the write. Apply retries once with a
// fresh read before surfacing it.
var ErrWriteConflict = errors.New("concurrent write for identity key")

const conflictRetryInterval = 50 * time.Millisecond

// ApplyResult is the outcome of classifying and persisting one candidate.
type ApplyResult struct {
	Classification meeting.Classification
	Meeting        *meeting.Meeting
	Changes        []meeting.FieldChange
}

// Apply runs the serialized classify-and-write step for one candidate:
// look up the prior meeting with the same identity key, classify the
// candidate against it, and persist the result. On an UPDATED
// classification the history snapshot and the overwrite commit in one
// transaction, so a cancelled crawl never leaves an overwrite without its
// paired snapshot.
func (s *Store) Apply(ctx context.Context, cand *meeting.Candidate, now time.Time) (*ApplyResult, error) {
	key := cand.IdentityKey()

	lock := s.keyLock(cand.PageURL + "|" + key)
	lock.Lock()
	defer lock.Unlock()

	var result *ApplyResult
	op := func() error {
		res, err := s.applyOnce(ctx, cand, key, now)
		if err != nil {
			if errors.Is(err, ErrWriteConflict) {
				return err // retryable with a fresh prior-state read
			}
			return backoff.Permanent(err)
		}
		result = res
		return nil
	}

	err := backoff.Retry(op,
		backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(conflictRetryInterval), 1), ctx))
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) applyOnce(ctx context.Context, cand *meeting.Candidate, key string, now time.Time) (*ApplyResult, error) {
	prev, err := s.FindMeeting(ctx, cand.PageURL, key)
	if err != nil {
		return nil, err
	}
	if prev == nil && cand.Strategy() == meeting.DateAndTitle {
		prev, err = s.findRescheduled(ctx, cand)
		if err != nil {
			return nil, err
		}
	}

	class, changes := meeting.Classify(prev, cand)

	switch class {
	case meeting.ClassNew:
		fresh := meeting.New(cand, now)
		if err := s.insertMeeting(ctx, fresh); err != nil {
			return nil, err
		}
		return &ApplyResult{Classification: class, Meeting: fresh}, nil

	case meeting.ClassUnchanged:
		res, err := s.db.ExecContext(ctx,
			`UPDATE meetings SET last_seen = ? WHERE id = ? AND version = ?`,
			now.UTC(), prev.ID, prev.Version)
		if err != nil {
			return nil, fmt.Errorf("touching meeting: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil, ErrWriteConflict
		}
		prev.LastSeen = now.UTC()
		return &ApplyResult{Classification: class, Meeting: prev}, nil

	default: // updated
		next := meeting.ApplyCandidate(prev, cand, now)
		if err := s.updateMeeting(ctx, prev, next, now); err != nil {
			return nil, err
		}
		return &ApplyResult{Classification: class, Meeting: next, Changes: changes}, nil
	}
}

func (s *Store) insertMeeting(ctx context.Context, m *meeting.Meeting) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO meetings (
			id, page_url, source_url, detail_url, title, speaker,
			start_text, start_at, location, mode, abstract, online_link,
			speaker_intro, speaker_intro_url, first_seen, last_seen, last_updated, version
		) VALUES (
			:id, :page_url, :source_url, :detail_url, :title, :speaker,
			:start_text, :start_at, :location, :mode, :abstract, :online_link,
			:speaker_intro, :speaker_intro_url, :first_seen, :last_seen, :last_updated, :version
		)`, m)
	if isConstraintErr(err) {
		// Another writer inserted the same key between read and write.
		return ErrWriteConflict
	}
	if err != nil {
		return fmt.Errorf("inserting meeting: %w", err)
	}
	return nil
}

// updateMeeting appends the prior-state snapshot and overwrites the record
// in one transaction, guarded by the optimistic version check.
func (s *Store) updateMeeting(ctx context.Context, prev, next *meeting.Meeting, now time.Time) error {
	snapshot, err := meeting.SnapshotOf(prev, now)
	if err != nil {
		return fmt.Errorf("building snapshot: %w", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO meeting_history (meeting_id, recorded_at, data_hash, payload)
		 VALUES (?, ?, ?, ?)`,
		snapshot.MeetingID, snapshot.RecordedAt, snapshot.DataHash, string(snapshot.Payload)); err != nil {
		return fmt.Errorf("appending history: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE meetings SET
			source_url = ?, detail_url = ?, speaker = ?, start_text = ?,
			start_at = ?, location = ?, mode = ?, abstract = ?, online_link = ?,
			last_seen = ?, last_updated = ?, version = ?
		WHERE id = ? AND version = ?`,
		next.SourceURL, next.DetailURL, next.Speaker, next.StartText,
		next.StartAt, next.Location, next.Mode, next.Abstract, next.OnlineLink,
		next.LastSeen, next.LastUpdated, next.Version,
		prev.ID, prev.Version)
	if err != nil {
		return fmt.Errorf("updating meeting: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrWriteConflict
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing update: %w", err)
	}
	return nil
}

func isConstraintErr(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint
}
