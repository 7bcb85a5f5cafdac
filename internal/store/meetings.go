package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pfrederiksen/seminar-watch/internal/meeting"
)

const meetingColumns = `id, page_url, source_url, detail_url, title, speaker,
	start_text, start_at, location, mode, abstract, online_link,
	speaker_intro, speaker_intro_url, first_seen, last_seen, last_updated, version`

// FindMeeting looks up the meeting with the given identity key scoped to a
// monitored page. Returns (nil, nil) when no such meeting is tracked yet.
func (s *Store) FindMeeting(ctx context.Context, pageURL, key string) (*meeting.Meeting, error) {
	var m meeting.Meeting
	err := s.db.GetContext(ctx, &m,
		`SELECT `+meetingColumns+` FROM meetings WHERE id = ? AND page_url = ?`,
		key, pageURL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding meeting: %w", err)
	}
	return &m, nil
}

// findRescheduled looks up a meeting by normalized title and speaker. A
// changed date moves the date-anchored identity key, so without this lookup
// a rescheduled meeting would split into a fresh record instead of updating
// the tracked one. Requires both fields; a bare title is too weak a match
// for recurring series.
func (s *Store) findRescheduled(ctx context.Context, cand *meeting.Candidate) (*meeting.Meeting, error) {
	var title, speaker string
	if cand.Title != nil {
		title = meeting.NormalizeText(*cand.Title)
	}
	if cand.Speaker != nil {
		speaker = meeting.NormalizeText(*cand.Speaker)
	}
	if title == "" || speaker == "" {
		return nil, nil
	}

	var m meeting.Meeting
	err := s.db.GetContext(ctx, &m,
		`SELECT `+meetingColumns+` FROM meetings
		 WHERE page_url = ? AND lower(title) = lower(?) AND lower(speaker) = lower(?)
		 ORDER BY last_seen DESC LIMIT 1`,
		cand.PageURL, title, speaker)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding rescheduled meeting: %w", err)
	}
	return &m, nil
}

// MeetingByID retrieves a meeting by its identity key.
func (s *Store) MeetingByID(ctx context.Context, id string) (*meeting.Meeting, error) {
	var m meeting.Meeting
	err := s.db.GetContext(ctx, &m,
		`SELECT `+meetingColumns+` FROM meetings WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("meeting not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting meeting: %w", err)
	}
	return &m, nil
}

// ListMeetings returns tracked meetings, most recently seen first. With
// upcomingOnly set, meetings whose normalized date is missing or already
// past are filtered out.
func (s *Store) ListMeetings(ctx context.Context, upcomingOnly bool, now time.Time, limit int) ([]*meeting.Meeting, error) {
	if limit <= 0 {
		limit = 200
	}

	query := `SELECT ` + meetingColumns + ` FROM meetings`
	args := []any{}
	if upcomingOnly {
		query += ` WHERE start_at IS NOT NULL AND start_at >= ?`
		args = append(args, startOfDay(now))
	}
	query += ` ORDER BY last_seen DESC LIMIT ?`
	args = append(args, limit)

	meetings := []*meeting.Meeting{}
	if err := s.db.SelectContext(ctx, &meetings, query, args...); err != nil {
		return nil, fmt.Errorf("listing meetings: %w", err)
	}
	return meetings, nil
}

// History returns a meeting's snapshots, newest first.
func (s *Store) History(ctx context.Context, meetingID string) ([]*meeting.Snapshot, error) {
	snapshots := []*meeting.Snapshot{}
	err := s.db.SelectContext(ctx, &snapshots,
		`SELECT id, meeting_id, recorded_at, data_hash, payload
		 FROM meeting_history WHERE meeting_id = ?
		 ORDER BY id DESC`, meetingID)
	if err != nil {
		return nil, fmt.Errorf("listing history: %w", err)
	}
	return snapshots, nil
}

// SetSpeakerIntro stores an enrichment result. It only fills an empty slot:
// a previously resolved intro is never overwritten, and the write does not
// bump the meeting version or produce history.
func (s *Store) SetSpeakerIntro(ctx context.Context, meetingID, intro, sourceURL string) error {
	if intro == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE meetings SET speaker_intro = ?, speaker_intro_url = ?
		 WHERE id = ? AND speaker_intro = ''`,
		intro, sourceURL, meetingID)
	if err != nil {
		return fmt.Errorf("storing speaker intro: %w", err)
	}
	return nil
}

func startOfDay(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}
