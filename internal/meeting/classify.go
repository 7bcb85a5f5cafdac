package meeting

import (
	"encoding/json"
	"strings"
	"time"
)

// Classification is the outcome of matching a candidate against tracked state.
type Classification string

const (
	ClassNew       Classification = "new"
	ClassUnchanged Classification = "unchanged"
	ClassUpdated   Classification = "updated"
)

// FieldChange records a single mutable field that differed between the
// stored meeting and a fresh extraction.
type FieldChange struct {
	Field    string `json:"field"`
	OldValue string `json:"old_value"`
	NewValue string `json:"new_value"`
}

// Classify matches a candidate against the previously stored meeting with
// the same identity key. prev == nil classifies NEW. Otherwise every mutable
// field is compared after normalization; identity fields and timestamps are
// never compared. Enrichment fields are owned by the resolver and do not
// participate.
func Classify(prev *Meeting, c *Candidate) (Classification, []FieldChange) {
	if prev == nil {
		return ClassNew, nil
	}

	var changes []FieldChange
	record := func(field, oldVal, newVal string) {
		if oldVal != newVal {
			changes = append(changes, FieldChange{Field: field, OldValue: oldVal, NewValue: newVal})
		}
	}

	record("start_text", prev.StartText, NormalizeText(strValue(c.StartText)))
	// A year-less date re-parsed after rollover can move the normalized
	// time while the raw text stays the same.
	record("start_at", timeText(prev.StartAt), timeText(c.StartAt))
	record("location", prev.Location, NormalizeText(strValue(c.Location)))
	record("abstract", prev.Abstract, NormalizeText(strValue(c.Abstract)))
	record("online_link", prev.OnlineLink, strings.TrimSpace(strValue(c.OnlineLink)))
	record("detail_url", prev.DetailURL, strValue(c.DetailURL))
	record("mode", string(prev.Mode), string(ParseMode(strValue(c.Mode))))

	// The speaker is an identity field under TitleAndSpeaker; comparing it
	// there would be vacuous since a differing speaker yields a new key.
	if c.Strategy() == DateAndTitle {
		record("speaker", prev.Speaker, NormalizeText(strValue(c.Speaker)))
	}

	if len(changes) == 0 {
		return ClassUnchanged, nil
	}
	return ClassUpdated, changes
}

func timeText(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// ApplyCandidate overwrites prev's mutable fields from the candidate and
// bumps bookkeeping. Identity fields, enrichment fields, and FirstSeen are
// preserved. The returned meeting is a copy; prev is not modified.
func ApplyCandidate(prev *Meeting, c *Candidate, now time.Time) *Meeting {
	next := *prev
	next.SourceURL = c.SourceURL
	next.DetailURL = strValue(c.DetailURL)
	next.StartText = NormalizeText(strValue(c.StartText))
	next.StartAt = c.StartAt
	next.Location = NormalizeText(strValue(c.Location))
	next.Mode = ParseMode(strValue(c.Mode))
	next.Abstract = NormalizeText(strValue(c.Abstract))
	next.OnlineLink = strings.TrimSpace(strValue(c.OnlineLink))
	if c.Strategy() == DateAndTitle {
		next.Speaker = NormalizeText(strValue(c.Speaker))
	}
	next.LastSeen = now.UTC()
	next.LastUpdated = now.UTC()
	next.Version = prev.Version + 1
	return &next
}

// Snapshot is an immutable record of a meeting's field values immediately
// before an update. Snapshots are append-only and written exactly once per
// UPDATED classification.
type Snapshot struct {
	ID         int64     `db:"id" json:"id"`
	MeetingID  string    `db:"meeting_id" json:"meeting_id"`
	RecordedAt time.Time `db:"recorded_at" json:"recorded_at"`
	DataHash   string    `db:"data_hash" json:"data_hash"`
	Payload    []byte    `db:"payload" json:"-"`
}

// SnapshotOf captures the full prior state of a meeting.
func SnapshotOf(prev *Meeting, now time.Time) (*Snapshot, error) {
	payload, err := json.Marshal(prev)
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		MeetingID:  prev.ID,
		RecordedAt: now.UTC(),
		DataHash:   DataHash(prev),
		Payload:    payload,
	}, nil
}

// Meeting decodes the snapshot payload back into the prior meeting state.
func (s *Snapshot) Meeting() (*Meeting, error) {
	var m Meeting
	if err := json.Unmarshal(s.Payload, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
