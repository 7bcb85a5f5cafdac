package meeting

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Mode describes how a meeting is held.
type Mode string

const (
	ModeOnline   Mode = "online"
	ModeInPerson Mode = "in-person"
	ModeHybrid   Mode = "hybrid"
	ModeUnknown  Mode = "unknown"
)

// Meeting represents a tracked academic meeting extracted from a monitored page.
type Meeting struct {
	ID              string     `db:"id" json:"id"` // identity key, see IdentityKey
	PageURL         string     `db:"page_url" json:"page_url"`
	SourceURL       string     `db:"source_url" json:"source_url"`
	DetailURL       string     `db:"detail_url" json:"detail_url,omitempty"`
	Title           string     `db:"title" json:"title"`
	Speaker         string     `db:"speaker" json:"speaker,omitempty"`
	StartText       string     `db:"start_text" json:"start_text,omitempty"`
	StartAt         *time.Time `db:"start_at" json:"start_at,omitempty"` // nil means unparseable
	Location        string     `db:"location" json:"location,omitempty"`
	Mode            Mode       `db:"mode" json:"mode"`
	Abstract        string     `db:"abstract" json:"abstract,omitempty"`
	OnlineLink      string     `db:"online_link" json:"online_link,omitempty"`
	SpeakerIntro    string     `db:"speaker_intro" json:"speaker_intro,omitempty"`
	SpeakerIntroURL string     `db:"speaker_intro_url" json:"speaker_intro_url,omitempty"`
	FirstSeen       time.Time  `db:"first_seen" json:"first_seen"`
	LastSeen        time.Time  `db:"last_seen" json:"last_seen"`
	LastUpdated     time.Time  `db:"last_updated" json:"last_updated"`
	Version         int64      `db:"version" json:"version"`
}

// Candidate is an unvalidated field bag produced by extraction, prior to
// identity resolution. Heuristic fields are pointers so that "not found"
// stays distinguishable from "found but blank".
type Candidate struct {
	PageURL   string
	SourceURL string
	DetailURL *string

	Title      *string
	Speaker    *string
	StartText  *string
	Location   *string
	Mode       *string
	Abstract   *string
	OnlineLink *string

	// StartAt is filled in by the date normalizer. nil means unparseable.
	StartAt *time.Time
}

// IdentityStrategy selects which fields anchor a candidate's identity key.
type IdentityStrategy string

const (
	// DateAndTitle keys a meeting on its normalized start date and title.
	DateAndTitle IdentityStrategy = "date+title"
	// TitleAndSpeaker is the fallback when the start date is unparseable.
	TitleAndSpeaker IdentityStrategy = "title+speaker"
)

// Strategy returns the identity strategy that applies to the candidate.
// Candidates with a normalized date use DateAndTitle; the rest degrade to
// TitleAndSpeaker so identity never depends on a field we failed to parse.
func (c *Candidate) Strategy() IdentityStrategy {
	if c.StartAt != nil {
		return DateAndTitle
	}
	return TitleAndSpeaker
}

// IdentityKey creates a stable identifier for the candidate. The key holds
// across re-extractions of the same real-world meeting even when mutable
// fields (abstract, location, link) change.
func (c *Candidate) IdentityKey() string {
	title := NormalizeText(strValue(c.Title))
	var discriminator string
	switch c.Strategy() {
	case DateAndTitle:
		discriminator = c.StartAt.Format("2006-01-02")
	default:
		discriminator = NormalizeText(strValue(c.Speaker))
	}

	h := sha1.New()
	h.Write([]byte(c.PageURL + "|" + strings.ToLower(title) + "|" + strings.ToLower(discriminator)))
	return fmt.Sprintf("%x", h.Sum(nil))
}

// New creates a Meeting from a candidate with identity and timestamps populated.
func New(c *Candidate, now time.Time) *Meeting {
	m := &Meeting{
		ID:          c.IdentityKey(),
		PageURL:     c.PageURL,
		SourceURL:   c.SourceURL,
		DetailURL:   strValue(c.DetailURL),
		Title:       NormalizeText(strValue(c.Title)),
		Speaker:     NormalizeText(strValue(c.Speaker)),
		StartText:   NormalizeText(strValue(c.StartText)),
		StartAt:     c.StartAt,
		Location:    NormalizeText(strValue(c.Location)),
		Mode:        ParseMode(strValue(c.Mode)),
		Abstract:    NormalizeText(strValue(c.Abstract)),
		OnlineLink:  strings.TrimSpace(strValue(c.OnlineLink)),
		FirstSeen:   now.UTC(),
		LastSeen:    now.UTC(),
		LastUpdated: now.UTC(),
		Version:     1,
	}
	return m
}

// ParseMode maps free-text mode hints onto the Mode enum.
func ParseMode(s string) Mode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "online":
		return ModeOnline
	case "in-person", "offline", "onsite", "in person":
		return ModeInPerson
	case "hybrid":
		return ModeHybrid
	case "":
		return ModeUnknown
	}
	return ModeUnknown
}

// NormalizeText collapses runs of whitespace and trims the result.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// hashFields is the canonical field order for DataHash. Identity fields are
// included so two meetings with equal hashes are equal records outright.
var hashFields = func(m *Meeting) []string {
	start := ""
	if m.StartAt != nil {
		start = m.StartAt.Format("2006-01-02 15:04")
	}
	return []string{
		m.PageURL, m.SourceURL, m.DetailURL,
		m.Title, m.Speaker, m.StartText, start,
		m.Location, string(m.Mode), m.Abstract, m.OnlineLink,
	}
}

// DataHash computes a SHA-256 digest over the meeting's extracted fields.
// Enrichment fields are excluded: an intro arriving later must not make the
// record look changed to the crawler.
func DataHash(m *Meeting) string {
	payload, _ := json.Marshal(hashFields(m))
	return fmt.Sprintf("%x", sha256.Sum256(payload))
}

func strValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
