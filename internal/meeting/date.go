package meeting

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Date extraction patterns, ordered most specific to least. The CJK
// separators (年/月/日) appear on many university seminar pages alongside
// the western forms.
var (
	reDateYMD   = regexp.MustCompile(`(20\d{2})[年./\-](\d{1,2})[月./\-](\d{1,2})日?`)
	reDateMDY   = regexp.MustCompile(`(\d{1,2})[/.](\d{1,2})[/.](\d{4})`)
	reDateMDY2  = regexp.MustCompile(`(\d{1,2})[/.](\d{1,2})[/.](\d{2})(?:\D|$)`)
	reMonthName = regexp.MustCompile(`(?i)(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\.?\s+(\d{1,2})(?:st|nd|rd|th)?(?:,?\s+(20\d{2}))?`)
	reDateMD    = regexp.MustCompile(`(?:^|[^\d:.])(\d{1,2})[月./\-](\d{1,2})日?(?:[^\d]|$)`)
	reClock24   = regexp.MustCompile(`(\d{1,2}):(\d{2})`)
	reClock12   = regexp.MustCompile(`(?i)(\d{1,2})(?::(\d{2}))?\s*([ap])\.?m\.?`)
)

var monthAbbrev = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// ParseStart attempts to normalize free-text meeting time into a comparable
// timestamp. It returns ok=false when the text carries no recognizable date
// marker; that is an expected outcome, not an error. Year-less dates resolve
// to the closest future occurrence relative to now, since monitored meetings
// are assumed near-term.
func ParseStart(text string, now time.Time) (time.Time, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, false
	}

	hour, minute := parseClock(text)

	if m := reDateYMD.FindStringSubmatch(text); m != nil {
		return makeDate(atoi(m[1]), atoi(m[2]), atoi(m[3]), hour, minute, now)
	}

	if m := reDateMDY.FindStringSubmatch(text); m != nil {
		return makeDate(atoi(m[3]), atoi(m[1]), atoi(m[2]), hour, minute, now)
	}

	if m := reDateMDY2.FindStringSubmatch(text); m != nil {
		return makeDate(2000+atoi(m[3]), atoi(m[1]), atoi(m[2]), hour, minute, now)
	}

	if m := reMonthName.FindStringSubmatch(text); m != nil {
		month := monthAbbrev[strings.ToLower(m[1])]
		if m[3] != "" {
			return makeDate(atoi(m[3]), int(month), atoi(m[2]), hour, minute, now)
		}
		return rollForward(int(month), atoi(m[2]), hour, minute, now)
	}

	if m := reDateMD.FindStringSubmatch(text); m != nil {
		return rollForward(atoi(m[1]), atoi(m[2]), hour, minute, now)
	}

	return time.Time{}, false
}

// parseClock extracts a time of day from the text, preferring an explicit
// 12-hour marker over a bare HH:MM. Returns zeros when nothing matches.
func parseClock(text string) (hour, minute int) {
	if m := reClock12.FindStringSubmatch(text); m != nil {
		hour = atoi(m[1])
		if m[2] != "" {
			minute = atoi(m[2])
		}
		if hour <= 12 {
			if strings.EqualFold(m[3], "p") && hour != 12 {
				hour += 12
			}
			if strings.EqualFold(m[3], "a") && hour == 12 {
				hour = 0
			}
			if hour < 24 && minute < 60 {
				return hour, minute
			}
		}
		hour, minute = 0, 0
	}

	if m := reClock24.FindStringSubmatch(text); m != nil {
		hour, minute = atoi(m[1]), atoi(m[2])
		if hour < 24 && minute < 60 {
			return hour, minute
		}
	}
	return 0, 0
}

// makeDate validates the components and builds the timestamp. time.Date
// silently normalizes overflow (e.g. Feb 30), so the round-trip check
// rejects impossible dates instead of shifting them.
func makeDate(year, month, day, hour, minute int, now time.Time) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, hour, minute, 0, 0, now.Location())
	if int(t.Month()) != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

// rollForward resolves a year-less month/day to its closest future
// occurrence: this year if the day has not passed yet, otherwise next year.
func rollForward(month, day, hour, minute int, now time.Time) (time.Time, bool) {
	t, ok := makeDate(now.Year(), month, day, hour, minute, now)
	if !ok {
		return time.Time{}, false
	}
	if t.Before(midnight(now)) {
		t, ok = makeDate(now.Year()+1, month, day, hour, minute, now)
	}
	return t, ok
}

// IsUpcoming reports whether the meeting starts today or later. Meetings
// with an unparseable date are excluded; they remain visible in unfiltered
// views.
func (m *Meeting) IsUpcoming(now time.Time) bool {
	if m.StartAt == nil {
		return false
	}
	return !m.StartAt.Before(midnight(now))
}

func midnight(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
