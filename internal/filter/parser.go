package filter

import (
	"fmt"
	"strings"
	"time"
)

// ParseDate parses a CLI date flag value in ISO form ("2026-03-14") into a
// UTC time at start of day.
func ParseDate(input string) (*time.Time, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", input)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", input)
	}
	t = t.UTC()
	return &t, nil
}

// ParseList splits a comma-separated CLI flag value into trimmed items.
func ParseList(input string) []string {
	if strings.TrimSpace(input) == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	items := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
