// Package scraper provides HTTP fetching and HTML extraction for monitored
// academic-meeting pages.
//
// The scraper distinguishes listing pages (many meetings, linked detail
// pages) from detail pages (one meeting) and extracts candidate records via
// an ordered list of typed extraction rules: label-proximity lookups for
// speaker, time, location and topic, block collection for abstracts, and
// keyword scans for the meeting mode and online link. Extraction is
// heuristic by design; a missing label skips the field rather than failing
// the candidate, and malformed markup yields zero candidates rather than an
// abort.
package scraper
