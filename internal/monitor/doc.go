// Package monitor runs the crawl pipeline for monitored pages.
//
// For each page the runner fetches content, detects the page kind, extracts
// candidate meeting records, normalizes their dates, and hands each
// candidate to the store's classify-and-write step. Pages are processed
// independently by a bounded worker pool; one page's fetch or extraction
// failure never aborts another page's pipeline. A per-page in-flight guard
// keeps a manual crawl and the scheduled crawl from overlapping on the same
// page. Speaker-intro enrichment runs after classification and is
// best-effort throughout.
package monitor
