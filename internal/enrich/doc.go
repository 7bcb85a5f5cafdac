// Package enrich resolves speaker names to short introduction snippets via
// an external web search.
//
// Enrichment is best-effort by contract: any failure (network error, zero
// results, blocked response) yields no intro and never affects the
// surrounding crawl cycle. Results, including misses, are cached with a TTL
// so a speaker is looked up at most once per cycle and empty results are
// retried on a later cycle.
package enrich
