// Package store provides SQLite-backed persistence for monitored pages,
// meetings, and meeting history.
//
// The store owns the classify-and-write step of the pipeline: Apply matches
// a candidate against the stored meeting with the same identity key,
// classifies it as new, unchanged, or updated, and on update appends a
// history snapshot of the prior state in the same transaction that
// overwrites the record. Writes for one identity key are serialized with a
// per-key mutex and guarded by an optimistic version check, so concurrent
// crawls of the same meeting cannot lose a snapshot.
package store
