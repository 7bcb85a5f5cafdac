// Package meeting provides types and functions for tracking academic meetings.
//
// The meeting package handles record representation, identity resolution, and
// change classification. Each meeting is assigned a deterministic SHA1-based
// identity key generated from its monitored page and identity-bearing fields,
// enabling reliable matching across crawls even when mutable fields such as
// the abstract or location change. Detected changes are captured as
// append-only history snapshots of the prior field values.
package meeting
