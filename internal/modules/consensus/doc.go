// Package consensus holds the per-table decision procedure that picks the authoritative
// ballot version from jury and observer endorsements.
//
// Everything here is pure: callers load a consistent snapshot of a table's versions and
// attestations, build a Tally and call Decide. Persisting the verdict is the caller's job.
package consensus
