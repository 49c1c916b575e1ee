// Package cache implements the sparse pair-potential cache (§4.4): a
// symmetric map keyed by an unordered region-ID pair, gated by the
// member-count of whichever side of the pair a merge has just formed so
// it only ever holds entries worth the memory, and invalidated by
// tombstone rather than deletion so a stale hit can be told apart from a
// genuine miss.
package cache

// Tombstoned is the sentinel value returned for an entry that was
// explicitly invalidated (one of the pair's regions was retired) rather
// than one that was simply never computed. Callers distinguish the two by
// the ok flag from Get, not by comparing against this value directly, but
// it is kept exported for diagnostics and tests.
const Tombstoned = -1

// Key is an unordered region-ID pair, normalized so Key(a, b) == Key(b, a).
type Key struct {
	Lo, Hi int
}

// NewKey builds a normalized Key from two region IDs in any order.
func NewKey(a, b int) Key {
	if a <= b {
		return Key{Lo: a, Hi: b}
	}
	return Key{Lo: b, Hi: a}
}

// Cache is the pluggable storage behind the pair-potential cache. The
// in-memory implementation (MemCache) is the default and the one every
// correctness test runs against; RedisCache is an optional distributed
// backend for multi-process runs, per §9.2.
type Cache interface {
	// Get returns the cached potential for the pair and whether it was
	// present and live (a tombstoned entry reports ok == false).
	Get(a, b int) (float64, bool)

	// Set stores a potential for the pair, gated by the caller's own
	// size-threshold decision (§4.4: a pair is only worth caching when
	// the region a merge has just formed on one side of it has more
	// members than the configured threshold).
	Set(a, b int, pot float64)

	// Tombstone invalidates any entry for the pair without removing its
	// slot, so a subsequent Get reports a clean miss rather than a stale
	// hit.
	Tombstone(a, b int)

	// TombstoneAllWith invalidates every cached entry that references the
	// given region ID, used when a region is retired and every pair
	// involving it becomes meaningless (§4.4, §4.6).
	TombstoneAllWith(id int)

	// Len reports the number of live (non-tombstoned) entries, for
	// metrics and tests.
	Len() int
}
