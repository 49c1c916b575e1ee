package region

// Arena is a slice-backed store of regions, indexed by a stable slot
// number distinct from the region's ID. Best-partner references are held
// as slot indices rather than ID lookups, so "is my partner still alive"
// is a constant-time check against the slot's Live flag — the approach the
// design notes describe as an alternative to a generation counter, since
// slots here are never reused.
//
// order records slot indices in the order each region entered the live
// set (original ingest order for singletons, creation order for merged
// regions). Dead slots are skipped, never spliced out, so that scheduler
// tie-breaking ("first encountered in live-set iteration order") stays
// stable across the run, per §4.6.
type Arena struct {
	slots []*Region
	order []int
	live  int
}

// NewArena returns an empty arena with capacity hints for the expected
// final slot count (2N-1 for N singletons).
func NewArena(capacityHint int) *Arena {
	return &Arena{
		slots: make([]*Region, 0, capacityHint),
		order: make([]int, 0, capacityHint),
	}
}

// Add appends a region as a new live slot and returns its slot index.
func (a *Arena) Add(r *Region) int {
	idx := len(a.slots)
	a.slots = append(a.slots, r)
	a.order = append(a.order, idx)
	a.live++
	return idx
}

// Get returns the region at slot idx.
func (a *Arena) Get(idx int) *Region { return a.slots[idx] }

// Retire marks the region at idx dead and releases its members.
func (a *Arena) Retire(idx int) {
	r := a.slots[idx]
	if r.Live {
		a.live--
	}
	r.Live = false
	r.Release()
}

// LiveCount returns the number of currently live regions.
func (a *Arena) LiveCount() int { return a.live }

// IsLive reports whether the region at slot idx is still live. Safe to call
// with NoPartner (returns false).
func (a *Arena) IsLive(idx int) bool {
	if idx == NoPartner || idx < 0 || idx >= len(a.slots) {
		return false
	}
	return a.slots[idx].Live
}

// Each calls fn once per live slot, in live-set iteration order, stopping
// early if fn returns false.
func (a *Arena) Each(fn func(idx int, r *Region) bool) {
	for _, idx := range a.order {
		r := a.slots[idx]
		if !r.Live {
			continue
		}
		if !fn(idx, r) {
			return
		}
	}
}

// Slots exposes the live order slice for iteration contexts (e.g. the
// scheduler's refresh pass) that need to skip a known set of excluded
// slots explicitly rather than through a closure predicate.
func (a *Arena) Slots() []int { return a.order }
