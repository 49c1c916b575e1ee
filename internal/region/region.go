// Package region implements the region model (§3, §4.2): the live merge
// forest nodes that the scheduler pairs and combines, and the arena that
// owns them.
package region

// Point is an immutable original input row: coordinate plus weight.
// Weight is guaranteed strictly positive by the time a Point reaches this
// package — ingest filters non-positive weights before construction.
type Point struct {
	ID     int
	Lon    float64
	Lat    float64
	Weight float64
}

// NoPartner is the sentinel slot index meaning "no best partner yet".
const NoPartner = -1

// Region is a node in the in-progress merge forest: either a singleton
// wrapping one Point or the union of two previously-live regions.
type Region struct {
	// ID is the stable identifier. A merged region inherits the ID of its
	// heavier-weight parent (§4.2); IDs are never reassigned.
	ID int

	// X, Y are the current centroid (longitude, latitude).
	X, Y float64

	// N is the aggregate weight: the sum of all member Points' weights.
	N float64

	// OrigLon, OrigLat are the primordial coordinates of the point whose
	// ID this region carries. Used only for emit provenance (§6).
	OrigLon, OrigLat float64

	// Members is the ordered list of original Points absorbed into this
	// region. Needed for exact potential evaluation, not just the
	// centroid. Released (set to nil) the instant this region is retired.
	Members []Point

	// Live is false once this region has been consumed by a merge; a
	// dead region's Members and best-partner slot are no longer
	// meaningful. Arena slots are never reused, so Live plus the slot's
	// stable index substitutes for a generation counter when checking
	// whether a cached best-partner reference is still valid.
	Live bool

	// BestPartner is the arena slot index of the region currently judged
	// to maximize potential against this one, or NoPartner.
	BestPartner int

	// BestPot is the potential associated with BestPartner, or 0 if no
	// partner has been considered yet.
	BestPot float64
}

// NewSingleton constructs the singleton region for a freshly ingested
// Point, per §4.2.
func NewSingleton(p Point) *Region {
	return &Region{
		ID:          p.ID,
		X:           p.Lon,
		Y:           p.Lat,
		N:           p.Weight,
		OrigLon:     p.Lon,
		OrigLat:     p.Lat,
		Members:     []Point{p},
		Live:        true,
		BestPartner: NoPartner,
		BestPot:     0,
	}
}

// Merge constructs the region formed by absorbing b into a, per §4.2. The
// caller must ensure a.N >= b.N (the heavier side survives); Merge itself
// does not swap, since callers (the scheduler) need to know which side was
// heavier to emit A/B in the right order (§6).
func Merge(heavier, lighter *Region) *Region {
	total := heavier.N + lighter.N
	members := make([]Point, 0, len(heavier.Members)+len(lighter.Members))
	members = append(members, heavier.Members...)
	members = append(members, lighter.Members...)
	return &Region{
		ID:          heavier.ID,
		X:           (heavier.X*heavier.N + lighter.X*lighter.N) / total,
		Y:           (heavier.Y*heavier.N + lighter.Y*lighter.N) / total,
		N:           total,
		OrigLon:     heavier.OrigLon,
		OrigLat:     heavier.OrigLat,
		Members:     members,
		Live:        true,
		BestPartner: NoPartner,
		BestPot:     0,
	}
}

// Release drops this region's member list, allowing it to be garbage
// collected immediately upon retirement (§5 memory policy). It does not
// clear Live — callers are expected to set Live=false separately at the
// point they retire the region from the arena, since the two are checked
// independently in a couple of diagnostic paths.
func (r *Region) Release() {
	r.Members = nil
}
