package geo

// Polygon is a GeoJSON-style ring set: the first ring is the outer boundary,
// any further rings are holes. BBox is the precomputed axis-aligned bounding
// box used to cheaply reject most candidates before the exact ray-cast.
type Polygon struct {
	Rings [][]Point
	BBox  [4]float64 // minLon, minLat, maxLon, maxLat
}

// NewPolygon computes the bounding box for a ring set and returns the
// resulting Polygon.
func NewPolygon(rings [][]Point) Polygon {
	p := Polygon{Rings: rings}
	if len(rings) == 0 || len(rings[0]) == 0 {
		return p
	}
	minLon, minLat := rings[0][0].Lon, rings[0][0].Lat
	maxLon, maxLat := minLon, minLat
	for _, pt := range rings[0] {
		if pt.Lon < minLon {
			minLon = pt.Lon
		}
		if pt.Lon > maxLon {
			maxLon = pt.Lon
		}
		if pt.Lat < minLat {
			minLat = pt.Lat
		}
		if pt.Lat > maxLat {
			maxLat = pt.Lat
		}
	}
	p.BBox = [4]float64{minLon, minLat, maxLon, maxLat}
	return p
}

// Contains reports whether pt lies inside the polygon's outer ring and
// outside all hole rings, used to restrict ingest to points within an
// operator-supplied boundary (§9.3 of the design). The bounding box is
// checked first as a cheap reject.
func Contains(pt Point, poly Polygon) bool {
	if !inBBox(pt, poly.BBox) {
		return false
	}
	if len(poly.Rings) == 0 {
		return false
	}
	if !pointInRing(pt, poly.Rings[0]) {
		return false
	}
	for i := 1; i < len(poly.Rings); i++ {
		if pointInRing(pt, poly.Rings[i]) {
			return false
		}
	}
	return true
}

// pointInRing is the standard even-odd ray-casting test.
func pointInRing(pt Point, ring []Point) bool {
	n := len(ring)
	if n < 3 {
		return false
	}
	inside := false
	x, y := pt.Lon, pt.Lat
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := ring[i].Lon, ring[i].Lat
		xj, yj := ring[j].Lon, ring[j].Lat
		intersect := ((yi > y) != (yj > y)) && (x < (xj-xi)*(y-yi)/(yj-yi+1e-12)+xi)
		if intersect {
			inside = !inside
		}
	}
	return inside
}

func inBBox(pt Point, b [4]float64) bool {
	return pt.Lon >= b[0] && pt.Lon <= b[2] && pt.Lat >= b[1] && pt.Lat <= b[3]
}
