package geo

import (
	"encoding/json"
	"fmt"
	"io"
)

// geoJSONPolygon mirrors the subset of the GeoJSON Polygon geometry this
// package needs: Coordinates is a ring list, each ring a list of [lon,
// lat] pairs, first ring outer, the rest holes.
type geoJSONPolygon struct {
	Type        string        `json:"type"`
	Coordinates [][][]float64 `json:"coordinates"`
}

// LoadPolygonGeoJSON reads a single GeoJSON Polygon geometry (not a
// Feature or FeatureCollection wrapper) and returns the equivalent
// Polygon, per §9.3's optional ingest boundary filter.
func LoadPolygonGeoJSON(r io.Reader) (Polygon, error) {
	var g geoJSONPolygon
	if err := json.NewDecoder(r).Decode(&g); err != nil {
		return Polygon{}, fmt.Errorf("geo: decode boundary geojson: %w", err)
	}
	if g.Type != "" && g.Type != "Polygon" {
		return Polygon{}, fmt.Errorf("geo: unsupported boundary geometry type %q, want Polygon", g.Type)
	}
	rings := make([][]Point, 0, len(g.Coordinates))
	for _, ring := range g.Coordinates {
		pts := make([]Point, 0, len(ring))
		for _, c := range ring {
			if len(c) < 2 {
				return Polygon{}, fmt.Errorf("geo: boundary ring vertex has fewer than 2 coordinates")
			}
			pts = append(pts, Point{Lon: c[0], Lat: c[1]})
		}
		rings = append(rings, pts)
	}
	return NewPolygon(rings), nil
}
