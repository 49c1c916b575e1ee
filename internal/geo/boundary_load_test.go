package geo

import (
	"strings"
	"testing"
)

func TestLoadPolygonGeoJSONParsesOuterRing(t *testing.T) {
	src := `{"type":"Polygon","coordinates":[[[-123,37],[-123,38.5],[-121,38.5],[-121,37],[-123,37]]]}`
	poly, err := LoadPolygonGeoJSON(strings.NewReader(src))
	if err != nil {
		t.Fatalf("LoadPolygonGeoJSON: %v", err)
	}
	if !Contains(Point{Lon: -122, Lat: 37.8}, poly) {
		t.Error("expected interior point to be contained")
	}
	if Contains(Point{Lon: -77, Lat: 38.9}, poly) {
		t.Error("expected exterior point to be rejected")
	}
}

func TestLoadPolygonGeoJSONRejectsWrongType(t *testing.T) {
	src := `{"type":"LineString","coordinates":[[0,0],[1,1]]}`
	if _, err := LoadPolygonGeoJSON(strings.NewReader(src)); err == nil {
		t.Error("expected error for non-Polygon geometry")
	}
}
