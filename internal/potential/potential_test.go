package potential

import (
	"math"
	"testing"

	"github.com/jimspencer/spidermap/internal/geo"
	"github.com/jimspencer/spidermap/internal/region"
)

func TestPointByPointSymmetric(t *testing.T) {
	e := NewEvaluator()
	a := region.NewSingleton(region.Point{ID: 1, Lon: 0, Lat: 0, Weight: 3})
	b := region.NewSingleton(region.Point{ID: 2, Lon: 1, Lat: 1, Weight: 5})
	if e.PointByPoint(a, b) != e.PointByPoint(b, a) {
		t.Fatalf("PointByPoint must be exactly symmetric")
	}
}

func TestPointByPointMatchesManualSum(t *testing.T) {
	e := NewEvaluator()
	a := &region.Region{Members: []region.Point{
		{Lon: 0, Lat: 0, Weight: 2},
		{Lon: 0, Lat: 1, Weight: 3},
	}}
	b := &region.Region{Members: []region.Point{
		{Lon: 5, Lat: 5, Weight: 7},
	}}
	var want float64
	for _, pa := range a.Members {
		for _, pb := range b.Members {
			d := geo.DistPow4Miles(geo.Point{Lon: pa.Lon, Lat: pa.Lat}, geo.Point{Lon: pb.Lon, Lat: pb.Lat})
			want += pa.Weight * pb.Weight / d
		}
	}
	got := e.PointByPoint(a, b)
	if got != want {
		t.Fatalf("PointByPoint = %v, want %v", got, want)
	}
}

func TestPointByPointDuplicateCoordinateYieldsInf(t *testing.T) {
	e := NewEvaluator()
	a := &region.Region{Members: []region.Point{{Lon: 3, Lat: 3, Weight: 1}}}
	b := &region.Region{Members: []region.Point{{Lon: 3, Lat: 3, Weight: 1}}}
	got := e.PointByPoint(a, b)
	if !math.IsInf(got, 1) {
		t.Fatalf("expected +Inf for duplicate coordinates, got %v", got)
	}
}

func TestPointByPointAdditiveOverMerge(t *testing.T) {
	e := NewEvaluator()
	// pot(A ∪ B, C) must equal pot(A, C) + pot(B, C): the cache shortcut the
	// scheduler relies on after every merge depends on exactly this identity.
	a := region.NewSingleton(region.Point{ID: 1, Lon: 0, Lat: 0, Weight: 2})
	b := region.NewSingleton(region.Point{ID: 2, Lon: 1, Lat: 0, Weight: 4})
	c := region.NewSingleton(region.Point{ID: 3, Lon: 9, Lat: 9, Weight: 6})

	merged := region.Merge(b, a) // b heavier
	lhs := e.PointByPoint(merged, c)
	rhs := e.PointByPoint(a, c) + e.PointByPoint(b, c)
	if !almostEqual(lhs, rhs, 1e-9) {
		t.Fatalf("pot(merged, c) = %v, want pot(a,c)+pot(b,c) = %v", lhs, rhs)
	}
}

func almostEqual(a, b, tol float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= tol
}

func TestKernelInverse6Selectable(t *testing.T) {
	e := &Evaluator{Kernel: geo.DistPow6Miles}
	a := region.NewSingleton(region.Point{ID: 1, Lon: 0, Lat: 0, Weight: 1})
	b := region.NewSingleton(region.Point{ID: 2, Lon: 2, Lat: 0, Weight: 1})
	got := e.PointByPoint(a, b)
	d6 := geo.DistPow6Miles(geo.Point{Lon: 0, Lat: 0}, geo.Point{Lon: 2, Lat: 0})
	if !almostEqual(got, 1/d6, 1e-12) {
		t.Fatalf("inverse6 kernel not wired through Evaluator: got %v want %v", got, 1/d6)
	}
}
