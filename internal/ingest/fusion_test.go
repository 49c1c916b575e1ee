package ingest

import "testing"

func TestFuseCombinesSameGridCellAcrossSources(t *testing.T) {
	rows := []Row{
		{Lon: 10.00001, Lat: 20.00001, Weight: 4, Source: 0},
		{Lon: 10.00002, Lat: 20.00002, Weight: 6, Source: 1},
	}
	fused := Fuse(rows, SourceConfidence{0: 1.0, 1: 1.0})
	if len(fused) != 1 {
		t.Fatalf("expected rows at the same grid cell to fuse into one, got %d", len(fused))
	}
	if fused[0].Weight != 10 {
		t.Fatalf("expected combined weight 10, got %v", fused[0].Weight)
	}
}

func TestFuseKeepsDistinctCellsSeparate(t *testing.T) {
	rows := []Row{
		{Lon: 0, Lat: 0, Weight: 1, Source: 0},
		{Lon: 50, Lat: 50, Weight: 1, Source: 0},
	}
	fused := Fuse(rows, nil)
	if len(fused) != 2 {
		t.Fatalf("expected 2 distinct rows, got %d", len(fused))
	}
}

func TestFuseWeightsByConfidence(t *testing.T) {
	rows := []Row{
		{Lon: 0, Lat: 0, Weight: 10, Source: 0},
		{Lon: 0, Lat: 0, Weight: 10, Source: 1},
	}
	fused := Fuse(rows, SourceConfidence{0: 1.0, 1: 0.5})
	if len(fused) != 1 {
		t.Fatalf("expected a single fused row, got %d", len(fused))
	}
	if fused[0].Weight != 15 {
		t.Fatalf("expected confidence-weighted sum 15, got %v", fused[0].Weight)
	}
}

func TestFuseDefaultConfidenceIsOne(t *testing.T) {
	rows := []Row{
		{Lon: 1, Lat: 1, Weight: 3, Source: 0},
		{Lon: 1, Lat: 1, Weight: 7, Source: 1},
	}
	fused := Fuse(rows, nil)
	if fused[0].Weight != 10 {
		t.Fatalf("expected unweighted sum 10 with nil confidence map, got %v", fused[0].Weight)
	}
}
