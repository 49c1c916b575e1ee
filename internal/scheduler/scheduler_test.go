package scheduler

import (
	"bytes"
	"context"
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/jimspencer/spidermap/internal/cache"
	"github.com/jimspencer/spidermap/internal/emit"
	"github.com/jimspencer/spidermap/internal/potential"
	"github.com/jimspencer/spidermap/internal/region"
)

func newTestScheduler(pts []region.Point, threshold float64) (*Scheduler, *region.Arena) {
	ar := region.NewArena(len(pts)*2 - 1)
	for _, p := range pts {
		ar.Add(region.NewSingleton(p))
	}
	return New(ar, potential.NewEvaluator(), cache.NewMemCache(), threshold), ar
}

func TestTwoPointsOneMerge(t *testing.T) {
	pts := []region.Point{
		{ID: 0, Lon: 0, Lat: 0, Weight: 1},
		{ID: 1, Lon: 1, Lat: 0, Weight: 1},
	}
	s, _ := newTestScheduler(pts, 100)
	var buf bytes.Buffer
	w := emit.NewWriter(&buf)
	n, err := s.Run(context.Background(), w)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected exactly 1 merge, got %d", n)
	}
	fields := strings.Fields(buf.String())
	if fields[0] != "1" {
		t.Fatalf("seq should be 1, got %q", fields[0])
	}
	nA, _ := strconv.ParseFloat(fields[2], 64)
	nB, _ := strconv.ParseFloat(fields[8], 64)
	if nA != 1 || nB != 1 {
		t.Fatalf("expected nA=1 nB=1, got nA=%v nB=%v", nA, nB)
	}
}

func TestThreeCollinearGradedWeightsMergesSmallPairFirst(t *testing.T) {
	// pot(p1,p2)=1, pot(p1,p3)=0.01, pot(p2,p3)=100/9^4 ~= 0.01524.
	// The two weight-1 points must merge first.
	pts := []region.Point{
		{ID: 0, Lon: 0, Lat: 0, Weight: 1},
		{ID: 1, Lon: 1, Lat: 0, Weight: 1},
		{ID: 2, Lon: 10, Lat: 0, Weight: 100},
	}
	s, _ := newTestScheduler(pts, 100)
	var buf bytes.Buffer
	w := emit.NewWriter(&buf)
	n, err := s.Run(context.Background(), w)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected exactly 2 merges, got %d", n)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	first := strings.Fields(lines[0])
	idA, idB := first[1], first[7]
	if !(idA == "0" && idB == "1") && !(idA == "1" && idB == "0") {
		t.Fatalf("first merge should pair ids 0 and 1, got idA=%s idB=%s", idA, idB)
	}
}

func TestDuplicateCoordinatesMergeFirst(t *testing.T) {
	pts := []region.Point{
		{ID: 0, Lon: 5, Lat: 5, Weight: 1},
		{ID: 1, Lon: 5, Lat: 5, Weight: 1},
		{ID: 2, Lon: 50, Lat: 50, Weight: 1},
	}
	s, _ := newTestScheduler(pts, 100)
	var buf bytes.Buffer
	w := emit.NewWriter(&buf)
	if _, err := s.Run(context.Background(), w); err != nil {
		t.Fatalf("Run: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	first := strings.Fields(lines[0])
	idA, idB := first[1], first[7]
	if !(idA == "0" && idB == "1") && !(idA == "1" && idB == "0") {
		t.Fatalf("duplicate-coordinate pair should merge first, got idA=%s idB=%s", idA, idB)
	}
}

func TestMeridianCrossingPairMergesFirst(t *testing.T) {
	pts := []region.Point{
		{ID: 0, Lon: -179, Lat: 0, Weight: 1},
		{ID: 1, Lon: 179, Lat: 0, Weight: 1},
		{ID: 2, Lon: 0, Lat: 0, Weight: 1},
	}
	s, _ := newTestScheduler(pts, 100)
	var buf bytes.Buffer
	w := emit.NewWriter(&buf)
	if _, err := s.Run(context.Background(), w); err != nil {
		t.Fatalf("Run: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	first := strings.Fields(lines[0])
	idA, idB := first[1], first[7]
	if !(idA == "0" && idB == "1") && !(idA == "1" && idB == "0") {
		t.Fatalf("meridian-crossing pair should merge first, got idA=%s idB=%s", idA, idB)
	}
}

func TestSingleInputEmitsNothing(t *testing.T) {
	pts := []region.Point{{ID: 0, Lon: 0, Lat: 0, Weight: 1}}
	s, _ := newTestScheduler(pts, 100)
	var buf bytes.Buffer
	w := emit.NewWriter(&buf)
	n, err := s.Run(context.Background(), w)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n != 0 || buf.Len() != 0 {
		t.Fatalf("expected zero merges and empty output, got n=%d buf=%q", n, buf.String())
	}
}

func TestCacheThresholdDoesNotChangeMergeSequence(t *testing.T) {
	// With a low threshold (cache engaged for nearly every pair) and an
	// effectively infinite threshold (cache never engaged, always
	// recompute), the emitted id sequence for the same input must match.
	pts := []region.Point{
		{ID: 0, Lon: 0, Lat: 0, Weight: 1},
		{ID: 1, Lon: 1, Lat: 0, Weight: 2},
		{ID: 2, Lon: 5, Lat: 1, Weight: 3},
		{ID: 3, Lon: 9, Lat: 9, Weight: 4},
		{ID: 4, Lon: -20, Lat: -20, Weight: 5},
	}
	run := func(threshold float64) string {
		s, _ := newTestScheduler(pts, threshold)
		var buf bytes.Buffer
		w := emit.NewWriter(&buf)
		if _, err := s.Run(context.Background(), w); err != nil {
			t.Fatalf("Run: %v", err)
		}
		var ids []string
		for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
			f := strings.Fields(line)
			ids = append(ids, f[1], f[7])
		}
		return strings.Join(ids, ",")
	}
	low := run(0)
	high := run(1e18)
	if low != high {
		t.Fatalf("merge sequence differs between cache thresholds:\n low=%s\nhigh=%s", low, high)
	}
}

func TestLiveSetShrinksByOnePerMerge(t *testing.T) {
	pts := []region.Point{
		{ID: 0, Lon: 0, Lat: 0, Weight: 1},
		{ID: 1, Lon: 1, Lat: 0, Weight: 1},
		{ID: 2, Lon: 2, Lat: 0, Weight: 1},
		{ID: 3, Lon: 3, Lat: 0, Weight: 1},
	}
	s, ar := newTestScheduler(pts, 100)
	var buf bytes.Buffer
	w := emit.NewWriter(&buf)
	n, err := s.Run(context.Background(), w)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n != len(pts)-1 {
		t.Fatalf("expected %d merges for %d points, got %d", len(pts)-1, len(pts), n)
	}
	if ar.LiveCount() != 1 {
		t.Fatalf("expected exactly one surviving region, got %d", ar.LiveCount())
	}
}

// scatterPoints deterministically spreads n points across a bounded box
// using an irrational-step lattice, so distances vary enough to avoid the
// exact potential ties a regular grid would produce while staying
// reproducible across runs (no math/rand seed to manage).
func scatterPoints(n int) []region.Point {
	pts := make([]region.Point, n)
	for i := 0; i < n; i++ {
		pts[i] = region.Point{
			ID:     i,
			Lon:    math.Mod(float64(i)*37.130197, 180) - 90,
			Lat:    math.Mod(float64(i)*53.718281, 90) - 45,
			Weight: float64(i%7) + 1,
		}
	}
	return pts
}

// TestCacheConsistencyAtLargeN is scenario 5 (§8): on an input large enough
// that the §4.4 cache-eligibility gate matters across several generations
// of a region reappearing as the merged side of successive merges (N=5 in
// TestCacheThresholdDoesNotChangeMergeSequence never exercises more than a
// couple of merges), a run with the cache effectively disabled (threshold
// 1e18) and a run that caches every eligible pair (threshold 0) must emit
// the identical merge sequence.
func TestCacheConsistencyAtLargeN(t *testing.T) {
	pts := scatterPoints(150)
	run := func(threshold float64) string {
		s, _ := newTestScheduler(pts, threshold)
		var buf bytes.Buffer
		w := emit.NewWriter(&buf)
		if _, err := s.Run(context.Background(), w); err != nil {
			t.Fatalf("Run: %v", err)
		}
		var ids []string
		for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
			f := strings.Fields(line)
			ids = append(ids, f[1], f[7])
		}
		return strings.Join(ids, ",")
	}
	alwaysCache := run(0)
	neverCache := run(1e18)
	if alwaysCache != neverCache {
		t.Fatalf("merge sequence at N=150 differs between cache thresholds")
	}
}

// TestLargeScaleSmoke is scenario 6 (§8): for a large uniformly-scattered
// input, the loop must complete and emit exactly N-1 records. Peak memory
// staying O(N) is a property of the arena being pre-sized to 2N-1 slots up
// front (region.NewArena below) and never growing past that, not something
// a runtime heap sample can assert reliably in a unit test, so this checks
// the record count and completion rather than sampling memory.
func TestLargeScaleSmoke(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping N=10000 smoke test in -short mode")
	}
	const n = 10000
	pts := scatterPoints(n)
	s, ar := newTestScheduler(pts, 100)
	var buf bytes.Buffer
	w := emit.NewWriter(&buf)
	merges, err := s.Run(context.Background(), w)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if merges != n-1 {
		t.Fatalf("expected %d merges for N=%d, got %d", n-1, n, merges)
	}
	if ar.LiveCount() != 1 {
		t.Fatalf("expected exactly one surviving region, got %d", ar.LiveCount())
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != n-1 {
		t.Fatalf("expected %d emitted records, got %d", n-1, len(lines))
	}
}

func TestParallelInitProducesSameMergeSequence(t *testing.T) {
	pts := []region.Point{
		{ID: 0, Lon: 0, Lat: 0, Weight: 1},
		{ID: 1, Lon: 1, Lat: 0, Weight: 1},
		{ID: 2, Lon: 10, Lat: 0, Weight: 100},
		{ID: 3, Lon: 50, Lat: 50, Weight: 3},
		{ID: 4, Lon: 50.5, Lat: 50, Weight: 2},
	}

	seq, _ := newTestScheduler(pts, 0)
	var seqBuf bytes.Buffer
	if _, err := seq.Run(context.Background(), emit.NewWriter(&seqBuf)); err != nil {
		t.Fatalf("sequential Run: %v", err)
	}

	par, _ := newTestScheduler(pts, 0)
	par.ParallelInit = true
	par.InitWorkers = 4
	var parBuf bytes.Buffer
	if _, err := par.Run(context.Background(), emit.NewWriter(&parBuf)); err != nil {
		t.Fatalf("parallel Run: %v", err)
	}

	if seqBuf.String() != parBuf.String() {
		t.Fatalf("parallel-init merge sequence differs from sequential:\nseq=%s\npar=%s", seqBuf.String(), parBuf.String())
	}
}
